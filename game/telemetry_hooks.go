package game

import (
	"github.com/pthm-cable/galapagotchi/evolution"
	"github.com/pthm-cable/galapagotchi/telemetry"
)

// queueReport is the engine's report callback. Reports arrive mid-frame and
// are handled in the telemetry phase.
func (g *Game) queueReport(r evolution.GenerationReport) {
	g.pendingReports = append(g.pendingReports, r)
}

// flushTelemetry turns queued reports into stats, CSV rows, milestones and
// snapshots.
func (g *Game) flushTelemetry() {
	if len(g.pendingReports) == 0 {
		return
	}
	reports := g.pendingReports
	g.pendingReports = nil

	for _, r := range reports {
		stats := g.collector.Flush(r)
		perfStats := g.perfCollector.Stats()
		g.generationsFlush++

		if g.statsCallback != nil {
			g.statsCallback(stats)
		}

		if g.logStats {
			stats.LogStats()
			perfStats.LogStats()
		}

		if err := g.outputManager.WriteGeneration(stats); err != nil {
			g.log.Error("failed to write generation", "error", err)
		}
		if err := g.outputManager.WritePerf(perfStats, stats.Frame); err != nil {
			g.log.Error("failed to write perf", "error", err)
		}

		for _, m := range g.milestones.Check(stats) {
			if g.logStats {
				m.LogMilestone()
			}
			if err := g.outputManager.WriteMilestone(m); err != nil {
				g.log.Error("failed to write milestone", "error", err)
			}
			if g.snapshotDir != "" {
				g.saveSnapshot(&m)
			}
			g.lastMilestone = &m
		}
	}
}

// saveSnapshot writes the current population to the snapshot directory.
func (g *Game) saveSnapshot(m *telemetry.Milestone) {
	snap := telemetry.NewPopulationSnapshot(g.engine, g.engine.Population().Value())
	snap.Milestone = m

	path, err := telemetry.SaveSnapshot(&snap, g.snapshotDir)
	if err != nil {
		g.log.Error("failed to save snapshot", "error", err)
		return
	}
	g.log.Info("snapshot saved", "path", path, "frame", g.tick)
}

// LastMilestone returns the most recent milestone, or nil.
func (g *Game) LastMilestone() *telemetry.Milestone {
	return g.lastMilestone
}
