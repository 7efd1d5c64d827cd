// Package game drives an evolution session frame by frame and wires it to
// persistence, telemetry and remote observers.
package game

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/pthm-cable/galapagotchi/clock"
	"github.com/pthm-cable/galapagotchi/config"
	"github.com/pthm-cable/galapagotchi/evolution"
	"github.com/pthm-cable/galapagotchi/observe"
	"github.com/pthm-cable/galapagotchi/sim"
	"github.com/pthm-cable/galapagotchi/store"
	"github.com/pthm-cable/galapagotchi/telemetry"
)

// Options configures a game session.
type Options struct {
	Seed        int64
	Config      *config.Config // nil = config.Cfg()
	StorePath   string         // overrides store.path
	OutputDir   string         // overrides telemetry.output_dir
	SnapshotDir string         // overrides telemetry.snapshot_dir
	Listen      string         // overrides observe.listen

	// Realtime runs timers on the wall clock. Otherwise every Update
	// advances a manual clock by one frame duration.
	Realtime bool
	LogStats bool
	Logger   *slog.Logger

	StatsCallback func(telemetry.GenerationStats)
}

// Game holds one evolution session.
type Game struct {
	cfg     *config.Config
	log     *slog.Logger
	rngSeed int64

	clock  clock.Clock
	manual *clock.Manual // nil in realtime mode
	timers *clock.Timers

	island *sim.Island
	engine *evolution.Evolution
	store  *store.GenomeStore

	// Telemetry
	collector        *telemetry.Collector
	perfCollector    *telemetry.PerfCollector
	milestones       *telemetry.MilestoneDetector
	outputManager    *telemetry.OutputManager
	snapshotDir      string
	logStats         bool
	statsCallback    func(telemetry.GenerationStats)
	pendingReports   []evolution.GenerationReport
	lastMilestone    *telemetry.Milestone
	generationsFlush int

	// Observers
	hub          *observe.Hub
	detachHub    func()
	stopObserver context.CancelFunc
	observerDone sync.WaitGroup

	tick     int64
	unloaded bool
}

// NewGameWithOptions builds a session: the genome store, the reference island
// on the stored or configured journey, the evolution engine and the
// configured outputs.
func NewGameWithOptions(opts Options) (*Game, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Cfg()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	g := &Game{
		cfg:           cfg,
		log:           logger,
		rngSeed:       opts.Seed,
		logStats:      opts.LogStats,
		statsCallback: opts.StatsCallback,
		snapshotDir:   pick(opts.SnapshotDir, cfg.Telemetry.SnapshotDir),
		perfCollector: telemetry.NewPerfCollector(cfg.Telemetry.PerfWindow),
		milestones:    telemetry.NewMilestoneDetector(cfg.Telemetry.MilestoneHistory, cfg.Telemetry.StagnationGenerations),
	}
	if opts.Realtime {
		g.clock = clock.Real{}
	} else {
		g.manual = clock.NewManual(time.Unix(0, 0))
		g.clock = g.manual
	}
	g.timers = clock.NewTimers(g.clock)
	g.collector = telemetry.NewCollector(g.clock)

	if err := g.openStore(pick(opts.StorePath, cfg.Store.Path)); err != nil {
		return nil, err
	}
	islandCfg := cfg.Island
	journey, err := g.loadJourney(islandCfg.Home, islandCfg.Journey)
	if err != nil {
		g.closeStore()
		return nil, err
	}
	islandCfg.Journey = journey

	island, err := sim.NewIsland(islandCfg, cfg.Body, opts.Seed)
	if err != nil {
		g.closeStore()
		return nil, fmt.Errorf("building island: %w", err)
	}
	g.island = island

	if err := g.seedGenome(); err != nil {
		g.closeStore()
		return nil, err
	}

	engine, err := evolution.New(island.Home(), island.Journey(), evolution.Options{
		Config: cfg.Evolution,
		Parse:  island.Genetics().Parse,
		Save:   g.saveGenome,
		Timers: g.timers,
		Rand:   rand.New(rand.NewSource(opts.Seed)),
		Report: g.queueReport,
		Logger: logger,
	})
	if err != nil {
		g.closeStore()
		return nil, err
	}
	g.engine = engine

	if g.outputManager, err = telemetry.NewOutputManager(pick(opts.OutputDir, cfg.Telemetry.OutputDir)); err != nil {
		g.Unload()
		return nil, err
	}
	if err := g.outputManager.WriteConfig(cfg); err != nil {
		logger.Error("failed to write config", "error", err)
	}

	g.startObserver(pick(opts.Listen, cfg.Observe.Listen))
	return g, nil
}

// pick returns override when set, otherwise fallback.
func pick(override, fallback string) string {
	if override != "" {
		return override
	}
	return fallback
}

// Update runs one frame: fire due timers, iterate the engine, then flush
// telemetry for any generation that completed during the frame.
func (g *Game) Update() {
	if g.unloaded {
		return
	}
	g.perfCollector.StartFrame()

	g.perfCollector.StartPhase(telemetry.PhaseTimers)
	if g.manual != nil {
		g.manual.Advance(g.cfg.Derived.FrameDuration)
	}
	g.timers.Fire()

	g.perfCollector.StartPhase(telemetry.PhaseIterate)
	if g.engine.Phase() == evolution.PhaseRunning {
		g.engine.Iterate()
		g.collector.RecordIteration()
	}
	g.collector.RecordFrame()

	g.perfCollector.StartPhase(telemetry.PhaseTelemetry)
	g.flushTelemetry()

	g.perfCollector.StartPhase(telemetry.PhaseObserve)
	g.publishMotion()

	g.perfCollector.EndFrame()
	g.tick++
}

// Tick returns the number of frames run.
func (g *Game) Tick() int64 {
	return g.tick
}

// Engine returns the evolution engine.
func (g *Game) Engine() *evolution.Evolution {
	return g.engine
}

// Island returns the reference island the engine runs on.
func (g *Game) Island() *sim.Island {
	return g.island
}

// Hub returns the observer hub, or nil when observing is disabled.
func (g *Game) Hub() *observe.Hub {
	return g.hub
}

// Completed reports whether the journey is finished.
func (g *Game) Completed() bool {
	return g.engine.Completed()
}

// Done reports whether the session should stop: the journey is finished or
// the configured frame limit was reached.
func (g *Game) Done() bool {
	if g.engine.Completed() {
		return true
	}
	limit := g.cfg.Driver.MaxFrames
	return limit > 0 && g.tick >= int64(limit)
}

// Unload tears the session down. It is safe to call more than once.
func (g *Game) Unload() {
	if g.unloaded {
		return
	}
	g.unloaded = true

	g.stopObserving()
	if g.engine != nil {
		g.engine.Recycle()
	}
	g.flushTelemetry()
	if err := g.outputManager.Close(); err != nil {
		g.log.Error("failed to close output", "error", err)
	}
	g.closeStore()

	g.log.Info("session_unloaded",
		"seed", g.rngSeed,
		"frames", g.tick,
		"generations", g.generationsFlush,
		"live", g.island.Live(),
	)
}
