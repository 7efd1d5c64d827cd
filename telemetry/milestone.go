package telemetry

import (
	"fmt"
	"log/slog"

	"github.com/pthm-cable/galapagotchi/evolution"
)

// MilestoneType identifies the kind of milestone.
type MilestoneType string

const (
	MilestoneNewBest         MilestoneType = "new_best"
	MilestoneStagnation      MilestoneType = "stagnation"
	MilestoneLegReached      MilestoneType = "leg_reached"
	MilestoneJourneyComplete MilestoneType = "journey_complete"
)

// newBestRatio is the fraction of the previous best distance a generation
// must reach to count as a new best.
const newBestRatio = 0.9

// Milestone is a notable moment in a run.
type Milestone struct {
	Type        MilestoneType `csv:"type"`
	Generation  int           `csv:"generation"`
	Frame       int64         `csv:"frame"`
	Description string        `csv:"description"`
}

// LogMilestone logs the milestone using slog.
func (m Milestone) LogMilestone() {
	slog.Info("milestone",
		"type", string(m.Type),
		"generation", m.Generation,
		"frame", m.Frame,
		"description", m.Description,
	)
}

// MilestoneDetector watches generation stats for milestones.
type MilestoneDetector struct {
	// Rolling history of ranked generations on the current leg
	history     []GenerationStats
	historySize int
	historyIdx  int
	historyFull bool

	best               float64
	hasBest            bool
	sinceImprovement   int
	stagnationAfter    int
	stagnationReported bool
}

// NewMilestoneDetector creates a detector keeping historySize generations
// and reporting stagnation after stagnationAfter ranked generations without
// a new best.
func NewMilestoneDetector(historySize, stagnationAfter int) *MilestoneDetector {
	if historySize < 1 {
		historySize = 1
	}
	if stagnationAfter < 1 {
		stagnationAfter = 1
	}
	return &MilestoneDetector{
		history:         make([]GenerationStats, historySize),
		historySize:     historySize,
		stagnationAfter: stagnationAfter,
	}
}

// Check analyzes the stats of a completed generation and returns any
// milestones reached.
func (md *MilestoneDetector) Check(stats GenerationStats) []Milestone {
	switch stats.Cause {
	case evolution.CauseHero.String():
		md.resetLeg()
		return []Milestone{md.milestone(MilestoneLegReached, stats,
			fmt.Sprintf("evolver %d reached leg %d at age %d", stats.Hero, stats.Leg, stats.MinAge))}
	case evolution.CauseComplete.String():
		return []Milestone{md.milestone(MilestoneJourneyComplete, stats,
			fmt.Sprintf("evolver %d finished the journey", stats.Hero))}
	}
	if !stats.Ranked() {
		return nil
	}

	var milestones []Milestone
	switch {
	case !md.hasBest:
		md.best, md.hasBest = stats.DistBest, true
	case stats.DistBest <= md.best*newBestRatio:
		milestones = append(milestones, md.milestone(MilestoneNewBest, stats,
			fmt.Sprintf("best distance %.2f improved on %.2f (rolling mean %.2f)",
				stats.DistBest, md.best, md.rollingBest())))
		md.best = stats.DistBest
		md.sinceImprovement = 0
		md.stagnationReported = false
	default:
		md.sinceImprovement++
		if md.sinceImprovement >= md.stagnationAfter && !md.stagnationReported {
			milestones = append(milestones, md.milestone(MilestoneStagnation, stats,
				fmt.Sprintf("no improvement on %.2f for %d generations", md.best, md.sinceImprovement)))
			md.stagnationReported = true
		}
	}

	md.addToHistory(stats)
	return milestones
}

func (md *MilestoneDetector) milestone(t MilestoneType, stats GenerationStats, desc string) Milestone {
	return Milestone{Type: t, Generation: stats.Generation, Frame: stats.Frame, Description: desc}
}

// resetLeg forgets progress measured against the previous destination.
func (md *MilestoneDetector) resetLeg() {
	md.historyIdx = 0
	md.historyFull = false
	md.hasBest = false
	md.sinceImprovement = 0
	md.stagnationReported = false
}

func (md *MilestoneDetector) addToHistory(stats GenerationStats) {
	md.history[md.historyIdx] = stats
	md.historyIdx = (md.historyIdx + 1) % md.historySize
	if md.historyIdx == 0 {
		md.historyFull = true
	}
}

func (md *MilestoneDetector) getHistory() []GenerationStats {
	if md.historyFull {
		return md.history
	}
	return md.history[:md.historyIdx]
}

// rollingBest is the mean best distance over the history.
func (md *MilestoneDetector) rollingBest() float64 {
	history := md.getHistory()
	if len(history) == 0 {
		return md.best
	}
	var sum float64
	for _, s := range history {
		sum += s.DistBest
	}
	return sum / float64(len(history))
}
