package telemetry

import "testing"

func ranked(gen int, best float64) GenerationStats {
	return GenerationStats{Generation: gen, Cause: "survival", Population: 24, DistBest: best}
}

func hasMilestone(ms []Milestone, t MilestoneType) bool {
	for _, m := range ms {
		if m.Type == t {
			return true
		}
	}
	return false
}

func TestMilestoneDetector_NewBest(t *testing.T) {
	md := NewMilestoneDetector(8, 5)

	if ms := md.Check(ranked(0, 100)); len(ms) != 0 {
		t.Fatalf("baseline generation produced %v", ms)
	}
	if ms := md.Check(ranked(1, 95)); hasMilestone(ms, MilestoneNewBest) {
		t.Error("5% improvement reported as new best")
	}
	if ms := md.Check(ranked(2, 89)); !hasMilestone(ms, MilestoneNewBest) {
		t.Error("expected new_best for 11% improvement")
	}
	// The next new best is measured from 89
	if ms := md.Check(ranked(3, 85)); hasMilestone(ms, MilestoneNewBest) {
		t.Error("improvement measured against a stale best")
	}
}

func TestMilestoneDetector_StagnationReportedOnce(t *testing.T) {
	md := NewMilestoneDetector(8, 3)
	md.Check(ranked(0, 50))

	var count int
	for gen := 1; gen <= 6; gen++ {
		if hasMilestone(md.Check(ranked(gen, 50)), MilestoneStagnation) {
			count++
			if gen != 3 {
				t.Errorf("stagnation at generation %d, want 3", gen)
			}
		}
	}
	if count != 1 {
		t.Errorf("stagnation reported %d times, want 1", count)
	}

	md.Check(ranked(7, 10))
	for gen := 8; gen <= 10; gen++ {
		if hasMilestone(md.Check(ranked(gen, 10)), MilestoneStagnation) && gen != 10 {
			t.Errorf("stagnation at generation %d after improvement", gen)
		}
	}
}

func TestMilestoneDetector_LegResetsBaseline(t *testing.T) {
	md := NewMilestoneDetector(8, 3)
	md.Check(ranked(0, 10))

	ms := md.Check(GenerationStats{Generation: 1, Cause: "hero", Hero: 4, Leg: 0})
	if !hasMilestone(ms, MilestoneLegReached) {
		t.Fatal("expected leg_reached")
	}
	// Distances to the new destination start a new baseline
	if ms := md.Check(ranked(2, 40)); len(ms) != 0 {
		t.Errorf("first generation on a new leg produced %v", ms)
	}

	ms = md.Check(GenerationStats{Generation: 3, Cause: "complete", Hero: 9})
	if !hasMilestone(ms, MilestoneJourneyComplete) {
		t.Error("expected journey_complete")
	}
}
