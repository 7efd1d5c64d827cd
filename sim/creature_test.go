package sim

import (
	"bytes"
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

func newTestCreature(t *testing.T, isl *Island) *Creature {
	t.Helper()
	ev, ok := isl.Home().CreateEvolver(isl.Genetics().Random(isl.body.StrandLength), 0)
	if !ok {
		t.Fatal("CreateEvolver failed")
	}
	c := ev.(*Creature)
	c.SetLeg(isl.Journey())
	return c
}

func TestCreatureGestation(t *testing.T) {
	isl := testIsland(t, 4)
	c := newTestCreature(t, isl)
	start := c.Position()

	if swept := c.Advance(isl.body.GestationTicks - 1); swept {
		t.Error("sweep reported during gestation")
	}
	if !c.Gestating() {
		t.Error("creature stopped gestating early")
	}
	if c.Position() != start {
		t.Error("gestating creature moved")
	}

	c.Advance(2)
	if c.Gestating() {
		t.Error("creature still gestating after gestation ticks")
	}
	if c.Position() == start {
		t.Error("creature did not move after gestation")
	}
}

func TestCreatureSweepsOncePerGene(t *testing.T) {
	isl := testIsland(t, 4)
	c := newTestCreature(t, isl)
	c.Advance(isl.body.GestationTicks)

	per := isl.body.TicksPerGene
	if c.Advance(per - 1) {
		t.Error("sweep reported before a gene finished")
	}
	if !c.Advance(1) {
		t.Error("no sweep when the gene finished")
	}
	if c.Sweeps() != 1 {
		t.Errorf("sweeps = %d, want 1", c.Sweeps())
	}
}

func TestCreatureTouchesDestination(t *testing.T) {
	isl := testIsland(t, 4)
	c := newTestCreature(t, isl)
	target := isl.Journey().Destination().(*Cell).Center()
	c.pos = r3.Add(target, r3.Vec{X: -1})

	c.Advance(isl.body.GestationTicks + 1)

	if !c.TouchedDestination() {
		t.Errorf("creature at distance %v did not touch", c.DistanceFromTarget())
	}
	leg, _ := isl.Journey().NextLeg()
	c.SetLeg(leg)
	if c.TouchedDestination() {
		t.Error("touch survived a leg change")
	}
}

func TestAdjustDirectionFacesTarget(t *testing.T) {
	isl := testIsland(t, 4)
	c := newTestCreature(t, isl)
	c.direction = 3
	c.heading = math.Pi

	c.AdjustDirection()

	if c.Direction() != 0 {
		t.Errorf("direction = %d, want 0 toward the eastern destination", c.Direction())
	}
	if math.Abs(c.heading) >= math.Pi {
		t.Errorf("heading %v did not turn toward the target", c.heading)
	}
}

func TestOffspringAndSibling(t *testing.T) {
	isl := testIsland(t, 4)
	c := newTestCreature(t, isl)
	c.Advance(isl.body.GestationTicks + 50)

	if bytes.Equal(c.OffspringGenomeData(), c.GenomeData()) {
		t.Error("offspring genome identical to parent")
	}
	parsed, err := isl.Genetics().Parse(c.GenomeData())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	ev, ok := c.CreateSibling(parsed)
	if !ok {
		t.Fatal("CreateSibling failed")
	}
	s := ev.(*Creature)
	if s.Position() != c.Position() || s.Age() != c.Age() || s.Direction() != c.Direction() {
		t.Error("sibling does not start where the creature is")
	}
	if !s.Gestating() {
		t.Error("sibling skipped gestation")
	}
	if s.Index() == c.Index() {
		t.Error("sibling reused the creature index")
	}
}
