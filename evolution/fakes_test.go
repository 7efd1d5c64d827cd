package evolution

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"testing"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/galapagotchi/clock"
	"github.com/pthm-cable/galapagotchi/config"
)

var errBadGenome = errors.New("bad genome")

type fakeGenome struct {
	data GenomeData
}

func (g fakeGenome) Data() GenomeData { return g.data }

func (g fakeGenome) WithMutatedBehavior(direction, count int) Genome {
	return fakeGenome{data: GenomeData(fmt.Sprintf("%s/%d:%d", g.data, direction, count))}
}

func parseFake(d GenomeData) (Genome, error) {
	if string(d) == "bad" {
		return nil, errBadGenome
	}
	return fakeGenome{data: d}, nil
}

type fakeLocation string

func (l fakeLocation) ID() string { return string(l) }

type fakeLeg struct {
	dest fakeLocation
	next *fakeLeg
}

func (l *fakeLeg) Destination() Location { return l.dest }

func (l *fakeLeg) NextLeg() (Leg, bool) {
	if l.next == nil {
		return nil, false
	}
	return l.next, true
}

// journey builds a chain of legs through the given destinations.
func journey(dests ...string) *fakeLeg {
	var first, prev *fakeLeg
	for _, d := range dests {
		l := &fakeLeg{dest: fakeLocation(d)}
		if prev == nil {
			first = l
		} else {
			prev.next = l
		}
		prev = l
	}
	return first
}

type fakeHome struct {
	id        string
	genome    GenomeData
	hasGenome bool
	neighbors []Location
	capacity  int

	live    int
	created []*fakeEvolver
}

func newFakeHome() *fakeHome {
	return &fakeHome{
		id:        "0,0",
		genome:    GenomeData("seed"),
		hasGenome: true,
		neighbors: []Location{
			fakeLocation("2,0"), fakeLocation("1,1"), fakeLocation("-1,1"),
			fakeLocation("-2,0"), nil, fakeLocation("1,-1"),
		},
		capacity: 100,
	}
}

func (h *fakeHome) ID() string { return h.id }

func (h *fakeHome) CurrentGenome() (GenomeData, bool) { return h.genome, h.hasGenome }

func (h *fakeHome) Neighbors() []Location { return h.neighbors }

func (h *fakeHome) CreateEvolver(genome Genome, direction int) (Evolver, bool) {
	return h.create(genome, direction, nil)
}

func (h *fakeHome) create(genome Genome, direction int, parent *fakeEvolver) (*fakeEvolver, bool) {
	if h.live >= h.capacity {
		return nil, false
	}
	h.live++
	ev := &fakeEvolver{
		home:      h,
		index:     len(h.created),
		data:      genome.Data(),
		offspring: append(GenomeData(nil), genome.Data()...),
		direction: direction,
		sibling:   parent != nil,
	}
	if parent != nil {
		ev.age = parent.age
		ev.direction = parent.direction
		ev.pos = parent.pos
	}
	h.created = append(h.created, ev)
	return ev, true
}

// alive returns the created evolvers that have not been recycled.
func (h *fakeHome) alive() []*fakeEvolver {
	var out []*fakeEvolver
	for _, ev := range h.created {
		if ev.recycled == 0 {
			out = append(out, ev)
		}
	}
	return out
}

type fakeEvolver struct {
	home *fakeHome

	index     int
	age       int
	gestating bool
	touched   bool
	leg       Leg
	direction int
	pos       r3.Vec
	distance  float64
	data      GenomeData
	offspring GenomeData
	sibling   bool

	sweep     bool
	advances  []int
	mutations int
	adjusts   int
	recycled  int
}

func (e *fakeEvolver) Index() int                  { return e.index }
func (e *fakeEvolver) Age() int                    { return e.age }
func (e *fakeEvolver) Gestating() bool             { return e.gestating }
func (e *fakeEvolver) TouchedDestination() bool    { return e.touched }
func (e *fakeEvolver) Leg() Leg                    { return e.leg }
func (e *fakeEvolver) SetLeg(l Leg)                { e.leg = l }
func (e *fakeEvolver) Direction() int              { return e.direction }
func (e *fakeEvolver) Position() r3.Vec            { return e.pos }
func (e *fakeEvolver) MutateGenome(count int)      { e.mutations += count }
func (e *fakeEvolver) AdjustDirection()            { e.adjusts++ }
func (e *fakeEvolver) DistanceFromTarget() float64 { return e.distance }
func (e *fakeEvolver) GenomeData() GenomeData      { return e.data }
func (e *fakeEvolver) OffspringGenomeData() GenomeData {
	return e.offspring
}

func (e *fakeEvolver) Advance(ticks int) bool {
	e.advances = append(e.advances, ticks)
	e.age += ticks
	return e.sweep
}

func (e *fakeEvolver) Recycle() {
	e.recycled++
	e.home.live--
}

func (e *fakeEvolver) CreateSibling(genome Genome) (Evolver, bool) {
	return e.home.create(genome, e.direction, e)
}

// harness wires an engine to fakes and a manual clock.
type harness struct {
	t       *testing.T
	home    *fakeHome
	clock   *clock.Manual
	timers  *clock.Timers
	engine  *Evolution
	saved   []GenomeData
	reports []GenerationReport
}

func testConfig() config.EvolutionConfig {
	return config.EvolutionConfig{
		MaxPopulation:       24,
		MutationCount:       5,
		SurvivalRate:        0.66,
		MinLifespan:         15000,
		LifespanIncrease:    1000,
		MaxLifespanIncrease: 10000,
		NormalTicks:         40,
		SettleDelayMS:       500,
	}
}

func newHarness(t *testing.T, home *fakeHome, leg *fakeLeg) *harness {
	t.Helper()
	h := &harness{
		t:     t,
		home:  home,
		clock: clock.NewManual(time.Unix(0, 0)),
	}
	h.timers = clock.NewTimers(h.clock)
	engine, err := New(home, leg, Options{
		Config: testConfig(),
		Parse:  parseFake,
		Save:   func(d GenomeData) { h.saved = append(h.saved, d) },
		Timers: h.timers,
		Rand:   rand.New(rand.NewSource(42)),
		Report: func(r GenerationReport) { h.reports = append(h.reports, r) },
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	h.engine = engine
	return h
}

// settle lets one settle delay elapse and fires the due timers.
func (h *harness) settle() {
	h.t.Helper()
	h.clock.Advance(time.Duration(testConfig().SettleDelayMS) * time.Millisecond)
	h.timers.Fire()
}

// members returns the fakes behind the current snapshot.
func (h *harness) members() []*fakeEvolver {
	snap := h.engine.Population().Value()
	out := make([]*fakeEvolver, len(snap.Members))
	for i, m := range snap.Members {
		out[i] = m.Evolver.(*fakeEvolver)
	}
	return out
}

// exhaust ages every shown evolver to the current limit.
func (h *harness) exhaust() {
	for _, ev := range h.members() {
		ev.age = h.engine.MaxAge()
	}
}

// runSurvival drives one complete survival transition.
func (h *harness) runSurvival() {
	h.t.Helper()
	h.exhaust()
	h.engine.Iterate()
	if got := h.engine.Phase(); got != PhaseCull {
		h.t.Fatalf("phase after exhaustion = %v, want cull", got)
	}
	h.settle()
	h.settle()
	if got := h.engine.Phase(); got != PhaseRunning {
		h.t.Fatalf("phase after settling = %v, want running", got)
	}
}
