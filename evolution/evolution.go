// Package evolution runs the generational search that teaches a population of
// evolvers to travel from a home location along a journey.
//
// Each generation advances every evolver until it reaches the age limit or
// one evolver touches the leg destination. Age exhaustion ranks the
// population, culls the worst, breeds replacements from survivors and
// re-instantiates the survivors. A touch freezes the hero, moves the journey
// to its next leg and seeds a fresh population from the hero's genome.
// Transitions are split into phases separated by a settle delay so observers
// can show intermediate states.
package evolution

import (
	"log/slog"
	"math/rand"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/galapagotchi/clock"
	"github.com/pthm-cable/galapagotchi/components"
	"github.com/pthm-cable/galapagotchi/config"
	"github.com/pthm-cable/galapagotchi/observable"
)

// Member is an evolver as seen through a population snapshot.
type Member struct {
	Handle  Handle
	Evolver Evolver
}

// Population is an immutable snapshot of the evolvers currently shown.
type Population struct {
	Generation int
	Phase      Phase
	Members    []Member
}

// Len returns the number of members.
func (p Population) Len() int {
	return len(p.Members)
}

// Options configures an engine.
type Options struct {
	Config config.EvolutionConfig
	Parse  GenomeParser
	Save   SaveFunc

	// Timers schedules settle delays. Defaults to real time timers, which
	// still only fire when the caller drives Fire.
	Timers *clock.Timers
	// Rand selects breeding parents. Defaults to a fixed seed.
	Rand *rand.Rand
	// Report receives one report per completed transition.
	Report func(GenerationReport)
	Logger *slog.Logger
}

// Evolution drives a population of evolvers toward the current journey leg.
// It is not safe for concurrent use: Iterate and the timers it arms must be
// driven from the same goroutine.
type Evolution struct {
	cfg    config.EvolutionConfig
	home   Home
	parse  GenomeParser
	save   SaveFunc
	timers *clock.Timers
	rng    *rand.Rand
	report func(GenerationReport)
	log    *slog.Logger

	arena      *arena
	population *observable.Subject[Population]
	phases     *observable.Subject[Phase]

	st       state
	timer    *clock.Timer
	delegate *Member

	leg        Leg
	legNumber  int
	direction  int
	minAge     int
	maxAge     int
	generation int
}

// New builds an engine for home and seeds its first population from the
// genome stored there. The initial direction is the neighbor matching the
// first leg's destination.
func New(home Home, firstLeg Leg, opts Options) (*Evolution, error) {
	if err := opts.Config.Validate(); err != nil {
		return nil, &ConfigurationError{Home: home.ID(), Err: err}
	}
	data, ok := home.CurrentGenome()
	if !ok {
		return nil, &ConfigurationError{Home: home.ID(), Err: ErrNoGenome}
	}
	genome, err := opts.Parse(data)
	if err != nil {
		return nil, &ConfigurationError{Home: home.ID(), Err: err}
	}

	e := &Evolution{
		cfg:        opts.Config,
		home:       home,
		parse:      opts.Parse,
		save:       opts.Save,
		timers:     opts.Timers,
		rng:        opts.Rand,
		report:     opts.Report,
		log:        opts.Logger,
		arena:      newArena(),
		population: observable.NewSubject(Population{}),
		phases:     observable.NewSubject(PhaseRunning),
		leg:        firstLeg,
		maxAge:     opts.Config.MinLifespan,
	}
	if e.timers == nil {
		e.timers = clock.NewTimers(clock.Real{})
	}
	if e.rng == nil {
		e.rng = rand.New(rand.NewSource(1))
	}
	if e.log == nil {
		e.log = slog.Default()
	}
	e.log = e.log.With("home", home.ID())
	e.direction = e.directionOf(firstLeg)

	members := e.createPopulation(genome, 0)
	e.publish(PhaseRunning, members)
	e.log.Info("evolution_started",
		"population", len(members),
		"direction", e.direction,
		"destination", firstLeg.Destination().ID(),
	)
	return e, nil
}

func (e *Evolution) directionOf(leg Leg) int {
	target := leg.Destination().ID()
	for i, n := range e.home.Neighbors() {
		if n != nil && n.ID() == target {
			return i
		}
	}
	e.log.Warn("destination_not_adjacent", "destination", target)
	return 0
}

// Population returns the subject publishing population snapshots. New
// subscribers receive the current snapshot immediately.
func (e *Evolution) Population() *observable.Subject[Population] {
	return e.population
}

// Phases returns the subject publishing phase changes.
func (e *Evolution) Phases() *observable.Subject[Phase] {
	return e.phases
}

// Phase returns the current phase.
func (e *Evolution) Phase() Phase {
	return e.st.phase
}

// Completed reports whether the journey has been finished.
func (e *Evolution) Completed() bool {
	return e.st.phase == PhaseCompleted
}

// Generation returns the number of completed transitions.
func (e *Evolution) Generation() int {
	return e.generation
}

// MinAge returns the lower bound of the age window.
func (e *Evolution) MinAge() int {
	return e.minAge
}

// MaxAge returns the age at which evolvers stop advancing.
func (e *Evolution) MaxAge() int {
	return e.maxAge
}

// Home returns the location the journey started from.
func (e *Evolution) Home() Home {
	return e.home
}

// Leg returns the leg the population is currently travelling.
func (e *Evolution) Leg() Leg {
	return e.leg
}

// LegNumber returns the zero-based index of the current leg.
func (e *Evolution) LegNumber() int {
	return e.legNumber
}

// Direction returns the initial steering direction of fresh populations.
func (e *Evolution) Direction() int {
	return e.direction
}

// Lineage returns the ancestry record of a live member.
func (e *Evolution) Lineage(h Handle) (components.Lineage, bool) {
	return e.arena.lineage(h)
}

// Fitness returns the distance a live member had when it was last ranked.
// Ranked is false until the member has been through a ranking.
func (e *Evolution) Fitness(h Handle) (components.Fitness, bool) {
	return e.arena.fitnessOf(h)
}

// Live returns the number of evolvers the engine currently owns, including
// hidden ones and the creation delegate.
func (e *Evolution) Live() int {
	return e.arena.len()
}

// Midpoint returns the average position of the current population, or the
// zero vector when it is empty.
func (e *Evolution) Midpoint() r3.Vec {
	members := e.population.Value().Members
	if len(members) == 0 {
		return r3.Vec{}
	}
	var sum r3.Vec
	for _, m := range members {
		sum = r3.Add(sum, m.Evolver.Position())
	}
	return r3.Scale(1/float64(len(members)), sum)
}

// Iterate advances the population by one step. It does nothing while a
// transition is in flight or the population is empty.
func (e *Evolution) Iterate() {
	if e.st.phase != PhaseRunning {
		return
	}
	members := e.population.Value().Members
	if len(members) == 0 {
		return
	}

	for _, m := range members {
		if m.Evolver.TouchedDestination() {
			e.beginHero(members, m)
			return
		}
	}

	moving := make([]Member, 0, len(members))
	for _, m := range members {
		if m.Evolver.Age() < e.maxAge {
			moving = append(moving, m)
		}
	}
	if len(moving) == 0 {
		e.saveStrongest(members)
		e.adjustAgeLimit()
		e.beginSurvival(members)
		return
	}

	for _, m := range moving {
		ev := m.Evolver
		ticks := min(e.maxAge-ev.Age(), e.cfg.NormalTicks)
		if ev.Advance(ticks) && !ev.Gestating() {
			ev.MutateGenome(1)
			ev.AdjustDirection()
		}
	}
}

func (e *Evolution) saveStrongest(members []Member) {
	ranked := e.rank(members)
	if len(ranked) == 0 {
		e.log.Info("no_strongest", "generation", e.generation)
		return
	}
	best := ranked[0]
	if e.save != nil {
		e.save(best.Evolver.GenomeData())
	}
	e.log.Info("genome_saved",
		"generation", e.generation,
		"evolver", best.Evolver.Index(),
		"distance", best.Distance,
	)
}

// adjustAgeLimit widens the age window, snapping it back to the minimum
// lifespan once it outgrows the maximum.
func (e *Evolution) adjustAgeLimit() {
	e.maxAge += e.cfg.LifespanIncrease
	if e.maxAge-e.minAge > e.cfg.MaxLifespan() {
		e.maxAge = e.minAge + e.cfg.MinLifespan
		e.log.Debug("max_age_adjusted", "min_age", e.minAge, "max_age", e.maxAge, "reset", true)
		return
	}
	e.log.Debug("max_age_adjusted", "min_age", e.minAge, "max_age", e.maxAge)
}

// Recycle tears the engine down, releasing every evolver it owns including
// hidden buffers and creation delegates. A pending transition is abandoned.
func (e *Evolution) Recycle() {
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	handles := e.arena.handles()
	delegates := 0
	for _, h := range handles {
		if e.arena.isDelegate(h) {
			delegates++
		}
		e.arena.recycle(h)
	}
	e.log.Info("evolution_recycled",
		"generation", e.generation,
		"evolvers", len(handles),
		"delegates", delegates,
	)
	e.delegate = nil
	e.st = state{phase: PhaseStopped}
	e.publish(PhaseStopped, nil)
	e.phases.Publish(PhaseStopped)
}

func (e *Evolution) publish(phase Phase, members []Member) {
	e.population.Publish(Population{
		Generation: e.generation,
		Phase:      phase,
		Members:    members,
	})
}
