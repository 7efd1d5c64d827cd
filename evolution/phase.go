package evolution

// Phase is the step of the generational state machine the engine is in.
type Phase uint8

const (
	PhaseRunning     Phase = iota // Iterate advances the population
	PhaseHeroFreeze               // Hero shown alone until the settle timer fires
	PhaseHeroRebirth              // Seeding a population from the hero
	PhaseCull                     // Survivors shown, dead recycled
	PhaseBreed                    // Offspring created, population hidden
	PhaseRebirth                  // Survivors re-instantiated
	PhaseCompleted                // Journey has no further leg
	PhaseStopped                  // Engine recycled
)

func (p Phase) String() string {
	switch p {
	case PhaseRunning:
		return "running"
	case PhaseHeroFreeze:
		return "hero_freeze"
	case PhaseHeroRebirth:
		return "hero_rebirth"
	case PhaseCull:
		return "cull"
	case PhaseBreed:
		return "breed"
	case PhaseRebirth:
		return "rebirth"
	case PhaseCompleted:
		return "completed"
	case PhaseStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// settles reports whether the phase waits for the settle timer.
func (p Phase) settles() bool {
	return p == PhaseHeroFreeze || p == PhaseCull || p == PhaseBreed
}

// state is the data owned by the current phase. Only the fields relevant to
// the phase are set.
type state struct {
	phase Phase

	hero    Member // HeroFreeze, HeroRebirth, Completed
	hasHero bool
	prior   []Member // HeroFreeze: population hidden behind the hero

	survivors []Member  // Cull, Breed
	dead      []Ranked  // Cull
	next      []Member  // Breed, Rebirth: next generation buffer
	reborn    []rebirth // Rebirth

	report GenerationReport
}

type rebirth struct {
	parent int
	data   GenomeData
}
