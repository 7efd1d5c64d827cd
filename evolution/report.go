package evolution

import "log/slog"

// Cause names what ended a generation.
type Cause uint8

const (
	CauseSurvival Cause = iota // Every evolver reached the age limit
	CauseHero                  // An evolver touched its destination
	CauseComplete              // A hero touched the final destination
)

func (c Cause) String() string {
	switch c {
	case CauseSurvival:
		return "survival"
	case CauseHero:
		return "hero"
	case CauseComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// GenerationReport summarizes one completed generational transition.
type GenerationReport struct {
	Generation int // Generation that ended
	Cause      Cause
	Leg        int // Leg number in force when the generation ended

	Population int // Members before the transition
	Survivors  int
	Dead       int
	Offspring  int
	Reborn     int
	Next       int // Members of the following generation

	// Distances of ranked members, ascending. Empty for hero transitions.
	Distances []float64
	HeroIndex int // -1 unless Cause is CauseHero or CauseComplete

	MinAge int
	MaxAge int
}

// LogValue implements slog.LogValuer.
func (r GenerationReport) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int("generation", r.Generation),
		slog.String("cause", r.Cause.String()),
		slog.Int("leg", r.Leg),
		slog.Int("population", r.Population),
		slog.Int("next", r.Next),
		slog.Int("min_age", r.MinAge),
		slog.Int("max_age", r.MaxAge),
	}
	if r.Cause == CauseSurvival {
		attrs = append(attrs,
			slog.Int("survivors", r.Survivors),
			slog.Int("dead", r.Dead),
			slog.Int("offspring", r.Offspring),
			slog.Int("reborn", r.Reborn),
		)
	} else {
		attrs = append(attrs, slog.Int("hero", r.HeroIndex))
	}
	return slog.GroupValue(attrs...)
}
