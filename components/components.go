// Package components defines the ECS components attached to evolver entities.
package components

// Origin records how an evolver came to exist.
type Origin uint8

const (
	OriginSeeded    Origin = iota // Built from a stored or hero genome
	OriginOffspring               // Bred from a surviving parent
	OriginReborn                  // Survivor re-instantiated from its own genome
)

func (o Origin) String() string {
	switch o {
	case OriginSeeded:
		return "seeded"
	case OriginOffspring:
		return "offspring"
	case OriginReborn:
		return "reborn"
	default:
		return "unknown"
	}
}

// Lineage holds the ancestry bookkeeping of an evolver.
type Lineage struct {
	Generation  int // Generation the evolver was created for
	Origin      Origin
	ParentIndex int // Evolver index of the parent, -1 when none
	Leg         int // Journey leg number at creation
}

// Fitness caches the last ranked distance of an evolver.
type Fitness struct {
	Distance float64
	Ranked   bool
}

// Delegate tags the frozen hero that creates siblings for later generations.
type Delegate struct{}
