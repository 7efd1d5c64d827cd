package evolution

import "gonum.org/v1/gonum/spatial/r3"

// GenomeData is the serialized heritable material of an evolver.
type GenomeData []byte

// Genome is an immutable heritable behavior description.
type Genome interface {
	// Data returns the serialized form of the genome.
	Data() GenomeData
	// WithMutatedBehavior returns a variant with count mutations applied to
	// the behavior steering toward direction.
	WithMutatedBehavior(direction, count int) Genome
}

// GenomeParser decodes serialized genome data.
type GenomeParser func(GenomeData) (Genome, error)

// SaveFunc persists the genome of a generation's fittest evolver.
type SaveFunc func(GenomeData)

// Location is a cell of the island identified by a stable id.
type Location interface {
	ID() string
}

// Leg is one segment of a journey.
type Leg interface {
	Destination() Location
	NextLeg() (Leg, bool)
}

// Home is the location a journey starts from.
type Home interface {
	Location
	// CurrentGenome returns the genome stored at the home, if any.
	CurrentGenome() (GenomeData, bool)
	// Neighbors lists the adjacent cells in direction order. Entries are
	// nil where no location exists.
	Neighbors() []Location
	// CreateEvolver instantiates a body for genome facing direction. It
	// reports false when no body can be created.
	CreateEvolver(genome Genome, direction int) (Evolver, bool)
}

// Evolver is one simulated creature bound to a genome and a journey leg.
type Evolver interface {
	// Index is a stable identity used for logging.
	Index() int
	Age() int
	Gestating() bool
	TouchedDestination() bool
	Leg() Leg
	SetLeg(Leg)
	Direction() int
	// Position returns a sample of the body position.
	Position() r3.Vec
	// Advance steps the simulation by up to ticks and reports whether a
	// full sweep completed.
	Advance(ticks int) bool
	MutateGenome(count int)
	// AdjustDirection applies steering feedback toward the destination.
	AdjustDirection()
	// Recycle releases the body. The evolver must not be used afterwards.
	Recycle()
	DistanceFromTarget() float64
	GenomeData() GenomeData
	OffspringGenomeData() GenomeData
	// CreateSibling instantiates a body sharing this evolver's substrate.
	CreateSibling(genome Genome) (Evolver, bool)
}
