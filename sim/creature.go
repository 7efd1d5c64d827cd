package sim

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/galapagotchi/evolution"
)

// Creature is a point body steered by its genome. It implements
// evolution.Evolver.
type Creature struct {
	island *Island
	index  int
	genome *Genome

	leg       evolution.Leg
	target    r3.Vec
	direction int

	pos     r3.Vec
	heading float64
	age     int
	born    int // age at which the body was created
	touched bool
	swept   int // genes completed since birth

	recycled bool
}

func (isl *Island) newCreature(genome *Genome, direction int, pos r3.Vec, heading float64, age int) (*Creature, bool) {
	index, ok := isl.acquire()
	if !ok {
		return nil, false
	}
	return &Creature{
		island:    isl,
		index:     index,
		genome:    genome.clone(),
		direction: direction,
		pos:       pos,
		heading:   heading,
		age:       age,
		born:      age,
	}, true
}

func (c *Creature) Index() int { return c.index }

func (c *Creature) Age() int { return c.age }

// Gestating reports whether the body is still too young to move.
func (c *Creature) Gestating() bool {
	return c.age-c.born < c.island.body.GestationTicks
}

func (c *Creature) TouchedDestination() bool { return c.touched }

func (c *Creature) Leg() evolution.Leg { return c.leg }

// SetLeg binds the creature to leg and aims it at the leg destination.
func (c *Creature) SetLeg(leg evolution.Leg) {
	c.leg = leg
	c.touched = false
	if cell, ok := leg.Destination().(*Cell); ok {
		c.target = cell.Center()
	}
}

func (c *Creature) Direction() int { return c.direction }

func (c *Creature) Position() r3.Vec { return c.pos }

// Advance steps the body tick by tick. Each gene of the active strand turns
// the heading for TicksPerGene ticks; a sweep completes whenever a gene
// finishes.
func (c *Creature) Advance(ticks int) bool {
	body := c.island.body
	swept := false
	for range ticks {
		c.age++
		if c.Gestating() {
			continue
		}
		moving := c.age - c.born - body.GestationTicks
		gene := c.genome.Gene(c.direction, moving/body.TicksPerGene)
		turn := (float64(gene)/255*2 - 1) * body.MaxTurn
		c.heading = normalizeAngle(c.heading + turn/float64(body.TicksPerGene))

		speed := body.Speed * c.island.terrain.SpeedFactor(c.pos)
		c.pos = r3.Add(c.pos, r3.Vec{X: math.Cos(c.heading) * speed, Z: math.Sin(c.heading) * speed})

		if moving > 0 && moving%body.TicksPerGene == 0 {
			c.swept++
			swept = true
		}
		if !c.touched && c.DistanceFromTarget() <= body.TouchRadius {
			c.touched = true
		}
	}
	return swept
}

// MutateGenome changes count genes of the active strand.
func (c *Creature) MutateGenome(count int) {
	c.genome.mutate(c.direction, count)
}

// AdjustDirection turns the heading part of the way toward the destination
// and switches to the strand facing it most closely.
func (c *Creature) AdjustDirection() {
	to := r3.Sub(c.target, c.pos)
	bearing := math.Atan2(to.Z, to.X)
	c.heading = normalizeAngle(c.heading + c.island.body.SteerGain*normalizeAngle(bearing-c.heading))
	c.direction = nearestDirection(bearing)
}

// Recycle returns the body to the island pool.
func (c *Creature) Recycle() {
	if c.recycled {
		return
	}
	c.recycled = true
	c.island.release()
}

func (c *Creature) DistanceFromTarget() float64 {
	return r3.Norm(r3.Sub(c.target, c.pos))
}

func (c *Creature) GenomeData() evolution.GenomeData {
	return c.genome.Data()
}

// OffspringGenomeData returns this creature's genome with a few random
// mutations spread over all strands.
func (c *Creature) OffspringGenomeData() evolution.GenomeData {
	child := c.genome.clone()
	child.mutateAny(c.island.body.OffspringMutations)
	return child.Data()
}

// CreateSibling creates a creature at this creature's position, heading and
// age. The sibling's gestation starts over.
func (c *Creature) CreateSibling(genome evolution.Genome) (evolution.Evolver, bool) {
	g, ok := genome.(*Genome)
	if !ok || c.recycled {
		return nil, false
	}
	sibling, ok := c.island.newCreature(g, c.direction, c.pos, c.heading, c.age)
	if !ok {
		return nil, false
	}
	return sibling, true
}

// Sweeps returns the number of genes completed since birth.
func (c *Creature) Sweeps() int {
	return c.swept
}
