package evolution

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/galapagotchi/components"
)

// Handle identifies an evolver in the engine's arena. Handles of recycled
// evolvers are never reused while referenced by a snapshot.
type Handle = ecs.Entity

// member is the component binding an arena entity to its evolver.
type member struct {
	evolver Evolver
}

// arena owns the live evolvers of an engine as ECS entities.
type arena struct {
	world *ecs.World

	spawner  *ecs.Map3[member, components.Lineage, components.Fitness]
	members  *ecs.Map[member]
	lineages *ecs.Map[components.Lineage]
	fitness  *ecs.Map[components.Fitness]
	delegate *ecs.Map[components.Delegate]
	all      *ecs.Filter1[member]
}

func newArena() *arena {
	world := ecs.NewWorld()
	return &arena{
		world:    world,
		spawner:  ecs.NewMap3[member, components.Lineage, components.Fitness](world),
		members:  ecs.NewMap[member](world),
		lineages: ecs.NewMap[components.Lineage](world),
		fitness:  ecs.NewMap[components.Fitness](world),
		delegate: ecs.NewMap[components.Delegate](world),
		all:      ecs.NewFilter1[member](world),
	}
}

func (a *arena) add(e Evolver, lineage components.Lineage) Member {
	h := a.spawner.NewEntity(&member{evolver: e}, &lineage, &components.Fitness{})
	return Member{Handle: h, Evolver: e}
}

// recycle releases the evolver behind h. Recycling a dead handle is a no-op.
func (a *arena) recycle(h Handle) {
	if !a.world.Alive(h) {
		return
	}
	a.members.Get(h).evolver.Recycle()
	a.world.RemoveEntity(h)
}

func (a *arena) lineage(h Handle) (components.Lineage, bool) {
	if !a.world.Alive(h) {
		return components.Lineage{}, false
	}
	return *a.lineages.Get(h), true
}

func (a *arena) setFitness(h Handle, distance float64) {
	if !a.world.Alive(h) {
		return
	}
	f := a.fitness.Get(h)
	f.Distance = distance
	f.Ranked = true
}

func (a *arena) fitnessOf(h Handle) (components.Fitness, bool) {
	if !a.world.Alive(h) {
		return components.Fitness{}, false
	}
	return *a.fitness.Get(h), true
}

func (a *arena) markDelegate(h Handle) {
	if a.world.Alive(h) && !a.delegate.Has(h) {
		a.delegate.Add(h, &components.Delegate{})
	}
}

func (a *arena) isDelegate(h Handle) bool {
	return a.world.Alive(h) && a.delegate.Has(h)
}

// handles lists every live entity. Entities must not be removed while the
// query is open, so callers collect first and recycle afterwards.
func (a *arena) handles() []Handle {
	var out []Handle
	query := a.all.Query()
	for query.Next() {
		out = append(out, query.Entity())
	}
	return out
}

func (a *arena) len() int {
	n := 0
	query := a.all.Query()
	for query.Next() {
		n++
	}
	return n
}
