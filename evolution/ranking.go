package evolution

import "sort"

// Ranked pairs a population member with its distance from the destination.
type Ranked struct {
	Member
	Distance float64
}

// Rank orders members by ascending distance from their leg destination,
// skipping those for which exclude reports true. Ties keep population order.
func Rank(members []Member, exclude func(Handle) bool) []Ranked {
	ranked := make([]Ranked, 0, len(members))
	for _, m := range members {
		if exclude != nil && exclude(m.Handle) {
			continue
		}
		ranked = append(ranked, Ranked{Member: m, Distance: m.Evolver.DistanceFromTarget()})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Distance < ranked[j].Distance
	})
	return ranked
}

// Evaluated ranks the current population, excluding the hero and any
// creation delegate.
func (e *Evolution) Evaluated() []Ranked {
	return e.rank(e.population.Value().Members)
}

func (e *Evolution) rank(members []Member) []Ranked {
	ranked := Rank(members, e.excluded)
	for _, r := range ranked {
		e.arena.setFitness(r.Handle, r.Distance)
	}
	return ranked
}

func (e *Evolution) excluded(h Handle) bool {
	if e.st.hasHero && e.st.hero.Handle == h {
		return true
	}
	return e.arena.isDelegate(h)
}

func distances(ranked []Ranked) []float64 {
	out := make([]float64, len(ranked))
	for i, r := range ranked {
		out[i] = r.Distance
	}
	return out
}
