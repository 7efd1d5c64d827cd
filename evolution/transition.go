package evolution

import (
	"math"

	"github.com/pthm-cable/galapagotchi/components"
)

// enter switches to next. Snapshots of a transitional phase are published
// after the switch so observers see the flag set; the snapshot of a new
// generation is published before the flag clears so Iterate cannot run
// against a half-built population. Momentary phases hand over immediately and
// settling phases arm the settle timer.
func (e *Evolution) enter(next state, snapshot []Member, publish bool) {
	for {
		if next.phase == PhaseRunning || next.phase == PhaseCompleted {
			if publish {
				e.publish(next.phase, snapshot)
			}
			e.st = next
		} else {
			e.st = next
			if publish {
				e.publish(next.phase, snapshot)
			}
		}
		e.phases.Publish(next.phase)

		if next.phase == PhaseRunning || next.phase == PhaseCompleted {
			e.emit(next.report)
			return
		}
		if next.phase.settles() {
			e.timer = e.timers.AfterFunc(e.cfg.SettleDelay(), e.settle)
			return
		}
		next, snapshot, publish = e.advance(e.st)
	}
}

func (e *Evolution) settle() {
	e.timer = nil
	next, snapshot, publish := e.advance(e.st)
	e.enter(next, snapshot, publish)
}

func (e *Evolution) emit(r GenerationReport) {
	if e.report != nil {
		e.report(r)
	}
}

// advance performs the work that ends st and returns its successor.
func (e *Evolution) advance(st state) (state, []Member, bool) {
	switch st.phase {
	case PhaseHeroFreeze:
		return e.releaseHero(st), nil, false
	case PhaseHeroRebirth:
		return e.rebirthFromHero(st)
	case PhaseCull:
		return e.breed(st)
	case PhaseBreed:
		return e.retireSurvivors(st), nil, false
	case PhaseRebirth:
		return e.rebirthSurvivors(st)
	}
	return st, nil, false
}

// beginHero freezes the population behind hero and moves the journey on.
func (e *Evolution) beginHero(members []Member, hero Member) {
	report := GenerationReport{
		Generation: e.generation,
		Cause:      CauseHero,
		Leg:        e.legNumber,
		Population: len(members),
		HeroIndex:  hero.Evolver.Index(),
	}

	next, ok := e.leg.NextLeg()
	if !ok {
		report.Cause = CauseComplete
		report.Next = len(members)
		report.MinAge, report.MaxAge = e.minAge, e.maxAge
		e.log.Warn("evolution_complete",
			"generation", e.generation,
			"hero", hero.Evolver.Index(),
			"leg", e.legNumber,
		)
		e.enter(state{phase: PhaseCompleted, hero: hero, hasHero: true, report: report}, nil, false)
		return
	}

	e.leg = next
	e.legNumber++
	hero.Evolver.SetLeg(next)
	e.minAge = hero.Evolver.Age()
	e.maxAge = e.minAge + e.cfg.MinLifespan
	report.MinAge, report.MaxAge = e.minAge, e.maxAge

	e.log.Info("generation_hero",
		"generation", e.generation,
		"hero", hero.Evolver.Index(),
		"leg", e.legNumber,
		"destination", next.Destination().ID(),
		"min_age", e.minAge,
		"max_age", e.maxAge,
	)
	e.enter(state{
		phase:   PhaseHeroFreeze,
		hero:    hero,
		hasHero: true,
		prior:   members,
		report:  report,
	}, []Member{hero}, true)
}

// releaseHero recycles everyone but the hero and makes it the creation
// delegate. An earlier delegate keeps its tag and stays alive until the
// engine is recycled because siblings created through it may still share its
// substrate.
func (e *Evolution) releaseHero(st state) state {
	for _, m := range st.prior {
		if m.Handle != st.hero.Handle {
			e.arena.recycle(m.Handle)
		}
	}
	hero := st.hero
	e.delegate = &hero
	e.arena.markDelegate(hero.Handle)

	return state{phase: PhaseHeroRebirth, hero: st.hero, hasHero: true, report: st.report}
}

func (e *Evolution) rebirthFromHero(st state) (state, []Member, bool) {
	report := st.report
	var members []Member
	genome, err := e.parse(st.hero.Evolver.GenomeData())
	if err != nil {
		e.log.Error("hero_genome_invalid", "hero", st.hero.Evolver.Index(), "error", err)
	} else {
		members = e.createPopulation(genome, e.generation+1)
	}
	report.Next = len(members)
	e.generation++
	return state{phase: PhaseRunning, report: report}, members, true
}

// beginSurvival culls the ranked population. Survivors are shown while the
// dead are recycled at once.
func (e *Evolution) beginSurvival(members []Member) {
	ranked := e.rank(members)
	cut := int(math.Ceil(float64(len(ranked)) * e.cfg.SurvivalRate))
	cut = min(cut, len(ranked))

	survivors := make([]Member, cut)
	for i, r := range ranked[:cut] {
		survivors[i] = r.Member
	}
	dead := ranked[cut:]

	report := GenerationReport{
		Generation: e.generation,
		Cause:      CauseSurvival,
		Leg:        e.legNumber,
		Population: len(members),
		Survivors:  len(survivors),
		Dead:       len(dead),
		Distances:  distances(ranked),
		HeroIndex:  -1,
		MinAge:     e.minAge,
		MaxAge:     e.maxAge,
	}
	e.enter(state{
		phase:     PhaseCull,
		survivors: survivors,
		dead:      dead,
		report:    report,
	}, survivors, true)

	for _, d := range dead {
		e.arena.recycle(d.Handle)
	}
}

// breed creates one offspring per dead slot from uniformly chosen survivors.
// Offspring stay hidden until the survivors are reborn.
func (e *Evolution) breed(st state) (state, []Member, bool) {
	next := make([]Member, 0, len(st.dead)+len(st.survivors))
	if len(st.survivors) > 0 {
		for range st.dead {
			parent := st.survivors[e.rng.Intn(len(st.survivors))]
			child, ok := e.offspring(parent)
			if !ok {
				continue
			}
			next = append(next, child)
		}
	}
	report := st.report
	report.Offspring = len(next)
	return state{
		phase:     PhaseBreed,
		survivors: st.survivors,
		next:      next,
		report:    report,
	}, []Member{}, true
}

func (e *Evolution) offspring(parent Member) (Member, bool) {
	genome, err := e.parse(parent.Evolver.OffspringGenomeData())
	if err != nil {
		e.log.Warn("offspring_genome_invalid", "parent", parent.Evolver.Index(), "error", err)
		return Member{}, false
	}
	return e.spawn(genome, components.Lineage{
		Generation:  e.generation + 1,
		Origin:      components.OriginOffspring,
		ParentIndex: parent.Evolver.Index(),
		Leg:         e.legNumber,
	})
}

// retireSurvivors captures every survivor's genome and releases its body.
func (e *Evolution) retireSurvivors(st state) state {
	reborn := make([]rebirth, len(st.survivors))
	for i, s := range st.survivors {
		reborn[i] = rebirth{parent: s.Evolver.Index(), data: s.Evolver.GenomeData()}
		e.arena.recycle(s.Handle)
	}
	return state{phase: PhaseRebirth, next: st.next, reborn: reborn, report: st.report}
}

func (e *Evolution) rebirthSurvivors(st state) (state, []Member, bool) {
	next := st.next
	reborn := 0
	for _, r := range st.reborn {
		genome, err := e.parse(r.data)
		if err != nil {
			e.log.Warn("survivor_genome_invalid", "survivor", r.parent, "error", err)
			continue
		}
		m, ok := e.spawn(genome, components.Lineage{
			Generation:  e.generation + 1,
			Origin:      components.OriginReborn,
			ParentIndex: r.parent,
			Leg:         e.legNumber,
		})
		if !ok {
			continue
		}
		next = append(next, m)
		reborn++
	}

	report := st.report
	report.Reborn = reborn
	report.Next = len(next)
	e.log.Info("generation_survival",
		"generation", report.Generation,
		"survivors", report.Survivors,
		"dead", report.Dead,
		"offspring", report.Offspring,
		"reborn", report.Reborn,
		"min_age", report.MinAge,
		"max_age", report.MaxAge,
	)
	e.generation++
	return state{phase: PhaseRunning, report: report}, next, true
}

// createPopulation spawns siblings until creation fails or the population is
// full. Each sibling's genome is mutated toward the direction the previous
// sibling was created facing.
func (e *Evolution) createPopulation(genome Genome, generation int) []Member {
	var members []Member
	for len(members) < e.cfg.MaxPopulation {
		m, ok := e.spawn(genome, components.Lineage{
			Generation:  generation,
			Origin:      components.OriginSeeded,
			ParentIndex: -1,
			Leg:         e.legNumber,
		})
		if !ok {
			break
		}
		members = append(members, m)
		genome = genome.WithMutatedBehavior(m.Evolver.Direction(), e.cfg.MutationCount)
	}
	return members
}

// spawn creates an evolver through the creation delegate when one exists,
// otherwise through the home, and binds it to the current leg.
func (e *Evolution) spawn(genome Genome, lineage components.Lineage) (Member, bool) {
	var (
		ev Evolver
		ok bool
	)
	if e.delegate != nil {
		ev, ok = e.delegate.Evolver.CreateSibling(genome)
	} else {
		ev, ok = e.home.CreateEvolver(genome, e.direction)
	}
	if !ok {
		return Member{}, false
	}
	ev.SetLeg(e.leg)
	return e.arena.add(ev, lineage), true
}
