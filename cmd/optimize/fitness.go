package main

import (
	"io"
	"log/slog"
	"math"
	"sync"

	"github.com/pthm-cable/galapagotchi/config"
	"github.com/pthm-cable/galapagotchi/evolution"
	"github.com/pthm-cable/galapagotchi/game"
	"github.com/pthm-cable/galapagotchi/telemetry"
)

// FitnessEvaluator runs headless sessions and computes fitness.
type FitnessEvaluator struct {
	params      *ParamVector
	maxFrames   int
	generations int
	seeds       []int64
	baseConfig  *config.Config
	logger      *slog.Logger

	// Best run tracking
	mu          sync.Mutex
	bestFitness float64
	bestGenome  evolution.GenomeData
	lastLegs    float64 // mean legs reached in the most recent Evaluate call
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, maxFrames, generations int, seeds []int64, baseCfg *config.Config) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:      params,
		maxFrames:   maxFrames,
		generations: generations,
		seeds:       seeds,
		baseConfig:  baseCfg,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		bestFitness: math.Inf(1),
	}
}

// BestGenome returns the home genome of the best seed of the best evaluation.
func (fe *FitnessEvaluator) BestGenome() evolution.GenomeData {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.bestGenome
}

// LastLegs returns the mean number of legs reached in the most recent evaluation.
func (fe *FitnessEvaluator) LastLegs() float64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastLegs
}

// runResult holds the results from a single session.
type runResult struct {
	stats  []telemetry.GenerationStats // collected via StatsCallback each generation
	legs   int
	genome evolution.GenomeData
}

// seedResult holds the result from one seed evaluation.
type seedResult struct {
	fitness float64
	legs    int
	genome  evolution.GenomeData
}

// Evaluate computes fitness for a parameter vector (lower = better).
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	results := make([]seedResult, len(fe.seeds))
	var wg sync.WaitGroup

	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			result := fe.runSession(x, s)
			results[idx] = seedResult{
				fitness: fe.computeFitness(result),
				legs:    result.legs,
				genome:  result.genome,
			}
		}(i, seed)
	}
	wg.Wait()

	var totalFitness float64
	var totalLegs int
	bestSeedFitness := math.Inf(1)
	var bestSeedGenome evolution.GenomeData
	for _, r := range results {
		totalFitness += r.fitness
		totalLegs += r.legs
		if r.fitness < bestSeedFitness {
			bestSeedFitness = r.fitness
			bestSeedGenome = r.genome
		}
	}

	n := float64(len(fe.seeds))
	avgFitness := totalFitness / n

	fe.mu.Lock()
	if avgFitness < fe.bestFitness {
		fe.bestFitness = avgFitness
		fe.bestGenome = bestSeedGenome
	}
	fe.lastLegs = float64(totalLegs) / n
	fe.mu.Unlock()

	return avgFitness
}

// runSession runs one headless session until enough generations completed,
// the journey finished or maxFrames passed.
func (fe *FitnessEvaluator) runSession(x []float64, seed int64) *runResult {
	cfg := fe.baseConfig.Clone()
	fe.params.ApplyToConfig(cfg, x)
	// Sessions never touch the user's store or outputs
	cfg.Store.Path = ""
	cfg.Telemetry.OutputDir = ""
	cfg.Telemetry.SnapshotDir = ""
	cfg.Observe.Listen = ""

	result := &runResult{}
	g, err := game.NewGameWithOptions(game.Options{
		Seed:   seed,
		Config: cfg,
		Logger: fe.logger,
		StatsCallback: func(s telemetry.GenerationStats) {
			result.stats = append(result.stats, s)
		},
	})
	if err != nil {
		slog.Error("session failed", "seed", seed, "error", err)
		return result
	}

	for g.Tick() < int64(fe.maxFrames) && len(result.stats) < fe.generations && !g.Done() {
		g.Update()
	}
	result.legs = g.Engine().LegNumber()
	if g.Completed() {
		result.legs++
	}
	result.genome, _ = g.Island().Home().CurrentGenome()
	g.Unload()
	return result
}

// legBonus is the distance credited for every leg reached. It exceeds any
// distance achievable within one leg.
const legBonus = 1000.0

// computeFitness calculates the scalar fitness (lower = better): the mean
// best distance over the ranked generations of the last leg, minus a bonus
// per leg reached.
func (fe *FitnessEvaluator) computeFitness(r *runResult) float64 {
	var sum float64
	var n int
	for _, s := range r.stats {
		if !s.Ranked() || s.Leg != r.lastLeg() {
			continue
		}
		sum += s.DistBest
		n++
	}
	mean := legBonus
	if n > 0 {
		mean = sum / float64(n)
	}
	return mean - legBonus*float64(r.legs)
}

// lastLeg returns the leg in force at the last reported generation.
func (r *runResult) lastLeg() int {
	if len(r.stats) == 0 {
		return 0
	}
	return r.stats[len(r.stats)-1].Leg
}
