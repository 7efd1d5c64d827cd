// Package main provides CMA-ES optimization for finding evolution parameters
// that get creatures furthest along their journey.
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/gocarina/gocsv"
	"gonum.org/v1/gonum/optimize"

	"github.com/pthm-cable/galapagotchi/config"
)

// formatDuration formats a duration as HH:MM:SS or MM:SS for shorter durations.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	return fmt.Sprintf("%dm%02ds", m, s)
}

// evalRecord is one row of optimize_log.csv. Parameter columns follow
// NewParamVector order.
type evalRecord struct {
	Eval             int     `csv:"eval"`
	Fitness          float64 `csv:"fitness"`
	Legs             float64 `csv:"legs"`
	SurvivalRate     float64 `csv:"survival_rate"`
	MutationCount    float64 `csv:"mutation_count"`
	LifespanIncrease float64 `csv:"lifespan_increase"`
	NormalTicks      float64 `csv:"normal_ticks"`
	SteerGain        float64 `csv:"steer_gain"`
}

func newEvalRecord(eval int, fitness, legs float64, p []float64) evalRecord {
	return evalRecord{
		Eval:             eval,
		Fitness:          fitness,
		Legs:             legs,
		SurvivalRate:     p[0],
		MutationCount:    p[1],
		LifespanIncrease: p[2],
		NormalTicks:      p[3],
		SteerGain:        p[4],
	}
}

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Base config YAML file (empty = use defaults)")
	maxFrames := flag.Int("max-frames", 200000, "Maximum frames per session (cap)")
	generations := flag.Int("generations", 30, "Generations per session")
	seeds := flag.Int("seeds", 3, "Number of seeds per evaluation")
	maxEvals := flag.Int("max-evals", 200, "Maximum number of evaluations")
	population := flag.Int("population", 0, "CMA-ES population size (0 = auto)")
	outputDir := flag.String("output", "", "Output directory for results")
	flag.Parse()

	if *outputDir == "" {
		log.Fatal("--output is required")
	}
	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		log.Fatalf("failed to create output directory: %v", err)
	}

	if err := config.Init(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	baseCfg := config.Cfg()

	params := NewParamVector()

	// Generate seeds for evaluation
	evalSeeds := make([]int64, *seeds)
	for i := range evalSeeds {
		evalSeeds[i] = int64(i*1000 + 42)
	}

	evaluator := NewFitnessEvaluator(params, *maxFrames, *generations, evalSeeds, baseCfg)

	dim := params.Dim()
	initX := params.Normalize(params.ExtractFromConfig(baseCfg))

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			return evaluator.Evaluate(params.Denormalize(x))
		},
	}

	settings := &optimize.Settings{
		FuncEvaluations: *maxEvals,
		Concurrent:      0, // Sequential evaluation; seeds already run in parallel
	}

	popSize := *population
	if popSize == 0 {
		popSize = 4 + int(3.0*float64(dim)/2.0)
	}

	method := &optimize.CmaEsChol{
		InitStepSize: 0.3,
		Population:   popSize,
	}

	logPath := filepath.Join(*outputDir, "optimize_log.csv")
	logFile, err := os.Create(logPath)
	if err != nil {
		log.Fatalf("failed to create log file: %v", err)
	}
	defer logFile.Close()

	evalCount := 0
	bestFitness := 1e9
	var bestParams []float64
	startTime := time.Now()

	// Wrap the function to log evaluations
	originalFunc := problem.Func
	problem.Func = func(x []float64) float64 {
		fitness := originalFunc(x)
		evalCount++

		// Log the clamped values, which are the ones actually used
		clamped := params.Clamp(params.Denormalize(x))
		if fitness < bestFitness {
			bestFitness = fitness
			bestParams = clamped
		}

		legs := evaluator.LastLegs()
		row := []evalRecord{newEvalRecord(evalCount, fitness, legs, clamped)}
		if evalCount == 1 {
			err = gocsv.Marshal(row, logFile)
		} else {
			err = gocsv.MarshalWithoutHeaders(row, logFile)
		}
		if err != nil {
			log.Printf("failed to log evaluation: %v", err)
		}

		elapsed := time.Since(startTime)
		avgPerEval := elapsed / time.Duration(evalCount)
		remaining := time.Duration(*maxEvals-evalCount) * avgPerEval

		fmt.Printf("Eval %d/%d: fitness=%.2f legs=%.2f (best=%.2f) | elapsed: %s, ETA: %s\n",
			evalCount, *maxEvals, fitness, legs, bestFitness,
			formatDuration(elapsed), formatDuration(remaining))

		return fitness
	}

	fmt.Printf("Starting CMA-ES optimization with %d parameters, population=%d, max_evals=%d\n",
		dim, popSize, *maxEvals)
	fmt.Printf("Seeds per evaluation: %d, generations per session: %d, frame cap: %d\n",
		*seeds, *generations, *maxFrames)

	result, err := optimize.Minimize(problem, initX, settings, method)
	if err != nil {
		log.Printf("optimization ended: %v", err)
	}

	// Use best params found (may be from any evaluation, not just final)
	if bestParams == nil && result != nil {
		bestParams = params.Clamp(params.Denormalize(result.X))
	}
	if bestParams == nil {
		log.Fatal("no evaluation completed")
	}

	totalTime := time.Since(startTime)
	fmt.Printf("\nOptimization complete after %d evaluations in %s\n", evalCount, formatDuration(totalTime))
	fmt.Printf("Best fitness: %.2f\n", bestFitness)

	fmt.Println("\nBest parameters:")
	for i, spec := range params.Specs {
		fmt.Printf("  %s: %.6f\n", spec.Name, bestParams[i])
	}

	bestCfg := baseCfg.Clone()
	params.ApplyToConfig(bestCfg, bestParams)

	configOutPath := filepath.Join(*outputDir, "best_config.yaml")
	if err := bestCfg.WriteYAML(configOutPath); err != nil {
		log.Printf("failed to write best config: %v", err)
	} else {
		fmt.Printf("\nBest config saved to: %s\n", configOutPath)
	}

	if genome := evaluator.BestGenome(); genome != nil {
		genomePath := filepath.Join(*outputDir, "best_genome.hex")
		if err := os.WriteFile(genomePath, []byte(hex.EncodeToString(genome)+"\n"), 0644); err != nil {
			log.Printf("failed to write best genome: %v", err)
		} else {
			fmt.Printf("Best genome saved to: %s\n", genomePath)
		}
	}
}
