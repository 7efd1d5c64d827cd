package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/galapagotchi/evolution"
)

// GenerationStats holds the statistics of one completed generation.
type GenerationStats struct {
	Generation int     `csv:"generation"`
	Frame      int64   `csv:"frame"`
	Frames     int64   `csv:"frames"` // Frames the generation lasted
	Iterations int64   `csv:"iterations"`
	ElapsedSec float64 `csv:"elapsed_sec"` // Clock time since the previous generation
	Cause      string  `csv:"cause"`
	Leg        int     `csv:"leg"`

	Population int `csv:"population"`
	Survivors  int `csv:"survivors"`
	Dead       int `csv:"dead"`
	Offspring  int `csv:"offspring"`
	Reborn     int `csv:"reborn"`
	Next       int `csv:"next"`
	Hero       int `csv:"hero"`

	MinAge int `csv:"min_age"`
	MaxAge int `csv:"max_age"`

	// Distance from the leg destination over ranked evolvers
	DistBest float64 `csv:"dist_best"`
	DistMean float64 `csv:"dist_mean"`
	DistStd  float64 `csv:"dist_std"`
	DistP10  float64 `csv:"dist_p10"`
	DistP50  float64 `csv:"dist_p50"`
	DistP90  float64 `csv:"dist_p90"`
}

// ComputeDistanceStats returns the minimum, mean, sample standard deviation
// and percentiles of distances. All values are zero for an empty slice.
func ComputeDistanceStats(values []float64) (best, mean, std, p10, p50, p90 float64) {
	n := len(values)
	if n == 0 {
		return 0, 0, 0, 0, 0, 0
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	if n > 1 {
		mean, std = stat.MeanStdDev(sorted, nil)
	} else {
		mean = sorted[0]
	}
	p10 = stat.Quantile(0.10, stat.Empirical, sorted, nil)
	p50 = stat.Quantile(0.50, stat.Empirical, sorted, nil)
	p90 = stat.Quantile(0.90, stat.Empirical, sorted, nil)

	return sorted[0], mean, std, p10, p50, p90
}

// NewGenerationStats flattens a generation report.
func NewGenerationStats(r evolution.GenerationReport) GenerationStats {
	best, mean, std, p10, p50, p90 := ComputeDistanceStats(r.Distances)
	return GenerationStats{
		Generation: r.Generation,
		Cause:      r.Cause.String(),
		Leg:        r.Leg,
		Population: r.Population,
		Survivors:  r.Survivors,
		Dead:       r.Dead,
		Offspring:  r.Offspring,
		Reborn:     r.Reborn,
		Next:       r.Next,
		Hero:       r.HeroIndex,
		MinAge:     r.MinAge,
		MaxAge:     r.MaxAge,
		DistBest:   best,
		DistMean:   mean,
		DistStd:    std,
		DistP10:    p10,
		DistP50:    p50,
		DistP90:    p90,
	}
}

// Ranked reports whether the generation ended in a ranking.
func (s GenerationStats) Ranked() bool {
	return s.Cause == evolution.CauseSurvival.String() && s.Population > 0
}

// LogValue implements slog.LogValuer for structured logging.
func (s GenerationStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("generation", s.Generation),
		slog.Int64("frame", s.Frame),
		slog.Int64("frames", s.Frames),
		slog.String("cause", s.Cause),
		slog.Int("leg", s.Leg),
		slog.Int("population", s.Population),
		slog.Int("next", s.Next),
		slog.Int("max_age", s.MaxAge),
		slog.Float64("dist_best", s.DistBest),
		slog.Float64("dist_mean", s.DistMean),
		slog.Float64("dist_p50", s.DistP50),
	)
}

// LogStats logs the generation stats using slog.
func (s GenerationStats) LogStats() {
	slog.Info("stats",
		"generation", s.Generation,
		"frame", s.Frame,
		"frames", s.Frames,
		"elapsed_sec", s.ElapsedSec,
		"cause", s.Cause,
		"leg", s.Leg,
		"population", s.Population,
		"survivors", s.Survivors,
		"dead", s.Dead,
		"offspring", s.Offspring,
		"reborn", s.Reborn,
		"next", s.Next,
		"min_age", s.MinAge,
		"max_age", s.MaxAge,
		"dist_best", s.DistBest,
		"dist_mean", s.DistMean,
		"dist_std", s.DistStd,
		"dist_p10", s.DistP10,
		"dist_p50", s.DistP50,
		"dist_p90", s.DistP90,
	)
}
