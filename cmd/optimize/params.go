// Package main provides CMA-ES optimization for evolution parameters.
package main

import (
	"github.com/pthm-cable/galapagotchi/config"
)

// ParamSpec defines a single optimizable parameter.
type ParamSpec struct {
	Name    string  // Human-readable name
	Path    string  // Config path for logging
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64 // Default value
}

// ParamVector holds the set of all optimizable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the standard set of optimizable parameters.
func NewParamVector() *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			// Generational
			{Name: "survival_rate", Path: "evolution.survival_rate", Min: 0.3, Max: 0.9, Default: 0.66},
			{Name: "mutation_count", Path: "evolution.mutation_count", Min: 1, Max: 12, Default: 5},
			{Name: "lifespan_increase", Path: "evolution.lifespan_increase", Min: 200, Max: 3000, Default: 1000},
			{Name: "normal_ticks", Path: "evolution.normal_ticks", Min: 10, Max: 120, Default: 40},
			// Body
			{Name: "steer_gain", Path: "body.steer_gain", Min: 0.01, Max: 0.3, Default: 0.08},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		clamped[i] = min(max(v[i], spec.Min), spec.Max)
	}
	return clamped
}

// ApplyToConfig applies parameter values to a Config struct.
// Order must match Specs order.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	clamped := pv.Clamp(values)

	cfg.Evolution.SurvivalRate = clamped[0]
	cfg.Evolution.MutationCount = int(clamped[1] + 0.5)
	cfg.Evolution.LifespanIncrease = int(clamped[2] + 0.5)
	cfg.Evolution.NormalTicks = int(clamped[3] + 0.5)
	cfg.Body.SteerGain = clamped[4]
	cfg.Recompute()
}

// ExtractFromConfig extracts current parameter values from a Config struct.
func (pv *ParamVector) ExtractFromConfig(cfg *config.Config) []float64 {
	return []float64{
		cfg.Evolution.SurvivalRate,
		float64(cfg.Evolution.MutationCount),
		float64(cfg.Evolution.LifespanIncrease),
		float64(cfg.Evolution.NormalTicks),
		cfg.Body.SteerGain,
	}
}
