package main

import (
	"math"
	"testing"

	"github.com/pthm-cable/galapagotchi/config"
)

func TestParamVectorRoundTrip(t *testing.T) {
	pv := NewParamVector()
	def := pv.DefaultVector()
	back := pv.Denormalize(pv.Normalize(def))
	for i := range def {
		if math.Abs(back[i]-def[i]) > 1e-9 {
			t.Errorf("%s: %v != %v", pv.Specs[i].Name, back[i], def[i])
		}
	}
}

func TestApplyToConfigClampsAndRounds(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	pv := NewParamVector()
	pv.ApplyToConfig(cfg, []float64{2, 4.6, 10, 40.4, 0.1})

	if cfg.Evolution.SurvivalRate != 0.9 {
		t.Errorf("survival_rate = %v, want clamped 0.9", cfg.Evolution.SurvivalRate)
	}
	if cfg.Evolution.MutationCount != 5 {
		t.Errorf("mutation_count = %d, want 5", cfg.Evolution.MutationCount)
	}
	if cfg.Evolution.LifespanIncrease != 200 {
		t.Errorf("lifespan_increase = %d, want clamped 200", cfg.Evolution.LifespanIncrease)
	}
	if cfg.Evolution.NormalTicks != 40 {
		t.Errorf("normal_ticks = %d, want 40", cfg.Evolution.NormalTicks)
	}
	if err := cfg.Evolution.Validate(); err != nil {
		t.Errorf("applied config invalid: %v", err)
	}

	got := pv.ExtractFromConfig(cfg)
	if got[4] != 0.1 {
		t.Errorf("extracted steer_gain = %v", got[4])
	}
}
