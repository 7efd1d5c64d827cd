package game

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pthm-cable/galapagotchi/evolution"
	"github.com/pthm-cable/galapagotchi/store"
)

// storeTimeout bounds a single store call made from the frame loop.
const storeTimeout = 5 * time.Second

func (g *Game) openStore(path string) error {
	if path == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	s, err := store.Open(ctx, path)
	if err != nil {
		return fmt.Errorf("opening genome store: %w", err)
	}
	g.store = s
	return nil
}

func (g *Game) closeStore() {
	if g.store == nil {
		return
	}
	if err := g.store.Close(); err != nil {
		g.log.Error("failed to close genome store", "error", err)
	}
	g.store = nil
}

// loadJourney returns the journey stored for home, or fallback when the store
// is disabled or holds none.
func (g *Game) loadJourney(home string, fallback []string) ([]string, error) {
	if g.store == nil {
		return fallback, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	j, err := g.store.LoadJourney(ctx, home)
	switch {
	case err == nil:
		g.log.Info("journey_loaded", "home", home, "legs", j.Legs, "saved_at", j.SavedAt)
		return j.Legs, nil
	case errors.Is(err, store.ErrNotFound):
		return fallback, nil
	default:
		return nil, fmt.Errorf("loading journey: %w", err)
	}
}

// seedGenome gives the home its stored genome, or a random one when nothing
// was stored yet. A random seed is written back so later runs continue from it.
func (g *Game) seedGenome() error {
	home := g.island.Home()
	if g.store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()

		rec, err := g.store.Load(ctx, home.ID())
		switch {
		case err == nil:
			home.SetGenome(rec.Data)
			g.log.Info("genome_loaded", "home", home.ID(), "generation", rec.Generation, "saved_at", rec.SavedAt)
			return nil
		case !errors.Is(err, store.ErrNotFound):
			return fmt.Errorf("loading genome: %w", err)
		}
	}

	data := g.island.Genetics().Random(g.cfg.Body.StrandLength).Data()
	home.SetGenome(data)
	g.log.Info("genome_seeded", "home", home.ID(), "bytes", len(data))

	if g.store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		if err := g.store.Save(ctx, home.ID(), 0, data); err != nil {
			return fmt.Errorf("saving seed genome: %w", err)
		}
	}
	return nil
}

// saveGenome is the engine's save callback. The home keeps the genome in
// memory and the store, when present, records it.
func (g *Game) saveGenome(data evolution.GenomeData) {
	home := g.island.Home()
	home.SetGenome(data)
	if g.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if err := g.store.Save(ctx, home.ID(), g.engine.Generation(), data); err != nil {
		g.log.Error("failed to save genome", "home", home.ID(), "error", err)
	}
}
