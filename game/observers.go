package game

import (
	"context"
	"errors"
	"net/http"

	"github.com/pthm-cable/galapagotchi/evolution"
	"github.com/pthm-cable/galapagotchi/observe"
	"github.com/pthm-cable/galapagotchi/telemetry"
)

// startObserver serves population snapshots on addr. Transition snapshots
// are pushed as the engine publishes them; publishMotion adds one per frame
// while the population moves.
func (g *Game) startObserver(addr string) {
	if addr == "" {
		return
	}
	g.hub = observe.NewHub(g.cfg.Observe, g.log)
	g.detachHub = g.hub.Attach(g.engine)

	ctx, cancel := context.WithCancel(context.Background())
	g.stopObserver = cancel
	g.observerDone.Add(1)
	go func() {
		defer g.observerDone.Done()
		if err := g.hub.Serve(ctx, addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.log.Error("observer stopped", "addr", addr, "error", err)
		}
	}()
}

// publishMotion sends the moving population to connected observers.
func (g *Game) publishMotion() {
	if g.hub == nil || g.hub.Clients() == 0 || g.engine.Phase() != evolution.PhaseRunning {
		return
	}
	snap := telemetry.NewPopulationSnapshot(g.engine, g.engine.Population().Value())
	if err := g.hub.Publish(&snap); err != nil {
		g.log.Error("failed to publish snapshot", "error", err)
	}
}

func (g *Game) stopObserving() {
	if g.hub == nil {
		return
	}
	g.detachHub()
	g.stopObserver()
	g.observerDone.Wait()
	g.hub = nil
}
