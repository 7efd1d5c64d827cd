package observe

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pthm-cable/galapagotchi/config"
	"github.com/pthm-cable/galapagotchi/evolution"
	"github.com/pthm-cable/galapagotchi/sim"
	"github.com/pthm-cable/galapagotchi/telemetry"
)

func init() {
	config.MustInit("")
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readSnapshot(t *testing.T, conn *websocket.Conn) telemetry.PopulationSnapshot {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var snap telemetry.PopulationSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return snap
}

func TestHubReplaysLatestThenStreams(t *testing.T) {
	hub := NewHub(config.ObserveConfig{ClientBuffer: 4}, quietLogger())
	srv := httptest.NewServer(hub.Handler())
	defer srv.Close()

	if err := hub.Publish(&telemetry.PopulationSnapshot{Generation: 1}); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	conn := dial(t, srv)
	// Receiving the replay means the client is registered.
	if got := readSnapshot(t, conn); got.Generation != 1 {
		t.Fatalf("first snapshot generation = %d, want 1", got.Generation)
	}

	hub.Publish(&telemetry.PopulationSnapshot{Generation: 2})
	if got := readSnapshot(t, conn); got.Generation != 2 {
		t.Errorf("second snapshot generation = %d, want 2", got.Generation)
	}
	if hub.Clients() != 1 {
		t.Errorf("Clients() = %d, want 1", hub.Clients())
	}
}

func TestHubDropsForSlowClient(t *testing.T) {
	hub := NewHub(config.ObserveConfig{ClientBuffer: 1}, quietLogger())
	c := &client{send: make(chan []byte, hub.buffer)}
	hub.clients[c] = struct{}{}

	for gen := range 3 {
		if err := hub.Publish(&telemetry.PopulationSnapshot{Generation: gen}); err != nil {
			t.Fatalf("Publish: %v", err)
		}
	}
	if c.dropped != 2 {
		t.Errorf("dropped = %d, want 2", c.dropped)
	}
	if len(c.send) != 1 {
		t.Errorf("queued = %d, want 1", len(c.send))
	}
}

func TestSnapshotEndpoint(t *testing.T) {
	hub := NewHub(config.ObserveConfig{}, quietLogger())
	srv := httptest.NewServer(hub.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/snapshot")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status before publish = %d", resp.StatusCode)
	}

	hub.Publish(&telemetry.PopulationSnapshot{Generation: 7})
	resp, err = http.Get(srv.URL + "/snapshot")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	var snap telemetry.PopulationSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.Generation != 7 {
		t.Errorf("generation = %d, want 7", snap.Generation)
	}
}

func TestAttachFollowsEngine(t *testing.T) {
	cfg := config.Cfg()
	isl, err := sim.NewIsland(cfg.Island, cfg.Body, 3)
	if err != nil {
		t.Fatalf("NewIsland: %v", err)
	}
	isl.Home().SetGenome(isl.Genetics().Random(cfg.Body.StrandLength).Data())
	engine, err := evolution.New(isl.Home(), isl.Journey(), evolution.Options{
		Config: cfg.Evolution,
		Parse:  isl.Genetics().Parse,
		Logger: quietLogger(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer engine.Recycle()

	hub := NewHub(cfg.Observe, quietLogger())
	detach := hub.Attach(engine)
	defer detach()

	var snap telemetry.PopulationSnapshot
	if err := json.Unmarshal(hub.Latest(), &snap); err != nil {
		t.Fatalf("decode latest: %v", err)
	}
	if len(snap.Evolvers) != cfg.Evolution.MaxPopulation || snap.Phase != "running" {
		t.Errorf("latest = %d evolvers in %s", len(snap.Evolvers), snap.Phase)
	}
}

func TestCloseDisconnectsClients(t *testing.T) {
	hub := NewHub(config.ObserveConfig{ClientBuffer: 2}, quietLogger())
	srv := httptest.NewServer(hub.Handler())
	defer srv.Close()

	hub.Publish(&telemetry.PopulationSnapshot{})
	conn := dial(t, srv)
	readSnapshot(t, conn)

	hub.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Errorf("read after close = %v, want normal closure", err)
	}
}
