// Package observe streams population snapshots to websocket clients.
package observe

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pthm-cable/galapagotchi/config"
	"github.com/pthm-cable/galapagotchi/evolution"
	"github.com/pthm-cable/galapagotchi/telemetry"
)

const (
	writeWait       = 10 * time.Second
	shutdownTimeout = 5 * time.Second
)

type client struct {
	conn    *websocket.Conn
	send    chan []byte
	dropped int
}

// Hub fans encoded snapshots out to connected clients. Each client has a
// bounded queue; a client that falls behind loses snapshots rather than
// stalling the engine. New clients start with the latest snapshot.
type Hub struct {
	log      *slog.Logger
	upgrader websocket.Upgrader
	buffer   int

	mu      sync.Mutex
	clients map[*client]struct{}
	latest  []byte
}

// NewHub creates a hub with the given per-client buffer.
func NewHub(cfg config.ObserveConfig, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	buffer := cfg.ClientBuffer
	if buffer < 1 {
		buffer = 1
	}
	return &Hub{
		log: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		buffer:  buffer,
		clients: make(map[*client]struct{}),
	}
}

// Attach publishes every population snapshot of engine until the returned
// function is called. The current snapshot is published immediately.
func (h *Hub) Attach(engine *evolution.Evolution) (detach func()) {
	return engine.Population().Subscribe(func(pop evolution.Population) {
		snap := telemetry.NewPopulationSnapshot(engine, pop)
		if err := h.Publish(&snap); err != nil {
			h.log.Error("snapshot_encode_failed", "error", err)
		}
	})
}

// Publish encodes snap and queues it for every client.
func (h *Hub) Publish(snap *telemetry.PopulationSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.latest = data
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			c.dropped++
		}
	}
	return nil
}

// Latest returns the most recent encoded snapshot, or nil before the first.
func (h *Hub) Latest() []byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.latest
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) register(conn *websocket.Conn) *client {
	c := &client{conn: conn, send: make(chan []byte, h.buffer)}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.latest != nil {
		c.send <- h.latest
	}
	h.clients[c] = struct{}{}
	return c
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	if c.dropped > 0 {
		h.log.Warn("observer_dropped_snapshots", "remote", c.conn.RemoteAddr().String(), "dropped", c.dropped)
	}
}

// ServeHTTP upgrades the request to a websocket and streams snapshots until
// the client goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("upgrade_failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	c := h.register(conn)
	h.log.Info("observer_connected", "remote", r.RemoteAddr)

	go h.writeLoop(c)

	// Clients never send anything meaningful; reading detects disconnects.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.unregister(c)
	h.log.Info("observer_disconnected", "remote", r.RemoteAddr)
}

func (h *Hub) writeLoop(c *client) {
	defer c.conn.Close()
	for data := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.unregister(c)
			for range c.send {
			}
			return
		}
	}
	message := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	c.conn.WriteControl(websocket.CloseMessage, message, time.Now().Add(writeWait))
}

// serveLatest answers plain HTTP requests with the latest snapshot.
func (h *Hub) serveLatest(w http.ResponseWriter, r *http.Request) {
	data := h.Latest()
	if data == nil {
		http.Error(w, "no snapshot yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

// Handler returns the routes served by the hub: /ws for the stream and
// /snapshot for the latest snapshot.
func (h *Hub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/ws", h)
	mux.HandleFunc("/snapshot", h.serveLatest)
	return mux
}

// Serve listens on addr until ctx is cancelled, then closes every client.
func (h *Hub) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: h.Handler()}
	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()
	h.log.Info("observer_listening", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	h.Close()
	if errors.Is(err, http.ErrServerClosed) {
		err = nil
	}
	return err
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()
	for _, c := range clients {
		h.unregister(c)
	}
}
