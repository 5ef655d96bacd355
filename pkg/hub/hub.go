package hub

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.uber.org/atomic"
)

// Config controls queueing and keepalive for every client of a hub.
type Config struct {
	QueueSize  int           // broadcasts waiting for the hub loop
	ClientBuf  int           // frames queued per client before the oldest is skipped
	WriteWait  time.Duration // per-write deadline
	PongWait   time.Duration // read deadline refreshed by each pong
	PingPeriod time.Duration // must be less than PongWait
}

// DefaultConfig suits a dashboard refreshed at camera rate.
func DefaultConfig() Config {
	return Config{
		QueueSize:  256,
		ClientBuf:  8,
		WriteWait:  10 * time.Second,
		PongWait:   60 * time.Second,
		PingPeriod: 54 * time.Second,
	}
}

// Stats are hub-wide counters.
type Stats struct {
	Clients int    `json:"clients"`
	Sent    uint64 `json:"sent"`
	Skipped uint64 `json:"skipped"` // stale frames discarded for slow clients
	Dropped uint64 `json:"dropped"` // broadcasts lost to a full hub queue
}

// Hub tracks connected clients and broadcasts to them.
type Hub struct {
	name   string
	config Config
	logger *slog.Logger

	clients    map[*Client]struct{}
	broadcast  chan Message
	register   chan *Client
	unregister chan *Client
	done       chan struct{} // closed when Run returns

	mu sync.RWMutex // guards clients for readers outside the loop

	running atomic.Bool
	sent    atomic.Uint64
	skipped atomic.Uint64
	dropped atomic.Uint64
}

// New creates a hub with DefaultConfig.
func New(name string, logger *slog.Logger) *Hub {
	return NewWithConfig(name, DefaultConfig(), logger)
}

// NewWithConfig creates a hub. Zero fields take their defaults.
func NewWithConfig(name string, cfg Config, logger *slog.Logger) *Hub {
	def := DefaultConfig()
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	if cfg.ClientBuf <= 0 {
		cfg.ClientBuf = def.ClientBuf
	}
	if cfg.WriteWait <= 0 {
		cfg.WriteWait = def.WriteWait
	}
	if cfg.PongWait <= 0 {
		cfg.PongWait = def.PongWait
	}
	if cfg.PingPeriod <= 0 || cfg.PingPeriod >= cfg.PongWait {
		cfg.PingPeriod = cfg.PongWait * 9 / 10
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Hub{
		name:       name,
		config:     cfg,
		logger:     logger.With("component", "hub", "hub", name),
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan Message, cfg.QueueSize),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run owns the client set until ctx is cancelled, then disconnects everyone.
func (h *Hub) Run(ctx context.Context) {
	h.running.Store(true)
	defer func() {
		h.running.Store(false)
		close(h.done)
	}()

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				h.remove(c)
			}
			h.mu.Unlock()
			h.logger.Debug("hub stopped")
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("client connected", "clients", n)

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				h.remove(c)
			}
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("client disconnected", "clients", n)

		case msg := <-h.broadcast:
			h.mu.RLock()
			for c := range h.clients {
				h.deliver(c, msg)
			}
			h.mu.RUnlock()
		}
	}
}

// remove must be called with mu held.
func (h *Hub) remove(c *Client) {
	delete(h.clients, c)
	close(c.send)
}

// deliver queues msg for c, discarding c's oldest pending frame if needed.
// Only the hub loop sends on c.send, so one discard always makes room.
func (h *Hub) deliver(c *Client, msg Message) {
	select {
	case c.send <- msg:
		h.sent.Inc()
		return
	default:
	}

	select {
	case <-c.send:
		c.skipped.Inc()
		if h.skipped.Inc()%100 == 1 {
			h.logger.Warn("client falling behind, skipping stale frames", "skipped", h.skipped.Load())
		}
	default:
	}
	select {
	case c.send <- msg:
		h.sent.Inc()
	default:
	}
}

// Broadcast queues msg for every client. It never blocks; when the hub queue
// is full msg is dropped.
func (h *Hub) Broadcast(msg Message) {
	select {
	case h.broadcast <- msg:
	default:
		if h.dropped.Inc()%100 == 1 {
			h.logger.Warn("broadcast queue full, dropping frames", "dropped", h.dropped.Load())
		}
	}
}

// BroadcastJSON encodes v and broadcasts it.
func (h *Hub) BroadcastJSON(v any) error {
	msg, err := Encode(v)
	if err != nil {
		return err
	}
	h.Broadcast(msg)
	return nil
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// IsRunning reports whether Run is active.
func (h *Hub) IsRunning() bool {
	return h.running.Load()
}

// Stats returns the hub counters.
func (h *Hub) Stats() Stats {
	return Stats{
		Clients: h.ClientCount(),
		Sent:    h.sent.Load(),
		Skipped: h.skipped.Load(),
		Dropped: h.dropped.Load(),
	}
}
