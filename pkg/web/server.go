// Package web serves the guidance dashboard: live status over a websocket,
// a small REST API, and accelerometer ingestion from a phone browser.
package web

import (
	"context"
	_ "embed"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/atomic"

	"github.com/teslashibe/go-sightguide/pkg/hub"
	"github.com/teslashibe/go-sightguide/pkg/narrator"
	"github.com/teslashibe/go-sightguide/pkg/pipeline"
	"github.com/teslashibe/go-sightguide/pkg/sensorfusion"
)

//go:embed static/index.html
var indexHTML []byte

// Config holds dashboard settings.
type Config struct {
	Addr            string        // listen address, e.g. ":8080"
	MotionBuffer    int           // accelerometer samples buffered ahead of the pitch estimator
	ShutdownTimeout time.Duration // grace period for open connections
}

// DefaultConfig returns the standard dashboard settings.
func DefaultConfig() Config {
	return Config{
		Addr:            ":8080",
		MotionBuffer:    64,
		ShutdownTimeout: 5 * time.Second,
	}
}

// Server is the web dashboard server. It implements pipeline.UIBridge and
// exposes the browser accelerometer as a sensorfusion.MotionSensor.
type Server struct {
	app    *fiber.App
	config Config
	logger *slog.Logger

	statusHub *hub.Hub
	motion    *sensorfusion.ChannelSensor

	mu       sync.RWMutex
	narrator narrator.Narrator
	last     pipeline.Update
	hasLast  bool

	published atomic.Uint64
	started   time.Time
}

// NewServer creates a dashboard server.
func NewServer(cfg Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MotionBuffer <= 0 {
		cfg.MotionBuffer = DefaultConfig().MotionBuffer
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultConfig().ShutdownTimeout
	}

	s := &Server{
		config:    cfg,
		logger:    logger.With("component", "web"),
		statusHub: hub.New("status", logger),
		motion:    sensorfusion.NewChannelSensor(cfg.MotionBuffer),
		started:   time.Now(),
	}

	app := fiber.New(fiber.Config{
		AppName:               "Sight Guide",
		DisableStartupMessage: true,
	})

	// CORS for local development
	app.Use(cors.New())

	app.Get("/", s.handleIndex)

	api := app.Group("/api")
	api.Get("/health", s.handleHealth)
	api.Get("/status", s.handleStatus)
	api.Post("/narrator/reset", s.handleNarratorReset)
	api.Post("/motion", s.handleMotion)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/status", websocket.New(s.handleStatusWS))
	app.Get("/ws/motion", websocket.New(s.handleMotionWS))

	s.app = app
	return s
}

// SetNarrator attaches the narrator that /api/narrator/reset controls.
func (s *Server) SetNarrator(n narrator.Narrator) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.narrator = n
}

func (s *Server) getNarrator() narrator.Narrator {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.narrator
}

// Motion returns the accelerometer stream fed by browser clients.
func (s *Server) Motion() *sensorfusion.ChannelSensor {
	return s.motion
}

// Publish implements pipeline.UIBridge: it stores u for the REST API and
// broadcasts it to status clients without blocking.
func (s *Server) Publish(u pipeline.Update) {
	s.mu.Lock()
	s.last, s.hasLast = u, true
	s.mu.Unlock()

	s.published.Inc()
	if err := s.statusHub.BroadcastJSON(u); err != nil {
		s.logger.Warn("encode status update", "error", err)
	}
}

// Last returns the most recently published update.
func (s *Server) Last() (pipeline.Update, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last, s.hasLast
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start listens on the configured address until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve runs the dashboard on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go s.statusHub.Run(ctx)
	go func() {
		<-ctx.Done()
		if err := s.app.ShutdownWithTimeout(s.config.ShutdownTimeout); err != nil {
			s.logger.Warn("dashboard shutdown", "error", err)
		}
	}()

	s.logger.Info("dashboard listening", "addr", ln.Addr().String())
	return s.app.Listener(ln)
}

var _ pipeline.UIBridge = (*Server)(nil)
