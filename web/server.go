// Package web exports live readings over HTTP and WebSocket.
package web

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/ftahirops/xwake/engine"
	"github.com/ftahirops/xwake/internal/log"
	"github.com/ftahirops/xwake/model"
)

// Server is the HTTP/WebSocket export server. It keeps its own view of the
// stream (latest reading, history ring, episodes) fed through Publish.
type Server struct {
	app  *fiber.App
	addr string

	latest   *engine.MetricsStore
	history  *engine.History
	episodes *engine.EpisodeTracker
	metrics  *engine.Metrics
	hub      *Hub
}

// NewServer creates a server listening on addr. metrics may be nil, in
// which case /metrics is not mounted.
func NewServer(addr string, historySize int, metrics *engine.Metrics) *Server {
	s := &Server{
		addr:     addr,
		latest:   engine.NewMetricsStore(),
		history:  engine.NewHistory(historySize),
		episodes: engine.NewEpisodeTracker(100),
		metrics:  metrics,
		hub:      NewHub("readings"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "xwake",
		DisableStartupMessage: true,
	})
	app.Use(cors.New())

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/history", s.handleHistory)
	api.Get("/episodes", s.handleEpisodes)

	if metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))
	}

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/readings", websocket.New(s.handleReadingsWS))

	s.app = app
	return s
}

// App exposes the fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Hub returns the readings broadcast hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Publish records a reading and broadcasts it. It never blocks the caller.
func (s *Server) Publish(r model.Reading) {
	s.latest.Update(r)
	s.history.Push(r)
	s.episodes.Process(r)
	if err := s.hub.BroadcastJSON(r); err != nil {
		log.Warn("encode reading for websocket", "err", err)
	}
}

// Start runs the hub and blocks serving HTTP.
func (s *Server) Start() error {
	go s.hub.Run()
	log.Info("web export listening", "addr", s.addr)
	return s.app.Listen(s.addr)
}

// StartAsync starts the server in a goroutine.
func (s *Server) StartAsync() {
	go func() {
		if err := s.Start(); err != nil {
			log.Error("web server error", "err", err)
		}
	}()
}

// Shutdown stops the hub and the HTTP server.
func (s *Server) Shutdown() error {
	s.hub.Stop()
	return s.app.Shutdown()
}
