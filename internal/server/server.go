// Package server serves the classification demo page and JSON API on Fiber.
package server

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ppiankov/sentiscope/internal/logger"
	"github.com/ppiankov/sentiscope/internal/model"
	"github.com/ppiankov/sentiscope/internal/worker"
)

const (
	limiterIdle     = 10 * time.Minute
	limiterSweep    = time.Minute
	shutdownTimeout = 5 * time.Second
)

// Options configures a Server
type Options struct {
	Provider        string        // Reported by /healthz
	ClassifyTimeout time.Duration // Per-request classifier deadline; 0 = none
}

// Server is the demo web server
type Server struct {
	app     *fiber.App
	cfg     model.ServerConfig
	limiter *worker.Limiter
	metrics *Metrics
}

// New creates a server around classifier
func New(classifier Classifier, cfg model.ServerConfig, opts Options) *Server {
	// Leave room for JSON framing and escapes around the text itself
	bodyLimit := 4 * 1024 * 1024
	if cfg.MaxTextBytes > 0 {
		bodyLimit = cfg.MaxTextBytes*6 + 1024
	}

	app := fiber.New(fiber.Config{
		AppName:               "sentiscope",
		DisableStartupMessage: true,
		ReadTimeout:           cfg.ReadTimeout,
		BodyLimit:             bodyLimit,
		ErrorHandler:          errorHandler,
	})

	var limiter *worker.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = worker.NewLimiter(cfg.RequestsPerSecond, cfg.BurstSize)
	}

	metrics := NewMetrics()
	Register(app, metrics, limiter,
		&PageHandler{},
		&HealthHandler{provider: opts.Provider},
		&ClassifyHandler{
			classifier:   classifier,
			metrics:      metrics,
			maxTextBytes: cfg.MaxTextBytes,
			timeout:      opts.ClassifyTimeout,
		},
	)

	return &Server{
		app:     app,
		cfg:     cfg,
		limiter: limiter,
		metrics: metrics,
	}
}

// App exposes the Fiber app (used by tests via app.Test)
func (s *Server) App() *fiber.App {
	return s.app
}

// Run listens on the configured address until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.app.Listen(s.cfg.Addr)
	}()

	sweep := time.NewTicker(limiterSweep)
	defer sweep.Stop()

	for {
		select {
		case err := <-errCh:
			return err
		case <-sweep.C:
			if s.limiter != nil {
				if n := s.limiter.Evict(limiterIdle); n > 0 {
					logger.Debug("Evicted %d idle rate limiters", n)
				}
			}
		case <-ctx.Done():
			logger.Info("Shutting down server")
			if err := s.app.ShutdownWithTimeout(shutdownTimeout); err != nil {
				return err
			}
			return nil
		}
	}
}

// errorHandler renders framework errors (404, 405, body too large) as JSON
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := "internal_error"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		msg = fe.Message
	}
	return c.Status(code).JSON(fiber.Map{"error": msg})
}
