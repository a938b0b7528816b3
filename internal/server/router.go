package server

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ppiankov/sentiscope/internal/worker"
)

// Register wires all HTTP routes onto the given Fiber app.
func Register(app *fiber.App, m *Metrics, limiter *worker.Limiter, page *PageHandler, health *HealthHandler, classify *ClassifyHandler) {
	app.Use(RequestID())
	app.Use(Observe(m))

	app.Get("/", page.Index)
	app.Get("/healthz", health.Health)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})))

	// Only classification spends provider quota
	app.Post("/classify", RateLimit(limiter, m), classify.Classify)
}
