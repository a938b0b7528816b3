package server

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/ppiankov/sentiscope/internal/logger"
	"github.com/ppiankov/sentiscope/internal/worker"
)

const (
	// HeaderRequestID carries the request correlation ID
	HeaderRequestID = "X-Request-ID"

	localsRequestID = "requestId"
	maxRequestIDLen = 128
)

// RequestID reuses a client supplied X-Request-ID or assigns a fresh UUID
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(HeaderRequestID)
		if id == "" || len(id) > maxRequestIDLen {
			id = uuid.NewString()
		}
		c.Locals(localsRequestID, id)
		c.Set(HeaderRequestID, id)
		return c.Next()
	}
}

// RequestIDFrom returns the ID assigned by RequestID
func RequestIDFrom(c *fiber.Ctx) string {
	id, _ := c.Locals(localsRequestID).(string)
	return id
}

// Observe records request counts and latency, labelled by matched route
func Observe(m *Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}

		route := c.Route().Path
		method := c.Method()
		m.requestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
		m.requestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())

		logger.Debug("%s %s %d %v id=%s", method, c.Path(), status, time.Since(start).Round(time.Microsecond), RequestIDFrom(c))
		return err
	}
}

// RateLimit rejects clients over their token bucket with 429. A nil limiter allows everything.
func RateLimit(limiter *worker.Limiter, m *Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if limiter == nil || limiter.Allow(c.IP()) {
			return c.Next()
		}
		m.rateLimited.Inc()
		c.Set(fiber.HeaderRetryAfter, "1")
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate_limited"})
	}
}
