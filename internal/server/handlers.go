package server

import (
	"context"
	_ "embed"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ppiankov/sentiscope/internal/llm"
	"github.com/ppiankov/sentiscope/internal/logger"
	"github.com/ppiankov/sentiscope/internal/model"
)

//go:embed static/index.html
var indexPage []byte

// Classifier returns the sentiment of one text
type Classifier interface {
	Classify(ctx context.Context, text string) (model.Classification, error)
}

// PageHandler serves the single-page UI
type PageHandler struct{}

// Index renders the demo page
func (h *PageHandler) Index(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.Send(indexPage)
}

// HealthHandler serves liveness
type HealthHandler struct {
	provider string
}

// Health: basic liveness check
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	body := fiber.Map{"status": "ok"}
	if h.provider != "" {
		body["provider"] = h.provider
	}
	return c.Status(fiber.StatusOK).JSON(body)
}

// ClassifyHandler serves POST /classify
type ClassifyHandler struct {
	classifier   Classifier
	metrics      *Metrics
	maxTextBytes int
	timeout      time.Duration
}

type classifyRequest struct {
	Text string `json:"text"`
}

// Classify validates the body, calls the classifier and returns its verdict.
// Unparseable bodies are treated as missing text.
func (h *ClassifyHandler) Classify(c *fiber.Ctx) error {
	var req classifyRequest
	if err := c.BodyParser(&req); err != nil {
		req.Text = ""
	}

	text := strings.TrimSpace(req.Text)
	if text == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "text is required"})
	}
	if h.maxTextBytes > 0 && len(text) > h.maxTextBytes {
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{"error": "text too long"})
	}

	ctx := c.UserContext()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	result, err := h.classifier.Classify(ctx, text)
	if errors.Is(err, llm.ErrEmptyText) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "text is required"})
	}
	if err != nil {
		h.metrics.classifyErrors.Inc()
		logger.Warn("classify failed id=%s: %v", RequestIDFrom(c), err)
		return c.Status(classifyFailureStatus(err)).JSON(fiber.Map{
			"error":  "classification_failed",
			"detail": err.Error(),
		})
	}

	h.metrics.classifications.WithLabelValues(string(result.Sentiment)).Inc()
	return c.Status(fiber.StatusOK).JSON(result)
}

// classifyFailureStatus maps provider failures the client may retry to 503/504
func classifyFailureStatus(err error) int {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusGatewayTimeout
	case llm.IsTemporary(err):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}
