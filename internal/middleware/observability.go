package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-grading-api/internal/observability"
)

// GradingRoutePrefix scopes request metrics to the grading API.
const GradingRoutePrefix = "/api/v1/grading"

var latencyBuckets = []struct {
	limit time.Duration
	label string
}{
	{25 * time.Millisecond, "<=25ms"},
	{50 * time.Millisecond, "<=50ms"},
	{100 * time.Millisecond, "<=100ms"},
	{250 * time.Millisecond, "<=250ms"},
	{500 * time.Millisecond, "<=500ms"},
}

// Observability records Prometheus metrics and one structured log line per grading
// request. Other routes pass through untouched.
func Observability(logger zerolog.Logger) fiber.Handler {
	observability.RegisterMetrics()
	logger = logger.With().Str("component", "http").Logger()

	return func(c *fiber.Ctx) error {
		if !strings.HasPrefix(c.Path(), GradingRoutePrefix) {
			return c.Next()
		}

		start := time.Now()
		err := c.Next()
		recordGradingRequest(c, logger, time.Since(start))
		return err
	}
}

func recordGradingRequest(c *fiber.Ctx, logger zerolog.Logger, duration time.Duration) {
	route := routeTemplate(c)
	method := c.Method()
	status := c.Response().StatusCode()
	statusLabel := strconv.Itoa(status)

	observability.GradingRequests().WithLabelValues(method, route, statusLabel).Inc()
	observability.GradingLatency().WithLabelValues(method, route).Observe(duration.Seconds())
	if status >= fiber.StatusBadRequest {
		observability.GradingErrors().WithLabelValues(method, route, statusLabel).Inc()
	}

	event := logger.Info()
	msg := "grading request completed"
	switch {
	case status >= fiber.StatusInternalServerError:
		event, msg = logger.Error(), "grading request failed"
	case status >= fiber.StatusBadRequest:
		event, msg = logger.Warn(), "grading request rejected"
	}

	if id, ok := c.Locals("user_id").(uint); ok {
		event = event.Uint("actor_id", id)
	}
	event.
		Str("correlation_id", GetCorrelationID(c)).
		Str("route", route).
		Str("method", method).
		Int("status", status).
		Float64("latency_ms", float64(duration)/float64(time.Millisecond)).
		Str("latency_bucket", latencyBucket(duration)).
		Msg(msg)
}

func routeTemplate(c *fiber.Ctx) string {
	if route := c.Route(); route != nil && route.Path != "" {
		return route.Path
	}
	return c.Path()
}

func latencyBucket(duration time.Duration) string {
	for _, bucket := range latencyBuckets {
		if duration <= bucket.limit {
			return bucket.label
		}
	}
	return ">500ms"
}
