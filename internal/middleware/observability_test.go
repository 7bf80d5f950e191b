package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-grading-api/internal/observability"
)

func TestObservabilityCountsGradingRequestsOnly(t *testing.T) {
	app := fiber.New()
	app.Use(Observability(zerolog.Nop()))
	app.Get("/api/v1/grading/scores/ping", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusTeapot)
	})
	app.Get("/api/v1/health", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	route := "/api/v1/grading/scores/ping"
	requestsBefore := counterValue(t, observability.GradingRequests().WithLabelValues(http.MethodGet, route, "418"))
	errorsBefore := counterValue(t, observability.GradingErrors().WithLabelValues(http.MethodGet, route, "418"))
	healthBefore := counterValue(t, observability.GradingRequests().WithLabelValues(http.MethodGet, "/api/v1/health", "200"))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, route, nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusTeapot, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	require.Equal(t, requestsBefore+1, counterValue(t, observability.GradingRequests().WithLabelValues(http.MethodGet, route, "418")))
	require.Equal(t, errorsBefore+1, counterValue(t, observability.GradingErrors().WithLabelValues(http.MethodGet, route, "418")))
	require.Equal(t, healthBefore, counterValue(t, observability.GradingRequests().WithLabelValues(http.MethodGet, "/api/v1/health", "200")))
}

func TestCorrelationIDPropagatesHeader(t *testing.T) {
	app := fiber.New()
	app.Use(CorrelationID())
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(CorrelationIDFromContext(c.UserContext()))
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-123")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, "req-123", resp.Header.Get("X-Correlation-ID"))
}

func counterValue(t *testing.T, counter prometheus.Counter) float64 {
	t.Helper()
	var metric dto.Metric
	require.NoError(t, counter.Write(&metric))
	return metric.GetCounter().GetValue()
}

func TestCorrelationIDReplacesMalformedHeader(t *testing.T) {
	app := fiber.New()
	app.Use(CorrelationID())
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(GetCorrelationID(c))
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(CorrelationHeader, "bad id\twith spaces")
	resp, err := app.Test(req)
	require.NoError(t, err)

	id := resp.Header.Get(CorrelationHeader)
	require.NotEmpty(t, id)
	require.NotEqual(t, "bad id\twith spaces", id)
	require.Len(t, id, 36)
}
