package web

import (
	"github.com/dukex/pcp/pkg/usage"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
)

// MetricsHandler serves the Prometheus exposition of m.
func MetricsHandler(m *usage.Metrics) fiber.Handler {
	return adaptor.HTTPHandler(m.Handler())
}
