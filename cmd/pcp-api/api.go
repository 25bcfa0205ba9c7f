// Package main provides the PCP API server implementation.
package main

import (
	"log/slog"
	"strconv"

	"github.com/dukex/pcp/pkg/identity"
	"github.com/dukex/pcp/pkg/models"
	"github.com/dukex/pcp/pkg/services"
	"github.com/dukex/pcp/pkg/usage"
	"github.com/dukex/pcp/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
)

type API struct {
	logger   *slog.Logger
	services *services.Services
	stats    *usage.Stats
	metrics  *usage.Metrics
	auth     *identity.Authenticator
	validate *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	svc *services.Services,
	stats *usage.Stats,
	metrics *usage.Metrics,
	auth *identity.Authenticator,
) *API {
	return &API{
		logger:   logger,
		services: svc,
		stats:    stats,
		metrics:  metrics,
		auth:     auth,
		validate: models.NewValidator(),
	}
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(a.services, a.stats, a.validate)

	app := fiber.New(fiber.Config{
		AppName:      "pcp-api",
		ErrorHandler: web.ErrorHandler(a.logger),
	})

	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("PCP API")
	})
	app.Get("/health", handlers.HealthCheck)
	app.Get("/metrics", web.MetricsHandler(a.metrics))

	api := app.Group("/api/v1", identity.Middleware(a.auth))
	handlers.Routes(api)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	err := app.Listen(":" + strconv.Itoa(port))

	return err
}
