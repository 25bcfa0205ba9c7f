package main

import (
	"context"
	"fmt"

	"github.com/dukex/pcp/pkg/cmd"
	"github.com/dukex/pcp/pkg/identity"
	"github.com/dukex/pcp/pkg/log"
	cli "github.com/urfave/cli/v3"
)

func RunAPICommand() *cli.Command {
	return &cli.Command{
		Name:    "run",
		Aliases: []string{"r"},
		Usage:   "Start api",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Database connection URL for persistence (file path or postgres://)",
				Value:   "./data",
				Sources: cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "cache-url",
				Usage:   "Cache URL (memory://?size=, redis://); empty disables caching",
				Sources: cli.EnvVars("CACHE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (gochannel, kafka)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringSliceFlag{
				Name:    "kafka-brokers",
				Usage:   "Kafka brokers used by the kafka event bus",
				Value:   []string{"localhost:9092"},
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.StringFlag{
				Name:    "auth-token",
				Usage:   "Shared bearer token of a gateway forwarding identity headers",
				Sources: cli.EnvVars("AUTH_TOKEN"),
			},
			&cli.StringFlag{
				Name:    "jwt-secret",
				Usage:   "Secret verifying HS256 bearer tokens",
				Sources: cli.EnvVars("JWT_SECRET"),
			},
			&cli.StringFlag{
				Name:    "validate-mode",
				Usage:   "Input validation mode (soft, strict)",
				Value:   "soft",
				Sources: cli.EnvVars("VALIDATE_MODE"),
			},
			&cli.IntFlag{
				Name:    "step-concurrency",
				Usage:   "Maximum workflow steps executed at once",
				Value:   4,
				Sources: cli.EnvVars("STEP_CONCURRENCY"),
			},
			&cli.IntFlag{
				Name:    "usage-retention-days",
				Usage:   "Days of usage records to keep; 0 keeps everything",
				Sources: cli.EnvVars("USAGE_RETENTION_DAYS"),
			},
			&cli.BoolFlag{
				Name:    "otel",
				Usage:   "Export traces over OTLP",
				Sources: cli.EnvVars("OTEL_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			port := command.Int("port")
			log.Setup(command.String("log-level"))

			logger := log.WithModule("api")

			logger.InfoContext(ctx, "Initializing PCP API")

			stack, err := cmd.NewStack(ctx, cmd.StackConfig{
				ServiceName:     "pcp-api",
				DatabaseURL:     command.String("database-url"),
				CacheURL:        command.String("cache-url"),
				EventBus:        command.String("event-bus"),
				KafkaBrokers:    command.StringSlice("kafka-brokers"),
				ValidateMode:    command.String("validate-mode"),
				StepConcurrency: command.Int("step-concurrency"),
				RetentionDays:   command.Int("usage-retention-days"),
				OTELEnabled:     command.Bool("otel"),
			}, logger)
			if err != nil {
				return fmt.Errorf("failed to start control plane: %w", err)
			}
			defer stack.Close(ctx)

			auth := identity.New(identity.Config{
				JWTSecret: command.String("jwt-secret"),
				AuthToken: command.String("auth-token"),
			})
			if auth.Open() {
				logger.WarnContext(ctx, "No credentials configured, identity headers are trusted as sent")
			}

			api := NewAPI(logger, stack.Services, stack.Stats, stack.Metrics, auth)

			if err := api.Start(port); err != nil {
				logger.ErrorContext(ctx, "Failed to start API server", "error", err)
			}

			return nil
		},
	}
}
