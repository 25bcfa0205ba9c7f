package main

import (
	"context"
	"fmt"

	"github.com/dukex/pcp/pkg/cmd"
	"github.com/dukex/pcp/pkg/log"
	"github.com/dukex/pcp/pkg/mcp"
	"github.com/dukex/pcp/pkg/models"
	cli "github.com/urfave/cli/v3"
)

func serveFlags() []cli.Flag {
	return []cli.Flag{
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
			Name:    "validate-mode",
			Usage:   "Input validation mode (soft, strict)",
			Value:   "soft",
			Sources: cli.EnvVars("VALIDATE_MODE"),
		},
		&cli.StringFlag{
			Name:     "user",
			Usage:    "User ID every tool call runs as",
			Required: true,
			Sources:  cli.EnvVars("PCP_USER"),
		},
		&cli.StringFlag{
			Name:    "team",
			Usage:   "Team ID of the user",
			Sources: cli.EnvVars("PCP_TEAM"),
		},
		&cli.StringFlag{
			Name:    "role",
			Usage:   "Role of the user (member, admin)",
			Value:   string(models.RoleMember),
			Sources: cli.EnvVars("PCP_ROLE"),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "Log level (debug, info, warn, error)",
			Value:   "info",
			Sources: cli.EnvVars("LOG_LEVEL"),
		},
	}
}

func caller(command *cli.Command) (models.Caller, error) {
	role := models.Role(command.String("role"))

	switch role {
	case models.RoleAdmin, models.RoleMember, models.RoleViewer:
	default:
		return models.Caller{}, fmt.Errorf("unknown role %q", role)
	}

	return models.Caller{
		UserID: command.String("user"),
		TeamID: command.String("team"),
		Role:   role,
	}, nil
}

func serve(ctx context.Context, command *cli.Command) error {
	log.Setup(command.String("log-level"))

	logger := log.WithModule("mcp")

	who, err := caller(command)
	if err != nil {
		return err
	}

	stack, err := cmd.NewStack(ctx, cmd.StackConfig{
		ServiceName:  "pcp-mcp",
		DatabaseURL:  command.String("database-url"),
		CacheURL:     command.String("cache-url"),
		EventBus:     command.String("event-bus"),
		KafkaBrokers: command.StringSlice("kafka-brokers"),
		ValidateMode: command.String("validate-mode"),
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to start control plane: %w", err)
	}
	defer stack.Close(ctx)

	server := mcp.NewServer(stack.Services, who, logger)

	if _, err := server.RegisterPrompts(ctx); err != nil {
		return err
	}

	logger.InfoContext(ctx, "Serving MCP over stdio", "user", who.UserID)

	return server.ServeStdio()
}
