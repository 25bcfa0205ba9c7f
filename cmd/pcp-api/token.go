package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dukex/pcp/pkg/identity"
	"github.com/dukex/pcp/pkg/models"
	cli "github.com/urfave/cli/v3"
)

// TokenCommand prints a signed bearer token for local use against a JWT protected API.
func TokenCommand() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "Issue a signed bearer token",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "user",
				Usage:    "User ID placed in the subject claim",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "team",
				Usage: "Team ID of the user",
			},
			&cli.StringFlag{
				Name:  "role",
				Usage: "Role (member, admin)",
				Value: string(models.RoleMember),
			},
			&cli.DurationFlag{
				Name:  "ttl",
				Usage: "Token lifetime",
				Value: 24 * time.Hour,
			},
			&cli.StringFlag{
				Name:    "jwt-secret",
				Usage:   "Secret signing the token",
				Sources: cli.EnvVars("JWT_SECRET"),
			},
		},
		Action: func(_ context.Context, command *cli.Command) error {
			secret := command.String("jwt-secret")
			if secret == "" {
				return errors.New("jwt-secret is required")
			}

			auth := identity.New(identity.Config{JWTSecret: secret})

			token, err := auth.Issue(models.Caller{
				UserID: command.String("user"),
				TeamID: command.String("team"),
				Role:   models.Role(command.String("role")),
			}, command.Duration("ttl"))
			if err != nil {
				return fmt.Errorf("failed to issue token: %w", err)
			}

			_, err = fmt.Fprintln(command.Root().Writer, token)

			return err
		},
	}
}
