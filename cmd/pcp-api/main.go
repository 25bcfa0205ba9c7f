package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"
)

const defaultPort = 9091

func main() {
	cmd := &cli.Command{
		Name:                  "pcp-api",
		Usage:                 "Serve the prompt control plane REST API",
		EnableShellCompletion: true,
		Commands: []*cli.Command{
			RunAPICommand(),
			TokenCommand(),
		},
	}

	err := cmd.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
