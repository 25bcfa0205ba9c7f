// Command pcp-mcp serves the prompt registry to MCP clients over stdio.
package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"
)

func main() {
	cmd := &cli.Command{
		Name:   "pcp-mcp",
		Usage:  "Serve PCP prompts as MCP tools over stdio",
		Flags:  serveFlags(),
		Action: serve,
	}

	err := cmd.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
