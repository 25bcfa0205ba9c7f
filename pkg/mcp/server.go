// Package mcp exposes the prompt registry as Model Context Protocol tools.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/dukex/pcp/pkg/models"
	"github.com/dukex/pcp/pkg/services"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	serverName    = "Prompt Control Plane"
	serverVersion = "1.0.0"

	// ToolPrefix names the per-prompt tools: pcp-<prompt name>.
	ToolPrefix = "pcp-"

	listPageSize = 100
)

// Server registers the static registry tools and one expansion tool per prompt. Every
// tool runs as the single caller the server was started with.
type Server struct {
	mcpServer *server.MCPServer
	svc       *services.Services
	caller    models.Caller
	logger    *slog.Logger

	mu          sync.Mutex
	promptTools []string
}

func NewServer(svc *services.Services, caller models.Caller, logger *slog.Logger) *Server {
	s := &Server{
		mcpServer: server.NewMCPServer(
			serverName,
			serverVersion,
			server.WithToolCapabilities(true),
			server.WithInstructions("PCP is a prompt registry. Use pcp-list to see available prompts, "+
				"pcp-search to find prompts by tag or name, and pcp-{name} to expand a specific prompt with your input."),
		),
		svc:    svc,
		caller: caller,
		logger: logger,
	}

	s.registerTools()

	return s
}

func (s *Server) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio blocks serving the protocol over stdin and stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcp.NewTool(
			"pcp-list",
			mcp.WithDescription("List all available prompts in the PCP registry"),
		),
		s.handleList,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"pcp-search",
			mcp.WithDescription("Search prompts by name, description or tag"),
			mcp.WithString("query", mcp.Required(), mcp.Description("Search term to match against prompt names, descriptions and tags")),
		),
		s.handleSearch,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"pcp-context",
			mcp.WithDescription("Show effective policies and objectives for a user, optionally within a project"),
			mcp.WithString("user_id", mcp.Required(), mcp.Description("ID of the user to resolve context for")),
			mcp.WithString("project_id", mcp.Description("Optional project to layer on top")),
		),
		s.handleContext,
	)
}

// RegisterPrompts replaces the per-prompt tools with one tool for each non-deprecated
// prompt. It returns the registered tool names.
func (s *Server) RegisterPrompts(ctx context.Context) ([]string, error) {
	var summaries []services.PromptSummary

	for offset := 0; ; offset += listPageSize {
		page, err := s.svc.Prompts.List(ctx, services.ListPromptsRequest{Limit: listPageSize, Offset: offset})
		if err != nil {
			return nil, fmt.Errorf("failed to list prompts: %w", err)
		}

		summaries = append(summaries, page.Prompts...)

		if !page.HasNextPage {
			break
		}
	}

	tools := make([]server.ServerTool, 0, len(summaries))
	names := make([]string, 0, len(summaries))

	for _, summary := range summaries {
		tool := s.promptTool(summary)
		tools = append(tools, tool)
		names = append(names, tool.Tool.Name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.promptTools) > 0 {
		s.mcpServer.DeleteTools(s.promptTools...)
	}

	s.mcpServer.AddTools(tools...)
	s.promptTools = names

	s.logger.InfoContext(ctx, "registered prompt tools", "count", len(names))

	return slices.Clone(names), nil
}

func (s *Server) promptTool(summary services.PromptSummary) server.ServerTool {
	description := summary.Description
	if description == "" {
		description = fmt.Sprintf("Expand the '%s' prompt with your input.", summary.Name)
	}

	fields := []string{models.FreeTextField}
	if summary.LatestVersion != nil {
		fields = summary.LatestVersion.InputSchema.FieldNames()
	}

	slices.Sort(fields)

	options := []mcp.ToolOption{mcp.WithDescription(description)}

	for _, field := range fields {
		fieldOptions := []mcp.PropertyOption{mcp.Description(fieldDescription(summary.LatestVersion, field))}
		if required(summary.LatestVersion, field) {
			fieldOptions = append(fieldOptions, mcp.Required())
		}

		options = append(options, mcp.WithString(field, fieldOptions...))
	}

	options = append(options, mcp.WithString("project", mcp.Description("Optional project whose policies apply")))

	return server.ServerTool{
		Tool:    mcp.NewTool(ToolPrefix+summary.Name, options...),
		Handler: s.expandHandler(summary.Name, fields),
	}
}

func fieldDescription(version *models.PromptVersion, field string) string {
	if version != nil && version.InputSchema != nil {
		if prop, ok := version.InputSchema.Properties[field]; ok && prop != nil && prop.Description != "" {
			return prop.Description
		}
	}

	if field == models.FreeTextField {
		return "Free text input, or a JSON object of template variables"
	}

	return "Value for " + field
}

func required(version *models.PromptVersion, field string) bool {
	if version == nil || version.InputSchema == nil || len(version.InputSchema.Properties) == 0 {
		return field == models.FreeTextField
	}

	return slices.Contains(version.InputSchema.Required, field)
}
