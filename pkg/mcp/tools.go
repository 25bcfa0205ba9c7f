package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/dukex/pcp/pkg/errdefs"
	"github.com/dukex/pcp/pkg/expansion"
	"github.com/dukex/pcp/pkg/models"
	"github.com/dukex/pcp/pkg/services"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const contentPreview = 80

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return map[string]interface{}{}
	}

	return args
}

func stringArg(args map[string]interface{}, name string) string {
	value, _ := args[name].(string)

	return strings.TrimSpace(value)
}

func (s *Server) handleList(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	names, err := s.svc.Prompts.Names(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list prompts: %v", err)), nil
	}

	if len(names) == 0 {
		return mcp.NewToolResultText("No prompts registered yet."), nil
	}

	lines := []string{"Available prompts:"}
	for _, name := range names {
		lines = append(lines, "  - "+ToolPrefix+name)
	}

	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) handleSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := stringArg(arguments(request), "query")
	if query == "" {
		return mcp.NewToolResultError("Missing required parameter: query"), nil
	}

	var lines []string

	for offset := 0; ; offset += listPageSize {
		page, err := s.svc.Prompts.List(ctx, services.ListPromptsRequest{Query: query, Limit: listPageSize, Offset: offset})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to search prompts: %v", err)), nil
		}

		for _, p := range page.Prompts {
			description := p.Description
			if description == "" {
				description = "No description"
			}

			tags := "none"
			if p.LatestVersion != nil && len(p.LatestVersion.Tags) > 0 {
				tags = strings.Join(p.LatestVersion.Tags, ", ")
			}

			lines = append(lines, fmt.Sprintf("  - %s%s: %s [tags: %s]", ToolPrefix, p.Name, description, tags))
		}

		if !page.HasNextPage {
			break
		}
	}

	if len(lines) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No prompts matching '%s'.", query)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Prompts matching '%s':\n%s", query, strings.Join(lines, "\n"))), nil
}

func (s *Server) handleContext(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)

	userID := stringArg(args, "user_id")
	if userID == "" {
		return mcp.NewToolResultError("Missing required parameter: user_id"), nil
	}

	scope := models.UserScope(userID)
	if projectID := stringArg(args, "project_id"); projectID != "" {
		scope = models.ProjectScope(projectID)
	}

	policies, err := s.svc.Policies.Effective(ctx, scope)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to resolve policies: %v", err)), nil
	}

	objectives, err := s.svc.Objectives.Effective(ctx, scope)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to resolve objectives: %v", err)), nil
	}

	var b strings.Builder

	b.WriteString("=== Effective Policies ===\n")
	writePolicies(&b, "Inherited (immutable):", policies.Inherited)
	writePolicies(&b, "Local (mutable):", policies.Local)

	if len(policies.Inherited) == 0 && len(policies.Local) == 0 {
		b.WriteString("  (none)\n")
	}

	b.WriteString("\n=== Effective Objectives ===\n")
	writeObjectives(&b, "Inherited (immutable):", objectives.Inherited)
	writeObjectives(&b, "Local (mutable):", objectives.Local)

	if len(objectives.Inherited) == 0 && len(objectives.Local) == 0 {
		b.WriteString("  (none)\n")
	}

	return mcp.NewToolResultText(strings.TrimRight(b.String(), "\n")), nil
}

func writePolicies(b *strings.Builder, heading string, policies []*models.Policy) {
	if len(policies) == 0 {
		return
	}

	b.WriteString(heading + "\n")

	for _, p := range policies {
		content := p.Content
		if runes := []rune(content); len(runes) > contentPreview {
			content = string(runes[:contentPreview])
		}

		fmt.Fprintf(b, "  - [%s] %s: %s\n", p.EnforcementType, p.Name, content)
	}
}

func writeObjectives(b *strings.Builder, heading string, objectives []*models.Objective) {
	if len(objectives) == 0 {
		return
	}

	b.WriteString(heading + "\n")

	for _, o := range objectives {
		b.WriteString("  - " + o.Title + "\n")
	}
}

// expandHandler builds the handler of a pcp-<name> tool. String arguments are converted
// to the types the version schema declares; a free-text input holding a JSON object is
// used as the whole variable set.
func (s *Server) expandHandler(name string, fields []string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := arguments(request)

		summary, err := s.svc.Prompts.Get(ctx, name)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Error: prompt '%s' not found.", name)), nil
		}

		input := map[string]any{}

		for _, field := range fields {
			raw, ok := args[field]
			if !ok {
				continue
			}

			input[field] = convert(summary.LatestVersion, field, raw)
		}

		if len(fields) == 1 && fields[0] == models.FreeTextField {
			if text, ok := input[models.FreeTextField].(string); ok {
				var object map[string]any
				if json.Unmarshal([]byte(text), &object) == nil && object != nil {
					input = object
				}
			}
		}

		result, err := s.svc.Engine.Expand(ctx, s.caller, expansion.Request{
			PromptName: name,
			ProjectID:  stringArg(args, "project"),
			Input:      input,
		})
		if err != nil {
			if errdefs.IsNotFound(err) {
				return mcp.NewToolResultError(fmt.Sprintf("Error: prompt '%s' not found.", name)), nil
			}

			return mcp.NewToolResultError(fmt.Sprintf("Failed to expand %s: %v", name, err)), nil
		}

		return mcp.NewToolResultText(formatResult(result)), nil
	}
}

func convert(version *models.PromptVersion, field string, raw any) any {
	text, ok := raw.(string)
	if !ok || version == nil || version.InputSchema == nil {
		return raw
	}

	prop, ok := version.InputSchema.Properties[field]
	if !ok || prop == nil {
		return raw
	}

	switch prop.Type {
	case "integer":
		if n, err := strconv.ParseInt(text, 10, 64); err == nil {
			return n
		}
	case "number":
		if f, err := strconv.ParseFloat(text, 64); err == nil {
			return f
		}
	case "boolean":
		if b, err := strconv.ParseBool(text); err == nil {
			return b
		}
	case "object", "array":
		var v any
		if json.Unmarshal([]byte(text), &v) == nil {
			return v
		}
	}

	return raw
}

func formatResult(result *expansion.Result) string {
	parts := make([]string, 0, 3)

	if result.SystemMessage != nil && *result.SystemMessage != "" {
		parts = append(parts, "[System]\n"+*result.SystemMessage)
	}

	parts = append(parts, "[User]\n"+result.UserMessage)

	if len(result.AppliedPolicies) > 0 {
		parts = append(parts, "[Policies Applied]\n"+strings.Join(result.AppliedPolicies, ", "))
	}

	return strings.Join(parts, "\n\n")
}
