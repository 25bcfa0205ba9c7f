package mcp

import (
	"context"
	"log/slog"
	"testing"

	"github.com/dukex/pcp/pkg/models"
	"github.com/dukex/pcp/pkg/persistence/file"
	"github.com/dukex/pcp/pkg/services"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var admin = models.Caller{UserID: "root", Role: models.RoleAdmin}

type fixture struct {
	server *Server
	svc    *services.Services
	team   *models.Team
	user   *models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	ctx := t.Context()
	svc := services.New(services.Options{Persistence: file.NewPersistence(t.TempDir()), Logger: slog.Default()})

	team, err := svc.Hierarchy.CreateTeam(ctx, admin, &models.Team{Name: "Engineering", Slug: "eng"})
	require.NoError(t, err)

	user, err := svc.Hierarchy.CreateUser(ctx, admin, &models.User{ID: "ada", TeamID: team.ID, Username: "ada"})
	require.NoError(t, err)

	_, err = svc.Policies.Create(ctx, admin, &models.Policy{
		TeamID: team.ID, Name: "Sign off", EnforcementType: models.EnforcementAppend, Content: "Thanks!", Active: true,
	})
	require.NoError(t, err)

	_, err = svc.Objectives.Create(ctx, admin, &models.Objective{TeamID: team.ID, Title: "Ship v2"})
	require.NoError(t, err)

	_, err = svc.Prompts.Create(ctx, admin,
		&models.Prompt{Name: "greet", Description: "Say hello"},
		&models.PromptVersion{Version: "1.0.0", UserTemplate: "Hello {{ input }}", Tags: []string{"social"}},
	)
	require.NoError(t, err)

	_, err = svc.Prompts.Create(ctx, admin,
		&models.Prompt{Name: "repeat"},
		&models.PromptVersion{
			Version:      "1.0.0",
			UserTemplate: "{{ word }} x{{ times }}",
			InputSchema: &models.JSONSchema{
				Type: "object",
				Properties: map[string]*models.Property{
					"word":  {Type: "string"},
					"times": {Type: "integer"},
				},
				Required: []string{"word", "times"},
			},
		},
	)
	require.NoError(t, err)

	caller := models.Caller{UserID: user.ID, TeamID: team.ID, Role: models.RoleMember}

	return &fixture{
		server: NewServer(svc, caller, slog.Default()),
		svc:    svc,
		team:   team,
		user:   user,
	}
}

func callTool(t *testing.T, handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]interface{}) (string, bool) {
	t.Helper()

	request := mcp.CallToolRequest{}
	request.Params.Arguments = args

	result, err := handler(t.Context(), request)
	require.NoError(t, err)
	require.NotEmpty(t, result.Content)

	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)

	return text.Text, result.IsError
}

func TestServer_List(t *testing.T) {
	f := newFixture(t)

	text, isError := callTool(t, f.server.handleList, nil)
	assert.False(t, isError)
	assert.Equal(t, "Available prompts:\n  - pcp-greet\n  - pcp-repeat", text)

	_, err := f.svc.Prompts.Deprecate(t.Context(), admin, "greet")
	require.NoError(t, err)

	text, _ = callTool(t, f.server.handleList, nil)
	assert.NotContains(t, text, "pcp-greet")
}

func TestServer_Search(t *testing.T) {
	f := newFixture(t)

	text, isError := callTool(t, f.server.handleSearch, map[string]interface{}{"query": "social"})
	assert.False(t, isError)
	assert.Equal(t, "Prompts matching 'social':\n  - pcp-greet: Say hello [tags: social]", text)

	text, _ = callTool(t, f.server.handleSearch, map[string]interface{}{"query": "nothing"})
	assert.Equal(t, "No prompts matching 'nothing'.", text)

	_, isError = callTool(t, f.server.handleSearch, map[string]interface{}{})
	assert.True(t, isError)
}

func TestServer_Context(t *testing.T) {
	f := newFixture(t)

	text, isError := callTool(t, f.server.handleContext, map[string]interface{}{"user_id": f.user.ID})
	require.False(t, isError, text)

	assert.Contains(t, text, "=== Effective Policies ===\nLocal (mutable):\n  - [append] Sign off: Thanks!")
	assert.Contains(t, text, "=== Effective Objectives ===\nLocal (mutable):\n  - Ship v2")

	_, isError = callTool(t, f.server.handleContext, map[string]interface{}{})
	assert.True(t, isError)
}

func TestServer_PromptTools(t *testing.T) {
	f := newFixture(t)

	names, err := f.server.RegisterPrompts(t.Context())
	require.NoError(t, err)
	assert.Equal(t, []string{"pcp-greet", "pcp-repeat"}, names)

	t.Run("free text", func(t *testing.T) {
		tool := f.server.promptTool(summary(t, f, "greet"))
		assert.Contains(t, tool.Tool.InputSchema.Properties, "input")
		assert.Contains(t, tool.Tool.InputSchema.Required, "input")

		text, isError := callTool(t, tool.Handler, map[string]interface{}{"input": "world"})
		require.False(t, isError, text)
		assert.Equal(t, "[User]\nHello world\nThanks!\n\n[Policies Applied]\nSign off", text)
	})

	t.Run("typed schema fields", func(t *testing.T) {
		tool := f.server.promptTool(summary(t, f, "repeat"))
		assert.ElementsMatch(t, []string{"word", "times"}, tool.Tool.InputSchema.Required)

		text, isError := callTool(t, tool.Handler, map[string]interface{}{"word": "go", "times": "3"})
		require.False(t, isError, text)
		assert.Contains(t, text, "go x3")
	})

	t.Run("re-registering replaces tools", func(t *testing.T) {
		_, err := f.svc.Prompts.Deprecate(t.Context(), admin, "repeat")
		require.NoError(t, err)

		names, err := f.server.RegisterPrompts(t.Context())
		require.NoError(t, err)
		assert.Equal(t, []string{"pcp-greet"}, names)
	})
}

func summary(t *testing.T, f *fixture, name string) services.PromptSummary {
	t.Helper()

	s, err := f.svc.Prompts.Get(t.Context(), name)
	require.NoError(t, err)

	return *s
}
