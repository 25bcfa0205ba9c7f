package expansion_test

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dukex/pcp/pkg/errdefs"
	"github.com/dukex/pcp/pkg/expansion"
	"github.com/dukex/pcp/pkg/hierarchy"
	"github.com/dukex/pcp/pkg/models"
	"github.com/dukex/pcp/pkg/objective"
	"github.com/dukex/pcp/pkg/persistence"
	"github.com/dukex/pcp/pkg/persistence/file"
	"github.com/dukex/pcp/pkg/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

type recorder struct {
	mu      sync.Mutex
	records []*models.UsageRecord
}

func (r *recorder) Record(_ context.Context, record *models.UsageRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.records = append(r.records, record)
}

type fixture struct {
	p        persistence.Persistence
	engine   *expansion.Engine
	recorder *recorder
}

func newFixture(t *testing.T, mode expansion.ValidateMode) *fixture {
	t.Helper()

	ctx := t.Context()
	p := file.NewPersistence(t.TempDir())

	require.NoError(t, p.TeamRepository().Save(ctx, &models.Team{ID: "eng", Name: "Engineering", Slug: "eng"}))
	require.NoError(t, p.TeamRepository().Save(ctx, &models.Team{ID: "backend", Name: "Backend", Slug: "backend", ParentTeamID: "eng"}))
	require.NoError(t, p.TeamRepository().Save(ctx, &models.Team{ID: "sales", Name: "Sales", Slug: "sales"}))
	require.NoError(t, p.UserRepository().Save(ctx, &models.User{ID: "ada", TeamID: "backend", Username: "ada", Active: true}))
	require.NoError(t, p.ProjectRepository().Save(ctx, &models.Project{ID: "crm", TeamID: "sales", Name: "CRM", Slug: "crm"}))

	resolver := hierarchy.NewResolver(p, nil, slog.Default())
	policies := policy.NewAggregator(resolver, p.PolicyRepository(), nil, slog.Default())
	objectives := objective.NewAggregator(resolver, p.ObjectiveRepository(), nil, slog.Default())
	rec := &recorder{}

	engine := expansion.NewEngine(p, policies, objectives, rec, nil, slog.Default(), expansion.Config{ValidateMode: mode})

	return &fixture{p: p, engine: engine, recorder: rec}
}

func (f *fixture) prompt(t *testing.T, name string, versions ...*models.PromptVersion) *models.Prompt {
	t.Helper()

	prompt := &models.Prompt{ID: name + "-id", Name: name}
	require.NoError(t, f.p.PromptRepository().Save(t.Context(), prompt))

	for i, v := range versions {
		v.PromptID = prompt.ID
		if v.ID == "" {
			v.ID = name + "-" + v.Version
		}

		if v.CreatedAt.IsZero() {
			v.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		}

		require.NoError(t, f.p.PromptRepository().SaveVersion(t.Context(), v))
	}

	return prompt
}

func (f *fixture) policy(t *testing.T, p *models.Policy) {
	t.Helper()

	p.Active = true
	if p.CreatedAt.IsZero() {
		p.CreatedAt = base
	}

	require.NoError(t, f.p.PolicyRepository().Save(t.Context(), p))
}

func requiredName() *models.JSONSchema {
	return &models.JSONSchema{
		Type:       "object",
		Properties: map[string]*models.Property{"name": {Type: "string"}},
		Required:   []string{"name"},
	}
}

func TestExpand_Greet(t *testing.T) {
	f := newFixture(t, expansion.ValidateSoft)
	f.prompt(t, "greet", &models.PromptVersion{Version: "1.0.0", UserTemplate: "Hello {{ name }}", InputSchema: requiredName()})

	result, err := f.engine.Expand(t.Context(), models.Caller{}, expansion.Request{
		PromptName: "greet",
		Input:      map[string]any{"name": "Ada"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Hello Ada", result.UserMessage)
	assert.Nil(t, result.SystemMessage)
	assert.Equal(t, "greet", result.PromptName)
	assert.Equal(t, "1.0.0", result.PromptVersion)
	assert.Empty(t, result.AppliedPolicies)
	assert.NotNil(t, result.Objectives)
}

func TestExpand_MissingRequiredInput(t *testing.T) {
	f := newFixture(t, expansion.ValidateSoft)
	f.prompt(t, "x", &models.PromptVersion{
		Version:      "1.0.0",
		UserTemplate: "Write about {{ topic }}",
		InputSchema: &models.JSONSchema{
			Type:       "object",
			Properties: map[string]*models.Property{"topic": {Type: "string", Description: "Subject"}},
			Required:   []string{"topic"},
		},
	})

	_, err := f.engine.Expand(t.Context(), models.Caller{}, expansion.Request{PromptName: "x", Input: map[string]any{}})
	require.Error(t, err)
	assert.True(t, errdefs.IsValidation(err))

	var verr *errdefs.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Fields, 1)
	assert.Equal(t, "topic", verr.Fields[0].Field)

	require.Len(t, f.recorder.records, 1)
	assert.False(t, f.recorder.records[0].Success)
}

func TestExpand_UnknownInputPassesThrough(t *testing.T) {
	f := newFixture(t, expansion.ValidateSoft)
	f.prompt(t, "greet", &models.PromptVersion{Version: "1.0.0", UserTemplate: "Hello {{ name }}{{ extra }}", InputSchema: requiredName()})

	result, err := f.engine.Expand(t.Context(), models.Caller{}, expansion.Request{
		PromptName: "greet",
		Input:      map[string]any{"name": "Ada", "extra": "!"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello Ada!", result.UserMessage)
}

func TestExpand_SchemaDefaults(t *testing.T) {
	f := newFixture(t, expansion.ValidateSoft)
	f.prompt(t, "tone", &models.PromptVersion{
		Version:      "1.0.0",
		UserTemplate: "Tone: {{ tone }}",
		InputSchema: &models.JSONSchema{
			Type:       "object",
			Properties: map[string]*models.Property{"tone": {Type: "string", Default: "neutral"}},
			Required:   []string{"tone"},
		},
	})

	result, err := f.engine.Expand(t.Context(), models.Caller{}, expansion.Request{PromptName: "tone"})
	require.NoError(t, err)
	assert.Equal(t, "Tone: neutral", result.UserMessage)
}

func TestExpand_VersionResolution(t *testing.T) {
	f := newFixture(t, expansion.ValidateSoft)
	prompt := f.prompt(t, "greet",
		&models.PromptVersion{Version: "1.0.0", UserTemplate: "v1 {{ input }}"},
		&models.PromptVersion{Version: "2.0.0", UserTemplate: "v2 {{ input }}"},
	)
	ctx := t.Context()
	req := expansion.Request{PromptName: "greet", Input: map[string]any{"input": "x"}}

	result, err := f.engine.Expand(ctx, models.Caller{}, req)
	require.NoError(t, err)
	assert.Equal(t, "v2 x", result.UserMessage)

	req.Version = "1.0.0"
	result, err = f.engine.Expand(ctx, models.Caller{}, req)
	require.NoError(t, err)
	assert.Equal(t, "v1 x", result.UserMessage)

	req.Version = "9.9.9"
	_, err = f.engine.Expand(ctx, models.Caller{}, req)
	assert.True(t, errdefs.IsNotFound(err))

	prompt.ActiveVersionID = "greet-1.0.0"
	require.NoError(t, f.p.PromptRepository().Save(ctx, prompt))

	req.Version = ""
	result, err = f.engine.Expand(ctx, models.Caller{}, req)
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", result.PromptVersion)
}

func TestExpand_NotFound(t *testing.T) {
	f := newFixture(t, expansion.ValidateSoft)
	ctx := t.Context()

	_, err := f.engine.Expand(ctx, models.Caller{}, expansion.Request{PromptName: "ghost"})
	assert.True(t, errdefs.IsNotFound(err))

	f.prompt(t, "empty")
	_, err = f.engine.Expand(ctx, models.Caller{}, expansion.Request{PromptName: "empty"})
	assert.True(t, errdefs.IsNotFound(err))

	old := f.prompt(t, "old", &models.PromptVersion{Version: "1.0.0", UserTemplate: "x"})
	old.Deprecated = true
	require.NoError(t, f.p.PromptRepository().Save(ctx, old))

	_, err = f.engine.Expand(ctx, models.Caller{}, expansion.Request{PromptName: "old"})
	require.Error(t, err)
	assert.True(t, errdefs.IsNotFound(err))
	assert.Contains(t, err.Error(), "deprecated")
}

func TestExpand_AppliesInheritedAndLocalPolicies(t *testing.T) {
	f := newFixture(t, expansion.ValidateSoft)
	f.prompt(t, "greet", &models.PromptVersion{
		Version:        "1.0.0",
		SystemTemplate: "You are helpful.",
		UserTemplate:   "Hello {{ name }}",
		InputSchema:    requiredName(),
	})
	f.policy(t, &models.Policy{ID: "p1", TeamID: "eng", Name: "Concise", EnforcementType: models.EnforcementPrepend, Content: "Be concise", Priority: 1})
	f.policy(t, &models.Policy{ID: "p2", TeamID: "backend", Name: "Sources", EnforcementType: models.EnforcementAppend, Content: "Cite sources", Priority: 1})
	f.policy(t, &models.Policy{ID: "p0", TeamID: "backend", Name: "Safety", EnforcementType: models.EnforcementPrepend, Content: "Stay safe", Priority: 0})

	caller := models.Caller{UserID: "ada", TeamID: "backend", Role: models.RoleMember}

	result, err := f.engine.Expand(t.Context(), caller, expansion.Request{PromptName: "greet", Input: map[string]any{"name": "Ada"}})
	require.NoError(t, err)

	require.NotNil(t, result.SystemMessage)
	assert.Equal(t, "Stay safe\nBe concise\nYou are helpful.", *result.SystemMessage)
	assert.Equal(t, "Hello Ada\nCite sources", result.UserMessage)
	assert.Equal(t, []string{"Safety", "Concise", "Sources"}, result.AppliedPolicies)
	require.Len(t, result.PolicyResults, 3)
	assert.Nil(t, result.PolicyResults[0].Passed)
}

func TestExpand_PrependCreatesSystemMessage(t *testing.T) {
	f := newFixture(t, expansion.ValidateSoft)
	f.prompt(t, "plain", &models.PromptVersion{Version: "1.0.0", UserTemplate: "{{ input }}"})
	f.policy(t, &models.Policy{ID: "p1", TeamID: "eng", Name: "Concise", EnforcementType: models.EnforcementPrepend, Content: "Be concise"})

	result, err := f.engine.Expand(t.Context(), models.Caller{TeamID: "eng"}, expansion.Request{
		PromptName: "plain",
		Input:      map[string]any{"input": "hi"},
	})
	require.NoError(t, err)
	require.NotNil(t, result.SystemMessage)
	assert.Equal(t, "Be concise", *result.SystemMessage)
}

func TestExpand_InjectShadowsInput(t *testing.T) {
	f := newFixture(t, expansion.ValidateSoft)
	f.prompt(t, "styled", &models.PromptVersion{
		Version:        "1.0.0",
		SystemTemplate: "Style: {{ house_style }}",
		UserTemplate:   "Write {{ input }} in a {{ house_style }} voice",
	})
	f.policy(t, &models.Policy{ID: "p1", TeamID: "eng", Name: "house_style", EnforcementType: models.EnforcementInject, Content: "warm {{ input }}"})

	result, err := f.engine.Expand(t.Context(), models.Caller{TeamID: "eng"}, expansion.Request{
		PromptName: "styled",
		Input:      map[string]any{"input": "a memo", "house_style": "cold"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Style: warm {{ input }}", *result.SystemMessage)
	assert.Equal(t, "Write a memo in a warm {{ input }} voice", result.UserMessage)
}

func TestExpand_ValidatePolicies(t *testing.T) {
	setup := func(t *testing.T, mode expansion.ValidateMode) *fixture {
		f := newFixture(t, mode)
		f.prompt(t, "plain", &models.PromptVersion{Version: "1.0.0", UserTemplate: "{{ input }}"})
		f.policy(t, &models.Policy{ID: "v1", TeamID: "eng", Name: "NoSecrets", EnforcementType: models.EnforcementValidate, Content: "forbid:password, token"})
		f.policy(t, &models.Policy{ID: "v2", TeamID: "eng", Name: "Short", EnforcementType: models.EnforcementValidate, Content: "expr: len(message) < 200", Priority: 1})
		f.policy(t, &models.Policy{ID: "v3", TeamID: "eng", Name: "Ticket", EnforcementType: models.EnforcementValidate, Content: `regex:[A-Z]+-\d+`, Priority: 2})
		f.policy(t, &models.Policy{ID: "v4", TeamID: "eng", Name: "Footer", EnforcementType: models.EnforcementAppend, Content: "Thanks", Priority: 3})
		f.policy(t, &models.Policy{ID: "v5", TeamID: "eng", Name: "Polite", EnforcementType: models.EnforcementValidate, Content: "thanks", Priority: 4})

		return f
	}

	t.Run("soft mode reports results", func(t *testing.T) {
		f := setup(t, expansion.ValidateSoft)

		result, err := f.engine.Expand(t.Context(), models.Caller{TeamID: "eng"}, expansion.Request{
			PromptName: "plain",
			Input:      map[string]any{"input": "reset my password for OPS-12"},
		})
		require.NoError(t, err)

		assert.Equal(t, []string{"NoSecrets", "Short", "Ticket", "Footer", "Polite"}, result.AppliedPolicies)
		require.Len(t, result.PolicyResults, 5)
		assert.False(t, *result.PolicyResults[0].Passed)
		assert.Contains(t, result.PolicyResults[0].Note, "password")
		assert.True(t, *result.PolicyResults[1].Passed)
		assert.True(t, *result.PolicyResults[2].Passed)
		assert.Nil(t, result.PolicyResults[3].Passed)
		// Validation sees appended content.
		assert.True(t, *result.PolicyResults[4].Passed)
	})

	t.Run("strict mode rejects", func(t *testing.T) {
		f := setup(t, expansion.ValidateStrict)

		_, err := f.engine.Expand(t.Context(), models.Caller{TeamID: "eng"}, expansion.Request{
			PromptName: "plain",
			Input:      map[string]any{"input": "no ticket here"},
		})
		require.Error(t, err)

		var verr *errdefs.ValidationError
		require.ErrorAs(t, err, &verr)
		require.Len(t, verr.Fields, 1)
		assert.Equal(t, "Ticket", verr.Fields[0].Field)
	})

	t.Run("strict mode passes clean messages", func(t *testing.T) {
		f := setup(t, expansion.ValidateStrict)

		result, err := f.engine.Expand(t.Context(), models.Caller{TeamID: "eng"}, expansion.Request{
			PromptName: "plain",
			Input:      map[string]any{"input": "see OPS-7"},
		})
		require.NoError(t, err)
		assert.Equal(t, "see OPS-7\nThanks", result.UserMessage)
	})
}

func TestExpand_ProjectScope(t *testing.T) {
	f := newFixture(t, expansion.ValidateSoft)
	f.prompt(t, "plain", &models.PromptVersion{Version: "1.0.0", UserTemplate: "{{ input }}"})
	f.policy(t, &models.Policy{ID: "p1", TeamID: "sales", Name: "Upbeat", EnforcementType: models.EnforcementAppend, Content: "Stay upbeat"})
	f.policy(t, &models.Policy{ID: "p2", ProjectID: "crm", TeamID: "sales", Name: "CRM", EnforcementType: models.EnforcementAppend, Content: "Mention the CRM", Priority: 1})

	req := expansion.Request{PromptName: "plain", ProjectID: "crm", Input: map[string]any{"input": "hi"}}

	result, err := f.engine.Expand(t.Context(), models.Caller{TeamID: "sales"}, req)
	require.NoError(t, err)
	assert.Equal(t, "hi\nStay upbeat\nMention the CRM", result.UserMessage)

	_, err = f.engine.Expand(t.Context(), models.Caller{UserID: "ada", TeamID: "backend"}, req)
	assert.True(t, errdefs.IsScope(err))

	_, err = f.engine.Expand(t.Context(), models.Caller{UserID: "root", TeamID: "backend", Role: models.RoleAdmin}, req)
	assert.NoError(t, err)

	req.ProjectID = "ghost"
	_, err = f.engine.Expand(t.Context(), models.Caller{TeamID: "sales"}, req)
	assert.True(t, errdefs.IsNotFound(err))
}

func TestExpand_Objectives(t *testing.T) {
	f := newFixture(t, expansion.ValidateSoft)
	f.prompt(t, "plain", &models.PromptVersion{Version: "1.0.0", UserTemplate: "{{ input }}"})

	ctx := t.Context()
	require.NoError(t, f.p.ObjectiveRepository().Save(ctx, &models.Objective{ID: "o1", TeamID: "eng", Title: "Reliability", Status: models.ObjectiveActive, CreatedAt: base}))
	require.NoError(t, f.p.ObjectiveRepository().Save(ctx, &models.Objective{ID: "o2", UserID: "ada", Title: "Learn Go", Status: models.ObjectiveActive, CreatedAt: base}))

	result, err := f.engine.Expand(ctx, models.Caller{UserID: "ada", TeamID: "backend"}, expansion.Request{
		PromptName: "plain",
		Input:      map[string]any{"input": "hi"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Reliability", "Learn Go"}, result.Objectives)
	assert.Equal(t, "hi", result.UserMessage)
}

func TestExpand_Deterministic(t *testing.T) {
	f := newFixture(t, expansion.ValidateSoft)
	f.prompt(t, "greet", &models.PromptVersion{Version: "1.0.0", SystemTemplate: "S", UserTemplate: "Hello {{ name }}", InputSchema: requiredName()})
	f.policy(t, &models.Policy{ID: "p1", TeamID: "eng", Name: "A", EnforcementType: models.EnforcementAppend, Content: "one"})
	f.policy(t, &models.Policy{ID: "p2", TeamID: "eng", Name: "B", EnforcementType: models.EnforcementAppend, Content: "two"})

	req := expansion.Request{PromptName: "greet", Input: map[string]any{"name": "Ada"}}
	caller := models.Caller{TeamID: "backend"}

	first, err := f.engine.Expand(t.Context(), caller, req)
	require.NoError(t, err)

	second, err := f.engine.Expand(t.Context(), caller, req)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, f.recorder.records, 2)
	assert.True(t, f.recorder.records[1].Success)
	assert.Equal(t, "1.0.0", f.recorder.records[1].PromptVersion)
}

func TestExpand_IncludePrompt(t *testing.T) {
	f := newFixture(t, expansion.ValidateSoft)
	ctx := t.Context()

	f.prompt(t, "helper", &models.PromptVersion{Version: "1.0.0", SystemTemplate: "I am the helper system.", UserTemplate: "Helper says: {{ input }}"})
	f.prompt(t, "composer", &models.PromptVersion{Version: "1.0.0", UserTemplate: "Main task: {{ input }}\n\nContext:\n{{ include_prompt('helper') }}"})
	f.prompt(t, "leaf", &models.PromptVersion{Version: "1.0.0", UserTemplate: "LEAF:{{ input }}"})
	f.prompt(t, "middle", &models.PromptVersion{Version: "1.0.0", UserTemplate: "MIDDLE[{{ include_prompt('leaf') }}]"})
	f.prompt(t, "outer", &models.PromptVersion{Version: "1.0.0", UserTemplate: "OUTER[{{ include_prompt('middle') }}]"})
	f.prompt(t, "loop-a", &models.PromptVersion{Version: "1.0.0", UserTemplate: "A[{{ include_prompt('loop-b') }}]"})
	f.prompt(t, "loop-b", &models.PromptVersion{Version: "1.0.0", UserTemplate: "B[{{ include_prompt('loop-a') }}]"})
	f.prompt(t, "broken", &models.PromptVersion{Version: "1.0.0", UserTemplate: "Before {{ include_prompt('nonexistent') }} After"})
	f.prompt(t, "sys-composer", &models.PromptVersion{Version: "1.0.0", SystemTemplate: "Main system.\n{{ include_prompt('helper') }}", UserTemplate: "Do: {{ input }}"})

	expand := func(name string) *expansion.Result {
		result, err := f.engine.Expand(ctx, models.Caller{}, expansion.Request{PromptName: name, Input: map[string]any{"input": "x"}})
		require.NoError(t, err)

		return result
	}

	assert.Equal(t, "Main task: x\n\nContext:\nI am the helper system.\n\nHelper says: x", expand("composer").UserMessage)
	assert.Equal(t, "OUTER[MIDDLE[LEAF:x]]", expand("outer").UserMessage)
	assert.Equal(t, "A[B[A[B[A[B[[include error: max depth exceeded at 'loop-a']]]]]]]", expand("loop-a").UserMessage)
	assert.Equal(t, "Before [include error: prompt not found: 'nonexistent'] After", expand("broken").UserMessage)

	sys := expand("sys-composer")
	assert.Equal(t, "Main system.\nI am the helper system.\n\nHelper says: x", *sys.SystemMessage)
	assert.Equal(t, "Do: x", sys.UserMessage)
}

func TestParseValidateMode(t *testing.T) {
	mode, err := expansion.ParseValidateMode("")
	require.NoError(t, err)
	assert.Equal(t, expansion.ValidateSoft, mode)

	mode, err = expansion.ParseValidateMode("STRICT")
	require.NoError(t, err)
	assert.Equal(t, expansion.ValidateStrict, mode)

	_, err = expansion.ParseValidateMode("hard")
	assert.Error(t, err)
}
