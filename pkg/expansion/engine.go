// Package expansion renders prompt versions into final messages under the effective
// policies of the caller's scope.
package expansion

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"strings"
	"time"

	"github.com/dukex/pcp/pkg/errdefs"
	"github.com/dukex/pcp/pkg/log"
	"github.com/dukex/pcp/pkg/models"
	"github.com/dukex/pcp/pkg/objective"
	"github.com/dukex/pcp/pkg/otelhelper"
	"github.com/dukex/pcp/pkg/persistence"
	"github.com/dukex/pcp/pkg/policy"
	"github.com/dukex/pcp/pkg/template"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ValidateMode controls what a failing validate policy does.
type ValidateMode string

const (
	// ValidateSoft reports failures in the result.
	ValidateSoft ValidateMode = "soft"
	// ValidateStrict rejects the expansion with a ValidationError.
	ValidateStrict ValidateMode = "strict"
)

// ParseValidateMode accepts "soft", "strict" or "" (soft).
func ParseValidateMode(s string) (ValidateMode, error) {
	switch ValidateMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ValidateSoft:
		return ValidateSoft, nil
	case ValidateStrict:
		return ValidateStrict, nil
	default:
		return "", fmt.Errorf("unknown validate mode %q", s)
	}
}

const DefaultMaxIncludeDepth = 5

type Request struct {
	PromptName string         `json:"prompt_name"`
	Version    string         `json:"version,omitempty"`
	ProjectID  string         `json:"project_id,omitempty"`
	Input      map[string]any `json:"input"`
}

type Result struct {
	PromptName      string         `json:"prompt_name"`
	PromptVersion   string         `json:"prompt_version"`
	SystemMessage   *string        `json:"system_message,omitempty"`
	UserMessage     string         `json:"user_message"`
	AppliedPolicies []string       `json:"applied_policies"`
	PolicyResults   []PolicyResult `json:"policy_results"`
	Objectives      []string       `json:"objectives"`
}

// Recorder receives one usage record per expansion. Implementations must not block.
type Recorder interface {
	Record(ctx context.Context, record *models.UsageRecord)
}

type Config struct {
	ValidateMode    ValidateMode
	MaxIncludeDepth int
}

type Engine struct {
	prompts    persistence.PromptRepository
	projects   persistence.ProjectRepository
	users      persistence.UserRepository
	policies   *policy.Aggregator
	objectives *objective.Aggregator
	recorder   Recorder
	tracer     trace.Tracer
	logger     *slog.Logger
	config     Config
}

func NewEngine(
	p persistence.Persistence,
	policies *policy.Aggregator,
	objectives *objective.Aggregator,
	recorder Recorder,
	tracer trace.Tracer,
	logger *slog.Logger,
	config Config,
) *Engine {
	if config.ValidateMode == "" {
		config.ValidateMode = ValidateSoft
	}

	if config.MaxIncludeDepth <= 0 {
		config.MaxIncludeDepth = DefaultMaxIncludeDepth
	}

	if tracer == nil {
		tracer = otelhelper.Noop()
	}

	return &Engine{
		prompts:    p.PromptRepository(),
		projects:   p.ProjectRepository(),
		users:      p.UserRepository(),
		policies:   policies,
		objectives: objectives,
		recorder:   recorder,
		tracer:     tracer,
		logger:     logger,
		config:     config,
	}
}

// Expand renders the requested prompt version for caller. Validate policy failures are
// reported in the result unless the engine runs in strict mode.
func (e *Engine) Expand(ctx context.Context, caller models.Caller, req Request) (*Result, error) {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "expansion.expand",
		attribute.String(otelhelper.PromptNameKey, req.PromptName),
		attribute.String(otelhelper.CallerIDKey, caller.UserID),
	)
	defer span.End()

	start := time.Now()

	result, err := e.expand(ctx, caller, req)

	version := req.Version
	if result != nil {
		version = result.PromptVersion
	}

	span.SetAttributes(attribute.String(otelhelper.PromptVersionKey, version))

	if result != nil {
		span.SetAttributes(attribute.Int(otelhelper.PolicyCountKey, len(result.AppliedPolicies)))
	}

	if err != nil {
		otelhelper.SetError(span, err)
		log.FromContext(ctx, e.logger).InfoContext(ctx, "expansion failed", "prompt", req.PromptName, "version", version, "error", err)
	}

	e.record(ctx, req.PromptName, version, time.Since(start), err)

	return result, err
}

func (e *Engine) expand(ctx context.Context, caller models.Caller, req Request) (*Result, error) {
	prompt, version, err := e.resolve(ctx, req.PromptName, req.Version)
	if err != nil {
		return nil, err
	}

	subject := fmt.Sprintf("prompt %s@%s", prompt.Name, version.Version)

	vars, err := validateInput(subject, version.InputSchema, req.Input)
	if err != nil {
		return nil, err
	}

	scope, scoped, err := e.scopeFor(ctx, caller, prompt, req.ProjectID)
	if err != nil {
		return nil, err
	}

	var (
		applied    []*models.Policy
		objectives []string
	)

	if scoped {
		effective, err := e.policies.EffectivePolicies(ctx, scope)
		if err != nil {
			return nil, err
		}

		for _, p := range effective.Merged() {
			if _, ok := handlers[p.EnforcementType]; !ok {
				log.FromContext(ctx, e.logger).WarnContext(ctx, "skipping policy with unknown enforcement type",
					"policy", p.ID, "enforcement", p.EnforcementType)

				continue
			}

			applied = append(applied, p)
		}

		effectiveObjectives, err := e.objectives.EffectiveObjectives(ctx, scope)
		if err != nil {
			return nil, err
		}

		objectives = effectiveObjectives.Titles()
	}

	input := vars

	// Injected values shadow input keys of the same name. They are inserted verbatim.
	vars = make(map[string]any, len(input)+len(applied))
	maps.Copy(vars, input)

	for _, p := range applied {
		handlers[p.EnforcementType].inject(vars, p)
	}

	m := &messages{input: input}
	m.system, m.user = e.render(ctx, version, vars, 0)

	results := make([]PolicyResult, len(applied))

	for i, p := range applied {
		if h := handlers[p.EnforcementType]; !h.checks() {
			results[i] = h.apply(m, p)
		}
	}

	m.finish()

	var failures []errdefs.FieldError

	for i, p := range applied {
		if h := handlers[p.EnforcementType]; h.checks() {
			results[i] = h.apply(m, p)

			if !*results[i].Passed {
				failures = append(failures, errdefs.FieldError{Field: p.Name, Reason: results[i].Note})
			}
		}
	}

	if len(failures) > 0 && e.config.ValidateMode == ValidateStrict {
		return nil, &errdefs.ValidationError{Subject: subject + " policies", Fields: failures}
	}

	names := make([]string, 0, len(applied))
	for _, p := range applied {
		names = append(names, p.Name)
	}

	if objectives == nil {
		objectives = []string{}
	}

	return &Result{
		PromptName:      prompt.Name,
		PromptVersion:   version.Version,
		SystemMessage:   m.system,
		UserMessage:     m.user,
		AppliedPolicies: names,
		PolicyResults:   results,
		Objectives:      objectives,
	}, nil
}

// resolve loads a non-deprecated prompt and the version an expansion should use.
func (e *Engine) resolve(ctx context.Context, name, label string) (*models.Prompt, *models.PromptVersion, error) {
	prompt, err := e.prompts.GetByName(ctx, name)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load prompt %s: %w", name, err)
	}

	if prompt == nil {
		return nil, nil, errdefs.NotFound("prompt", name)
	}

	if prompt.Deprecated {
		return nil, nil, &errdefs.NotFoundError{Kind: "prompt", Key: name, Reason: "deprecated"}
	}

	versions, err := e.prompts.ListVersions(ctx, prompt.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list versions of %s: %w", name, err)
	}

	version := models.ResolveVersion(prompt, versions, label)
	if version == nil {
		if label != "" {
			return nil, nil, errdefs.NotFound("version", name+"@"+label)
		}

		return nil, nil, &errdefs.NotFoundError{Kind: "version", Key: name, Reason: "prompt has no versions"}
	}

	return prompt, version, nil
}

// scopeFor picks the scope whose policies apply. It reports false when no scope can be
// derived, in which case no policies or objectives are used.
func (e *Engine) scopeFor(
	ctx context.Context,
	caller models.Caller,
	prompt *models.Prompt,
	projectID string,
) (models.Scope, bool, error) {
	if projectID != "" {
		project, err := e.projects.GetByID(ctx, projectID)
		if err != nil {
			return models.Scope{}, false, fmt.Errorf("failed to load project %s: %w", projectID, err)
		}

		if project == nil {
			return models.Scope{}, false, errdefs.NotFound("project", projectID)
		}

		if caller.TeamID != "" && !caller.IsAdmin() && project.TeamID != caller.TeamID {
			return models.Scope{}, false, &errdefs.ScopeError{
				Op:     "expand " + prompt.Name,
				Scope:  models.ProjectScope(projectID).String(),
				Reason: "project is not owned by the caller's team",
			}
		}

		return models.ProjectScope(projectID), true, nil
	}

	if caller.UserID != "" {
		user, err := e.users.GetByID(ctx, caller.UserID)
		if err != nil {
			return models.Scope{}, false, fmt.Errorf("failed to load user %s: %w", caller.UserID, err)
		}

		if user != nil {
			return models.UserScope(user.ID), true, nil
		}
	}

	if caller.TeamID != "" {
		return models.TeamScope(caller.TeamID), true, nil
	}

	if prompt.UserID != "" {
		owner, err := e.users.GetByID(ctx, prompt.UserID)
		if err != nil {
			return models.Scope{}, false, fmt.Errorf("failed to load user %s: %w", prompt.UserID, err)
		}

		if owner != nil {
			return models.UserScope(owner.ID), true, nil
		}
	}

	return models.Scope{}, false, nil
}

func (e *Engine) record(ctx context.Context, name, version string, latency time.Duration, err error) {
	if e.recorder == nil {
		return
	}

	record := &models.UsageRecord{
		PromptName:    name,
		PromptVersion: version,
		Success:       err == nil,
		LatencyMS:     latency.Milliseconds(),
		CreatedAt:     time.Now().UTC(),
	}

	if err != nil {
		record.Error = err.Error()
	}

	e.recorder.Record(ctx, record)
}

// render renders both templates of version at the given include depth.
func (e *Engine) render(ctx context.Context, version *models.PromptVersion, vars map[string]any, depth int) (*string, string) {
	opts := template.Options{Include: e.includer(ctx, vars, depth)}

	var system *string

	if version.SystemTemplate != "" {
		rendered := template.RenderWith(version.SystemTemplate, vars, opts)
		system = &rendered
	}

	return system, template.RenderWith(version.UserTemplate, vars, opts)
}
