package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukex/pcp/pkg/cache"
	"github.com/dukex/pcp/pkg/errdefs"
	"github.com/dukex/pcp/pkg/hierarchy"
	"github.com/dukex/pcp/pkg/models"
	"github.com/dukex/pcp/pkg/persistence"
	"github.com/dukex/pcp/pkg/policy"
	"github.com/go-playground/validator/v10"
)

type Policies struct {
	policies   persistence.PolicyRepository
	aggregator *policy.Aggregator
	cache      cache.Cache
	access     access
	validate   *validator.Validate
	logger     *slog.Logger
}

func NewPolicies(
	p persistence.Persistence,
	resolver *hierarchy.Resolver,
	aggregator *policy.Aggregator,
	c cache.Cache,
	validate *validator.Validate,
	logger *slog.Logger,
) *Policies {
	if c == nil {
		c = cache.Noop{}
	}

	return &Policies{
		policies:   p.PolicyRepository(),
		aggregator: aggregator,
		cache:      c,
		access:     access{resolver: resolver, projects: p.ProjectRepository()},
		validate:   validate,
		logger:     logger,
	}
}

// Effective returns the inherited and local policies of scope.
func (s *Policies) Effective(ctx context.Context, scope models.Scope) (*policy.Effective, error) {
	return s.aggregator.EffectivePolicies(ctx, scope)
}

func (s *Policies) Get(ctx context.Context, id string) (*models.Policy, error) {
	p, err := s.policies.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load policy %s: %w", id, err)
	}

	if p == nil {
		return nil, errdefs.NotFound("policy", id)
	}

	return p, nil
}

// Create attaches a policy to exactly one of a team or a project. A project policy
// records the project's team as well.
func (s *Policies) Create(ctx context.Context, caller models.Caller, p *models.Policy) (*models.Policy, error) {
	if (p.TeamID == "") == (p.ProjectID == "") {
		return nil, errdefs.Invalid("policy", "scope", "exactly one of team_id or project_id is required")
	}

	err := validateModel(s.validate, "policy", p)
	if err != nil {
		return nil, err
	}

	scope := p.Scope()

	err = s.access.authorize(ctx, caller, "create policy", scope)
	if err != nil {
		return nil, err
	}

	if p.ProjectID != "" {
		project, err := s.access.projects.GetByID(ctx, p.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("failed to load project %s: %w", p.ProjectID, err)
		}

		if project == nil {
			return nil, errdefs.NotFound("project", p.ProjectID)
		}
	} else {
		_, err := s.access.resolver.AncestorPath(ctx, p.TeamID)
		if err != nil {
			return nil, err
		}
	}

	p.ID, err = newID()
	if err != nil {
		return nil, err
	}

	err = s.policies.Save(ctx, p)
	if err != nil {
		return nil, writeError("policy", p.Name, err)
	}

	s.invalidate(ctx, scope)

	return p, nil
}

// PolicyUpdate carries the mutable policy fields; nil leaves a field unchanged. The scope
// of a policy never changes.
type PolicyUpdate struct {
	Name            *string
	Description     *string
	EnforcementType *models.EnforcementType
	Content         *string
	Priority        *int
	Active          *bool
}

func (s *Policies) Update(ctx context.Context, caller models.Caller, id string, update PolicyUpdate) (*models.Policy, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	scope := p.Scope()

	err = s.access.authorize(ctx, caller, "update policy", scope)
	if err != nil {
		return nil, err
	}

	if update.Name != nil {
		p.Name = *update.Name
	}

	if update.Description != nil {
		p.Description = *update.Description
	}

	if update.EnforcementType != nil {
		p.EnforcementType = *update.EnforcementType
	}

	if update.Content != nil {
		p.Content = *update.Content
	}

	if update.Priority != nil {
		p.Priority = *update.Priority
	}

	if update.Active != nil {
		p.Active = *update.Active
	}

	err = validateModel(s.validate, "policy", p)
	if err != nil {
		return nil, err
	}

	err = s.policies.Save(ctx, p)
	if err != nil {
		return nil, writeError("policy", p.Name, err)
	}

	s.invalidate(ctx, scope)

	return p, nil
}

func (s *Policies) Delete(ctx context.Context, caller models.Caller, id string) error {
	p, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	scope := p.Scope()

	err = s.access.authorize(ctx, caller, "delete policy", scope)
	if err != nil {
		return err
	}

	err = s.policies.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete policy %s: %w", id, err)
	}

	s.invalidate(ctx, scope)

	return nil
}

func (s *Policies) invalidate(ctx context.Context, scope models.Scope) {
	err := s.cache.Invalidate(ctx, scope.ID)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to invalidate cache", "scope", scope.String(), "error", err)
	}
}
