package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/dukex/pcp/pkg/cache"
	"github.com/dukex/pcp/pkg/errdefs"
	"github.com/dukex/pcp/pkg/hierarchy"
	"github.com/dukex/pcp/pkg/models"
	"github.com/dukex/pcp/pkg/objective"
	"github.com/dukex/pcp/pkg/persistence"
	"github.com/go-playground/validator/v10"
)

type Objectives struct {
	objectives persistence.ObjectiveRepository
	resolver   *hierarchy.Resolver
	aggregator *objective.Aggregator
	cache      cache.Cache
	access     access
	validate   *validator.Validate
	logger     *slog.Logger
}

func NewObjectives(
	p persistence.Persistence,
	resolver *hierarchy.Resolver,
	aggregator *objective.Aggregator,
	c cache.Cache,
	validate *validator.Validate,
	logger *slog.Logger,
) *Objectives {
	if c == nil {
		c = cache.Noop{}
	}

	return &Objectives{
		objectives: p.ObjectiveRepository(),
		resolver:   resolver,
		aggregator: aggregator,
		cache:      c,
		access:     access{resolver: resolver, projects: p.ProjectRepository()},
		validate:   validate,
		logger:     logger,
	}
}

// Effective returns the inherited and local objectives of scope.
func (s *Objectives) Effective(ctx context.Context, scope models.Scope) (*objective.Effective, error) {
	return s.aggregator.EffectiveObjectives(ctx, scope)
}

func (s *Objectives) Get(ctx context.Context, id string) (*models.Objective, error) {
	o, err := s.objectives.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load objective %s: %w", id, err)
	}

	if o == nil {
		return nil, errdefs.NotFound("objective", id)
	}

	return o, nil
}

// Create attaches an objective to exactly one of a team, a project or a user.
func (s *Objectives) Create(ctx context.Context, caller models.Caller, o *models.Objective) (*models.Objective, error) {
	set := 0

	for _, id := range []string{o.TeamID, o.ProjectID, o.UserID} {
		if id != "" {
			set++
		}
	}

	if set != 1 {
		return nil, errdefs.Invalid("objective", "scope", "exactly one of team_id, project_id or user_id is required")
	}

	if o.Status == "" {
		o.Status = models.ObjectiveActive
	}

	err := s.check(o)
	if err != nil {
		return nil, err
	}

	scope := o.Scope()

	err = s.access.authorize(ctx, caller, "create objective", scope)
	if err != nil {
		return nil, err
	}

	err = s.checkParent(ctx, o)
	if err != nil {
		return nil, err
	}

	o.ID, err = newID()
	if err != nil {
		return nil, err
	}

	err = s.objectives.Save(ctx, o)
	if err != nil {
		return nil, writeError("objective", o.Title, err)
	}

	s.invalidate(ctx, scope)

	return o, nil
}

// ObjectiveUpdate carries the mutable objective fields; nil leaves a field unchanged.
type ObjectiveUpdate struct {
	Title             *string
	Description       *string
	Status            *models.ObjectiveStatus
	ParentObjectiveID *string
}

func (s *Objectives) Update(ctx context.Context, caller models.Caller, id string, update ObjectiveUpdate) (*models.Objective, error) {
	o, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	scope := o.Scope()

	err = s.access.authorize(ctx, caller, "update objective", scope)
	if err != nil {
		return nil, err
	}

	if update.Title != nil {
		o.Title = *update.Title
	}

	if update.Description != nil {
		o.Description = *update.Description
	}

	if update.Status != nil {
		o.Status = *update.Status
	}

	if update.ParentObjectiveID != nil {
		o.ParentObjectiveID = *update.ParentObjectiveID

		err = s.checkParent(ctx, o)
		if err != nil {
			return nil, err
		}
	}

	err = s.check(o)
	if err != nil {
		return nil, err
	}

	err = s.objectives.Save(ctx, o)
	if err != nil {
		return nil, writeError("objective", o.Title, err)
	}

	s.invalidate(ctx, scope)

	return o, nil
}

func (s *Objectives) Delete(ctx context.Context, caller models.Caller, id string) error {
	o, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	scope := o.Scope()

	err = s.access.authorize(ctx, caller, "delete objective", scope)
	if err != nil {
		return err
	}

	err = s.objectives.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete objective %s: %w", id, err)
	}

	s.invalidate(ctx, scope)

	return nil
}

func (s *Objectives) check(o *models.Objective) error {
	err := validateModel(s.validate, "objective", o)
	if err != nil {
		return err
	}

	if !o.Status.Valid() {
		return errdefs.Invalid("objective", "status", "must be one of active completed archived")
	}

	return nil
}

// checkParent requires the parent objective to be a team objective of a strict ancestor
// scope: an ancestor team for team objectives, the owning team or one of its ancestors
// for project and personal objectives.
func (s *Objectives) checkParent(ctx context.Context, o *models.Objective) error {
	if o.ParentObjectiveID == "" {
		return nil
	}

	parent, err := s.Get(ctx, o.ParentObjectiveID)
	if err != nil {
		return err
	}

	loc, err := s.resolver.Locate(ctx, o.Scope())
	if err != nil {
		return err
	}

	allowed := loc.Path
	if o.Scope().Kind == models.ScopeTeam {
		allowed = loc.Ancestors()
	}

	teamScoped := parent.ProjectID == "" && parent.UserID == ""
	if !teamScoped || !slices.Contains(hierarchy.IDs(allowed), parent.TeamID) {
		return errdefs.Invalid("objective", "parent_objective_id", "must belong to an ancestor scope")
	}

	return nil
}

func (s *Objectives) invalidate(ctx context.Context, scope models.Scope) {
	err := s.cache.Invalidate(ctx, scope.ID)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to invalidate cache", "scope", scope.String(), "error", err)
	}
}
