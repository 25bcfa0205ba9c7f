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
	"github.com/dukex/pcp/pkg/persistence"
	"github.com/go-playground/validator/v10"
)

// Hierarchy manages teams, users and projects.
type Hierarchy struct {
	teams    persistence.TeamRepository
	users    persistence.UserRepository
	projects persistence.ProjectRepository
	resolver *hierarchy.Resolver
	cache    cache.Cache
	access   access
	validate *validator.Validate
	logger   *slog.Logger
}

func NewHierarchy(
	p persistence.Persistence,
	resolver *hierarchy.Resolver,
	c cache.Cache,
	validate *validator.Validate,
	logger *slog.Logger,
) *Hierarchy {
	if c == nil {
		c = cache.Noop{}
	}

	return &Hierarchy{
		teams:    p.TeamRepository(),
		users:    p.UserRepository(),
		projects: p.ProjectRepository(),
		resolver: resolver,
		cache:    c,
		access:   access{resolver: resolver, projects: p.ProjectRepository()},
		validate: validate,
		logger:   logger,
	}
}

func (h *Hierarchy) GetTeam(ctx context.Context, id string) (*models.Team, error) {
	team, err := h.teams.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load team %s: %w", id, err)
	}

	if team == nil {
		return nil, errdefs.NotFound("team", id)
	}

	return team, nil
}

func (h *Hierarchy) ListTeams(ctx context.Context) ([]*models.Team, error) {
	return h.teams.GetAll(ctx)
}

// Ancestors returns the path from the root down to the team itself.
func (h *Hierarchy) Ancestors(ctx context.Context, id string) ([]*models.Team, error) {
	return h.resolver.AncestorPath(ctx, id)
}

// CreateTeam stores a new team. Root teams need an admin; child teams need a caller who
// may write the parent.
func (h *Hierarchy) CreateTeam(ctx context.Context, caller models.Caller, team *models.Team) (*models.Team, error) {
	err := validateModel(h.validate, "team", team)
	if err != nil {
		return nil, err
	}

	if team.ParentTeamID == "" && !caller.IsAdmin() {
		return nil, scopeDenied("create team", models.TeamScope(team.Slug), "only admins create root teams")
	}

	if team.ParentTeamID != "" {
		_, err := h.GetTeam(ctx, team.ParentTeamID)
		if err != nil {
			return nil, err
		}

		err = h.access.authorize(ctx, caller, "create team", models.TeamScope(team.ParentTeamID))
		if err != nil {
			return nil, err
		}
	}

	team.ID, err = newID()
	if err != nil {
		return nil, err
	}

	if team.OwnerID == "" {
		team.OwnerID = caller.UserID
	}

	err = h.teams.Save(ctx, team)
	if err != nil {
		return nil, writeError("team", team.Slug, err)
	}

	h.logger.InfoContext(ctx, "team created", "team_id", team.ID, "parent_team_id", team.ParentTeamID)

	return team, nil
}

// TeamUpdate carries the mutable team fields; nil leaves a field unchanged. An empty
// ParentTeamID makes the team a root.
type TeamUpdate struct {
	Name         *string
	Slug         *string
	Description  *string
	ParentTeamID *string
}

func (h *Hierarchy) UpdateTeam(ctx context.Context, caller models.Caller, id string, update TeamUpdate) (*models.Team, error) {
	team, err := h.GetTeam(ctx, id)
	if err != nil {
		return nil, err
	}

	err = h.access.authorize(ctx, caller, "update team", models.TeamScope(id))
	if err != nil {
		return nil, err
	}

	if update.Name != nil {
		team.Name = *update.Name
	}

	if update.Slug != nil {
		team.Slug = *update.Slug
	}

	if update.Description != nil {
		team.Description = *update.Description
	}

	if update.ParentTeamID != nil && *update.ParentTeamID != team.ParentTeamID {
		parentID := *update.ParentTeamID

		if parentID != "" {
			_, err := h.GetTeam(ctx, parentID)
			if err != nil {
				return nil, err
			}
		} else if !caller.IsAdmin() {
			return nil, scopeDenied("update team", models.TeamScope(id), "only admins create root teams")
		}

		err = h.resolver.CheckParent(ctx, id, parentID)
		if err != nil {
			return nil, err
		}

		team.ParentTeamID = parentID
	}

	err = validateModel(h.validate, "team", team)
	if err != nil {
		return nil, err
	}

	err = h.teams.Save(ctx, team)
	if err != nil {
		return nil, writeError("team", team.Slug, err)
	}

	h.invalidate(ctx, id)

	return team, nil
}

// DeleteTeam refuses teams that still have children.
func (h *Hierarchy) DeleteTeam(ctx context.Context, caller models.Caller, id string) error {
	_, err := h.GetTeam(ctx, id)
	if err != nil {
		return err
	}

	err = h.access.authorize(ctx, caller, "delete team", models.TeamScope(id))
	if err != nil {
		return err
	}

	children, err := h.teams.ListChildren(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to list children of %s: %w", id, err)
	}

	if len(children) > 0 {
		return &errdefs.ConflictError{Kind: "team", Key: id, Reason: fmt.Sprintf("has %d child teams", len(children))}
	}

	err = h.teams.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete team %s: %w", id, err)
	}

	h.invalidate(ctx, id)

	return nil
}

func (h *Hierarchy) GetUser(ctx context.Context, id string) (*models.User, error) {
	user, err := h.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load user %s: %w", id, err)
	}

	if user == nil {
		return nil, errdefs.NotFound("user", id)
	}

	return user, nil
}

func (h *Hierarchy) CreateUser(ctx context.Context, caller models.Caller, user *models.User) (*models.User, error) {
	err := validateModel(h.validate, "user", user)
	if err != nil {
		return nil, err
	}

	_, err = h.GetTeam(ctx, user.TeamID)
	if err != nil {
		return nil, err
	}

	err = h.access.authorize(ctx, caller, "create user", models.TeamScope(user.TeamID))
	if err != nil {
		return nil, err
	}

	if user.Role == "" {
		user.Role = models.RoleMember
	}

	if user.ID == "" {
		user.ID, err = newID()
		if err != nil {
			return nil, err
		}
	}

	user.Active = true

	err = h.users.Save(ctx, user)
	if err != nil {
		return nil, writeError("user", user.Username, err)
	}

	return user, nil
}

func (h *Hierarchy) GetProject(ctx context.Context, id string) (*models.Project, error) {
	project, err := h.projects.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load project %s: %w", id, err)
	}

	if project == nil {
		return nil, errdefs.NotFound("project", id)
	}

	return project, nil
}

func (h *Hierarchy) ListProjects(ctx context.Context, teamID string) ([]*models.Project, error) {
	_, err := h.GetTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}

	return h.projects.ListByTeam(ctx, teamID)
}

func (h *Hierarchy) CreateProject(ctx context.Context, caller models.Caller, project *models.Project) (*models.Project, error) {
	err := validateModel(h.validate, "project", project)
	if err != nil {
		return nil, err
	}

	_, err = h.GetTeam(ctx, project.TeamID)
	if err != nil {
		return nil, err
	}

	err = h.access.authorize(ctx, caller, "create project", models.TeamScope(project.TeamID))
	if err != nil {
		return nil, err
	}

	project.ID, err = newID()
	if err != nil {
		return nil, err
	}

	if project.LeadID == "" && caller.UserID != "" {
		project.LeadID = caller.UserID
	}

	err = h.projects.Save(ctx, project)
	if err != nil {
		return nil, writeError("project", project.Slug, err)
	}

	return project, nil
}

func (h *Hierarchy) DeleteProject(ctx context.Context, caller models.Caller, id string) error {
	_, err := h.GetProject(ctx, id)
	if err != nil {
		return err
	}

	err = h.access.authorize(ctx, caller, "delete project", models.ProjectScope(id))
	if err != nil {
		return err
	}

	err = h.projects.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete project %s: %w", id, err)
	}

	h.invalidate(ctx, id)

	return nil
}

// SetMember adds userID to the project or changes its role.
func (h *Hierarchy) SetMember(ctx context.Context, caller models.Caller, projectID, userID string, role models.ProjectRole) (*models.Project, error) {
	if role != models.ProjectRoleLead && role != models.ProjectRoleMember {
		return nil, errdefs.Invalid("project member", "role", "must be one of lead member")
	}

	project, err := h.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	err = h.access.authorize(ctx, caller, "update project members", models.ProjectScope(projectID))
	if err != nil {
		return nil, err
	}

	_, err = h.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	idx := slices.IndexFunc(project.Members, func(m models.ProjectMember) bool { return m.UserID == userID })
	if idx >= 0 {
		project.Members[idx].Role = role
	} else {
		project.Members = append(project.Members, models.ProjectMember{UserID: userID, Role: role, AddedAt: now()})
	}

	err = h.projects.Save(ctx, project)
	if err != nil {
		return nil, writeError("project", project.Slug, err)
	}

	return project, nil
}

func (h *Hierarchy) RemoveMember(ctx context.Context, caller models.Caller, projectID, userID string) (*models.Project, error) {
	project, err := h.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	err = h.access.authorize(ctx, caller, "update project members", models.ProjectScope(projectID))
	if err != nil {
		return nil, err
	}

	project.Members = slices.DeleteFunc(project.Members, func(m models.ProjectMember) bool { return m.UserID == userID })

	err = h.projects.Save(ctx, project)
	if err != nil {
		return nil, writeError("project", project.Slug, err)
	}

	return project, nil
}

func (h *Hierarchy) invalidate(ctx context.Context, scopeID string) {
	err := h.cache.Invalidate(ctx, scopeID)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to invalidate cache", "scope", scopeID, "error", err)
	}
}
