package services

import (
	"context"
	"fmt"

	"github.com/dukex/pcp/pkg/errdefs"
	"github.com/dukex/pcp/pkg/hierarchy"
	"github.com/dukex/pcp/pkg/models"
	"github.com/dukex/pcp/pkg/persistence"
)

// access decides whether a caller may write to a scope. Admins always may; otherwise the
// caller's team must own the scope, and a user scope is writable only by that user.
type access struct {
	resolver *hierarchy.Resolver
	projects persistence.ProjectRepository
}

func (a access) authorize(ctx context.Context, caller models.Caller, op string, scope models.Scope) error {
	if caller.IsAdmin() {
		return nil
	}

	switch scope.Kind {
	case models.ScopeUser:
		if caller.UserID != scope.ID {
			return scopeDenied(op, scope, "personal scope of another user")
		}

		return nil
	case models.ScopeProject:
		project, err := a.projects.GetByID(ctx, scope.ID)
		if err != nil {
			return fmt.Errorf("failed to load project %s: %w", scope.ID, err)
		}

		if project == nil {
			return errdefs.NotFound("project", scope.ID)
		}

		return a.ownsTeam(ctx, caller, op, scope, project.TeamID)
	case models.ScopeTeam:
		return a.ownsTeam(ctx, caller, op, scope, scope.ID)
	default:
		return errdefs.Invalid("scope", "kind", fmt.Sprintf("unknown scope kind %q", scope.Kind))
	}
}

// ownsTeam passes when the caller belongs to teamID or to one of its ancestors.
func (a access) ownsTeam(ctx context.Context, caller models.Caller, op string, scope models.Scope, teamID string) error {
	if caller.TeamID == "" {
		return scopeDenied(op, scope, "caller has no team")
	}

	if caller.TeamID == teamID {
		return nil
	}

	ok, err := a.resolver.IsAncestor(ctx, caller.TeamID, teamID)
	if err != nil {
		return err
	}

	if !ok {
		return scopeDenied(op, scope, "scope is not owned by the caller's team")
	}

	return nil
}
