package hierarchy

import (
	"context"
	"fmt"

	"github.com/dukex/pcp/pkg/errdefs"
	"github.com/dukex/pcp/pkg/models"
)

// Location is a scope placed in the team forest. Path always ends with the team the scope
// belongs to: the team itself, the project's owning team, or the user's team.
type Location struct {
	Scope   models.Scope
	Path    []*models.Team
	Project *models.Project
	User    *models.User
}

// Team returns the team the scope belongs to.
func (l *Location) Team() *models.Team {
	return l.Path[len(l.Path)-1]
}

// Ancestors returns the strict ancestors of the scope's team, root first.
func (l *Location) Ancestors() []*models.Team {
	return l.Path[:len(l.Path)-1]
}

// Deps returns every scope id the location was computed from.
func (l *Location) Deps() []string {
	deps := IDs(l.Path)

	if l.Project != nil {
		deps = append(deps, l.Project.ID)
	}

	if l.User != nil {
		deps = append(deps, l.User.ID)
	}

	return deps
}

// Locate resolves a team, project or user scope to its place in the hierarchy.
func (r *Resolver) Locate(ctx context.Context, scope models.Scope) (*Location, error) {
	if !scope.Valid() {
		return nil, errdefs.Invalid("scope", "kind", fmt.Sprintf("unknown scope %q", scope.String()))
	}

	loc := &Location{Scope: scope}
	teamID := scope.ID

	switch scope.Kind {
	case models.ScopeProject:
		project, err := r.projects.GetByID(ctx, scope.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load project %s: %w", scope.ID, err)
		}

		if project == nil {
			return nil, errdefs.NotFound("project", scope.ID)
		}

		loc.Project = project
		teamID = project.TeamID
	case models.ScopeUser:
		user, err := r.users.GetByID(ctx, scope.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load user %s: %w", scope.ID, err)
		}

		if user == nil {
			return nil, errdefs.NotFound("user", scope.ID)
		}

		loc.User = user
		teamID = user.TeamID
	}

	path, err := r.AncestorPath(ctx, teamID)
	if err != nil {
		return nil, err
	}

	loc.Path = path

	return loc, nil
}
