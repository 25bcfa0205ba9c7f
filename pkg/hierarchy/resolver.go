// Package hierarchy walks the team forest.
package hierarchy

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/dukex/pcp/pkg/cache"
	"github.com/dukex/pcp/pkg/errdefs"
	"github.com/dukex/pcp/pkg/models"
	"github.com/dukex/pcp/pkg/persistence"
)

// Resolver computes ancestor paths. It never mutates team data.
type Resolver struct {
	teams    persistence.TeamRepository
	users    persistence.UserRepository
	projects persistence.ProjectRepository
	cache    cache.Cache
	logger   *slog.Logger
}

func NewResolver(p persistence.Persistence, c cache.Cache, logger *slog.Logger) *Resolver {
	if c == nil {
		c = cache.Noop{}
	}

	return &Resolver{
		teams:    p.TeamRepository(),
		users:    p.UserRepository(),
		projects: p.ProjectRepository(),
		cache:    c,
		logger:   logger,
	}
}

// AncestorPath returns [root, ..., parent, self] for teamID.
func (r *Resolver) AncestorPath(ctx context.Context, teamID string) ([]*models.Team, error) {
	key := cache.Key("path", teamID)

	var cached []*models.Team

	found, err := r.cache.Get(ctx, key, &cached)
	if err != nil {
		r.logger.WarnContext(ctx, "cache read failed", "key", key, "error", err)
	} else if found {
		return cached, nil
	}

	path, err := r.walk(ctx, teamID)
	if err != nil {
		return nil, err
	}

	err = r.cache.Set(ctx, key, path, IDs(path))
	if err != nil {
		r.logger.WarnContext(ctx, "cache write failed", "key", key, "error", err)
	}

	return path, nil
}

// walk follows parent_team_id iteratively with a visited set.
func (r *Resolver) walk(ctx context.Context, teamID string) ([]*models.Team, error) {
	visited := make(map[string]bool)
	chain := make([]*models.Team, 0, 4)
	current := teamID

	for current != "" {
		if visited[current] {
			trail := append(IDs(chain), current)

			return nil, &errdefs.CycleError{Kind: "team", Path: trail}
		}

		visited[current] = true

		team, err := r.teams.GetByID(ctx, current)
		if err != nil {
			return nil, fmt.Errorf("failed to load team %s: %w", current, err)
		}

		if team == nil {
			return nil, errdefs.NotFound("team", current)
		}

		chain = append(chain, team)
		current = team.ParentTeamID
	}

	slices.Reverse(chain)

	return chain, nil
}

// CheckParent validates that teamID may be re-parented under parentID without closing a
// cycle. An empty parentID always passes.
func (r *Resolver) CheckParent(ctx context.Context, teamID, parentID string) error {
	if parentID == "" {
		return nil
	}

	if parentID == teamID {
		return &errdefs.CycleError{Kind: "team", Path: []string{teamID, teamID}}
	}

	path, err := r.walk(ctx, parentID)
	if err != nil {
		return err
	}

	for i, team := range path {
		if team.ID == teamID {
			trail := append([]string{teamID}, IDs(path[i+1:])...)
			trail = append(trail, teamID)

			return &errdefs.CycleError{Kind: "team", Path: trail}
		}
	}

	return nil
}

// IsAncestor reports whether ancestorID is a strict ancestor of teamID.
func (r *Resolver) IsAncestor(ctx context.Context, ancestorID, teamID string) (bool, error) {
	path, err := r.AncestorPath(ctx, teamID)
	if err != nil {
		return false, err
	}

	for _, team := range path[:len(path)-1] {
		if team.ID == ancestorID {
			return true, nil
		}
	}

	return false, nil
}

// IDs returns the ids of teams in order.
func IDs(teams []*models.Team) []string {
	ids := make([]string, 0, len(teams))
	for _, team := range teams {
		ids = append(ids, team.ID)
	}

	return ids
}
