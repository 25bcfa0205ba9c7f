// Package objective computes effective objective sets for a scope.
package objective

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukex/pcp/pkg/cache"
	"github.com/dukex/pcp/pkg/hierarchy"
	"github.com/dukex/pcp/pkg/models"
	"github.com/dukex/pcp/pkg/persistence"
)

// Effective is the objective set visible at a scope. Returned objectives are copies with
// IsInherited computed relative to that scope.
type Effective struct {
	Inherited []*models.Objective `json:"inherited"`
	Local     []*models.Objective `json:"local"`
}

// Titles lists inherited titles followed by local ones. A local objective refining an
// inherited one does not hide it.
func (e *Effective) Titles() []string {
	titles := make([]string, 0, len(e.Inherited)+len(e.Local))

	for _, o := range e.Inherited {
		titles = append(titles, o.Title)
	}

	for _, o := range e.Local {
		titles = append(titles, o.Title)
	}

	return titles
}

// All returns inherited followed by local objectives.
func (e *Effective) All() []*models.Objective {
	all := make([]*models.Objective, 0, len(e.Inherited)+len(e.Local))
	all = append(all, e.Inherited...)

	return append(all, e.Local...)
}

type Aggregator struct {
	resolver   *hierarchy.Resolver
	objectives persistence.ObjectiveRepository
	cache      cache.Cache
	logger     *slog.Logger
}

func NewAggregator(
	resolver *hierarchy.Resolver,
	objectives persistence.ObjectiveRepository,
	c cache.Cache,
	logger *slog.Logger,
) *Aggregator {
	if c == nil {
		c = cache.Noop{}
	}

	return &Aggregator{resolver: resolver, objectives: objectives, cache: c, logger: logger}
}

// EffectiveObjectives returns the active objectives visible at scope. For a user scope the
// user's personal objectives follow the team's own in Local.
func (a *Aggregator) EffectiveObjectives(ctx context.Context, scope models.Scope) (*Effective, error) {
	key := cache.Key("objectives", scope.String())

	var cached Effective

	found, err := a.cache.Get(ctx, key, &cached)
	if err != nil {
		a.logger.WarnContext(ctx, "cache read failed", "key", key, "error", err)
	} else if found {
		return &cached, nil
	}

	loc, err := a.resolver.Locate(ctx, scope)
	if err != nil {
		return nil, err
	}

	effective, err := a.compute(ctx, loc)
	if err != nil {
		return nil, err
	}

	err = a.cache.Set(ctx, key, effective, loc.Deps())
	if err != nil {
		a.logger.WarnContext(ctx, "cache write failed", "key", key, "error", err)
	}

	return effective, nil
}

func (a *Aggregator) compute(ctx context.Context, loc *hierarchy.Location) (*Effective, error) {
	effective := &Effective{Inherited: []*models.Objective{}, Local: []*models.Objective{}}

	for _, team := range loc.Ancestors() {
		own, err := a.objectives.ListByTeam(ctx, team.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list objectives of team %s: %w", team.ID, err)
		}

		effective.Inherited = append(effective.Inherited, active(own, true)...)
	}

	teamID := loc.Team().ID

	teamOwn, err := a.objectives.ListByTeam(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list objectives of team %s: %w", teamID, err)
	}

	switch {
	case loc.Project != nil:
		effective.Inherited = append(effective.Inherited, active(teamOwn, true)...)

		own, err := a.objectives.ListByProject(ctx, loc.Project.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list objectives of project %s: %w", loc.Project.ID, err)
		}

		effective.Local = active(own, false)
	case loc.User != nil:
		effective.Local = active(teamOwn, false)

		own, err := a.objectives.ListByUser(ctx, loc.User.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list objectives of user %s: %w", loc.User.ID, err)
		}

		effective.Local = append(effective.Local, active(own, false)...)
	default:
		effective.Local = active(teamOwn, false)
	}

	return effective, nil
}

func active(objectives []*models.Objective, inherited bool) []*models.Objective {
	models.SortObjectives(objectives)

	kept := make([]*models.Objective, 0, len(objectives))

	for _, o := range objectives {
		if o.Status != models.ObjectiveActive {
			continue
		}

		cp := *o
		cp.IsInherited = inherited
		kept = append(kept, &cp)
	}

	return kept
}
