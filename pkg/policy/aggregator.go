// Package policy computes effective policy sets for a scope.
package policy

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/dukex/pcp/pkg/cache"
	"github.com/dukex/pcp/pkg/hierarchy"
	"github.com/dukex/pcp/pkg/models"
	"github.com/dukex/pcp/pkg/persistence"
)

// Effective is the policy set visible at a scope. Inherited entries are read-only there.
type Effective struct {
	Inherited []*models.Policy `json:"inherited"`
	Local     []*models.Policy `json:"local"`
}

// Merged returns the order policies are applied in: inherited then local, stable-sorted
// by priority.
func (e *Effective) Merged() []*models.Policy {
	merged := make([]*models.Policy, 0, len(e.Inherited)+len(e.Local))
	merged = append(merged, e.Inherited...)
	merged = append(merged, e.Local...)

	slices.SortStableFunc(merged, func(a, b *models.Policy) int {
		return cmp.Compare(a.Priority, b.Priority)
	})

	return merged
}

// Names returns policy names in application order.
func (e *Effective) Names() []string {
	merged := e.Merged()

	names := make([]string, 0, len(merged))
	for _, p := range merged {
		names = append(names, p.Name)
	}

	return names
}

type Aggregator struct {
	resolver *hierarchy.Resolver
	policies persistence.PolicyRepository
	cache    cache.Cache
	logger   *slog.Logger
}

func NewAggregator(
	resolver *hierarchy.Resolver,
	policies persistence.PolicyRepository,
	c cache.Cache,
	logger *slog.Logger,
) *Aggregator {
	if c == nil {
		c = cache.Noop{}
	}

	return &Aggregator{resolver: resolver, policies: policies, cache: c, logger: logger}
}

// EffectivePolicies returns the inherited and local active policies for scope. A user
// scope resolves to the user's team.
func (a *Aggregator) EffectivePolicies(ctx context.Context, scope models.Scope) (*Effective, error) {
	key := cache.Key("policies", scope.String())

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

	a.logger.DebugContext(ctx, "resolved effective policies",
		"scope", scope.String(),
		"inherited", len(effective.Inherited),
		"local", len(effective.Local))

	return effective, nil
}

func (a *Aggregator) compute(ctx context.Context, loc *hierarchy.Location) (*Effective, error) {
	effective := &Effective{Inherited: []*models.Policy{}, Local: []*models.Policy{}}

	for _, team := range loc.Ancestors() {
		own, err := a.teamPolicies(ctx, team.ID)
		if err != nil {
			return nil, err
		}

		effective.Inherited = append(effective.Inherited, own...)
	}

	teamOwn, err := a.teamPolicies(ctx, loc.Team().ID)
	if err != nil {
		return nil, err
	}

	if loc.Project == nil {
		effective.Local = teamOwn

		return effective, nil
	}

	effective.Inherited = append(effective.Inherited, teamOwn...)

	projectOwn, err := a.policies.ListByProject(ctx, loc.Project.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list policies of project %s: %w", loc.Project.ID, err)
	}

	effective.Local = active(projectOwn)

	return effective, nil
}

func (a *Aggregator) teamPolicies(ctx context.Context, teamID string) ([]*models.Policy, error) {
	own, err := a.policies.ListByTeam(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list policies of team %s: %w", teamID, err)
	}

	return active(own), nil
}

func active(policies []*models.Policy) []*models.Policy {
	kept := make([]*models.Policy, 0, len(policies))

	for _, p := range policies {
		if p.Active {
			kept = append(kept, p)
		}
	}

	models.SortPolicies(kept)

	return kept
}
