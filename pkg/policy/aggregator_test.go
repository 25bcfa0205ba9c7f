package policy_test

import (
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/dukex/pcp/pkg/cache"
	"github.com/dukex/pcp/pkg/errdefs"
	"github.com/dukex/pcp/pkg/hierarchy"
	"github.com/dukex/pcp/pkg/models"
	"github.com/dukex/pcp/pkg/persistence"
	"github.com/dukex/pcp/pkg/persistence/file"
	"github.com/dukex/pcp/pkg/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func setup(t *testing.T, c cache.Cache) (persistence.Persistence, *policy.Aggregator) {
	t.Helper()

	ctx := t.Context()
	p := file.NewPersistence(t.TempDir())

	teams := []*models.Team{
		{ID: "eng", Name: "Engineering", Slug: "eng"},
		{ID: "backend", Name: "Backend", Slug: "backend", ParentTeamID: "eng"},
		{ID: "payments", Name: "Payments", Slug: "payments", ParentTeamID: "backend"},
	}
	for _, team := range teams {
		require.NoError(t, p.TeamRepository().Save(ctx, team))
	}

	require.NoError(t, p.ProjectRepository().Save(ctx, &models.Project{ID: "api", TeamID: "backend", Name: "API", Slug: "api"}))
	require.NoError(t, p.UserRepository().Save(ctx, &models.User{ID: "ada", TeamID: "backend", Username: "ada"}))

	policies := []*models.Policy{
		{ID: "p1", TeamID: "eng", Name: "Concise", EnforcementType: models.EnforcementPrepend, Content: "Be concise", Priority: 1, Active: true, CreatedAt: base},
		{ID: "p2", TeamID: "backend", Name: "Sources", EnforcementType: models.EnforcementAppend, Content: "Cite sources", Priority: 1, Active: true, CreatedAt: base},
		{ID: "p0", TeamID: "eng", Name: "Tone", EnforcementType: models.EnforcementPrepend, Content: "Be polite", Priority: 0, Active: true, CreatedAt: base.Add(time.Hour)},
		{ID: "px", TeamID: "eng", Name: "Retired", EnforcementType: models.EnforcementAppend, Content: "Old", Priority: 0, Active: false, CreatedAt: base},
		{ID: "pp", ProjectID: "api", TeamID: "backend", Name: "JSON", EnforcementType: models.EnforcementAppend, Content: "Answer in JSON", Priority: 5, Active: true, CreatedAt: base},
		{ID: "p3", TeamID: "payments", Name: "PCI", EnforcementType: models.EnforcementValidate, Content: "forbid:card number", Priority: 0, Active: true, CreatedAt: base},
	}
	for _, pol := range policies {
		require.NoError(t, p.PolicyRepository().Save(ctx, pol))
	}

	resolver := hierarchy.NewResolver(p, c, slog.Default())

	return p, policy.NewAggregator(resolver, p.PolicyRepository(), c, slog.Default())
}

func ids(policies []*models.Policy) []string {
	out := make([]string, 0, len(policies))
	for _, p := range policies {
		out = append(out, p.ID)
	}

	return out
}

func TestEffectivePolicies_TeamScope(t *testing.T) {
	_, agg := setup(t, nil)
	ctx := t.Context()

	t.Run("root team has no inherited policies", func(t *testing.T) {
		eff, err := agg.EffectivePolicies(ctx, models.TeamScope("eng"))
		require.NoError(t, err)
		assert.Empty(t, eff.Inherited)
		assert.Equal(t, []string{"p0", "p1"}, ids(eff.Local))
	})

	t.Run("sub-team inherits root policies", func(t *testing.T) {
		eff, err := agg.EffectivePolicies(ctx, models.TeamScope("backend"))
		require.NoError(t, err)
		assert.Equal(t, []string{"p0", "p1"}, ids(eff.Inherited))
		assert.Equal(t, []string{"p2"}, ids(eff.Local))
	})

	t.Run("inherited follows root to parent order", func(t *testing.T) {
		eff, err := agg.EffectivePolicies(ctx, models.TeamScope("payments"))
		require.NoError(t, err)
		assert.Equal(t, []string{"p0", "p1", "p2"}, ids(eff.Inherited))
		assert.Equal(t, []string{"p3"}, ids(eff.Local))
	})

	t.Run("inherited and local are disjoint", func(t *testing.T) {
		eff, err := agg.EffectivePolicies(ctx, models.TeamScope("payments"))
		require.NoError(t, err)

		for _, id := range ids(eff.Local) {
			assert.NotContains(t, ids(eff.Inherited), id)
		}
	})
}

func TestEffectivePolicies_ProjectScopeIsSupersetOfTeam(t *testing.T) {
	_, agg := setup(t, nil)
	ctx := t.Context()

	team, err := agg.EffectivePolicies(ctx, models.TeamScope("backend"))
	require.NoError(t, err)

	project, err := agg.EffectivePolicies(ctx, models.ProjectScope("api"))
	require.NoError(t, err)

	for _, id := range append(ids(team.Inherited), ids(team.Local)...) {
		assert.Contains(t, ids(project.Inherited), id)
	}

	assert.Equal(t, []string{"pp"}, ids(project.Local))
}

func TestEffectivePolicies_UserScopeUsesTeam(t *testing.T) {
	_, agg := setup(t, nil)

	eff, err := agg.EffectivePolicies(t.Context(), models.UserScope("ada"))
	require.NoError(t, err)
	assert.Equal(t, []string{"p0", "p1"}, ids(eff.Inherited))
	assert.Equal(t, []string{"p2"}, ids(eff.Local))
}

func TestEffectivePolicies_NotFound(t *testing.T) {
	_, agg := setup(t, nil)

	_, err := agg.EffectivePolicies(t.Context(), models.TeamScope("ghost"))
	assert.True(t, errdefs.IsNotFound(err))
}

func TestEffective_Merged(t *testing.T) {
	_, agg := setup(t, nil)

	eff, err := agg.EffectivePolicies(t.Context(), models.ProjectScope("api"))
	require.NoError(t, err)

	assert.Equal(t, []string{"p0", "p1", "p2", "pp"}, ids(eff.Merged()))
	assert.Equal(t, []string{"Tone", "Concise", "Sources", "JSON"}, eff.Names())
}

func TestEffective_MergedExtremePriorities(t *testing.T) {
	eff := &policy.Effective{
		Inherited: []*models.Policy{{ID: "late", Name: "late", Priority: 1}},
		Local:     []*models.Policy{{ID: "early", Name: "early", Priority: math.MinInt}, {ID: "last", Name: "last", Priority: math.MaxInt}},
	}

	assert.Equal(t, []string{"early", "late", "last"}, eff.Names())
}

func TestEffectivePolicies_CacheInvalidation(t *testing.T) {
	memory := cache.NewMemory(0, 0)
	p, agg := setup(t, memory)
	ctx := t.Context()

	eff, err := agg.EffectivePolicies(ctx, models.ProjectScope("api"))
	require.NoError(t, err)
	require.Len(t, eff.Inherited, 3)

	require.NoError(t, p.PolicyRepository().Save(ctx, &models.Policy{
		ID: "p9", TeamID: "eng", Name: "New", EnforcementType: models.EnforcementAppend,
		Content: "Fresh", Priority: 9, Active: true,
	}))
	require.NoError(t, memory.Invalidate(ctx, "eng"))

	eff, err = agg.EffectivePolicies(ctx, models.ProjectScope("api"))
	require.NoError(t, err)
	assert.Len(t, eff.Inherited, 4)
}
