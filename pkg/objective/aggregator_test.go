package objective_test

import (
	"log/slog"
	"testing"
	"time"

	"github.com/dukex/pcp/pkg/errdefs"
	"github.com/dukex/pcp/pkg/hierarchy"
	"github.com/dukex/pcp/pkg/models"
	"github.com/dukex/pcp/pkg/objective"
	"github.com/dukex/pcp/pkg/persistence/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) *objective.Aggregator {
	t.Helper()

	ctx := t.Context()
	p := file.NewPersistence(t.TempDir())
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, p.TeamRepository().Save(ctx, &models.Team{ID: "eng", Name: "Engineering", Slug: "eng"}))
	require.NoError(t, p.TeamRepository().Save(ctx, &models.Team{ID: "backend", Name: "Backend", Slug: "backend", ParentTeamID: "eng"}))
	require.NoError(t, p.ProjectRepository().Save(ctx, &models.Project{ID: "api", TeamID: "backend", Name: "API", Slug: "api"}))
	require.NoError(t, p.UserRepository().Save(ctx, &models.User{ID: "ada", TeamID: "backend", Username: "ada"}))

	objectives := []*models.Objective{
		{ID: "o1", TeamID: "eng", Title: "Reliability", Status: models.ObjectiveActive, CreatedAt: base},
		{ID: "o2", TeamID: "eng", Title: "Old goal", Status: models.ObjectiveArchived, CreatedAt: base},
		{ID: "o3", TeamID: "backend", Title: "99.9% uptime", ParentObjectiveID: "o1", Status: models.ObjectiveActive, CreatedAt: base},
		{ID: "o4", ProjectID: "api", TeamID: "backend", Title: "p99 under 200ms", Status: models.ObjectiveActive, CreatedAt: base},
		{ID: "o5", UserID: "ada", Title: "Learn Go", Status: models.ObjectiveActive, CreatedAt: base},
		{ID: "o6", TeamID: "backend", Title: "Done", Status: models.ObjectiveCompleted, CreatedAt: base},
	}
	for _, o := range objectives {
		require.NoError(t, p.ObjectiveRepository().Save(ctx, o))
	}

	resolver := hierarchy.NewResolver(p, nil, slog.Default())

	return objective.NewAggregator(resolver, p.ObjectiveRepository(), nil, slog.Default())
}

func TestEffectiveObjectives_Team(t *testing.T) {
	agg := setup(t)

	eff, err := agg.EffectiveObjectives(t.Context(), models.TeamScope("backend"))
	require.NoError(t, err)

	require.Len(t, eff.Inherited, 1)
	assert.Equal(t, "o1", eff.Inherited[0].ID)
	assert.True(t, eff.Inherited[0].IsInherited)

	require.Len(t, eff.Local, 1)
	assert.Equal(t, "o3", eff.Local[0].ID)
	assert.False(t, eff.Local[0].IsInherited)
	assert.Equal(t, "o1", eff.Local[0].ParentObjectiveID)

	// The refined parent stays visible.
	assert.Equal(t, []string{"Reliability", "99.9% uptime"}, eff.Titles())
}

func TestEffectiveObjectives_InheritedFlagIsRelative(t *testing.T) {
	agg := setup(t)
	ctx := t.Context()

	root, err := agg.EffectiveObjectives(ctx, models.TeamScope("eng"))
	require.NoError(t, err)
	require.Len(t, root.Local, 1)
	assert.False(t, root.Local[0].IsInherited)

	project, err := agg.EffectiveObjectives(ctx, models.ProjectScope("api"))
	require.NoError(t, err)
	assert.Len(t, project.Inherited, 2)

	for _, o := range project.Inherited {
		assert.True(t, o.IsInherited)
	}

	require.Len(t, project.Local, 1)
	assert.Equal(t, "o4", project.Local[0].ID)

	// Computing the project view does not leak into the team view.
	again, err := agg.EffectiveObjectives(ctx, models.TeamScope("backend"))
	require.NoError(t, err)
	assert.False(t, again.Local[0].IsInherited)
}

func TestEffectiveObjectives_User(t *testing.T) {
	agg := setup(t)

	eff, err := agg.EffectiveObjectives(t.Context(), models.UserScope("ada"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Reliability", "99.9% uptime", "Learn Go"}, eff.Titles())
	assert.Len(t, eff.All(), 3)
}

func TestEffectiveObjectives_NotFound(t *testing.T) {
	agg := setup(t)

	_, err := agg.EffectiveObjectives(t.Context(), models.UserScope("ghost"))
	assert.True(t, errdefs.IsNotFound(err))
}
