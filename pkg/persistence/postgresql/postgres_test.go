package postgresql_test

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/dukex/pcp/pkg/models"
	"github.com/dukex/pcp/pkg/persistence"
	"github.com/dukex/pcp/pkg/persistence/postgresql"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

var postgresContainer *postgres.PostgresContainer

var tables = []string{
	"usage_records", "shares", "workflows", "prompt_versions", "prompts",
	"objectives", "policies", "projects", "users", "teams", "schema_migrations",
}

func dropDb(ctx context.Context, t *testing.T, databaseURL string) {
	t.Helper()

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	for _, table := range tables {
		_, err = db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE")
		require.NoError(t, err)
	}

	require.NoError(t, db.Close())
}

func setupTestDB(t *testing.T) (*postgresql.Persistence, context.Context, string) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)

	if postgresContainer == nil || !postgresContainer.IsRunning() {
		var err error

		postgresContainer, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("pcp_test"),
			postgres.WithUsername("pcp"),
			postgres.WithPassword("pcp"),
			postgres.BasicWaitStrategies(),
		)
		require.NoError(t, err)
	}

	databaseURL, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	dropDb(ctx, t, databaseURL)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
	require.NoError(t, err)

	t.Cleanup(func() {
		dropDb(ctx, t, databaseURL)
		require.NoError(t, p.Close(ctx))
		cancel()
	})

	return p, ctx, databaseURL
}

func TestNewPersistence_Migrations(t *testing.T) {
	p, ctx, databaseURL := setupTestDB(t)
	require.NoError(t, p.HealthCheck(ctx))

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	defer func() { require.NoError(t, db.Close()) }()

	var version int

	err = db.QueryRowContext(ctx, "SELECT MAX(version) FROM schema_migrations").Scan(&version)
	require.NoError(t, err)
	assert.Equal(t, 2, version)

	// Re-running against an up to date schema is a no-op.
	again, err := postgresql.NewPersistence(ctx, slog.Default(), databaseURL)
	require.NoError(t, err)
	require.NoError(t, again.Close(ctx))
}

func TestTeamRepository(t *testing.T) {
	p, ctx, _ := setupTestDB(t)
	repo := p.TeamRepository()

	require.NoError(t, repo.Save(ctx, &models.Team{ID: "eng", Name: "Engineering", Slug: "eng"}))
	require.NoError(t, repo.Save(ctx, &models.Team{ID: "backend", Name: "Backend", Slug: "eng-backend", ParentTeamID: "eng"}))

	got, err := repo.GetByID(ctx, "backend")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "eng", got.ParentTeamID)

	missing, err := repo.GetByID(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	children, err := repo.ListChildren(ctx, "eng")
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, "backend", children[0].ID)

	err = repo.Save(ctx, &models.Team{ID: "other", Name: "Other", Slug: "eng"})
	assert.True(t, persistence.IsDuplicate(err))

	got.Name = "Backend Platform"
	require.NoError(t, repo.Save(ctx, got))

	bySlug, err := repo.GetBySlug(ctx, "eng-backend")
	require.NoError(t, err)
	assert.Equal(t, "Backend Platform", bySlug.Name)

	require.NoError(t, repo.Delete(ctx, "backend"))

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestUserAndProjectRepositories(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	require.NoError(t, p.UserRepository().Save(ctx, &models.User{ID: "ada", TeamID: "eng", Username: "ada", Role: models.RoleAdmin, Active: true}))

	user, err := p.UserRepository().GetByUsername(ctx, "ada")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, user.Role)

	err = p.UserRepository().Save(ctx, &models.User{ID: "ada2", TeamID: "eng", Username: "ada"})
	assert.True(t, persistence.IsDuplicate(err))

	project := &models.Project{
		ID: "crm", TeamID: "eng", Name: "CRM", Slug: "crm",
		Members: []models.ProjectMember{{UserID: "ada", Role: models.ProjectRoleLead}},
	}
	require.NoError(t, p.ProjectRepository().Save(ctx, project))

	got, err := p.ProjectRepository().GetByID(ctx, "crm")
	require.NoError(t, err)
	require.Len(t, got.Members, 1)
	assert.Equal(t, models.ProjectRoleLead, got.Members[0].Role)

	err = p.ProjectRepository().Save(ctx, &models.Project{ID: "crm2", TeamID: "eng", Name: "CRM 2", Slug: "crm"})
	assert.True(t, persistence.IsDuplicate(err))

	require.NoError(t, p.ProjectRepository().Save(ctx, &models.Project{ID: "crm3", TeamID: "sales", Name: "CRM", Slug: "crm"}))
}

func TestPolicyAndObjectiveRepositories(t *testing.T) {
	p, ctx, _ := setupTestDB(t)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	policies := p.PolicyRepository()
	require.NoError(t, policies.Save(ctx, &models.Policy{ID: "p2", TeamID: "eng", Name: "Second", EnforcementType: models.EnforcementAppend, Content: "b", Priority: 2, CreatedAt: base}))
	require.NoError(t, policies.Save(ctx, &models.Policy{ID: "p1", TeamID: "eng", Name: "First", EnforcementType: models.EnforcementPrepend, Content: "a", Priority: 1, CreatedAt: base}))
	require.NoError(t, policies.Save(ctx, &models.Policy{ID: "p3", TeamID: "eng", ProjectID: "crm", Name: "Project", EnforcementType: models.EnforcementInject, Content: "c"}))

	team, err := policies.ListByTeam(ctx, "eng")
	require.NoError(t, err)
	require.Len(t, team, 2)
	assert.Equal(t, "p1", team[0].ID)
	assert.Equal(t, models.EnforcementPrepend, team[0].EnforcementType)

	project, err := policies.ListByProject(ctx, "crm")
	require.NoError(t, err)
	require.Len(t, project, 1)

	objectives := p.ObjectiveRepository()
	require.NoError(t, objectives.Save(ctx, &models.Objective{ID: "o1", TeamID: "eng", Title: "Ship", Status: models.ObjectiveActive, IsInherited: true}))
	require.NoError(t, objectives.Save(ctx, &models.Objective{ID: "o2", UserID: "ada", Title: "Learn Go", Status: models.ObjectiveActive}))

	o1, err := objectives.GetByID(ctx, "o1")
	require.NoError(t, err)
	assert.False(t, o1.IsInherited)
	assert.Equal(t, models.ObjectiveActive, o1.Status)

	personal, err := objectives.ListByUser(ctx, "ada")
	require.NoError(t, err)
	require.Len(t, personal, 1)
	assert.Equal(t, "o2", personal[0].ID)
}

func TestPromptRepository(t *testing.T) {
	p, ctx, _ := setupTestDB(t)
	repo := p.PromptRepository()

	require.NoError(t, repo.Save(ctx, &models.Prompt{ID: "greet-id", Name: "greet"}))

	err := repo.Save(ctx, &models.Prompt{ID: "other-id", Name: "greet"})
	assert.True(t, persistence.IsDuplicate(err))

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.SaveVersion(ctx, &models.PromptVersion{
		ID: "v1", PromptID: "greet-id", Version: "1.0.0", UserTemplate: "Hello {{ name }}", CreatedAt: base,
		InputSchema: &models.JSONSchema{Type: "object", Properties: map[string]*models.Property{"name": {Type: "string"}}, Required: []string{"name"}},
		Tags:        []string{"stable"},
	}))
	require.NoError(t, repo.SaveVersion(ctx, &models.PromptVersion{
		ID: "v2", PromptID: "greet-id", Version: "2.0.0", UserTemplate: "Hi", CreatedAt: base.Add(time.Hour),
	}))

	err = repo.SaveVersion(ctx, &models.PromptVersion{ID: "v3", PromptID: "greet-id", Version: "1.0.0", UserTemplate: "x"})
	assert.True(t, persistence.IsDuplicate(err))

	versions, err := repo.ListVersions(ctx, "greet-id")
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, "1.0.0", versions[0].Version)
	assert.Equal(t, []string{"stable"}, versions[0].Tags)
	require.NotNil(t, versions[0].InputSchema)
	assert.Equal(t, []string{"name"}, versions[0].InputSchema.Required)
	assert.Nil(t, versions[1].InputSchema)
	assert.Equal(t, []string{}, versions[1].Tags)

	require.NoError(t, repo.Delete(ctx, "greet-id"))

	versions, err = repo.ListVersions(ctx, "greet-id")
	require.NoError(t, err)
	assert.Empty(t, versions)
}

func TestWorkflowAndShareRepositories(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	workflow := &models.Workflow{
		ID: "wf1", UserID: "ada", Name: "Pipeline",
		Steps: []models.WorkflowStep{
			{ID: "a", PromptName: "summarize", OutputKey: "summary"},
			{ID: "b", PromptName: "translate", DependsOn: []string{"a"}, InputMapping: map[string]string{"text": "{{ steps.a.summary }}"}},
		},
	}
	require.NoError(t, p.WorkflowRepository().Save(ctx, workflow))

	got, err := p.WorkflowRepository().GetByID(ctx, "wf1")
	require.NoError(t, err)
	require.Len(t, got.Steps, 2)
	assert.Equal(t, []string{"a"}, got.Steps[1].DependsOn)
	assert.Equal(t, "{{ steps.a.summary }}", got.Steps[1].InputMapping["text"])

	owned, err := p.WorkflowRepository().ListByOwner(ctx, "ada")
	require.NoError(t, err)
	assert.Len(t, owned, 1)

	shares := p.ShareRepository()
	require.NoError(t, shares.Save(ctx, &models.Share{ResourceID: "wf1", UserID: "bob"}))
	require.NoError(t, shares.Save(ctx, &models.Share{ResourceID: "wf1", UserID: "bob"}))

	byResource, err := shares.ListByResource(ctx, "wf1")
	require.NoError(t, err)
	assert.Len(t, byResource, 1)

	require.NoError(t, p.WorkflowRepository().Delete(ctx, "wf1"))

	share, err := shares.Get(ctx, "wf1", "bob")
	require.NoError(t, err)
	assert.Nil(t, share)
}

func TestUsageRepository(t *testing.T) {
	p, ctx, _ := setupTestDB(t)
	repo := p.UsageRepository()
	now := time.Now().UTC()

	require.NoError(t, repo.Save(ctx, &models.UsageRecord{ID: "old", PromptName: "greet", Success: true, CreatedAt: now.Add(-48 * time.Hour)}))
	require.NoError(t, repo.Save(ctx, &models.UsageRecord{ID: "new", PromptName: "greet", Success: false, Error: "boom", CreatedAt: now}))
	require.NoError(t, repo.Save(ctx, &models.UsageRecord{ID: "new", PromptName: "greet", CreatedAt: now}))

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	recent, err := repo.ListSince(ctx, now.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "boom", recent[0].Error)

	deleted, err := repo.DeleteBefore(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
}
