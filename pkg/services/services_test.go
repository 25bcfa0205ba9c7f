package services

import (
	"log/slog"
	"testing"

	"github.com/dukex/pcp/pkg/models"
	"github.com/dukex/pcp/pkg/persistence"
	"github.com/dukex/pcp/pkg/persistence/file"
	"github.com/stretchr/testify/require"
)

var admin = models.Caller{UserID: "root", Role: models.RoleAdmin}

type fixture struct {
	p   persistence.Persistence
	svc *Services

	eng     *models.Team
	backend *models.Team
	sales   *models.Team
	ada     *models.User
	bob     *models.User
}

// newFixture builds eng > backend and a separate sales root, with ada in backend and bob
// in sales.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	ctx := t.Context()
	p := file.NewPersistence(t.TempDir())
	svc := New(Options{Persistence: p, Logger: slog.Default()})

	f := &fixture{p: p, svc: svc}

	var err error

	f.eng, err = svc.Hierarchy.CreateTeam(ctx, admin, &models.Team{Name: "Engineering", Slug: "eng"})
	require.NoError(t, err)

	f.backend, err = svc.Hierarchy.CreateTeam(ctx, admin, &models.Team{Name: "Backend", Slug: "backend", ParentTeamID: f.eng.ID})
	require.NoError(t, err)

	f.sales, err = svc.Hierarchy.CreateTeam(ctx, admin, &models.Team{Name: "Sales", Slug: "sales"})
	require.NoError(t, err)

	f.ada, err = svc.Hierarchy.CreateUser(ctx, admin, &models.User{TeamID: f.backend.ID, Username: "ada"})
	require.NoError(t, err)

	f.bob, err = svc.Hierarchy.CreateUser(ctx, admin, &models.User{TeamID: f.sales.ID, Username: "bob"})
	require.NoError(t, err)

	return f
}

func (f *fixture) caller(u *models.User) models.Caller {
	return models.Caller{UserID: u.ID, TeamID: u.TeamID, Role: models.RoleMember}
}

func ptr[T any](v T) *T {
	return &v
}
