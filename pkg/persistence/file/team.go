package file

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/dukex/pcp/pkg/models"
	"github.com/dukex/pcp/pkg/persistence"
)

// TeamRepository handles team file operations.
type TeamRepository struct {
	store *store[models.Team]
}

func NewTeamRepository(root string) *TeamRepository {
	return &TeamRepository{store: newStore[models.Team](root, "teams")}
}

func (r *TeamRepository) GetByID(_ context.Context, id string) (*models.Team, error) {
	return r.store.get(id)
}

func (r *TeamRepository) GetBySlug(_ context.Context, slug string) (*models.Team, error) {
	teams, err := r.store.filter(func(t *models.Team) bool { return t.Slug == slug })
	if err != nil || len(teams) == 0 {
		return nil, err
	}

	return teams[0], nil
}

func (r *TeamRepository) GetAll(_ context.Context) ([]*models.Team, error) {
	teams, err := r.store.all()
	if err != nil {
		return nil, err
	}

	sortTeams(teams)

	return teams, nil
}

func (r *TeamRepository) ListChildren(_ context.Context, parentID string) ([]*models.Team, error) {
	teams, err := r.store.filter(func(t *models.Team) bool { return t.ParentTeamID == parentID })
	if err != nil {
		return nil, err
	}

	sortTeams(teams)

	return teams, nil
}

func (r *TeamRepository) Save(ctx context.Context, team *models.Team) error {
	existing, err := r.GetBySlug(ctx, team.Slug)
	if err != nil {
		return err
	}

	if existing != nil && existing.ID != team.ID {
		return persistence.NewRepositoryError("Save", "team", team.ID, persistence.ErrDuplicate)
	}

	touch(&team.CreatedAt, &team.UpdatedAt)

	return r.store.put(team.ID, team)
}

func (r *TeamRepository) Delete(_ context.Context, id string) error {
	return r.store.remove(id)
}

func sortTeams(teams []*models.Team) {
	slices.SortFunc(teams, func(a, b *models.Team) int {
		return strings.Compare(a.Name, b.Name)
	})
}

// touch stamps creation and update times the way every repository does on Save.
func touch(createdAt, updatedAt *time.Time) {
	now := time.Now().UTC()
	if createdAt.IsZero() {
		*createdAt = now
	}

	if updatedAt != nil {
		*updatedAt = now
	}
}
