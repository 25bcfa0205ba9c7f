package file

import (
	"context"

	"github.com/dukex/pcp/pkg/models"
	"github.com/dukex/pcp/pkg/persistence"
)

// UserRepository handles user file operations.
type UserRepository struct {
	store *store[models.User]
}

func NewUserRepository(root string) *UserRepository {
	return &UserRepository{store: newStore[models.User](root, "users")}
}

func (r *UserRepository) GetByID(_ context.Context, id string) (*models.User, error) {
	return r.store.get(id)
}

func (r *UserRepository) GetByUsername(_ context.Context, username string) (*models.User, error) {
	users, err := r.store.filter(func(u *models.User) bool { return u.Username == username })
	if err != nil || len(users) == 0 {
		return nil, err
	}

	return users[0], nil
}

func (r *UserRepository) ListByTeam(_ context.Context, teamID string) ([]*models.User, error) {
	return r.store.filter(func(u *models.User) bool { return u.TeamID == teamID })
}

func (r *UserRepository) Save(ctx context.Context, user *models.User) error {
	existing, err := r.GetByUsername(ctx, user.Username)
	if err != nil {
		return err
	}

	if existing != nil && existing.ID != user.ID {
		return persistence.NewRepositoryError("Save", "user", user.ID, persistence.ErrDuplicate)
	}

	touch(&user.CreatedAt, &user.UpdatedAt)

	return r.store.put(user.ID, user)
}

func (r *UserRepository) Delete(_ context.Context, id string) error {
	return r.store.remove(id)
}
