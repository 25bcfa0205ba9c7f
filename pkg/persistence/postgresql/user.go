package postgresql

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/dukex/pcp/pkg/models"
)

const userColumns = `id, team_id, username, display_name, email, role, active, created_at, updated_at`

// UserRepository handles user database operations.
type UserRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewUserRepository(db *sql.DB, logger *slog.Logger) *UserRepository {
	return &UserRepository{db: db, logger: logger}
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return queryOne(ctx, r.db, scanUser, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return queryOne(ctx, r.db, scanUser, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
}

func (r *UserRepository) ListByTeam(ctx context.Context, teamID string) ([]*models.User, error) {
	return queryAll(ctx, r.db, r.logger, scanUser,
		`SELECT `+userColumns+` FROM users WHERE team_id = $1 ORDER BY created_at, id`, teamID)
}

func (r *UserRepository) Save(ctx context.Context, user *models.User) error {
	touch(&user.CreatedAt, &user.UpdatedAt)

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			team_id = EXCLUDED.team_id,
			username = EXCLUDED.username,
			display_name = EXCLUDED.display_name,
			email = EXCLUDED.email,
			role = EXCLUDED.role,
			active = EXCLUDED.active,
			updated_at = EXCLUDED.updated_at
	`,
		user.ID,
		user.TeamID,
		user.Username,
		user.DisplayName,
		user.Email,
		string(user.Role),
		user.Active,
		user.CreatedAt,
		user.UpdatedAt,
	)

	return writeError("Save", "user", user.ID, err)
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)

	return writeError("Delete", "user", id, err)
}

func scanUser(row scanner) (*models.User, error) {
	var (
		u    models.User
		role string
	)

	err := row.Scan(&u.ID, &u.TeamID, &u.Username, &u.DisplayName, &u.Email, &role, &u.Active, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}

	u.Role = models.Role(role)

	return &u, nil
}
