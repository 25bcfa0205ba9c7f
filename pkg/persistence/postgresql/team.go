package postgresql

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/dukex/pcp/pkg/models"
	"github.com/dukex/pcp/pkg/persistence"
)

const teamColumns = `id, name, slug, description, owner_id, parent_team_id, created_at, updated_at`

// TeamRepository handles team database operations.
type TeamRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewTeamRepository(db *sql.DB, logger *slog.Logger) *TeamRepository {
	return &TeamRepository{db: db, logger: logger}
}

func (r *TeamRepository) GetByID(ctx context.Context, id string) (*models.Team, error) {
	return queryOne(ctx, r.db, scanTeam, `SELECT `+teamColumns+` FROM teams WHERE id = $1`, id)
}

func (r *TeamRepository) GetBySlug(ctx context.Context, slug string) (*models.Team, error) {
	return queryOne(ctx, r.db, scanTeam, `SELECT `+teamColumns+` FROM teams WHERE slug = $1`, slug)
}

func (r *TeamRepository) GetAll(ctx context.Context) ([]*models.Team, error) {
	return queryAll(ctx, r.db, r.logger, scanTeam, `SELECT `+teamColumns+` FROM teams ORDER BY name, id`)
}

func (r *TeamRepository) ListChildren(ctx context.Context, parentID string) ([]*models.Team, error) {
	return queryAll(ctx, r.db, r.logger, scanTeam,
		`SELECT `+teamColumns+` FROM teams WHERE parent_team_id = $1 ORDER BY name, id`, parentID)
}

func (r *TeamRepository) Save(ctx context.Context, team *models.Team) error {
	touch(&team.CreatedAt, &team.UpdatedAt)

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO teams (`+teamColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			slug = EXCLUDED.slug,
			description = EXCLUDED.description,
			owner_id = EXCLUDED.owner_id,
			parent_team_id = EXCLUDED.parent_team_id,
			updated_at = EXCLUDED.updated_at
	`,
		team.ID,
		team.Name,
		team.Slug,
		team.Description,
		team.OwnerID,
		team.ParentTeamID,
		team.CreatedAt,
		team.UpdatedAt,
	)

	return writeError("Save", "team", team.ID, err)
}

func (r *TeamRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM teams WHERE id = $1`, id)

	return writeError("Delete", "team", id, err)
}

func scanTeam(row scanner) (*models.Team, error) {
	var t models.Team

	err := row.Scan(&t.ID, &t.Name, &t.Slug, &t.Description, &t.OwnerID, &t.ParentTeamID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}

	return &t, nil
}

var _ persistence.TeamRepository = (*TeamRepository)(nil)
