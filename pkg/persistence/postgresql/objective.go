package postgresql

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/dukex/pcp/pkg/models"
)

const objectiveColumns = `id, team_id, project_id, user_id, title, description, parent_objective_id, status, created_at, updated_at`

// ObjectiveRepository handles objective database operations. The inherited flag is
// computed on read by the aggregator and never stored.
type ObjectiveRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewObjectiveRepository(db *sql.DB, logger *slog.Logger) *ObjectiveRepository {
	return &ObjectiveRepository{db: db, logger: logger}
}

func (r *ObjectiveRepository) GetByID(ctx context.Context, id string) (*models.Objective, error) {
	return queryOne(ctx, r.db, scanObjective, `SELECT `+objectiveColumns+` FROM objectives WHERE id = $1`, id)
}

func (r *ObjectiveRepository) ListByTeam(ctx context.Context, teamID string) ([]*models.Objective, error) {
	return r.list(ctx, `team_id = $1 AND project_id = '' AND user_id = ''`, teamID)
}

func (r *ObjectiveRepository) ListByProject(ctx context.Context, projectID string) ([]*models.Objective, error) {
	return r.list(ctx, `project_id = $1`, projectID)
}

func (r *ObjectiveRepository) ListByUser(ctx context.Context, userID string) ([]*models.Objective, error) {
	return r.list(ctx, `user_id = $1 AND project_id = ''`, userID)
}

func (r *ObjectiveRepository) list(ctx context.Context, where string, arg string) ([]*models.Objective, error) {
	return queryAll(ctx, r.db, r.logger, scanObjective,
		`SELECT `+objectiveColumns+` FROM objectives WHERE `+where+` ORDER BY created_at, id`, arg)
}

func (r *ObjectiveRepository) Save(ctx context.Context, objective *models.Objective) error {
	objective.IsInherited = false
	touch(&objective.CreatedAt, &objective.UpdatedAt)

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO objectives (`+objectiveColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			team_id = EXCLUDED.team_id,
			project_id = EXCLUDED.project_id,
			user_id = EXCLUDED.user_id,
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			parent_objective_id = EXCLUDED.parent_objective_id,
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at
	`,
		objective.ID,
		objective.TeamID,
		objective.ProjectID,
		objective.UserID,
		objective.Title,
		objective.Description,
		objective.ParentObjectiveID,
		string(objective.Status),
		objective.CreatedAt,
		objective.UpdatedAt,
	)

	return writeError("Save", "objective", objective.ID, err)
}

func (r *ObjectiveRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM objectives WHERE id = $1`, id)

	return writeError("Delete", "objective", id, err)
}

func scanObjective(row scanner) (*models.Objective, error) {
	var (
		o      models.Objective
		status string
	)

	err := row.Scan(
		&o.ID,
		&o.TeamID,
		&o.ProjectID,
		&o.UserID,
		&o.Title,
		&o.Description,
		&o.ParentObjectiveID,
		&status,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	o.Status = models.ObjectiveStatus(status)

	return &o, nil
}
