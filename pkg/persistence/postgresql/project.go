package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/dukex/pcp/pkg/models"
)

const projectColumns = `id, team_id, lead_id, name, slug, description, members, created_at, updated_at`

// ProjectRepository handles project database operations. Members are stored as JSONB.
type ProjectRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewProjectRepository(db *sql.DB, logger *slog.Logger) *ProjectRepository {
	return &ProjectRepository{db: db, logger: logger}
}

func (r *ProjectRepository) GetByID(ctx context.Context, id string) (*models.Project, error) {
	return queryOne(ctx, r.db, scanProject, `SELECT `+projectColumns+` FROM projects WHERE id = $1`, id)
}

func (r *ProjectRepository) ListByTeam(ctx context.Context, teamID string) ([]*models.Project, error) {
	return queryAll(ctx, r.db, r.logger, scanProject,
		`SELECT `+projectColumns+` FROM projects WHERE team_id = $1 ORDER BY created_at, id`, teamID)
}

func (r *ProjectRepository) Save(ctx context.Context, project *models.Project) error {
	if project.Members == nil {
		project.Members = []models.ProjectMember{}
	}

	members, err := json.Marshal(project.Members)
	if err != nil {
		return fmt.Errorf("failed to marshal members: %w", err)
	}

	touch(&project.CreatedAt, &project.UpdatedAt)

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO projects (`+projectColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			team_id = EXCLUDED.team_id,
			lead_id = EXCLUDED.lead_id,
			name = EXCLUDED.name,
			slug = EXCLUDED.slug,
			description = EXCLUDED.description,
			members = EXCLUDED.members,
			updated_at = EXCLUDED.updated_at
	`,
		project.ID,
		project.TeamID,
		project.LeadID,
		project.Name,
		project.Slug,
		project.Description,
		members,
		project.CreatedAt,
		project.UpdatedAt,
	)

	return writeError("Save", "project", project.ID, err)
}

func (r *ProjectRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM projects WHERE id = $1`, id)

	return writeError("Delete", "project", id, err)
}

func scanProject(row scanner) (*models.Project, error) {
	var (
		p       models.Project
		members []byte
	)

	err := row.Scan(&p.ID, &p.TeamID, &p.LeadID, &p.Name, &p.Slug, &p.Description, &members, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}

	err = json.Unmarshal(members, &p.Members)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal members: %w", err)
	}

	return &p, nil
}
