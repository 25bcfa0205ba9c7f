package postgresql

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/dukex/pcp/pkg/models"
)

const policyColumns = `id, team_id, project_id, name, description, enforcement_type, content, priority, active, created_at, updated_at`

// PolicyRepository handles policy database operations.
type PolicyRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewPolicyRepository(db *sql.DB, logger *slog.Logger) *PolicyRepository {
	return &PolicyRepository{db: db, logger: logger}
}

func (r *PolicyRepository) GetByID(ctx context.Context, id string) (*models.Policy, error) {
	return queryOne(ctx, r.db, scanPolicy, `SELECT `+policyColumns+` FROM policies WHERE id = $1`, id)
}

// ListByTeam returns the policies attached to the team itself, not to its projects.
func (r *PolicyRepository) ListByTeam(ctx context.Context, teamID string) ([]*models.Policy, error) {
	return queryAll(ctx, r.db, r.logger, scanPolicy, `
		SELECT `+policyColumns+` FROM policies
		WHERE team_id = $1 AND project_id = ''
		ORDER BY priority, created_at, id
	`, teamID)
}

func (r *PolicyRepository) ListByProject(ctx context.Context, projectID string) ([]*models.Policy, error) {
	return queryAll(ctx, r.db, r.logger, scanPolicy, `
		SELECT `+policyColumns+` FROM policies
		WHERE project_id = $1
		ORDER BY priority, created_at, id
	`, projectID)
}

func (r *PolicyRepository) Save(ctx context.Context, policy *models.Policy) error {
	touch(&policy.CreatedAt, &policy.UpdatedAt)

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO policies (`+policyColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			team_id = EXCLUDED.team_id,
			project_id = EXCLUDED.project_id,
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			enforcement_type = EXCLUDED.enforcement_type,
			content = EXCLUDED.content,
			priority = EXCLUDED.priority,
			active = EXCLUDED.active,
			updated_at = EXCLUDED.updated_at
	`,
		policy.ID,
		policy.TeamID,
		policy.ProjectID,
		policy.Name,
		policy.Description,
		string(policy.EnforcementType),
		policy.Content,
		policy.Priority,
		policy.Active,
		policy.CreatedAt,
		policy.UpdatedAt,
	)

	return writeError("Save", "policy", policy.ID, err)
}

func (r *PolicyRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM policies WHERE id = $1`, id)

	return writeError("Delete", "policy", id, err)
}

func scanPolicy(row scanner) (*models.Policy, error) {
	var (
		p           models.Policy
		enforcement string
	)

	err := row.Scan(
		&p.ID,
		&p.TeamID,
		&p.ProjectID,
		&p.Name,
		&p.Description,
		&enforcement,
		&p.Content,
		&p.Priority,
		&p.Active,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.EnforcementType = models.EnforcementType(enforcement)

	return &p, nil
}
