package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/dukex/pcp/pkg/models"
)

const workflowColumns = `id, user_id, project_id, name, description, steps, created_at, updated_at`

// WorkflowRepository handles workflow database operations. Steps are stored as JSONB
// and replaced as a whole on every save.
type WorkflowRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewWorkflowRepository creates a new workflow repository.
func NewWorkflowRepository(db *sql.DB, logger *slog.Logger) *WorkflowRepository {
	return &WorkflowRepository{db: db, logger: logger}
}

func (r *WorkflowRepository) GetByID(ctx context.Context, id string) (*models.Workflow, error) {
	return queryOne(ctx, r.db, scanWorkflow, `SELECT `+workflowColumns+` FROM workflows WHERE id = $1`, id)
}

// ListByOwner returns the workflows owned by userID, newest first.
func (r *WorkflowRepository) ListByOwner(ctx context.Context, userID string) ([]*models.Workflow, error) {
	return queryAll(ctx, r.db, r.logger, scanWorkflow,
		`SELECT `+workflowColumns+` FROM workflows WHERE user_id = $1 ORDER BY created_at DESC, id DESC`, userID)
}

// Save saves a workflow to the database.
func (r *WorkflowRepository) Save(ctx context.Context, workflow *models.Workflow) error {
	if workflow.Steps == nil {
		workflow.Steps = []models.WorkflowStep{}
	}

	steps, err := json.Marshal(workflow.Steps)
	if err != nil {
		return fmt.Errorf("failed to marshal steps: %w", err)
	}

	touch(&workflow.CreatedAt, &workflow.UpdatedAt)

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO workflows (`+workflowColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			project_id = EXCLUDED.project_id,
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			steps = EXCLUDED.steps,
			updated_at = EXCLUDED.updated_at
	`,
		workflow.ID,
		workflow.UserID,
		workflow.ProjectID,
		workflow.Name,
		workflow.Description,
		steps,
		workflow.CreatedAt,
		workflow.UpdatedAt,
	)

	return writeError("Save", "workflow", workflow.ID, err)
}

// Delete removes the workflow and every share of it.
func (r *WorkflowRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	_, err = tx.ExecContext(ctx, `DELETE FROM shares WHERE resource_id = $1`, id)
	if err != nil {
		_ = tx.Rollback()

		return writeError("Delete", "workflow", id, err)
	}

	_, err = tx.ExecContext(ctx, `DELETE FROM workflows WHERE id = $1`, id)
	if err != nil {
		_ = tx.Rollback()

		return writeError("Delete", "workflow", id, err)
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func scanWorkflow(row scanner) (*models.Workflow, error) {
	var (
		w     models.Workflow
		steps []byte
	)

	err := row.Scan(&w.ID, &w.UserID, &w.ProjectID, &w.Name, &w.Description, &steps, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, err
	}

	err = json.Unmarshal(steps, &w.Steps)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal steps: %w", err)
	}

	return &w, nil
}
