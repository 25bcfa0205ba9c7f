package file

import (
	"context"
	"slices"

	"github.com/dukex/pcp/pkg/models"
)

// WorkflowRepository handles workflow-related file operations.
type WorkflowRepository struct {
	store *store[models.Workflow]
}

// NewWorkflowRepository creates a new workflow repository.
func NewWorkflowRepository(root string) *WorkflowRepository {
	return &WorkflowRepository{store: newStore[models.Workflow](root, "workflows")}
}

// GetByID retrieves a workflow by its ID from the file system.
func (r *WorkflowRepository) GetByID(_ context.Context, id string) (*models.Workflow, error) {
	return r.store.get(id)
}

// ListByOwner returns the workflows owned by userID, newest first.
func (r *WorkflowRepository) ListByOwner(_ context.Context, userID string) ([]*models.Workflow, error) {
	workflows, err := r.store.filter(func(w *models.Workflow) bool { return w.UserID == userID })
	if err != nil {
		return nil, err
	}

	slices.SortFunc(workflows, func(a, b *models.Workflow) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	return workflows, nil
}

// Save saves a workflow to the file system.
func (r *WorkflowRepository) Save(_ context.Context, workflow *models.Workflow) error {
	if workflow.Steps == nil {
		workflow.Steps = []models.WorkflowStep{}
	}

	touch(&workflow.CreatedAt, &workflow.UpdatedAt)

	return r.store.put(workflow.ID, workflow)
}

// Delete removes a workflow by its ID.
func (r *WorkflowRepository) Delete(_ context.Context, id string) error {
	return r.store.remove(id)
}
