package file

import (
	"context"

	"github.com/dukex/pcp/pkg/models"
)

// ObjectiveRepository handles objective file operations.
type ObjectiveRepository struct {
	store *store[models.Objective]
}

func NewObjectiveRepository(root string) *ObjectiveRepository {
	return &ObjectiveRepository{store: newStore[models.Objective](root, "objectives")}
}

func (r *ObjectiveRepository) GetByID(_ context.Context, id string) (*models.Objective, error) {
	return r.store.get(id)
}

func (r *ObjectiveRepository) ListByTeam(_ context.Context, teamID string) ([]*models.Objective, error) {
	return r.list(func(o *models.Objective) bool {
		return o.TeamID == teamID && o.ProjectID == "" && o.UserID == ""
	})
}

func (r *ObjectiveRepository) ListByProject(_ context.Context, projectID string) ([]*models.Objective, error) {
	return r.list(func(o *models.Objective) bool { return o.ProjectID == projectID })
}

func (r *ObjectiveRepository) ListByUser(_ context.Context, userID string) ([]*models.Objective, error) {
	return r.list(func(o *models.Objective) bool { return o.UserID == userID && o.ProjectID == "" })
}

func (r *ObjectiveRepository) list(keep func(*models.Objective) bool) ([]*models.Objective, error) {
	objectives, err := r.store.filter(keep)
	if err != nil {
		return nil, err
	}

	models.SortObjectives(objectives)

	return objectives, nil
}

func (r *ObjectiveRepository) Save(_ context.Context, objective *models.Objective) error {
	objective.IsInherited = false
	touch(&objective.CreatedAt, &objective.UpdatedAt)

	return r.store.put(objective.ID, objective)
}

func (r *ObjectiveRepository) Delete(_ context.Context, id string) error {
	return r.store.remove(id)
}
