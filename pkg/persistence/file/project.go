package file

import (
	"context"

	"github.com/dukex/pcp/pkg/models"
	"github.com/dukex/pcp/pkg/persistence"
)

// ProjectRepository handles project file operations. Members are stored inline.
type ProjectRepository struct {
	store *store[models.Project]
}

func NewProjectRepository(root string) *ProjectRepository {
	return &ProjectRepository{store: newStore[models.Project](root, "projects")}
}

func (r *ProjectRepository) GetByID(_ context.Context, id string) (*models.Project, error) {
	return r.store.get(id)
}

func (r *ProjectRepository) ListByTeam(_ context.Context, teamID string) ([]*models.Project, error) {
	return r.store.filter(func(p *models.Project) bool { return p.TeamID == teamID })
}

func (r *ProjectRepository) Save(ctx context.Context, project *models.Project) error {
	siblings, err := r.ListByTeam(ctx, project.TeamID)
	if err != nil {
		return err
	}

	for _, sibling := range siblings {
		if sibling.Slug == project.Slug && sibling.ID != project.ID {
			return persistence.NewRepositoryError("Save", "project", project.ID, persistence.ErrDuplicate)
		}
	}

	if project.Members == nil {
		project.Members = []models.ProjectMember{}
	}

	touch(&project.CreatedAt, &project.UpdatedAt)

	return r.store.put(project.ID, project)
}

func (r *ProjectRepository) Delete(_ context.Context, id string) error {
	return r.store.remove(id)
}
