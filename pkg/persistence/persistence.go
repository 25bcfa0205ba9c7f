// Package persistence defines the storage contracts the control plane depends on. Lookups
// by id return (nil, nil) when the record does not exist.
package persistence

import (
	"context"
	"time"

	"github.com/dukex/pcp/pkg/models"
)

type Persistence interface {
	TeamRepository() TeamRepository
	UserRepository() UserRepository
	ProjectRepository() ProjectRepository
	PolicyRepository() PolicyRepository
	ObjectiveRepository() ObjectiveRepository
	PromptRepository() PromptRepository
	WorkflowRepository() WorkflowRepository
	ShareRepository() ShareRepository
	UsageRepository() UsageRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

type TeamRepository interface {
	GetByID(ctx context.Context, id string) (*models.Team, error)
	GetBySlug(ctx context.Context, slug string) (*models.Team, error)
	GetAll(ctx context.Context) ([]*models.Team, error)
	ListChildren(ctx context.Context, parentID string) ([]*models.Team, error)
	Save(ctx context.Context, team *models.Team) error
	Delete(ctx context.Context, id string) error
}

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	ListByTeam(ctx context.Context, teamID string) ([]*models.User, error)
	Save(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id string) error
}

type ProjectRepository interface {
	GetByID(ctx context.Context, id string) (*models.Project, error)
	ListByTeam(ctx context.Context, teamID string) ([]*models.Project, error)
	Save(ctx context.Context, project *models.Project) error
	Delete(ctx context.Context, id string) error
}

// PolicyRepository lists policies attached directly to a scope, regardless of the active
// flag; filtering is the aggregator's job.
type PolicyRepository interface {
	GetByID(ctx context.Context, id string) (*models.Policy, error)
	ListByTeam(ctx context.Context, teamID string) ([]*models.Policy, error)
	ListByProject(ctx context.Context, projectID string) ([]*models.Policy, error)
	Save(ctx context.Context, policy *models.Policy) error
	Delete(ctx context.Context, id string) error
}

type ObjectiveRepository interface {
	GetByID(ctx context.Context, id string) (*models.Objective, error)
	ListByTeam(ctx context.Context, teamID string) ([]*models.Objective, error)
	ListByProject(ctx context.Context, projectID string) ([]*models.Objective, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Objective, error)
	Save(ctx context.Context, objective *models.Objective) error
	Delete(ctx context.Context, id string) error
}

// PromptRepository stores prompts and their immutable versions. ListVersions returns
// versions in creation order.
type PromptRepository interface {
	GetByID(ctx context.Context, id string) (*models.Prompt, error)
	GetByName(ctx context.Context, name string) (*models.Prompt, error)
	GetAll(ctx context.Context) ([]*models.Prompt, error)
	Save(ctx context.Context, prompt *models.Prompt) error
	Delete(ctx context.Context, id string) error

	ListVersions(ctx context.Context, promptID string) ([]*models.PromptVersion, error)
	SaveVersion(ctx context.Context, version *models.PromptVersion) error
}

type WorkflowRepository interface {
	GetByID(ctx context.Context, id string) (*models.Workflow, error)
	ListByOwner(ctx context.Context, userID string) ([]*models.Workflow, error)
	Save(ctx context.Context, workflow *models.Workflow) error
	Delete(ctx context.Context, id string) error
}

type ShareRepository interface {
	Get(ctx context.Context, resourceID, userID string) (*models.Share, error)
	ListByResource(ctx context.Context, resourceID string) ([]*models.Share, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Share, error)
	Save(ctx context.Context, share *models.Share) error
	Delete(ctx context.Context, resourceID, userID string) error
}

type UsageRepository interface {
	Save(ctx context.Context, record *models.UsageRecord) error
	Count(ctx context.Context) (int64, error)
	ListSince(ctx context.Context, since time.Time) ([]*models.UsageRecord, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}
