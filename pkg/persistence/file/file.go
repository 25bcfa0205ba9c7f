// Package file provides a file-based persistence implementation, one JSON file per record.
package file

import (
	"context"
	"os"
	"strings"

	"github.com/dukex/pcp/pkg/persistence"
)

// Persistence implements the persistence.Persistence interface using the file system.
type Persistence struct {
	root       string
	teams      *TeamRepository
	users      *UserRepository
	projects   *ProjectRepository
	policies   *PolicyRepository
	objectives *ObjectiveRepository
	prompts    *PromptRepository
	workflows  *WorkflowRepository
	shares     *ShareRepository
	usage      *UsageRepository
}

// NewPersistence creates a new instance of Persistence with the specified root directory.
func NewPersistence(root string) persistence.Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{
		root:       cleanRoot,
		teams:      NewTeamRepository(cleanRoot),
		users:      NewUserRepository(cleanRoot),
		projects:   NewProjectRepository(cleanRoot),
		policies:   NewPolicyRepository(cleanRoot),
		objectives: NewObjectiveRepository(cleanRoot),
		prompts:    NewPromptRepository(cleanRoot),
		workflows:  NewWorkflowRepository(cleanRoot),
		shares:     NewShareRepository(cleanRoot),
		usage:      NewUsageRepository(cleanRoot),
	}
}

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck checks if the file persistence layer is healthy by verifying the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

func (fp *Persistence) TeamRepository() persistence.TeamRepository {
	return fp.teams
}

func (fp *Persistence) UserRepository() persistence.UserRepository {
	return fp.users
}

func (fp *Persistence) ProjectRepository() persistence.ProjectRepository {
	return fp.projects
}

func (fp *Persistence) PolicyRepository() persistence.PolicyRepository {
	return fp.policies
}

func (fp *Persistence) ObjectiveRepository() persistence.ObjectiveRepository {
	return fp.objectives
}

func (fp *Persistence) PromptRepository() persistence.PromptRepository {
	return fp.prompts
}

func (fp *Persistence) WorkflowRepository() persistence.WorkflowRepository {
	return fp.workflows
}

func (fp *Persistence) ShareRepository() persistence.ShareRepository {
	return fp.shares
}

func (fp *Persistence) UsageRepository() persistence.UsageRepository {
	return fp.usage
}
