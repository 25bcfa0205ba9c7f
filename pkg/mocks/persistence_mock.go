package mocks

import (
	"context"
	"time"

	"github.com/dukex/pcp/pkg/models"
	"github.com/dukex/pcp/pkg/persistence"
	"github.com/stretchr/testify/mock"
)

// MockTeamRepository is a mock implementation of persistence.TeamRepository interface.
type MockTeamRepository struct {
	mock.Mock
}

func (m *MockTeamRepository) GetByID(ctx context.Context, id string) (*models.Team, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Team), args.Error(1)
}

func (m *MockTeamRepository) GetBySlug(ctx context.Context, slug string) (*models.Team, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Team), args.Error(1)
}

func (m *MockTeamRepository) GetAll(ctx context.Context) ([]*models.Team, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Team), args.Error(1)
}

func (m *MockTeamRepository) ListChildren(ctx context.Context, parentID string) ([]*models.Team, error) {
	args := m.Called(ctx, parentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Team), args.Error(1)
}

func (m *MockTeamRepository) Save(ctx context.Context, team *models.Team) error {
	args := m.Called(ctx, team)

	return args.Error(0)
}

func (m *MockTeamRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)

	return args.Error(0)
}

// MockUserRepository is a mock implementation of persistence.UserRepository interface.
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) ListByTeam(ctx context.Context, teamID string) ([]*models.User, error) {
	args := m.Called(ctx, teamID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.User), args.Error(1)
}

func (m *MockUserRepository) Save(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)

	return args.Error(0)
}

func (m *MockUserRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)

	return args.Error(0)
}

// MockProjectRepository is a mock implementation of persistence.ProjectRepository interface.
type MockProjectRepository struct {
	mock.Mock
}

func (m *MockProjectRepository) GetByID(ctx context.Context, id string) (*models.Project, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Project), args.Error(1)
}

func (m *MockProjectRepository) ListByTeam(ctx context.Context, teamID string) ([]*models.Project, error) {
	args := m.Called(ctx, teamID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Project), args.Error(1)
}

func (m *MockProjectRepository) Save(ctx context.Context, project *models.Project) error {
	args := m.Called(ctx, project)

	return args.Error(0)
}

func (m *MockProjectRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)

	return args.Error(0)
}

// MockPolicyRepository is a mock implementation of persistence.PolicyRepository interface.
type MockPolicyRepository struct {
	mock.Mock
}

func (m *MockPolicyRepository) GetByID(ctx context.Context, id string) (*models.Policy, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Policy), args.Error(1)
}

func (m *MockPolicyRepository) ListByTeam(ctx context.Context, teamID string) ([]*models.Policy, error) {
	args := m.Called(ctx, teamID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Policy), args.Error(1)
}

func (m *MockPolicyRepository) ListByProject(ctx context.Context, projectID string) ([]*models.Policy, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Policy), args.Error(1)
}

func (m *MockPolicyRepository) Save(ctx context.Context, policy *models.Policy) error {
	args := m.Called(ctx, policy)

	return args.Error(0)
}

func (m *MockPolicyRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)

	return args.Error(0)
}

// MockObjectiveRepository is a mock implementation of persistence.ObjectiveRepository interface.
type MockObjectiveRepository struct {
	mock.Mock
}

func (m *MockObjectiveRepository) GetByID(ctx context.Context, id string) (*models.Objective, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Objective), args.Error(1)
}

func (m *MockObjectiveRepository) ListByTeam(ctx context.Context, teamID string) ([]*models.Objective, error) {
	args := m.Called(ctx, teamID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Objective), args.Error(1)
}

func (m *MockObjectiveRepository) ListByProject(ctx context.Context, projectID string) ([]*models.Objective, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Objective), args.Error(1)
}

func (m *MockObjectiveRepository) ListByUser(ctx context.Context, userID string) ([]*models.Objective, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Objective), args.Error(1)
}

func (m *MockObjectiveRepository) Save(ctx context.Context, objective *models.Objective) error {
	args := m.Called(ctx, objective)

	return args.Error(0)
}

func (m *MockObjectiveRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)

	return args.Error(0)
}

// MockPromptRepository is a mock implementation of persistence.PromptRepository interface.
type MockPromptRepository struct {
	mock.Mock
}

func (m *MockPromptRepository) GetByID(ctx context.Context, id string) (*models.Prompt, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Prompt), args.Error(1)
}

func (m *MockPromptRepository) GetByName(ctx context.Context, name string) (*models.Prompt, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Prompt), args.Error(1)
}

func (m *MockPromptRepository) GetAll(ctx context.Context) ([]*models.Prompt, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Prompt), args.Error(1)
}

func (m *MockPromptRepository) Save(ctx context.Context, prompt *models.Prompt) error {
	args := m.Called(ctx, prompt)

	return args.Error(0)
}

func (m *MockPromptRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)

	return args.Error(0)
}

func (m *MockPromptRepository) ListVersions(ctx context.Context, promptID string) ([]*models.PromptVersion, error) {
	args := m.Called(ctx, promptID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.PromptVersion), args.Error(1)
}

func (m *MockPromptRepository) SaveVersion(ctx context.Context, version *models.PromptVersion) error {
	args := m.Called(ctx, version)

	return args.Error(0)
}

// MockWorkflowRepository is a mock implementation of persistence.WorkflowRepository interface.
type MockWorkflowRepository struct {
	mock.Mock
}

func (m *MockWorkflowRepository) GetByID(ctx context.Context, id string) (*models.Workflow, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Workflow), args.Error(1)
}

func (m *MockWorkflowRepository) ListByOwner(ctx context.Context, userID string) ([]*models.Workflow, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Workflow), args.Error(1)
}

func (m *MockWorkflowRepository) Save(ctx context.Context, workflow *models.Workflow) error {
	args := m.Called(ctx, workflow)

	return args.Error(0)
}

func (m *MockWorkflowRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)

	return args.Error(0)
}

// MockShareRepository is a mock implementation of persistence.ShareRepository interface.
type MockShareRepository struct {
	mock.Mock
}

func (m *MockShareRepository) Get(ctx context.Context, resourceID, userID string) (*models.Share, error) {
	args := m.Called(ctx, resourceID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Share), args.Error(1)
}

func (m *MockShareRepository) ListByResource(ctx context.Context, resourceID string) ([]*models.Share, error) {
	args := m.Called(ctx, resourceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Share), args.Error(1)
}

func (m *MockShareRepository) ListByUser(ctx context.Context, userID string) ([]*models.Share, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Share), args.Error(1)
}

func (m *MockShareRepository) Save(ctx context.Context, share *models.Share) error {
	args := m.Called(ctx, share)

	return args.Error(0)
}

func (m *MockShareRepository) Delete(ctx context.Context, resourceID, userID string) error {
	args := m.Called(ctx, resourceID, userID)

	return args.Error(0)
}

// MockUsageRepository is a mock implementation of persistence.UsageRepository interface.
type MockUsageRepository struct {
	mock.Mock
}

func (m *MockUsageRepository) Save(ctx context.Context, record *models.UsageRecord) error {
	args := m.Called(ctx, record)

	return args.Error(0)
}

func (m *MockUsageRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)

	return args.Get(0).(int64), args.Error(1)
}

func (m *MockUsageRepository) ListSince(ctx context.Context, since time.Time) ([]*models.UsageRecord, error) {
	args := m.Called(ctx, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.UsageRecord), args.Error(1)
}

func (m *MockUsageRepository) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)

	return args.Get(0).(int64), args.Error(1)
}
// MockPersistence is a mock implementation of persistence.Persistence interface. Its
// repositories are mocks too; set expectations on them through the exported fields.
type MockPersistence struct {
	mock.Mock

	Teams      *MockTeamRepository
	Users      *MockUserRepository
	Projects   *MockProjectRepository
	Policies   *MockPolicyRepository
	Objectives *MockObjectiveRepository
	Prompts    *MockPromptRepository
	Workflows  *MockWorkflowRepository
	Shares     *MockShareRepository
	Usage      *MockUsageRepository
}

// NewMockPersistence creates a new MockPersistence with all mock repositories.
func NewMockPersistence() *MockPersistence {
	return &MockPersistence{
		Teams:      &MockTeamRepository{},
		Users:      &MockUserRepository{},
		Projects:   &MockProjectRepository{},
		Policies:   &MockPolicyRepository{},
		Objectives: &MockObjectiveRepository{},
		Prompts:    &MockPromptRepository{},
		Workflows:  &MockWorkflowRepository{},
		Shares:     &MockShareRepository{},
		Usage:      &MockUsageRepository{},
	}
}

func (m *MockPersistence) TeamRepository() persistence.TeamRepository { return m.Teams }

func (m *MockPersistence) UserRepository() persistence.UserRepository { return m.Users }

func (m *MockPersistence) ProjectRepository() persistence.ProjectRepository { return m.Projects }

func (m *MockPersistence) PolicyRepository() persistence.PolicyRepository { return m.Policies }

func (m *MockPersistence) ObjectiveRepository() persistence.ObjectiveRepository {
	return m.Objectives
}

func (m *MockPersistence) PromptRepository() persistence.PromptRepository { return m.Prompts }

func (m *MockPersistence) WorkflowRepository() persistence.WorkflowRepository { return m.Workflows }

func (m *MockPersistence) ShareRepository() persistence.ShareRepository { return m.Shares }

func (m *MockPersistence) UsageRepository() persistence.UsageRepository { return m.Usage }

func (m *MockPersistence) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockPersistence) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}
