package file

import (
	"context"

	"github.com/dukex/pcp/pkg/models"
)

// PolicyRepository handles policy file operations.
type PolicyRepository struct {
	store *store[models.Policy]
}

func NewPolicyRepository(root string) *PolicyRepository {
	return &PolicyRepository{store: newStore[models.Policy](root, "policies")}
}

func (r *PolicyRepository) GetByID(_ context.Context, id string) (*models.Policy, error) {
	return r.store.get(id)
}

func (r *PolicyRepository) ListByTeam(_ context.Context, teamID string) ([]*models.Policy, error) {
	policies, err := r.store.filter(func(p *models.Policy) bool { return p.ProjectID == "" && p.TeamID == teamID })
	if err != nil {
		return nil, err
	}

	models.SortPolicies(policies)

	return policies, nil
}

func (r *PolicyRepository) ListByProject(_ context.Context, projectID string) ([]*models.Policy, error) {
	policies, err := r.store.filter(func(p *models.Policy) bool { return p.ProjectID == projectID })
	if err != nil {
		return nil, err
	}

	models.SortPolicies(policies)

	return policies, nil
}

func (r *PolicyRepository) Save(_ context.Context, policy *models.Policy) error {
	touch(&policy.CreatedAt, &policy.UpdatedAt)

	return r.store.put(policy.ID, policy)
}

func (r *PolicyRepository) Delete(_ context.Context, id string) error {
	return r.store.remove(id)
}
