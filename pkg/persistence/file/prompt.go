package file

import (
	"context"
	"slices"
	"strings"

	"github.com/dukex/pcp/pkg/models"
	"github.com/dukex/pcp/pkg/persistence"
)

// PromptRepository handles prompt and prompt version file operations.
type PromptRepository struct {
	prompts  *store[models.Prompt]
	versions *store[models.PromptVersion]
}

func NewPromptRepository(root string) *PromptRepository {
	return &PromptRepository{
		prompts:  newStore[models.Prompt](root, "prompts"),
		versions: newStore[models.PromptVersion](root, "prompt_versions"),
	}
}

func (r *PromptRepository) GetByID(_ context.Context, id string) (*models.Prompt, error) {
	return r.prompts.get(id)
}

func (r *PromptRepository) GetByName(_ context.Context, name string) (*models.Prompt, error) {
	prompts, err := r.prompts.filter(func(p *models.Prompt) bool { return p.Name == name })
	if err != nil || len(prompts) == 0 {
		return nil, err
	}

	return prompts[0], nil
}

// GetAll returns every prompt sorted by name.
func (r *PromptRepository) GetAll(_ context.Context) ([]*models.Prompt, error) {
	prompts, err := r.prompts.all()
	if err != nil {
		return nil, err
	}

	slices.SortFunc(prompts, func(a, b *models.Prompt) int {
		return strings.Compare(a.Name, b.Name)
	})

	return prompts, nil
}

func (r *PromptRepository) Save(ctx context.Context, prompt *models.Prompt) error {
	existing, err := r.GetByName(ctx, prompt.Name)
	if err != nil {
		return err
	}

	if existing != nil && existing.ID != prompt.ID {
		return persistence.NewRepositoryError("Save", "prompt", prompt.ID, persistence.ErrDuplicate)
	}

	touch(&prompt.CreatedAt, &prompt.UpdatedAt)

	return r.prompts.put(prompt.ID, prompt)
}

// Delete removes the prompt together with its versions.
func (r *PromptRepository) Delete(ctx context.Context, id string) error {
	versions, err := r.ListVersions(ctx, id)
	if err != nil {
		return err
	}

	for _, v := range versions {
		err := r.versions.remove(v.ID)
		if err != nil {
			return err
		}
	}

	return r.prompts.remove(id)
}

// ListVersions returns the versions of a prompt in creation order.
func (r *PromptRepository) ListVersions(_ context.Context, promptID string) ([]*models.PromptVersion, error) {
	versions, err := r.versions.filter(func(v *models.PromptVersion) bool { return v.PromptID == promptID })
	if err != nil {
		return nil, err
	}

	models.NewestFirst(versions)
	slices.Reverse(versions)

	return versions, nil
}

// SaveVersion stores a new version. Versions are immutable, so saving an existing id or a
// label already used by the prompt is rejected.
func (r *PromptRepository) SaveVersion(ctx context.Context, version *models.PromptVersion) error {
	existing, err := r.ListVersions(ctx, version.PromptID)
	if err != nil {
		return err
	}

	for _, v := range existing {
		if v.ID == version.ID || v.Version == version.Version {
			return persistence.NewRepositoryError("SaveVersion", "prompt_version", version.ID, persistence.ErrDuplicate)
		}
	}

	if version.Tags == nil {
		version.Tags = []string{}
	}

	touch(&version.CreatedAt, nil)

	return r.versions.put(version.ID, version)
}
