package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/dukex/pcp/pkg/errdefs"
	"github.com/dukex/pcp/pkg/models"
	"github.com/dukex/pcp/pkg/persistence"
	"github.com/go-playground/validator/v10"
	"github.com/xeipuuv/gojsonschema"
)

const (
	defaultPromptLimit = 20
	maxPromptLimit     = 100
)

// Prompts is the prompt registry: named prompts with immutable versions, pinning and
// deprecation.
type Prompts struct {
	prompts  persistence.PromptRepository
	validate *validator.Validate
	logger   *slog.Logger
}

func NewPrompts(p persistence.Persistence, validate *validator.Validate, logger *slog.Logger) *Prompts {
	return &Prompts{prompts: p.PromptRepository(), validate: validate, logger: logger}
}

// PromptSummary is a prompt with the version an expansion would currently use.
type PromptSummary struct {
	*models.Prompt

	LatestVersion *models.PromptVersion `json:"latest_version,omitempty"`
}

type ListPromptsRequest struct {
	Tag               string
	Query             string
	IncludeDeprecated bool
	Limit             int
	Offset            int
}

type ListPromptsResponse struct {
	Prompts     []PromptSummary `json:"prompts"`
	TotalCount  int             `json:"total_count"`
	HasNextPage bool            `json:"has_next_page"`
}

// Create stores a prompt together with its first version.
func (s *Prompts) Create(ctx context.Context, caller models.Caller, prompt *models.Prompt, first *models.PromptVersion) (*PromptSummary, error) {
	err := validateModel(s.validate, "prompt", prompt)
	if err != nil {
		return nil, err
	}

	err = s.checkVersion(prompt.Name, first)
	if err != nil {
		return nil, err
	}

	existing, err := s.prompts.GetByName(ctx, prompt.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to load prompt %s: %w", prompt.Name, err)
	}

	if existing != nil {
		return nil, &errdefs.ConflictError{Kind: "prompt", Key: prompt.Name, Reason: "already exists"}
	}

	prompt.ID, err = newID()
	if err != nil {
		return nil, err
	}

	prompt.UserID = caller.UserID
	prompt.ActiveVersionID = ""
	prompt.Deprecated = false

	err = s.prompts.Save(ctx, prompt)
	if err != nil {
		return nil, writeError("prompt", prompt.Name, err)
	}

	version, err := s.saveVersion(ctx, prompt, first)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "prompt created", "prompt", prompt.Name, "version", version.Version)

	return &PromptSummary{Prompt: prompt, LatestVersion: version}, nil
}

// Get returns the prompt and its resolved version, deprecated or not.
func (s *Prompts) Get(ctx context.Context, name string) (*PromptSummary, error) {
	prompt, err := s.load(ctx, name)
	if err != nil {
		return nil, err
	}

	versions, err := s.prompts.ListVersions(ctx, prompt.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list versions of %s: %w", name, err)
	}

	return &PromptSummary{Prompt: prompt, LatestVersion: models.ResolveVersion(prompt, versions, "")}, nil
}

// AddVersion stores a new immutable version. It does not move an existing pin.
func (s *Prompts) AddVersion(ctx context.Context, caller models.Caller, name string, version *models.PromptVersion) (*models.PromptVersion, error) {
	prompt, err := s.editable(ctx, caller, "add version", name)
	if err != nil {
		return nil, err
	}

	err = s.checkVersion(name, version)
	if err != nil {
		return nil, err
	}

	return s.saveVersion(ctx, prompt, version)
}

// ListVersions returns every version of the prompt, newest first.
func (s *Prompts) ListVersions(ctx context.Context, name string) ([]*models.PromptVersion, error) {
	prompt, err := s.load(ctx, name)
	if err != nil {
		return nil, err
	}

	versions, err := s.prompts.ListVersions(ctx, prompt.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list versions of %s: %w", name, err)
	}

	models.NewestFirst(versions)

	return versions, nil
}

// Pin makes label the version expansions use until it is unpinned. Pinning an older
// label is how a prompt is rolled back.
func (s *Prompts) Pin(ctx context.Context, caller models.Caller, name, label string) (*PromptSummary, error) {
	prompt, err := s.editable(ctx, caller, "pin", name)
	if err != nil {
		return nil, err
	}

	versions, err := s.prompts.ListVersions(ctx, prompt.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list versions of %s: %w", name, err)
	}

	version := models.ResolveVersion(prompt, versions, label)
	if version == nil {
		return nil, errdefs.NotFound("version", name+"@"+label)
	}

	prompt.ActiveVersionID = version.ID

	err = s.prompts.Save(ctx, prompt)
	if err != nil {
		return nil, writeError("prompt", name, err)
	}

	s.logger.InfoContext(ctx, "prompt pinned", "prompt", name, "version", label)

	return &PromptSummary{Prompt: prompt, LatestVersion: version}, nil
}

// Unpin returns the prompt to tracking its newest version.
func (s *Prompts) Unpin(ctx context.Context, caller models.Caller, name string) (*PromptSummary, error) {
	prompt, err := s.editable(ctx, caller, "unpin", name)
	if err != nil {
		return nil, err
	}

	prompt.ActiveVersionID = ""

	err = s.prompts.Save(ctx, prompt)
	if err != nil {
		return nil, writeError("prompt", name, err)
	}

	return s.Get(ctx, name)
}

// Deprecate hides the prompt from listings and stops it from being expanded.
func (s *Prompts) Deprecate(ctx context.Context, caller models.Caller, name string) (*models.Prompt, error) {
	prompt, err := s.editable(ctx, caller, "deprecate", name)
	if err != nil {
		return nil, err
	}

	prompt.Deprecated = true

	err = s.prompts.Save(ctx, prompt)
	if err != nil {
		return nil, writeError("prompt", name, err)
	}

	s.logger.InfoContext(ctx, "prompt deprecated", "prompt", name)

	return prompt, nil
}

// List filters and paginates prompts sorted by name. Tag and query match the resolved
// version; the query also matches name and description, case-insensitively.
func (s *Prompts) List(ctx context.Context, req ListPromptsRequest) (*ListPromptsResponse, error) {
	if req.Limit <= 0 {
		req.Limit = defaultPromptLimit
	}

	if req.Limit > maxPromptLimit {
		req.Limit = maxPromptLimit
	}

	if req.Offset < 0 {
		req.Offset = 0
	}

	prompts, err := s.prompts.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list prompts: %w", err)
	}

	slices.SortFunc(prompts, func(a, b *models.Prompt) int {
		return strings.Compare(a.Name, b.Name)
	})

	query := strings.ToLower(strings.TrimSpace(req.Query))
	matched := make([]PromptSummary, 0, len(prompts))

	for _, prompt := range prompts {
		if prompt.Deprecated && !req.IncludeDeprecated {
			continue
		}

		versions, err := s.prompts.ListVersions(ctx, prompt.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list versions of %s: %w", prompt.Name, err)
		}

		latest := models.ResolveVersion(prompt, versions, "")

		if req.Tag != "" && (latest == nil || !latest.HasTag(req.Tag)) {
			continue
		}

		if query != "" && !matches(prompt, latest, query) {
			continue
		}

		matched = append(matched, PromptSummary{Prompt: prompt, LatestVersion: latest})
	}

	resp := &ListPromptsResponse{Prompts: []PromptSummary{}, TotalCount: len(matched)}

	if req.Offset < len(matched) {
		end := min(req.Offset+req.Limit, len(matched))
		resp.Prompts = matched[req.Offset:end]
		resp.HasNextPage = end < len(matched)
	}

	return resp, nil
}

// Names returns the names of every prompt that can be expanded.
func (s *Prompts) Names(ctx context.Context) ([]string, error) {
	prompts, err := s.prompts.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list prompts: %w", err)
	}

	names := make([]string, 0, len(prompts))

	for _, prompt := range prompts {
		if !prompt.Deprecated {
			names = append(names, prompt.Name)
		}
	}

	slices.Sort(names)

	return names, nil
}

func matches(prompt *models.Prompt, latest *models.PromptVersion, query string) bool {
	if strings.Contains(strings.ToLower(prompt.Name), query) ||
		strings.Contains(strings.ToLower(prompt.Description), query) {
		return true
	}

	if latest == nil {
		return false
	}

	return slices.ContainsFunc(latest.Tags, func(tag string) bool {
		return strings.Contains(strings.ToLower(tag), query)
	})
}

func (s *Prompts) load(ctx context.Context, name string) (*models.Prompt, error) {
	prompt, err := s.prompts.GetByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to load prompt %s: %w", name, err)
	}

	if prompt == nil {
		return nil, errdefs.NotFound("prompt", name)
	}

	return prompt, nil
}

// editable loads a prompt the caller may change: its owner, an admin, or anyone when the
// prompt has no owner.
func (s *Prompts) editable(ctx context.Context, caller models.Caller, op, name string) (*models.Prompt, error) {
	prompt, err := s.load(ctx, name)
	if err != nil {
		return nil, err
	}

	if caller.IsAdmin() || prompt.UserID == "" || prompt.UserID == caller.UserID {
		return prompt, nil
	}

	return nil, scopeDenied(op+" "+name, models.UserScope(prompt.UserID), "prompt is owned by another user")
}

func (s *Prompts) checkVersion(name string, version *models.PromptVersion) error {
	if version == nil {
		return errdefs.Invalid("prompt "+name, "version", "is required")
	}

	err := validateModel(s.validate, "prompt version", version)
	if err != nil {
		return err
	}

	if version.InputSchema == nil {
		return nil
	}

	_, err = gojsonschema.NewSchema(gojsonschema.NewGoLoader(version.InputSchema))
	if err != nil {
		return errdefs.Invalid("prompt version "+version.Version, "input_schema", err.Error())
	}

	return nil
}

func (s *Prompts) saveVersion(ctx context.Context, prompt *models.Prompt, version *models.PromptVersion) (*models.PromptVersion, error) {
	id, err := newID()
	if err != nil {
		return nil, err
	}

	version.ID = id
	version.PromptID = prompt.ID
	version.CreatedAt = now()

	err = s.prompts.SaveVersion(ctx, version)
	if err != nil {
		return nil, writeError("version", prompt.Name+"@"+version.Version, err)
	}

	return version, nil
}
