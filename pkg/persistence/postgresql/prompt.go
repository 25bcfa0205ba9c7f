package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/dukex/pcp/pkg/models"
	"github.com/lib/pq"
)

const (
	promptColumns  = `id, name, description, is_deprecated, user_id, active_version_id, created_at, updated_at`
	versionColumns = `id, prompt_id, version, system_template, user_template, input_schema, tags, created_at`
)

// PromptRepository handles prompt and prompt version database operations.
type PromptRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewPromptRepository(db *sql.DB, logger *slog.Logger) *PromptRepository {
	return &PromptRepository{db: db, logger: logger}
}

func (r *PromptRepository) GetByID(ctx context.Context, id string) (*models.Prompt, error) {
	return queryOne(ctx, r.db, scanPrompt, `SELECT `+promptColumns+` FROM prompts WHERE id = $1`, id)
}

func (r *PromptRepository) GetByName(ctx context.Context, name string) (*models.Prompt, error) {
	return queryOne(ctx, r.db, scanPrompt, `SELECT `+promptColumns+` FROM prompts WHERE name = $1`, name)
}

func (r *PromptRepository) GetAll(ctx context.Context) ([]*models.Prompt, error) {
	return queryAll(ctx, r.db, r.logger, scanPrompt, `SELECT `+promptColumns+` FROM prompts ORDER BY name`)
}

func (r *PromptRepository) Save(ctx context.Context, prompt *models.Prompt) error {
	touch(&prompt.CreatedAt, &prompt.UpdatedAt)

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO prompts (`+promptColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			is_deprecated = EXCLUDED.is_deprecated,
			user_id = EXCLUDED.user_id,
			active_version_id = EXCLUDED.active_version_id,
			updated_at = EXCLUDED.updated_at
	`,
		prompt.ID,
		prompt.Name,
		prompt.Description,
		prompt.Deprecated,
		prompt.UserID,
		prompt.ActiveVersionID,
		prompt.CreatedAt,
		prompt.UpdatedAt,
	)

	return writeError("Save", "prompt", prompt.ID, err)
}

// Delete removes the prompt; its versions go with it through the foreign key.
func (r *PromptRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM prompts WHERE id = $1`, id)

	return writeError("Delete", "prompt", id, err)
}

func (r *PromptRepository) ListVersions(ctx context.Context, promptID string) ([]*models.PromptVersion, error) {
	return queryAll(ctx, r.db, r.logger, scanVersion,
		`SELECT `+versionColumns+` FROM prompt_versions WHERE prompt_id = $1 ORDER BY created_at, id`, promptID)
}

// SaveVersion inserts a new version. Versions are immutable; an existing id or label is a
// duplicate.
func (r *PromptRepository) SaveVersion(ctx context.Context, version *models.PromptVersion) error {
	if version.Tags == nil {
		version.Tags = []string{}
	}

	var schema []byte

	if version.InputSchema != nil {
		var err error

		schema, err = json.Marshal(version.InputSchema)
		if err != nil {
			return fmt.Errorf("failed to marshal input schema: %w", err)
		}
	}

	touch(&version.CreatedAt, nil)

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO prompt_versions (`+versionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		version.ID,
		version.PromptID,
		version.Version,
		version.SystemTemplate,
		version.UserTemplate,
		schema,
		pq.Array(version.Tags),
		version.CreatedAt,
	)

	return writeError("SaveVersion", "prompt_version", version.ID, err)
}

func scanPrompt(row scanner) (*models.Prompt, error) {
	var p models.Prompt

	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Deprecated, &p.UserID, &p.ActiveVersionID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}

	return &p, nil
}

func scanVersion(row scanner) (*models.PromptVersion, error) {
	var (
		v      models.PromptVersion
		schema []byte
		tags   pq.StringArray
	)

	err := row.Scan(&v.ID, &v.PromptID, &v.Version, &v.SystemTemplate, &v.UserTemplate, &schema, &tags, &v.CreatedAt)
	if err != nil {
		return nil, err
	}

	if len(schema) > 0 {
		v.InputSchema = &models.JSONSchema{}

		err = json.Unmarshal(schema, v.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal input schema: %w", err)
		}
	}

	v.Tags = []string(tags)
	if v.Tags == nil {
		v.Tags = []string{}
	}

	return &v, nil
}
