package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/pcp/pkg/models"
)

const usageColumns = `id, prompt_name, prompt_version, success, latency_ms, error, created_at`

// UsageRepository stores expansion usage records. Saving an id that already exists is a
// no-op, so redelivered records are stored once.
type UsageRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewUsageRepository(db *sql.DB, logger *slog.Logger) *UsageRepository {
	return &UsageRepository{db: db, logger: logger}
}

func (r *UsageRepository) Save(ctx context.Context, record *models.UsageRecord) error {
	touch(&record.CreatedAt, nil)

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO usage_records (`+usageColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING
	`,
		record.ID,
		record.PromptName,
		record.PromptVersion,
		record.Success,
		record.LatencyMS,
		record.Error,
		record.CreatedAt,
	)

	return writeError("Save", "usage_record", record.ID, err)
}

func (r *UsageRepository) Count(ctx context.Context) (int64, error) {
	var count int64

	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM usage_records`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count usage records: %w", err)
	}

	return count, nil
}

func (r *UsageRepository) ListSince(ctx context.Context, since time.Time) ([]*models.UsageRecord, error) {
	return queryAll(ctx, r.db, r.logger, scanUsage,
		`SELECT `+usageColumns+` FROM usage_records WHERE created_at >= $1 ORDER BY created_at, id`, since)
}

func (r *UsageRepository) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM usage_records WHERE created_at < $1`, before)
	if err != nil {
		return 0, writeError("DeleteBefore", "usage_record", "", err)
	}

	return result.RowsAffected()
}

func scanUsage(row scanner) (*models.UsageRecord, error) {
	var u models.UsageRecord

	err := row.Scan(&u.ID, &u.PromptName, &u.PromptVersion, &u.Success, &u.LatencyMS, &u.Error, &u.CreatedAt)
	if err != nil {
		return nil, err
	}

	u.CreatedAt = u.CreatedAt.UTC()

	return &u, nil
}
