package postgresql

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/dukex/pcp/pkg/models"
)

// ShareRepository handles workflow share database operations.
type ShareRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewShareRepository(db *sql.DB, logger *slog.Logger) *ShareRepository {
	return &ShareRepository{db: db, logger: logger}
}

func (r *ShareRepository) Get(ctx context.Context, resourceID, userID string) (*models.Share, error) {
	return queryOne(ctx, r.db, scanShare,
		`SELECT resource_id, user_id, created_at FROM shares WHERE resource_id = $1 AND user_id = $2`, resourceID, userID)
}

func (r *ShareRepository) ListByResource(ctx context.Context, resourceID string) ([]*models.Share, error) {
	return queryAll(ctx, r.db, r.logger, scanShare,
		`SELECT resource_id, user_id, created_at FROM shares WHERE resource_id = $1 ORDER BY created_at`, resourceID)
}

func (r *ShareRepository) ListByUser(ctx context.Context, userID string) ([]*models.Share, error) {
	return queryAll(ctx, r.db, r.logger, scanShare,
		`SELECT resource_id, user_id, created_at FROM shares WHERE user_id = $1 ORDER BY created_at`, userID)
}

// Save is idempotent; sharing twice keeps the first grant.
func (r *ShareRepository) Save(ctx context.Context, share *models.Share) error {
	touch(&share.CreatedAt, nil)

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO shares (resource_id, user_id, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (resource_id, user_id) DO NOTHING
	`, share.ResourceID, share.UserID, share.CreatedAt)

	return writeError("Save", "share", share.ResourceID, err)
}

func (r *ShareRepository) Delete(ctx context.Context, resourceID, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM shares WHERE resource_id = $1 AND user_id = $2`, resourceID, userID)

	return writeError("Delete", "share", resourceID, err)
}

func scanShare(row scanner) (*models.Share, error) {
	var s models.Share

	err := row.Scan(&s.ResourceID, &s.UserID, &s.CreatedAt)
	if err != nil {
		return nil, err
	}

	return &s, nil
}
