package file

import (
	"context"
	"slices"
	"time"

	"github.com/dukex/pcp/pkg/models"
)

// UsageRepository stores usage records, one file each.
type UsageRepository struct {
	store *store[models.UsageRecord]
}

func NewUsageRepository(root string) *UsageRepository {
	return &UsageRepository{store: newStore[models.UsageRecord](root, "usage")}
}

func (r *UsageRepository) Save(_ context.Context, record *models.UsageRecord) error {
	touch(&record.CreatedAt, nil)

	return r.store.put(record.ID, record)
}

func (r *UsageRepository) Count(_ context.Context) (int64, error) {
	records, err := r.store.all()
	if err != nil {
		return 0, err
	}

	return int64(len(records)), nil
}

// ListSince returns records created at or after since, oldest first.
func (r *UsageRepository) ListSince(_ context.Context, since time.Time) ([]*models.UsageRecord, error) {
	records, err := r.store.filter(func(u *models.UsageRecord) bool { return !u.CreatedAt.Before(since) })
	if err != nil {
		return nil, err
	}

	slices.SortFunc(records, func(a, b *models.UsageRecord) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})

	return records, nil
}

func (r *UsageRepository) DeleteBefore(_ context.Context, before time.Time) (int64, error) {
	stale, err := r.store.filter(func(u *models.UsageRecord) bool { return u.CreatedAt.Before(before) })
	if err != nil {
		return 0, err
	}

	for _, record := range stale {
		err := r.store.remove(record.ID)
		if err != nil {
			return 0, err
		}
	}

	return int64(len(stale)), nil
}
