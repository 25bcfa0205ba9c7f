package file

import (
	"context"
	"slices"

	"github.com/dukex/pcp/pkg/models"
)

// ShareRepository stores shares as root/shares/<resource>_<user>.json.
type ShareRepository struct {
	store *store[models.Share]
}

func NewShareRepository(root string) *ShareRepository {
	return &ShareRepository{store: newStore[models.Share](root, "shares")}
}

func shareID(resourceID, userID string) string {
	return resourceID + "_" + userID
}

func (r *ShareRepository) Get(_ context.Context, resourceID, userID string) (*models.Share, error) {
	return r.store.get(shareID(resourceID, userID))
}

func (r *ShareRepository) ListByResource(_ context.Context, resourceID string) ([]*models.Share, error) {
	return r.list(func(s *models.Share) bool { return s.ResourceID == resourceID })
}

func (r *ShareRepository) ListByUser(_ context.Context, userID string) ([]*models.Share, error) {
	return r.list(func(s *models.Share) bool { return s.UserID == userID })
}

func (r *ShareRepository) list(keep func(*models.Share) bool) ([]*models.Share, error) {
	shares, err := r.store.filter(keep)
	if err != nil {
		return nil, err
	}

	slices.SortFunc(shares, func(a, b *models.Share) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})

	return shares, nil
}

func (r *ShareRepository) Save(_ context.Context, share *models.Share) error {
	touch(&share.CreatedAt, nil)

	return r.store.put(shareID(share.ResourceID, share.UserID), share)
}

func (r *ShareRepository) Delete(_ context.Context, resourceID, userID string) error {
	return r.store.remove(shareID(resourceID, userID))
}
