package cart

import (
	"context"

	"storefront/internal/domain"
)

// Repository stores the durable cart of an authenticated user.
type Repository interface {
	// Load returns the persisted rows of userID, empty when there are none.
	Load(ctx context.Context, userID string) ([]domain.PersistedLineItem, error)
	// Sync makes the stored rows of userID equal to items: rows for other
	// variants are removed and the rest are inserted or updated.
	Sync(ctx context.Context, userID string, items []domain.PersistedLineItem) error
}
