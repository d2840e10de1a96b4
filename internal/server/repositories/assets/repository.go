package assets

import (
	"context"

	"github.com/dkovalev/assetvault/internal/server/models"
)

// Repository is persistent storage for the per-user asset index.
// Rows are keyed by the (user_id, sha256) pair; provider associations
// live in a side table.
type Repository interface {
	Create(ctx context.Context, asset *models.Asset) (*models.Asset, error)
	GetByHash(ctx context.Context, userID, sha256 string) (*models.Asset, error)
	GetByID(ctx context.Context, userID string, id int64) (*models.Asset, error)
	AddProvider(ctx context.Context, assetID int64, providerID string) error
	ListProviders(ctx context.Context, assetID int64) ([]string, error)
}
