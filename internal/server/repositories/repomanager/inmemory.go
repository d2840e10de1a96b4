package repomanager

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/dkovalev/assetvault/internal/common"
	"github.com/dkovalev/assetvault/internal/dbx"
	"github.com/dkovalev/assetvault/internal/server/models"
	"github.com/dkovalev/assetvault/internal/server/repositories/assets"
	"github.com/dkovalev/assetvault/internal/server/repositories/users"
)

// InMemoryRepositoryManager vends map-backed repositories. It ignores the
// DBTX handles it is given, so transactional grouping is a no-op. Intended
// for tests and local experiments.
type InMemoryRepositoryManager struct {
	users  *inMemoryUserRepo
	assets *inMemoryAssetRepo
}

func NewInMemoryRepositoryManager() *InMemoryRepositoryManager {
	return &InMemoryRepositoryManager{
		users:  &inMemoryUserRepo{byName: map[string]*models.User{}},
		assets: &inMemoryAssetRepo{providers: map[int64][]string{}, nextID: 1},
	}
}

func (m *InMemoryRepositoryManager) RunMigrations(context.Context, *sql.DB) error { return nil }

func (m *InMemoryRepositoryManager) Users(dbx.DBTX) users.Repository { return m.users }

func (m *InMemoryRepositoryManager) Assets(dbx.DBTX) assets.Repository { return m.assets }

type inMemoryUserRepo struct {
	mu     sync.Mutex
	byName map[string]*models.User
	nextID int
}

func (r *inMemoryUserRepo) Create(ctx context.Context, user *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byName[user.UserName]; ok {
		return nil, common.ErrorAlreadyExists
	}
	r.nextID++
	user.ID = fmt.Sprintf("u-%d", r.nextID)
	r.byName[user.UserName] = user
	return user, nil
}

func (r *inMemoryUserRepo) GetUserByLogin(ctx context.Context, userName string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byName[userName]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return u, nil
}

type inMemoryAssetRepo struct {
	mu        sync.Mutex
	rows      []*models.Asset
	providers map[int64][]string
	nextID    int64
}

func (r *inMemoryAssetRepo) Create(ctx context.Context, asset *models.Asset) (*models.Asset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.UserID == asset.UserID && row.SHA256 == asset.SHA256 {
			return nil, common.ErrorAlreadyExists
		}
	}
	asset.ID = r.nextID
	r.nextID++
	clone := *asset
	r.rows = append(r.rows, &clone)
	return asset, nil
}

func (r *inMemoryAssetRepo) GetByHash(ctx context.Context, userID, sha256 string) (*models.Asset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.UserID == userID && row.SHA256 == sha256 {
			clone := *row
			return &clone, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *inMemoryAssetRepo) GetByID(ctx context.Context, userID string, id int64) (*models.Asset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.UserID == userID && row.ID == id {
			clone := *row
			return &clone, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *inMemoryAssetRepo) AddProvider(ctx context.Context, assetID int64, providerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.providers[assetID] {
		if p == providerID {
			return nil
		}
	}
	r.providers[assetID] = append(r.providers[assetID], providerID)
	return nil
}

func (r *inMemoryAssetRepo) ListProviders(ctx context.Context, assetID int64) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.providers[assetID]...), nil
}
