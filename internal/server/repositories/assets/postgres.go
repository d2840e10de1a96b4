package assets

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dkovalev/assetvault/internal/common"
	"github.com/dkovalev/assetvault/internal/dbx"
	"github.com/dkovalev/assetvault/internal/server/models"
)

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new asset row. A (user_id, sha256) collision maps to
// common.ErrorAlreadyExists so the caller can fall back to GetByHash.
func (r *PostgresRepository) Create(ctx context.Context, asset *models.Asset) (*models.Asset, error) {
	query :=
		`INSERT INTO assets (user_id, sha256, name, kind, size, storage_key, source_context)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id
		 `

	err := r.db.QueryRowContext(ctx, query,
		asset.UserID, asset.SHA256, asset.Name, asset.Kind, asset.Size,
		asset.StorageKey, asset.SourceContext).Scan(&asset.ID)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return asset, nil
}

func (r *PostgresRepository) GetByHash(ctx context.Context, userID, sha256 string) (*models.Asset, error) {
	query :=
		`SELECT id, user_id, sha256, name, kind, size, storage_key, source_context FROM assets
		 WHERE user_id = $1 AND sha256 = $2
		 `

	return r.getOne(ctx, query, userID, sha256)
}

func (r *PostgresRepository) GetByID(ctx context.Context, userID string, id int64) (*models.Asset, error) {
	query :=
		`SELECT id, user_id, sha256, name, kind, size, storage_key, source_context FROM assets
		 WHERE user_id = $1 AND id = $2
		 `

	return r.getOne(ctx, query, userID, id)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, args ...any) (*models.Asset, error) {
	asset := &models.Asset{}
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&asset.ID, &asset.UserID, &asset.SHA256, &asset.Name, &asset.Kind,
		&asset.Size, &asset.StorageKey, &asset.SourceContext)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return asset, nil
}

// AddProvider records that the asset's bytes are present at providerID.
// Repeated associations are no-ops.
func (r *PostgresRepository) AddProvider(ctx context.Context, assetID int64, providerID string) error {
	query :=
		`INSERT INTO asset_providers (asset_id, provider_id)
		 VALUES ($1, $2)
		 ON CONFLICT (asset_id, provider_id) DO NOTHING
		 `

	if _, err := r.db.ExecContext(ctx, query, assetID, providerID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListProviders(ctx context.Context, assetID int64) ([]string, error) {
	query :=
		`SELECT provider_id FROM asset_providers
		 WHERE asset_id = $1
		 ORDER BY uploaded_at
		 `

	rows, err := r.db.QueryContext(ctx, query, assetID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
