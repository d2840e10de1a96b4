package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dkovalev/assetvault/internal/common"
	"github.com/dkovalev/assetvault/internal/dbx"
	"github.com/dkovalev/assetvault/internal/hashx"
	"github.com/dkovalev/assetvault/internal/logging"
	"github.com/dkovalev/assetvault/internal/server/blob"
	"github.com/dkovalev/assetvault/internal/server/models"
	"github.com/dkovalev/assetvault/internal/server/repositories/repomanager"
)

// UploadParams describes one incoming asset body.
type UploadParams struct {
	Body          io.Reader
	Name          string
	Kind          string
	SHA256        string
	ProviderID    string
	SourceContext string
	Size          int64
}

type AssetService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	blobs       blob.Store
	logger      logging.Logger
}

func NewAssetService(db *sql.DB, m repomanager.RepositoryManager, blobs blob.Store, logger logging.Logger) *AssetService {
	return &AssetService{
		db:          db,
		repomanager: m,
		blobs:       blobs,
		logger:      logger,
	}
}

// Check looks up the caller's asset by content hash. The returned asset has
// its provider associations populated. Missing rows map to
// common.ErrorNotFound.
func (s *AssetService) Check(ctx context.Context, userID, sha256 string) (*models.Asset, error) {
	repo := s.repomanager.Assets(s.db)

	asset, err := repo.GetByHash(ctx, userID, sha256)
	if err != nil {
		return nil, err
	}

	providers, err := repo.ListProviders(ctx, asset.ID)
	if err != nil {
		return nil, fmt.Errorf("error listing providers: %w", err)
	}
	asset.Providers = providers

	return asset, nil
}

// Upload ingests an asset body: the server computes the content hash itself,
// verifies any hash the client claimed, stores the bytes and upserts the
// asset row keyed by (user, hash). A repeat upload of identical bytes lands
// on the existing row and only adds the provider association.
func (s *AssetService) Upload(ctx context.Context, userID string, p UploadParams) (*models.Asset, error) {

	if p.Name == "" || p.ProviderID == "" {
		return nil, fmt.Errorf("%w: name and provider_id are required", common.ErrUploadRejected)
	}

	tmp, err := os.CreateTemp("", "assetvault-upload-*")
	if err != nil {
		return nil, fmt.Errorf("error spooling upload: %w", err)
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	size, err := io.Copy(tmp, p.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", common.ErrUploadRejected, err)
	}

	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("error rewinding spool: %w", err)
	}
	digest, err := hashx.Sum(ctx, hashx.NewReaderSource(io.NopCloser(tmp), size), hashx.Options{})
	if err != nil {
		return nil, fmt.Errorf("error hashing upload: %w", err)
	}

	if p.SHA256 != "" && p.SHA256 != digest {
		return nil, fmt.Errorf("%w: digest mismatch", common.ErrUploadRejected)
	}

	key := blob.StorageKey(userID, digest)

	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("error rewinding spool: %w", err)
	}
	if err := s.blobs.Put(ctx, key, tmp, size); err != nil {
		return nil, fmt.Errorf("error storing blob: %w", err)
	}

	asset := &models.Asset{
		UserID:        userID,
		SHA256:        digest,
		Name:          p.Name,
		Kind:          p.Kind,
		Size:          size,
		StorageKey:    key,
		SourceContext: p.SourceContext,
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Assets(tx)

		created, err := repo.Create(ctx, asset)
		if errors.Is(err, common.ErrorAlreadyExists) {
			existing, err := repo.GetByHash(ctx, userID, digest)
			if err != nil {
				return err
			}
			s.logger.Info(ctx, "upload matched existing asset",
				"user_id", userID, "asset_id", existing.ID, "sha256", digest)
			asset = existing
		} else if err != nil {
			return err
		} else {
			asset = created
		}

		return repo.AddProvider(ctx, asset.ID, p.ProviderID)
	})
	if err != nil {
		return nil, err
	}

	providers, err := s.repomanager.Assets(s.db).ListProviders(ctx, asset.ID)
	if err != nil {
		return nil, fmt.Errorf("error listing providers: %w", err)
	}
	asset.Providers = providers

	return asset, nil
}

// Link associates an already-stored asset with another provider without
// moving any bytes. The asset must belong to the caller.
func (s *AssetService) Link(ctx context.Context, userID string, assetID int64, providerID string) (*models.Asset, error) {

	if providerID == "" {
		return nil, fmt.Errorf("%w: provider_id is required", common.ErrUploadRejected)
	}

	repo := s.repomanager.Assets(s.db)

	asset, err := repo.GetByID(ctx, userID, assetID)
	if err != nil {
		return nil, err
	}

	if err := repo.AddProvider(ctx, asset.ID, providerID); err != nil {
		return nil, fmt.Errorf("error adding provider: %w", err)
	}

	providers, err := repo.ListProviders(ctx, asset.ID)
	if err != nil {
		return nil, fmt.Errorf("error listing providers: %w", err)
	}
	asset.Providers = providers

	return asset, nil
}
