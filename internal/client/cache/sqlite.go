package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dkovalev/assetvault/internal/client/models"
	"github.com/dkovalev/assetvault/internal/common"
	"github.com/dkovalev/assetvault/internal/dbx"
	"github.com/dkovalev/assetvault/internal/logging"
)

// SQLiteCache implements Cache over a local SQLite database.
type SQLiteCache struct {
	db     *sql.DB
	logger logging.Logger
}

// NewSQLiteCache returns a cache bound to db.
func NewSQLiteCache(db *sql.DB, logger logging.Logger) *SQLiteCache {
	return &SQLiteCache{db: db, logger: logger}
}

func (c *SQLiteCache) RegisterFolder(ctx context.Context, folder Folder) error {
	query := `INSERT INTO folders (id, handle_key, label, added_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET handle_key = excluded.handle_key,
			label = excluded.label
	`
	_, err := c.db.ExecContext(ctx, query, folder.ID, folder.HandleKey, folder.Label, folder.AddedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to upsert folder: %w", err)
	}
	return nil
}

func (c *SQLiteCache) ListFolders(ctx context.Context) ([]Folder, error) {
	query := `SELECT id, handle_key, label, added_at FROM folders ORDER BY added_at`
	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select folders: %w", err)
	}
	defer rows.Close()

	var result []Folder
	for rows.Next() {
		var f Folder
		var addedAt int64
		if err := rows.Scan(&f.ID, &f.HandleKey, &f.Label, &addedAt); err != nil {
			return nil, err
		}
		f.AddedAt = time.UnixMilli(addedAt).UTC()
		result = append(result, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *SQLiteCache) GetFolder(ctx context.Context, folderID string) (*Folder, error) {
	query := `SELECT id, handle_key, label, added_at FROM folders WHERE id = ?`
	var f Folder
	var addedAt int64
	err := c.db.QueryRowContext(ctx, query, folderID).Scan(&f.ID, &f.HandleKey, &f.Label, &addedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select folder: %w", err)
	}
	f.AddedAt = time.UnixMilli(addedAt).UTC()
	return &f, nil
}

const candidateColumns = `id, folder_id, relative_path, name, kind, size, last_modified,
	sha256, sha256_computed_at, last_upload_status, last_upload_note,
	last_upload_asset_id, last_upload_provider_id, source`

func (c *SQLiteCache) LoadFolderCandidates(ctx context.Context, folderID string) ([]models.AssetCandidate, error) {
	query := `SELECT ` + candidateColumns + ` FROM candidates WHERE folder_id = ? ORDER BY relative_path`
	rows, err := c.db.QueryContext(ctx, query, folderID)
	if err != nil {
		return nil, fmt.Errorf("failed to select candidates: %w", err)
	}
	defer rows.Close()

	var result []models.AssetCandidate
	for rows.Next() {
		cand, err := scanCandidate(rows)
		if err != nil {
			// One corrupt row must not take the rest of the folder (or
			// other folders) down with it.
			c.logger.Warn(ctx, "skipping unreadable candidate row", "folder_id", folderID, "error", err.Error())
			continue
		}
		result = append(result, *cand)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCandidate(row rowScanner) (*models.AssetCandidate, error) {
	var cand models.AssetCandidate
	var lastModified, computedAt int64
	var folderID, relativePath, sourceJSON string

	err := row.Scan(&cand.ID, &folderID, &relativePath, &cand.Name, &cand.Kind,
		&cand.Size, &lastModified, &cand.SHA256, &computedAt,
		&cand.LastUploadStatus, &cand.LastUploadNote,
		&cand.LastUploadAssetID, &cand.LastUploadProviderID, &sourceJSON)
	if err != nil {
		return nil, fmt.Errorf("scan candidate: %w", err)
	}

	if lastModified != 0 {
		cand.LastModified = time.UnixMilli(lastModified).UTC()
	}
	if computedAt != 0 {
		cand.SHA256ComputedAt = time.UnixMilli(computedAt).UTC()
	}

	if sourceJSON != "" {
		src, err := models.UnmarshalSource([]byte(sourceJSON))
		if err != nil {
			return nil, fmt.Errorf("candidate %s: %w", cand.ID, err)
		}
		cand.Source = src
	} else {
		// Pre-migration rows carry only the flat fields.
		cand.Source = models.FolderSource{FolderID: folderID, RelativePath: relativePath}
	}
	return &cand, nil
}

func (c *SQLiteCache) SaveFolderCandidates(ctx context.Context, folderID string, candidates []models.AssetCandidate) error {
	return dbx.WithTx(ctx, c.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		prior, err := loadPrior(ctx, tx, folderID)
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM candidates WHERE folder_id = ?`, folderID); err != nil {
			return fmt.Errorf("failed to clear folder candidates: %w", err)
		}

		insert := `INSERT INTO candidates (` + candidateColumns + `)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

		for i := range candidates {
			cand := candidates[i]
			if !cand.Indexable() {
				continue
			}

			src, ok := cand.Source.(models.FolderSource)
			if !ok {
				return fmt.Errorf("candidate %s: only folder-sourced candidates are persisted per folder, got %q", cand.ID, cand.Source.Type())
			}
			src.FolderID = folderID
			cand.Source = src

			// The whole set is replaced, but recorded hashes and upload
			// outcomes survive for rows whose identity is unchanged.
			if old, ok := prior[src.RelativePath]; ok {
				if cand.SHA256 == "" && old.HashValid(cand.Size, cand.LastModified) {
					cand.SHA256 = old.SHA256
					cand.SHA256ComputedAt = old.SHA256ComputedAt
				}
				if cand.LastUploadStatus == "" || cand.LastUploadStatus == models.UploadStatusNone {
					cand.LastUploadStatus = old.LastUploadStatus
					cand.LastUploadNote = old.LastUploadNote
					cand.LastUploadAssetID = old.LastUploadAssetID
					cand.LastUploadProviderID = old.LastUploadProviderID
				}
			}
			if cand.LastUploadStatus == "" {
				cand.LastUploadStatus = models.UploadStatusNone
			}

			sourceJSON, err := models.MarshalSource(cand.Source)
			if err != nil {
				return fmt.Errorf("candidate %s: %w", cand.ID, err)
			}

			var lastModified, computedAt int64
			if !cand.LastModified.IsZero() {
				lastModified = cand.LastModified.UnixMilli()
			}
			if !cand.SHA256ComputedAt.IsZero() {
				computedAt = cand.SHA256ComputedAt.UnixMilli()
			}

			_, err = tx.ExecContext(ctx, insert,
				cand.ID, folderID, src.RelativePath, cand.Name, cand.Kind,
				cand.Size, lastModified, cand.SHA256, computedAt,
				cand.LastUploadStatus, cand.LastUploadNote,
				cand.LastUploadAssetID, cand.LastUploadProviderID, string(sourceJSON))
			if err != nil {
				return fmt.Errorf("failed to insert candidate %s: %w", cand.ID, err)
			}
		}
		return nil
	})
}

// loadPrior maps relative path to the previously cached candidate for the
// folder, for carrying hash and upload history through a rescan.
func loadPrior(ctx context.Context, tx dbx.DBTX, folderID string) (map[string]*models.AssetCandidate, error) {
	query := `SELECT ` + candidateColumns + ` FROM candidates WHERE folder_id = ?`
	rows, err := tx.QueryContext(ctx, query, folderID)
	if err != nil {
		return nil, fmt.Errorf("failed to select prior candidates: %w", err)
	}
	defer rows.Close()

	prior := make(map[string]*models.AssetCandidate)
	for rows.Next() {
		cand, err := scanCandidate(rows)
		if err != nil {
			continue
		}
		if src, ok := cand.Source.(models.FolderSource); ok {
			prior[src.RelativePath] = cand
		}
	}
	return prior, rows.Err()
}

func (c *SQLiteCache) UpdateCandidateHash(ctx context.Context, candidateID, sha256 string, computedAt time.Time, size int64, lastModified time.Time) error {
	var lastModifiedMilli int64
	if !lastModified.IsZero() {
		lastModifiedMilli = lastModified.UnixMilli()
	}
	query := `UPDATE candidates SET sha256 = ?, sha256_computed_at = ?, size = ?, last_modified = ?
		WHERE id = ?`
	_, err := c.db.ExecContext(ctx, query, sha256, computedAt.UnixMilli(), size, lastModifiedMilli, candidateID)
	if err != nil {
		return fmt.Errorf("failed to update candidate hash: %w", err)
	}
	return nil
}

func (c *SQLiteCache) SetCandidateUploadState(ctx context.Context, candidateID string, status models.UploadStatus, note string, assetID int64, providerID string) error {
	query := `UPDATE candidates SET last_upload_status = ?, last_upload_note = ?,
		last_upload_asset_id = ?, last_upload_provider_id = ?
		WHERE id = ?`
	_, err := c.db.ExecContext(ctx, query, status, note, assetID, providerID, candidateID)
	if err != nil {
		return fmt.Errorf("failed to update candidate upload state: %w", err)
	}
	return nil
}

func (c *SQLiteCache) GetUploadRecordByHash(ctx context.Context, sha256 string) (*HashUploadRecord, error) {
	query := `SELECT sha256, status, uploaded_at, asset_id, provider_id, note
		FROM upload_records WHERE sha256 = ?`

	var rec HashUploadRecord
	var uploadedAt int64
	err := c.db.QueryRowContext(ctx, query, sha256).Scan(
		&rec.SHA256, &rec.Status, &uploadedAt, &rec.AssetID, &rec.ProviderID, &rec.Note)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select upload record: %w", err)
	}
	rec.UploadedAt = time.UnixMilli(uploadedAt).UTC()
	return &rec, nil
}

func (c *SQLiteCache) RecordUploadByHash(ctx context.Context, rec HashUploadRecord) error {
	query := `INSERT INTO upload_records (sha256, status, uploaded_at, asset_id, provider_id, note)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(sha256) DO UPDATE SET status = excluded.status,
			uploaded_at = excluded.uploaded_at,
			asset_id = excluded.asset_id,
			provider_id = excluded.provider_id,
			note = excluded.note
	`
	_, err := c.db.ExecContext(ctx, query,
		rec.SHA256, rec.Status, rec.UploadedAt.UnixMilli(), rec.AssetID, rec.ProviderID, rec.Note)
	if err != nil {
		return fmt.Errorf("failed to upsert upload record: %w", err)
	}
	return nil
}

func (c *SQLiteCache) RemoveFolder(ctx context.Context, folderID string) error {
	// upload_records is intentionally left alone here: that is the
	// mechanism by which upload history survives folder churn.
	return dbx.WithTx(ctx, c.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM candidates WHERE folder_id = ?`, folderID); err != nil {
			return fmt.Errorf("failed to delete folder candidates: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM folders WHERE id = ?`, folderID); err != nil {
			return fmt.Errorf("failed to delete folder: %w", err)
		}
		return nil
	})
}
