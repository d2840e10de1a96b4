// Package cache is the durable client-side store for candidate metadata
// and upload history. It keeps two deliberately separate key spaces in
// one SQLite database: per-folder candidate sets keyed by the ephemeral
// folder session id ("where did I see this file"), and a global
// hash-indexed upload record map ("have I already dealt with this
// content") that survives folder removal and re-addition.
package cache

import (
	"context"
	"time"

	"github.com/dkovalev/assetvault/internal/client/models"
)

// Folder is a registered scan root. ID is a session identifier minted
// when the folder is added; removing and re-adding the same directory
// yields a new ID, which is why candidate identity is never a dedup key.
type Folder struct {
	ID        string
	HandleKey string
	Label     string
	AddedAt   time.Time
}

// HashUploadRecord is one row of the global hash index: the durable
// outcome of the last upload attempt for a piece of content, keyed by
// sha256 and nothing else.
type HashUploadRecord struct {
	SHA256     string
	Status     models.UploadStatus
	UploadedAt time.Time
	AssetID    int64
	ProviderID string
	Note       string
}

// Cache describes the operations the rest of the client performs against
// the local store. Implementations are backed by SQLite.
type Cache interface {
	// RegisterFolder upserts a scan root.
	RegisterFolder(ctx context.Context, folder Folder) error

	// ListFolders returns all registered scan roots.
	ListFolders(ctx context.Context) ([]Folder, error)

	// GetFolder returns one scan root, or common.ErrorNotFound.
	GetFolder(ctx context.Context, folderID string) (*Folder, error)

	// LoadFolderCandidates returns the cached candidate set for a folder
	// without touching the underlying source, so the UI can populate
	// instantly before a background rescan confirms freshness.
	LoadFolderCandidates(ctx context.Context, folderID string) ([]models.AssetCandidate, error)

	// SaveFolderCandidates replaces the cached set for a folder. Hash and
	// upload-status fields recorded for a candidate whose identity
	// (relative path within the folder) is unchanged are carried over,
	// so a rescan never silently drops upload history.
	SaveFolderCandidates(ctx context.Context, folderID string, candidates []models.AssetCandidate) error

	// UpdateCandidateHash persists a freshly computed digest together
	// with the size/mtime it was computed against.
	UpdateCandidateHash(ctx context.Context, candidateID, sha256 string, computedAt time.Time, size int64, lastModified time.Time) error

	// SetCandidateUploadState records the outcome of the last upload
	// attempt on the candidate row itself (display state only; the
	// durable dedup key lives in the hash index).
	SetCandidateUploadState(ctx context.Context, candidateID string, status models.UploadStatus, note string, assetID int64, providerID string) error

	// GetUploadRecordByHash looks the content up in the global hash
	// index. Returns (nil, nil) when the hash has never been uploaded
	// from this client.
	GetUploadRecordByHash(ctx context.Context, sha256 string) (*HashUploadRecord, error)

	// RecordUploadByHash upserts into the global hash index. Last write
	// wins per hash. Never namespaced by folder or candidate id.
	RecordUploadByHash(ctx context.Context, rec HashUploadRecord) error

	// RemoveFolder deletes the folder row and its candidate set. The
	// global hash index is untouched: upload history must survive
	// folder churn.
	RemoveFolder(ctx context.Context, folderID string) error
}
