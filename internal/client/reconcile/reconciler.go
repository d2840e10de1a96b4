// Package reconcile decides, for one candidate and one target provider,
// whether to skip an upload, link an existing server asset to the
// provider, or transfer bytes — never re-sending content the server or
// this client already has on record.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dkovalev/assetvault/internal/client/cache"
	"github.com/dkovalev/assetvault/internal/client/models"
	"github.com/dkovalev/assetvault/internal/client/registry"
	"github.com/dkovalev/assetvault/internal/common"
	"github.com/dkovalev/assetvault/internal/hashx"
	"github.com/dkovalev/assetvault/internal/logging"
)

// Via names the short-circuit path that produced an outcome.
type Via string

const (
	// ViaLocalCache means the global hash index answered; no network call.
	ViaLocalCache Via = "local-cache"
	// ViaServerCheck means the read-only existence check answered.
	ViaServerCheck Via = "server-check"
	// ViaProviderLink means the server associated already-stored bytes
	// with the provider; no content transfer.
	ViaProviderLink Via = "provider-link"
	// ViaUpload means a full byte transfer happened.
	ViaUpload Via = "upload"
)

// Outcome reports one finished reconciliation. A short-circuited success
// is indistinguishable from a fresh upload except for Via and timing.
type Outcome struct {
	CandidateID string
	SHA256      string
	AssetID     int64
	ProviderID  string
	Note        string
	Via         Via
}

// Status is the transient per-candidate display state.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusUploading Status = "uploading"
	StatusSuccess   Status = "success"
	StatusError     Status = "error"
)

// Reconciler runs the five-step decision algorithm. Collaborators sit
// behind interfaces so tests can count exactly which calls happen.
type Reconciler struct {
	cache    cache.Cache
	registry registry.Client
	hasher   hashx.Hasher
	logger   logging.Logger
	open     models.OpenOptions

	// OnStatus, when set, receives transient state transitions for UI use.
	OnStatus func(candidateID string, s Status)
}

// New builds a Reconciler.
func New(c cache.Cache, r registry.Client, h hashx.Hasher, logger logging.Logger, open models.OpenOptions) *Reconciler {
	return &Reconciler{cache: c, registry: r, hasher: h, logger: logger, open: open}
}

func (r *Reconciler) status(candidateID string, s Status) {
	if r.OnStatus != nil {
		r.OnStatus(candidateID, s)
	}
}

// Reconcile runs the steps strictly in order for one candidate against
// one target provider:
//
//  1. ensure the content hash (recompute on size/mtime drift; degrade to
//     "no hash" when the source cannot be read for hashing),
//  2. local hash-index short-circuit,
//  3. read-only server existence check,
//  4. cross-provider link of an existing server asset,
//  5. full upload.
//
// The only durable side effects are local cache writes and the actual
// upload/link call. Cancellation leaves prior state unchanged.
func (r *Reconciler) Reconcile(ctx context.Context, cand *models.AssetCandidate, providerID string) (*Outcome, error) {
	if cand.Source == nil {
		return nil, fmt.Errorf("candidate %s has no source", cand.ID)
	}
	if !cand.Indexable() {
		return nil, fmt.Errorf("candidate %s: kind %q is excluded from upload", cand.ID, cand.Kind)
	}

	r.status(cand.ID, StatusUploading)

	// Step 1: ensure hash.
	digest, err := r.ensureHash(ctx, cand)
	if err != nil {
		r.status(cand.ID, StatusError)
		return nil, err
	}

	// Step 2: local short-circuit.
	if digest != "" {
		rec, err := r.cache.GetUploadRecordByHash(ctx, digest)
		if err != nil {
			// Cache read trouble downgrades to the server path.
			r.logger.Warn(ctx, "hash index lookup failed", "sha256", digest, "error", err.Error())
		} else if rec != nil && rec.Status == models.UploadStatusSuccess && rec.ProviderID == providerID {
			out := &Outcome{CandidateID: cand.ID, SHA256: digest, AssetID: rec.AssetID, ProviderID: providerID, Note: rec.Note, Via: ViaLocalCache}
			r.finish(ctx, cand, out, models.UploadStatusSuccess)
			return out, nil
		}

		// Step 3: server short-circuit (read-only).
		check, err := r.registry.Check(ctx, digest, providerID)
		if err != nil {
			r.status(cand.ID, StatusError)
			return nil, fmt.Errorf("existence check: %w", err)
		}
		if check.Exists && check.HasProvider(providerID) {
			out := &Outcome{CandidateID: cand.ID, SHA256: digest, AssetID: check.AssetID, ProviderID: providerID, Note: check.Note, Via: ViaServerCheck}
			r.record(ctx, digest, models.UploadStatusSuccess, check.AssetID, providerID, check.Note)
			r.finish(ctx, cand, out, models.UploadStatusSuccess)
			return out, nil
		}

		// Step 4: cross-provider link, no byte transfer.
		if check.Exists {
			linked, err := r.registry.Link(ctx, check.AssetID, providerID)
			if err != nil {
				r.recordFailure(ctx, cand, digest, err)
				return nil, fmt.Errorf("provider link: %w", err)
			}
			out := &Outcome{CandidateID: cand.ID, SHA256: digest, AssetID: linked.AssetID, ProviderID: providerID, Note: linked.Note, Via: ViaProviderLink}
			r.record(ctx, digest, models.UploadStatusSuccess, linked.AssetID, providerID, linked.Note)
			r.finish(ctx, cand, out, models.UploadStatusSuccess)
			return out, nil
		}
	}

	// Step 5: full upload.
	src, err := cand.Source.Open(ctx, r.open)
	if err != nil {
		r.recordFailure(ctx, cand, digest, err)
		return nil, fmt.Errorf("resolve bytes: %w", err)
	}

	uploaded, err := r.registry.Upload(ctx, registry.UploadRequest{
		Body:          src,
		ProviderID:    providerID,
		Name:          cand.Name,
		Kind:          cand.Kind,
		SHA256:        digest,
		SourceContext: sourceContext(cand.Source),
	})
	if err != nil {
		r.recordFailure(ctx, cand, digest, err)
		return nil, fmt.Errorf("upload: %w", err)
	}

	// A degraded no-hash upload still lands in the hash index: the
	// server computed the digest for us.
	if digest == "" {
		digest = uploaded.SHA256
	}
	out := &Outcome{CandidateID: cand.ID, SHA256: digest, AssetID: uploaded.AssetID, ProviderID: providerID, Note: uploaded.Note, Via: ViaUpload}
	r.record(ctx, digest, models.UploadStatusSuccess, uploaded.AssetID, providerID, uploaded.Note)
	r.finish(ctx, cand, out, models.UploadStatusSuccess)
	return out, nil
}

// ensureHash returns the candidate's trusted digest, computing it when
// absent or invalidated. An unreadable source degrades to "" — upload
// proceeds and the server computes the hash — rather than failing the
// whole reconciliation.
func (r *Reconciler) ensureHash(ctx context.Context, cand *models.AssetCandidate) (string, error) {
	liveSize, liveModified := liveStat(cand.Source)

	if cand.HashValid(liveSize, liveModified) {
		return cand.SHA256, nil
	}

	src, err := cand.Source.Open(ctx, r.open)
	if err != nil {
		if errors.Is(err, common.ErrSourceUnavailable) {
			r.logger.Warn(ctx, "source unreadable, uploading without precomputed hash", "candidate", cand.ID, "error", err.Error())
			return "", nil
		}
		return "", err
	}

	if size := src.Size(); size != models.SizeUnknown {
		cand.Size = size
	}

	digest, err := r.hasher.Hash(ctx, src, hashx.Options{})
	if err != nil {
		if errors.Is(err, common.ErrSourceUnavailable) {
			r.logger.Warn(ctx, "hashing failed mid-stream, uploading without precomputed hash", "candidate", cand.ID, "error", err.Error())
			return "", nil
		}
		// Cancellation and other failures stop the run before any write.
		return "", err
	}

	now := time.Now().UTC()
	cand.SHA256 = digest
	cand.SHA256ComputedAt = now
	if liveSize != models.SizeUnknown {
		cand.Size = liveSize
	}
	if !liveModified.IsZero() {
		cand.LastModified = liveModified
	}

	if err := r.cache.UpdateCandidateHash(ctx, cand.ID, digest, now, cand.Size, cand.LastModified); err != nil {
		// Losing the persisted hash is recoverable; losing the user's
		// action is not. Keep going with the in-memory value.
		r.logger.Warn(ctx, "failed to persist hash, keeping it in memory", "candidate", cand.ID, "error", err.Error())
	}
	return digest, nil
}

// liveStat reads the source's current size/mtime where that is cheap
// (folder files). Lazy sources report unknown, which trusts the record.
func liveStat(src models.Source) (int64, time.Time) {
	switch s := src.(type) {
	case models.FolderSource:
		fi, err := os.Stat(filepath.Join(s.HandleKey, filepath.FromSlash(s.RelativePath)))
		if err != nil {
			return models.SizeUnknown, time.Time{}
		}
		return fi.Size(), fi.ModTime().UTC().Truncate(time.Millisecond)
	case models.FileSource:
		if s.Data != nil {
			return int64(len(s.Data)), time.Time{}
		}
		return models.SizeUnknown, time.Time{}
	case models.URLSource, models.ProviderSource:
		return models.SizeUnknown, time.Time{}
	default:
		return models.SizeUnknown, time.Time{}
	}
}

func sourceContext(src models.Source) string {
	switch s := src.(type) {
	case models.FolderSource:
		return "folder:" + s.RelativePath
	case models.FileSource:
		return "capture:" + s.CaptureMethod
	case models.URLSource:
		return "url:" + s.SourceURL
	case models.ProviderSource:
		return "provider:" + s.ProviderID + "/" + s.ProviderAssetID
	default:
		return ""
	}
}

// record writes the durable outcome into the global hash index.
func (r *Reconciler) record(ctx context.Context, digest string, status models.UploadStatus, assetID int64, providerID, note string) {
	if digest == "" {
		return
	}
	err := r.cache.RecordUploadByHash(ctx, cache.HashUploadRecord{
		SHA256:     digest,
		Status:     status,
		UploadedAt: time.Now().UTC(),
		AssetID:    assetID,
		ProviderID: providerID,
		Note:       note,
	})
	if err != nil {
		// Quota or corruption: status stays in memory for this session;
		// the server remains the source of truth.
		r.logger.Warn(ctx, "failed to persist upload record", "sha256", digest, "error", err.Error())
	}
}

// recordFailure persists an error outcome unless the run was cancelled
// (a cancelled operation leaves prior state unchanged).
func (r *Reconciler) recordFailure(ctx context.Context, cand *models.AssetCandidate, digest string, cause error) {
	r.status(cand.ID, StatusError)
	if ctx.Err() != nil {
		return
	}
	if errors.Is(cause, common.ErrUploadRejected) {
		r.record(ctx, digest, models.UploadStatusError, 0, "", cause.Error())
		if err := r.cache.SetCandidateUploadState(ctx, cand.ID, models.UploadStatusError, cause.Error(), 0, ""); err != nil {
			r.logger.Warn(ctx, "failed to persist candidate state", "candidate", cand.ID, "error", err.Error())
		}
	}
}

// finish mirrors a success onto the candidate row for display.
func (r *Reconciler) finish(ctx context.Context, cand *models.AssetCandidate, out *Outcome, status models.UploadStatus) {
	cand.LastUploadStatus = status
	cand.LastUploadNote = out.Note
	cand.LastUploadAssetID = out.AssetID
	cand.LastUploadProviderID = out.ProviderID

	if err := r.cache.SetCandidateUploadState(ctx, cand.ID, status, out.Note, out.AssetID, out.ProviderID); err != nil {
		r.logger.Warn(ctx, "failed to persist candidate state", "candidate", cand.ID, "error", err.Error())
	}
	r.status(cand.ID, StatusSuccess)
}
