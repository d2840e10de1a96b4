// Package registry is the client-side view of the server asset registry:
// the system of record for per-user, per-content-hash uniqueness and the
// mapping from one logical asset to the providers it has been pushed to.
package registry

import (
	"context"

	"github.com/dkovalev/assetvault/internal/client/models"
	"github.com/dkovalev/assetvault/internal/hashx"
)

// CheckResult is the registry's answer to an existence check.
type CheckResult struct {
	Exists              bool     `json:"exists"`
	AssetID             int64    `json:"asset_id,omitempty"`
	ProviderID          string   `json:"provider_id,omitempty"`
	UploadedToProviders []string `json:"uploaded_to_providers,omitempty"`
	Note                string   `json:"note,omitempty"`
}

// HasProvider reports whether the checked asset is already associated
// with providerID.
func (r *CheckResult) HasProvider(providerID string) bool {
	for _, p := range r.UploadedToProviders {
		if p == providerID {
			return true
		}
	}
	return false
}

// UploadRequest carries one full upload: bytes plus metadata plus the
// target provider. SHA256 is the client's precomputed digest when
// available; the server verifies it, or computes it when absent.
// SourceContext is audit-only free text (originating folder path or
// source URL), never part of the identity model.
type UploadRequest struct {
	Body          hashx.ByteSource
	ProviderID    string
	Name          string
	Kind          models.AssetKind
	SHA256        string
	SourceContext string
}

// UploadResult is the outcome of an upload or a provider-link call.
type UploadResult struct {
	AssetID    int64  `json:"asset_id"`
	ProviderID string `json:"provider_id"`
	SHA256     string `json:"sha256,omitempty"`
	Note       string `json:"note,omitempty"`
}

// Client talks to the server asset registry. The reconciler depends on
// this interface; tests substitute a recording fake.
type Client interface {
	// Register creates a registry account.
	Register(ctx context.Context, username, password string) error

	// Login authenticates and stores the session token on the client.
	Login(ctx context.Context, username, password string) error

	// Check asks whether content with the given hash exists for the
	// requesting user, and whether providerID already has it. Read-only
	// on the server: it must not touch any access bookkeeping.
	Check(ctx context.Context, sha256, providerID string) (*CheckResult, error)

	// Link associates an existing asset with a provider using bytes the
	// server already stores. No content transfer.
	Link(ctx context.Context, assetID int64, providerID string) (*UploadResult, error)

	// Upload performs a full byte transfer. The body is consumed and
	// closed. A server-side rejection is returned as
	// common.ErrUploadRejected with the server's note.
	Upload(ctx context.Context, req UploadRequest) (*UploadResult, error)
}
