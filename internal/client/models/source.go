package models

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/dkovalev/assetvault/internal/common"
	"github.com/dkovalev/assetvault/internal/hashx"
)

// SourceType discriminates the Source union.
type SourceType string

const (
	SourceTypeFolder   SourceType = "folder"
	SourceTypeFile     SourceType = "file"
	SourceTypeURL      SourceType = "url"
	SourceTypeProvider SourceType = "provider"
)

// Source describes where a candidate's bytes come from. Exactly one
// concrete variant backs each candidate; every consumption site switches
// exhaustively on the concrete type, so adding a variant is a localized,
// compile-checked change.
type Source interface {
	Type() SourceType

	// Open resolves the source to its bytes. Failures that mean "the
	// bytes cannot currently be read" (moved file, revoked permission,
	// failed fetch) wrap common.ErrSourceUnavailable.
	Open(ctx context.Context, opts OpenOptions) (hashx.ByteSource, error)
}

// OpenOptions carries the collaborators lazy sources need.
type OpenOptions struct {
	// HTTPClient fetches url/provider sources; nil means http.DefaultClient.
	HTTPClient *http.Client
}

func (o OpenOptions) httpClient() *http.Client {
	if o.HTTPClient != nil {
		return o.HTTPClient
	}
	return http.DefaultClient
}

// FolderSource identifies a file inside a registered local folder. The
// identity depends on the ephemeral folder session id; RelativePath is
// the path within that folder, HandleKey resolves the folder root.
type FolderSource struct {
	FolderID     string `json:"folderId"`
	RelativePath string `json:"relativePath"`
	HandleKey    string `json:"handleKey"`
}

func (s FolderSource) Type() SourceType { return SourceTypeFolder }

func (s FolderSource) Open(ctx context.Context, _ OpenOptions) (hashx.ByteSource, error) {
	path := filepath.Join(s.HandleKey, filepath.FromSlash(s.RelativePath))
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", common.ErrSourceUnavailable, path, err)
	}
	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%w: stat %s: %v", common.ErrSourceUnavailable, path, err)
	}
	return hashx.NewReaderSource(f, fi.Size()), nil
}

// FileSource is a direct capture (drag-and-drop, clipboard). The bytes
// are resident in memory and valid for the current session only.
type FileSource struct {
	FileName      string    `json:"fileName"`
	CaptureMethod string    `json:"captureMethod"`
	CapturedAt    time.Time `json:"capturedAt"`

	// Data holds the captured bytes; never persisted.
	Data []byte `json:"-"`
}

func (s FileSource) Type() SourceType { return SourceTypeFile }

func (s FileSource) Open(_ context.Context, _ OpenOptions) (hashx.ByteSource, error) {
	if s.Data == nil {
		return nil, fmt.Errorf("%w: captured bytes expired with the session", common.ErrSourceUnavailable)
	}
	return hashx.NewBytesSource(s.Data), nil
}

// URLSource imports bytes lazily from an arbitrary URL.
type URLSource struct {
	SourceURL  string    `json:"sourceUrl"`
	SourceSite string    `json:"sourceSite"`
	ImportedAt time.Time `json:"importedAt"`
}

func (s URLSource) Type() SourceType { return SourceTypeURL }

func (s URLSource) Open(ctx context.Context, opts OpenOptions) (hashx.ByteSource, error) {
	return fetch(ctx, opts.httpClient(), s.SourceURL)
}

// ProviderSource captures an asset already hosted on a provider CDN.
type ProviderSource struct {
	ProviderID      string    `json:"providerId"`
	ProviderAssetID string    `json:"providerAssetId"`
	CDNURL          string    `json:"cdnUrl"`
	CapturedAt      time.Time `json:"capturedAt"`
}

func (s ProviderSource) Type() SourceType { return SourceTypeProvider }

func (s ProviderSource) Open(ctx context.Context, opts OpenOptions) (hashx.ByteSource, error) {
	return fetch(ctx, opts.httpClient(), s.CDNURL)
}

// fetch resolves url-backed sources. Fetched bytes are hashed exactly
// like any other source, no special-casing per source type.
func fetch(ctx context.Context, client *http.Client, url string) (hashx.ByteSource, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request for %s: %v", common.ErrSourceUnavailable, url, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch %s: %v", common.ErrSourceUnavailable, url, err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("%w: fetch %s: %s", common.ErrSourceUnavailable, url, resp.Status)
	}
	size := resp.ContentLength
	if size < 0 {
		size = SizeUnknown
	}
	return hashx.NewReaderSource(resp.Body, size), nil
}

// sourceEnvelope is the persisted JSON shape: the variant's fields plus
// a "type" discriminant.
type sourceEnvelope struct {
	Type SourceType `json:"type"`

	FolderID     string `json:"folderId,omitempty"`
	RelativePath string `json:"relativePath,omitempty"`
	HandleKey    string `json:"handleKey,omitempty"`

	FileName      string    `json:"fileName,omitempty"`
	CaptureMethod string    `json:"captureMethod,omitempty"`
	CapturedAt    time.Time `json:"capturedAt,omitempty"`

	SourceURL  string    `json:"sourceUrl,omitempty"`
	SourceSite string    `json:"sourceSite,omitempty"`
	ImportedAt time.Time `json:"importedAt,omitempty"`

	ProviderID      string `json:"providerId,omitempty"`
	ProviderAssetID string `json:"providerAssetId,omitempty"`
	CDNURL          string `json:"cdnUrl,omitempty"`
}

// MarshalSource encodes a Source with its discriminant.
func MarshalSource(s Source) ([]byte, error) {
	var env sourceEnvelope
	switch v := s.(type) {
	case FolderSource:
		env = sourceEnvelope{Type: SourceTypeFolder, FolderID: v.FolderID, RelativePath: v.RelativePath, HandleKey: v.HandleKey}
	case FileSource:
		env = sourceEnvelope{Type: SourceTypeFile, FileName: v.FileName, CaptureMethod: v.CaptureMethod, CapturedAt: v.CapturedAt}
	case URLSource:
		env = sourceEnvelope{Type: SourceTypeURL, SourceURL: v.SourceURL, SourceSite: v.SourceSite, ImportedAt: v.ImportedAt}
	case ProviderSource:
		env = sourceEnvelope{Type: SourceTypeProvider, ProviderID: v.ProviderID, ProviderAssetID: v.ProviderAssetID, CDNURL: v.CDNURL, CapturedAt: v.CapturedAt}
	default:
		return nil, fmt.Errorf("unknown source variant %T", s)
	}
	return json.Marshal(env)
}

// UnmarshalSource decodes a Source by its discriminant.
func UnmarshalSource(data []byte) (Source, error) {
	var env sourceEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode source: %w", err)
	}
	switch env.Type {
	case SourceTypeFolder:
		return FolderSource{FolderID: env.FolderID, RelativePath: env.RelativePath, HandleKey: env.HandleKey}, nil
	case SourceTypeFile:
		return FileSource{FileName: env.FileName, CaptureMethod: env.CaptureMethod, CapturedAt: env.CapturedAt}, nil
	case SourceTypeURL:
		return URLSource{SourceURL: env.SourceURL, SourceSite: env.SourceSite, ImportedAt: env.ImportedAt}, nil
	case SourceTypeProvider:
		return ProviderSource{ProviderID: env.ProviderID, ProviderAssetID: env.ProviderAssetID, CDNURL: env.CDNURL, CapturedAt: env.CapturedAt}, nil
	default:
		return nil, fmt.Errorf("unknown source type %q", env.Type)
	}
}
