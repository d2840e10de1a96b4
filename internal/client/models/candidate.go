// Package models defines the client-side asset candidate types: files the
// user might want in the library, drawn from heterogeneous sources and
// unified behind one tagged-union Source field.
package models

import (
	"path/filepath"
	"strings"
	"time"
)

// AssetKind classifies a candidate's media type. Kind "other" is excluded
// from hashing, caching and upload entirely.
type AssetKind string

const (
	KindImage AssetKind = "image"
	KindVideo AssetKind = "video"
	KindOther AssetKind = "other"
)

// UploadStatus is the durable outcome of the last upload attempt.
type UploadStatus string

const (
	UploadStatusNone    UploadStatus = "none"
	UploadStatusSuccess UploadStatus = "success"
	UploadStatusError   UploadStatus = "error"
)

// SizeUnknown marks a candidate whose byte length has not been resolved
// yet (lazy url/provider sources).
const SizeUnknown int64 = -1

// AssetCandidate is a prospective media asset, not necessarily uploaded.
//
// ID is stable for the candidate's lifetime only; for folder sources it
// changes when the folder is removed and re-added, because the folder
// session id changes. SHA256 is the stable deduplication key: once
// computed and not invalidated, two candidates with equal SHA256 are
// byte-identical regardless of source.
type AssetCandidate struct {
	ID   string
	Name string
	Kind AssetKind

	// Size is the byte length, or SizeUnknown until resolved.
	Size int64
	// LastModified is the source's modification time; zero when unknown.
	LastModified time.Time

	// SHA256 is the lowercase hex content hash, empty until computed.
	SHA256 string
	// SHA256ComputedAt records when the hash was taken; used to
	// invalidate the hash when Size/LastModified drift on the source.
	SHA256ComputedAt time.Time

	LastUploadStatus     UploadStatus
	LastUploadNote       string
	LastUploadAssetID    int64
	LastUploadProviderID string

	// Source describes where the bytes come from. Exactly one variant;
	// the discriminant is authoritative for byte resolution.
	Source Source
}

// Indexable reports whether the candidate participates in hashing,
// caching and upload flows.
func (c *AssetCandidate) Indexable() bool {
	return c.Kind == KindImage || c.Kind == KindVideo
}

// HashValid reports whether the recorded hash can still be trusted
// against the live source's size and modification time. A drift in
// either invalidates the hash and forces recomputation.
func (c *AssetCandidate) HashValid(liveSize int64, liveModified time.Time) bool {
	if c.SHA256 == "" {
		return false
	}
	if liveSize != SizeUnknown && c.Size != SizeUnknown && liveSize != c.Size {
		return false
	}
	if !liveModified.IsZero() && !c.LastModified.IsZero() && !liveModified.Equal(c.LastModified) {
		return false
	}
	return true
}

// KindFromName classifies a file name by extension.
func KindFromName(name string) AssetKind {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp", ".bmp", ".tiff", ".avif":
		return KindImage
	case ".mp4", ".mov", ".webm", ".mkv", ".avi", ".m4v":
		return KindVideo
	default:
		return KindOther
	}
}
