// Package common defines shared constants and sentinel errors used across
// the client and server layers of assetvault. Callers should use errors.Is
// to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// ErrSourceUnavailable means a candidate's underlying bytes cannot
	// currently be read: the file moved, permission was revoked, or a
	// network fetch failed. Recoverable: the candidate can still be
	// uploaded and the server computes the hash.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrUploadRejected means the server declined an upload (validation,
	// quota, provider-specific rejection). Recorded locally with the
	// server's note; never retried automatically.
	ErrUploadRejected = errors.New("upload rejected")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// Validation errors.
	ErrorAlreadyExists        = errors.New("already exists")
	ErrorInvalidLoginFormat   = errors.New("invalid login format")
	ErrorInvalidLoginPassword = errors.New("invalid login/password")
)
