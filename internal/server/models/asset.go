package models

import "time"

// Asset is one content-addressed object owned by a user. The pair
// (UserID, SHA256) is unique: uploading identical bytes twice lands
// on the same row.
type Asset struct {
	CreatedAt     time.Time
	UserID        string
	SHA256        string
	Name          string
	Kind          string
	StorageKey    string
	SourceContext string
	Providers     []string
	ID            int64
	Size          int64
}

// HasProvider reports whether the asset has already been associated
// with providerID.
func (a *Asset) HasProvider(providerID string) bool {
	for _, p := range a.Providers {
		if p == providerID {
			return true
		}
	}
	return false
}
