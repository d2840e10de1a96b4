package models

import "time"

// User is a registered account in the asset registry.
type User struct {
	CreatedAt    time.Time
	ID           string
	UserName     string
	PasswordHash []byte
}
