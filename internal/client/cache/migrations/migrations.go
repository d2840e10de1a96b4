// Package migrations embeds the versioned schema for the local candidate
// cache. Migrations are one-way and run once at open time; goose records
// applied versions so re-running the chain is a no-op.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
