// Package migrations contains embedded SQL migration files for the postgres
// store and the sqlite key-value backend.
package migrations

import "embed"

// Postgres holds the health_records, users and sessions schema.
//
//go:embed postgres/*.sql
var Postgres embed.FS

// SQLite holds the key-value table used by the local record store.
//
//go:embed sqlite/*.sql
var SQLite embed.FS
