package migrations

import "embed"

// FS contains embedded SQLite migrations for metadata storage.
//
//go:embed *.sql
var FS embed.FS
