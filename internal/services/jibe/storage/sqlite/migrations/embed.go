package migrations

import "embed"

// FS contains embedded SQLite migrations for jibe storage.
//
//go:embed *.sql
var FS embed.FS
