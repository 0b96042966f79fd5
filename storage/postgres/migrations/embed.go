package migrations

import "embed"

// FS contains embedded PostgreSQL migrations for game storage.
//
//go:embed *.sql
var FS embed.FS
