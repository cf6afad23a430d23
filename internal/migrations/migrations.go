package migrations

import "embed"

// Files holds the TeamTasks schema migrations, applied in lexical order
// (001_init.sql, 002_...) by store.ApplyMigrations.
//
//go:embed *.sql
var Files embed.FS
