package carlog

import "embed"

// MigrationsFS holds the schema migrations applied at startup.
//
//go:embed migrations/*.sql
var MigrationsFS embed.FS
