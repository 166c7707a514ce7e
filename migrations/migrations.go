// Package migrations embeds the SQL schema migration files.
package migrations

import (
	"embed"
	"io/fs"
)

//go:embed *.sql
var migrationsFS embed.FS

// GetMigrationsFS returns the embedded migration tree. Files apply in
// lexical order.
func GetMigrationsFS() fs.FS {
	return migrationsFS
}
