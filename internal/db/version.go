package db

import (
	"io/fs"

	"github.com/persistorai/podrestore/internal/db/migrations"
)

// SchemaVersion returns the number of SQL migration files, which equals the
// current schema version. It is reported by the readiness endpoint.
func SchemaVersion() int {
	entries, err := fs.Glob(migrations.FS, "*.sql")
	if err != nil {
		return 0
	}

	return len(entries)
}
