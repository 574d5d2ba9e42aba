// Package migrations embeds the catalog cache schema into the binary.
package migrations

import (
	"embed"

	"github.com/nerrad567/gray-logic-etsdecode/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "."
}
