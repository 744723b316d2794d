package migrations

import "github.com/uptrace/bun/migrate"

// Migrations holds the schema. bun names each migration after the file that
// registers it, so every migration lives in its own timestamped file.
var Migrations = migrate.NewMigrations()
