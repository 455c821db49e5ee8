package migrations

import "github.com/uptrace/bun/migrate"

// Migrations holds the ordered schema changes applied by `quizboard migrate`.
// Each file registers itself from init; bun derives the migration name from the file name.
var Migrations = migrate.NewMigrations()
