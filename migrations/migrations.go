// Package migrations embeds the goose SQL migration set for the
// exchanges/submissions/played_games schema, grounded on the teacher's
// pkg/database.Migrator, which expects an embed.FS plus a goose directory.
package migrations

import "embed"

//go:embed *.sql
var PostgresMigrations embed.FS
