// Package migrations embeds the client's goose SQL migrations (SQLite).
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
