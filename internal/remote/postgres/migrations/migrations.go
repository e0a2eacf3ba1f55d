// Package migrations embeds the goose migrations of the remote records
// database.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
