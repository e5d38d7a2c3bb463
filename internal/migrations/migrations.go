// Package migrations embeds the goose migrations for the local sqlite mirror.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
