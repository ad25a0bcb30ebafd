// Package migrations embeds the Postgres schema and applies it in order.
package migrations

import "embed"

// Files embeds the SQL migrations.
//
//go:embed *.sql
var Files embed.FS
