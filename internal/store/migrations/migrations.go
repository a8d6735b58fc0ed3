// Package migrations embeds the SQL migrations for console.db.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
