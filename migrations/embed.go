// Package migrations embeds the schema migrations applied by `clinic-api migrate up`.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
