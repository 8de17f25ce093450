// Package migrations embeds SQL migration files.
package migrations

import "embed"

// FS contains the schema migrations in lexical apply order.
//
//go:embed *.sql
var FS embed.FS
