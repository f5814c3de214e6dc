// Package migrations embeds the Postgres schema so it ships inside the binary.
package migrations

import "embed"

// FS holds the .sql files of this directory, applied in name order.
//
//go:embed *.sql
var FS embed.FS
