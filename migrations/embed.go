// Package migrations ships the SQL schema with the binary.
package migrations

import "embed"

// FS holds the numbered .sql migration files
//
//go:embed *.sql
var FS embed.FS
