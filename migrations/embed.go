// Package migrations embeds the schema so `projeval migrate` works from any directory.
package migrations

import "embed"

// FS contains every .sql file in this directory (e.g. 001_learning.sql).
//
//go:embed *.sql
var FS embed.FS
