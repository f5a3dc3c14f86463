// Package migrations ships the versioned SQL schema with the binary.
package migrations

import "embed"

//go:embed *.sql
var files embed.FS

// FS returns the embedded migration files.
func FS() embed.FS {
	return files
}

// Dir is the path within FS holding the migration files.
const Dir = "."
