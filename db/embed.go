// Package db carries the embedded goose migrations so binaries migrate
// without a copy of the source tree on disk.
package db

import "embed"

//go:embed migrations/*.sql
var Migrations embed.FS
