// Package sql holds the embedded schema migrations.
package sql

import "embed"

//go:embed migrations/*.sql
var Migrations embed.FS
