// Package db embeds the schema migrations shared by the postgres and sqlite drivers
package db

import "embed"

//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory of Migrations that holds the files
const MigrationsDir = "migrations"
