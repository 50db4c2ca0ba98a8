// Package migrations embeds the SQL schema applied by repo.RunMigrations.
package migrations

import "embed"

//go:embed *.sql
var Files embed.FS
