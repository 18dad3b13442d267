// Package migrations provides embedded SQL migration files.
// Production deployments may also run them via the golang-migrate CLI:
//
//	migrate -database "$DATABASE_URL" -path internal/db/migrations up
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
