// Package embedded provides static assets compiled into the binary.
package embedded

import (
	"embed"
)

// Schemas contains the SQL schema files, one per database name:
//   - schemas/tracker_schema.sql - tickers, portfolios, portfolio_tickers
//
//go:embed schemas/*.sql
var Schemas embed.FS

// SchemaFile returns the embedded schema for the named database.
func SchemaFile(name string) ([]byte, error) {
	return Schemas.ReadFile("schemas/" + name + "_schema.sql")
}
