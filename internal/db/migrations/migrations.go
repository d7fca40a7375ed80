package migrations

import "embed"

// FS contiene las migraciones SQL aplicadas por goose al arrancar.
//
//go:embed *.sql
var FS embed.FS
