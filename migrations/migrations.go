// migrations содержит SQL-миграции схемы, применяемые goose на старте сервиса.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
