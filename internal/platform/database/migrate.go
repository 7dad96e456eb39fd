package database

import (
	"context"
	"embed"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// Migrate creates the tables the repositories need. It is idempotent.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	file := "schema/postgres.sql"
	if db.DriverName() == sqliteDriver {
		file = "schema/sqlite.sql"
	}

	raw, err := schemaFS.ReadFile(file)
	if err != nil {
		return err
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range strings.Split(string(raw), ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate %s: %w", file, err)
		}
	}
	return tx.Commit()
}
