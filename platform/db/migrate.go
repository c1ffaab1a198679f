// Package db provides database connection infrastructure.
// This is part of the platform layer and contains no business logic.
package db

import (
	"database/sql"
	"io/fs"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// RunMigrations applies all pending migrations from the provided filesystem.
// Migrations are embedded in the binary so the worker and API images stay
// self-contained.
func RunMigrations(databaseURL string, migrations fs.FS) error {
	conn, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return err
	}
	defer conn.Close()

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	return goose.Up(conn, ".")
}
