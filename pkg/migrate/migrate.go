// Package migrate wraps goose for the storefront schema: running the SQL
// files under DefaultDir, scaffolding new ones, and linting them so they
// stay runnable on both Postgres and SQLite.
package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/pressly/goose/v3"
)

const DefaultDir = "pkg/migrate/migrations"

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite3"
)

// Database is the slice of *db.Client goose needs.
type Database interface {
	SQL() (*sql.DB, error)
	Dialect() string
}

// Runner applies the migrations in one directory to one database.
type Runner struct {
	db  *sql.DB
	dir string
}

func NewRunner(database Database, dir string) (*Runner, error) {
	if dir == "" {
		return nil, errors.New("migrate: dir is required")
	}
	sqlDB, err := database.SQL()
	if err != nil {
		return nil, fmt.Errorf("migrate: sql handle: %w", err)
	}
	if err := setDialect(database.Dialect()); err != nil {
		return nil, err
	}
	return &Runner{db: sqlDB, dir: dir}, nil
}

func (r *Runner) Up(ctx context.Context) error {
	if err := goose.UpContext(ctx, r.db, r.dir); err != nil {
		return fmt.Errorf("migrate: up: %w", err)
	}
	return nil
}

// Down rolls back the most recent migration only.
func (r *Runner) Down(ctx context.Context) error {
	if err := goose.DownContext(ctx, r.db, r.dir); err != nil {
		return fmt.Errorf("migrate: down: %w", err)
	}
	return nil
}

// Status prints goose's applied/pending table to stdout.
func (r *Runner) Status(ctx context.Context) error {
	if err := goose.StatusContext(ctx, r.db, r.dir); err != nil {
		return fmt.Errorf("migrate: status: %w", err)
	}
	return nil
}

func (r *Runner) Version(ctx context.Context) (int64, error) {
	v, err := goose.GetDBVersionContext(ctx, r.db)
	if err != nil {
		return 0, fmt.Errorf("migrate: read version: %w", err)
	}
	return v, nil
}

// To moves the schema up or down until it sits at target, a
// YYYYMMDDHHMMSS migration version.
func (r *Runner) To(ctx context.Context, target string) error {
	want, err := strconv.ParseInt(target, 10, 64)
	if err != nil || len(target) != 14 {
		return fmt.Errorf("migrate: version %q is not YYYYMMDDHHMMSS", target)
	}
	current, err := r.Version(ctx)
	if err != nil {
		return err
	}

	switch {
	case want > current:
		err = goose.UpToContext(ctx, r.db, r.dir, want)
	case want < current:
		err = goose.DownToContext(ctx, r.db, r.dir, want)
	}
	if err != nil {
		return fmt.Errorf("migrate: %d -> %d: %w", current, want, err)
	}
	return nil
}

func setDialect(dialect string) error {
	if dialect == "" {
		dialect = DialectPostgres
	}
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("migrate: dialect %s: %w", dialect, err)
	}
	return nil
}
