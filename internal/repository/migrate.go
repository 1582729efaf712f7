package repository

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

const migrationsDir = "migrations"

// goose keeps its base FS and dialect in package state.
var gooseMu sync.Mutex

func (r *Repository) withMigrationDB(fn func(db *sql.DB) error) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(embeddedMigrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return fmt.Errorf("set migration dialect: %w", err)
	}

	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	return fn(db)
}

// Migrate applies all pending migrations.
func (r *Repository) Migrate(ctx context.Context) error {
	return r.withMigrationDB(func(db *sql.DB) error {
		if err := goose.UpContext(ctx, db, migrationsDir); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
		return nil
	})
}

// MigrationVersion reports the currently applied schema version.
func (r *Repository) MigrationVersion(ctx context.Context) (int64, error) {
	var version int64
	err := r.withMigrationDB(func(db *sql.DB) error {
		v, err := goose.GetDBVersionContext(ctx, db)
		if err != nil {
			return fmt.Errorf("get schema version: %w", err)
		}
		version = v
		return nil
	})
	return version, err
}

// ResetSchema rolls every migration back and applies them again.
// Intended for integration tests only.
func (r *Repository) ResetSchema(ctx context.Context) error {
	return r.withMigrationDB(func(db *sql.DB) error {
		if err := goose.DownToContext(ctx, db, migrationsDir, 0); err != nil {
			return fmt.Errorf("roll back migrations: %w", err)
		}
		if err := goose.UpContext(ctx, db, migrationsDir); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
		return nil
	})
}
