// Package database centralises sqlx connection helpers.  Three drivers are
// linked in:
//
//	mysql   – go-sql-driver/mysql, the production default (also MariaDB).
//	pgx     – jackc/pgx/v5 through its database/sql adapter.
//	sqlite3 – mattn/go-sqlite3, for local development and tests.
//
// Public entry points:
//
//	Open(ctx, driver, dsn)                 – conservative pool sizes.
//	OpenWithOptions(ctx, driver, dsn, opt) – fine-grained control.
//	Migrate(ctx, db, stmts)                – apply component DDL.
//	NormalizeDSN(driver, dsn)              – driver-specific DSN fixes.
//
// Both Open helpers Ping the database before returning so callers can fail
// fast during bootstrap.  Repositories write queries with `?` placeholders
// and pass them through db.Rebind, which rewrites to `$n` for pgx.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// Options tunes one pool.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Open returns a *sqlx.DB with sane defaults: 15 max open, 5 idle, and a
// 30-minute connection lifetime.
func Open(ctx context.Context, driver, dsn string) (*sqlx.DB, error) {
	return OpenWithOptions(ctx, driver, dsn, Options{
		MaxOpenConns:    15,
		MaxIdleConns:    5,
		ConnMaxLifetime: 30 * time.Minute,
	})
}

// OpenWithOptions lets callers tune the pool.  SQLite in-memory databases
// must use MaxOpenConns 1, otherwise every connection sees its own empty
// database.
func OpenWithOptions(ctx context.Context, driver, dsn string, opt Options) (*sqlx.DB, error) {
	switch driver {
	case "mysql", "pgx", "sqlite3":
	default:
		return nil, fmt.Errorf("database: unsupported driver %q", driver)
	}

	dsn, err := NormalizeDSN(driver, dsn)
	if err != nil {
		return nil, err
	}
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, err
	}

	if opt.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opt.MaxOpenConns)
	}
	db.SetMaxIdleConns(opt.MaxIdleConns)
	if opt.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opt.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// NormalizeDSN forces parseTime=true on MySQL DSNs so DATETIME columns
// scan into time.Time.  Other drivers' DSNs are returned unchanged.
func NormalizeDSN(driver, dsn string) (string, error) {
	if driver != "mysql" {
		return dsn, nil
	}
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("database: mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	return cfg.FormatDSN(), nil
}

// Migrate executes each statement in order.  Statements must be
// idempotent (CREATE TABLE IF NOT EXISTS) because Migrate runs on every
// boot when auto_migrate is enabled.
func Migrate(ctx context.Context, db *sqlx.DB, stmts []string) error {
	for i, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
