// Package db opens the primary record store and applies its schema migrations.
package db

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"sync"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

//go:embed migrations
var migrations embed.FS

// Dialect identifies the SQL backend behind a DSN.
type Dialect string

const (
	// Postgres is served by github.com/lib/pq.
	Postgres Dialect = "postgres"
	// SQLite is served by modernc.org/sqlite.
	SQLite Dialect = "sqlite"
)

// ErrEmptyDSN is returned when no database DSN is configured.
var ErrEmptyDSN = errors.New("empty database dsn")

// goose keeps its dialect, filesystem and logger in package globals.
var gooseMu sync.Mutex

// DialectOf reports which backend serves dsn and the driver-level DSN to open.
// "sqlite:" prefixes are stripped; "file:" URIs are passed to SQLite unchanged;
// everything else is treated as a PostgreSQL connection string.
func DialectOf(dsn string) (Dialect, string) {
	switch {
	case strings.HasPrefix(dsn, "sqlite://"):
		return SQLite, strings.TrimPrefix(dsn, "sqlite://")
	case strings.HasPrefix(dsn, "sqlite:"):
		return SQLite, strings.TrimPrefix(dsn, "sqlite:")
	case strings.HasPrefix(dsn, "file:"):
		return SQLite, dsn
	default:
		return Postgres, dsn
	}
}

// Open connects to the store described by dsn, verifies the connection and
// applies pending migrations.
func Open(ctx context.Context, dsn string, log *zap.Logger) (*sql.DB, Dialect, error) {
	if dsn == "" {
		return nil, "", ErrEmptyDSN
	}

	dialect, driverDSN := DialectOf(dsn)
	switch dialect {
	case SQLite:
		db, err := openSQLite(ctx, driverDSN)
		if err != nil {
			return nil, "", err
		}
		if err := Migrate(ctx, db, dialect, log); err != nil {
			db.Close()
			return nil, "", err
		}
		return db, dialect, nil
	default:
		db, err := InitPostgres(ctx, driverDSN)
		if err != nil {
			return nil, "", err
		}
		if err := Migrate(ctx, db, dialect, log); err != nil {
			db.Close()
			return nil, "", err
		}
		return db, dialect, nil
	}
}

// InitPostgres opens and pings a PostgreSQL database.
func InitPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return db, nil
}

func openSQLite(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite has a single writer, and every connection to :memory: is a new database.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite %q: %w", pragma, err)
		}
	}

	return db, nil
}

// Migrate applies the embedded goose migrations for dialect.
func Migrate(ctx context.Context, db *sql.DB, dialect Dialect, log *zap.Logger) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	dir := "migrations/postgres"
	gooseDialect := "postgres"
	if dialect == SQLite {
		dir = "migrations/sqlite"
		gooseDialect = "sqlite3"
	}

	goose.SetBaseFS(migrations)
	goose.SetLogger(gooseLogger{log: log.Sugar()})
	if err := goose.SetDialect(gooseDialect); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, dir); err != nil {
		return fmt.Errorf("migrate %s: %w", dialect, err)
	}
	return nil
}

// gooseLogger routes goose output through zap.
type gooseLogger struct {
	log *zap.SugaredLogger
}

func (l gooseLogger) Printf(format string, v ...any) {
	l.log.Infof(strings.TrimSpace(format), v...)
}

func (l gooseLogger) Fatalf(format string, v ...any) {
	l.log.Fatalf(strings.TrimSpace(format), v...)
}
