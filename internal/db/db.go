package db

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

const memoryDSN = ":memory:"

const sqlitePragmas = "_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_time_format=sqlite"

type Options struct {
	// Driver is "sqlite" (default) or "postgres".
	Driver string
	// DSN is a file path for sqlite and a connection string for postgres.
	DSN    string
	Logger *logrus.Entry
}

// DB is an open, migrated store.
type DB struct {
	*sql.DB
	Dialect Dialect
	log     *logrus.Entry
}

func Open(ctx context.Context, opts Options) (*DB, error) {
	log := opts.Logger
	if log == nil {
		log = logrus.WithField("component", "db")
	}

	dialect, err := ParseDialect(opts.Driver)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(opts.DSN) == "" {
		return nil, fmt.Errorf("db dsn is required")
	}

	var sqlDB *sql.DB
	switch dialect {
	case DialectPostgres:
		sqlDB, err = sql.Open("pgx", opts.DSN)
	default:
		sqlDB, err = openSQLite(opts.DSN)
	}
	if err != nil {
		return nil, err
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("connect %s: %w", dialect, err)
	}

	db := &DB{DB: sqlDB, Dialect: dialect, log: log}
	if err := db.migrate(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	log.WithField("driver", string(dialect)).Debug("store opened")
	return db, nil
}

// OpenMemory opens a private in-memory sqlite store. Each call gets a fresh database.
func OpenMemory(ctx context.Context) (*DB, error) {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return Open(ctx, Options{Driver: string(DialectSQLite), DSN: memoryDSN, Logger: logrus.NewEntry(log)})
}

func ParseDialect(driver string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "sqlite", "sqlite3":
		return DialectSQLite, nil
	case "postgres", "postgresql", "pgx":
		return DialectPostgres, nil
	default:
		return "", fmt.Errorf("unsupported storage driver %q", driver)
	}
}

func openSQLite(path string) (*sql.DB, error) {
	dsn := path
	switch {
	case path == memoryDSN:
		dsn = memoryDSN + "?_pragma=foreign_keys(1)&_time_format=sqlite"
	case strings.Contains(path, "?"):
	default:
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
		dsn = path + "?" + sqlitePragmas
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// One connection: keeps :memory: databases alive and serialises writers in-process.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	return db, nil
}
