package db

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenMemory(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func insertBoard(ctx context.Context, conn DBTX, id string) error {
	now := time.Now().UTC()
	_, err := conn.ExecContext(ctx, "INSERT INTO boards (id, name, created_at, updated_at) VALUES (?, ?, ?, ?)", id, "Board", now, now)
	return err
}

func countBoards(t *testing.T, db *DB) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRowContext(context.Background(), "SELECT COUNT(*) FROM boards").Scan(&n))
	return n
}

func TestOpenMemoryAppliesMigrations(t *testing.T) {
	db := newTestDB(t)

	for _, table := range []string{"boards", "columns", "tasks", "task_history", migrationTableName} {
		var name string
		err := db.QueryRowContext(context.Background(),
			"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&name)
		require.NoError(t, err, table)
	}
	assert.Equal(t, DialectSQLite, db.Dialect)
}

func TestOpenFileCreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "board.db")

	db, err := Open(context.Background(), Options{Driver: "sqlite", DSN: path})
	require.NoError(t, err)
	defer db.Close()

	_, err = os.Stat(path)
	require.NoError(t, err)

	var fk int
	require.NoError(t, db.QueryRowContext(context.Background(), "PRAGMA foreign_keys").Scan(&fk))
	assert.Equal(t, 1, fk)

	// Reopening runs no migration twice.
	require.NoError(t, db.Close())
	db2, err := Open(context.Background(), Options{Driver: "sqlite", DSN: path})
	require.NoError(t, err)
	require.NoError(t, db2.Close())
}

func TestOpenRejectsBadOptions(t *testing.T) {
	_, err := Open(context.Background(), Options{Driver: "mysql", DSN: "x"})
	assert.Error(t, err)

	_, err = Open(context.Background(), Options{Driver: "sqlite", DSN: "  "})
	assert.Error(t, err)
}

func TestParseDialect(t *testing.T) {
	cases := map[string]Dialect{
		"":           DialectSQLite,
		"sqlite":     DialectSQLite,
		"SQLite3":    DialectSQLite,
		"postgres":   DialectPostgres,
		"postgresql": DialectPostgres,
		"pgx":        DialectPostgres,
	}
	for in, want := range cases {
		got, err := ParseDialect(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestRunInTxCommits(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	err := db.RunInTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		return insertBoard(ctx, tx, "b1")
	})
	require.NoError(t, err)
	assert.Equal(t, 1, countBoards(t, db))
}

func TestRunInTxRollsBackOnError(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := db.RunInTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if err := insertBoard(ctx, tx, "b1"); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 0, countBoards(t, db))
}

func TestRunInTxRollsBackOnPanic(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	assert.Panics(t, func() {
		_ = db.RunInTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
			if err := insertBoard(ctx, tx, "b1"); err != nil {
				return err
			}
			panic("kaboom")
		})
	})
	assert.Equal(t, 0, countBoards(t, db))
}

func TestMapErrorSQLite(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, insertBoard(ctx, db, "b1"))
	err := MapError(insertBoard(ctx, db, "b1"))
	assert.ErrorIs(t, err, ErrDuplicate)

	_, err = db.ExecContext(ctx,
		"INSERT INTO columns (id, board_id, name, position, is_terminal) VALUES (?, ?, ?, ?, ?)",
		"todo", "missing-board", "Todo", 0, false)
	assert.ErrorIs(t, MapError(err), ErrInvalidEntity)

	var id string
	err = db.QueryRowContext(ctx, "SELECT id FROM boards WHERE id = ?", "nope").Scan(&id)
	assert.ErrorIs(t, MapError(err), ErrNotFound)

	assert.NoError(t, MapError(nil))
	plain := errors.New("plain")
	assert.Equal(t, plain, MapError(plain))
}

func TestCheckRowsAffected(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	res, err := db.ExecContext(ctx, "DELETE FROM boards WHERE id = ?", "none")
	require.NoError(t, err)
	assert.ErrorIs(t, CheckRowsAffected(res), ErrNotFound)

	require.NoError(t, insertBoard(ctx, db, "b1"))
	res, err = db.ExecContext(ctx, "DELETE FROM boards WHERE id = ?", "b1")
	require.NoError(t, err)
	assert.NoError(t, CheckRowsAffected(res))
}

func TestOpenPostgres(t *testing.T) {
	dsn := os.Getenv("LAZYBOARD_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("LAZYBOARD_TEST_POSTGRES_DSN not set")
	}

	db, err := Open(context.Background(), Options{Driver: "postgres", DSN: dsn})
	require.NoError(t, err)
	defer db.Close()
	assert.Equal(t, DialectPostgres, db.Dialect)

	var n int
	require.NoError(t, db.QueryRowContext(context.Background(),
		"SELECT COUNT(*) FROM information_schema.tables WHERE table_name = 'tasks'").Scan(&n))
	assert.Equal(t, 1, n)
}
