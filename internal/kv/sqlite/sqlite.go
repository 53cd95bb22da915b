// Package sqlite implements the kv.Store interface with SQLite as the
// storage backend.
//
// WHY SQLITE FOR A KEY-VALUE TABLE?
// The whole database is one table of (key, value) pairs — a JSON file would
// almost work. SQLite buys the two things a flat file can't give us:
// atomic multi-key writes (SetAll runs in a transaction, which the account
// store's register sequence depends on) and durability under interrupted
// writes. And it stays a single local file, which is the deployment model.
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo, which means a C compiler and painful
// cross-compilation. modernc.org/sqlite is a pure Go translation of the
// SQLite sources — works everywhere Go works, ":memory:" included, which
// the tests lean on heavily.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	// Side-effect import: the driver registers itself with database/sql
	// under the name "sqlite".
	_ "modernc.org/sqlite"

	"github.com/tanvir/taskdeck/internal/kv"
)

// compile-time check that *DB implements kv.Store
var _ kv.Store = (*DB)(nil)

// DB wraps a sql.DB connection pool and provides the kv.Store methods.
type DB struct {
	conn *sql.DB
}

// New opens (or creates) the SQLite database at path and prepares the kv
// table.
//
// path examples:
//   - "data/taskdeck.db" → file-based database (persistent)
//   - ":memory:"         → in-memory database (tests, lost on close)
//
// sql.Open only creates the pool manager; Ping forces a real connection so
// a bad path or permission problem surfaces here rather than on the first
// query.
func New(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL mode lets reads proceed while a write is in flight. With the
	// synchronous single-process access pattern this is rarely exercised,
	// but it is the right default for any file-backed SQLite.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the connection pool. Always defer this next to New — it
// flushes the WAL and releases the file lock.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the kv table. CREATE TABLE IF NOT EXISTS is idempotent,
// so this is safe on every startup.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS kv (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("creating kv table: %w", err)
	}
	return nil
}

// Get returns the raw value stored under key, or kv.ErrNotFound.
func (db *DB) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := db.conn.QueryRowContext(ctx,
		`SELECT value FROM kv WHERE key = ?`, key,
	).Scan(&value)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, kv.ErrNotFound
		}
		return nil, fmt.Errorf("sqlite: reading %q: %w", key, err)
	}
	return value, nil
}

// Set stores value under key, replacing any existing value.
//
// INSERT with ON CONFLICT DO UPDATE is SQLite's native upsert. Unlike
// INSERT OR REPLACE it updates the existing row in place instead of
// deleting and re-inserting it.
func (db *DB) Set(ctx context.Context, key string, value []byte) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO kv (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("sqlite: writing %q: %w", key, err)
	}
	return nil
}

// SetAll writes every entry inside one transaction — all keys are updated
// or none is. The account store relies on this for register, which must
// commit the user table, the session pointer, and the new task namespace as
// a single unit.
func (db *DB) SetAll(ctx context.Context, entries []kv.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}
	// Rollback after a successful Commit is a no-op, so a bare defer keeps
	// every error path covered.
	defer tx.Rollback()

	for _, e := range entries {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO kv (key, value) VALUES (?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
			e.Key, e.Value,
		); err != nil {
			return fmt.Errorf("sqlite: writing %q in batch: %w", e.Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing batch: %w", err)
	}
	return nil
}

// Delete removes key. Deleting an absent key is not an error — DELETE of
// zero rows succeeds, which matches the idempotent-logout contract.
func (db *DB) Delete(ctx context.Context, key string) error {
	_, err := db.conn.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("sqlite: deleting %q: %w", key, err)
	}
	return nil
}
