package memory

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/codecraft/internal/ir"
)

//go:embed schema.sql
var schemaSQL string

// SQLiteBackend stores entries in a SQLite database.
// Entries survive restarts when opened on a file path.
type SQLiteBackend struct {
	db *sql.DB
}

// OpenSQLite creates or opens a SQLite database at the given path.
// Applies required pragmas and the schema automatically.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//
// This function is idempotent - safe to call multiple times.
func OpenSQLite(path string) (*SQLiteBackend, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SQLiteBackend{db: db}, nil
}

// Close closes the database connection.
func (b *SQLiteBackend) Close() error {
	if b.db == nil {
		return nil
	}
	return b.db.Close()
}

// Put upserts entry under key, keeping the original insertion position.
func (b *SQLiteBackend) Put(ctx context.Context, key string, entry ir.Object) error {
	data, err := ir.MarshalValue(entry)
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}

	_, err = b.db.ExecContext(ctx, `
		INSERT INTO memory_entries (key, entry)
		VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET entry = excluded.entry
	`, key, string(data))
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

// Get returns the entry stored under key.
func (b *SQLiteBackend) Get(ctx context.Context, key string) (ir.Object, bool, error) {
	var data string
	err := b.db.QueryRowContext(ctx, `SELECT entry FROM memory_entries WHERE key = ?`, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s: %w", key, err)
	}

	entry, err := decodeEntry(data)
	if err != nil {
		return nil, false, fmt.Errorf("get %s: %w", key, err)
	}
	return entry, true, nil
}

// Records returns all entries ordered by insertion.
func (b *SQLiteBackend) Records(ctx context.Context) ([]Record, error) {
	rows, err := b.db.QueryContext(ctx, `SELECT key, entry FROM memory_entries ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("records: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var key, data string
		if err := rows.Scan(&key, &data); err != nil {
			return nil, fmt.Errorf("records: scan: %w", err)
		}
		entry, err := decodeEntry(data)
		if err != nil {
			return nil, fmt.Errorf("records: %s: %w", key, err)
		}
		out = append(out, Record{Key: key, Entry: entry})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("records: %w", err)
	}
	return out, nil
}

// Len returns the number of stored entries.
func (b *SQLiteBackend) Len(ctx context.Context) (int, error) {
	var n int
	if err := b.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM memory_entries`).Scan(&n); err != nil {
		return 0, fmt.Errorf("len: %w", err)
	}
	return n, nil
}

func decodeEntry(data string) (ir.Object, error) {
	v, err := ir.DecodeJSON([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("decode entry: %w", err)
	}
	obj, ok := v.(ir.Object)
	if !ok {
		return nil, fmt.Errorf("decode entry: expected object, got %s", ir.TypeName(v))
	}
	return obj, nil
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates the table if it doesn't exist.
// This function is idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (b *SQLiteBackend) verifyPragma(name, expected string) error {
	var value string
	if err := b.db.QueryRow(fmt.Sprintf("PRAGMA %s", name)).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
