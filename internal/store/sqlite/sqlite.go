// Package sqlite persists record slots in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/m-mizutani/goerr/v2"
	_ "modernc.org/sqlite"
)

const schema = `CREATE TABLE IF NOT EXISTS slots (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	updated_at TEXT NOT NULL
)`

// Backend stores one named slot in the slots table.
type Backend struct {
	db   *sql.DB
	slot string
}

// Open opens (or creates) the database at path and prepares the schema.
func Open(ctx context.Context, path, slot string) (*Backend, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, goerr.Wrap(err, "open sqlite", goerr.V("path", path))
	}
	// One writer; the pragmas apply per connection.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, goerr.Wrap(err, "ping sqlite", goerr.V("path", path))
	}
	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, goerr.Wrap(err, "set pragma", goerr.V("pragma", pragma))
		}
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, goerr.Wrap(err, "create slots table", goerr.V("path", path))
	}
	return &Backend{db: db, slot: slot}, nil
}

func (b *Backend) Load(ctx context.Context) ([]byte, error) {
	var data []byte
	err := b.db.QueryRowContext(ctx, `SELECT value FROM slots WHERE key = ?`, b.slot).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, goerr.Wrap(err, "load slot", goerr.V("slot", b.slot))
	}
	return data, nil
}

func (b *Backend) Save(ctx context.Context, data []byte) error {
	_, err := b.db.ExecContext(ctx, `
		INSERT INTO slots (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		b.slot, data, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return goerr.Wrap(err, "save slot", goerr.V("slot", b.slot), goerr.V("bytes", len(data)))
	}
	return nil
}

func (b *Backend) Clear(ctx context.Context) error {
	if _, err := b.db.ExecContext(ctx, `DELETE FROM slots WHERE key = ?`, b.slot); err != nil {
		return goerr.Wrap(err, "clear slot", goerr.V("slot", b.slot))
	}
	return nil
}

func (b *Backend) Close() error {
	return b.db.Close()
}
