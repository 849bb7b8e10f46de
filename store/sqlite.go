package store

import (
	"context"
	"database/sql"
	"time"

	_ "modernc.org/sqlite"
)

type sqliteStore struct {
	db  *sql.DB
	cfg config
}

var _ Store = (*sqliteStore)(nil)

// NewSQLite returns a Store backed by SQLite. This is the default durable
// backend on scanner handhelds: one file, safe across crash and restart.
// If dbPath is empty or ":memory:", an in-memory database is used.
func NewSQLite(dbPath string, opts ...Option) (Store, error) {
	if dbPath == "" {
		dbPath = ":memory:"
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	// WAL keeps a reader (a second process inspecting the queue) from
	// blocking the scanning workflow's writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS blobs (
		key TEXT PRIMARY KEY,
		value BLOB NOT NULL,
		updated_at INTEGER NOT NULL
	)`); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteStore{db: db, cfg: applyOptions(opts)}, nil
}

func (c *sqliteStore) queryCtx(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, c.cfg.queryTimeout)
}

func (c *sqliteStore) Load(ctx context.Context, key string) ([]byte, bool, error) {
	qctx, cancel := c.queryCtx(ctx)
	defer cancel()
	var blob []byte
	err := c.db.QueryRowContext(qctx,
		`SELECT value FROM blobs WHERE key = ?`, key,
	).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return blob, true, nil
}

func (c *sqliteStore) Save(ctx context.Context, key string, blob []byte) error {
	qctx, cancel := c.queryCtx(ctx)
	defer cancel()
	_, err := c.db.ExecContext(qctx,
		`INSERT INTO blobs (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, blob, time.Now().UnixNano())
	return err
}

func (c *sqliteStore) Delete(ctx context.Context, key string) (bool, error) {
	qctx, cancel := c.queryCtx(ctx)
	defer cancel()
	res, err := c.db.ExecContext(qctx, `DELETE FROM blobs WHERE key = ?`, key)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (c *sqliteStore) Close() error {
	return c.db.Close()
}
