package metastore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS media_metadata (
		id       TEXT PRIMARY KEY,
		filetype TEXT NOT NULL,
		size     REAL NOT NULL
	)
`

const upsertSQLite = `
	INSERT INTO media_metadata (id, filetype, size)
	VALUES (?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET filetype = excluded.filetype, size = excluded.size
`

type sqliteStore struct {
	db *sql.DB
}

func newSQLiteStore(ctx context.Context, cfg Config) (Store, error) {
	dsn := cfg.DSN
	if dsn == "" {
		dsn = ":memory:"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serialises writers.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create sqlite schema: %w", err)
	}

	return &sqliteStore{db: db}, nil
}

func (s *sqliteStore) Put(ctx context.Context, item Item) error {
	_, err := s.db.ExecContext(ctx, upsertSQLite, item.ID, item.FileType, item.SizeKiB)
	return err
}

func (s *sqliteStore) Get(ctx context.Context, id string) (Item, error) {
	item := Item{ID: id}
	err := s.db.QueryRowContext(ctx, `SELECT filetype, size FROM media_metadata WHERE id = ?`, id).
		Scan(&item.FileType, &item.SizeKiB)
	if errors.Is(err, sql.ErrNoRows) {
		return Item{}, ErrNotFound
	}
	if err != nil {
		return Item{}, err
	}
	return item, nil
}

func (s *sqliteStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM media_metadata`).Scan(&n)
	return n, err
}

func (s *sqliteStore) Close() error {
	return s.db.Close()
}
