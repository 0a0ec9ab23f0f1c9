package metastore

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const upsertPostgres = `
	INSERT INTO media_metadata (id, filetype, size, updated_at)
	VALUES ($1, $2, $3, now())
	ON CONFLICT (id) DO UPDATE
	SET filetype = EXCLUDED.filetype, size = EXCLUDED.size, updated_at = EXCLUDED.updated_at
`

type postgresStore struct {
	pool *pgxpool.Pool
}

func newPostgresStore(ctx context.Context, cfg Config) (Store, error) {
	if cfg.DSN == "" {
		return nil, errors.New("postgres store: dsn is required")
	}

	if err := RunMigrations(cfg.DSN); err != nil {
		return nil, err
	}

	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}

	return &postgresStore{pool: pool}, nil
}

func (s *postgresStore) Put(ctx context.Context, item Item) error {
	_, err := s.pool.Exec(ctx, upsertPostgres, item.ID, item.FileType, item.SizeKiB)
	return err
}

func (s *postgresStore) Get(ctx context.Context, id string) (Item, error) {
	item := Item{ID: id}
	err := s.pool.QueryRow(ctx, `SELECT filetype, size FROM media_metadata WHERE id = $1`, id).
		Scan(&item.FileType, &item.SizeKiB)
	if errors.Is(err, pgx.ErrNoRows) {
		return Item{}, ErrNotFound
	}
	if err != nil {
		return Item{}, err
	}
	return item, nil
}

func (s *postgresStore) Close() error {
	s.pool.Close()
	return nil
}

// RunMigrations applies the embedded schema migrations to the database at dsn.
func RunMigrations(dsn string) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("open embedded migrations: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, migrateURL(dsn))
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// migrateURL rewrites a postgres DSN to the scheme the pgx/v5 migrate driver registers.
func migrateURL(dsn string) string {
	for _, scheme := range []string{"postgres://", "postgresql://"} {
		if strings.HasPrefix(dsn, scheme) {
			return "pgx5://" + strings.TrimPrefix(dsn, scheme)
		}
	}
	return dsn
}
