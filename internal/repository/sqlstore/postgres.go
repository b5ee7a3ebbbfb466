package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
)

// NewPostgres opens (and migrates) a PostgreSQL database
func NewPostgres(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	store := &Store{db: db, dialect: dialectPostgres}
	if err := store.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Open opens the store selected by driver name ("sqlite" or "postgres")
func Open(ctx context.Context, driver, path, dsn string) (*Store, error) {
	switch driver {
	case "", "sqlite":
		return NewSQLite(path)
	case "postgres":
		return NewPostgres(ctx, dsn)
	default:
		return nil, fmt.Errorf("unknown database driver %q", driver)
	}
}
