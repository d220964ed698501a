package config

import (
	"context"
	"database/sql"
	"fmt"
)

// storeConfig tunes OpenStore.
type storeConfig struct {
	driver      string
	busyTimeout int
	readOnly    bool
}

// StoreOption customises OpenStore.
type StoreOption func(*storeConfig)

// WithStoreDriver sets the database/sql driver name. Default: "sqlite".
func WithStoreDriver(name string) StoreOption { return func(c *storeConfig) { c.driver = name } }

// WithStoreBusyTimeout sets PRAGMA busy_timeout in milliseconds. Default: 5000.
func WithStoreBusyTimeout(ms int) StoreOption {
	return func(c *storeConfig) { c.busyTimeout = ms }
}

// WithStoreReadOnly opens the store without creating the schema, for a
// database owned by the host.
func WithStoreReadOnly() StoreOption { return func(c *storeConfig) { c.readOnly = true } }

// OpenStore opens the SQLite database holding library_config, applies the
// pragmas and ensures the schema. The caller must blank-import the driver
// (modernc.org/sqlite registers "sqlite").
func OpenStore(ctx context.Context, path string, opts ...StoreOption) (*sql.DB, error) {
	cfg := storeConfig{driver: "sqlite", busyTimeout: 5000}
	for _, o := range opts {
		o(&cfg)
	}

	db, err := sql.Open(cfg.driver, path)
	if err != nil {
		return nil, fmt.Errorf("config: open store: %w", err)
	}
	if path == ":memory:" {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.busyTimeout),
	}
	if !cfg.readOnly && path != ":memory:" {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL", "PRAGMA synchronous = NORMAL")
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			db.Close()
			return nil, fmt.Errorf("config: %s: %w", p, err)
		}
	}

	if !cfg.readOnly {
		if err := EnsureSchema(ctx, db); err != nil {
			db.Close()
			return nil, fmt.Errorf("config: schema: %w", err)
		}
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("config: ping store: %w", err)
	}
	return db, nil
}
