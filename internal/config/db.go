// CLAUDE:SUMMARY Stores per-library math display configuration in SQLite (library_config table).
package config

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Schema for the library_config table. One row per host library, holding
// its configuration as YAML (JSON is accepted too).
const Schema = `
CREATE TABLE IF NOT EXISTS library_config (
	library    TEXT PRIMARY KEY,
	config     TEXT NOT NULL DEFAULT '{}',
	updated_at INTEGER NOT NULL
);
`

// EnsureSchema creates the library_config table if needed.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, Schema)
	return err
}

// LoadLibrary reads the configuration stored for library. A library with
// no row gets Default.
func LoadLibrary(ctx context.Context, db *sql.DB, library string) (*Config, error) {
	var raw string
	err := db.QueryRowContext(ctx,
		`SELECT config FROM library_config WHERE library = ?`, library).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: load library %s: %w", library, err)
	}
	cfg, err := Parse([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("config: library %s: %w", library, err)
	}
	return cfg, nil
}

// SaveLibrary stores cfg for library, replacing any previous row.
func SaveLibrary(ctx context.Context, db *sql.DB, library string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	return SaveLibraryRaw(ctx, db, library, string(data))
}

// SaveLibraryRaw stores raw YAML or JSON for library after checking it parses.
func SaveLibraryRaw(ctx context.Context, db *sql.DB, library, raw string) error {
	if _, err := Parse([]byte(raw)); err != nil {
		return err
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO library_config (library, config, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(library) DO UPDATE SET config = excluded.config, updated_at = excluded.updated_at
	`, library, raw, time.Now().UnixMilli())
	return err
}
