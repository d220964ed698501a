package mathdisplay

import (
	"context"
	"database/sql"

	"github.com/hazyhaar/mathdisplay/internal/config"
)

// Config is the top-level configuration. Re-exported from internal.
type Config = config.Config

// ObserverConfig activates one update source.
type ObserverConfig = config.ObserverConfig

// EngineSettings overrides an engine's sources and inline configuration.
type EngineSettings = config.EngineSettings

// HostConfig defines a host notification backend.
type HostConfig = config.HostConfig

// DefaultConfig returns the configuration used when the host sets nothing.
func DefaultConfig() *Config { return config.Default() }

// LoadConfigFile reads a YAML configuration file.
func LoadConfigFile(path string) (*Config, error) {
	return config.LoadFile(path)
}

// ParseConfig decodes YAML or JSON configuration over the defaults.
func ParseConfig(data []byte) (*Config, error) {
	return config.Parse(data)
}

// DecodeConfig decodes configuration without defaults, for MergeConfig.
func DecodeConfig(data []byte) (*Config, error) {
	return config.Decode(data)
}

// MergeConfig layers over on top of base.
func MergeConfig(base, over *Config) *Config {
	return config.Merge(base, over)
}

// OpenLibraryStore opens the SQLite database holding library_config and
// creates the table if needed. The modernc.org/sqlite driver must be
// registered.
func OpenLibraryStore(ctx context.Context, path string) (*sql.DB, error) {
	return config.OpenStore(ctx, path)
}

// SaveLibraryConfig stores raw YAML or JSON configuration for a host library.
func SaveLibraryConfig(ctx context.Context, db *sql.DB, library, raw string) error {
	return config.SaveLibraryRaw(ctx, db, library, raw)
}

// LoadLibraryConfig reads the stored configuration of a host library.
func LoadLibraryConfig(ctx context.Context, db *sql.DB, library string) (*Config, error) {
	if err := config.EnsureSchema(ctx, db); err != nil {
		return nil, err
	}
	return config.LoadLibrary(ctx, db, library)
}
