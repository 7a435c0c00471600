package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the server configuration, assembled as
// defaults -> ordino.toml -> environment.
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Storage StorageConfig `toml:"storage"`
	Logging LoggingConfig `toml:"logging"`
}

type ServerConfig struct {
	// ConfigDir is the root for .taskorchestrator discovery. Defaults to the
	// working directory; overridden by AGENT_CONFIG_DIR.
	ConfigDir string `toml:"config_dir"`
	// ShutdownTimeoutMS bounds the drain of in-flight tool handlers.
	ShutdownTimeoutMS int `toml:"shutdown_timeout_ms"`
}

type StorageConfig struct {
	SQLite SQLiteConfig `toml:"sqlite"`
}

// SQLiteConfig holds the database connection settings.
type SQLiteConfig struct {
	Path           string `toml:"path"`
	BusyTimeoutMS  int    `toml:"busy_timeout_ms"`
	MaxConnections int    `toml:"max_connections"`
	WALMode        bool   `toml:"wal_mode"`
	ShowSQL        bool   `toml:"show_sql"`
	// UseMigrations selects versioned migrations; false runs the single
	// create-if-absent schema script.
	UseMigrations bool `toml:"use_migrations"`
}

type LoggingConfig struct {
	Level  string   `toml:"level"`
	Output []string `toml:"output"` // "stderr", "file"
}

// DefaultConfig returns the baseline configuration before file and env
// overrides are applied.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			ConfigDir:         ".",
			ShutdownTimeoutMS: 5000,
		},
		Storage: StorageConfig{
			SQLite: SQLiteConfig{
				Path:           "data/current-tasks.db",
				BusyTimeoutMS:  5000,
				MaxConnections: 4,
				WALMode:        true,
				UseMigrations:  true,
			},
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Output: []string{"stderr"},
		},
	}
}

// LoadFromFile loads configuration from a TOML file on top of the defaults,
// then applies environment overrides. A missing file is not an error; the
// defaults plus environment apply.
func LoadFromFile(path string) (*Config, error) {
	config := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
			}
		} else if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)
	return config, nil
}

// applyEnvOverrides applies the recognized environment variables. Environment
// wins over file values.
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("DATABASE_PATH"); v != "" {
		config.Storage.SQLite.Path = v
	}
	if v := os.Getenv("DATABASE_MAX_CONNECTIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.Storage.SQLite.MaxConnections = n
		}
	}
	if v := os.Getenv("DATABASE_SHOW_SQL"); v != "" {
		config.Storage.SQLite.ShowSQL = ParseBool(v)
	}
	if v := os.Getenv("USE_FLYWAY"); v != "" {
		config.Storage.SQLite.UseMigrations = ParseBool(v)
	}
	if v := os.Getenv("AGENT_CONFIG_DIR"); v != "" {
		config.Server.ConfigDir = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		config.Logging.Level = strings.ToLower(v)
	}
}

// ParseBool accepts the usual truthy spellings.
func ParseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
