// Package config loads and validates the querycache configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/mdecl/querycache/internal/querytext"
)

// Driver identifies the database driver to connect with.
type Driver string

const (
	// DriverSQLite targets modernc.org/sqlite.
	DriverSQLite Driver = "sqlite"
	// DriverPostgres targets github.com/jackc/pgx/v5 via its database/sql
	// adapter.
	DriverPostgres Driver = "postgres"
)

var validDrivers = map[Driver]struct{}{
	DriverSQLite:   {},
	DriverPostgres: {},
}

var validDialects = map[querytext.Dialect]struct{}{
	querytext.DialectTSQL:     {},
	querytext.DialectSQLite:   {},
	querytext.DialectPostgres: {},
}

// defaultTTL matches the two-minute lookup caches of the original wrapper.
const defaultTTL = 2 * time.Minute

// Config mirrors the querycache configuration file schema. TOML is the
// native format; files ending in .yaml or .yml are read as YAML.
type Config struct {
	Driver        Driver `toml:"driver" yaml:"driver"`
	DSN           string `toml:"dsn" yaml:"dsn"`
	Dialect       string `toml:"dialect" yaml:"dialect"`
	FirstCacheTTL string `toml:"first_cache_ttl" yaml:"first_cache_ttl"`
	ListCacheTTL  string `toml:"list_cache_ttl" yaml:"list_cache_ttl"`
	TracePrefix   string `toml:"trace_prefix" yaml:"trace_prefix"`
}

// Settings is the fully-resolved configuration used by downstream
// components.
type Settings struct {
	Driver        Driver
	DSN           string
	Dialect       querytext.Dialect
	FirstCacheTTL time.Duration
	ListCacheTTL  time.Duration
	TracePrefix   string
}

// Load reads the configuration file at path and resolves it.
func Load(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Settings{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	default:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return Settings{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	return Resolve(cfg)
}

// Resolve validates a Config and fills in defaults. The driver defaults to
// sqlite, the dialect to the driver's natural dialect, and both cache TTLs
// to two minutes.
func Resolve(cfg Config) (Settings, error) {
	res := Settings{
		DSN:         cfg.DSN,
		TracePrefix: cfg.TracePrefix,
	}

	res.Driver = cfg.Driver
	if res.Driver == "" {
		res.Driver = DriverSQLite
	}
	if _, ok := validDrivers[res.Driver]; !ok {
		return res, fmt.Errorf("config: unknown driver %q (expected sqlite or postgres)", cfg.Driver)
	}

	if res.DSN == "" {
		return res, errors.New("config: dsn must be set")
	}

	dialect := querytext.Dialect(cfg.Dialect)
	if dialect == "" {
		switch res.Driver {
		case DriverPostgres:
			dialect = querytext.DialectPostgres
		default:
			dialect = querytext.DialectSQLite
		}
	}
	if _, ok := validDialects[dialect]; !ok {
		return res, fmt.Errorf("config: unknown dialect %q (expected tsql, sqlite or postgres)", cfg.Dialect)
	}
	res.Dialect = dialect

	var err error
	res.FirstCacheTTL, err = resolveTTL("first_cache_ttl", cfg.FirstCacheTTL)
	if err != nil {
		return res, err
	}
	res.ListCacheTTL, err = resolveTTL("list_cache_ttl", cfg.ListCacheTTL)
	if err != nil {
		return res, err
	}

	return res, nil
}

func resolveTTL(field, value string) (time.Duration, error) {
	if value == "" {
		return defaultTTL, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", field, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("config: %s must be a positive duration, got %q", field, value)
	}
	return d, nil
}
