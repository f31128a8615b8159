// Package config loads lawlink settings from a YAML file, .env and the
// environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultFile is read when no config path is given. It may be absent.
const DefaultFile = "lawlink.yaml"

type Config struct {
	Vault      string         `yaml:"vault"`
	Catalog    string         `yaml:"catalog"` // YAML file or directory merged over the built-in catalog
	Workers    int            `yaml:"workers"`
	CacheSize  int            `yaml:"cache_size"`
	EdgeSchema string         `yaml:"edge_schema"`
	Log        LogConfig      `yaml:"log"`
	Neo4j      Neo4jConfig    `yaml:"neo4j"`
	Postgres   PostgresConfig `yaml:"postgres"`
	Watch      WatchConfig    `yaml:"watch"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json
}

type Neo4jConfig struct {
	URI      string `yaml:"uri"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// Enabled reports whether edges should also go to Neo4j.
func (n Neo4jConfig) Enabled() bool { return n.URI != "" }

type PostgresConfig struct {
	URL string `yaml:"url"`
}

func (p PostgresConfig) Enabled() bool { return p.URL != "" }

type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce"`
}

// Default returns the settings used when nothing overrides them.
func Default() *Config {
	return &Config{
		Vault:      ".",
		Workers:    4,
		CacheSize:  4096,
		EdgeSchema: "v2",
		Log:        LogConfig{Level: "info", Format: "text"},
		Neo4j:      Neo4jConfig{User: "neo4j"},
		Watch:      WatchConfig{Debounce: 500 * time.Millisecond},
	}
}

// Load reads .env, then the YAML file at path, then the environment. An
// empty path reads DefaultFile when it exists.
func Load(path string) (*Config, error) {
	// A missing .env is fine.
	_ = godotenv.Load()

	cfg := Default()
	optional := path == ""
	if optional {
		path = DefaultFile
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	case optional && errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Vault = getEnv("LAWLINK_VAULT", c.Vault)
	c.Catalog = getEnv("LAWLINK_CATALOG", c.Catalog)
	c.Workers = getEnvInt("LAWLINK_WORKERS", c.Workers)
	c.CacheSize = getEnvInt("LAWLINK_CACHE_SIZE", c.CacheSize)
	c.EdgeSchema = getEnv("LAWLINK_EDGE_SCHEMA", c.EdgeSchema)
	c.Log.Level = getEnv("LAWLINK_LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LAWLINK_LOG_FORMAT", c.Log.Format)
	c.Neo4j.URI = getEnv("NEO4J_URI", c.Neo4j.URI)
	c.Neo4j.User = getEnv("NEO4J_USER", c.Neo4j.User)
	c.Neo4j.Password = getEnv("NEO4J_PASSWORD", c.Neo4j.Password)
	c.Postgres.URL = getEnv("DATABASE_URL", c.Postgres.URL)
}

// Validate checks values that cannot be corrected silently.
func (c *Config) Validate() error {
	var errs []error
	if c.Vault == "" {
		errs = append(errs, errors.New("vault path is empty"))
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be positive, got %d", c.Workers))
	}
	if c.EdgeSchema != "v1" && c.EdgeSchema != "v2" {
		errs = append(errs, fmt.Errorf("unknown edge schema %q", c.EdgeSchema))
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if f := strings.ToLower(c.Log.Format); f != "text" && f != "json" {
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

// NewLogger builds the slog logger described by c.
func NewLogger(w io.Writer, c LogConfig) (*slog.Logger, error) {
	level, err := parseLevel(c.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("unknown log level %q", s)
	}
	return level, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
