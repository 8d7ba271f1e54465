package app

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	sessionsvc "dissent/internal/services/session"
	"dissent/internal/services/vault"
	"dissent/internal/store"
)

// Backend selects the secret store implementation.
type Backend string

const (
	BackendFile   Backend = "file"
	BackendMemory Backend = "memory"
	BackendRedis  Backend = "redis"
	BackendSQLite Backend = "sqlite"
)

// ConfigFileName is looked up under Home when no explicit path is given.
const ConfigFileName = "config.yaml"

// RedisConfig addresses the Redis backend.
type RedisConfig struct {
	Addr   string `yaml:"addr"`
	DB     int    `yaml:"db"`
	Prefix string `yaml:"prefix"`
}

// SQLiteConfig locates the SQLite backend.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Config holds runtime wiring options for building the app.
type Config struct {
	Home       string        `yaml:"home"`        // data directory, e.g. $HOME/.dissent
	Backend    Backend       `yaml:"backend"`     // file, memory, redis or sqlite
	Redis      RedisConfig   `yaml:"redis"`       // used when Backend is redis
	SQLite     SQLiteConfig  `yaml:"sqlite"`      // used when Backend is sqlite
	MaxRetries int           `yaml:"max_retries"` // optimistic update attempts
	AutoLock   time.Duration `yaml:"auto_lock"`   // vault idle timeout
	KDF        string        `yaml:"kdf"`         // scrypt or argon2id
	LogLevel   string        `yaml:"log_level"`   // debug, info, warn, error
}

// SQLiteFileName is the database file under Home when sqlite.path is unset.
const SQLiteFileName = "dissent.db"

// DefaultConfig returns the configuration used when no file overrides it.
func DefaultConfig(home string) Config {
	cfg := Config{
		Home:       home,
		Backend:    BackendFile,
		Redis:      RedisConfig{Addr: "127.0.0.1:6379", Prefix: store.DefaultRedisPrefix},
		MaxRetries: sessionsvc.DefaultMaxRetries,
		AutoLock:   vault.DefaultAutoLock,
		KDF:        string(store.KDFArgon2id),
		LogLevel:   "info",
	}
	cfg.deriveDefaults()
	return cfg
}

// deriveDefaults fills settings that default relative to Home.
func (c *Config) deriveDefaults() {
	if c.SQLite.Path == "" {
		c.SQLite.Path = filepath.Join(c.Home, SQLiteFileName)
	}
}

// DefaultHome returns $HOME/.dissent.
func DefaultHome() (string, error) {
	dir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ".dissent"), nil
}

// LoadConfig reads the YAML file at path over DefaultConfig(home). A
// missing file is not an error. Unknown keys are.
func LoadConfig(path, home string) (Config, error) {
	cfg := DefaultConfig(home)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	// Paths derived from home are recomputed once the file had its say.
	cfg.SQLite.Path = ""
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.Home == "" {
		cfg.Home = home
	}
	cfg.deriveDefaults()
	return cfg, cfg.Validate()
}

// Validate reports configuration errors before anything is opened.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendFile, BackendMemory, BackendSQLite:
	case BackendRedis:
		if c.Redis.Addr == "" {
			return errors.New("config: redis backend needs redis.addr")
		}
	default:
		return fmt.Errorf("config: unknown backend %q", c.Backend)
	}
	switch store.KDF(c.KDF) {
	case store.KDFScrypt, store.KDFArgon2id:
	default:
		return fmt.Errorf("config: unknown kdf %q", c.KDF)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	if c.MaxRetries < 1 {
		return fmt.Errorf("config: max_retries must be positive, got %d", c.MaxRetries)
	}
	return nil
}

// Level parses LogLevel.
func (c Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		return l, fmt.Errorf("config: log_level: %w", err)
	}
	return l, nil
}
