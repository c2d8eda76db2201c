// Package config loads cardfolio settings from a YAML file, a .env file and
// CARDFOLIO_* environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/rcliao/cardfolio/internal/persist"
	"github.com/rcliao/cardfolio/internal/store"
)

// Repository backends for the save-content endpoint.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendS3     = "s3"
)

// RemoteConfig configures the remote save call and the endpoint's backend.
type RemoteConfig struct {
	// URL of a server to post snapshots to. Empty means save in-process.
	URL     string        `yaml:"url"`
	Backend string        `yaml:"backend"`
	Timeout time.Duration `yaml:"timeout"`
	// Disabled skips the remote call entirely.
	Disabled bool `yaml:"disabled"`
}

// Config holds all settings.
type Config struct {
	Listen           string         `yaml:"listen"`
	DBPath           string         `yaml:"db_path"`
	StorageKey       string         `yaml:"storage_key"`
	Title            string         `yaml:"title"`
	AutosaveInterval time.Duration  `yaml:"autosave_interval"`
	CardCloseDelay   time.Duration  `yaml:"card_close_delay"`
	SessionTTL       time.Duration  `yaml:"session_ttl"`
	MaxSessions      int            `yaml:"max_sessions"`
	LogLevel         string         `yaml:"log_level"`
	LogFile          string         `yaml:"log_file"`
	Remote           RemoteConfig   `yaml:"remote"`
	S3               store.S3Config `yaml:"s3"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Listen:           "127.0.0.1:8080",
		DBPath:           DefaultDBPath(),
		StorageKey:       persist.StorageKey,
		Title:            "Portfolio",
		AutosaveInterval: persist.DefaultAutosaveInterval,
		CardCloseDelay:   500 * time.Millisecond,
		SessionTTL:       time.Hour,
		MaxSessions:      32,
		LogLevel:         "info",
		Remote: RemoteConfig{
			Backend: BackendMemory,
			Timeout: 10 * time.Second,
		},
		S3: store.S3Config{Region: "us-east-1", Prefix: "snapshots"},
	}
}

// DefaultDBPath is ~/.cardfolio/cardfolio.db.
func DefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "cardfolio.db"
	}
	return home + "/.cardfolio/cardfolio.db"
}

// Load builds the configuration. path may be empty; a missing .env file is
// not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return cfg, fmt.Errorf("open config: %w", err)
		}
		defer f.Close()
		dec := yaml.NewDecoder(f)
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}
	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func envBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func applyEnv(cfg *Config) error {
	cfg.Listen = getEnv("CARDFOLIO_LISTEN", cfg.Listen)
	cfg.DBPath = getEnv("CARDFOLIO_DB", cfg.DBPath)
	cfg.StorageKey = getEnv("CARDFOLIO_STORAGE_KEY", cfg.StorageKey)
	cfg.Title = getEnv("CARDFOLIO_TITLE", cfg.Title)
	cfg.LogLevel = getEnv("CARDFOLIO_LOG_LEVEL", cfg.LogLevel)
	cfg.LogFile = getEnv("CARDFOLIO_LOG_FILE", cfg.LogFile)
	cfg.Remote.URL = getEnv("CARDFOLIO_REMOTE_URL", cfg.Remote.URL)
	cfg.Remote.Backend = getEnv("CARDFOLIO_REMOTE_BACKEND", cfg.Remote.Backend)

	cfg.S3.Endpoint = getEnv("CARDFOLIO_S3_ENDPOINT", cfg.S3.Endpoint)
	cfg.S3.Region = getEnv("CARDFOLIO_S3_REGION", cfg.S3.Region)
	cfg.S3.Bucket = getEnv("CARDFOLIO_S3_BUCKET", cfg.S3.Bucket)
	cfg.S3.Prefix = getEnv("CARDFOLIO_S3_PREFIX", cfg.S3.Prefix)
	cfg.S3.AccessKey = getEnv("CARDFOLIO_S3_ACCESS_KEY", cfg.S3.AccessKey)
	cfg.S3.SecretKey = getEnv("CARDFOLIO_S3_SECRET_KEY", cfg.S3.SecretKey)

	var err error
	if cfg.AutosaveInterval, err = envDuration("CARDFOLIO_AUTOSAVE_INTERVAL", cfg.AutosaveInterval); err != nil {
		return err
	}
	if cfg.CardCloseDelay, err = envDuration("CARDFOLIO_CARD_CLOSE_DELAY", cfg.CardCloseDelay); err != nil {
		return err
	}
	if cfg.SessionTTL, err = envDuration("CARDFOLIO_SESSION_TTL", cfg.SessionTTL); err != nil {
		return err
	}
	if cfg.Remote.Timeout, err = envDuration("CARDFOLIO_REMOTE_TIMEOUT", cfg.Remote.Timeout); err != nil {
		return err
	}
	if cfg.Remote.Disabled, err = envBool("CARDFOLIO_REMOTE_DISABLED", cfg.Remote.Disabled); err != nil {
		return err
	}
	if cfg.S3.UsePathStyle, err = envBool("CARDFOLIO_S3_PATH_STYLE", cfg.S3.UsePathStyle); err != nil {
		return err
	}
	if v := os.Getenv("CARDFOLIO_MAX_SESSIONS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CARDFOLIO_MAX_SESSIONS: %w", err)
		}
		cfg.MaxSessions = n
	}
	return nil
}

// Validate reports settings that cannot work.
func (c Config) Validate() error {
	var errs []error
	if c.AutosaveInterval <= 0 {
		errs = append(errs, errors.New("autosave_interval must be positive"))
	}
	if c.CardCloseDelay < 0 {
		errs = append(errs, errors.New("card_close_delay must not be negative"))
	}
	if c.MaxSessions <= 0 {
		errs = append(errs, errors.New("max_sessions must be positive"))
	}
	if c.StorageKey == "" {
		errs = append(errs, errors.New("storage_key is required"))
	}
	switch c.Remote.Backend {
	case BackendMemory, BackendSQLite:
	case BackendS3:
		if c.S3.Bucket == "" {
			errs = append(errs, errors.New("s3.bucket is required for the s3 backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown remote backend %q", c.Remote.Backend))
	}
	return errors.Join(errs...)
}
