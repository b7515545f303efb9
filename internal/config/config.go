// Package config loads settings from flags, BODS_* environment variables and
// an optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/joeshaw/bods-gtfs/internal/region"
)

// EnvPrefix is prepended to every environment variable name
const EnvPrefix = "BODS"

// Config holds the application configuration
type Config struct {
	DataDir      string
	StagingDir   string
	DatabaseFile string
	BaseURL      string
	BatchSize    int
	Workers      int
	Tables       []string
	HTTPTimeout  time.Duration
	RunTimeout   time.Duration
	MaxOpenConns int
	BusyTimeout  time.Duration
	Listen       string
	LogLevel     string
	LogFormat    string
}

// SetDefaults registers the default value of every key on v
func SetDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", ".bods-data")
	v.SetDefault("staging_dir", "")
	v.SetDefault("database_file", "database.sqlite")
	v.SetDefault("base_url", region.DefaultBaseURL)
	v.SetDefault("batch_size", 2056)
	v.SetDefault("workers", 0)
	v.SetDefault("tables", "")
	v.SetDefault("http_timeout", 10*time.Minute)
	v.SetDefault("run_timeout", 0)
	v.SetDefault("max_open_conns", 1)
	v.SetDefault("busy_timeout", 30*time.Second)
	v.SetDefault("listen", ":8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
}

// Load reads the configuration from v. Variables in envFile are exported
// first when the file exists; variables already set in the environment win.
func Load(v *viper.Viper, envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		DataDir:      v.GetString("data_dir"),
		StagingDir:   v.GetString("staging_dir"),
		DatabaseFile: v.GetString("database_file"),
		BaseURL:      v.GetString("base_url"),
		BatchSize:    v.GetInt("batch_size"),
		Workers:      v.GetInt("workers"),
		Tables:       splitList(v.Get("tables")),
		HTTPTimeout:  v.GetDuration("http_timeout"),
		RunTimeout:   v.GetDuration("run_timeout"),
		MaxOpenConns: v.GetInt("max_open_conns"),
		BusyTimeout:  v.GetDuration("busy_timeout"),
		Listen:       v.GetString("listen"),
		LogLevel:     v.GetString("log_level"),
		LogFormat:    v.GetString("log_format"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges
func (c *Config) Validate() error {
	var errs []error
	if c.DataDir == "" {
		errs = append(errs, errors.New("data_dir must not be empty"))
	}
	if c.DatabaseFile == "" {
		errs = append(errs, errors.New("database_file must not be empty"))
	}
	if c.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("batch_size must be positive, got %d", c.BatchSize))
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must not be negative, got %d", c.Workers))
	}
	if c.MaxOpenConns <= 0 {
		errs = append(errs, fmt.Errorf("max_open_conns must be positive, got %d", c.MaxOpenConns))
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("log_format must be text or json, got %q", c.LogFormat))
	}
	return errors.Join(errs...)
}

// DatabasePath returns the location of the SQLite store
func (c *Config) DatabasePath() string {
	if filepath.IsAbs(c.DatabaseFile) {
		return c.DatabaseFile
	}
	return filepath.Join(c.DataDir, c.DatabaseFile)
}

// StagingPath returns the directory archives are downloaded and extracted to
func (c *Config) StagingPath() string {
	if c.StagingDir != "" {
		return c.StagingDir
	}
	return filepath.Join(c.DataDir, "staging")
}

// NewLogger builds the application logger
func (c *Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	if level, err := logrus.ParseLevel(c.LogLevel); err == nil {
		logger.SetLevel(level)
	}
	if c.LogFormat == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger
}

// splitList accepts a slice or a comma separated string
func splitList(v any) []string {
	var parts []string
	switch t := v.(type) {
	case []string:
		parts = t
	case []any:
		for _, p := range t {
			parts = append(parts, fmt.Sprint(p))
		}
	case string:
		parts = strings.Split(t, ",")
	}

	var out []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
