// internal/config/config.go
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	LogLevel       string        `mapstructure:"LOG_LEVEL"`
	DBURL          string        `mapstructure:"DB_URL"`
	GithubToken    string        `mapstructure:"GITHUB_TOKEN"`
	GithubBaseURL  string        `mapstructure:"GITHUB_BASE_URL"`
	ReposToSync    []string      `mapstructure:"REPOS_TO_SYNC"`
	SyncInterval   time.Duration `mapstructure:"SYNC_INTERVAL"`
	SyncWindow     time.Duration `mapstructure:"SYNC_WINDOW"`
	Concurrency    int           `mapstructure:"SYNC_CONCURRENCY"`
	MaxAttempts    int           `mapstructure:"SYNC_MAX_ATTEMPTS"`
	InitialBackoff time.Duration `mapstructure:"SYNC_INITIAL_BACKOFF"`
	MaxBackoff     time.Duration `mapstructure:"SYNC_MAX_BACKOFF"`
	RunTimeout     time.Duration `mapstructure:"SYNC_RUN_TIMEOUT"`
	FetchTimeout   time.Duration `mapstructure:"FETCH_TIMEOUT"`
	HTTPAddr       string        `mapstructure:"HTTP_ADDR"`
	MigrationsPath string        `mapstructure:"MIGRATIONS_PATH"`
}

var defaults = map[string]any{
	"LOG_LEVEL":            "info",
	"DB_URL":               "",
	"GITHUB_TOKEN":         "",
	"GITHUB_BASE_URL":      "",
	"REPOS_TO_SYNC":        "",
	"SYNC_INTERVAL":        "1h",
	"SYNC_WINDOW":          "24h",
	"SYNC_CONCURRENCY":     5,
	"SYNC_MAX_ATTEMPTS":    3,
	"SYNC_INITIAL_BACKOFF": "1s",
	"SYNC_MAX_BACKOFF":     "30s",
	"SYNC_RUN_TIMEOUT":     "15m",
	"FETCH_TIMEOUT":        "30s",
	"HTTP_ADDR":            ":8080",
	"MIGRATIONS_PATH":      "file://migrations",
}

// LoadConfig reads configuration from file and/or environment variables.
func LoadConfig() (*Config, error) {
	return load(viper.New(), ".")
}

func load(v *viper.Viper, dir string) (*Config, error) {
	// Every key gets a default so AutomaticEnv can see it during Unmarshal.
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	// Load from .env file if it exists
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(dir)
	_ = v.ReadInConfig()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	cfg.ReposToSync = splitRepos(cfg.ReposToSync)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.DBURL == "" {
		return errors.New("DB_URL is a required configuration field")
	}
	if c.SyncInterval <= 0 {
		return errors.New("SYNC_INTERVAL must be positive")
	}
	if c.SyncWindow <= 0 {
		return errors.New("SYNC_WINDOW must be positive")
	}
	if c.Concurrency < 1 {
		return errors.New("SYNC_CONCURRENCY must be at least 1")
	}
	if c.MaxAttempts < 1 {
		return errors.New("SYNC_MAX_ATTEMPTS must be at least 1")
	}
	if c.InitialBackoff <= 0 || c.MaxBackoff < c.InitialBackoff {
		return errors.New("SYNC_MAX_BACKOFF must not be shorter than a positive SYNC_INITIAL_BACKOFF")
	}
	if c.RunTimeout <= 0 {
		return errors.New("SYNC_RUN_TIMEOUT must be positive")
	}
	if c.FetchTimeout <= 0 {
		return errors.New("FETCH_TIMEOUT must be positive")
	}
	return nil
}

// splitRepos flattens comma separated entries and drops blanks.
// REPOS_TO_SYNC may legitimately be empty; syncs are then on demand only.
func splitRepos(in []string) []string {
	var out []string
	for _, entry := range in {
		for _, repo := range strings.Split(entry, ",") {
			if repo = strings.TrimSpace(repo); repo != "" {
				out = append(out, repo)
			}
		}
	}
	return out
}
