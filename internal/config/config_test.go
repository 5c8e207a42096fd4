package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DB_URL", "postgres://localhost/feed")

	cfg, err := load(viper.New(), t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.GithubToken)
	assert.Empty(t, cfg.ReposToSync)
	assert.Equal(t, time.Hour, cfg.SyncInterval)
	assert.Equal(t, 24*time.Hour, cfg.SyncWindow)
	assert.Equal(t, 5, cfg.Concurrency)
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, time.Second, cfg.InitialBackoff)
	assert.Equal(t, 30*time.Second, cfg.MaxBackoff)
	assert.Equal(t, 15*time.Minute, cfg.RunTimeout)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "file://migrations", cfg.MigrationsPath)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("DB_URL", "postgres://localhost/feed")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("GITHUB_TOKEN", "secret")
	t.Setenv("REPOS_TO_SYNC", " golang/go, ,chi/chi ")
	t.Setenv("SYNC_INTERVAL", "15m")
	t.Setenv("SYNC_CONCURRENCY", "2")

	cfg, err := load(viper.New(), t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "secret", cfg.GithubToken)
	assert.Equal(t, []string{"golang/go", "chi/chi"}, cfg.ReposToSync)
	assert.Equal(t, 15*time.Minute, cfg.SyncInterval)
	assert.Equal(t, 2, cfg.Concurrency)
}

func TestLoad_DotEnvFile(t *testing.T) {
	dir := t.TempDir()
	content := "DB_URL=postgres://file/feed\nHTTP_ADDR=:9090\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(content), 0o600))

	cfg, err := load(viper.New(), dir)
	require.NoError(t, err)

	assert.Equal(t, "postgres://file/feed", cfg.DBURL)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "missing db url", env: map[string]string{}},
		{name: "zero interval", env: map[string]string{"DB_URL": "x", "SYNC_INTERVAL": "0s"}},
		{name: "zero concurrency", env: map[string]string{"DB_URL": "x", "SYNC_CONCURRENCY": "0"}},
		{name: "backoff cap below start", env: map[string]string{"DB_URL": "x", "SYNC_INITIAL_BACKOFF": "10s", "SYNC_MAX_BACKOFF": "1s"}},
		{name: "malformed duration", env: map[string]string{"DB_URL": "x", "FETCH_TIMEOUT": "soon"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DB_URL", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := load(viper.New(), t.TempDir())
			assert.Error(t, err)
		})
	}
}
