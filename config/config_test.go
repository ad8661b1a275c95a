package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", writeFile(t, "empty.env", ""))
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "memory", cfg.Cache.Driver)
	assert.True(t, cfg.Render.Validate)
	assert.Equal(t, 1.2, cfg.Render.Metrics.LineHeightFactor)
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "config.yaml", `
server:
  addr: ":9000"
  request_timeout: 5s
database:
  driver: sqlite
  dsn: "file:docs.db"
render:
  metrics:
    cell_padding: 2
log:
  format: console
`)
	cfg, err := Load(path, writeFile(t, "empty.env", ""))
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, 5*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 2.0, cfg.Render.Metrics.CellPadding)
	assert.Equal(t, 1.2, cfg.Render.Metrics.LineHeightFactor, "unset metrics keep defaults")
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("INVOICEPDF_SERVER_ADDR", ":7000")
	t.Setenv("INVOICEPDF_REDIS_URL", "redis://cache:6379")
	t.Setenv("INVOICEPDF_ASSETS_ALLOW_HTTP", "true")
	t.Setenv("INVOICEPDF_REQUEST_TIMEOUT", "2s")

	cfg, err := Load("", writeFile(t, "empty.env", ""))
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Server.Addr)
	assert.Equal(t, "redis", cfg.Cache.Driver)
	assert.Equal(t, "cache:6379", cfg.Cache.Redis.Addr)
	assert.True(t, cfg.Assets.AllowHTTP)
	assert.Equal(t, 2*time.Second, cfg.Server.RequestTimeout)
}

func TestDotenvFile(t *testing.T) {
	env := writeFile(t, "test.env", "INVOICEPDF_LOG_LEVEL=debug\nINVOICEPDF_ASSETS_ROOT=/srv/assets\n")
	t.Setenv("INVOICEPDF_ASSETS_ROOT", "/already/set")
	t.Cleanup(func() { os.Unsetenv("INVOICEPDF_LOG_LEVEL") })

	cfg, err := Load("", env)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "/already/set", cfg.Assets.Root, "environment wins over .env")
}

func TestInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		env  map[string]string
	}{
		{name: "driver", yaml: "database: {driver: mysql, dsn: x}"},
		{name: "dsn", yaml: "database: {driver: postgres}"},
		{name: "cache", yaml: "cache: {driver: disk}"},
		{name: "format", yaml: "log: {format: xml}"},
		{name: "metrics", yaml: "render: {metrics: {line_height_factor: 0}}"},
		{name: "bool", env: map[string]string{"INVOICEPDF_DB_MIGRATE": "maybe"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			if tt.yaml != "" {
				path = writeFile(t, "config.yaml", tt.yaml)
			}
			_, err := Load(path, writeFile(t, "empty.env", ""))
			assert.Error(t, err)
		})
	}
}

func TestMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), writeFile(t, "empty.env", ""))
	assert.Error(t, err)
}

func TestAssetConfig(t *testing.T) {
	cfg := Default()
	cfg.Assets.Root = "/srv"
	ac := cfg.AssetConfig(nil)
	assert.Equal(t, "/srv", ac.Root)
	assert.Equal(t, 24*time.Hour, ac.TTL)
	assert.Equal(t, "invoicepdf:", cfg.RedisCacheConfig().Prefix)
}
