package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("STATREPORT_LLM_BASE_URL", "https://llm.example.com/v1")
	t.Setenv("STATREPORT_LLM_API_KEY", "sk-test")
}

func TestLoad_DefaultsWithRequiredEnv(t *testing.T) {
	setRequired(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, 2000, cfg.LLM.MaxTokens)
	assert.Equal(t, 3, cfg.LLM.Retry.MaxAttempts)
	assert.Equal(t, DriverFile, cfg.Storage.Driver)
	assert.Equal(t, int64(20<<20), cfg.Upload.MaxBytes)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.False(t, cfg.Server.TrustProxy)
}

func TestLoad_FileThenEnv(t *testing.T) {
	setRequired(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9090
  allowed_origins: ["https://app.example.com"]
  trust_proxy: true
llm:
  model: gpt-4o
  timeout: 2m
  retry:
    max_attempts: 5
storage:
  driver: minio
  minio:
    endpoint: localhost:9000
    bucketName: reports
`), 0o644))
	t.Setenv("STATREPORT_LLM_MODEL", "o3-mini")
	t.Setenv("STATREPORT_UPLOAD_MAX_BYTES", "1048576")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"https://app.example.com"}, cfg.Server.AllowedOrigins)
	assert.True(t, cfg.Server.TrustProxy)
	assert.Equal(t, "o3-mini", cfg.LLM.Model)
	assert.Equal(t, 2*time.Minute, cfg.LLM.Timeout)
	assert.Equal(t, 5, cfg.LLM.Retry.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.LLM.Retry.BaseDelay)
	assert.Equal(t, DriverMinio, cfg.Storage.Driver)
	assert.Equal(t, "reports", cfg.Storage.Minio.BucketName)
	assert.Equal(t, int64(1<<20), cfg.Upload.MaxBytes)
}

func TestLoad_MissingRequired(t *testing.T) {
	t.Setenv("STATREPORT_LLM_BASE_URL", "")
	t.Setenv("STATREPORT_LLM_API_KEY", "")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "llm.base_url is required")
	assert.Contains(t, err.Error(), "llm.api_key is required")
}

func TestLoad_BadYAML(t *testing.T) {
	setRequired(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0o644))

	_, err := Load(path)
	assert.ErrorContains(t, err, "parse config file")
}

func TestValidate(t *testing.T) {
	base := func() Config {
		c := Defaults()
		c.LLM.BaseURL = "http://localhost:11434/v1"
		c.LLM.APIKey = "k"
		return c
	}

	c := base()
	assert.NoError(t, c.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"relative base url", func(c *Config) { c.LLM.BaseURL = "llm.local" }, "not an absolute URL"},
		{"port", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"driver", func(c *Config) { c.Storage.Driver = "redis" }, `unknown storage.driver "redis"`},
		{"sql without db", func(c *Config) { c.Storage.Driver = DriverPostgres }, "storage.database.name"},
		{"upload", func(c *Config) { c.Upload.MaxBytes = 0 }, "upload.max_bytes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(&c)
			assert.ErrorContains(t, c.Validate(), tt.want)
		})
	}
}

func TestDSNs(t *testing.T) {
	c := Defaults()
	c.Storage.Database = DatabaseConfig{Host: "db", User: "stat", Password: "p@ss", Name: "reports", SSLMode: "require"}

	assert.Equal(t, "stat:p@ss@tcp(db:3306)/reports?parseTime=true&charset=utf8mb4&loc=UTC", c.MySQLDSN())
	assert.Equal(t, "postgres://stat:p%40ss@db:5432/reports?sslmode=require", c.PostgresDSN())
}
