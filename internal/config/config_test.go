package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	// Create a temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
server:
  port: 9090
  host: "0.0.0.0"
  allowed_origins: ["https://app.example.com"]
  max_upload_mb: 20

ingest:
  concurrency: 8
  disabled_formats: [".xls"]
  xls_charset: "windows-1252"

prompt:
  max_rows_per_report: 30
  preamble_template: "Reports: {{ report_count }}"

storage:
  type: "redis"
  redis_addr: "redis:6379"
  redis_db: 2
  key_prefix: "test:"

inbox:
  s3_bucket: "exports"
  s3_prefix: "incoming/"
  poll_minutes: 15

logging:
  level: "debug"
  redact_pii: false
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, []string{"https://app.example.com"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, int64(20<<20), cfg.Server.MaxUploadBytes())

	assert.Equal(t, 8, cfg.Ingest.Concurrency)
	assert.Equal(t, []string{".xls"}, cfg.Ingest.DisabledFormats)
	assert.Equal(t, "windows-1252", cfg.Ingest.XLSCharset)

	assert.Equal(t, 30, cfg.Prompt.MaxRowsPerReport)
	assert.Equal(t, "Reports: {{ report_count }}", cfg.Prompt.PreambleTemplate)

	assert.Equal(t, "redis", cfg.Storage.Type)
	assert.Equal(t, "redis:6379", cfg.Storage.RedisAddr)
	assert.Equal(t, 2, cfg.Storage.RedisDB)
	assert.Equal(t, "test:", cfg.Storage.KeyPrefix)

	assert.True(t, cfg.Inbox.Enabled())
	assert.Equal(t, "incoming/", cfg.Inbox.S3Prefix)
	assert.Equal(t, 15*time.Minute, cfg.Inbox.PollInterval())

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.False(t, cfg.Logging.RedactEnabled())
}

func TestLoadDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("server:\n  port: 0\n"), 0644))

	cfg, err := Load(configPath)
	require.NoError(t, err)

	// Verify defaults are applied
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 100, cfg.Server.MaxUploadMB)
	assert.Equal(t, 4, cfg.Ingest.Concurrency)
	assert.Equal(t, int64(50<<20), cfg.Ingest.MaxFileBytes())
	assert.Equal(t, 30, cfg.Prompt.ExcerptDays)
	assert.Equal(t, "local", cfg.Storage.Type)
	assert.Equal(t, "./data", cfg.Storage.LocalPath)
	assert.Equal(t, "kv_store", cfg.Storage.Table)
	assert.Equal(t, "adreport:", cfg.Storage.KeyPrefix)
	assert.Equal(t, "us-west-2", cfg.Inbox.AWSRegion)
	assert.False(t, cfg.Inbox.Enabled())
	assert.Zero(t, cfg.Inbox.PollInterval())
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.True(t, cfg.Logging.RedactEnabled())

	assert.Equal(t, Default(), cfg)
}

func TestLoadFromEnv(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("storage:\n  type: local\n"), 0644))

	t.Setenv("PORT", "7070")
	t.Setenv("STORAGE_TYPE", "postgres")
	t.Setenv("DATABASE_URL", "postgres://u:p@db/reports?sslmode=disable")
	t.Setenv("AWS_REGION", "eu-west-1")
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("INBOX_POLL_MINUTES", "5")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")

	cfg, err := LoadFromEnv(configPath)
	require.NoError(t, err)

	// Environment variables should override file values
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Storage.Type)
	assert.Equal(t, "postgres://u:p@db/reports?sslmode=disable", cfg.Storage.DatabaseURL)
	assert.Equal(t, "eu-west-1", cfg.Storage.AWSRegion)
	assert.Equal(t, "eu-west-1", cfg.Inbox.AWSRegion)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, 5, cfg.Inbox.PollMinutes)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.Server.AllowedOrigins)
}

func TestLoadFromEnv_NoFile(t *testing.T) {
	t.Setenv("STORAGE_TYPE", "s3")
	cfg, err := LoadFromEnv("")
	require.NoError(t, err)
	assert.Equal(t, "s3", cfg.Storage.Type)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoadFileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	assert.Error(t, err)
}

func TestTimeouts(t *testing.T) {
	cfg := ServerConfig{ReadTimeoutSeconds: 45, WriteTimeoutSeconds: 90, ShutdownGraceSeconds: 5}
	assert.Equal(t, 45*time.Second, cfg.ReadTimeout())
	assert.Equal(t, 90*time.Second, cfg.WriteTimeout())
	assert.Equal(t, 5*time.Second, cfg.ShutdownGrace())
}
