package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Ingest  IngestConfig  `yaml:"ingest"`
	Prompt  PromptConfig  `yaml:"prompt"`
	Storage StorageConfig `yaml:"storage"`
	Inbox   InboxConfig   `yaml:"inbox"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port                 int      `yaml:"port"`
	Host                 string   `yaml:"host"`
	AllowedOrigins       []string `yaml:"allowed_origins"`
	MaxUploadMB          int      `yaml:"max_upload_mb"`
	ReadTimeoutSeconds   int      `yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds  int      `yaml:"write_timeout_seconds"`
	ShutdownGraceSeconds int      `yaml:"shutdown_grace_seconds"`
}

// GetHost returns the server host, with ECS detection
func (c ServerConfig) GetHost() string {
	// On ECS/container, listen on all interfaces
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// MaxUploadBytes is the request body limit for uploads.
func (c ServerConfig) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

func (c ServerConfig) ReadTimeout() time.Duration {
	return time.Duration(c.ReadTimeoutSeconds) * time.Second
}

func (c ServerConfig) WriteTimeout() time.Duration {
	return time.Duration(c.WriteTimeoutSeconds) * time.Second
}

func (c ServerConfig) ShutdownGrace() time.Duration {
	return time.Duration(c.ShutdownGraceSeconds) * time.Second
}

// IngestConfig controls the batch processor
type IngestConfig struct {
	Concurrency     int      `yaml:"concurrency"`
	DisabledFormats []string `yaml:"disabled_formats"` // e.g. [".xls", ".zip"]
	XLSCharset      string   `yaml:"xls_charset"`
	MaxFileMB       int      `yaml:"max_file_mb"`
}

// MaxFileBytes is the per-file limit; 0 disables it.
func (c IngestConfig) MaxFileBytes() int64 {
	return int64(c.MaxFileMB) << 20
}

// PromptConfig bounds the generated analysis context
type PromptConfig struct {
	IncludeAllThreshold int    `yaml:"include_all_threshold"`
	MaxRowsPerReport    int    `yaml:"max_rows_per_report"`
	MaxWasteRows        int    `yaml:"max_waste_rows"`
	MaxCampaignRows     int    `yaml:"max_campaign_rows"`
	MaxChars            int    `yaml:"max_chars"`
	PreambleTemplate    string `yaml:"preamble_template"`
	ExcerptDays         int    `yaml:"excerpt_days"`
}

// StorageConfig holds storage configuration
type StorageConfig struct {
	Type               string `yaml:"type"` // local, redis, postgres, s3, dynamodb
	LocalPath          string `yaml:"local_path"`
	RedisAddr          string `yaml:"redis_addr"`
	RedisDB            int    `yaml:"redis_db"`
	DatabaseURL        string `yaml:"database_url"`
	Table              string `yaml:"table"` // postgres table or DynamoDB table
	S3Bucket           string `yaml:"s3_bucket"`
	S3Prefix           string `yaml:"s3_prefix"`
	AWSRegion          string `yaml:"aws_region"`
	AWSProfile         string `yaml:"aws_profile"` // Empty string uses default credential chain (IAM role on ECS)
	AWSAccessKeyID     string `yaml:"aws_access_key_id"`
	AWSSecretAccessKey string `yaml:"aws_secret_access_key"`
	KeyPrefix          string `yaml:"key_prefix"`
}

// GetAWSProfile returns the AWS profile, with environment variable override
func (c StorageConfig) GetAWSProfile() string {
	if envProfile := os.Getenv("AWS_PROFILE_OVERRIDE"); envProfile != "" {
		if envProfile == "none" || envProfile == "iam" {
			return "" // Use default credential chain (IAM role)
		}
		return envProfile
	}
	// On ECS/Lambda, don't use a profile - use IAM role
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return ""
	}
	return c.AWSProfile
}

// InboxConfig points at an S3 prefix where report exports are dropped
type InboxConfig struct {
	S3Bucket  string `yaml:"s3_bucket"`
	S3Prefix  string `yaml:"s3_prefix"`
	AWSRegion string `yaml:"aws_region"`
	MaxFiles  int    `yaml:"max_files"`

	// PollMinutes > 0 ingests the inbox in the background on that interval.
	PollMinutes int `yaml:"poll_minutes"`
}

// Enabled reports whether an inbox bucket is configured.
func (c InboxConfig) Enabled() bool { return c.S3Bucket != "" }

// PollInterval returns zero when background polling is off.
func (c InboxConfig) PollInterval() time.Duration {
	if c.PollMinutes <= 0 {
		return 0
	}
	return time.Duration(c.PollMinutes) * time.Minute
}

// LoggingConfig holds log settings
type LoggingConfig struct {
	Level     string `yaml:"level"`
	RedactPII *bool  `yaml:"redact_pii"`
}

// RedactEnabled defaults to true when unset.
func (c LoggingConfig) RedactEnabled() bool {
	return c.RedactPII == nil || *c.RedactPII
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if len(cfg.Server.AllowedOrigins) == 0 {
		cfg.Server.AllowedOrigins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	if cfg.Server.MaxUploadMB == 0 {
		cfg.Server.MaxUploadMB = 100
	}
	if cfg.Server.ReadTimeoutSeconds == 0 {
		cfg.Server.ReadTimeoutSeconds = 60
	}
	if cfg.Server.WriteTimeoutSeconds == 0 {
		cfg.Server.WriteTimeoutSeconds = 120
	}
	if cfg.Server.ShutdownGraceSeconds == 0 {
		cfg.Server.ShutdownGraceSeconds = 15
	}
	if cfg.Ingest.Concurrency == 0 {
		cfg.Ingest.Concurrency = 4
	}
	if cfg.Ingest.MaxFileMB == 0 {
		cfg.Ingest.MaxFileMB = 50
	}
	if cfg.Prompt.ExcerptDays == 0 {
		cfg.Prompt.ExcerptDays = 30
	}
	if cfg.Storage.Type == "" {
		cfg.Storage.Type = "local"
	}
	if cfg.Storage.LocalPath == "" {
		cfg.Storage.LocalPath = "./data"
	}
	if cfg.Storage.RedisAddr == "" {
		cfg.Storage.RedisAddr = "localhost:6379"
	}
	if cfg.Storage.Table == "" {
		cfg.Storage.Table = "kv_store"
	}
	if cfg.Storage.AWSRegion == "" {
		cfg.Storage.AWSRegion = "us-west-2"
	}
	if cfg.Storage.KeyPrefix == "" {
		cfg.Storage.KeyPrefix = "adreport:"
	}
	if cfg.Inbox.AWSRegion == "" {
		cfg.Inbox.AWSRegion = cfg.Storage.AWSRegion
	}
	if cfg.Inbox.MaxFiles == 0 {
		cfg.Inbox.MaxFiles = 100
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so secrets can live in .env locally and in real env vars on ECS.
// An empty path skips the file and starts from defaults.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	var cfg *Config
	if path == "" {
		cfg = Default()
	} else {
		var err error
		if cfg, err = Load(path); err != nil {
			return nil, err
		}
	}

	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		cfg.Server.AllowedOrigins = splitList(v)
	}
	if v := os.Getenv("STORAGE_TYPE"); v != "" {
		cfg.Storage.Type = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Storage.RedisAddr = v
	}
	// Database override (critical for ECS deployment where config.yaml has local defaults)
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Storage.DatabaseURL = v
	}
	if v := os.Getenv("S3_BUCKET"); v != "" {
		cfg.Storage.S3Bucket = v
	}
	if v := os.Getenv("AWS_REGION"); v != "" {
		cfg.Storage.AWSRegion = v
		cfg.Inbox.AWSRegion = v
	}
	if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" {
		cfg.Storage.AWSAccessKeyID = v
	}
	if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" {
		cfg.Storage.AWSSecretAccessKey = v
	}
	if v := os.Getenv("INBOX_S3_BUCKET"); v != "" {
		cfg.Inbox.S3Bucket = v
	}
	if v := os.Getenv("INBOX_POLL_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Inbox.PollMinutes = n
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
