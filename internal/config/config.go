package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override. Field names are split on
// word boundaries, e.g. LLM.APIKey is STATREPORT_LLM_API_KEY.
const EnvPrefix = "STATREPORT"

// Storage drivers.
const (
	DriverFile     = "file"
	DriverMinio    = "minio"
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

type Config struct {
	Server    ServerConfig    `yaml:"server" split_words:"true"`
	Logging   LoggingConfig   `yaml:"logging" split_words:"true"`
	LLM       LLMConfig       `yaml:"llm" split_words:"true"`
	Storage   StorageConfig   `yaml:"storage" split_words:"true"`
	Upload    UploadConfig    `yaml:"upload" split_words:"true"`
	RateLimit RateLimitConfig `yaml:"rate_limit" split_words:"true"`
}

type ServerConfig struct {
	Port            int           `yaml:"port" split_words:"true"`
	ReadTimeout     time.Duration `yaml:"read_timeout" split_words:"true"`
	WriteTimeout    time.Duration `yaml:"write_timeout" split_words:"true"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" split_words:"true"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" split_words:"true"`
	AllowedOrigins  []string      `yaml:"allowed_origins" split_words:"true"`
	// TrustProxy honours X-Forwarded-For; off unless a proxy sets it.
	TrustProxy      bool          `yaml:"trust_proxy" split_words:"true"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" split_words:"true"`
	Format string `yaml:"format" split_words:"true"` // json or text
}

type LLMConfig struct {
	BaseURL        string        `yaml:"base_url" split_words:"true"`
	APIKey         string        `yaml:"api_key" split_words:"true"`
	Model          string        `yaml:"model" split_words:"true"`
	MaxTokens      int           `yaml:"max_tokens" split_words:"true"`
	MaxInputTokens int           `yaml:"max_input_tokens" split_words:"true"`
	MaxDataChars   int           `yaml:"max_data_chars" split_words:"true"`
	AttemptTimeout time.Duration `yaml:"attempt_timeout" split_words:"true"`
	Timeout        time.Duration `yaml:"timeout" split_words:"true"`
	Retry          RetryConfig   `yaml:"retry" split_words:"true"`
}

type RetryConfig struct {
	MaxAttempts   int           `yaml:"max_attempts" split_words:"true"`
	BaseDelay     time.Duration `yaml:"base_delay" split_words:"true"`
	MaxDelay      time.Duration `yaml:"max_delay" split_words:"true"`
	BackoffFactor float64       `yaml:"backoff_factor" split_words:"true"`
	Jitter        bool          `yaml:"jitter" split_words:"true"`
}

type StorageConfig struct {
	Driver   string         `yaml:"driver" split_words:"true"`
	Dir      string         `yaml:"dir" split_words:"true"`
	Minio    MinioConfig    `yaml:"minio" split_words:"true"`
	Database DatabaseConfig `yaml:"database" split_words:"true"`
}

type MinioConfig struct {
	Endpoint   string `yaml:"endpoint" split_words:"true"`
	AccessKey  string `yaml:"accessKey" split_words:"true"`
	SecretKey  string `yaml:"secretKey" split_words:"true"`
	BucketName string `yaml:"bucketName" split_words:"true"`
	Region     string `yaml:"region" split_words:"true"`
	UseSSL     bool   `yaml:"useSSL" split_words:"true"`
	Prefix     string `yaml:"prefix" split_words:"true"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host" split_words:"true"`
	Port     int    `yaml:"port" split_words:"true"`
	User     string `yaml:"user" split_words:"true"`
	Password string `yaml:"password" split_words:"true"`
	Name     string `yaml:"name" split_words:"true"`
	SSLMode  string `yaml:"sslmode" split_words:"true"`
}

type UploadConfig struct {
	MaxBytes int64 `yaml:"max_bytes" split_words:"true"`
}

type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" split_words:"true"`
	RPS     float64 `yaml:"rps" split_words:"true"`
	Burst   int     `yaml:"burst" split_words:"true"`
}

// Defaults returns the configuration used when nothing overrides it.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    5 * time.Minute,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Logging: LoggingConfig{Level: "info", Format: "json"},
		LLM: LLMConfig{
			Model:          "gpt-4o-mini",
			MaxTokens:      2000,
			MaxInputTokens: 100000,
			MaxDataChars:   60000,
			AttemptTimeout: 90 * time.Second,
			Timeout:        4 * time.Minute,
			Retry: RetryConfig{
				MaxAttempts:   3,
				BaseDelay:     500 * time.Millisecond,
				MaxDelay:      8 * time.Second,
				BackoffFactor: 2,
				Jitter:        true,
			},
		},
		Storage: StorageConfig{
			Driver: DriverFile,
			Dir:    "data/analyses",
			Minio:  MinioConfig{BucketName: "analyses", Region: "us-east-1"},
			Database: DatabaseConfig{
				Host:    "localhost",
				SSLMode: "disable",
			},
		},
		Upload:    UploadConfig{MaxBytes: 20 << 20},
		RateLimit: RateLimitConfig{Enabled: true, RPS: 5, Burst: 20},
	}
}

// Load starts from Defaults, overlays the YAML file at path (skipped when
// it does not exist) and then STATREPORT_* environment variables.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file %s: %w", path, err)
			}
		}
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("load config from env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// Validate reports every missing or inconsistent setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.LLM.BaseURL == "" {
		errs = append(errs, errors.New("llm.base_url is required (STATREPORT_LLM_BASE_URL)"))
	} else if u, err := url.Parse(c.LLM.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("llm.base_url %q is not an absolute URL", c.LLM.BaseURL))
	}
	if c.LLM.APIKey == "" {
		errs = append(errs, errors.New("llm.api_key is required (STATREPORT_LLM_API_KEY)"))
	}
	if c.LLM.MaxTokens <= 0 {
		errs = append(errs, errors.New("llm.max_tokens must be positive"))
	}
	if c.Upload.MaxBytes <= 0 {
		errs = append(errs, errors.New("upload.max_bytes must be positive"))
	}

	switch strings.ToLower(c.Storage.Driver) {
	case DriverFile:
		if c.Storage.Dir == "" {
			errs = append(errs, errors.New("storage.dir is required for the file driver"))
		}
	case DriverMinio:
		if c.Storage.Minio.Endpoint == "" || c.Storage.Minio.BucketName == "" {
			errs = append(errs, errors.New("storage.minio.endpoint and bucketName are required for the minio driver"))
		}
	case DriverMySQL, DriverPostgres:
		if c.Storage.Database.Name == "" || c.Storage.Database.User == "" {
			errs = append(errs, errors.New("storage.database.name and user are required for SQL drivers"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage.driver %q", c.Storage.Driver))
	}
	return errors.Join(errs...)
}

// MySQLDSN builds the go-sql-driver DSN.
func (c *Config) MySQLDSN() string {
	db := c.Storage.Database
	port := db.Port
	if port == 0 {
		port = 3306
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		db.User, db.Password, db.Host, port, db.Name)
}

// PostgresDSN builds the lib/pq URL DSN.
func (c *Config) PostgresDSN() string {
	db := c.Storage.Database
	port := db.Port
	if port == 0 {
		port = 5432
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(db.User, db.Password),
		Host:     fmt.Sprintf("%s:%d", db.Host, port),
		Path:     "/" + db.Name,
		RawQuery: url.Values{"sslmode": {db.SSLMode}}.Encode(),
	}
	return u.String()
}
