package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Storage backends for chats, results and failures.
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverMemory   = "memory"
)

// Persistence modes of the analysis pipeline.
const (
	PersistChat   = "chat"
	PersistResult = "result"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Minio     MinioConfig     `yaml:"minio"`
	Oracle    OracleConfig    `yaml:"oracle"`
	Staging   StagingConfig   `yaml:"staging"`
	Features  FeaturesConfig  `yaml:"features"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

type ServerConfig struct {
	Port      int    `yaml:"port"`
	ClientURL string `yaml:"clientURL"`
	Env       string `yaml:"env"`
	LogLevel  string `yaml:"logLevel"`
	// RateLimit is the per-client burst on analyze routes; 0 disables.
	RateLimit       int           `yaml:"rateLimit"`
	RateRefill      int           `yaml:"rateRefill"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	// DSN wins over the discrete fields below. For mongo it is the connection URI.
	DSN      string `yaml:"dsn"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

type MinioConfig struct {
	Endpoint      string `yaml:"endpoint"`
	AccessKey     string `yaml:"accessKey"`
	SecretKey     string `yaml:"secretKey"`
	BucketName    string `yaml:"bucketName"`
	Region        string `yaml:"region"`
	UseSSL        bool   `yaml:"useSSL"`
	PublicBaseURL string `yaml:"publicBaseURL"`
}

type OracleConfig struct {
	APIKey       string        `yaml:"apiKey"`
	BaseURL      string        `yaml:"baseURL"`
	Model        string        `yaml:"model"`
	FilePurpose  string        `yaml:"filePurpose"`
	PollInterval time.Duration `yaml:"pollInterval"`
	ReadyTimeout time.Duration `yaml:"readyTimeout"`
}

type StagingConfig struct {
	Dir      string `yaml:"dir"`
	MaxBytes int64  `yaml:"maxBytes"`
}

type FeaturesConfig struct {
	Workers        int           `yaml:"workers"`
	FFmpegPath     string        `yaml:"ffmpegPath"`
	FFprobePath    string        `yaml:"ffprobePath"`
	CommandTimeout time.Duration `yaml:"commandTimeout"`
	// MaxPixels bounds each decoded image or video frame.
	MaxPixels int `yaml:"maxPixels"`
}

type PipelineConfig struct {
	Persistence string `yaml:"persistence"`
	// PersistDegradedVerdicts keeps storing "Error" verdicts; nil means true.
	PersistDegradedVerdicts *bool  `yaml:"persistDegradedVerdicts"`
	KeyPrefix               string `yaml:"keyPrefix"`
}

// KeepDegraded resolves PersistDegradedVerdicts.
func (p PipelineConfig) KeepDegraded() bool {
	return p.PersistDegradedVerdicts == nil || *p.PersistDegradedVerdicts
}

type TelemetryConfig struct {
	Enabled      bool   `yaml:"enabled"`
	OTLPEndpoint string `yaml:"otlpEndpoint"`
	ServiceName  string `yaml:"serviceName"`
}

// Load baca file config (kalau ada), lalu override dari env, isi default, validasi.
func Load(path string) (*Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
		// env-only deployment
	default:
		return nil, err
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	c.Server.Port = envInt("PORT", c.Server.Port)
	c.Server.ClientURL = envStr("CLIENT_URL", c.Server.ClientURL)
	c.Server.Env = envStr("APP_ENV", c.Server.Env)
	c.Server.LogLevel = envStr("LOG_LEVEL", c.Server.LogLevel)

	c.Database.Driver = envStr("DB_DRIVER", c.Database.Driver)
	c.Database.DSN = envStr("DATABASE_URL", c.Database.DSN)
	c.Database.Password = envStr("DB_PASSWORD", c.Database.Password)
	c.Database.Name = envStr("DB_NAME", c.Database.Name)

	c.Minio.Endpoint = envStr("MINIO_ENDPOINT", c.Minio.Endpoint)
	c.Minio.AccessKey = envStr("MINIO_ACCESS_KEY", c.Minio.AccessKey)
	c.Minio.SecretKey = envStr("MINIO_SECRET_KEY", c.Minio.SecretKey)
	c.Minio.BucketName = envStr("MINIO_BUCKET", c.Minio.BucketName)
	c.Minio.UseSSL = envBool("MINIO_USE_SSL", c.Minio.UseSSL)

	c.Oracle.APIKey = envStr("OPENAI_API_KEY", c.Oracle.APIKey)
	c.Oracle.BaseURL = envStr("OPENAI_BASE_URL", c.Oracle.BaseURL)
	c.Oracle.Model = envStr("OPENAI_MODEL", c.Oracle.Model)

	c.Features.MaxPixels = envInt("FEATURES_MAX_PIXELS", c.Features.MaxPixels)

	c.Pipeline.Persistence = envStr("PIPELINE_PERSISTENCE", c.Pipeline.Persistence)
	if v := os.Getenv("PIPELINE_PERSIST_DEGRADED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Pipeline.PersistDegradedVerdicts = &b
		}
	}

	c.Telemetry.Enabled = envBool("OTEL_ENABLED", c.Telemetry.Enabled)
	c.Telemetry.OTLPEndpoint = envStr("OTEL_EXPORTER_OTLP_ENDPOINT", c.Telemetry.OTLPEndpoint)
	c.Telemetry.ServiceName = envStr("OTEL_SERVICE_NAME", c.Telemetry.ServiceName)
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 5000
	}
	if c.Server.ClientURL == "" {
		c.Server.ClientURL = "http://localhost:3000"
	}
	if c.Server.Env == "" {
		c.Server.Env = "dev"
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.Server.RateRefill == 0 && c.Server.RateLimit > 0 {
		c.Server.RateRefill = 1
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		// oracle readiness polling can take minutes
		c.Server.WriteTimeout = 10 * time.Minute
	}
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	if c.Database.Driver == "" {
		c.Database.Driver = DriverMySQL
	}
	if c.Database.Name == "" {
		c.Database.Name = "aidentify"
	}
	if c.Oracle.Model == "" {
		c.Oracle.Model = "gpt-4o"
	}
	if c.Staging.Dir == "" {
		c.Staging.Dir = "./temp"
	}
	if c.Staging.MaxBytes == 0 {
		c.Staging.MaxBytes = 100 << 20
	}
	if c.Features.Workers == 0 {
		c.Features.Workers = 4
	}
	if c.Features.FFmpegPath == "" {
		c.Features.FFmpegPath = "ffmpeg"
	}
	if c.Features.FFprobePath == "" {
		c.Features.FFprobePath = "ffprobe"
	}
	if c.Features.MaxPixels == 0 {
		c.Features.MaxPixels = 25_000_000
	}
	if c.Features.CommandTimeout == 0 {
		c.Features.CommandTimeout = 2 * time.Minute
	}
	c.Pipeline.Persistence = strings.ToLower(strings.TrimSpace(c.Pipeline.Persistence))
	if c.Pipeline.Persistence == "" {
		c.Pipeline.Persistence = PersistChat
	}
	if c.Pipeline.KeyPrefix == "" {
		c.Pipeline.KeyPrefix = "AIdentify"
	}
	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = "aidentify-api"
	}
}

// Validate reports every missing secret at once.
func (c *Config) Validate() error {
	var missing []string
	if c.Minio.Endpoint == "" {
		missing = append(missing, "minio.endpoint")
	}
	if c.Minio.AccessKey == "" {
		missing = append(missing, "minio.accessKey")
	}
	if c.Minio.SecretKey == "" {
		missing = append(missing, "minio.secretKey")
	}
	if c.Minio.BucketName == "" {
		missing = append(missing, "minio.bucketName")
	}
	if c.Oracle.APIKey == "" {
		missing = append(missing, "oracle.apiKey")
	}

	switch c.Database.Driver {
	case DriverMemory:
	case DriverMySQL:
		if c.MySQLDSN() == "" {
			missing = append(missing, "database.dsn")
		}
	case DriverPostgres, DriverMongo:
		if c.Database.DSN == "" {
			missing = append(missing, "database.dsn")
		}
	default:
		return fmt.Errorf("config: unknown database.driver %q", c.Database.Driver)
	}

	if len(missing) > 0 {
		return fmt.Errorf("config: missing required keys: %s", strings.Join(missing, ", "))
	}

	if c.Pipeline.Persistence != PersistChat && c.Pipeline.Persistence != PersistResult {
		return fmt.Errorf("config: pipeline.persistence must be %q or %q, got %q",
			PersistChat, PersistResult, c.Pipeline.Persistence)
	}
	if c.Staging.MaxBytes < 0 {
		return fmt.Errorf("config: staging.maxBytes must be positive")
	}
	return nil
}

// Helper untuk build DSN MySQL
func (c *Config) MySQLDSN() string {
	if c.Database.DSN != "" {
		return c.Database.DSN
	}
	if c.Database.Host == "" {
		return ""
	}
	port := c.Database.Port
	if port == 0 {
		port = 3306
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		port,
		c.Database.Name,
	)
}

// Addr listen address server
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
