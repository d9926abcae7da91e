package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"reservation-engine/internal/domain"
)

// Config represents the application configuration
type Config struct {
	Server        ServerConfig      `yaml:"server"`
	Database      DatabaseConfig    `yaml:"database"`
	JWT           JWTConfig         `yaml:"jwt"`
	Log           LogConfig         `yaml:"log"`
	Reservation   ReservationConfig `yaml:"reservation"`
	Store         StoreConfig       `yaml:"store"`
	Payment       PaymentConfig     `yaml:"payment"`
	Kafka         KafkaConfig       `yaml:"kafka"`
	Redis         RedisConfig       `yaml:"redis"`
	Scheduler     SchedulerConfig   `yaml:"scheduler"`
	MigrationsDir string            `yaml:"migrations_dir"`
}

// ServerConfig contains gRPC and HTTP listener settings
type ServerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	HTTPPort int    `yaml:"http_port"`
}

// DatabaseConfig contains PostgreSQL connection settings
type DatabaseConfig struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	User         string `yaml:"user"`
	Password     string `yaml:"password"`
	Database     string `yaml:"database"`
	SSLMode      string `yaml:"ssl_mode"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

// JWTConfig contains JWT token settings
type JWTConfig struct {
	Secret            string `yaml:"secret"`
	AccessTokenExpiry int    `yaml:"access_token_expiry_minutes"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "text"
}

// ReservationConfig contains lifecycle policy
type ReservationConfig struct {
	// InitialStatus is where a new reservation lands: CONFIRMED books
	// directly, PENDING waits for owner approval. Both occupy the interval.
	InitialStatus    string `yaml:"initial_status"`
	LicenseGuardDays int    `yaml:"license_guard_days"`
	MaxPageSize      int32  `yaml:"max_page_size"`
}

// StoreConfig bounds retries of transient storage failures
type StoreConfig struct {
	MaxRetries    int `yaml:"max_retries"`
	BaseBackoffMs int `yaml:"base_backoff_ms"`
}

// PaymentConfig contains payment processor settings
type PaymentConfig struct {
	BaseURL        string `yaml:"base_url"`
	APIKey         string `yaml:"api_key"`
	WebhookSecret  string `yaml:"webhook_secret"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// KafkaConfig contains lifecycle event publication settings. No brokers
// means events are only logged.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// RedisConfig contains the webhook replay cache settings. Empty Addr disables it.
type RedisConfig struct {
	Addr             string `yaml:"addr"`
	Password         string `yaml:"password"`
	DB               int    `yaml:"db"`
	ReplayTTLMinutes int    `yaml:"replay_ttl_minutes"`
}

// SchedulerConfig contains cron schedule settings
type SchedulerConfig struct {
	RetryAssetSync         string `yaml:"retry_asset_sync"`
	ReportPaymentAnomalies string `yaml:"report_payment_anomalies"`
}

// Load reads configuration from a YAML file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML, applies env overrides, defaults and validation.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.overrideWithEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// overrideWithEnv overrides config values with environment variables
func (c *Config) overrideWithEnv() {
	// Database
	if val := os.Getenv("DB_HOST"); val != "" {
		c.Database.Host = val
	}
	if val := os.Getenv("DB_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Database.Port)
	}
	if val := os.Getenv("DB_USER"); val != "" {
		c.Database.User = val
	}
	if val := os.Getenv("DB_PASSWORD"); val != "" {
		c.Database.Password = val
	}
	if val := os.Getenv("DB_NAME"); val != "" {
		c.Database.Database = val
	}
	if val := os.Getenv("DB_SSL_MODE"); val != "" {
		c.Database.SSLMode = val
	}

	// JWT
	if val := os.Getenv("JWT_SECRET"); val != "" {
		c.JWT.Secret = val
	}

	// Server
	if val := os.Getenv("SERVER_HOST"); val != "" {
		c.Server.Host = val
	}
	if val := os.Getenv("SERVER_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Server.Port)
	}
	if val := os.Getenv("HTTP_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Server.HTTPPort)
	}

	// Payment
	if val := os.Getenv("PAYMENT_BASE_URL"); val != "" {
		c.Payment.BaseURL = val
	}
	if val := os.Getenv("PAYMENT_API_KEY"); val != "" {
		c.Payment.APIKey = val
	}
	if val := os.Getenv("PAYMENT_WEBHOOK_SECRET"); val != "" {
		c.Payment.WebhookSecret = val
	}

	// Kafka
	if val := os.Getenv("KAFKA_BROKERS"); val != "" {
		c.Kafka.Brokers = strings.Split(val, ",")
	}

	// Redis
	if val := os.Getenv("REDIS_ADDR"); val != "" {
		c.Redis.Addr = val
	}
	if val := os.Getenv("REDIS_PASSWORD"); val != "" {
		c.Redis.Password = val
	}

	// Log
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.Log.Level = val
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		c.Log.Format = val
	}
}

func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Server.HTTPPort == 0 {
		c.Server.HTTPPort = c.Server.Port + 1
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 50
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 10
	}
	if c.JWT.AccessTokenExpiry == 0 {
		c.JWT.AccessTokenExpiry = 60
	}
	if c.Reservation.InitialStatus == "" {
		c.Reservation.InitialStatus = string(domain.ReservationStatusConfirmed)
	}
	if c.Reservation.LicenseGuardDays == 0 {
		c.Reservation.LicenseGuardDays = 30
	}
	if c.Reservation.MaxPageSize == 0 {
		c.Reservation.MaxPageSize = 100
	}
	if c.Store.MaxRetries == 0 {
		c.Store.MaxRetries = 3
	}
	if c.Store.BaseBackoffMs == 0 {
		c.Store.BaseBackoffMs = 50
	}
	if c.Payment.TimeoutSeconds == 0 {
		c.Payment.TimeoutSeconds = 10
	}
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = "reservation-events"
	}
	if c.Redis.ReplayTTLMinutes == 0 {
		c.Redis.ReplayTTLMinutes = 24 * 60
	}
	if c.Scheduler.RetryAssetSync == "" {
		c.Scheduler.RetryAssetSync = "0 */5 * * * *" // every 5 minutes
	}
	if c.Scheduler.ReportPaymentAnomalies == "" {
		c.Scheduler.ReportPaymentAnomalies = "0 0 6 * * *" // 6 AM UTC
	}
	if c.MigrationsDir == "" {
		c.MigrationsDir = "migrations"
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid http port: %d", c.Server.HTTPPort)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database user is required")
	}
	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT secret must be at least 32 characters")
	}

	switch domain.ReservationStatus(c.Reservation.InitialStatus) {
	case domain.ReservationStatusConfirmed, domain.ReservationStatusPending:
	default:
		return fmt.Errorf("reservation initial_status must be CONFIRMED or PENDING, got %q", c.Reservation.InitialStatus)
	}
	if c.Reservation.LicenseGuardDays < 0 {
		return fmt.Errorf("license_guard_days must not be negative")
	}

	if c.Payment.WebhookSecret == "" {
		return fmt.Errorf("payment webhook secret is required")
	}
	return nil
}

// GetDatabaseConnectionString returns a PostgreSQL connection string
func (c *Config) GetDatabaseConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
		c.Database.SSLMode,
	)
}

// GetServerAddress returns the gRPC server address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// GetHTTPAddress returns the webhook/health HTTP address
func (c *Config) GetHTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.HTTPPort)
}

func (c *Config) LicenseGuard() time.Duration {
	return time.Duration(c.Reservation.LicenseGuardDays) * 24 * time.Hour
}

func (c *Config) BaseBackoff() time.Duration {
	return time.Duration(c.Store.BaseBackoffMs) * time.Millisecond
}

func (c *Config) ReplayTTL() time.Duration {
	return time.Duration(c.Redis.ReplayTTLMinutes) * time.Minute
}
