package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Logger   LoggerConfig
	Session  SessionConfig
	Storage  StorageConfig
	Postal   PostalConfig
	Shipping ShippingConfig
	Timeouts TimeoutConfig
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Host           string
	Port           int
	RequestTimeout time.Duration
	AllowedOrigin  string
}

// DatabaseConfig holds database-related configuration.
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	MaxConnections  int
	MinConnections  int
	MaxConnLifetime int // seconds
	// StatementTimeout bounds every statement on the server side. It
	// defaults to the store timeout.
	StatementTimeout time.Duration
	ApplicationName  string
}

// LoggerConfig holds logger-related configuration.
type LoggerConfig struct {
	Level  string
	Format string // "json" or "console"
	Output string // "stdout" or "stderr"
}

// SessionConfig holds the browser session settings. The session carries the
// signed-in user and the cart.
type SessionConfig struct {
	Name   string
	Secret string
	Secure bool
	Store  string // "cookie" or "filesystem"
	Dir    string // filesystem store directory
	MaxAge int    // seconds
}

// StorageConfig holds image storage configuration: S3 (or an S3-compatible
// endpoint) with a local directory fallback.
type StorageConfig struct {
	S3Enabled       bool
	Bucket          string
	Region          string
	Prefix          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	PublicBaseURL   string
	LocalDir        string
	LocalPublicURL  string
}

// PostalConfig holds the postal code lookup service settings.
type PostalConfig struct {
	BaseURL string
	Timeout time.Duration
}

// ShippingConfig holds the flat-rate freight table.
type ShippingConfig struct {
	HomeState        string
	HomeRate         decimal.Decimal
	HighVolumeStates []string
	HighVolumeRate   decimal.Decimal
	DefaultRate      decimal.Decimal
}

// TimeoutConfig bounds calls to the store made on behalf of a request.
type TimeoutConfig struct {
	Store     time.Duration
	Reconcile time.Duration
}

// Load loads configuration from an optional .env file and environment variables.
// Variables already set in the environment win over the file.
func Load() (*Config, error) {
	cfg, err := read()
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadForTools reads the same sources as Load but only checks the database
// and logger settings, which is all the admin CLI uses.
func LoadForTools() (*Config, error) {
	cfg, err := read()
	if err != nil {
		return nil, err
	}

	if err := cfg.validateDatabase(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	if err := cfg.validateLogger(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func read() (*Config, error) {
	if err := godotenv.Load(getEnv("ENV_FILE", ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read env file: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           getEnvAsInt("SERVER_PORT", 8080),
			RequestTimeout: getEnvAsDuration("SERVER_REQUEST_TIMEOUT", 15*time.Second),
			AllowedOrigin:  getEnv("CORS_ALLOWED_ORIGIN", "*"),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvAsInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", ""),
			Database:        getEnv("DB_NAME", "paloma"),
			MaxConnections:  getEnvAsInt("DB_MAX_CONNECTIONS", 25),
			MinConnections:  getEnvAsInt("DB_MIN_CONNECTIONS", 5),
			MaxConnLifetime: getEnvAsInt("DB_MAX_CONN_LIFETIME", 300),
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
			Output: getEnv("LOG_OUTPUT", "stdout"),
		},
		Session: SessionConfig{
			Name:   getEnv("SESSION_NAME", "paloma_session"),
			Secret: getEnv("SESSION_SECRET", ""),
			Secure: getEnvAsBool("SESSION_SECURE", true),
			Store:  getEnv("SESSION_STORE", "filesystem"),
			Dir:    getEnv("SESSION_DIR", os.TempDir()),
			MaxAge: getEnvAsInt("SESSION_MAX_AGE", 30*24*60*60),
		},
		Storage: StorageConfig{
			S3Enabled:       getEnvAsBool("S3_ENABLED", false),
			Bucket:          getEnv("S3_BUCKET", "product-images"),
			Region:          getEnv("S3_REGION", "us-east-1"),
			Prefix:          getEnv("S3_PREFIX", ""),
			Endpoint:        getEnv("S3_ENDPOINT", ""),
			AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
			PublicBaseURL:   getEnv("S3_PUBLIC_BASE_URL", ""),
			LocalDir:        getEnv("UPLOAD_DIR", "./uploads"),
			LocalPublicURL:  getEnv("UPLOAD_PUBLIC_URL", "/uploads"),
		},
		Postal: PostalConfig{
			BaseURL: getEnv("POSTAL_LOOKUP_URL", "https://viacep.com.br"),
			Timeout: getEnvAsDuration("POSTAL_LOOKUP_TIMEOUT", 5*time.Second),
		},
		Shipping: ShippingConfig{
			HomeState:        strings.ToUpper(getEnv("SHIPPING_HOME_STATE", "ES")),
			HomeRate:         getEnvAsDecimal("SHIPPING_HOME_RATE", decimal.RequireFromString("12.00")),
			HighVolumeStates: getEnvAsList("SHIPPING_HIGH_VOLUME_STATES", []string{"SP", "RJ"}),
			HighVolumeRate:   getEnvAsDecimal("SHIPPING_HIGH_VOLUME_RATE", decimal.RequireFromString("25.00")),
			DefaultRate:      getEnvAsDecimal("SHIPPING_DEFAULT_RATE", decimal.RequireFromString("35.00")),
		},
		Timeouts: TimeoutConfig{
			Store:     getEnvAsDuration("STORE_TIMEOUT", 5*time.Second),
			Reconcile: getEnvAsDuration("RECONCILE_TIMEOUT", 3*time.Second),
		},
	}
	cfg.Database.StatementTimeout = getEnvAsDuration("DB_STATEMENT_TIMEOUT", cfg.Timeouts.Store)
	cfg.Database.ApplicationName = getEnv("DB_APPLICATION_NAME", "paloma-store")

	return cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.RequestTimeout < 0 {
		return fmt.Errorf("server request timeout cannot be negative")
	}

	if err := c.validateDatabase(); err != nil {
		return err
	}

	if err := c.validateLogger(); err != nil {
		return err
	}

	if len(c.Session.Secret) < 32 {
		return fmt.Errorf("session secret is required and must have at least 32 characters")
	}

	if c.Session.Store != "cookie" && c.Session.Store != "filesystem" {
		return fmt.Errorf("invalid session store: %s (must be cookie or filesystem)", c.Session.Store)
	}

	if c.Session.Store == "filesystem" && c.Session.Dir == "" {
		return fmt.Errorf("session directory is required for the filesystem store")
	}

	if c.Storage.S3Enabled {
		if c.Storage.Bucket == "" {
			return fmt.Errorf("S3 bucket is required when S3 is enabled")
		}
		if c.Storage.Region == "" {
			return fmt.Errorf("S3 region is required when S3 is enabled")
		}
	}

	if c.Storage.LocalDir == "" {
		return fmt.Errorf("upload directory is required")
	}

	if c.Postal.BaseURL == "" {
		return fmt.Errorf("postal lookup URL is required")
	}

	if c.Postal.Timeout <= 0 {
		return fmt.Errorf("postal lookup timeout must be positive")
	}

	if len(c.Shipping.HomeState) != 2 {
		return fmt.Errorf("invalid shipping home state: %q", c.Shipping.HomeState)
	}

	for _, rate := range []decimal.Decimal{c.Shipping.HomeRate, c.Shipping.HighVolumeRate, c.Shipping.DefaultRate} {
		if rate.IsNegative() {
			return fmt.Errorf("shipping rates cannot be negative")
		}
	}

	if c.Timeouts.Store <= 0 || c.Timeouts.Reconcile <= 0 {
		return fmt.Errorf("store and reconcile timeouts must be positive")
	}

	return nil
}

func (c *Config) validateDatabase() error {
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("invalid database port: %d", c.Database.Port)
	}

	if c.Database.User == "" {
		return fmt.Errorf("database user is required")
	}

	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	if c.Database.MaxConnections < 1 {
		return fmt.Errorf("database max connections must be at least 1")
	}

	if c.Database.MinConnections < 1 {
		return fmt.Errorf("database min connections must be at least 1")
	}

	if c.Database.MinConnections > c.Database.MaxConnections {
		return fmt.Errorf("database min connections cannot exceed max connections")
	}

	if c.Database.StatementTimeout < 0 {
		return fmt.Errorf("database statement timeout cannot be negative")
	}

	return nil
}

func (c *Config) validateLogger() error {
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLogLevels[c.Logger.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Logger.Format != "json" && c.Logger.Format != "console" {
		return fmt.Errorf("invalid log format: %s (must be json or console)", c.Logger.Format)
	}

	if c.Logger.Output != "" && c.Logger.Output != "stdout" && c.Logger.Output != "stderr" {
		return fmt.Errorf("invalid log output: %s (must be stdout or stderr)", c.Logger.Output)
	}

	return nil
}

// ConnectionString returns the PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
	)
}

// Address returns the server address.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value.
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value.
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsDuration retrieves an environment variable as a duration ("5s", "250ms") or returns a default value.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvAsDecimal retrieves an environment variable as a decimal amount or returns a default value.
func getEnvAsDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvAsList retrieves a comma-separated environment variable or returns a default value.
func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.ToUpper(strings.TrimSpace(part)); part != "" {
			out = append(out, part)
		}
	}
	return out
}
