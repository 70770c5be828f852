package config

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the complete application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Auth0         Auth0Config
	Redis         RedisConfig
	Observability ObservabilityConfig
	Environment   string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
	TLS             struct {
		Enabled  bool
		CertFile string
		KeyFile  string
	}
}

// DatabaseConfig holds database configuration.
// When ConnectionString (from DATABASE_URL) is set, it takes precedence over individual fields.
// A ConnectionString that is not a postgres URL or DSN is treated as a SQLite file path.
type DatabaseConfig struct {
	ConnectionString string // From DATABASE_URL when set
	Host             string
	Port             int
	User             string
	Password         string
	Database         string
	SSLMode          string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
	AutoMigrate      bool
}

// Auth0Config holds the identity provider settings used to verify bearer tokens
// and to call the management API.
type Auth0Config struct {
	Domain     string   // Tenant domain without scheme (e.g. my-shop.eu.auth0.com)
	Audience   string   // API identifier expected in the aud claim
	Algorithms []string // Allowed signing algorithms
	Issuer     string   // Optional override; defaults to https://{Domain}/
	JWKSURL    string   // Optional override; defaults to https://{Domain}/.well-known/jwks.json
	Leeway     time.Duration

	JWKSCacheTTL   time.Duration
	JWKSMinRefresh time.Duration
	JWKSRetries    int
	HTTPTimeout    time.Duration

	// Management API (client credentials grant)
	ClientID     string
	ClientSecret string
	Connection   string
}

// RedisConfig holds the optional shared JWKS cache settings
type RedisConfig struct {
	URL       string
	KeyPrefix string
}

// ObservabilityConfig holds monitoring and logging configuration
type ObservabilityConfig struct {
	LogLevel       string
	LogFormat      string // json or text
	MetricsEnabled bool
}

// rsaAlgorithms lists the signing algorithms the key resolver can serve keys for.
var rsaAlgorithms = map[string]bool{
	"RS256": true,
	"RS384": true,
	"RS512": true,
	"PS256": true,
	"PS384": true,
	"PS512": true,
}

// New creates a new Config instance by loading environment variables
func New(ctx context.Context) (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getPort(),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			AllowedOrigins:  getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
			TLS: struct {
				Enabled  bool
				CertFile string
				KeyFile  string
			}{
				Enabled:  getEnvAsBool("TLS_ENABLED", false),
				CertFile: getEnv("TLS_CERT_FILE", "certs/cert.pem"),
				KeyFile:  getEnv("TLS_KEY_FILE", "certs/key.pem"),
			},
		},
		Database: loadDatabaseConfig(),
		Auth0: Auth0Config{
			Domain:         strings.TrimSuffix(strings.TrimPrefix(getEnv("AUTH0_DOMAIN", ""), "https://"), "/"),
			Audience:       getEnv("AUTH0_AUDIENCE", ""),
			Algorithms:     getEnvAsList("AUTH0_ALGORITHMS", []string{"RS256"}),
			Issuer:         getEnv("AUTH0_ISSUER", ""),
			JWKSURL:        getEnv("AUTH0_JWKS_URL", ""),
			Leeway:         getEnvAsDuration("AUTH0_LEEWAY", 0),
			JWKSCacheTTL:   getEnvAsDuration("AUTH0_JWKS_CACHE_TTL", 10*time.Minute),
			JWKSMinRefresh: getEnvAsDuration("AUTH0_JWKS_MIN_REFRESH", 30*time.Second),
			JWKSRetries:    getEnvAsInt("AUTH0_JWKS_RETRIES", 1),
			HTTPTimeout:    getEnvAsDuration("AUTH0_HTTP_TIMEOUT", 5*time.Second),
			ClientID:       getEnv("AUTH0_CLIENT_ID", ""),
			ClientSecret:   getEnv("AUTH0_CLIENT_SECRET", ""),
			Connection:     getEnv("AUTH0_CONNECTION", "Username-Password-Authentication"),
		},
		Redis: RedisConfig{
			URL:       getEnv("REDIS_URL", ""),
			KeyPrefix: getEnv("REDIS_KEY_PREFIX", "coffee-shop"),
		},
		Observability: ObservabilityConfig{
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			LogFormat:      getEnv("LOG_FORMAT", "json"),
			MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if all required configuration fields are set
func (c *Config) Validate() error {
	if c.Database.ConnectionString == "" && c.Database.Host == "" {
		return fmt.Errorf("database configuration required: set DATABASE_URL or DB_HOST")
	}
	if c.Database.ConnectionString == "" {
		if c.Database.User == "" {
			return fmt.Errorf("database user is required")
		}
		if c.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
	}

	if c.IsProduction() {
		if c.Auth0.Domain == "" {
			return fmt.Errorf("auth0 domain is required in production")
		}
		if c.Auth0.Audience == "" {
			return fmt.Errorf("auth0 audience is required in production")
		}
	}

	if len(c.Auth0.Algorithms) == 0 {
		return fmt.Errorf("at least one signing algorithm is required")
	}
	for _, alg := range c.Auth0.Algorithms {
		if !rsaAlgorithms[alg] {
			return fmt.Errorf("signing algorithm %q is not allowed: only RSA algorithms are supported", alg)
		}
	}

	if c.Auth0.ClientID != "" && c.Auth0.ClientSecret == "" {
		return fmt.Errorf("auth0 client secret is required when a client ID is set")
	}

	if c.Observability.LogLevel == "" {
		return fmt.Errorf("log level is required")
	}

	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

// AuthEnabled reports whether token verification can be configured
func (c *Auth0Config) AuthEnabled() bool {
	return c.Domain != "" && c.Audience != ""
}

// ManagementEnabled reports whether the management API credentials are present
func (c *Auth0Config) ManagementEnabled() bool {
	return c.Domain != "" && c.ClientID != "" && c.ClientSecret != ""
}

// IssuerURL returns the expected iss claim. Auth0 issuers carry a trailing slash.
func (c *Auth0Config) IssuerURL() string {
	if c.Issuer != "" {
		return c.Issuer
	}
	return fmt.Sprintf("https://%s/", c.Domain)
}

// JWKSEndpoint returns the URL of the published key set
func (c *Auth0Config) JWKSEndpoint() string {
	if c.JWKSURL != "" {
		return c.JWKSURL
	}
	return fmt.Sprintf("https://%s/.well-known/jwks.json", c.Domain)
}

// ManagementBaseURL returns the management API root (also its audience)
func (c *Auth0Config) ManagementBaseURL() string {
	return fmt.Sprintf("https://%s/api/v2/", c.Domain)
}

// TokenURL returns the OAuth2 token endpoint used for client credentials
func (c *Auth0Config) TokenURL() string {
	return fmt.Sprintf("https://%s/oauth/token", c.Domain)
}

// DSN returns the database connection string.
// Uses ConnectionString (from DATABASE_URL) when set; otherwise builds a postgres DSN from individual fields.
func (c *DatabaseConfig) DSN() string {
	if c.ConnectionString != "" {
		return c.ConnectionString
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// LogString returns a safe string for logging (no password). Parses ConnectionString when set.
func (c *DatabaseConfig) LogString() string {
	if c.ConnectionString != "" {
		u, err := url.Parse(c.ConnectionString)
		if err == nil && u.Host != "" {
			host := u.Hostname()
			port := u.Port()
			if port == "" {
				port = "5432"
			}
			db := strings.TrimPrefix(u.Path, "/")
			return fmt.Sprintf("host=%s port=%s database=%s", host, port, db)
		}
		if err == nil && u.Scheme == "" {
			return fmt.Sprintf("file=%s", c.ConnectionString)
		}
		return "host=<from DATABASE_URL>"
	}
	return fmt.Sprintf("host=%s port=%d database=%s", c.Host, c.Port, c.Database)
}

// loadDatabaseConfig loads database config from DATABASE_URL or DB_* env vars.
// With neither set the service falls back to a local SQLite file.
func loadDatabaseConfig() DatabaseConfig {
	cfg := DatabaseConfig{
		MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		AutoMigrate:     getEnvAsBool("DB_AUTO_MIGRATE", true),
	}

	if dbURL := getEnv("DATABASE_URL", ""); dbURL != "" {
		cfg.ConnectionString = dbURL
		return cfg
	}

	host := getEnv("DB_HOST", "")
	if host == "" {
		cfg.ConnectionString = "database.db"
		return cfg
	}

	cfg.Host = host
	cfg.Port = getEnvAsInt("DB_PORT", 5432)
	cfg.User = getEnv("DB_USER", "postgres")
	cfg.Password = getEnv("DB_PASSWORD", "")
	cfg.Database = getEnv("DB_NAME", "coffee_shop")
	cfg.SSLMode = getEnv("DB_SSLMODE", "disable")
	return cfg
}

// Address returns the HTTP server address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Helper functions

// getPort returns the server port from PORT or SERVER_PORT env vars (default: 8080)
func getPort() int {
	if value := os.Getenv("PORT"); value != "" {
		if p, err := strconv.Atoi(value); err == nil {
			return p
		}
	}
	if value := os.Getenv("SERVER_PORT"); value != "" {
		if p, err := strconv.Atoi(value); err == nil {
			return p
		}
	}
	return 8080
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsList splits a comma-separated value, dropping blanks
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var values []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			values = append(values, part)
		}
	}
	if len(values) == 0 {
		return defaultValue
	}
	return values
}
