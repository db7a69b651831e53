package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	StoreDynamoDB = "dynamodb"
	StoreBadger   = "badger"

	CounterStore = "store"
	CounterRedis = "redis"
)

// Config holds all application configuration
type Config struct {
	// Application metadata
	ProjectName string
	Version     string
	BuildTime   string
	Environment string

	// Server configuration
	ServerAddress      string
	CORSAllowedOrigins []string

	// Storage
	Region           string
	TableName        string
	StoreBackend     string
	BadgerPath       string
	DynamoDBEndpoint string

	Cognito   CognitoConfig
	RateLimit RateLimitConfig
	Demo      DemoConfig
	Theme     ThemeConfig

	OTLPEndpoint string
}

// CognitoConfig describes the hosted UI app client
type CognitoConfig struct {
	Audience     string
	Domain       string
	RedirectURI  string
	Issuer       string
	TokenTimeout time.Duration

	// JWKSRefreshInterval spaces out key refetches caused by unknown kids
	JWKSRefreshInterval time.Duration
}

// RateLimitConfig holds the per-minute budgets for each client tier
type RateLimitConfig struct {
	Enabled          bool
	Backend          string
	RedisAddr        string
	ReadPerMin       int
	WritePerMin      int
	DemoReadPerMin   int
	DemoWritePerMin  int
	TTL              time.Duration
	ExcludedPrefixes []string
}

type DemoConfig struct {
	SessionCookieName string
	UserSub           string
	ResetCooldown     time.Duration
}

type ThemeConfig struct {
	Default          string
	Themes           []string
	ExcludedPrefixes []string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		ProjectName: getEnv("PROJECT_NAME", "ElbieFit"),
		Version:     getEnv("APP_VERSION", "dev"),
		BuildTime:   getEnv("BUILD_TIME", "unknown"),
		Environment: getEnv("ENV", "development"),

		ServerAddress:      getEnv("SERVER_ADDRESS", ":8080"),
		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", nil),

		Region:           getEnv("REGION", "eu-west-2"),
		TableName:        getEnv("TABLE_NAME", getEnv("DDB_TABLE_NAME", "elbiefit")),
		StoreBackend:     strings.ToLower(getEnv("STORE_BACKEND", StoreDynamoDB)),
		BadgerPath:       getEnv("BADGER_PATH", ""),
		DynamoDBEndpoint: getEnv("DYNAMODB_ENDPOINT", ""),

		Cognito: CognitoConfig{
			Audience:     getEnv("COGNITO_AUDIENCE", ""),
			Domain:       getEnv("COGNITO_DOMAIN", ""),
			RedirectURI:  getEnv("COGNITO_REDIRECT_URI", ""),
			Issuer:       getEnv("COGNITO_ISSUER", ""),
			TokenTimeout: getEnvSeconds("AUTH_TOKEN_TIMEOUT_SECONDS", 5),

			JWKSRefreshInterval: getEnvSeconds("AUTH_JWKS_REFRESH_SECONDS", 60),
		},

		RateLimit: RateLimitConfig{
			Enabled:          getEnvBool("RATE_LIMIT_ENABLED", true),
			Backend:          strings.ToLower(getEnv("RATE_LIMIT_BACKEND", CounterStore)),
			RedisAddr:        getEnv("REDIS_ADDR", "localhost:6379"),
			ReadPerMin:       getEnvInt("RATE_LIMIT_READ_PER_MIN", 120),
			WritePerMin:      getEnvInt("RATE_LIMIT_WRITE_PER_MIN", 30),
			DemoReadPerMin:   getEnvInt("RATE_LIMIT_DEMO_READ_PER_MIN", 60),
			DemoWritePerMin:  getEnvInt("RATE_LIMIT_DEMO_WRITE_PER_MIN", 10),
			TTL:              getEnvSeconds("RATE_LIMIT_TTL_SECONDS", 180),
			ExcludedPrefixes: getEnvList("RATE_LIMIT_EXCLUDED_PREFIXES", []string{"/static", "/healthz", "/meta", "/metrics", "/favicon.ico"}),
		},

		Demo: DemoConfig{
			SessionCookieName: getEnv("DEMO_SESSION_COOKIE_NAME", "demo_session_id"),
			UserSub:           getEnv("DEMO_USER_SUB", ""),
			ResetCooldown:     getEnvSeconds("DEMO_RESET_COOLDOWN_SECONDS", 300),
		},

		Theme: ThemeConfig{
			Default:          getEnv("DEFAULT_THEME", "light"),
			Themes:           getEnvList("THEMES", []string{"light", "dark", "system"}),
			ExcludedPrefixes: getEnvList("THEME_EXCLUDED_PREFIXES", []string{"/static", "/healthz", "/meta", "/metrics"}),
		},

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}

	// Validate required configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case StoreDynamoDB, StoreBadger:
	default:
		return fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", StoreDynamoDB, StoreBadger, c.StoreBackend)
	}
	switch c.RateLimit.Backend {
	case CounterStore, CounterRedis:
	default:
		return fmt.Errorf("RATE_LIMIT_BACKEND must be %q or %q, got %q", CounterStore, CounterRedis, c.RateLimit.Backend)
	}

	rl := c.RateLimit
	if rl.ReadPerMin <= 0 || rl.WritePerMin <= 0 || rl.DemoReadPerMin <= 0 || rl.DemoWritePerMin <= 0 {
		return fmt.Errorf("rate limits must be positive")
	}
	if rl.TTL < time.Minute {
		return fmt.Errorf("RATE_LIMIT_TTL_SECONDS must cover at least one window")
	}
	if c.Demo.ResetCooldown < 0 {
		return fmt.Errorf("DEMO_RESET_COOLDOWN_SECONDS must not be negative")
	}
	if !c.IsTheme(c.Theme.Default) {
		return fmt.Errorf("DEFAULT_THEME %q is not one of THEMES", c.Theme.Default)
	}

	if c.IsProduction() {
		if c.TableName == "" {
			return fmt.Errorf("TABLE_NAME is required")
		}
		if c.Cognito.Audience == "" || c.Cognito.Domain == "" || c.Cognito.RedirectURI == "" || c.Cognito.Issuer == "" {
			return fmt.Errorf("COGNITO_AUDIENCE, COGNITO_DOMAIN, COGNITO_REDIRECT_URI and COGNITO_ISSUER are required in production")
		}
	}

	return nil
}

// IsTheme reports whether name is one of the configured themes
func (c *Config) IsTheme(name string) bool {
	for _, t := range c.Theme.Themes {
		if t == name {
			return true
		}
	}
	return false
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := strings.ToLower(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvSeconds(key string, defaultValue int) time.Duration {
	return time.Duration(getEnvInt(key, defaultValue)) * time.Second
}

// getEnvList splits a comma separated variable, dropping blanks
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
