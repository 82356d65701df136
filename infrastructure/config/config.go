package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store kinds accepted in STORE_URL
const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StoreDynamoDB = "dynamodb"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress   string
	Environment     string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	// Store configuration
	StoreURL string
	Store    StoreConfig

	// Import configuration
	ImportFile    string
	ImportOnStart bool
	ImportStrict  bool
	ImportReset   bool

	// Lambda configuration
	IsLambda bool

	// Logging
	LogLevel string

	// Feature flags
	EnableMetrics bool
	EnableCORS    bool
	CORSOrigins   []string

	// Circuit breaker around the store
	EnableBreaker       bool
	BreakerFailureRatio float64
	BreakerTimeout      time.Duration
}

// StoreConfig is the parsed form of STORE_URL
type StoreConfig struct {
	Kind string
	// Path is the database file for sqlite
	Path string
	// Table, Region and Endpoint apply to dynamodb
	Table    string
	Region   string
	Endpoint string
}

// LoadConfig loads configuration from environment variables. A .env file in
// the working directory is read first when present; real environment
// variables take precedence over it.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ServerAddress:   getEnv("SERVER_ADDRESS", ":8080"),
		Environment:     getEnv("ENVIRONMENT", "development"),
		ReadTimeout:     time.Duration(getEnvInt("READ_TIMEOUT_SECONDS", 15)) * time.Second,
		WriteTimeout:    time.Duration(getEnvInt("WRITE_TIMEOUT_SECONDS", 15)) * time.Second,
		ShutdownTimeout: time.Duration(getEnvInt("SHUTDOWN_TIMEOUT_SECONDS", 30)) * time.Second,

		StoreURL: getEnv("STORE_URL", "memory://"),

		ImportFile:    getEnv("IMPORT_FILE", "./sample.yaml"),
		ImportOnStart: getEnvBool("IMPORT_ON_START", true),
		ImportStrict:  getEnvBool("IMPORT_STRICT", true),
		ImportReset:   getEnvBool("IMPORT_RESET", false),

		IsLambda: getEnv("AWS_LAMBDA_FUNCTION_NAME", "") != "",

		LogLevel:      getEnv("LOG_LEVEL", "info"),
		EnableMetrics: getEnvBool("ENABLE_METRICS", true),
		EnableCORS:    getEnvBool("ENABLE_CORS", true),
		CORSOrigins:   getEnvList("CORS_ORIGINS"),

		EnableBreaker:       getEnvBool("ENABLE_BREAKER", false),
		BreakerFailureRatio: getEnvFloat("BREAKER_FAILURE_RATIO", 0.6),
		BreakerTimeout:      time.Duration(getEnvInt("BREAKER_TIMEOUT_SECONDS", 60)) * time.Second,
	}

	store, err := ParseStoreURL(cfg.StoreURL)
	if err != nil {
		return nil, err
	}
	if store.Region == "" {
		store.Region = getEnv("AWS_REGION", "us-west-2")
	}
	cfg.Store = store

	// Validate required configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ParseStoreURL parses memory://, sqlite://<path> and
// dynamodb://<table>?region=<r>&endpoint=<url>
func ParseStoreURL(raw string) (StoreConfig, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return StoreConfig{}, fmt.Errorf("invalid STORE_URL %q: %w", raw, err)
	}

	switch u.Scheme {
	case StoreMemory:
		return StoreConfig{Kind: StoreMemory}, nil

	case StoreSQLite:
		path := u.Host + u.Path
		if path == "" {
			return StoreConfig{}, fmt.Errorf("STORE_URL %q is missing the database path", raw)
		}
		return StoreConfig{Kind: StoreSQLite, Path: path}, nil

	case StoreDynamoDB:
		if u.Host == "" {
			return StoreConfig{}, fmt.Errorf("STORE_URL %q is missing the table name", raw)
		}
		q := u.Query()
		return StoreConfig{
			Kind:     StoreDynamoDB,
			Table:    u.Host,
			Region:   q.Get("region"),
			Endpoint: q.Get("endpoint"),
		}, nil

	default:
		return StoreConfig{}, fmt.Errorf("unsupported STORE_URL scheme %q (want memory, sqlite or dynamodb)", u.Scheme)
	}
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	if c.ImportOnStart && c.ImportFile == "" {
		return fmt.Errorf("IMPORT_FILE is required when IMPORT_ON_START is set")
	}
	if c.BreakerFailureRatio <= 0 || c.BreakerFailureRatio > 1 {
		return fmt.Errorf("BREAKER_FAILURE_RATIO must be in (0, 1], got %v", c.BreakerFailureRatio)
	}
	if c.IsProduction() && c.Store.Kind == StoreMemory {
		return fmt.Errorf("STORE_URL must name a persistent store in production")
	}
	return nil
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
	value := os.Getenv(key)
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

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated variable, dropping blanks
func getEnvList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			result = append(result, p)
		}
	}
	return result
}
