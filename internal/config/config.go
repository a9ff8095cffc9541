package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds the application configuration.
type Config struct {
	Env         string `envconfig:"ENV" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"debug"`
	LogEncoding string `envconfig:"LOG_ENCODING" default:"json"`
	ServerPort  string `envconfig:"SERVER_PORT" default:"8080"`

	// Catalog & draw
	CatalogPath      string `envconfig:"CATALOG_PATH"` // empty = embedded catalog
	DrawCount        int    `envconfig:"DRAW_COUNT" default:"3"`
	AnimationProfile string `envconfig:"ANIMATION_PROFILE" default:"standard"`

	// Identity provider: firebase | local
	IdentityProvider        string        `envconfig:"IDENTITY_PROVIDER" default:"local"`
	FirebaseProjectID       string        `envconfig:"FIREBASE_PROJECT_ID"`
	FirebaseCredentialsPath string        `envconfig:"FIREBASE_CREDENTIALS_PATH"`
	SessionTTL              time.Duration `envconfig:"SESSION_TTL" default:"120h"`
	CookieSecure            bool          `envconfig:"COOKIE_SECURE" default:"false"`
	// Secrets, read from files, never from env
	FirebaseAPIKey string
	SessionSecret  string

	// Claim store: firestore | postgres | sqlite | memory
	ClaimStore string `envconfig:"CLAIM_STORE" default:"memory"`
	SQLitePath string `envconfig:"SQLITE_PATH" default:"./data/cardami.db"`

	// Database (PostgreSQL claim store)
	DBHost        string        `envconfig:"DB_HOST" default:"localhost"`
	DBPort        string        `envconfig:"DB_PORT" default:"5432"`
	DBUser        string        `envconfig:"DB_USER" default:"cardami"`
	DBName        string        `envconfig:"DB_NAME" default:"cardami"`
	DBSSLMode     string        `envconfig:"DB_SSL_MODE" default:"disable"`
	DBMaxConns    int           `envconfig:"DB_MAX_CONNS" default:"10"`
	DBIdleTimeout time.Duration `envconfig:"DB_IDLE_TIMEOUT" default:"5m"`
	DBPassword    string

	// View state: redis | memory
	ViewStore     string        `envconfig:"VIEW_STORE" default:"memory"`
	ViewStateTTL  time.Duration `envconfig:"VIEW_STATE_TTL" default:"2h"`
	RedisAddr     string        `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0"`
	RedisPassword string

	// Claim events (optional)
	RabbitMQURL string `envconfig:"RABBITMQ_URL"`

	// Rate limit for /auth endpoints, requests per minute per IP
	AuthRateLimit uint `envconfig:"AUTH_RATE_LIMIT" default:"10"`

	// CORS Settings
	CORSAllowedOrigins string `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

// GetAllowedOrigins splits the CORSAllowedOrigins string into a slice.
func (c *Config) GetAllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}
	return strings.Split(strings.ReplaceAll(c.CORSAllowedOrigins, " ", ""), ",")
}

// IsDevelopment reports whether the service runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// PostgresDSN builds the connection string for the postgres claim store.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}

// Validate checks cross-field constraints that envconfig cannot express.
func (c *Config) Validate() error {
	if c.DrawCount <= 0 {
		return fmt.Errorf("DRAW_COUNT must be > 0, got %d", c.DrawCount)
	}
	switch c.IdentityProvider {
	case "firebase":
		if c.FirebaseAPIKey == "" {
			return fmt.Errorf("firebase identity provider requires the firebase_api_key secret")
		}
	case "local":
		if c.SessionSecret == "" {
			return fmt.Errorf("local identity provider requires the session_secret secret")
		}
	default:
		return fmt.Errorf("unknown IDENTITY_PROVIDER %q", c.IdentityProvider)
	}
	switch c.ClaimStore {
	case "firestore":
		if c.IdentityProvider != "firebase" && c.FirebaseCredentialsPath == "" && c.FirebaseProjectID == "" {
			return fmt.Errorf("firestore claim store requires FIREBASE_PROJECT_ID or FIREBASE_CREDENTIALS_PATH")
		}
	case "postgres", "sqlite", "memory":
	default:
		return fmt.Errorf("unknown CLAIM_STORE %q", c.ClaimStore)
	}
	switch c.ViewStore {
	case "redis", "memory":
	default:
		return fmt.Errorf("unknown VIEW_STORE %q", c.ViewStore)
	}
	// Firebase session cookies live between 5 minutes and 14 days.
	if c.SessionTTL < 5*time.Minute || c.SessionTTL > 14*24*time.Hour {
		return fmt.Errorf("SESSION_TTL must be between 5m and 336h, got %s", c.SessionTTL)
	}
	return nil
}

// LoadConfig loads configuration from environment variables and secrets.
func LoadConfig(envFilePath string) (*Config, error) {
	if _, err := os.Stat(envFilePath); err == nil {
		if err := godotenv.Load(envFilePath); err != nil {
			log.Printf("Warning: Could not load %s file: %v", envFilePath, err)
		} else {
			log.Printf("Loaded configuration from %s", envFilePath)
		}
	} else if !os.IsNotExist(err) {
		log.Printf("Warning: Error checking %s file: %v", envFilePath, err)
	}

	var cfg Config
	// Non-secret settings from the environment
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("error processing env vars: %w", err)
	}

	var loadErr error
	switch cfg.IdentityProvider {
	case "firebase":
		cfg.FirebaseAPIKey, loadErr = ReadSecret("firebase_api_key")
	case "local":
		cfg.SessionSecret, loadErr = ReadSecret("session_secret")
	}
	if loadErr != nil {
		return nil, loadErr
	}

	if cfg.ClaimStore == "postgres" {
		cfg.DBPassword, loadErr = ReadSecret("db_password")
		if loadErr != nil {
			return nil, loadErr
		}
	}

	// Optional secrets
	if redisPass, err := ReadSecret("redis_password"); err == nil {
		cfg.RedisPassword = redisPass
	} else {
		log.Printf("Optional secret 'redis_password' not found or failed to read: %v. Assuming no password.", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log.Println("Configuration loaded successfully (secrets read from files).")
	return &cfg, nil
}
