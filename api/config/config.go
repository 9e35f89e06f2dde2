package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// Config is everything the server reads from the environment at startup.
type Config struct {
	Env      string
	Port     string
	LogLevel string

	// DBDriver is "postgres" (default) or "sqlite" for local development.
	DBDriver    string
	DatabaseURL string
	DB          PostgresConfig

	// JWTSecret signs access tokens. Empty means a key is generated at startup.
	JWTSecret []byte
	TokenTTL  time.Duration

	RedisURL      string
	RedisAddr     string
	RedisUsername string
	RedisPassword string

	CORSOrigins []string

	SeedDemo bool
}

type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

// ConnectionInfo builds a libpq style DSN from the individual settings.
func (pc PostgresConfig) ConnectionInfo() string {
	if pc.Password == "" {
		return fmt.Sprintf("host=%s port=%s user=%s dbname=%s sslmode=disable TimeZone=UTC", pc.Host, pc.Port, pc.User, pc.Name)
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC", pc.Host, pc.Port, pc.User, pc.Password, pc.Name)
}

const (
	defaultPort     = "8888"
	defaultTokenTTL = 3 * time.Hour
)

var defaultCORSOrigins = []string{"http://localhost:3000"}

func (c Config) IsProd() bool {
	return strings.EqualFold(c.Env, "production")
}

// DSN returns the data source name for the configured driver. In production
// DATABASE_URL wins and sslmode=require is appended when missing.
func (c Config) DSN() (string, error) {
	if c.DBDriver == "sqlite" {
		if c.DB.Name == "" {
			return "board.db", nil
		}
		return c.DB.Name, nil
	}
	if c.IsProd() {
		dsn := c.DatabaseURL
		if dsn == "" {
			return "", errors.New("config: DATABASE_URL is required in production")
		}
		if !strings.Contains(dsn, "sslmode=") {
			if strings.Contains(dsn, "?") {
				dsn += "&sslmode=require"
			} else {
				dsn += "?sslmode=require"
			}
		}
		return dsn, nil
	}
	if c.DatabaseURL != "" {
		return c.DatabaseURL, nil
	}
	return c.DB.ConnectionInfo(), nil
}

// Load reads the process environment. Call godotenv before this if a .env
// file should be honored.
func Load() (Config, error) {
	cfg := Config{
		Env:         "development",
		Port:        defaultPort,
		LogLevel:    "info",
		DBDriver:    "postgres",
		TokenTTL:    defaultTokenTTL,
		CORSOrigins: defaultCORSOrigins,
		DB: PostgresConfig{
			Host: "localhost",
			Port: "5432",
			User: "postgres",
			Name: "board",
		},
	}

	if v, ok := lookupNonEmptyEnv("APP_ENV"); ok {
		cfg.Env = v
	}
	if v, ok := lookupNonEmptyEnv("PORT"); ok {
		cfg.Port = v
	} else if v, ok := lookupNonEmptyEnv("API_PORT"); ok {
		cfg.Port = v
	}
	if v, ok := lookupNonEmptyEnv("LOG_LEVEL"); ok {
		cfg.LogLevel = v
	}

	if v, ok := lookupNonEmptyEnv("DB_DRIVER"); ok {
		v = strings.ToLower(v)
		if v != "postgres" && v != "sqlite" {
			return Config{}, fmt.Errorf("config: unsupported DB_DRIVER %q", v)
		}
		cfg.DBDriver = v
	}
	if v, ok := lookupNonEmptyEnv("DATABASE_URL"); ok {
		cfg.DatabaseURL = v
	}
	if v, ok := lookupNonEmptyEnv("DB_HOST"); ok {
		cfg.DB.Host = v
	}
	if v, ok := lookupNonEmptyEnv("DB_PORT"); ok {
		cfg.DB.Port = v
	}
	if v, ok := lookupNonEmptyEnv("DB_USER"); ok {
		cfg.DB.User = v
	}
	if v, ok := lookupNonEmptyEnv("DB_PASSWORD"); ok {
		cfg.DB.Password = v
	}
	if v, ok := lookupNonEmptyEnv("DB_NAME"); ok {
		cfg.DB.Name = v
	}

	if v, ok := lookupNonEmptyEnv("JWT_SECRET"); ok {
		cfg.JWTSecret = []byte(v)
	}
	if v, ok := lookupNonEmptyEnv("TOKEN_TTL"); ok {
		ttl, err := time.ParseDuration(v)
		if err != nil || ttl <= 0 {
			return Config{}, fmt.Errorf("config: invalid TOKEN_TTL %q", v)
		}
		cfg.TokenTTL = ttl
	}

	if v, ok := lookupNonEmptyEnv("REDIS_URL"); ok {
		cfg.RedisURL = v
	}
	if v, ok := lookupNonEmptyEnv("REDIS_ADDR"); ok {
		cfg.RedisAddr = v
	}
	cfg.RedisUsername = os.Getenv("REDIS_USERNAME")
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")

	if v, ok := lookupNonEmptyEnv("CORS_ORIGINS"); ok {
		cfg.CORSOrigins = splitCSV(v)
	}
	if v, ok := lookupNonEmptyEnv("SEED_DEMO"); ok {
		cfg.SeedDemo = strings.EqualFold(v, "true") || v == "1"
	}

	if cfg.IsProd() && cfg.DBDriver == "postgres" && cfg.DatabaseURL == "" {
		return Config{}, errors.New("config: DATABASE_URL is required in production")
	}
	return cfg, nil
}

func lookupNonEmptyEnv(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return "", false
	}
	return trimmed, true
}

func splitCSV(input string) []string {
	parts := strings.Split(input, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
