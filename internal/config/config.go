package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

type Config struct {
	Port       string
	DBAdapter  string
	SQLiteFile string
	LogLevel   string

	// Token signing. Access and refresh tokens use independent secrets so a
	// leaked refresh secret cannot forge access tokens, and vice versa.
	JWTAccessSecret  string
	JWTRefreshSecret string
	AccessTokenTTL   time.Duration
	RefreshTokenTTL  time.Duration
	BcryptCost       int

	// Revocation cache backend: "memory" (single instance) or "redis".
	BlacklistBackend string
	RedisAddr        string
	RedisPassword    string
	RedisDB          int

	// Verification / reset mail delivery.
	MailBackend  string // "smtp" or "log"
	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	MailFrom     string
	// BaseURL is the externally reachable URL used in verification links.
	BaseURL string

	RateLimitPerMinute int

	// PostgreSQL connection settings
	PostgresDSN      string
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getduration(key, def string) (time.Duration, error) {
	v := getenv(key, def)
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %q", key, v)
	}
	return d, nil
}

// BuildPostgresDSN constructs a PostgreSQL DSN from individual components or returns the provided DSN
func (c *Config) BuildPostgresDSN() (string, error) {
	// If DSN is provided directly, use it
	if c.PostgresDSN != "" {
		return c.PostgresDSN, nil
	}

	if c.PostgresHost == "" {
		return "", errors.New("POSTGRES_HOST or POSTGRES_DSN must be set")
	}
	if c.PostgresUser == "" {
		return "", errors.New("POSTGRES_USER must be set")
	}
	if c.PostgresDB == "" {
		return "", errors.New("POSTGRES_DB must be set")
	}

	port := c.PostgresPort
	if port == "" {
		port = "5432"
	}

	sslMode := c.PostgresSSLMode
	if sslMode == "" {
		sslMode = "disable" // Default to disable for local development
	}

	dsn := fmt.Sprintf("host=%s port=%s user=%s dbname=%s sslmode=%s",
		c.PostgresHost, port, c.PostgresUser, c.PostgresDB, sslMode)

	if c.PostgresPassword != "" {
		dsn += " password=" + c.PostgresPassword
	}

	return dsn, nil
}

func New() (*Config, error) {
	c := &Config{
		Port:       getenv("PORT", "3000"),
		DBAdapter:  getenv("DB_ADAPTER", "postgres"),
		SQLiteFile: getenv("SQLITE_FILE", "./data/tasknest.db"),
		LogLevel:   getenv("LOG_LEVEL", "info"),

		JWTAccessSecret:  getenv("JWT_SIGN", "change-me"),
		JWTRefreshSecret: getenv("JWT_REFRESH_SIGN", "change-me-too"),

		BlacklistBackend: getenv("BLACKLIST_BACKEND", "memory"),
		RedisAddr:        getenv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:    getenv("REDIS_PASSWORD", ""),

		MailBackend:  getenv("MAIL_BACKEND", "log"),
		SMTPHost:     getenv("SMTP_HOST", ""),
		SMTPPort:     getenv("SMTP_PORT", "587"),
		SMTPUsername: getenv("SMTP_USERNAME", ""),
		SMTPPassword: getenv("SMTP_PASSWORD", ""),
		MailFrom:     getenv("MAIL_FROM", "no-reply@tasknest.local"),
		BaseURL:      getenv("BASE_URL", "http://localhost:3000"),

		// PostgreSQL settings
		PostgresDSN:      getenv("POSTGRES_DSN", ""),
		PostgresHost:     getenv("POSTGRES_HOST", getenv("DB_HOST", "localhost")),
		PostgresPort:     getenv("POSTGRES_PORT", getenv("DB_PORT", "5432")),
		PostgresUser:     getenv("POSTGRES_USER", getenv("DB_USER", "tasknest")),
		PostgresPassword: getenv("POSTGRES_PASSWORD", getenv("DB_PASSWORD", "tasknest")),
		PostgresDB:       getenv("POSTGRES_DB", getenv("DB_NAME", "tasknest")),
		PostgresSSLMode:  getenv("POSTGRES_SSLMODE", getenv("DB_SSLMODE", "disable")),
	}

	var err error
	if c.AccessTokenTTL, err = getduration("ACCESS_TOKEN_EXPIRATION", "1h"); err != nil {
		return nil, err
	}
	if c.RefreshTokenTTL, err = getduration("REFRESH_TOKEN_EXPIRATION", "168h"); err != nil {
		return nil, err
	}
	if c.RefreshTokenTTL < c.AccessTokenTTL {
		return nil, errors.New("REFRESH_TOKEN_EXPIRATION must not be shorter than ACCESS_TOKEN_EXPIRATION")
	}

	cost := getenv("BCRYPT_COST", strconv.Itoa(bcrypt.DefaultCost))
	c.BcryptCost, err = strconv.Atoi(cost)
	if err != nil || c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return nil, fmt.Errorf("invalid BCRYPT_COST: %s", cost)
	}

	rl := getenv("RATE_LIMIT_PER_MINUTE", "60")
	c.RateLimitPerMinute, err = strconv.Atoi(rl)
	if err != nil || c.RateLimitPerMinute <= 0 {
		return nil, fmt.Errorf("invalid RATE_LIMIT_PER_MINUTE: %s", rl)
	}

	if db := getenv("REDIS_DB", "0"); db != "" {
		c.RedisDB, err = strconv.Atoi(db)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_DB: %s", db)
		}
	}

	switch c.DBAdapter {
	case "postgres":
		dsn, err := c.BuildPostgresDSN()
		if err != nil {
			return nil, fmt.Errorf("postgres configuration error: %w", err)
		}
		c.PostgresDSN = dsn
	case "sqlite":
		if c.SQLiteFile == "" {
			return nil, errors.New("SQLITE_FILE must be set when DB_ADAPTER=sqlite")
		}
	case "memory":
		// nothing to validate
	default:
		return nil, fmt.Errorf("unsupported DB_ADAPTER: %s (supported: postgres, sqlite, memory)", c.DBAdapter)
	}

	switch c.BlacklistBackend {
	case "memory", "redis":
	default:
		return nil, fmt.Errorf("unsupported BLACKLIST_BACKEND: %s (supported: memory, redis)", c.BlacklistBackend)
	}

	switch c.MailBackend {
	case "log":
	case "smtp":
		if c.SMTPHost == "" {
			return nil, errors.New("SMTP_HOST must be set when MAIL_BACKEND=smtp")
		}
	default:
		return nil, fmt.Errorf("unsupported MAIL_BACKEND: %s (supported: smtp, log)", c.MailBackend)
	}

	// Refuse default secrets outside development.
	env := strings.ToLower(getenv("APP_ENV", getenv("ENV", "")))
	if env == "production" || env == "prod" {
		if c.JWTAccessSecret == "" || c.JWTAccessSecret == "change-me" {
			return nil, errors.New("JWT_SIGN must be set in production")
		}
		if c.JWTRefreshSecret == "" || c.JWTRefreshSecret == "change-me-too" {
			return nil, errors.New("JWT_REFRESH_SIGN must be set in production")
		}
		if c.JWTAccessSecret == c.JWTRefreshSecret {
			return nil, errors.New("JWT_SIGN and JWT_REFRESH_SIGN must differ")
		}
	}

	if _, err := strconv.Atoi(c.Port); err != nil {
		return nil, fmt.Errorf("invalid PORT: %s", c.Port)
	}

	return c, nil
}
