package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Database struct {
	Host             string
	Port             string
	Username         string
	Password         string
	Name             string
	Schema           string
	LockTimeout      time.Duration
	StatementTimeout time.Duration
	MaxOpenConns     int
	MaxIdleConns     int
}

// DSN builds a pgx connection string. lock_timeout and statement_timeout are
// passed as runtime parameters so every session in the pool gets them.
func (d Database) DSN() string {
	q := url.Values{}
	q.Set("sslmode", "disable")
	q.Set("lock_timeout", strconv.FormatInt(d.LockTimeout.Milliseconds(), 10))
	q.Set("statement_timeout", strconv.FormatInt(d.StatementTimeout.Milliseconds(), 10))
	if d.Schema != "" {
		q.Set("search_path", d.Schema)
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.Username, d.Password),
		Host:     net.JoinHostPort(d.Host, d.Port),
		Path:     "/" + d.Name,
		RawQuery: q.Encode(),
	}
	return u.String()
}

type Config struct {
	Port           string
	AllowedOrigins []string
	LogLevel       string
	LogFormat      string

	OrderExpiry         time.Duration
	OrderExpiryInterval time.Duration

	DB Database
}

// Load reads the environment, after merging an optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	var err error

	cfg.Port = getenv("PORT", "8080")
	cfg.AllowedOrigins = splitCSV(getenv("CORS_ALLOWED_ORIGINS", "*"))
	cfg.LogLevel = getenv("LOG_LEVEL", "info")
	cfg.LogFormat = getenv("LOG_FORMAT", "json")

	if cfg.OrderExpiry, err = durationEnv("ORDER_EXPIRY", 30*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.OrderExpiryInterval, err = durationEnv("ORDER_EXPIRY_INTERVAL", time.Minute); err != nil {
		return Config{}, err
	}

	cfg.DB = Database{
		Host:     getenv("BLUEPRINT_DB_HOST", "localhost"),
		Port:     getenv("BLUEPRINT_DB_PORT", "5432"),
		Username: os.Getenv("BLUEPRINT_DB_USERNAME"),
		Password: os.Getenv("BLUEPRINT_DB_PASSWORD"),
		Name:     os.Getenv("BLUEPRINT_DB_DATABASE"),
		Schema:   os.Getenv("BLUEPRINT_DB_SCHEMA"),
	}
	if cfg.DB.LockTimeout, err = durationEnv("DB_LOCK_TIMEOUT", 5*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.DB.StatementTimeout, err = durationEnv("DB_STATEMENT_TIMEOUT", 30*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.DB.MaxOpenConns, err = intEnv("DB_MAX_OPEN_CONNS", 25); err != nil {
		return Config{}, err
	}
	if cfg.DB.MaxIdleConns, err = intEnv("DB_MAX_IDLE_CONNS", 10); err != nil {
		return Config{}, err
	}

	if cfg.DB.Name == "" {
		return Config{}, fmt.Errorf("BLUEPRINT_DB_DATABASE is required")
	}
	return cfg, nil
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must not be negative", key)
	}
	return d, nil
}

func intEnv(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
