package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorePostgres = "postgres"
	StoreRedis    = "redis"
	StoreSQLite   = "sqlite"
	StoreMemory   = "memory"
)

type Config struct {
	Port string

	TelegramBotToken string
	WebhookURL       string
	HistoryPage      int

	InferenceURL     string
	InferenceTimeout time.Duration
	GeminiAPIKey     string
	GeminiModel      string

	Store       string
	DatabaseURL string
	RedisURL    string
	SQLitePath  string

	LogLevel string
}

// Load reads the environment, with values from ./.env when the file exists.
// Variables already set in the environment win over the file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	timeout, err := getEnvDuration("INFERENCE_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, err
	}
	page, err := getEnvInt("HISTORY_PAGE", 10)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port: getEnv("PORT", "8080"),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		WebhookURL:       getEnv("WEBHOOK_URL", ""),
		HistoryPage:      page,

		InferenceURL:     getEnv("INFERENCE_URL", ""),
		InferenceTimeout: timeout,
		GeminiAPIKey:     getEnv("GEMINI_API_KEY", ""),
		GeminiModel:      getEnv("GEMINI_MODEL", "gemini-2.5-flash"),

		Store:       strings.ToLower(getEnv("STORE", StorePostgres)),
		DatabaseURL: resolveDSN(),
		RedisURL:    getEnv("REDIS_URL", "redis://localhost:6379/0"),
		SQLitePath:  getEnv("SQLITE_PATH", "pipartner.db"),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	switch cfg.Store {
	case StorePostgres, StoreRedis, StoreSQLite, StoreMemory:
	default:
		return nil, fmt.Errorf("config: unknown STORE %q", cfg.Store)
	}
	if cfg.HistoryPage <= 0 {
		return nil, errors.New("config: HISTORY_PAGE must be positive")
	}
	return cfg, nil
}

// RequireSolver checks that some inference transport is configured.
func (c *Config) RequireSolver() error {
	if c.InferenceURL == "" && c.GeminiAPIKey == "" {
		return errors.New("config: set INFERENCE_URL or GEMINI_API_KEY")
	}
	return nil
}

func (c *Config) RequireBot() error {
	if c.TelegramBotToken == "" {
		return errors.New("config: missing required env TELEGRAM_BOT_TOKEN")
	}
	return c.RequireSolver()
}

func getEnv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getEnvInt(k string, def int) (int, error) {
	v := getEnv(k, "")
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", k, err)
	}
	return n, nil
}

// getEnvDuration accepts Go durations ("90s") or a bare number of seconds.
func getEnvDuration(k string, def time.Duration) (time.Duration, error) {
	v := getEnv(k, "")
	if v == "" {
		return def, nil
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", k, err)
	}
	return d, nil
}

// resolveDSN prefers DATABASE_URL, else builds one from POSTGRES_* / PG* vars.
func resolveDSN() string {
	if v := getEnv("DATABASE_URL", ""); v != "" {
		return v
	}
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(getEnv("POSTGRES_USER", "pipartner"), os.Getenv("POSTGRES_PASSWORD")),
		Host:     net.JoinHostPort(getEnv("PGHOST", "db"), getEnv("PGPORT", "5432")),
		Path:     "/" + getEnv("POSTGRES_DB", "pipartner"),
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

// SafeDSNSummary describes a DSN without its password.
func SafeDSNSummary(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "dsn: parse error"
	}
	user := u.User.Username()
	host := u.Host
	port := ""
	if h, p, err := net.SplitHostPort(u.Host); err == nil {
		host, port = h, p
	}
	db := strings.TrimPrefix(u.Path, "/")
	if port == "" {
		return fmt.Sprintf("host=%s db=%s user=%s", host, db, user)
	}
	return fmt.Sprintf("host=%s port=%s db=%s user=%s", host, port, db, user)
}
