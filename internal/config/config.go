package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	TCPAddr          string
	HTTPPort         string
	MoveTimeout      time.Duration
	WriteTimeout     time.Duration
	HandshakeTimeout time.Duration

	DatabaseDriver       string
	DatabaseURL          string
	DBMaxOpenConns       int
	DBMaxIdleConns       int
	DBConnMaxLifetimeMin int

	RedisURL         string
	RedisPassword    string
	RedisDB          int
	LiveSessionTTL   time.Duration
	HistoryRetention int

	BotSeed        int64
	LogLevel       string
	LogPretty      bool
	AllowedOrigins []string
}

// LoadConfig reads the server settings from the environment. Values that do
// not parse fall back to their defaults and are reported in the returned
// error; the Config is always usable.
func LoadConfig() (*Config, error) {
	var env envReader

	allowedOrigins := []string{"http://localhost:5173"}
	for _, origin := range strings.Split(GetEnv("ALLOWED_ORIGINS", ""), ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			allowedOrigins = append(allowedOrigins, trimmed)
		}
	}

	driver := GetEnv("DATABASE_DRIVER", "pgx")
	dbURL := GetEnv("DATABASE_URL", GetEnv("DATABASE_URI", ""))
	// PgBouncer compatibility for the pgx driver
	if dbURL != "" && driver == "pgx" {
		if u, err := url.Parse(dbURL); err == nil {
			q := u.Query()
			if q.Get("default_query_exec_mode") == "" {
				q.Set("default_query_exec_mode", "simple_protocol")
				u.RawQuery = q.Encode()
				dbURL = u.String()
			}
		}
	}

	cfg := &Config{
		TCPAddr:          GetEnv("TCP_ADDR", ":8189"),
		HTTPPort:         GetEnv("HTTP_PORT", "8080"),
		MoveTimeout:      env.Seconds("MOVE_TIMEOUT_SECONDS", 120),
		WriteTimeout:     env.Seconds("WRITE_TIMEOUT_SECONDS", 10),
		HandshakeTimeout: env.Seconds("HANDSHAKE_TIMEOUT_SECONDS", 30),

		DatabaseDriver:       driver,
		DatabaseURL:          dbURL,
		DBMaxOpenConns:       env.Int("DB_MAX_OPEN_CONNS", 25),
		DBMaxIdleConns:       env.Int("DB_MAX_IDLE_CONNS", 25),
		DBConnMaxLifetimeMin: env.Int("DB_CONN_MAX_LIFETIME_MINUTES", 5),

		RedisURL:         GetEnv("REDIS_URL", ""),
		RedisPassword:    GetEnv("REDIS_PASSWORD", ""),
		RedisDB:          env.Int("REDIS_DB", 0),
		LiveSessionTTL:   time.Duration(env.Int("LIVE_SESSION_TTL_MINUTES", 120)) * time.Minute,
		HistoryRetention: env.Int("HISTORY_RETENTION_DAYS", 30),

		BotSeed:        int64(env.Int("BOT_SEED", 0)),
		LogLevel:       GetEnv("LOG_LEVEL", "info"),
		LogPretty:      env.Bool("LOG_PRETTY", false),
		AllowedOrigins: allowedOrigins,
	}
	return cfg, errors.Join(env.errs...)
}

func GetEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// envReader parses typed variables and remembers the ones it had to replace
// with a default.
type envReader struct {
	errs []error
}

func (r *envReader) Int(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		r.invalid(key, valueStr, defaultValue)
		return defaultValue
	}
	return value
}

func (r *envReader) Bool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		r.invalid(key, valueStr, defaultValue)
		return defaultValue
	}
	return value
}

// Seconds reads a whole number of seconds. Zero disables the timeout.
func (r *envReader) Seconds(key string, defaultValue int) time.Duration {
	seconds := r.Int(key, defaultValue)
	if seconds < 0 {
		r.invalid(key, os.Getenv(key), defaultValue)
		seconds = defaultValue
	}
	return time.Duration(seconds) * time.Second
}

func (r *envReader) invalid(key, value string, defaultValue any) {
	r.errs = append(r.errs, fmt.Errorf("invalid value for %s: %q, using default: %v", key, value, defaultValue))
}
