// Package config loads service settings from the environment, optionally
// seeded from a local .env file.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the resolved service configuration.
type Config struct {
	Addr        string
	DatabaseURL string
	DevSeed     bool
	LogLevel    string
	LogFormat   string

	JWTSecret   string
	JWTIssuer   string
	JWTAudience string

	BaseCurrency string
	// LowBalanceThresholdMinor triggers a warning notification when a post-write balance is at or below it.
	LowBalanceThresholdMinor int64
	WriterMaxRetries         int
	NotifyTimeout            time.Duration

	FXAPIURL      string
	FXTTL         time.Duration
	FXRefreshSpec string
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		Addr:                     ":8080",
		LogLevel:                 "info",
		LogFormat:                "json",
		BaseCurrency:             "IDR",
		LowBalanceThresholdMinor: 5_000_000,
		WriterMaxRetries:         2,
		NotifyTimeout:            5 * time.Second,
		FXAPIURL:                 "https://open.er-api.com/v6/latest/",
		FXTTL:                    time.Hour,
		FXRefreshSpec:            "@every 1h",
	}
}

// Load reads .env (if present) and then the process environment.
// Invalid values are logged and replaced by defaults.
func Load(l *slog.Logger) Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		l.Warn("could not read .env", "err", err)
	}
	return FromLookup(os.LookupEnv, l)
}

// FromLookup builds a Config from an env lookup function.
func FromLookup(lookup func(string) (string, bool), l *slog.Logger) Config {
	c := Defaults()
	get := func(k string) string {
		v, _ := lookup(k)
		return strings.TrimSpace(v)
	}
	if v := get("ADDR"); v != "" { c.Addr = v }
	c.DatabaseURL = get("DATABASE_URL")
	switch strings.ToLower(get("DEV_SEED")) {
	case "1", "true", "yes":
		c.DevSeed = true
	}
	if v := get("LOG_LEVEL"); v != "" { c.LogLevel = v }
	if v := get("LOG_FORMAT"); v != "" { c.LogFormat = strings.ToLower(v) }
	c.JWTSecret = get("JWT_HS256_SECRET")
	c.JWTIssuer = get("JWT_ISSUER")
	c.JWTAudience = get("JWT_AUDIENCE")
	if v := get("BASE_CURRENCY"); v != "" { c.BaseCurrency = strings.ToUpper(v) }

	if v := get("LOW_BALANCE_THRESHOLD_MINOR"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			l.Warn("invalid LOW_BALANCE_THRESHOLD_MINOR, using default", "value", v)
		} else {
			c.LowBalanceThresholdMinor = n
		}
	}
	if v := get("WRITER_MAX_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 || n > 10 {
			l.Warn("invalid WRITER_MAX_RETRIES, using default", "value", v)
		} else {
			c.WriterMaxRetries = n
		}
	}
	c.NotifyTimeout = duration(l, "NOTIFY_TIMEOUT", get("NOTIFY_TIMEOUT"), c.NotifyTimeout)
	if v := get("FX_API_URL"); v != "" { c.FXAPIURL = v }
	c.FXTTL = duration(l, "FX_TTL", get("FX_TTL"), c.FXTTL)
	if v := get("FX_REFRESH_SPEC"); v != "" { c.FXRefreshSpec = v }
	return c
}

func duration(l *slog.Logger, key, raw string, def time.Duration) time.Duration {
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		l.Warn("invalid duration, using default", "key", key, "value", raw)
		return def
	}
	return d
}

// Logger builds the process logger. Level via LOG_LEVEL; format via LOG_FORMAT (json|text, default json).
func (c Config) Logger() *slog.Logger {
	level := ParseLogLevel(c.LogLevel)
	if c.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

// ParseLogLevel maps env values to slog.Leveler
func ParseLogLevel(s string) slog.Leveler {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error", "err":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
