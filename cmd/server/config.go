package main

import (
	"flag"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// config is read from flags, each defaulting to an environment variable.
type config struct {
	Port            int
	DatabasePath    string
	TaxTablesPath   string // empty uses the embedded tables
	LogLevel        slog.Level
	AllowedOrigins  []string
	ShutdownTimeout time.Duration
}

func loadConfig(fs *flag.FlagSet, args []string) (config, error) {
	var cfg config
	var level, origins string

	fs.IntVar(&cfg.Port, "port", getEnvInt("PORT", 8080), "HTTP server port")
	fs.StringVar(&cfg.DatabasePath, "db", getEnv("DATABASE_PATH", "payroll.db"), "SQLite database path")
	fs.StringVar(&cfg.TaxTablesPath, "tables", getEnv("TAX_TABLES_PATH", ""), "YAML tax tables file (default: embedded)")
	fs.StringVar(&level, "log-level", getEnv("LOG_LEVEL", "info"), "debug, info, warn or error")
	fs.StringVar(&origins, "cors-origins", getEnv("CORS_ORIGINS", ""), "comma-separated allowed origins")
	fs.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second), "graceful shutdown timeout")
	if err := fs.Parse(args); err != nil {
		return config{}, err
	}

	cfg.LogLevel = parseLevel(level)
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
		}
	}
	return cfg, nil
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func initLogger(level slog.Level) *slog.Logger {
	l := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(l)
	return l
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}
