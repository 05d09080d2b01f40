package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config holds the application settings.
type Config struct {
	DBPath    string         // SQLite file holding the ledger
	HTTPAddr  string         // Listen address of the API
	ExportDir string         // Directory backups are written to
	LogLevel  string         // debug, info, warn, error
	LogFormat string         // text, json
	Location  *time.Location // Day boundaries for collections and dashboard
}

// LoadConfig reads an optional .env file, then the environment.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Debug(".env file not found, using environment only")
	}

	loc, err := loadLocation(getEnv("TZ", "Local"))
	if err != nil {
		return nil, err
	}

	return &Config{
		DBPath:    getEnv("LEDGER_DB_PATH", "ledger.db"),
		HTTPAddr:  getEnv("LEDGER_HTTP_ADDR", ":8080"),
		ExportDir: getEnv("LEDGER_EXPORT_DIR", "."),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
		Location:  loc,
	}, nil
}

// NewLogger builds a logger from the configured level and format. Unknown
// levels fall back to info.
func (c *Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	if c.LogFormat == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger
}

func loadLocation(name string) (*time.Location, error) {
	if name == "" || name == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid TZ %q: %w", name, err)
	}
	return loc, nil
}

// getEnv returns the variable's value or defaultValue when unset or empty.
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
