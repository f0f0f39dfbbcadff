// Package config loads the runtime configuration of all three
// processes from environment variables.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port string

	// Database
	SQLiteDBPath string

	// AMQP; leave AMQPURL empty to run without a broker and evaluate
	// alerts inline
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Alert trigger
	NotifyBaseURL  string
	NotifyAppKey   string
	AlertUserKey   string
	WeeklyCapCents int64
	AlertPct       int
	SweepInterval  time.Duration

	// Notifier service
	NotifierPort   string
	NotifierDBPath string
	BotToken       string
	AppKey         string
}

func Load() *Config {
	return &Config{
		Port:         getEnv("PORT", "8081"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/gastos.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "gastos"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "record_created"),

		NotifyBaseURL:  getEnv("NOTIFY_BASE_URL", ""),
		NotifyAppKey:   getEnv("NOTIFY_APP_KEY", ""),
		AlertUserKey:   getEnv("ALERT_USER_KEY", ""),
		WeeklyCapCents: int64(getEnvInt("WEEKLY_CAP_CENTS", 0)),
		AlertPct:       getEnvInt("ALERT_PCT", 80),
		SweepInterval:  getEnvDuration("SWEEP_INTERVAL", 1*time.Hour),

		NotifierPort:   getEnv("NOTIFIER_PORT", "4040"),
		NotifierDBPath: getEnv("NOTIFIER_DB_PATH", "./data/notifier.db"),
		BotToken:       getEnv("BOT_TOKEN", ""),
		AppKey:         getEnv("APP_KEY", ""),
	}
}

// Validate checks the shared settings used by the API and worker.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty")
	} else {
		dir := filepath.Dir(c.SQLiteDBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.NotifyBaseURL != "" {
		if c.NotifyAppKey == "" {
			errors = append(errors, "NOTIFY_APP_KEY is required when NOTIFY_BASE_URL is set")
		}
		if c.AlertUserKey == "" {
			errors = append(errors, "ALERT_USER_KEY is required when NOTIFY_BASE_URL is set")
		}
	}

	if c.AlertPct < 1 || c.AlertPct > 100 {
		errors = append(errors, fmt.Sprintf("invalid alert percentage %d: must be between 1 and 100", c.AlertPct))
	}
	if c.WeeklyCapCents < 0 {
		errors = append(errors, fmt.Sprintf("invalid weekly cap %d: must not be negative", c.WeeklyCapCents))
	}

	if c.SweepInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid sweep interval %v: must be at least 1 second", c.SweepInterval))
	} else if c.SweepInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid sweep interval %v: must be at most 24 hours", c.SweepInterval))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// ValidateNotifier checks the settings the notifier process requires.
func (c *Config) ValidateNotifier() error {
	var errors []string

	if port, err := strconv.Atoi(c.NotifierPort); err != nil {
		errors = append(errors, fmt.Sprintf("invalid notifier port '%s': must be a number", c.NotifierPort))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid notifier port %d: must be between 1 and 65535", port))
	}

	if c.BotToken == "" {
		errors = append(errors, "BOT_TOKEN is required")
	}
	if c.AppKey == "" {
		errors = append(errors, "APP_KEY is required")
	}
	if c.NotifierDBPath == "" {
		errors = append(errors, "notifier database path cannot be empty")
	}

	if len(errors) > 0 {
		return fmt.Errorf("notifier configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
