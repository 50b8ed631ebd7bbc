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

	// Backends
	AuthAPIURL              string
	TransactionsAPIURL      string
	BackendTimeout          time.Duration
	BackendMaxAttempts      int
	BackendRetryDelay       time.Duration
	TransactionsQueryParams bool

	// Session store
	SessionBackend    string
	SQLiteDBPath      string
	SessionCookieName string
	SessionMaxAge     time.Duration
	CookieSecure      bool

	// AMQP activity events (optional)
	AMQPURL        string
	AMQPExchange   string
	AMQPRoutingKey string

	// Middleware
	RateLimitPerMinute int

	// Logging
	LogLevel  string
	LogFormat string
}

func Load() *Config {
	cfg := &Config{
		Port: getEnv("PORT", "8080"),

		AuthAPIURL:              getEnv("AUTH_API_URL", "http://localhost:8081"),
		TransactionsAPIURL:      getEnv("TRANSACTIONS_API_URL", "http://localhost:8083"),
		BackendTimeout:          getEnvDuration("BACKEND_TIMEOUT", 0),
		BackendMaxAttempts:      getEnvInt("BACKEND_MAX_ATTEMPTS", 1),
		BackendRetryDelay:       getEnvDuration("BACKEND_RETRY_BASE_DELAY", 200*time.Millisecond),
		TransactionsQueryParams: getEnvBool("TRANSACTIONS_QUERY_PARAMS", true),

		SessionBackend:    getEnv("SESSION_BACKEND", "memory"),
		SQLiteDBPath:      getEnv("SQLITE_DB_PATH", "./data/finvault.db"),
		SessionCookieName: getEnv("SESSION_COOKIE_NAME", "finvault_session"),
		SessionMaxAge:     getEnvDuration("SESSION_MAX_AGE", 30*24*time.Hour),
		CookieSecure:      getEnvBool("COOKIE_SECURE", false),

		AMQPURL:        getEnv("AMQP_URL", ""),
		AMQPExchange:   getEnv("AMQP_EXCHANGE", "finvault"),
		AMQPRoutingKey: getEnv("AMQP_ROUTING_KEY", "transaction.created"),

		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	// Validate backend URLs
	for name, raw := range map[string]string{
		"AUTH_API_URL":         c.AuthAPIURL,
		"TRANSACTIONS_API_URL": c.TransactionsAPIURL,
	} {
		if raw == "" {
			errors = append(errors, fmt.Sprintf("%s cannot be empty", name))
			continue
		}
		u, err := url.Parse(raw)
		if err != nil {
			errors = append(errors, fmt.Sprintf("invalid %s '%s': %v", name, raw, err))
		} else if u.Scheme != "http" && u.Scheme != "https" {
			errors = append(errors, fmt.Sprintf("invalid %s scheme '%s': must be 'http' or 'https'", name, u.Scheme))
		} else if u.Host == "" {
			errors = append(errors, fmt.Sprintf("invalid %s '%s': missing host", name, raw))
		}
	}

	if c.BackendTimeout < 0 {
		errors = append(errors, fmt.Sprintf("invalid backend timeout %v: must not be negative", c.BackendTimeout))
	}
	if c.BackendMaxAttempts < 1 || c.BackendMaxAttempts > 10 {
		errors = append(errors, fmt.Sprintf("invalid backend max attempts %d: must be between 1 and 10", c.BackendMaxAttempts))
	}
	if c.BackendMaxAttempts > 1 && c.BackendRetryDelay <= 0 {
		errors = append(errors, "backend retry base delay must be positive when retries are enabled")
	}

	// Validate session backend
	validBackends := []string{"memory", "sqlite"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.SessionBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid session backend '%s': must be one of %v", c.SessionBackend, validBackends))
	}

	if c.SessionBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite session backend")
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
	}

	if strings.TrimSpace(c.SessionCookieName) == "" {
		errors = append(errors, "session cookie name cannot be empty")
	}
	if c.SessionMaxAge < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid session max age %v: must be at least 1 minute", c.SessionMaxAge))
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPRoutingKey == "" {
			errors = append(errors, "AMQP routing key cannot be empty when AMQP URL is provided")
		}
	}

	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
	}

	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
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

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
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
