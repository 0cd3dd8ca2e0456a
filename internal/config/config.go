package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
)

type Config struct {
	// HTTP server
	Port string

	// Ledger API
	APIURL        string
	APITimeout    time.Duration
	SessionCookie string
	CSRFCookie    string

	// Fallback session used when a caller brings none
	SessionID string
	CSRFToken string

	// Presentation
	Currency string
	Locale   string

	// Calendar month cache
	CalendarCacheSize int
	CalendarCacheTTL  time.Duration

	RateLimitPerMinute int

	LogLevel  string
	LogFormat string
}

func Load() *Config {
	return &Config{
		Port: getEnv("PORT", "8081"),

		APIURL:        getEnv("FINTRACK_API_URL", "http://localhost:8000/api"),
		APITimeout:    getEnvDuration("FINTRACK_API_TIMEOUT", 7*time.Second),
		SessionCookie: getEnv("FINTRACK_SESSION_COOKIE", "sessionid"),
		CSRFCookie:    getEnv("FINTRACK_CSRF_COOKIE", "csrftoken"),

		SessionID: getEnv("FINTRACK_SESSION_ID", ""),
		CSRFToken: getEnv("FINTRACK_CSRF_TOKEN", ""),

		Currency: getEnv("FINTRACK_CURRENCY", "₸"),
		Locale:   getEnv("FINTRACK_LOCALE", "ru"),

		CalendarCacheSize: getEnvInt("CALENDAR_CACHE_SIZE", 256),
		CalendarCacheTTL:  getEnvDuration("CALENDAR_CACHE_TTL", 5*time.Minute),

		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 30),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.APIURL == "" {
		errors = append(errors, "API URL cannot be empty")
	} else if u, err := url.Parse(c.APIURL); err != nil {
		errors = append(errors, fmt.Sprintf("invalid API URL '%s': %v", c.APIURL, err))
	} else if u.Scheme != "http" && u.Scheme != "https" {
		errors = append(errors, fmt.Sprintf("invalid API URL scheme '%s': must be 'http' or 'https'", u.Scheme))
	} else if u.Host == "" {
		errors = append(errors, fmt.Sprintf("invalid API URL '%s': missing host", c.APIURL))
	}

	if c.APITimeout < 100*time.Millisecond || c.APITimeout > 2*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid API timeout %v: must be between 100ms and 2m", c.APITimeout))
	}

	if strings.TrimSpace(c.SessionCookie) == "" {
		errors = append(errors, "session cookie name cannot be empty")
	}
	if strings.TrimSpace(c.CSRFCookie) == "" {
		errors = append(errors, "CSRF cookie name cannot be empty")
	}

	if _, err := language.Parse(c.Locale); err != nil {
		errors = append(errors, fmt.Sprintf("invalid locale '%s': %v", c.Locale, err))
	}

	if c.CalendarCacheSize < 1 || c.CalendarCacheSize > 100000 {
		errors = append(errors, fmt.Sprintf("invalid calendar cache size %d: must be between 1 and 100000", c.CalendarCacheSize))
	}
	if c.CalendarCacheTTL < 0 || c.CalendarCacheTTL > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid calendar cache TTL %v: must be between 0 and 24 hours", c.CalendarCacheTTL))
	}

	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1", c.RateLimitPerMinute))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// Addr is the listen address for Port.
func (c *Config) Addr() string {
	return ":" + c.Port
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
