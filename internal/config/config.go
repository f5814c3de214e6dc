// Package config loads and validates gateway configuration from environment variables.
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all gateway configuration.
type Config struct {
	// Server settings.
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Automaton settings.
	AutomatonPath    string // Empty serves the embedded delivery automaton.
	Watch            bool   // Reload the automaton when its file changes.
	StrictValidation bool   // Unknown validation tags and hooks fail the load.
	MaxRetries       int

	// Session settings.
	SessionTimeout time.Duration
	SweepInterval  time.Duration
	LockTTL        time.Duration

	// Redis settings. An empty URL keeps sessions in memory.
	RedisURL    string
	RedisPrefix string

	// SessionKey is a base64 AES-256 key sealing session answers at rest.
	// SessionKeysPrevious lists retired keys (comma separated) still
	// accepted for decryption during a rotation.
	SessionKey          string
	SessionKeysPrevious string

	// DatabaseURL selects the user and shipment repositories:
	// empty for memory, postgres:// for Postgres, sqlite:// or file: for SQLite.
	DatabaseURL string

	// OTEL settings.
	OTELEndpoint string
	ServiceName  string
	OTELInsecure bool

	// Operational settings.
	LogLevel  string
	LogFormat string // "text" or "json"
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (Config, error) {
	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	cfg := Config{
		AutomatonPath: envStr("USSD_AUTOMATON_PATH", ""),
		RedisURL:      envStr("REDIS_URL", ""),
		RedisPrefix:   envStr("USSD_REDIS_PREFIX", "ussd:session:"),
		DatabaseURL:   envStr("DATABASE_URL", ""),

		SessionKey:          envStr("USSD_SESSION_KEY", ""),
		SessionKeysPrevious: envStr("USSD_SESSION_KEYS_PREVIOUS", ""),

		OTELEndpoint:  envStr("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		ServiceName:   envStr("OTEL_SERVICE_NAME", "ussdgw"),
		LogLevel:      envStr("USSD_LOG_LEVEL", "info"),
		LogFormat:     envStr("USSD_LOG_FORMAT", "text"),
	}

	var err error
	cfg.Port, err = envInt("USSD_PORT", 8080)
	collect(err)
	cfg.MaxRetries, err = envInt("USSD_MAX_RETRIES", 3)
	collect(err)
	cfg.ReadTimeout, err = envDuration("USSD_READ_TIMEOUT", 10*time.Second)
	collect(err)
	cfg.WriteTimeout, err = envDuration("USSD_WRITE_TIMEOUT", 10*time.Second)
	collect(err)
	cfg.SessionTimeout, err = envDuration("USSD_SESSION_TIMEOUT", 10*time.Minute)
	collect(err)
	cfg.SweepInterval, err = envDuration("USSD_SWEEP_INTERVAL", time.Minute)
	collect(err)
	cfg.LockTTL, err = envDuration("USSD_LOCK_TTL", 30*time.Second)
	collect(err)
	cfg.Watch, err = envBool("USSD_WATCH", false)
	collect(err)
	cfg.StrictValidation, err = envBool("USSD_STRICT_VALIDATION", true)
	collect(err)
	cfg.OTELInsecure, err = envBool("OTEL_INSECURE", false)
	collect(err)

	if len(errs) > 0 {
		return Config{}, fmt.Errorf("config: %w", errors.Join(errs...))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: USSD_PORT must be between 1 and 65535, got %d", c.Port)
	}
	if c.SessionTimeout <= 0 {
		return fmt.Errorf("config: USSD_SESSION_TIMEOUT must be positive")
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("config: USSD_SWEEP_INTERVAL must be positive")
	}
	if c.LockTTL <= 0 {
		return fmt.Errorf("config: USSD_LOCK_TTL must be positive")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("config: USSD_MAX_RETRIES must not be negative")
	}
	if c.Watch && c.AutomatonPath == "" {
		return fmt.Errorf("config: USSD_WATCH requires USSD_AUTOMATON_PATH")
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("config: USSD_LOG_FORMAT must be text or json, got %q", c.LogFormat)
	}
	if _, err := c.DatabaseDriver(); err != nil {
		return err
	}
	if _, _, err := c.SessionKeys(); err != nil {
		return err
	}
	return nil
}

// SessionKeys decodes SessionKey and SessionKeysPrevious. A nil active key
// means sessions are stored in clear.
func (c Config) SessionKeys() (active []byte, previous [][]byte, err error) {
	if c.SessionKey == "" {
		if c.SessionKeysPrevious != "" {
			return nil, nil, errors.New("config: USSD_SESSION_KEYS_PREVIOUS requires USSD_SESSION_KEY")
		}
		return nil, nil, nil
	}
	active, err = decodeKey("USSD_SESSION_KEY", c.SessionKey)
	if err != nil {
		return nil, nil, err
	}
	for _, raw := range strings.Split(c.SessionKeysPrevious, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		k, err := decodeKey("USSD_SESSION_KEYS_PREVIOUS", raw)
		if err != nil {
			return nil, nil, err
		}
		previous = append(previous, k)
	}
	return active, previous, nil
}

func decodeKey(name, v string) ([]byte, error) {
	k, err := base64.StdEncoding.DecodeString(v)
	if err != nil {
		return nil, fmt.Errorf("config: %s is not valid base64", name)
	}
	if len(k) != 32 {
		return nil, fmt.Errorf("config: %s must decode to 32 bytes, got %d", name, len(k))
	}
	return k, nil
}

// Addr is the HTTP listen address.
func (c Config) Addr() string {
	return ":" + strconv.Itoa(c.Port)
}

// Database drivers selected by DatabaseURL.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// DatabaseDriver reports which repository DatabaseURL selects.
func (c Config) DatabaseDriver() (string, error) {
	u := c.DatabaseURL
	switch {
	case u == "":
		return DriverMemory, nil
	case strings.HasPrefix(u, "postgres://"), strings.HasPrefix(u, "postgresql://"):
		return DriverPostgres, nil
	case strings.HasPrefix(u, "sqlite://"), strings.HasPrefix(u, "file:"):
		return DriverSQLite, nil
	}
	return "", fmt.Errorf("config: unsupported DATABASE_URL scheme in %q", redactURL(u))
}

// SQLitePath strips the sqlite:// scheme; file: DSNs are passed through.
func (c Config) SQLitePath() string {
	return strings.TrimPrefix(c.DatabaseURL, "sqlite://")
}

func redactURL(u string) string {
	if i := strings.Index(u, "@"); i >= 0 {
		if j := strings.Index(u, "://"); j >= 0 && j < i {
			return u[:j+3] + "***" + u[i:]
		}
	}
	return u
}

func envStr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s=%q is not a valid integer", key, v)
	}
	return n, nil
}

func envDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s=%q is not a valid duration", key, v)
	}
	return d, nil
}

func envBool(key string, defaultVal bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s=%q is not a valid boolean", key, v)
	}
	return b, nil
}
