// Package config provides application configuration loaded from environment variables.
// Use the package-level Get() function to obtain the singleton Config instance.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ──────────────────────────────────────────────────────────────────────────────
// Sub-config structs
// ──────────────────────────────────────────────────────────────────────────────

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        // e.g. "8080"
	Env          string        // "development" | "production"
	ReadTimeout  time.Duration // default 10s
	WriteTimeout time.Duration // default 10s

	// Back-office admin server (separate binary, separate port).
	BackofficePort       string // default "8081"
	BackofficeAllowedIPs string // comma-separated allowlist; empty = allow all
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	DSN             string        // full postgres DSN
	MaxOpenConns    int           // default 25
	MaxIdleConns    int           // default 10
	ConnMaxLifetime time.Duration // default 5m
}

// JWTConfig holds token verification settings.  This service never issues
// tokens; it only verifies tokens minted by the identity service.
type JWTConfig struct {
	Secret string // must be set
}

// CloserConfig holds auction-closing scheduler settings.
type CloserConfig struct {
	// Interval between closer ticks.  Auctions run for hours or days, so one
	// minute keeps closing latency low without polling pressure.
	Interval time.Duration // default 1m
	// SettlementWindow is quoted to the winner in their notification.
	SettlementWindow time.Duration // default 48h
}

// PaymentConfig holds settlement-initiation settings.
type PaymentConfig struct {
	BaseURL string        // payment service base URL
	Timeout time.Duration // per-request timeout, default 5s
}

// WSConfig holds live-update channel settings.
type WSConfig struct {
	AllowedOrigins []string // empty = allow all (dev mode)
}

// ──────────────────────────────────────────────────────────────────────────────
// Top-level Config
// ──────────────────────────────────────────────────────────────────────────────

// Config is the root configuration object for the entire application.
type Config struct {
	Server  ServerConfig
	DB      DBConfig
	JWT     JWTConfig
	Closer  CloserConfig
	Payment PaymentConfig
	WS      WSConfig
}

// IsProd returns true when running in the production environment.
func (c *Config) IsProd() bool {
	return c.Server.Env == "production"
}

// Validate checks that all required configuration values are present and valid.
// Returns every validation error encountered, joined.
func (c *Config) Validate() error {
	var errs []error

	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("JWT_SECRET must be set"))
	}
	if c.IsProd() && c.DB.DSN == "" {
		errs = append(errs, errors.New("DATABASE_DSN must be set in production"))
	}
	if c.IsProd() && c.Payment.BaseURL == "" {
		errs = append(errs, errors.New("PAYMENT_BASE_URL must be set in production"))
	}
	if c.Closer.Interval <= 0 {
		errs = append(errs, fmt.Errorf("CLOSER_INTERVAL must be positive, got %s", c.Closer.Interval))
	}
	if c.Closer.SettlementWindow <= 0 {
		errs = append(errs, fmt.Errorf("SETTLEMENT_WINDOW must be positive, got %s", c.Closer.SettlementWindow))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Singleton
// ──────────────────────────────────────────────────────────────────────────────

var (
	instance *Config
	once     sync.Once
	loadErr  error
)

// Get returns the singleton Config, loading it once from environment variables.
// Panics if loading fails — call this early in main() to catch misconfigurations
// at startup.
func Get() *Config {
	once.Do(func() {
		instance, loadErr = load()
	})
	if loadErr != nil {
		panic(fmt.Sprintf("config: failed to load: %v", loadErr))
	}
	return instance
}

// MustLoad loads and validates configuration. Intended for use in main().
// Panics on any error so misconfiguration is caught immediately at boot.
func MustLoad() *Config {
	cfg := Get()
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("config: validation failed: %v", err))
	}
	return cfg
}

// ──────────────────────────────────────────────────────────────────────────────
// Internal loader
// ──────────────────────────────────────────────────────────────────────────────

func load() (*Config, error) {
	cfg := &Config{}

	// ── Server ────────────────────────────────────────────────────────────────
	cfg.Server = ServerConfig{
		Port:         getEnv("SERVER_PORT", "8080"),
		Env:          getEnv("ENVIRONMENT", "development"),
		ReadTimeout:  getDuration("SERVER_READ_TIMEOUT", 10*time.Second),
		WriteTimeout: getDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),

		BackofficePort:       getEnv("BACKOFFICE_PORT", "8081"),
		BackofficeAllowedIPs: getEnv("BACKOFFICE_ALLOWED_IPS", ""),
	}

	// ── Database ──────────────────────────────────────────────────────────────
	dsn := os.Getenv("DATABASE_DSN")
	if dsn == "" {
		// Build DSN from individual components for convenience in dev
		dsn = fmt.Sprintf(
			"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			getEnv("DB_HOST", "localhost"),
			getEnv("DB_PORT", "5432"),
			getEnv("DB_USER", "postgres"),
			getEnv("DB_PASSWORD", ""),
			getEnv("DB_NAME", "mezat"),
			getEnv("DB_SSLMODE", "disable"),
		)
	}

	maxOpen, err := getInt("DB_MAX_OPEN_CONNS", 25)
	if err != nil {
		return nil, fmt.Errorf("DB_MAX_OPEN_CONNS: %w", err)
	}
	maxIdle, err := getInt("DB_MAX_IDLE_CONNS", 10)
	if err != nil {
		return nil, fmt.Errorf("DB_MAX_IDLE_CONNS: %w", err)
	}

	cfg.DB = DBConfig{
		DSN:             dsn,
		MaxOpenConns:    maxOpen,
		MaxIdleConns:    maxIdle,
		ConnMaxLifetime: getDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
	}

	// ── JWT ───────────────────────────────────────────────────────────────────
	cfg.JWT = JWTConfig{
		Secret: getEnv("JWT_SECRET", ""),
	}

	// ── Closer ────────────────────────────────────────────────────────────────
	cfg.Closer = CloserConfig{
		Interval:         getDuration("CLOSER_INTERVAL", time.Minute),
		SettlementWindow: getDuration("SETTLEMENT_WINDOW", 48*time.Hour),
	}

	// ── Payment ───────────────────────────────────────────────────────────────
	cfg.Payment = PaymentConfig{
		BaseURL: getEnv("PAYMENT_BASE_URL", "http://localhost:9090"),
		Timeout: getDuration("PAYMENT_TIMEOUT", 5*time.Second),
	}

	// ── WebSocket ─────────────────────────────────────────────────────────────
	if ori := os.Getenv("WS_ALLOWED_ORIGINS"); ori != "" {
		for _, o := range strings.Split(ori, ",") {
			cfg.WS.AllowedOrigins = append(cfg.WS.AllowedOrigins, strings.TrimSpace(o))
		}
	}

	return cfg, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Helper functions
// ──────────────────────────────────────────────────────────────────────────────

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q", v)
	}
	return n, nil
}

// getDuration parses an env var as a Go duration string (e.g. "1m", "2s").
// Falls back to defaultVal if the variable is unset or empty.
func getDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
