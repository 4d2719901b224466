package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"
)

// Insecure secret values that must never reach production.
var insecureDefaults = map[string]bool{
	"your-secret-key-change-in-production": true,
	"internal-secret":                      true,
	"":                                     true,
}

type Config struct {
	Server         ServerConfig
	Store          StoreConfig
	Panel          PanelConfig
	Payment        PaymentConfig
	JWT            JWTConfig
	Sweep          SweepConfig
	Settings       SettingsConfig
	Orders         OrdersConfig
	InternalSecret string
}

type ServerConfig struct {
	Port string
	Mode string
}

// StoreConfig selects and configures the document store backend.
type StoreConfig struct {
	Backend string // "http", "postgres" or "memory"

	// http backend
	BinURL string
	BinID  string
	APIKey string

	// postgres backend
	Database DatabaseConfig
	DocID    string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type PanelConfig struct {
	URL         string
	APIKey      string
	NestID      int
	EggID       int
	LocationID  int
	Image       string
	EmailDomain string
}

type PaymentConfig struct {
	URL    string
	APIKey string
}

type JWTConfig struct {
	SecretKey string
}

type SweepConfig struct {
	Interval  time.Duration
	GraceDays int
}

type SettingsConfig struct {
	CacheTTL time.Duration
}

type OrdersConfig struct {
	SweepInterval time.Duration
	MaxPendingAge time.Duration
}

func Load() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8020"),
			Mode: getEnv("GIN_MODE", "release"),
		},
		Store: StoreConfig{
			Backend: getEnv("STORE_BACKEND", "http"),
			BinURL:  getEnv("STORE_BIN_URL", "https://api.jsonstore.example"),
			BinID:   getEnv("STORE_BIN_ID", ""),
			APIKey:  getEnv("STORE_API_KEY", ""),
			Database: DatabaseConfig{
				Host:     getEnv("DB_HOST", "localhost"),
				Port:     getEnv("DB_PORT", "5432"),
				User:     getEnv("DB_USER", "panelstore"),
				Password: getEnv("DB_PASSWORD", "panelstore"),
				DBName:   getEnv("DB_NAME", "panelstore"),
				SSLMode:  getEnv("DB_SSLMODE", "disable"),
			},
			DocID: getEnv("STORE_DOC_ID", "subscriptions"),
		},
		Panel: PanelConfig{
			URL:         getEnv("PANEL_URL", "http://localhost:8080"),
			APIKey:      getEnv("PANEL_API_KEY", ""),
			NestID:      getEnvInt("PANEL_NEST_ID", 5),
			EggID:       getEnvInt("PANEL_EGG_ID", 15),
			LocationID:  getEnvInt("PANEL_LOCATION_ID", 1),
			Image:       getEnv("PANEL_IMAGE", "ghcr.io/parkervcp/yolks:nodejs_18"),
			EmailDomain: getEnv("PANEL_EMAIL_DOMAIN", "panelstore.local"),
		},
		Payment: PaymentConfig{
			URL:    getEnv("PAYMENT_URL", "http://localhost:8090"),
			APIKey: getEnv("PAYMENT_API_KEY", ""),
		},
		JWT: JWTConfig{
			SecretKey: getEnv("JWT_SECRET_KEY", ""),
		},
		Sweep: SweepConfig{
			Interval:  time.Duration(getEnvInt("SWEEP_INTERVAL_SECONDS", 60)) * time.Second,
			GraceDays: getEnvInt("SWEEP_GRACE_DAYS", 7),
		},
		Settings: SettingsConfig{
			CacheTTL: time.Duration(getEnvInt("SETTINGS_CACHE_TTL_SECONDS", 60)) * time.Second,
		},
		Orders: OrdersConfig{
			SweepInterval: time.Duration(getEnvInt("ORDER_SWEEP_INTERVAL_SECONDS", 600)) * time.Second,
			MaxPendingAge: time.Duration(getEnvInt("ORDER_MAX_PENDING_HOURS", 24)) * time.Hour,
		},
		InternalSecret: getEnv("INTERNAL_SECRET", ""),
	}

	// Keep secrets out of the log line.
	log.Printf("[config] panelstore loaded: port=%s store=%s panel=%s payment=%s",
		cfg.Server.Port, cfg.Store.Backend, cfg.Panel.URL, cfg.Payment.URL)

	return cfg
}

// Validate rejects insecure or incomplete configuration before startup.
func (c *Config) Validate() error {
	if insecureDefaults[c.JWT.SecretKey] {
		return fmt.Errorf("JWT_SECRET_KEY must be set to a secure value")
	}
	if len(c.JWT.SecretKey) < 32 {
		return fmt.Errorf("JWT_SECRET_KEY must be at least 32 characters long")
	}
	if insecureDefaults[c.InternalSecret] {
		return fmt.Errorf("INTERNAL_SECRET must be set to a secure value")
	}
	if len(c.InternalSecret) < 32 {
		return fmt.Errorf("INTERNAL_SECRET must be at least 32 characters long")
	}
	if c.Panel.APIKey == "" {
		return fmt.Errorf("PANEL_API_KEY must be set")
	}

	switch c.Store.Backend {
	case "http":
		if c.Store.BinID == "" || c.Store.APIKey == "" {
			return fmt.Errorf("STORE_BIN_ID and STORE_API_KEY must be set for the http store backend")
		}
	case "postgres", "memory":
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.Store.Backend)
	}

	if c.Sweep.GraceDays < 0 {
		return fmt.Errorf("SWEEP_GRACE_DAYS must not be negative")
	}

	return nil
}

func (c *DatabaseConfig) DSN() string {
	return "postgres://" + c.User + ":" + c.Password + "@" + c.Host + ":" + c.Port + "/" + c.DBName + "?sslmode=" + c.SSLMode
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
