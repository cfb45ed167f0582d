package config

import (
	"encoding/hex"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port           string
	Environment    string
	FrontendURL    string
	CORSOrigins    []string
	TrustedProxies []string

	// Database
	DatabaseURL string

	// Supabase
	SupabaseURL            string
	SupabasePublishableKey string
	SupabaseJWTSecret      string

	// Google Sheets
	EncryptionKey      string
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURI  string
	SheetsTimezone     string
	SheetsTitle        string
	ExternalTimeout    time.Duration

	// Sync
	CronSecret        string
	OAuthStateBackend string
	SyncWorkers       int
	SyncQueueSize     int
	SyncSweepInterval time.Duration

	// Orders
	OrderRateLimit  int
	OrderRateWindow time.Duration
	StockPolicy     string
}

// Load reads the environment, after merging a .env file when one exists.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var perr parseErrors
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		FrontendURL: strings.TrimRight(getEnv("FRONTEND_URL", "http://localhost:5173"), "/"),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		SupabaseURL:            getEnv("SUPABASE_URL", ""),
		SupabasePublishableKey: getEnv("SUPABASE_PUBLISHABLE_KEY", ""),
		SupabaseJWTSecret:      getEnv("SUPABASE_JWT_SECRET", ""),

		EncryptionKey:      getEnv("ENCRYPTION_KEY", ""),
		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURI:  getEnv("GOOGLE_REDIRECT_URI", ""),
		SheetsTimezone:     getEnv("SHEETS_TIMEZONE", "Africa/Algiers"),
		SheetsTitle:        getEnv("SHEETS_TITLE", "Livey Orders"),
		ExternalTimeout:    perr.durationVar("EXTERNAL_TIMEOUT", 15*time.Second),

		CronSecret:        getEnv("CRON_SECRET", ""),
		OAuthStateBackend: getEnv("OAUTH_STATE_BACKEND", "memory"),
		SyncWorkers:       perr.intVar("SYNC_WORKERS", 4),
		SyncQueueSize:     perr.intVar("SYNC_QUEUE_SIZE", 256),
		SyncSweepInterval: perr.durationVar("SYNC_SWEEP_INTERVAL", 0),

		OrderRateLimit:  perr.intVar("ORDER_RATE_LIMIT", 10),
		OrderRateWindow: perr.durationVar("ORDER_RATE_WINDOW", 15*time.Minute),
		StockPolicy:     getEnv("STOCK_POLICY", "best_effort"),
	}
	cfg.CORSOrigins = splitList(getEnv("CORS_ORIGINS", cfg.FrontendURL))
	cfg.TrustedProxies = splitList(getEnv("TRUSTED_PROXIES", ""))

	if len(perr) > 0 {
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(perr, "; "))
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.SupabaseJWTSecret == "" && (c.SupabaseURL == "" || c.SupabasePublishableKey == "") {
		return fmt.Errorf("SUPABASE_JWT_SECRET or SUPABASE_URL and SUPABASE_PUBLISHABLE_KEY are required")
	}
	if key, err := hex.DecodeString(c.EncryptionKey); err != nil || len(key) != 32 {
		return fmt.Errorf("ENCRYPTION_KEY must be 64 hex characters")
	}
	if c.GoogleClientID == "" || c.GoogleClientSecret == "" || c.GoogleRedirectURI == "" {
		return fmt.Errorf("GOOGLE_CLIENT_ID, GOOGLE_CLIENT_SECRET and GOOGLE_REDIRECT_URI are required")
	}
	if _, err := time.LoadLocation(c.SheetsTimezone); err != nil {
		return fmt.Errorf("SHEETS_TIMEZONE: %w", err)
	}
	switch c.OAuthStateBackend {
	case "memory", "postgres":
	default:
		return fmt.Errorf("OAUTH_STATE_BACKEND must be memory or postgres")
	}
	switch c.StockPolicy {
	case "best_effort", "strict":
	default:
		return fmt.Errorf("STOCK_POLICY must be best_effort or strict")
	}
	if c.SyncWorkers < 1 || c.SyncQueueSize < 1 {
		return fmt.Errorf("SYNC_WORKERS and SYNC_QUEUE_SIZE must be positive")
	}
	if c.ExternalTimeout <= 0 {
		return fmt.Errorf("EXTERNAL_TIMEOUT must be positive")
	}
	for _, p := range c.TrustedProxies {
		if _, _, err := net.ParseCIDR(p); err != nil && net.ParseIP(p) == nil {
			return fmt.Errorf("TRUSTED_PROXIES: %q is not an IP or CIDR", p)
		}
	}
	if c.OrderRateLimit > 0 && c.OrderRateWindow <= 0 {
		return fmt.Errorf("ORDER_RATE_WINDOW must be positive")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimRight(strings.TrimSpace(part), "/"); p != "" {
			out = append(out, p)
		}
	}
	return out
}

type parseErrors []string

func (p *parseErrors) intVar(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*p = append(*p, key+" must be an integer")
		return def
	}
	return n
}

func (p *parseErrors) durationVar(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*p = append(*p, key+" must be a duration such as 15s or 5m")
		return def
	}
	return d
}
