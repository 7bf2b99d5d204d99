package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yeremiapane/restaurant-pos/utils"
)

const (
	DefaultPollInterval   = 30 * time.Second
	DefaultRequestTimeout = 30 * time.Second
	DefaultPort           = "8080"
	DefaultCORSOrigin     = "http://localhost:3000"
	DefaultRateLimit      = 50
)

// Config holds everything the terminal agent needs at startup.
type Config struct {
	APIBaseURL     string
	RealtimeURL    string
	TenantSlug     string
	BranchID       string
	RestaurantID   string
	AccessToken    string
	RefreshToken   string
	SessionDriver  string
	SessionDSN     string
	PollInterval   time.Duration
	RequestTimeout time.Duration
	Port           string
	OperatorPin    string
	GinMode        string
	LogLevel       string
	CORSOrigin     string
	RateLimit      int
}

// Load reads .env (when present) and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		utils.InfoLogger.Debugf(".env not loaded: %v", err)
	}

	cfg := &Config{
		APIBaseURL:    strings.TrimRight(os.Getenv("API_BASE_URL"), "/"),
		RealtimeURL:   os.Getenv("REALTIME_URL"),
		TenantSlug:    os.Getenv("TENANT_SLUG"),
		BranchID:      os.Getenv("BRANCH_ID"),
		RestaurantID:  os.Getenv("RESTAURANT_ID"),
		AccessToken:   os.Getenv("ACCESS_TOKEN"),
		RefreshToken:  os.Getenv("REFRESH_TOKEN"),
		SessionDriver: envOr("SESSION_DRIVER", "sqlite"),
		SessionDSN:    envOr("SESSION_DSN", "pos_session.db"),
		Port:          envOr("PORT", DefaultPort),
		OperatorPin:   os.Getenv("OPERATOR_PIN_HASH"),
		GinMode:       os.Getenv("GIN_MODE"),
		LogLevel:      envOr("LOG_LEVEL", "info"),
		CORSOrigin:    envOr("CORS_ORIGIN", DefaultCORSOrigin),
		RateLimit:     DefaultRateLimit,
	}

	var err error
	if cfg.PollInterval, err = durationEnv("POLL_INTERVAL", DefaultPollInterval); err != nil {
		return nil, err
	}
	if cfg.RequestTimeout, err = durationEnv("REQUEST_TIMEOUT", DefaultRequestTimeout); err != nil {
		return nil, err
	}

	if v := os.Getenv("RATE_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid RATE_LIMIT %q", v)
		}
		cfg.RateLimit = n
	}

	if cfg.RealtimeURL == "" && cfg.APIBaseURL != "" {
		cfg.RealtimeURL = DeriveRealtimeURL(cfg.APIBaseURL)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings the agent cannot run without.
func (c *Config) Validate() error {
	if c.APIBaseURL == "" {
		return fmt.Errorf("API_BASE_URL is not set")
	}
	if c.SessionDriver != "sqlite" && c.SessionDriver != "mysql" {
		return fmt.Errorf("SESSION_DRIVER must be sqlite or mysql, got %q", c.SessionDriver)
	}
	if c.PollInterval < 0 {
		return fmt.Errorf("POLL_INTERVAL must not be negative")
	}
	return nil
}

// DeriveRealtimeURL maps http(s)://host/... to ws(s)://host/ws.
func DeriveRealtimeURL(apiBase string) string {
	base := strings.TrimRight(apiBase, "/")
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base + "/ws"
}

// InitDB opens the session store database for the configured driver.
func InitDB(cfg *Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.SessionDriver {
	case "mysql":
		dialector = mysql.Open(cfg.SessionDSN)
	default:
		dialector = sqlite.Open(cfg.SessionDSN)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s session store: %w", cfg.SessionDriver, err)
	}
	return db, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
