package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

func init() {
	// Load .env file if it exists (silent fail if not)
	_ = godotenv.Load()
}

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Server  ServerConfig
	App     AppConfig
	Auth    AuthConfig
	Session SessionConfig
	Market  MarketConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `envconfig:"TICKER_SERVER_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"TICKER_SERVER_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"TICKER_SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"TICKER_SERVER_WRITE_TIMEOUT" default:"15s"`
	IdleTimeout     time.Duration `envconfig:"TICKER_SERVER_IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `envconfig:"TICKER_SERVER_SHUTDOWN_TIMEOUT" default:"10s"`
	RateBurst       int           `envconfig:"TICKER_RATE_BURST" default:"20"`
	RatePerSecond   int           `envconfig:"TICKER_RATE_PER_SECOND" default:"10"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name        string `envconfig:"TICKER_APP_NAME" default:"stock-ticker-api"`
	Environment string `envconfig:"TICKER_APP_ENV" default:"development"`
	Version     string `envconfig:"TICKER_APP_VERSION" default:"2.0.0"`
}

// AuthConfig holds token and seed-user settings. The seed passwords exist so
// the demo boots with usable accounts; override them in any real deployment.
type AuthConfig struct {
	Secret             string        `envconfig:"TICKER_AUTH_SECRET" required:"true"`
	Issuer             string        `envconfig:"TICKER_AUTH_ISSUER" default:"stock-ticker"`
	AccessTTL          time.Duration `envconfig:"TICKER_ACCESS_TTL" default:"1h"`
	RefreshTTL         time.Duration `envconfig:"TICKER_REFRESH_TTL" default:"168h"`
	AdminPassword      string        `envconfig:"TICKER_ADMIN_PASSWORD" default:"admin-demo-password"`
	ControllerPassword string        `envconfig:"TICKER_CONTROLLER_PASSWORD" default:"controller-demo-password"`
	ViewerPassword     string        `envconfig:"TICKER_VIEWER_PASSWORD" default:"viewer-demo-password"`
}

// SessionConfig holds session lifecycle settings.
type SessionConfig struct {
	MaxPerUser      int           `envconfig:"TICKER_MAX_SESSIONS_PER_USER" default:"5"`
	ActivityTimeout time.Duration `envconfig:"TICKER_ACTIVITY_TIMEOUT" default:"2h"`
	CleanupInterval time.Duration `envconfig:"TICKER_CLEANUP_INTERVAL" default:"15m"`
}

// MarketConfig holds simulator settings.
type MarketConfig struct {
	// BaseInterval is the resolution of the shared tick loop; each session's
	// own UpdateIntervalMS is honored on top of it.
	BaseInterval      time.Duration `envconfig:"TICKER_SIM_BASE_INTERVAL" default:"500ms"`
	MaxChangePercent  float64       `envconfig:"TICKER_SIM_MAX_CHANGE_PERCENT" default:"2.0"`
	DefaultVolatility float64       `envconfig:"TICKER_SIM_DEFAULT_VOLATILITY" default:"2.0"`
	// Seed fixes the simulator PRNG; 0 means seed from the clock.
	Seed int64 `envconfig:"TICKER_SIM_SEED" default:"0"`
}

// Address returns the server address in host:port format.
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// IsDevelopment returns true if running in development mode.
func (a *AppConfig) IsDevelopment() bool {
	return a.Environment == "development"
}

// IsProduction returns true if running in production mode.
func (a *AppConfig) IsProduction() bool {
	return a.Environment == "production"
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration or panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}
