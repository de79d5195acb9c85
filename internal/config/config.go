package config

import (
	"fmt"
	"strings"
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
	Server   ServerConfig
	App      AppConfig
	Cache    CacheConfig
	Database DatabaseConfig
	Store    StoreConfig
	Economy  EconomyConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name        string `envconfig:"APP_NAME" default:"cardvault-api"`
	Environment string `envconfig:"APP_ENV" default:"development"`
	Debug       bool   `envconfig:"APP_DEBUG" default:"false"`
	Version     string `envconfig:"APP_VERSION" default:"1.0.0"`
}

// CacheConfig holds the display-name cache settings.
type CacheConfig struct {
	Type string        `envconfig:"CACHE_TYPE" default:"memory"` // memory or redis
	TTL  time.Duration `envconfig:"CACHE_TTL" default:"10m"`

	RedisHost     string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int    `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
	RedisPrefix   string `envconfig:"REDIS_PREFIX" default:"cardvault"`
}

// DatabaseConfig holds the MySQL players directory settings. An empty host
// disables the directory and names fall back to user ids.
type DatabaseConfig struct {
	Host     string `envconfig:"DB_HOST" default:""`
	Port     int    `envconfig:"DB_PORT" default:"3306"`
	Name     string `envconfig:"DB_NAME" default:"cardvault"`
	User     string `envconfig:"DB_USER" default:"root"`
	Password string `envconfig:"DB_PASS" default:""`
}

// StoreConfig selects the tabular store holding the ledger.
type StoreConfig struct {
	Type string `envconfig:"STORE_TYPE" default:"sqlite"` // sqlite, postgres, mysql or memory
	Path string `envconfig:"STORE_PATH" default:"./data/ledger.db"`
	DSN  string `envconfig:"STORE_DSN" default:""`
}

// EconomyConfig holds the rules of the economy.
type EconomyConfig struct {
	Timezone        string        `envconfig:"ECONOMY_TIMEZONE" default:"Europe/Rome"`
	CatalogFile     string        `envconfig:"ECONOMY_CATALOG" default:"./configs/catalog.yaml"`
	LedgerCacheTTL  time.Duration `envconfig:"LEDGER_CACHE_TTL" default:"3s"`
	TradeTTL        time.Duration `envconfig:"ECONOMY_TRADE_TTL" default:"24h"`
	WeeklyExchanges int           `envconfig:"ECONOMY_WEEKLY_EXCHANGES" default:"3"`
	DailyDraws      int           `envconfig:"ECONOMY_DAILY_DRAWS" default:"1"`
	SacrificeReward int           `envconfig:"ECONOMY_SACRIFICE_REWARD" default:"3"`
	AuditDir        string        `envconfig:"ECONOMY_AUDIT_DIR" default:"./data/audit"`
	SweepInterval   time.Duration `envconfig:"ECONOMY_SWEEP_INTERVAL" default:"5m"`
	APIKeys         []string      `envconfig:"API_KEYS" default:""`
	AdminKeys       []string      `envconfig:"ADMIN_KEYS" default:""`
}

// Location loads the configured timezone.
func (e *EconomyConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(e.Timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", e.Timezone, err)
	}
	return loc, nil
}

// Address returns the server address in host:port format.
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RedisAddress returns the Redis address in host:port format.
func (c *CacheConfig) RedisAddress() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// DSN returns the MySQL data source name.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

// Enabled reports whether the players directory is configured.
func (d *DatabaseConfig) Enabled() bool {
	return d.Host != ""
}

// IsDevelopment returns true if running in development mode.
func (a *AppConfig) IsDevelopment() bool {
	return a.Environment == "development"
}

// IsProduction returns true if running in production mode.
func (a *AppConfig) IsProduction() bool {
	return a.Environment == "production"
}

func (c *Config) validate() error {
	switch strings.ToLower(c.Store.Type) {
	case "sqlite", "postgres", "mysql", "memory":
	default:
		return fmt.Errorf("unknown STORE_TYPE %q", c.Store.Type)
	}
	switch strings.ToLower(c.Cache.Type) {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown CACHE_TYPE %q", c.Cache.Type)
	}
	if (c.Store.Type == "postgres" || c.Store.Type == "mysql") && c.Store.DSN == "" {
		return fmt.Errorf("STORE_DSN is required for %s", c.Store.Type)
	}
	if c.Economy.WeeklyExchanges <= 0 {
		return fmt.Errorf("ECONOMY_WEEKLY_EXCHANGES must be positive")
	}
	if _, err := c.Economy.Location(); err != nil {
		return err
	}
	return nil
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
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
