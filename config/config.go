package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"listingsportal/server/internal/geometry"
	"listingsportal/server/internal/models"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Feed      FeedConfig
	Reconcile ReconcileConfig
	Search    SearchConfig
	Log       LogConfig
}

type ServerConfig struct {
	Port            string        `env:"PORT" envDefault:"5250"`
	Mode            string        `env:"GIN_MODE" envDefault:"release"`
	CORSOrigins     []string      `env:"CORS_ORIGINS" envDefault:"*" envSeparator:","`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

type DatabaseConfig struct {
	// Driver is either "sqlite" or "postgres" (PostGIS required)
	Driver       string `env:"DB_DRIVER" envDefault:"sqlite"`
	DSN          string `env:"DB_DSN" envDefault:"database/listings.db"`
	MaxOpenConns int    `env:"DB_MAX_OPEN_CONNS" envDefault:"10"`
}

type FeedConfig struct {
	BaseURL string        `env:"FEED_BASE_URL" envDefault:"https://api.rentcast.io/v1/"`
	APIKey  string        `env:"FEED_API_KEY"`
	Timeout time.Duration `env:"FEED_TIMEOUT" envDefault:"30s"`

	// Records requested per page, the feed caps this at 500
	PageLimit int `env:"FEED_PAGE_LIMIT" envDefault:"500"`
	MaxPages  int `env:"FEED_MAX_PAGES" envDefault:"10"`

	// Also pull the sale endpoint after rentals
	IncludeSale bool `env:"FEED_INCLUDE_SALE" envDefault:"false"`
}

// ReconcileConfig is the region and filter profile pulled on every cycle.
type ReconcileConfig struct {
	Latitude      float64  `env:"RECONCILE_LATITUDE" envDefault:"40.878379"`
	Longitude     float64  `env:"RECONCILE_LONGITUDE" envDefault:"-73.881924"`
	RadiusMiles   float64  `env:"RECONCILE_RADIUS" envDefault:"5"`
	PropertyTypes []string `env:"RECONCILE_PROPERTY_TYPES" envDefault:"Single Family,Condo,Townhouse,Multi-Family,Apartment" envSeparator:","`
	MinBedrooms   float64  `env:"RECONCILE_MIN_BEDROOMS" envDefault:"0"`
	MinBathrooms  float64  `env:"RECONCILE_MIN_BATHROOMS" envDefault:"0"`

	// 0 disables the price cap
	MaxPrice int64 `env:"RECONCILE_MAX_PRICE" envDefault:"0"`

	DaysOnMarket  int `env:"RECONCILE_DAYS_ON_MARKET" envDefault:"1"`
	RetentionDays int `env:"RECONCILE_RETENTION_DAYS" envDefault:"30"`

	Schedule     string `env:"RECONCILE_SCHEDULE" envDefault:"0 3 * * *"`
	TimeZone     string `env:"RECONCILE_TIMEZONE" envDefault:"America/New_York"`
	RunOnStartup bool   `env:"RECONCILE_RUN_ON_STARTUP" envDefault:"false"`
}

// Retention is the maximum age, measured from the listed date, a listing is kept.
func (r ReconcileConfig) Retention() time.Duration {
	return time.Duration(r.RetentionDays) * 24 * time.Hour
}

func (r ReconcileConfig) Location() (*time.Location, error) {
	return time.LoadLocation(r.TimeZone)
}

type SearchConfig struct {
	// Reference zone for day boundaries of the daysOld filter
	TimeZone string `env:"SEARCH_TIMEZONE" envDefault:"America/New_York"`
}

func (s SearchConfig) Location() (*time.Location, error) {
	return time.LoadLocation(s.TimeZone)
}

type LogConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

// LoadConfig reads the optional dotenv files (".env" when none are given) and
// then parses the environment.
func LoadConfig(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", file, err)
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}
	if strings.TrimSpace(c.Database.DSN) == "" {
		return errors.New("DB_DSN is required")
	}

	if c.Feed.PageLimit < 1 || c.Feed.PageLimit > 500 {
		return fmt.Errorf("FEED_PAGE_LIMIT must be between 1 and 500, got %d", c.Feed.PageLimit)
	}
	if c.Feed.MaxPages < 1 {
		return fmt.Errorf("FEED_MAX_PAGES must be positive, got %d", c.Feed.MaxPages)
	}

	r := c.Reconcile
	if !geometry.ValidCoordinate(r.Latitude, r.Longitude) {
		return fmt.Errorf("invalid reconcile center (%v, %v)", r.Latitude, r.Longitude)
	}
	if r.RadiusMiles <= 0 {
		return fmt.Errorf("RECONCILE_RADIUS must be positive, got %v", r.RadiusMiles)
	}
	if _, err := models.ParsePropertyTypes(r.PropertyTypes); err != nil {
		return fmt.Errorf("invalid RECONCILE_PROPERTY_TYPES: %w", err)
	}
	if r.RetentionDays <= 0 {
		return fmt.Errorf("RECONCILE_RETENTION_DAYS must be positive, got %d", r.RetentionDays)
	}
	if r.DaysOnMarket < 0 {
		return fmt.Errorf("RECONCILE_DAYS_ON_MARKET must not be negative, got %d", r.DaysOnMarket)
	}
	if _, err := cron.ParseStandard(r.Schedule); err != nil {
		return fmt.Errorf("invalid RECONCILE_SCHEDULE: %w", err)
	}
	if _, err := r.Location(); err != nil {
		return fmt.Errorf("invalid RECONCILE_TIMEZONE: %w", err)
	}
	if _, err := c.Search.Location(); err != nil {
		return fmt.Errorf("invalid SEARCH_TIMEZONE: %w", err)
	}

	return nil
}
