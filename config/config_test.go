package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "5250", cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 500, cfg.Feed.PageLimit)
	assert.Equal(t, 30*time.Second, cfg.Feed.Timeout)
	assert.Equal(t, 40.878379, cfg.Reconcile.Latitude)
	assert.Equal(t, -73.881924, cfg.Reconcile.Longitude)
	assert.Equal(t, []string{"Single Family", "Condo", "Townhouse", "Multi-Family", "Apartment"}, cfg.Reconcile.PropertyTypes)
	assert.Equal(t, 30*24*time.Hour, cfg.Reconcile.Retention())
	assert.Equal(t, "0 3 * * *", cfg.Reconcile.Schedule)
	assert.Equal(t, "America/New_York", cfg.Search.TimeZone)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_DotEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	content := "RECONCILE_RETENTION_DAYS=7\nFEED_INCLUDE_SALE=true\nRECONCILE_PROPERTY_TYPES=Condo,Land\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("RECONCILE_RETENTION_DAYS")
		os.Unsetenv("FEED_INCLUDE_SALE")
		os.Unsetenv("RECONCILE_PROPERTY_TYPES")
	})

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Reconcile.RetentionDays)
	assert.True(t, cfg.Feed.IncludeSale)
	assert.Equal(t, []string{"Condo", "Land"}, cfg.Reconcile.PropertyTypes)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		errMsg string
	}{
		{name: "unknown driver", modify: func(c *Config) { c.Database.Driver = "mysql" }, errMsg: "unsupported DB_DRIVER"},
		{name: "empty dsn", modify: func(c *Config) { c.Database.DSN = " " }, errMsg: "DB_DSN is required"},
		{name: "page limit too large", modify: func(c *Config) { c.Feed.PageLimit = 501 }, errMsg: "FEED_PAGE_LIMIT"},
		{name: "no pages", modify: func(c *Config) { c.Feed.MaxPages = 0 }, errMsg: "FEED_MAX_PAGES"},
		{name: "bad center", modify: func(c *Config) { c.Reconcile.Latitude = 120 }, errMsg: "invalid reconcile center"},
		{name: "zero radius", modify: func(c *Config) { c.Reconcile.RadiusMiles = 0 }, errMsg: "RECONCILE_RADIUS"},
		{name: "unknown property type", modify: func(c *Config) { c.Reconcile.PropertyTypes = []string{"Castle"} }, errMsg: "RECONCILE_PROPERTY_TYPES"},
		{name: "zero retention", modify: func(c *Config) { c.Reconcile.RetentionDays = 0 }, errMsg: "RECONCILE_RETENTION_DAYS"},
		{name: "bad schedule", modify: func(c *Config) { c.Reconcile.Schedule = "every day" }, errMsg: "RECONCILE_SCHEDULE"},
		{name: "bad reconcile zone", modify: func(c *Config) { c.Reconcile.TimeZone = "Mars/Olympus" }, errMsg: "RECONCILE_TIMEZONE"},
		{name: "bad search zone", modify: func(c *Config) { c.Search.TimeZone = "Mars/Olympus" }, errMsg: "SEARCH_TIMEZONE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
			require.NoError(t, err)

			tt.modify(cfg)
			err = cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
