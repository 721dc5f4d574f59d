package database

import (
	"fmt"

	"listingsportal/server/internal/models"
)

func (d *Database) RunMigrations() error {
	postgis := d.db.Dialector.Name() == "postgres"

	if postgis {
		if err := d.db.Exec("CREATE EXTENSION IF NOT EXISTS postgis").Error; err != nil {
			return fmt.Errorf("failed to enable postgis: %w", err)
		}
	}

	if err := d.db.AutoMigrate(
		&models.Listing{},
		&models.Hoa{},
		&models.RealtorAgent{},
		&models.RealtorOffice{},
	); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	// Spatial index on the point column
	if postgis {
		if err := d.db.Exec(`
			CREATE INDEX IF NOT EXISTS idx_listings_location
			ON listings USING GIST ((location::geography));
		`).Error; err != nil {
			return fmt.Errorf("failed to create spatial index: %w", err)
		}
	}

	d.logger.WithField("dialect", d.db.Dialector.Name()).Info("Database migrations complete")
	return nil
}
