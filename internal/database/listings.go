package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"listingsportal/server/internal/models"
)

var ErrListingNotFound = errors.New("listing not found")

// GetListingByID loads one listing with all of its sub-records.
func (d *Database) GetListingByID(ctx context.Context, id int64) (*models.Listing, error) {
	var listing models.Listing
	err := d.db.WithContext(ctx).Scopes(WithSubRecords).First(&listing, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrListingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get listing %d: %w", id, err)
	}
	return &listing, nil
}

// InsertListings writes listings and their sub-records in one transaction.
func (d *Database) InsertListings(ctx context.Context, listings []*models.Listing) error {
	if len(listings) == 0 {
		return nil
	}
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, l := range listings {
			if err := InsertListing(tx, l); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteListing removes a listing together with its sub-records.
func (d *Database) DeleteListing(ctx context.Context, id int64) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := deleteSubRecords(tx, tx.Model(&models.Listing{}).Select("id").Where("id = ?", id)); err != nil {
			return err
		}
		result := tx.Delete(&models.Listing{}, id)
		if result.Error != nil {
			return fmt.Errorf("failed to delete listing %d: %w", id, result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrListingNotFound
		}
		return nil
	})
}

// LoadGUIDIndex maps the natural key of every stored listing to its internal ID.
func LoadGUIDIndex(tx *gorm.DB) (map[string]int64, error) {
	var rows []struct {
		ID   int64  `gorm:"column:id"`
		GUID string `gorm:"column:guid"`
	}
	if err := tx.Model(&models.Listing{}).Select("id", "guid").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load listing keys: %w", err)
	}

	index := make(map[string]int64, len(rows))
	for _, r := range rows {
		index[r.GUID] = r.ID
	}
	return index, nil
}

// InsertListing creates a new listing; its sub-records are created with it.
func InsertListing(tx *gorm.DB, l *models.Listing) error {
	l.ID = 0
	l.ListedDate = l.ListedDate.UTC()
	if err := tx.Create(l).Error; err != nil {
		return fmt.Errorf("failed to insert listing %s: %w", l.GUID, err)
	}
	return nil
}

// ReplaceListing overwrites every mutable column of listing id with l and
// replaces its sub-records. The internal ID and creation time are preserved.
func ReplaceListing(tx *gorm.DB, id int64, l *models.Listing) error {
	l.ID = id
	l.ListedDate = l.ListedDate.UTC()
	result := tx.Model(l).
		Select("*").
		Omit("ID", "CreatedAt", clause.Associations).
		Updates(l)
	if result.Error != nil {
		return fmt.Errorf("failed to update listing %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("failed to update listing %d: %w", id, ErrListingNotFound)
	}

	if err := deleteSubRecords(tx, id); err != nil {
		return err
	}
	return createSubRecords(tx, l)
}

// DeleteListedBefore removes every listing listed before cutoff and returns how many were deleted.
func DeleteListedBefore(tx *gorm.DB, cutoff time.Time) (int64, error) {
	cutoff = cutoff.UTC()
	stale := tx.Model(&models.Listing{}).Select("id").Where("listed_date < ?", cutoff)
	if err := deleteSubRecords(tx, stale); err != nil {
		return 0, err
	}

	result := tx.Where("listed_date < ?", cutoff).Delete(&models.Listing{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete stale listings: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// deleteSubRecords removes HOA and contact rows owned by ids, which is either a
// single listing id or a subquery selecting listing ids.
func deleteSubRecords(tx *gorm.DB, ids interface{}) error {
	query := "listing_id = ?"
	if _, ok := ids.(*gorm.DB); ok {
		query = "listing_id IN (?)"
	}

	for _, model := range []interface{}{&models.Hoa{}, &models.RealtorAgent{}, &models.RealtorOffice{}} {
		if err := tx.Where(query, ids).Delete(model).Error; err != nil {
			return fmt.Errorf("failed to delete %T records: %w", model, err)
		}
	}
	return nil
}

func createSubRecords(tx *gorm.DB, l *models.Listing) error {
	if l.Hoa != nil {
		l.Hoa.ListingID = l.ID
		if err := tx.Create(l.Hoa).Error; err != nil {
			return fmt.Errorf("failed to save hoa for listing %d: %w", l.ID, err)
		}
	}
	if l.ListingAgent != nil {
		l.ListingAgent.ListingID = l.ID
		if err := tx.Create(l.ListingAgent).Error; err != nil {
			return fmt.Errorf("failed to save agent for listing %d: %w", l.ID, err)
		}
	}
	if l.ListingOffice != nil {
		l.ListingOffice.ListingID = l.ID
		if err := tx.Create(l.ListingOffice).Error; err != nil {
			return fmt.Errorf("failed to save office for listing %d: %w", l.ID, err)
		}
	}
	return nil
}
