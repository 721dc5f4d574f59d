package search

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"listingsportal/server/internal/database"
	"listingsportal/server/internal/models"
)

// Result is one page of listings plus the size of the whole filtered set.
type Result struct {
	Items      []models.Listing
	Page       int
	PageSize   int
	TotalCount int64
}

// Engine answers listing queries. It holds no mutable state and is safe for concurrent use.
type Engine struct {
	db       *database.Database
	logger   *logrus.Logger
	location *time.Location
	now      func() time.Time
}

// NewEngine creates a query engine; day boundaries for DaysOld are taken in location.
func NewEngine(db *database.Database, location *time.Location, logger *logrus.Logger) *Engine {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	if location == nil {
		location = time.UTC
	}

	return &Engine{
		db:       db,
		logger:   logger,
		location: location,
		now:      time.Now,
	}
}

// Search returns page of the listings matching filter, ordered by ID.
func (e *Engine) Search(ctx context.Context, filter Filter, page, pageSize int) (*Result, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	page, pageSize = ClampPage(page, pageSize)

	scope := e.filterScope(filter)

	var total int64
	if err := e.db.GetDB().WithContext(ctx).Model(&models.Listing{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count listings: %w", err)
	}

	items := make([]models.Listing, 0, pageSize)
	if offset, ok := pageOffset(page, pageSize, total); ok {
		err := e.db.GetDB().WithContext(ctx).
			Scopes(scope, database.WithSubRecords).
			Order("listings.id ASC").
			Offset(int(offset)).
			Limit(pageSize).
			Find(&items).Error
		if err != nil {
			return nil, fmt.Errorf("failed to query listings: %w", err)
		}
	}

	e.logger.WithFields(logrus.Fields{
		"type":        filter.Type,
		"page":        page,
		"page_size":   pageSize,
		"total_count": total,
	}).Debug("Listing search complete")

	return &Result{
		Items:      items,
		Page:       page,
		PageSize:   pageSize,
		TotalCount: total,
	}, nil
}

// pageOffset returns the row offset of page, or false when the page starts at or past total.
func pageOffset(page, pageSize int, total int64) (int64, bool) {
	if total <= 0 || int64(page-1) >= total/int64(pageSize)+1 {
		return 0, false
	}
	offset := int64(page-1) * int64(pageSize)
	return offset, offset < total
}

// Get returns a single listing with its sub-records or database.ErrListingNotFound.
func (e *Engine) Get(ctx context.Context, id int64) (*models.Listing, error) {
	return e.db.GetListingByID(ctx, id)
}

// EarliestListedDate is midnight of the current day in the engine's zone, daysOld days back.
func (e *Engine) EarliestListedDate(daysOld int) time.Time {
	now := e.now().In(e.location)
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, e.location)
	return midnight.AddDate(0, 0, -daysOld).UTC()
}

func (e *Engine) filterScope(f Filter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		db = db.Where("listings.type = ?", f.Type)

		if f.Area != nil && f.Area.RadiusMiles > 0 {
			db = db.Scopes(database.WithinRadius(f.Area.Latitude, f.Area.Longitude, f.Area.RadiusMiles))
		}
		if len(f.Counties) > 0 {
			db = db.Where("listings.county IN ?", f.Counties)
		}
		if f.MinBedrooms > 0 {
			db = db.Where("listings.bedrooms >= ?", f.MinBedrooms)
		}
		if f.MinBathrooms > 0 {
			db = db.Where("listings.bathrooms >= ?", f.MinBathrooms)
		}
		if f.DaysOld > 0 {
			db = db.Where("listings.listed_date >= ?", e.EarliestListedDate(f.DaysOld))
		}
		if f.YearBuilt > 0 {
			db = db.Where("listings.year_built >= ?", f.YearBuilt)
		}
		if f.SquareFootage > 0 {
			db = db.Where("listings.square_footage >= ?", f.SquareFootage)
		}
		if f.MinPrice > 0 {
			db = db.Where("listings.price >= ?", f.MinPrice)
		}
		if f.MaxPrice > 0 {
			db = db.Where("listings.price <= ?", f.MaxPrice)
		}
		return db
	}
}
