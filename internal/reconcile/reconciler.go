package reconcile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"listingsportal/server/config"
	"listingsportal/server/internal/database"
	"listingsportal/server/internal/feed"
)

// FeedClient supplies the snapshot of active listings for one profile.
type FeedClient interface {
	FetchActiveListings(ctx context.Context, q feed.Query) ([]feed.Record, error)
}

// Result counts what one cycle did.
type Result struct {
	Fetched    int
	Duplicates int
	Inserted   int
	Updated    int
	Skipped    int
	Deleted    int
}

// Reconciler merges one feed snapshot into the store per cycle.
type Reconciler struct {
	db        *gorm.DB
	feed      FeedClient
	query     feed.Query
	retention time.Duration
	logger    *logrus.Logger
	now       func() time.Time
}

func NewReconciler(db *gorm.DB, client FeedClient, cfg config.ReconcileConfig, logger *logrus.Logger) (*Reconciler, error) {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	if cfg.RetentionDays <= 0 {
		return nil, fmt.Errorf("retention must be positive, got %d days", cfg.RetentionDays)
	}

	query, err := feed.QueryFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build feed query: %w", err)
	}

	return &Reconciler{
		db:        db,
		feed:      client,
		query:     query,
		retention: cfg.Retention(),
		logger:    logger,
		now:       time.Now,
	}, nil
}

// Run executes one cycle: fetch, collapse duplicates, upsert by natural key and
// sweep listings older than the retention window, all committed as one
// transaction. A fetch failure aborts the cycle with nothing written.
func (r *Reconciler) Run(ctx context.Context) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	now := r.now().UTC()
	cutoff := now.Add(-r.retention)

	r.logger.WithFields(logrus.Fields{
		"latitude":       r.query.Latitude,
		"longitude":      r.query.Longitude,
		"radius_miles":   r.query.RadiusMiles,
		"property_types": r.query.PropertyTypes,
		"days_old":       r.query.DaysOld,
		"retention":      r.retention.String(),
	}).Info("Starting reconciliation")

	records, err := r.feed.FetchActiveListings(ctx, r.query)
	switch {
	case errors.Is(err, feed.ErrEmptySnapshot):
		r.logger.Warn("Feed returned an empty snapshot, running retention sweep only")
	case err != nil:
		return nil, fmt.Errorf("failed to fetch feed snapshot: %w", err)
	}

	// Shutdown is honoured before the commit starts, never during it
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	incoming, duplicates := Deduplicate(records)
	result := &Result{Fetched: len(records), Duplicates: duplicates}

	err = r.db.WithContext(context.WithoutCancel(ctx)).Transaction(func(tx *gorm.DB) error {
		index, err := database.LoadGUIDIndex(tx)
		if err != nil {
			return err
		}

		for i := range incoming {
			listing := incoming[i].ToListing()
			if listing.GUID == "" {
				r.logger.WithFields(logrus.Fields{
					"city":   incoming[i].City,
					"county": incoming[i].County,
				}).Warn("Skipping feed record without id or street address")
				result.Skipped++
				continue
			}
			if listing.ListedDate.Before(cutoff) {
				result.Skipped++
				continue
			}

			if id, ok := index[listing.GUID]; ok {
				if err := database.ReplaceListing(tx, id, listing); err != nil {
					return err
				}
				result.Updated++
				continue
			}

			if err := database.InsertListing(tx, listing); err != nil {
				return err
			}
			index[listing.GUID] = listing.ID
			result.Inserted++
		}

		deleted, err := database.DeleteListedBefore(tx, cutoff)
		if err != nil {
			return err
		}
		result.Deleted = int(deleted)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to commit reconciliation: %w", err)
	}

	r.logger.WithFields(logrus.Fields{
		"fetched":    result.Fetched,
		"duplicates": result.Duplicates,
		"inserted":   result.Inserted,
		"updated":    result.Updated,
		"skipped":    result.Skipped,
		"deleted":    result.Deleted,
		"duration":   time.Since(start).String(),
	}).Info("Reconciliation complete")

	return result, nil
}

// Deduplicate keeps the first record of every natural key, preserving feed
// order, and reports how many records were dropped. Records without a key are
// kept so the caller can skip them.
func Deduplicate(records []feed.Record) ([]feed.Record, int) {
	seen := make(map[string]bool, len(records))
	unique := make([]feed.Record, 0, len(records))
	for _, rec := range records {
		guid := rec.GUID()
		if guid != "" && seen[guid] {
			continue
		}
		seen[guid] = true
		unique = append(unique, rec)
	}
	return unique, len(records) - len(unique)
}
