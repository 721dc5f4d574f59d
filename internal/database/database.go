package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/paulmach/orb"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"listingsportal/server/config"
	"listingsportal/server/internal/geometry"
)

// sqliteDriverName is the go-sqlite3 driver with the geo_distance_miles function registered.
const sqliteDriverName = "sqlite3_listings"

func init() {
	sql.Register(sqliteDriverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("geo_distance_miles", distanceMiles, true)
		},
	})
}

// distanceMiles backs geo_distance_miles(location, latitude, longitude) on sqlite.
func distanceMiles(location []byte, latitude, longitude float64) (float64, error) {
	pt, err := geometry.DecodePoint(location)
	if err != nil {
		return 0, err
	}
	return geometry.DistanceMiles(pt, orb.Point{longitude, latitude}), nil
}

type Database struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// NewDatabase opens the configured store. Queries are logged through logger at warn level.
func NewDatabase(cfg config.DatabaseConfig, logger *logrus.Logger) (*Database, error) {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}

	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	case "sqlite", "":
		dialector = sqlite.New(sqlite.Config{
			DriverName: sqliteDriverName,
			DSN:        sqliteDSN(cfg.DSN),
		})
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.New(logger, gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", dialector.Name(), err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access connection pool: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	return &Database{db: db, logger: logger}, nil
}

// sqliteDSN enables foreign keys so sub-records cascade with their listing.
func sqliteDSN(dsn string) string {
	params := "_foreign_keys=on&_busy_timeout=5000"
	if strings.Contains(dsn, "?") {
		return dsn + "&" + params
	}
	return dsn + "?" + params
}

func (d *Database) GetDB() *gorm.DB {
	return d.db
}

func (d *Database) Ping(ctx context.Context) error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// WithinRadius restricts a listings query to points within miles of the given center.
func WithinRadius(latitude, longitude, miles float64) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if db.Dialector.Name() == "postgres" {
			return db.Where(
				"ST_DWithin(listings.location::geography, ST_SetSRID(ST_MakePoint(?, ?), 4326)::geography, ?)",
				longitude, latitude, miles*geometry.MetersPerMile,
			)
		}
		return db.Where("geo_distance_miles(listings.location, ?, ?) <= ?", latitude, longitude, miles)
	}
}

// WithSubRecords preloads the HOA fee and realtor contacts.
func WithSubRecords(db *gorm.DB) *gorm.DB {
	return db.Preload("Hoa").Preload("ListingAgent").Preload("ListingOffice")
}

// IsNotFound reports whether err signals a missing listing.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrListingNotFound) || errors.Is(err, gorm.ErrRecordNotFound)
}
