package models

import (
	"time"

	"listingsportal/server/internal/geometry"
)

// UnknownValue marks a numeric attribute the feed did not provide.
const UnknownValue = -1

// RentPriceThreshold is the price below which a listing is classified as a rental.
const RentPriceThreshold = 1000

type ListingType string

const (
	ListingTypeRent ListingType = "Rent"
	ListingTypeSale ListingType = "Sale"
)

// ClassifyPrice derives the listing type from its price.
func ClassifyPrice(price int64) ListingType {
	if price < RentPriceThreshold {
		return ListingTypeRent
	}
	return ListingTypeSale
}

// Valid reports whether t is one of the known listing types.
func (t ListingType) Valid() bool {
	return t == ListingTypeRent || t == ListingTypeSale
}

// Listing is a single property listing with its point location and optional owned sub-records.
type Listing struct {
	ID   int64       `gorm:"primaryKey"`
	GUID string      `gorm:"column:guid;uniqueIndex;not null"`
	Type ListingType `gorm:"index;not null"`

	AddressLine1 string
	AddressLine2 *string
	City         string
	State        string
	ZipCode      string
	County       string         `gorm:"index"`
	Location     geometry.Point `gorm:"not null"`

	PropertyType  string
	Bedrooms      float64
	Bathrooms     float64
	SquareFootage int
	LotSize       int
	YearBuilt     int

	Status       string
	Price        int64     `gorm:"index"`
	ListingType  string
	ListedDate   time.Time `gorm:"index"`
	DaysOnMarket int64

	MlsName   *string
	MlsNumber *string

	Hoa           *Hoa           `gorm:"foreignKey:ListingID;constraint:OnDelete:CASCADE"`
	ListingAgent  *RealtorAgent  `gorm:"foreignKey:ListingID;constraint:OnDelete:CASCADE"`
	ListingOffice *RealtorOffice `gorm:"foreignKey:ListingID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (l *Listing) Latitude() float64 {
	return l.Location.Lat()
}

func (l *Listing) Longitude() float64 {
	return l.Location.Lon()
}

// Hoa holds the monthly HOA fee of a listing.
type Hoa struct {
	ListingID int64 `gorm:"primaryKey;autoIncrement:false"`
	Fee       int
}

func (Hoa) TableName() string {
	return "hoa_fees"
}

// Contact is the shape shared by agent and office records.
type Contact struct {
	Name    string
	Phone   *string
	Email   *string
	Website *string
}

type RealtorAgent struct {
	ListingID int64 `gorm:"primaryKey;autoIncrement:false"`
	Contact   `gorm:"embedded"`
}

func (RealtorAgent) TableName() string {
	return "listing_agents"
}

type RealtorOffice struct {
	ListingID int64 `gorm:"primaryKey;autoIncrement:false"`
	Contact   `gorm:"embedded"`
}

func (RealtorOffice) TableName() string {
	return "listing_offices"
}
