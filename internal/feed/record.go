package feed

import (
	"encoding/json"
	"strings"
	"time"

	"listingsportal/server/internal/geometry"
	"listingsportal/server/internal/models"
)

// Record is one listing as returned by the feed.
type Record struct {
	ID           string  `json:"id"`
	AddressLine1 string  `json:"addressLine1"`
	AddressLine2 *string `json:"addressLine2"`
	City         string  `json:"city"`
	State        string  `json:"state"`
	ZipCode      string  `json:"zipCode"`
	County       string  `json:"county"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`

	PropertyType  string     `json:"propertyType"`
	Bedrooms      float64    `json:"bedrooms"`
	Bathrooms     float64    `json:"bathrooms"`
	SquareFootage int        `json:"squareFootage"`
	LotSize       int        `json:"lotSize"`
	YearBuilt     int        `json:"yearBuilt"`
	Hoa           *HoaRecord `json:"hoa"`

	Status       string    `json:"status"`
	Price        int64     `json:"price"`
	ListingType  string    `json:"listingType"`
	ListedDate   time.Time `json:"listedDate"`
	DaysOnMarket int64     `json:"daysOnMarket"`

	MlsName       *string        `json:"mlsName"`
	MlsNumber     *string        `json:"mlsNumber"`
	ListingAgent  *ContactRecord `json:"listingAgent"`
	ListingOffice *ContactRecord `json:"listingOffice"`
}

type HoaRecord struct {
	Fee int `json:"fee"`
}

type ContactRecord struct {
	Name    string  `json:"name"`
	Phone   *string `json:"phone"`
	Email   *string `json:"email"`
	Website *string `json:"website"`
}

// UnmarshalJSON defaults the physical attributes to models.UnknownValue when the feed omits them.
func (r *Record) UnmarshalJSON(data []byte) error {
	type plain Record
	p := plain{
		Bedrooms:      models.UnknownValue,
		Bathrooms:     models.UnknownValue,
		SquareFootage: models.UnknownValue,
		LotSize:       models.UnknownValue,
		YearBuilt:     models.UnknownValue,
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*r = Record(p)
	return nil
}

// GUID is the natural key of the record: the feed id, or when that is blank
// the address in the feed's id format ("2005-Arborside-Dr,-Austin,-TX-78754").
// It is empty when the record has neither an id nor a street address.
func (r *Record) GUID() string {
	if id := strings.TrimSpace(r.ID); id != "" {
		return id
	}
	if strings.TrimSpace(r.AddressLine1) == "" {
		return ""
	}

	parts := []string{strings.TrimSpace(r.AddressLine1)}
	if r.AddressLine2 != nil && strings.TrimSpace(*r.AddressLine2) != "" {
		parts = append(parts, strings.TrimSpace(*r.AddressLine2))
	}
	parts = append(parts,
		strings.TrimSpace(r.City),
		strings.TrimSpace(strings.TrimSpace(r.State)+" "+strings.TrimSpace(r.ZipCode)),
	)
	return strings.Join(strings.Fields(strings.Join(parts, ", ")), "-")
}

// ToListing maps the record onto a new, unsaved listing.
func (r *Record) ToListing() *models.Listing {
	l := &models.Listing{
		GUID:          r.GUID(),
		Type:          models.ClassifyPrice(r.Price),
		AddressLine1:  r.AddressLine1,
		AddressLine2:  r.AddressLine2,
		City:          r.City,
		State:         r.State,
		ZipCode:       r.ZipCode,
		County:        r.County,
		Location:      geometry.NewPoint(r.Longitude, r.Latitude),
		PropertyType:  r.PropertyType,
		Bedrooms:      r.Bedrooms,
		Bathrooms:     r.Bathrooms,
		SquareFootage: r.SquareFootage,
		LotSize:       r.LotSize,
		YearBuilt:     r.YearBuilt,
		Status:        r.Status,
		Price:         r.Price,
		ListingType:   r.ListingType,
		ListedDate:    r.ListedDate.UTC().Truncate(time.Second),
		DaysOnMarket:  r.DaysOnMarket,
		MlsName:       r.MlsName,
		MlsNumber:     r.MlsNumber,
	}

	if r.Hoa != nil {
		l.Hoa = &models.Hoa{Fee: r.Hoa.Fee}
	}
	if r.ListingAgent != nil {
		l.ListingAgent = &models.RealtorAgent{Contact: r.ListingAgent.toContact()}
	}
	if r.ListingOffice != nil {
		l.ListingOffice = &models.RealtorOffice{Contact: r.ListingOffice.toContact()}
	}
	return l
}

func (c *ContactRecord) toContact() models.Contact {
	return models.Contact{
		Name:    c.Name,
		Phone:   c.Phone,
		Email:   c.Email,
		Website: c.Website,
	}
}
