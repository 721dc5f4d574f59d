package feed

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"listingsportal/server/internal/models"
)

const fullRecord = `{
	"id": "3821-Hargis-St,-Austin,-TX-78723",
	"addressLine1": "3821 Hargis St",
	"addressLine2": "Apt 2",
	"city": "Austin",
	"state": "TX",
	"zipCode": "78723",
	"county": "Travis",
	"latitude": 30.290643,
	"longitude": -97.701547,
	"propertyType": "Single Family",
	"bedrooms": 4,
	"bathrooms": 2.5,
	"squareFootage": 2345,
	"lotSize": 3284,
	"yearBuilt": 2008,
	"hoa": {"fee": 175},
	"status": "Active",
	"price": 2899,
	"listingType": "Standard",
	"listedDate": "2024-09-18T00:00:00.000Z",
	"daysOnMarket": 90,
	"mlsName": "CentralTexas",
	"mlsNumber": "556965",
	"listingAgent": {"name": "Zachary Barton", "phone": "5129948203", "email": "zak-barton@realtytexas.co", "website": "https://zak-barton.realtytexas.homes"},
	"listingOffice": {"name": "Realty Texas"}
}`

func TestRecord_UnmarshalDefaults(t *testing.T) {
	var r Record
	require.NoError(t, json.Unmarshal([]byte(`{"id": "x", "price": 900, "bedrooms": null}`), &r))

	assert.Equal(t, float64(models.UnknownValue), r.Bedrooms)
	assert.Equal(t, float64(models.UnknownValue), r.Bathrooms)
	assert.Equal(t, models.UnknownValue, r.SquareFootage)
	assert.Equal(t, models.UnknownValue, r.LotSize)
	assert.Equal(t, models.UnknownValue, r.YearBuilt)
	assert.Nil(t, r.Hoa)
	assert.Nil(t, r.ListingAgent)
}

func TestRecord_GUID(t *testing.T) {
	unit := "Unit 4B"
	blank := "  "

	tests := []struct {
		name   string
		record Record
		want   string
	}{
		{name: "feed id", record: Record{ID: " 2005-Arborside-Dr,-Austin,-TX-78754 "}, want: "2005-Arborside-Dr,-Austin,-TX-78754"},
		{
			name:   "derived from address",
			record: Record{AddressLine1: "2005 Arborside Dr", City: "Austin", State: "TX", ZipCode: "78754"},
			want:   "2005-Arborside-Dr,-Austin,-TX-78754",
		},
		{
			name:   "derived with unit",
			record: Record{AddressLine1: "10 W 66th St", AddressLine2: &unit, City: "New York", State: "NY", ZipCode: "10023"},
			want:   "10-W-66th-St,-Unit-4B,-New-York,-NY-10023",
		},
		{
			name:   "blank unit ignored",
			record: Record{AddressLine1: "10 W 66th St", AddressLine2: &blank, City: "New York", State: "NY", ZipCode: "10023"},
			want:   "10-W-66th-St,-New-York,-NY-10023",
		},
		{name: "no id or address", record: Record{}, want: ""},
		{
			name:   "no street line",
			record: Record{ID: "  ", AddressLine2: &unit, City: "Austin", State: "TX", ZipCode: "78754"},
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.record.GUID())
		})
	}
}

func TestRecord_ToListing(t *testing.T) {
	var r Record
	require.NoError(t, json.Unmarshal([]byte(fullRecord), &r))

	l := r.ToListing()
	assert.Zero(t, l.ID)
	assert.Equal(t, "3821-Hargis-St,-Austin,-TX-78723", l.GUID)
	assert.Equal(t, models.ListingTypeSale, l.Type)
	assert.Equal(t, "Apt 2", *l.AddressLine2)
	assert.Equal(t, "Travis", l.County)
	assert.InDelta(t, 30.290643, l.Latitude(), 1e-9)
	assert.InDelta(t, -97.701547, l.Longitude(), 1e-9)
	assert.Equal(t, 2.5, l.Bathrooms)
	assert.Equal(t, 3284, l.LotSize)
	assert.Equal(t, time.Date(2024, 9, 18, 0, 0, 0, 0, time.UTC), l.ListedDate)
	assert.Equal(t, int64(90), l.DaysOnMarket)
	assert.Equal(t, "556965", *l.MlsNumber)

	require.NotNil(t, l.Hoa)
	assert.Equal(t, 175, l.Hoa.Fee)
	require.NotNil(t, l.ListingAgent)
	assert.Equal(t, "Zachary Barton", l.ListingAgent.Name)
	assert.Equal(t, "5129948203", *l.ListingAgent.Phone)
	require.NotNil(t, l.ListingOffice)
	assert.Equal(t, "Realty Texas", l.ListingOffice.Name)
	assert.Nil(t, l.ListingOffice.Email)
}

func TestRecord_ToListingClassification(t *testing.T) {
	tests := []struct {
		price int64
		want  models.ListingType
	}{
		{price: 999, want: models.ListingTypeRent},
		{price: 1000, want: models.ListingTypeSale},
	}

	for _, tt := range tests {
		r := Record{ID: "x", Price: tt.price}
		assert.Equal(t, tt.want, r.ToListing().Type, "price %d", tt.price)
	}
}
