package api

import (
	"time"

	"listingsportal/server/internal/models"
	"listingsportal/server/internal/search"
)

type ListingDTO struct {
	ID            int64       `json:"id"`
	GUID          string      `json:"guid"`
	Type          string      `json:"type"`
	AddressLine1  string      `json:"addressLine1"`
	AddressLine2  *string     `json:"addressLine2"`
	City          string      `json:"city"`
	State         string      `json:"state"`
	ZipCode       string      `json:"zipCode"`
	County        string      `json:"county"`
	Latitude      float64     `json:"latitude"`
	Longitude     float64     `json:"longitude"`
	PropertyType  string      `json:"propertyType"`
	Bedrooms      float64     `json:"bedrooms"`
	Bathrooms     float64     `json:"bathrooms"`
	SquareFootage int         `json:"squareFootage"`
	LotSize       int         `json:"lotSize"`
	YearBuilt     int         `json:"yearBuilt"`
	Hoa           *HoaDTO     `json:"hoa"`
	Status        string      `json:"status"`
	Price         int64       `json:"price"`
	ListingType   string      `json:"listingType"`
	ListedDate    time.Time   `json:"listedDate"`
	DaysOnMarket  int64       `json:"daysOnMarket"`
	MlsName       *string     `json:"mlsName"`
	MlsNumber     *string     `json:"mlsNumber"`
	ListingAgent  *RealtorDTO `json:"listingAgent"`
	ListingOffice *RealtorDTO `json:"listingOffice"`
}

type HoaDTO struct {
	Fee int `json:"fee"`
}

type RealtorDTO struct {
	Name    string  `json:"name"`
	Phone   *string `json:"phone"`
	Email   *string `json:"email"`
	Website *string `json:"website"`
}

type PageResponse struct {
	Page       int          `json:"page"`
	PageSize   int          `json:"pageSize"`
	TotalCount int64        `json:"totalCount"`
	Items      []ListingDTO `json:"items"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// NewListingDTO flattens the location and drops internal sub-record keys.
func NewListingDTO(l *models.Listing) ListingDTO {
	dto := ListingDTO{
		ID:            l.ID,
		GUID:          l.GUID,
		Type:          string(l.Type),
		AddressLine1:  l.AddressLine1,
		AddressLine2:  l.AddressLine2,
		City:          l.City,
		State:         l.State,
		ZipCode:       l.ZipCode,
		County:        l.County,
		Latitude:      l.Latitude(),
		Longitude:     l.Longitude(),
		PropertyType:  l.PropertyType,
		Bedrooms:      l.Bedrooms,
		Bathrooms:     l.Bathrooms,
		SquareFootage: l.SquareFootage,
		LotSize:       l.LotSize,
		YearBuilt:     l.YearBuilt,
		Status:        l.Status,
		Price:         l.Price,
		ListingType:   l.ListingType,
		ListedDate:    l.ListedDate.UTC(),
		DaysOnMarket:  l.DaysOnMarket,
		MlsName:       l.MlsName,
		MlsNumber:     l.MlsNumber,
	}

	if l.Hoa != nil {
		dto.Hoa = &HoaDTO{Fee: l.Hoa.Fee}
	}
	if l.ListingAgent != nil {
		dto.ListingAgent = newRealtorDTO(l.ListingAgent.Contact)
	}
	if l.ListingOffice != nil {
		dto.ListingOffice = newRealtorDTO(l.ListingOffice.Contact)
	}
	return dto
}

func newRealtorDTO(c models.Contact) *RealtorDTO {
	return &RealtorDTO{
		Name:    c.Name,
		Phone:   c.Phone,
		Email:   c.Email,
		Website: c.Website,
	}
}

func newPageResponse(result *search.Result) PageResponse {
	items := make([]ListingDTO, 0, len(result.Items))
	for i := range result.Items {
		items = append(items, NewListingDTO(&result.Items[i]))
	}
	return PageResponse{
		Page:       result.Page,
		PageSize:   result.PageSize,
		TotalCount: result.TotalCount,
		Items:      items,
	}
}
