package search

import (
	"errors"
	"fmt"
	"strings"

	"listingsportal/server/internal/geometry"
	"listingsportal/server/internal/models"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 50
)

// NoPriceBound disables the minimum or maximum price predicate.
const NoPriceBound = -1

var ErrInvalidFilter = errors.New("invalid search filter")

// ValidationError describes a filter rejected before any query runs.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidFilter
}

func invalid(format string, args ...interface{}) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// Area is a circular search region. A radius of zero or less disables the distance predicate.
type Area struct {
	Latitude    float64
	Longitude   float64
	RadiusMiles float64
}

// Filter selects listings. Exactly one of Area or Counties must be set.
// Numeric bounds of zero or less are ignored.
type Filter struct {
	Type     models.ListingType
	Area     *Area
	Counties []string

	MinBedrooms   float64
	MinBathrooms  float64
	DaysOld       int
	MinPrice      int64
	MaxPrice      int64
	YearBuilt     int
	SquareFootage int
}

// NewFilter returns a rental filter with both price bounds disabled.
func NewFilter() Filter {
	return Filter{
		Type:     models.ListingTypeRent,
		MinPrice: NoPriceBound,
		MaxPrice: NoPriceBound,
	}
}

func (f *Filter) Validate() error {
	if f.Type == "" {
		f.Type = models.ListingTypeRent
	}
	if !f.Type.Valid() {
		return invalid("unknown listing type %q", f.Type)
	}

	switch {
	case f.Area == nil && len(f.Counties) == 0:
		return invalid("either latitude, longitude and radius or at least one county is required")
	case f.Area != nil && len(f.Counties) > 0:
		return invalid("search by location or by counties, not both")
	case f.Area != nil && !geometry.ValidCoordinate(f.Area.Latitude, f.Area.Longitude):
		return invalid("invalid coordinates (%v, %v)", f.Area.Latitude, f.Area.Longitude)
	}
	return nil
}

// ClampPage applies the pagination bounds: page at least 1, page size within [1, MaxPageSize].
func ClampPage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return page, pageSize
}

// ParseCounties flattens repeated county values, each of which may hold several
// names delimited by '|'. Blank names are dropped and duplicates collapsed.
func ParseCounties(values []string) []string {
	seen := make(map[string]bool)
	var counties []string
	for _, value := range values {
		for _, name := range strings.Split(value, "|") {
			name = strings.TrimSpace(name)
			if name == "" || seen[name] {
				continue
			}
			seen[name] = true
			counties = append(counties, name)
		}
	}
	return counties
}
