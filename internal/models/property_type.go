package models

import (
	"fmt"
	"strings"
)

// PropertyType is a property category understood by the listing feed.
type PropertyType int

const (
	SingleFamily PropertyType = iota
	Condo
	Townhouse
	Manufactured
	MultiFamily
	Apartment
	Land
)

var propertyTypeNames = map[PropertyType]string{
	SingleFamily: "Single Family",
	Condo:        "Condo",
	Townhouse:    "Townhouse",
	Manufactured: "Manufactured",
	MultiFamily:  "Multi-Family",
	Apartment:    "Apartment",
	Land:         "Land",
}

// String returns the feed's description of the property type.
func (p PropertyType) String() string {
	if name, ok := propertyTypeNames[p]; ok {
		return name
	}
	return "Unknown"
}

func normalizePropertyType(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "", "-", "", "_", "").Replace(s)
}

// ParsePropertyType accepts either the description ("Single Family") or the
// identifier ("SingleFamily"), case-insensitively.
func ParsePropertyType(s string) (PropertyType, error) {
	key := normalizePropertyType(s)
	for p, name := range propertyTypeNames {
		if normalizePropertyType(name) == key {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown property type %q", s)
}

// ParsePropertyTypes parses every entry of names, skipping blanks.
func ParsePropertyTypes(names []string) ([]PropertyType, error) {
	types := make([]PropertyType, 0, len(names))
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			continue
		}
		p, err := ParsePropertyType(name)
		if err != nil {
			return nil, err
		}
		types = append(types, p)
	}
	return types, nil
}
