package geometry

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/ewkb"
	"github.com/paulmach/orb/geo"
	"github.com/umahmood/haversine"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"
)

// SRID is the spatial reference of every stored point (WGS 84).
const SRID = 4326

// MetersPerMile converts search radii to the units PostGIS expects.
const MetersPerMile = 1609.344

var ErrNotAPoint = errors.New("geometry is not a point")

// Point is a longitude/latitude location persisted as a point geometry column.
// On postgres the column is geometry(Point,4326); on sqlite it holds EWKB bytes.
type Point struct {
	orb.Point
}

func NewPoint(longitude, latitude float64) Point {
	return Point{Point: orb.Point{longitude, latitude}}
}

func (Point) GormDataType() string {
	return "geometry"
}

func (Point) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	switch db.Dialector.Name() {
	case "postgres":
		return fmt.Sprintf("geometry(Point,%d)", SRID)
	default:
		return "blob"
	}
}

// GormValue writes the point through the dialect's native constructor.
func (p Point) GormValue(ctx context.Context, db *gorm.DB) clause.Expr {
	if db.Dialector.Name() == "postgres" {
		return clause.Expr{
			SQL:  "ST_SetSRID(ST_MakePoint(?, ?), ?)",
			Vars: []interface{}{p.Lon(), p.Lat(), SRID},
		}
	}

	data, err := ewkb.Marshal(p.Point, SRID)
	if err != nil {
		db.AddError(fmt.Errorf("failed to encode point: %w", err))
		return clause.Expr{SQL: "NULL"}
	}
	return clause.Expr{SQL: "?", Vars: []interface{}{data}}
}

// Scan accepts binary EWKB (sqlite) and hex encoded EWKB (postgres text output).
func (p *Point) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	case nil:
		return errors.New("failed to scan point: NULL location")
	default:
		return fmt.Errorf("failed to scan point: unsupported type %T", src)
	}

	pt, err := DecodePoint(data)
	if err != nil {
		return err
	}
	p.Point = pt
	return nil
}

// DecodePoint parses EWKB, binary or hex encoded, into a point.
func DecodePoint(data []byte) (orb.Point, error) {
	if len(data) > 0 && data[0] == '0' {
		raw := make([]byte, hex.DecodedLen(len(data)))
		n, err := hex.Decode(raw, data)
		if err != nil {
			return orb.Point{}, fmt.Errorf("failed to decode hex geometry: %w", err)
		}
		data = raw[:n]
	}

	g, _, err := ewkb.Unmarshal(data)
	if err != nil {
		return orb.Point{}, fmt.Errorf("failed to decode geometry: %w", err)
	}
	pt, ok := g.(orb.Point)
	if !ok {
		return orb.Point{}, ErrNotAPoint
	}
	return pt, nil
}

// DistanceMiles is the great-circle distance between two points.
func DistanceMiles(a, b orb.Point) float64 {
	mi, _ := haversine.Distance(
		haversine.Coord{Lat: a.Lat(), Lon: a.Lon()},
		haversine.Coord{Lat: b.Lat(), Lon: b.Lon()},
	)
	return mi
}

// Destination returns the point reached by travelling miles along bearing (degrees) from origin.
func Destination(origin orb.Point, miles, bearing float64) orb.Point {
	return geo.PointAtBearingAndDistance(origin, bearing, miles*MetersPerMile)
}

// ValidCoordinate reports whether latitude and longitude are within WGS 84 bounds.
func ValidCoordinate(latitude, longitude float64) bool {
	return latitude >= -90 && latitude <= 90 && longitude >= -180 && longitude <= 180
}
