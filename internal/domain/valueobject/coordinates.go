package valueobject

import (
	"github.com/golang/geo/s2"

	"github.com/ignatzorin/citesignal-backend/internal/pkg/apperror"
)

// Coordinates точка на карте в градусах WGS84.
type Coordinates struct {
	Latitude  float64
	Longitude float64
}

// NewCoordinates проверяет, что широта и долгота задают существующую точку.
func NewCoordinates(lat, lng float64) (Coordinates, error) {
	if !s2.LatLngFromDegrees(lat, lng).IsValid() {
		return Coordinates{}, apperror.Validation("coordinates are out of range")
	}
	return Coordinates{Latitude: lat, Longitude: lng}, nil
}

// NewOptionalCoordinates допускает отсутствие обеих координат, но не одной из них.
func NewOptionalCoordinates(lat, lng *float64) (*Coordinates, error) {
	if lat == nil && lng == nil {
		return nil, nil
	}
	if lat == nil || lng == nil {
		return nil, apperror.Validation("latitude and longitude must be provided together")
	}
	c, err := NewCoordinates(*lat, *lng)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Equal сравнивает две необязательные точки.
func (c *Coordinates) Equal(other *Coordinates) bool {
	if c == nil || other == nil {
		return c == nil && other == nil
	}
	return c.Latitude == other.Latitude && c.Longitude == other.Longitude
}
