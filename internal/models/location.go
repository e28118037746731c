package models

import (
	"fmt"
	"time"
)

// Location represents a single physical address together with its resolved coordinates.
// Latitude and Longitude stay nil until the address has been geocoded.
type Location struct {
	ID        int64     `json:"id"`
	Street    string    `json:"street" validate:"required"`
	City      string    `json:"city" validate:"required"`
	State     string    `json:"state" validate:"required,len=2,alpha,uppercase"`
	Zip       string    `json:"zip" validate:"required,len=5,number"`
	Latitude  *float64  `json:"latitude" validate:"required,latitude"`
	Longitude *float64  `json:"longitude" validate:"required,longitude"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Coordinates is a point in conventional latitude/longitude order.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// NewLocation builds an unpersisted location from the normalized form of addr.
func NewLocation(addr Address) *Location {
	n := addr.Normalize()
	return &Location{
		Street: n.Street,
		City:   n.City,
		State:  n.State,
		Zip:    n.Zip,
	}
}

// Address returns the address fields of the location.
func (l *Location) Address() Address {
	return Address{Street: l.Street, City: l.City, State: l.State, Zip: l.Zip}
}

// Normalize rewrites the address fields into their canonical form.
func (l *Location) Normalize() {
	n := l.Address().Normalize()
	l.Street, l.City, l.State, l.Zip = n.Street, n.City, n.State, n.Zip
}

// Persisted reports whether the location has been stored.
func (l *Location) Persisted() bool {
	return l.ID != 0
}

// Resolved reports whether both coordinates are set.
func (l *Location) Resolved() bool {
	return l.Latitude != nil && l.Longitude != nil
}

// SetCoordinates attaches a geocoding result to the location.
func (l *Location) SetCoordinates(c Coordinates) {
	lat, lon := c.Latitude, c.Longitude
	l.Latitude = &lat
	l.Longitude = &lon
}

// Coordinates returns the resolved point. ok is false for an unresolved location.
func (l *Location) Coordinates() (c Coordinates, ok bool) {
	if !l.Resolved() {
		return Coordinates{}, false
	}
	return Coordinates{Latitude: *l.Latitude, Longitude: *l.Longitude}, true
}

// FormattedAddress renders the location the way it is shown to users,
// e.g. "315 Bowery, New York, NY 10003".
func (l *Location) FormattedAddress() string {
	return fmt.Sprintf("%s, %s, %s %s", titleCase(l.Street), titleCase(l.City), l.State, l.Zip)
}
