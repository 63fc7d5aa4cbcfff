package models

import (
	"time"

	"github.com/example/foodcart/pkg/geo"
)

// AddressCoordinates caches a geocoding result keyed by the raw address
// text. Nil Latitude/Longitude records a failed or empty lookup.
type AddressCoordinates struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	Address   string    `gorm:"type:varchar(200);not null;uniqueIndex" json:"address"`
	Latitude  *float64  `json:"latitude"`
	Longitude *float64  `json:"longitude"`
	UpdatedAt time.Time `gorm:"autoUpdateTime:false;index" json:"updated_at"`
}

func (AddressCoordinates) TableName() string {
	return "address_coordinates"
}

func (c *AddressCoordinates) Point() *geo.Point {
	if c == nil || c.Latitude == nil || c.Longitude == nil {
		return nil
	}
	return &geo.Point{Lat: *c.Latitude, Lon: *c.Longitude}
}

func (c *AddressCoordinates) Stale(now time.Time, ttl time.Duration) bool {
	return now.Sub(c.UpdatedAt) > ttl
}

// AllModels lists every table for AutoMigrate.
func AllModels() []interface{} {
	return []interface{}{
		&ProductCategory{},
		&Product{},
		&Restaurant{},
		&RestaurantMenuItem{},
		&Order{},
		&OrderItem{},
		&AddressCoordinates{},
	}
}
