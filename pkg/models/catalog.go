package models

import (
	"github.com/shopspring/decimal"
)

type ProductCategory struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"type:varchar(50);not null" json:"name"`
}

func (ProductCategory) TableName() string {
	return "product_categories"
}

type Product struct {
	ID            uint                 `gorm:"primaryKey" json:"id"`
	Name          string               `gorm:"type:varchar(50);not null" json:"name"`
	CategoryID    *uint                `gorm:"index" json:"category_id"`
	Category      *ProductCategory     `json:"category,omitempty"`
	Price         decimal.Decimal      `gorm:"type:decimal(8,2);not null" json:"price"`
	Image         string               `gorm:"type:varchar(255)" json:"image"`
	SpecialStatus bool                 `gorm:"not null;index" json:"special_status"`
	Description   string               `gorm:"type:varchar(200)" json:"description"`
	IsAvailable   bool                 `gorm:"not null;index" json:"is_available"`
	MenuItems     []RestaurantMenuItem `json:"-"`
}

func (Product) TableName() string {
	return "products"
}

type Restaurant struct {
	ID           uint                 `gorm:"primaryKey" json:"id"`
	Name         string               `gorm:"type:varchar(50);not null" json:"name"`
	Address      string               `gorm:"type:varchar(100)" json:"address"`
	ContactPhone string               `gorm:"type:varchar(50)" json:"contact_phone"`
	MenuItems    []RestaurantMenuItem `json:"-"`
}

func (Restaurant) TableName() string {
	return "restaurants"
}

// RestaurantMenuItem says whether a restaurant currently sells a product.
// A (restaurant, product) pair appears at most once.
type RestaurantMenuItem struct {
	ID           uint        `gorm:"primaryKey" json:"id"`
	RestaurantID uint        `gorm:"not null;uniqueIndex:idx_menu_restaurant_product" json:"restaurant_id"`
	Restaurant   *Restaurant `json:"-"`
	ProductID    uint        `gorm:"not null;uniqueIndex:idx_menu_restaurant_product" json:"product_id"`
	Product      *Product    `json:"-"`
	Availability bool        `gorm:"not null;index" json:"availability"`
}

func (RestaurantMenuItem) TableName() string {
	return "restaurant_menu_items"
}
