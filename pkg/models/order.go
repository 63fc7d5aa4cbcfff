package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type OrderStatus string

const (
	OrderStatusNew        OrderStatus = "new"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusRestaurant OrderStatus = "restaurant"
	OrderStatusDelivery   OrderStatus = "delivery"
	OrderStatusCompleted  OrderStatus = "completed"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusNew, OrderStatusProcessing, OrderStatusRestaurant, OrderStatusDelivery, OrderStatusCompleted:
		return true
	}
	return false
}

type PaymentMethod string

const (
	PaymentElectronic PaymentMethod = "electronic"
	PaymentCash       PaymentMethod = "cash"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentElectronic || m == PaymentCash
}

type Order struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	FirstName     string          `gorm:"type:varchar(50);not null" json:"firstname"`
	LastName      string          `gorm:"type:varchar(50);not null" json:"lastname"`
	PhoneNumber   string          `gorm:"type:varchar(20);not null" json:"phonenumber"`
	Address       string          `gorm:"type:varchar(200);not null" json:"address"`
	Comment       string          `gorm:"type:text" json:"comment"`
	Status        OrderStatus     `gorm:"type:varchar(20);not null;default:'new';index" json:"status"`
	PaymentMethod PaymentMethod   `gorm:"type:varchar(20);not null;default:'cash';index" json:"payment_method"`
	RestaurantID  *uint           `gorm:"index" json:"restaurant_id"`
	Restaurant    *Restaurant     `json:"restaurant,omitempty"`
	TotalPrice    decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total_price"`
	Items         []OrderItem     `json:"items,omitempty"`
	CreatedAt     time.Time       `gorm:"index" json:"created_at"`
	CalledAt      *time.Time      `json:"called_at"`
	DeliveredAt   *time.Time      `json:"delivered_at"`
}

func (Order) TableName() string {
	return "orders"
}

// OrderItem is one line of an order. Price is a snapshot of the product
// price taken when the item is created and is never re-derived afterwards.
type OrderItem struct {
	ID        uint     `gorm:"primaryKey" json:"id"`
	OrderID   uint     `gorm:"not null;index" json:"order_id"`
	ProductID uint     `gorm:"not null;index" json:"product_id"`
	Product   *Product `json:"product,omitempty"`
	Quantity  int      `gorm:"not null" json:"quantity"`
	// Price is the unit price at the moment the item was created and never
	// follows later product price changes. A zero price on insert counts as
	// unset and is replaced by the current product price.
	Price decimal.Decimal `gorm:"type:decimal(8,2);not null" json:"price"`
}

func (OrderItem) TableName() string {
	return "order_items"
}

func (i *OrderItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

func (i *OrderItem) BeforeCreate(tx *gorm.DB) error {
	if i.Quantity <= 0 {
		return fmt.Errorf("order item quantity must be positive, got %d", i.Quantity)
	}
	if !i.Price.IsZero() {
		return nil
	}

	var product Product
	err := tx.Session(&gorm.Session{NewDB: true}).
		Select("id", "price").
		First(&product, i.ProductID).Error
	if err != nil {
		return fmt.Errorf("failed to snapshot price of product %d: %w", i.ProductID, err)
	}
	i.Price = product.Price
	return nil
}

func (i *OrderItem) AfterCreate(tx *gorm.DB) error {
	_, err := RecalculateTotal(tx, i.OrderID)
	return err
}

func (i *OrderItem) AfterUpdate(tx *gorm.DB) error {
	_, err := RecalculateTotal(tx, i.OrderID)
	return err
}

func (i *OrderItem) AfterDelete(tx *gorm.DB) error {
	_, err := RecalculateTotal(tx, i.OrderID)
	return err
}

// SumItems returns Σ(quantity × price) over items, zero for none.
func SumItems(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for i := range items {
		total = total.Add(items[i].Subtotal())
	}
	return total
}

// RecalculateTotal recomputes the order total from its current items and
// stores it on the order row. Safe to call repeatedly.
func RecalculateTotal(tx *gorm.DB, orderID uint) (decimal.Decimal, error) {
	if orderID == 0 {
		return decimal.Zero, nil
	}
	db := tx.Session(&gorm.Session{NewDB: true})

	var items []OrderItem
	if err := db.Where("order_id = ?", orderID).Find(&items).Error; err != nil {
		return decimal.Zero, fmt.Errorf("failed to load items of order %d: %w", orderID, err)
	}

	total := SumItems(items)
	if err := db.Model(&Order{}).Where("id = ?", orderID).Update("total_price", total).Error; err != nil {
		return decimal.Zero, fmt.Errorf("failed to store total of order %d: %w", orderID, err)
	}
	return total, nil
}
