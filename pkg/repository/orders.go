package repository

import (
	"context"

	"github.com/example/foodcart/pkg/models"
	"gorm.io/gorm"
)

type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) DB() *gorm.DB {
	return r.db
}

func (r *OrderRepository) CreateOrder(tx *gorm.DB, o *models.Order) error {
	return tx.Omit("Items", "Restaurant").Create(o).Error
}

func (r *OrderRepository) CreateOrderItem(tx *gorm.DB, item *models.OrderItem) error {
	return tx.Omit("Product").Create(item).Error
}

func (r *OrderRepository) GetOrder(ctx context.Context, id uint) (*models.Order, error) {
	var o models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("order_items.id") }).
		Preload("Items.Product").
		Preload("Restaurant").
		First(&o, id).Error
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// ListActiveOrders returns every order that is not completed, newest first.
func (r *OrderRepository) ListActiveOrders(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Where("status <> ?", models.OrderStatusCompleted).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("order_items.id") }).
		Preload("Items.Product").
		Preload("Restaurant").
		Order("created_at DESC").Order("id DESC").
		Find(&orders).Error
	return orders, err
}

// UpdateOrder writes fields to the order row only; loaded associations on o
// are left alone.
func (r *OrderRepository) UpdateOrder(tx *gorm.DB, o *models.Order, fields map[string]interface{}) error {
	return tx.Model(&models.Order{}).Where("id = ?", o.ID).Updates(fields).Error
}

func (r *OrderRepository) GetOrderItem(ctx context.Context, orderID, itemID uint) (*models.OrderItem, error) {
	var item models.OrderItem
	if err := r.db.WithContext(ctx).Where("id = ? AND order_id = ?", itemID, orderID).First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *OrderRepository) UpdateItemQuantity(tx *gorm.DB, item *models.OrderItem, quantity int) error {
	return tx.Model(item).Update("quantity", quantity).Error
}

func (r *OrderRepository) DeleteOrderItem(tx *gorm.DB, item *models.OrderItem) error {
	return tx.Delete(item).Error
}
