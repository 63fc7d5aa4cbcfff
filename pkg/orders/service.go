// Package orders accepts customer orders and applies manager edits to them.
package orders

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/example/foodcart/pkg/audit"
	"github.com/example/foodcart/pkg/events"
	"github.com/example/foodcart/pkg/matcher"
	"github.com/example/foodcart/pkg/metrics"
	"github.com/example/foodcart/pkg/models"
	"github.com/example/foodcart/pkg/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	MinQuantity = 1
	MaxQuantity = 20

	MinAddressLength = 5
	MaxAddressLength = 200
)

type ItemInput struct {
	ProductID uint
	Quantity  int
}

type CreateInput struct {
	FirstName     string
	LastName      string
	PhoneNumber   string
	Address       string
	Comment       string
	PaymentMethod models.PaymentMethod
	Items         []ItemInput
}

// ActiveOrder is a dashboard row: the order plus the restaurants able to
// cook it, nearest first.
type ActiveOrder struct {
	Order      models.Order        `json:"order"`
	Candidates []matcher.Candidate `json:"candidates"`
}

type CacheInvalidator interface {
	Invalidate(ctx context.Context, address string) error
}

type RestaurantMatcher interface {
	Candidates(ctx context.Context, order *models.Order) []matcher.Candidate
}

type Deps struct {
	Orders  *repository.OrderRepository
	Catalog *repository.CatalogRepository
	Cache   CacheInvalidator
	Matcher RestaurantMatcher
	Events  events.Publisher
	Audit   audit.Recorder
	Logger  *zap.Logger
}

type Service struct {
	orders  *repository.OrderRepository
	catalog *repository.CatalogRepository
	cache   CacheInvalidator
	matcher RestaurantMatcher
	events  events.Publisher
	audit   audit.Recorder
	now     func() time.Time
	logger  *zap.Logger
}

func NewService(deps Deps) *Service {
	s := &Service{
		orders:  deps.Orders,
		catalog: deps.Catalog,
		cache:   deps.Cache,
		matcher: deps.Matcher,
		events:  deps.Events,
		audit:   deps.Audit,
		now:     time.Now,
		logger:  deps.Logger,
	}
	if s.events == nil {
		s.events = events.NopPublisher{}
	}
	if s.audit == nil {
		s.audit = audit.Nop{}
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// Create stores the order and its items in one transaction. Item prices are
// the product prices at this moment.
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Order, error) {
	if len(in.Items) == 0 {
		return nil, ErrNoItems
	}
	if n := utf8.RuneCountInString(in.Address); n < MinAddressLength || n > MaxAddressLength {
		return nil, ErrAddressOutOfBounds
	}
	phone, err := NormalizePhone(in.PhoneNumber)
	if err != nil {
		return nil, err
	}
	payment := in.PaymentMethod
	if payment == "" {
		payment = models.PaymentCash
	}
	if !payment.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPayment, payment)
	}

	ids := make([]uint, 0, len(in.Items))
	seen := make(map[uint]struct{}, len(in.Items))
	for _, item := range in.Items {
		if err := checkQuantity(item.Quantity); err != nil {
			return nil, err
		}
		if _, dup := seen[item.ProductID]; dup {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateProduct, item.ProductID)
		}
		seen[item.ProductID] = struct{}{}
		ids = append(ids, item.ProductID)
	}
	products, err := s.availableProducts(ctx, ids)
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		FirstName:     in.FirstName,
		LastName:      in.LastName,
		PhoneNumber:   phone,
		Address:       in.Address,
		Comment:       in.Comment,
		Status:        models.OrderStatusNew,
		PaymentMethod: payment,
	}
	err = s.orders.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.orders.CreateOrder(tx, order); err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}
		for _, in := range in.Items {
			item := models.OrderItem{
				OrderID:   order.ID,
				ProductID: in.ProductID,
				Quantity:  in.Quantity,
				Price:     products[in.ProductID].Price,
			}
			if err := s.orders.CreateOrderItem(tx, &item); err != nil {
				return fmt.Errorf("failed to create item for product %d: %w", in.ProductID, err)
			}
			order.Items = append(order.Items, item)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to create order", zap.Error(err))
		return nil, err
	}
	order.TotalPrice = models.SumItems(order.Items)

	metrics.OrdersCreated.Inc()
	s.logger.Info("Order created",
		zap.Uint("order_id", order.ID),
		zap.Int("items", len(order.Items)),
		zap.String("total_price", order.TotalPrice.String()))

	s.publish(ctx, events.OrderCreated, order)
	s.audit.Record("create_order", "order", order.ID, map[string]interface{}{
		"items":          len(order.Items),
		"total_price":    order.TotalPrice.String(),
		"payment_method": string(order.PaymentMethod),
	})
	return order, nil
}

// Get returns the order with its items, products and restaurant.
func (s *Service) Get(ctx context.Context, id uint) (*models.Order, error) {
	order, err := s.orders.GetOrder(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load order %d: %w", id, err)
	}
	return order, nil
}

// ListActive returns every order not yet completed, newest first, each with
// its candidate restaurants.
func (s *Service) ListActive(ctx context.Context) ([]ActiveOrder, error) {
	orders, err := s.orders.ListActiveOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	rows := make([]ActiveOrder, 0, len(orders))
	for i := range orders {
		rows = append(rows, ActiveOrder{
			Order:      orders[i],
			Candidates: s.matcher.Candidates(ctx, &orders[i]),
		})
	}
	return rows, nil
}

func (s *Service) AddItem(ctx context.Context, orderID, productID uint, quantity int) (*models.Order, error) {
	if err := checkQuantity(quantity); err != nil {
		return nil, err
	}
	order, err := s.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	for _, item := range order.Items {
		if item.ProductID == productID {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateProduct, productID)
		}
	}
	products, err := s.availableProducts(ctx, []uint{productID})
	if err != nil {
		return nil, err
	}

	item := models.OrderItem{
		OrderID:   orderID,
		ProductID: productID,
		Quantity:  quantity,
		Price:     products[productID].Price,
	}
	err = s.orders.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.orders.CreateOrderItem(tx, &item)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add product %d to order %d: %w", productID, orderID, err)
	}

	return s.afterItemsChanged(ctx, orderID, "add_item", map[string]interface{}{
		"item_id": item.ID, "product_id": productID, "quantity": quantity,
	})
}

func (s *Service) UpdateItemQuantity(ctx context.Context, orderID, itemID uint, quantity int) (*models.Order, error) {
	if err := checkQuantity(quantity); err != nil {
		return nil, err
	}
	item, err := s.item(ctx, orderID, itemID)
	if err != nil {
		return nil, err
	}

	err = s.orders.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.orders.UpdateItemQuantity(tx, item, quantity)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update item %d: %w", itemID, err)
	}

	return s.afterItemsChanged(ctx, orderID, "update_item", map[string]interface{}{
		"item_id": itemID, "quantity": quantity,
	})
}

func (s *Service) RemoveItem(ctx context.Context, orderID, itemID uint) (*models.Order, error) {
	item, err := s.item(ctx, orderID, itemID)
	if err != nil {
		return nil, err
	}

	err = s.orders.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.orders.DeleteOrderItem(tx, item)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to remove item %d: %w", itemID, err)
	}

	return s.afterItemsChanged(ctx, orderID, "remove_item", map[string]interface{}{
		"item_id": itemID, "product_id": item.ProductID,
	})
}

// Patch holds the manager's edits to an order. Nil fields are left as they are.
type Patch struct {
	Address      *string
	Comment      *string
	RestaurantID *uint
	Status       *models.OrderStatus
}

// Update checks every field of p and then writes them in one transaction.
// Assigning a restaurant moves new or processing orders to the restaurant
// status unless p also names a status. The first move to processing stamps
// CalledAt, and completion stamps DeliveredAt. Coordinates of a replaced
// address are dropped after the commit.
func (s *Service) Update(ctx context.Context, id uint, p Patch) (*models.Order, error) {
	if p.Address != nil {
		if n := utf8.RuneCountInString(*p.Address); n < MinAddressLength || n > MaxAddressLength {
			return nil, ErrAddressOutOfBounds
		}
	}
	if p.Status != nil && !p.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, *p.Status)
	}
	order, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.RestaurantID != nil {
		if _, err := s.catalog.GetRestaurant(ctx, *p.RestaurantID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: %d", ErrRestaurantNotFound, *p.RestaurantID)
			}
			return nil, fmt.Errorf("failed to load restaurant %d: %w", *p.RestaurantID, err)
		}
	}

	fields := map[string]interface{}{}
	oldAddress := order.Address
	addressChanged := p.Address != nil && *p.Address != order.Address
	if addressChanged {
		fields["address"] = *p.Address
	}
	if p.Comment != nil {
		fields["comment"] = *p.Comment
	}
	status := order.Status
	if p.RestaurantID != nil {
		fields["restaurant_id"] = *p.RestaurantID
		if status == models.OrderStatusNew || status == models.OrderStatusProcessing {
			status = models.OrderStatusRestaurant
		}
	}
	if p.Status != nil {
		status = *p.Status
	}
	if status != order.Status {
		fields["status"] = status
		now := s.now()
		if status == models.OrderStatusProcessing && order.CalledAt == nil {
			fields["called_at"] = now
		}
		if status == models.OrderStatusCompleted && order.DeliveredAt == nil {
			fields["delivered_at"] = now
		}
	}
	if len(fields) == 0 {
		return order, nil
	}

	err = s.orders.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.orders.UpdateOrder(tx, order, fields)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update order %d: %w", id, err)
	}

	if addressChanged {
		if err := s.cache.Invalidate(ctx, oldAddress); err != nil {
			s.logger.Warn("Failed to invalidate coordinates",
				zap.Uint("order_id", id),
				zap.String("address", oldAddress),
				zap.Error(err))
		}
		s.audit.Record("update_address", "order", id, map[string]interface{}{"old": oldAddress, "new": *p.Address})
	}
	if p.Comment != nil {
		s.audit.Record("update_comment", "order", id, map[string]interface{}{"comment": *p.Comment})
	}
	if p.RestaurantID != nil {
		s.audit.Record("assign_restaurant", "order", id, map[string]interface{}{"restaurant_id": *p.RestaurantID})
	}
	statusChanged := p.Status != nil && status != order.Status
	if statusChanged {
		s.logger.Info("Order status changed",
			zap.Uint("order_id", id),
			zap.String("status", string(status)))
		s.audit.Record("update_status", "order", id, map[string]interface{}{"status": string(status)})
	}

	updated, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.RestaurantID != nil {
		s.publish(ctx, events.OrderRestaurantChanged, updated)
	}
	if statusChanged {
		s.publish(ctx, events.OrderStatusChanged, updated)
	}
	return updated, nil
}

func (s *Service) UpdateStatus(ctx context.Context, id uint, status models.OrderStatus) (*models.Order, error) {
	return s.Update(ctx, id, Patch{Status: &status})
}

func (s *Service) AssignRestaurant(ctx context.Context, id, restaurantID uint) (*models.Order, error) {
	return s.Update(ctx, id, Patch{RestaurantID: &restaurantID})
}

func (s *Service) UpdateAddress(ctx context.Context, id uint, address string) (*models.Order, error) {
	return s.Update(ctx, id, Patch{Address: &address})
}

func (s *Service) UpdateComment(ctx context.Context, id uint, comment string) (*models.Order, error) {
	return s.Update(ctx, id, Patch{Comment: &comment})
}

func (s *Service) item(ctx context.Context, orderID, itemID uint) (*models.OrderItem, error) {
	item, err := s.orders.GetOrderItem(ctx, orderID, itemID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %d in order %d", ErrItemNotFound, itemID, orderID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load item %d: %w", itemID, err)
	}
	return item, nil
}

func (s *Service) afterItemsChanged(ctx context.Context, orderID uint, action string, data map[string]interface{}) (*models.Order, error) {
	order, err := s.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	data["total_price"] = order.TotalPrice.String()
	s.audit.Record(action, "order", orderID, data)
	s.publish(ctx, events.OrderItemsChanged, order)
	return order, nil
}

// availableProducts loads ids and fails unless every one exists and is
// available for sale.
func (s *Service) availableProducts(ctx context.Context, ids []uint) (map[uint]models.Product, error) {
	found, err := s.catalog.FindProducts(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}
	byID := make(map[uint]models.Product, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}
	for _, id := range ids {
		p, ok := byID[id]
		if !ok || !p.IsAvailable {
			return nil, fmt.Errorf("%w: %d", ErrProductUnavailable, id)
		}
	}
	return byID, nil
}

func (s *Service) publish(ctx context.Context, kind string, order *models.Order) {
	err := s.events.Publish(ctx, events.Event{
		Type:         kind,
		OrderID:      order.ID,
		Status:       string(order.Status),
		RestaurantID: order.RestaurantID,
		TotalPrice:   order.TotalPrice,
		Timestamp:    s.now().Unix(),
	})
	if err != nil {
		s.logger.Warn("Failed to publish order event",
			zap.String("type", kind),
			zap.Uint("order_id", order.ID),
			zap.Error(err))
	}
}

func checkQuantity(q int) error {
	if q < MinQuantity || q > MaxQuantity {
		return fmt.Errorf("%w: %d", ErrInvalidQuantity, q)
	}
	return nil
}
