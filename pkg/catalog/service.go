// Package catalog serves the product list, promo banners and the
// restaurant menu availability managed from the dashboard.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/foodcart/pkg/audit"
	"github.com/example/foodcart/pkg/models"
	"github.com/example/foodcart/pkg/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrRestaurantNotFound = errors.New("restaurant not found")
	ErrProductNotFound    = errors.New("product not found")
)

type Banner struct {
	Title string `json:"title"`
	Src   string `json:"src"`
	Text  string `json:"text"`
}

var banners = []Banner{
	{Title: "Burger", Src: "/static/burger.jpg", Text: "Tasty Burger at your door step"},
	{Title: "Spices", Src: "/static/food.jpg", Text: "All Cuisines"},
	{Title: "New York", Src: "/static/tasty.jpg", Text: "Food is incomplete without a tasty dessert"},
}

// GridRow is one product line of the availability grid. Availability is
// aligned with the restaurant order of the enclosing Grid.
type GridRow struct {
	Product      models.Product `json:"product"`
	Availability []bool         `json:"availability"`
}

type Grid struct {
	Restaurants []models.Restaurant `json:"restaurants"`
	Products    []GridRow           `json:"products"`
}

type CacheInvalidator interface {
	Invalidate(ctx context.Context, address string) error
}

type Service struct {
	repo   *repository.CatalogRepository
	cache  CacheInvalidator
	audit  audit.Recorder
	logger *zap.Logger
}

func NewService(repo *repository.CatalogRepository, cache CacheInvalidator, recorder audit.Recorder, logger *zap.Logger) *Service {
	if recorder == nil {
		recorder = audit.Nop{}
	}
	return &Service{repo: repo, cache: cache, audit: recorder, logger: logger}
}

// AvailableProducts lists products that are for sale and on at least one
// restaurant's menu.
func (s *Service) AvailableProducts(ctx context.Context) ([]models.Product, error) {
	products, err := s.repo.ListAvailableProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

func (s *Service) Banners() []Banner {
	out := make([]Banner, len(banners))
	copy(out, banners)
	return out
}

func (s *Service) Restaurants(ctx context.Context) ([]models.Restaurant, error) {
	restaurants, err := s.repo.ListRestaurants(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list restaurants: %w", err)
	}
	return restaurants, nil
}

// AvailabilityGrid builds the product × restaurant table. A product missing
// from a restaurant's menu counts as unavailable there.
func (s *Service) AvailabilityGrid(ctx context.Context) (*Grid, error) {
	restaurants, err := s.Restaurants(ctx)
	if err != nil {
		return nil, err
	}
	products, err := s.repo.ListProductsWithMenu(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	grid := &Grid{Restaurants: restaurants, Products: make([]GridRow, 0, len(products))}
	for _, product := range products {
		available := make(map[uint]bool, len(product.MenuItems))
		for _, item := range product.MenuItems {
			available[item.RestaurantID] = item.Availability
		}
		row := GridRow{Product: product, Availability: make([]bool, len(restaurants))}
		for i, restaurant := range restaurants {
			row.Availability[i] = available[restaurant.ID]
		}
		row.Product.MenuItems = nil
		grid.Products = append(grid.Products, row)
	}
	return grid, nil
}

// SetMenuAvailability creates or updates the menu entry for the pair.
func (s *Service) SetMenuAvailability(ctx context.Context, restaurantID, productID uint, available bool) error {
	if _, err := s.restaurant(ctx, restaurantID); err != nil {
		return err
	}
	products, err := s.repo.FindProducts(ctx, []uint{productID})
	if err != nil {
		return fmt.Errorf("failed to load product %d: %w", productID, err)
	}
	if len(products) == 0 {
		return fmt.Errorf("%w: %d", ErrProductNotFound, productID)
	}

	item := &models.RestaurantMenuItem{RestaurantID: restaurantID, ProductID: productID, Availability: available}
	if err := s.repo.UpsertMenuItem(ctx, item); err != nil {
		return fmt.Errorf("failed to update menu of restaurant %d: %w", restaurantID, err)
	}

	s.audit.Record("set_menu_availability", "restaurant", restaurantID, map[string]interface{}{
		"product_id": productID, "availability": available,
	})
	return nil
}

// UpdateRestaurant applies the changed contact details. A new address drops
// the cached coordinates of the old one.
func (s *Service) UpdateRestaurant(ctx context.Context, id uint, name, address, phone *string) (*models.Restaurant, error) {
	restaurant, err := s.restaurant(ctx, id)
	if err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	if name != nil && *name != restaurant.Name {
		fields["name"] = *name
	}
	if phone != nil && *phone != restaurant.ContactPhone {
		fields["contact_phone"] = *phone
	}
	old := restaurant.Address
	moved := address != nil && *address != old
	if moved {
		fields["address"] = *address
	}
	if len(fields) == 0 {
		return restaurant, nil
	}

	if err := s.repo.UpdateRestaurant(ctx, restaurant, fields); err != nil {
		return nil, fmt.Errorf("failed to update restaurant %d: %w", id, err)
	}
	if moved {
		if err := s.cache.Invalidate(ctx, old); err != nil {
			s.logger.Warn("Failed to invalidate coordinates",
				zap.Uint("restaurant_id", id),
				zap.String("address", old),
				zap.Error(err))
		}
	}

	s.audit.Record("update_restaurant", "restaurant", id, fields)
	return s.restaurant(ctx, id)
}

func (s *Service) restaurant(ctx context.Context, id uint) (*models.Restaurant, error) {
	restaurant, err := s.repo.GetRestaurant(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %d", ErrRestaurantNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load restaurant %d: %w", id, err)
	}
	return restaurant, nil
}
