package repository

import (
	"context"

	"github.com/example/foodcart/pkg/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CatalogRepository struct {
	db *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// ListAvailableProducts returns products flagged available that at least one
// restaurant currently sells.
func (r *CatalogRepository) ListAvailableProducts(ctx context.Context) ([]models.Product, error) {
	onMenu := r.db.Model(&models.RestaurantMenuItem{}).
		Select("product_id").
		Where("availability = ?", true)

	var products []models.Product
	err := r.db.WithContext(ctx).
		Preload("Category").
		Where("is_available = ?", true).
		Where("id IN (?)", onMenu).
		Order("id").
		Find(&products).Error
	return products, err
}

func (r *CatalogRepository) FindProducts(ctx context.Context, ids []uint) ([]models.Product, error) {
	var products []models.Product
	if len(ids) == 0 {
		return products, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&products).Error
	return products, err
}

func (r *CatalogRepository) ListProductsWithMenu(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := r.db.WithContext(ctx).Preload("MenuItems").Order("id").Find(&products).Error
	return products, err
}

func (r *CatalogRepository) ListRestaurants(ctx context.Context) ([]models.Restaurant, error) {
	var restaurants []models.Restaurant
	err := r.db.WithContext(ctx).Order("name").Order("id").Find(&restaurants).Error
	return restaurants, err
}

func (r *CatalogRepository) GetRestaurant(ctx context.Context, id uint) (*models.Restaurant, error) {
	var restaurant models.Restaurant
	if err := r.db.WithContext(ctx).First(&restaurant, id).Error; err != nil {
		return nil, err
	}
	return &restaurant, nil
}

func (r *CatalogRepository) UpdateRestaurant(ctx context.Context, restaurant *models.Restaurant, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(restaurant).Updates(fields).Error
}

// RestaurantsByIDs returns the restaurants ordered by ID.
func (r *CatalogRepository) RestaurantsByIDs(ctx context.Context, ids []uint) ([]models.Restaurant, error) {
	var restaurants []models.Restaurant
	if len(ids) == 0 {
		return restaurants, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id").Find(&restaurants).Error
	return restaurants, err
}

// AvailableMenuItems returns the available menu entries for any of productIDs.
func (r *CatalogRepository) AvailableMenuItems(ctx context.Context, productIDs []uint) ([]models.RestaurantMenuItem, error) {
	var items []models.RestaurantMenuItem
	if len(productIDs) == 0 {
		return items, nil
	}
	err := r.db.WithContext(ctx).
		Where("availability = ? AND product_id IN ?", true, productIDs).
		Order("restaurant_id").Order("product_id").
		Find(&items).Error
	return items, err
}

func (r *CatalogRepository) UpsertMenuItem(ctx context.Context, item *models.RestaurantMenuItem) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "restaurant_id"}, {Name: "product_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"availability"}),
	}).Create(item).Error
}
