package repository

import (
	"context"
	"errors"

	"github.com/example/foodcart/pkg/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CoordinateRepository keeps geocoding results in the address_coordinates table.
type CoordinateRepository struct {
	db *gorm.DB
}

func NewCoordinateRepository(db *gorm.DB) *CoordinateRepository {
	return &CoordinateRepository{db: db}
}

// LoadCoordinates returns nil, nil when the address has no entry.
func (r *CoordinateRepository) LoadCoordinates(ctx context.Context, address string) (*models.AddressCoordinates, error) {
	var entry models.AddressCoordinates
	err := r.db.WithContext(ctx).Where("address = ?", address).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *CoordinateRepository) SaveCoordinates(ctx context.Context, entry *models.AddressCoordinates) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "address"}},
		DoUpdates: clause.AssignmentColumns([]string{"latitude", "longitude", "updated_at"}),
	}).Create(entry).Error
}

func (r *CoordinateRepository) DeleteCoordinates(ctx context.Context, address string) error {
	return r.db.WithContext(ctx).Where("address = ?", address).Delete(&models.AddressCoordinates{}).Error
}
