package repository

import (
	"context"
	"errors"

	"flocksync/internal/model"

	"gorm.io/gorm"
)

// DeviceRepository validates the kiosk UI's API key.
type DeviceRepository interface {
	ValidateAPIKey(ctx context.Context, apiKey string) (bool, error)
}

type KioskDeviceRepository struct {
	db *gorm.DB
}

func NewKioskDeviceRepository(db *gorm.DB) *KioskDeviceRepository {
	return &KioskDeviceRepository{db: db}
}

func (r *KioskDeviceRepository) ValidateAPIKey(ctx context.Context, apiKey string) (bool, error) {
	var device model.KioskDevice
	err := r.db.WithContext(ctx).
		Where("api_key = ? AND status = 1", apiKey).
		First(&device).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
