package matching

import (
	"context"

	"gorm.io/gorm"

	"github.com/autohelp/autohelp-backend/internal/models"
	"github.com/autohelp/autohelp-backend/pkg/utils"
)

// GormStore runs the coarse containment queries against PostgreSQL using a
// lat/lng range; exact filtering happens in the service.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) OpenRequestsWithin(ctx context.Context, box utils.BoundingBox) ([]models.Request, error) {
	var requests []models.Request
	err := s.db.WithContext(ctx).
		Preload("Category").
		Where("status = ?", models.RequestStatusNew).
		Where("lat BETWEEN ? AND ?", box.SouthWest.Lat, box.NorthEast.Lat).
		Where("lng BETWEEN ? AND ?", box.SouthWest.Lng, box.NorthEast.Lng).
		Order("created_at ASC").
		Find(&requests).Error
	if err != nil {
		return nil, err
	}
	return requests, nil
}

func (s *GormStore) StationsWithin(ctx context.Context, box utils.BoundingBox) ([]models.Station, error) {
	var stations []models.Station
	err := s.db.WithContext(ctx).
		Where("lat BETWEEN ? AND ?", box.SouthWest.Lat, box.NorthEast.Lat).
		Where("lng BETWEEN ? AND ?", box.SouthWest.Lng, box.NorthEast.Lng).
		Find(&stations).Error
	if err != nil {
		return nil, err
	}
	return stations, nil
}
