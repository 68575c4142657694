package reviews

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/autohelp/autohelp-backend/internal/lifecycle"
	"github.com/autohelp/autohelp-backend/internal/models"
)

// GormStore is the PostgreSQL-backed review store. Request and offer reads
// go through the same tables the lifecycle store owns, but reviews never
// mutate them.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) GetRequest(ctx context.Context, id uint) (*models.Request, error) {
	var req models.Request
	err := s.db.WithContext(ctx).First(&req, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: request %d", lifecycle.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (s *GormStore) AcceptedOffer(ctx context.Context, requestID uint) (*models.Offer, error) {
	var offer models.Offer
	err := s.db.WithContext(ctx).
		Where("request_id = ? AND accepted = ?", requestID, true).
		First(&offer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &offer, nil
}

func (s *GormStore) CreateReview(ctx context.Context, review *models.Review) error {
	err := s.db.WithContext(ctx).Create(review).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: review already exists for request %d", lifecycle.ErrConflict, review.RequestID)
	}
	return err
}

func (s *GormStore) HasReview(ctx context.Context, requestID uint, direction models.ReviewDirection) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.Review{}).
		Where("request_id = ? AND direction = ?", requestID, direction).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *GormStore) ListForSubject(ctx context.Context, subjectID uint) ([]models.Review, error) {
	var list []models.Review
	err := s.db.WithContext(ctx).
		Preload("Author").
		Where("subject_id = ?", subjectID).
		Order("created_at DESC").
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (s *GormStore) RecalculateRating(ctx context.Context, subjectID uint) error {
	var avg float64
	err := s.db.WithContext(ctx).
		Model(&models.Review{}).
		Where("subject_id = ?", subjectID).
		Select("COALESCE(AVG(rating), 0)").
		Scan(&avg).Error
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", subjectID).
		Update("rating", avg).Error
}
