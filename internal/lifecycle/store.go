package lifecycle

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/autohelp/autohelp-backend/internal/models"
)

// Store owns persistence for requests and offers. The single-accepted-offer
// invariant is enforced here, not only in the coordinator, so no code path
// can violate it under concurrent writes.
type Store interface {
	CreateRequest(ctx context.Context, req *models.Request) error
	GetRequest(ctx context.Context, id uint) (*models.Request, error)
	// TransitionRequest applies a conditional status update and reports
	// whether the row actually moved. A false return means the request was
	// not in any of the from states.
	TransitionRequest(ctx context.Context, id uint, from []models.RequestStatus, to models.RequestStatus) (bool, error)
	CreatePhoto(ctx context.Context, photo *models.RequestPhoto) error

	CreateOffer(ctx context.Context, offer *models.Offer) error
	GetOffer(ctx context.Context, id uint) (*models.Offer, error)
	ListOffers(ctx context.Context, requestID uint) ([]models.Offer, error)
	HasOfferFrom(ctx context.Context, mechanicID, requestID uint) (bool, error)
	// AcceptOffer atomically moves the request new -> active and flags the
	// offer accepted. A false return means the request was no longer new.
	AcceptOffer(ctx context.Context, requestID, offerID uint) (bool, error)
	AcceptedOffer(ctx context.Context, requestID uint) (*models.Offer, error)
}

// GormStore is the PostgreSQL-backed store.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) CreateRequest(ctx context.Context, req *models.Request) error {
	return s.db.WithContext(ctx).Create(req).Error
}

func (s *GormStore) GetRequest(ctx context.Context, id uint) (*models.Request, error) {
	var req models.Request
	err := s.db.WithContext(ctx).
		Preload("Category").
		Preload("Photos").
		First(&req, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: request %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (s *GormStore) TransitionRequest(ctx context.Context, id uint, from []models.RequestStatus, to models.RequestStatus) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&models.Request{}).
		Where("id = ? AND status IN ?", id, expandAliases(from)).
		Update("status", to)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (s *GormStore) CreatePhoto(ctx context.Context, photo *models.RequestPhoto) error {
	return s.db.WithContext(ctx).Create(photo).Error
}

func (s *GormStore) CreateOffer(ctx context.Context, offer *models.Offer) error {
	err := s.db.WithContext(ctx).Create(offer).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: offer already submitted for request %d", ErrConflict, offer.RequestID)
	}
	return err
}

func (s *GormStore) GetOffer(ctx context.Context, id uint) (*models.Offer, error) {
	var offer models.Offer
	err := s.db.WithContext(ctx).Preload("Mechanic").First(&offer, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: offer %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &offer, nil
}

func (s *GormStore) ListOffers(ctx context.Context, requestID uint) ([]models.Offer, error) {
	var offers []models.Offer
	err := s.db.WithContext(ctx).
		Preload("Mechanic").
		Where("request_id = ?", requestID).
		Order("created_at ASC, id ASC").
		Find(&offers).Error
	if err != nil {
		return nil, err
	}
	return offers, nil
}

func (s *GormStore) HasOfferFrom(ctx context.Context, mechanicID, requestID uint) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.Offer{}).
		Where("mechanic_id = ? AND request_id = ?", mechanicID, requestID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

var errStaleRequest = errors.New("request no longer new")

func (s *GormStore) AcceptOffer(ctx context.Context, requestID, offerID uint) (bool, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Compare-and-swap on the status column; the losing caller of a
		// concurrent accept sees zero rows here and rolls back.
		res := tx.Model(&models.Request{}).
			Where("id = ? AND status = ?", requestID, models.RequestStatusNew).
			Update("status", models.RequestStatusActive)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errStaleRequest
		}
		// The partial unique index on offers(request_id) WHERE accepted
		// backstops this write.
		res = tx.Model(&models.Offer{}).
			Where("id = ? AND request_id = ?", offerID, requestID).
			Update("accepted", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: offer %d", ErrNotFound, offerID)
		}
		return nil
	})
	if errors.Is(err, errStaleRequest) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
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

func expandAliases(from []models.RequestStatus) []models.RequestStatus {
	out := make([]models.RequestStatus, 0, len(from)+1)
	for _, s := range from {
		out = append(out, s.AliasSet()...)
	}
	return out
}
