package reviews

import (
	"context"
	"fmt"

	"github.com/autohelp/autohelp-backend/internal/lifecycle"
	"github.com/autohelp/autohelp-backend/internal/models"
)

// Store owns review persistence and the (request, direction) uniqueness
// constraint.
type Store interface {
	GetRequest(ctx context.Context, id uint) (*models.Request, error)
	AcceptedOffer(ctx context.Context, requestID uint) (*models.Offer, error)
	CreateReview(ctx context.Context, review *models.Review) error
	HasReview(ctx context.Context, requestID uint, direction models.ReviewDirection) (bool, error)
	ListForSubject(ctx context.Context, subjectID uint) ([]models.Review, error)
	// RecalculateRating refreshes the cached average on the reviewed user.
	RecalculateRating(ctx context.Context, subjectID uint) error
}

// Gate permits exactly one review per (request, direction) pair once the
// request is done. The direction is inferred from the author's relationship
// to the request, never chosen by the caller.
type Gate struct {
	store Store
}

func NewGate(store Store) *Gate {
	return &Gate{store: store}
}

func (g *Gate) SubmitReview(ctx context.Context, author lifecycle.Actor, requestID uint, rating int, comment string) (*models.Review, error) {
	if rating < 1 || rating > 5 {
		return nil, fmt.Errorf("%w: rating must be between 1 and 5", lifecycle.ErrValidation)
	}

	req, err := g.store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status.Canonical() != models.RequestStatusDone {
		return nil, fmt.Errorf("%w: request %d is not completed", lifecycle.ErrState, requestID)
	}

	accepted, err := g.store.AcceptedOffer(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if accepted == nil {
		return nil, fmt.Errorf("%w: request %d has no accepted offer", lifecycle.ErrState, requestID)
	}

	var direction models.ReviewDirection
	var subjectID uint
	switch author.ID {
	case req.OwnerID:
		direction = models.ReviewForMechanic
		subjectID = accepted.MechanicID
	case accepted.MechanicID:
		direction = models.ReviewForDriver
		subjectID = req.OwnerID
	default:
		return nil, fmt.Errorf("%w: caller is not a party to request %d", lifecycle.ErrAuthorization, requestID)
	}

	exists, err := g.store.HasReview(ctx, requestID, direction)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: review already exists for request %d", lifecycle.ErrConflict, requestID)
	}

	review := &models.Review{
		RequestID: requestID,
		Direction: direction,
		AuthorID:  author.ID,
		SubjectID: subjectID,
		Rating:    rating,
		Comment:   comment,
	}
	// The unique index on (request_id, direction) backstops the existence
	// check when two submissions race.
	if err := g.store.CreateReview(ctx, review); err != nil {
		return nil, err
	}

	if err := g.store.RecalculateRating(ctx, subjectID); err != nil {
		// The review itself is committed; a stale cached average corrects
		// itself on the next review.
		return review, nil
	}
	return review, nil
}

// ListForUser returns reviews written about the given user, newest first.
func (g *Gate) ListForUser(ctx context.Context, userID uint) ([]models.Review, error) {
	return g.store.ListForSubject(ctx, userID)
}
