package reviews

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/autohelp/autohelp-backend/internal/lifecycle"
	"github.com/autohelp/autohelp-backend/internal/models"
)

type memStore struct {
	request  *models.Request
	accepted *models.Offer
	reviews  []models.Review
	ratings  map[uint]float64

	recalcErr error
}

func (s *memStore) GetRequest(_ context.Context, id uint) (*models.Request, error) {
	if s.request == nil || s.request.ID != id {
		return nil, fmt.Errorf("%w: request %d", lifecycle.ErrNotFound, id)
	}
	clone := *s.request
	return &clone, nil
}

func (s *memStore) AcceptedOffer(_ context.Context, requestID uint) (*models.Offer, error) {
	if s.accepted == nil || s.accepted.RequestID != requestID {
		return nil, nil
	}
	clone := *s.accepted
	return &clone, nil
}

func (s *memStore) CreateReview(_ context.Context, review *models.Review) error {
	for _, r := range s.reviews {
		if r.RequestID == review.RequestID && r.Direction == review.Direction {
			return fmt.Errorf("%w: review already exists for request %d", lifecycle.ErrConflict, review.RequestID)
		}
	}
	review.ID = uint(len(s.reviews) + 1)
	s.reviews = append(s.reviews, *review)
	return nil
}

func (s *memStore) HasReview(_ context.Context, requestID uint, direction models.ReviewDirection) (bool, error) {
	for _, r := range s.reviews {
		if r.RequestID == requestID && r.Direction == direction {
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) ListForSubject(_ context.Context, subjectID uint) ([]models.Review, error) {
	var out []models.Review
	for _, r := range s.reviews {
		if r.SubjectID == subjectID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *memStore) RecalculateRating(_ context.Context, subjectID uint) error {
	if s.recalcErr != nil {
		return s.recalcErr
	}
	if s.ratings == nil {
		s.ratings = make(map[uint]float64)
	}
	var sum, n float64
	for _, r := range s.reviews {
		if r.SubjectID == subjectID {
			sum += float64(r.Rating)
			n++
		}
	}
	if n > 0 {
		s.ratings[subjectID] = sum / n
	}
	return nil
}

const (
	ownerID    = uint(1)
	mechanicID = uint(2)
	requestID  = uint(10)
)

var (
	ownerActor    = lifecycle.Actor{ID: ownerID, Role: models.RoleDriver}
	mechanicActor = lifecycle.Actor{ID: mechanicID, Role: models.RoleMechanic}
)

// doneStore builds a store holding one completed request with an accepted
// offer from mechanicID.
func doneStore(status models.RequestStatus) *memStore {
	req := &models.Request{OwnerID: ownerID, Status: status}
	req.ID = requestID
	offer := &models.Offer{RequestID: requestID, MechanicID: mechanicID, Accepted: true}
	offer.ID = 20
	return &memStore{request: req, accepted: offer}
}

func TestSubmitReviewDirections(t *testing.T) {
	store := doneStore(models.RequestStatusDone)
	gate := NewGate(store)
	ctx := context.Background()

	// driver reviews the mechanic
	r1, err := gate.SubmitReview(ctx, ownerActor, requestID, 5, "fast and fair")
	if err != nil {
		t.Fatalf("driver review: %v", err)
	}
	if r1.Direction != models.ReviewForMechanic || r1.SubjectID != mechanicID {
		t.Errorf("driver review direction/subject = %q/%d, want for_mechanic/%d", r1.Direction, r1.SubjectID, mechanicID)
	}

	// mechanic reviews the driver
	r2, err := gate.SubmitReview(ctx, mechanicActor, requestID, 4, "")
	if err != nil {
		t.Fatalf("mechanic review: %v", err)
	}
	if r2.Direction != models.ReviewForDriver || r2.SubjectID != ownerID {
		t.Errorf("mechanic review direction/subject = %q/%d, want for_driver/%d", r2.Direction, r2.SubjectID, ownerID)
	}

	if store.ratings[mechanicID] != 5 {
		t.Errorf("mechanic rating = %v, want 5", store.ratings[mechanicID])
	}
}

func TestSubmitReviewDuplicate(t *testing.T) {
	gate := NewGate(doneStore(models.RequestStatusDone))
	ctx := context.Background()

	if _, err := gate.SubmitReview(ctx, ownerActor, requestID, 5, ""); err != nil {
		t.Fatalf("first review: %v", err)
	}
	if _, err := gate.SubmitReview(ctx, ownerActor, requestID, 1, "changed my mind"); !errors.Is(err, lifecycle.ErrConflict) {
		t.Errorf("duplicate review: err = %v, want ErrConflict", err)
	}
}

func TestSubmitReviewBeforeCompletion(t *testing.T) {
	ctx := context.Background()
	for _, status := range []models.RequestStatus{
		models.RequestStatusNew,
		models.RequestStatusActive,
		models.RequestStatusCanceled,
	} {
		gate := NewGate(doneStore(status))
		if _, err := gate.SubmitReview(ctx, ownerActor, requestID, 5, ""); !errors.Is(err, lifecycle.ErrState) {
			t.Errorf("status %q: err = %v, want ErrState", status, err)
		}
	}
}

func TestSubmitReviewByOutsider(t *testing.T) {
	gate := NewGate(doneStore(models.RequestStatusDone))
	outsider := lifecycle.Actor{ID: 99, Role: models.RoleMechanic}

	if _, err := gate.SubmitReview(context.Background(), outsider, requestID, 5, ""); !errors.Is(err, lifecycle.ErrAuthorization) {
		t.Errorf("outsider review: err = %v, want ErrAuthorization", err)
	}
}

func TestSubmitReviewRatingBounds(t *testing.T) {
	gate := NewGate(doneStore(models.RequestStatusDone))
	ctx := context.Background()

	for _, rating := range []int{0, -1, 6} {
		if _, err := gate.SubmitReview(ctx, ownerActor, requestID, rating, ""); !errors.Is(err, lifecycle.ErrValidation) {
			t.Errorf("rating %d: err = %v, want ErrValidation", rating, err)
		}
	}
}

func TestSubmitReviewUnknownRequest(t *testing.T) {
	gate := NewGate(&memStore{})
	if _, err := gate.SubmitReview(context.Background(), ownerActor, 123, 5, ""); !errors.Is(err, lifecycle.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestSubmitReviewNoAcceptedOffer(t *testing.T) {
	// a done request without an accepted offer should not happen, but the
	// gate refuses rather than guessing a direction
	req := &models.Request{OwnerID: ownerID, Status: models.RequestStatusDone}
	req.ID = requestID
	gate := NewGate(&memStore{request: req})

	if _, err := gate.SubmitReview(context.Background(), ownerActor, requestID, 5, ""); !errors.Is(err, lifecycle.ErrState) {
		t.Errorf("err = %v, want ErrState", err)
	}
}

func TestSubmitReviewSurvivesRatingRecalcFailure(t *testing.T) {
	store := doneStore(models.RequestStatusDone)
	store.recalcErr = errors.New("connection reset")
	gate := NewGate(store)

	review, err := gate.SubmitReview(context.Background(), ownerActor, requestID, 5, "")
	if err != nil {
		t.Fatalf("SubmitReview: %v", err)
	}
	if review == nil || len(store.reviews) != 1 {
		t.Errorf("review not committed despite recalc failure")
	}
}

func TestLegacyInProgressStatusBlocksReview(t *testing.T) {
	gate := NewGate(doneStore("in_progress"))
	if _, err := gate.SubmitReview(context.Background(), ownerActor, requestID, 5, ""); !errors.Is(err, lifecycle.ErrState) {
		t.Errorf("err = %v, want ErrState", err)
	}
}
