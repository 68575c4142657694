package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/autohelp/autohelp-backend/internal/models"
)

// memStore is an in-memory Store for tests. Its conditional updates run
// under one mutex so it honors the same atomicity the SQL store gets from
// single-row conditional UPDATEs.
type memStore struct {
	mu       sync.Mutex
	requests map[uint]*models.Request
	offers   map[uint]*models.Offer
	photos   map[uint]*models.RequestPhoto
	nextID   uint
}

func newMemStore() *memStore {
	return &memStore{
		requests: make(map[uint]*models.Request),
		offers:   make(map[uint]*models.Offer),
		photos:   make(map[uint]*models.RequestPhoto),
	}
}

func (s *memStore) nextIDLocked() uint {
	s.nextID++
	return s.nextID
}

func (s *memStore) CreateRequest(_ context.Context, req *models.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	req.ID = s.nextIDLocked()
	req.CreatedAt = time.Now()
	clone := *req
	s.requests[req.ID] = &clone
	return nil
}

func (s *memStore) GetRequest(_ context.Context, id uint) (*models.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[id]
	if !ok {
		return nil, fmt.Errorf("%w: request %d", ErrNotFound, id)
	}
	clone := *req
	return &clone, nil
}

func (s *memStore) TransitionRequest(_ context.Context, id uint, from []models.RequestStatus, to models.RequestStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[id]
	if !ok {
		return false, nil
	}
	for _, f := range from {
		if req.Status.Canonical() == f.Canonical() {
			req.Status = to
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) CreatePhoto(_ context.Context, photo *models.RequestPhoto) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	photo.ID = s.nextIDLocked()
	clone := *photo
	s.photos[photo.ID] = &clone
	return nil
}

func (s *memStore) CreateOffer(_ context.Context, offer *models.Offer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.offers {
		if o.RequestID == offer.RequestID && o.MechanicID == offer.MechanicID {
			return fmt.Errorf("%w: offer already submitted for request %d", ErrConflict, offer.RequestID)
		}
	}
	offer.ID = s.nextIDLocked()
	offer.CreatedAt = time.Now()
	clone := *offer
	s.offers[offer.ID] = &clone
	return nil
}

func (s *memStore) GetOffer(_ context.Context, id uint) (*models.Offer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	offer, ok := s.offers[id]
	if !ok {
		return nil, fmt.Errorf("%w: offer %d", ErrNotFound, id)
	}
	clone := *offer
	return &clone, nil
}

func (s *memStore) ListOffers(_ context.Context, requestID uint) ([]models.Offer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Offer
	for id := uint(1); id <= s.nextID; id++ {
		if o, ok := s.offers[id]; ok && o.RequestID == requestID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (s *memStore) HasOfferFrom(_ context.Context, mechanicID, requestID uint) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.offers {
		if o.RequestID == requestID && o.MechanicID == mechanicID {
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) AcceptOffer(_ context.Context, requestID, offerID uint) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[requestID]
	if !ok {
		return false, fmt.Errorf("%w: request %d", ErrNotFound, requestID)
	}
	if req.Status.Canonical() != models.RequestStatusNew {
		return false, nil
	}
	offer, ok := s.offers[offerID]
	if !ok || offer.RequestID != requestID {
		return false, fmt.Errorf("%w: offer %d", ErrNotFound, offerID)
	}
	req.Status = models.RequestStatusActive
	offer.Accepted = true
	return true, nil
}

func (s *memStore) AcceptedOffer(_ context.Context, requestID uint) (*models.Offer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.offers {
		if o.RequestID == requestID && o.Accepted {
			clone := *o
			return &clone, nil
		}
	}
	return nil, nil
}

var (
	driver    = Actor{ID: 1, Role: models.RoleDriver}
	mechanic  = Actor{ID: 2, Role: models.RoleMechanic}
	mechanic2 = Actor{ID: 3, Role: models.RoleMechanic}
)

func newTestCoordinator() (*Coordinator, *memStore) {
	store := newMemStore()
	return NewCoordinator(store), store
}

func openRequest(t *testing.T, c *Coordinator) *models.Request {
	t.Helper()
	req, err := c.CreateRequest(context.Background(), driver, CreateRequestInput{
		Description: "flat tire",
		Urgency:     models.UrgencySOS,
		Lat:         50.45,
		Lng:         30.52,
	})
	if err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}
	return req
}

func TestCreateRequestDefaults(t *testing.T) {
	c, _ := newTestCoordinator()

	req, err := c.CreateRequest(context.Background(), driver, CreateRequestInput{
		Description: "engine noise",
		Lat:         50.45,
		Lng:         30.52,
	})
	if err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}
	if req.Status != models.RequestStatusNew {
		t.Errorf("status = %q, want %q", req.Status, models.RequestStatusNew)
	}
	if req.Urgency != models.UrgencyPlanned {
		t.Errorf("urgency = %q, want %q", req.Urgency, models.UrgencyPlanned)
	}
}

func TestCreateRequestValidation(t *testing.T) {
	c, _ := newTestCoordinator()
	ctx := context.Background()

	cases := []struct {
		name string
		in   CreateRequestInput
	}{
		{"latitude out of range", CreateRequestInput{Description: "x", Lat: 91, Lng: 0}},
		{"longitude out of range", CreateRequestInput{Description: "x", Lat: 0, Lng: -181}},
		{"no description or category", CreateRequestInput{Lat: 50, Lng: 30}},
		{"unknown urgency", CreateRequestInput{Description: "x", Urgency: "immediate", Lat: 50, Lng: 30}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := c.CreateRequest(ctx, driver, tc.in); !errors.Is(err, ErrValidation) {
				t.Errorf("err = %v, want ErrValidation", err)
			}
		})
	}

	if _, err := c.CreateRequest(ctx, mechanic, CreateRequestInput{Description: "x", Lat: 50, Lng: 30}); !errors.Is(err, ErrAuthorization) {
		t.Errorf("mechanic create: err = %v, want ErrAuthorization", err)
	}
}

func TestCreateRequestCategoryOnly(t *testing.T) {
	c, _ := newTestCoordinator()

	catID := uint(7)
	req, err := c.CreateRequest(context.Background(), driver, CreateRequestInput{
		CategoryID: &catID,
		Lat:        50.45,
		Lng:        30.52,
	})
	if err != nil {
		t.Fatalf("CreateRequest with category only: %v", err)
	}
	if req.CategoryID == nil || *req.CategoryID != catID {
		t.Errorf("categoryID not persisted")
	}
}

func TestSubmitOffer(t *testing.T) {
	c, _ := newTestCoordinator()
	ctx := context.Background()
	req := openRequest(t, c)

	offer, err := c.SubmitOffer(ctx, mechanic, req.ID, 150, "can be there in 20 min")
	if err != nil {
		t.Fatalf("SubmitOffer: %v", err)
	}
	if offer.RequestID != req.ID || offer.MechanicID != mechanic.ID {
		t.Errorf("offer bound to wrong request or mechanic: %+v", offer)
	}

	// same mechanic again
	if _, err := c.SubmitOffer(ctx, mechanic, req.ID, 120, "cheaper"); !errors.Is(err, ErrConflict) {
		t.Errorf("duplicate offer: err = %v, want ErrConflict", err)
	}

	// drivers cannot offer
	if _, err := c.SubmitOffer(ctx, driver, req.ID, 100, ""); !errors.Is(err, ErrAuthorization) {
		t.Errorf("driver offer: err = %v, want ErrAuthorization", err)
	}

	// price must be positive
	if _, err := c.SubmitOffer(ctx, mechanic2, req.ID, 0, ""); !errors.Is(err, ErrValidation) {
		t.Errorf("zero price: err = %v, want ErrValidation", err)
	}
}

func TestSubmitOfferAfterAcceptance(t *testing.T) {
	c, _ := newTestCoordinator()
	ctx := context.Background()
	req := openRequest(t, c)

	offer, err := c.SubmitOffer(ctx, mechanic, req.ID, 150, "")
	if err != nil {
		t.Fatalf("SubmitOffer: %v", err)
	}
	if _, err := c.AcceptOffer(ctx, driver, offer.ID); err != nil {
		t.Fatalf("AcceptOffer: %v", err)
	}

	if _, err := c.SubmitOffer(ctx, mechanic2, req.ID, 90, "late bid"); !errors.Is(err, ErrState) {
		t.Errorf("offer after acceptance: err = %v, want ErrState", err)
	}
}

func TestAcceptOffer(t *testing.T) {
	c, _ := newTestCoordinator()
	ctx := context.Background()
	req := openRequest(t, c)

	offer, err := c.SubmitOffer(ctx, mechanic, req.ID, 150, "")
	if err != nil {
		t.Fatalf("SubmitOffer: %v", err)
	}

	// only the owner may accept
	stranger := Actor{ID: 99, Role: models.RoleDriver}
	if _, err := c.AcceptOffer(ctx, stranger, offer.ID); !errors.Is(err, ErrAuthorization) {
		t.Errorf("stranger accept: err = %v, want ErrAuthorization", err)
	}

	got, err := c.AcceptOffer(ctx, driver, offer.ID)
	if err != nil {
		t.Fatalf("AcceptOffer: %v", err)
	}
	if got.Status.Canonical() != models.RequestStatusActive {
		t.Errorf("status = %q, want active", got.Status)
	}

	// accepting again finds the request no longer new
	if _, err := c.AcceptOffer(ctx, driver, offer.ID); !errors.Is(err, ErrState) {
		t.Errorf("second accept: err = %v, want ErrState", err)
	}
}

func TestAcceptOfferSecondOfferLoses(t *testing.T) {
	c, _ := newTestCoordinator()
	ctx := context.Background()
	req := openRequest(t, c)

	first, err := c.SubmitOffer(ctx, mechanic, req.ID, 150, "")
	if err != nil {
		t.Fatalf("SubmitOffer: %v", err)
	}
	second, err := c.SubmitOffer(ctx, mechanic2, req.ID, 120, "")
	if err != nil {
		t.Fatalf("SubmitOffer: %v", err)
	}

	if _, err := c.AcceptOffer(ctx, driver, first.ID); err != nil {
		t.Fatalf("AcceptOffer: %v", err)
	}
	if _, err := c.AcceptOffer(ctx, driver, second.ID); !errors.Is(err, ErrState) {
		t.Errorf("accept of losing offer: err = %v, want ErrState", err)
	}

	// the losing offer now reads as closed, nothing rewrote it
	offers, err := c.ListOffers(ctx, req.ID)
	if err != nil {
		t.Fatalf("ListOffers: %v", err)
	}
	current, _ := c.GetRequest(ctx, req.ID)
	for _, o := range offers {
		want := models.OfferStateClosed
		if o.ID == first.ID {
			want = models.OfferStateAccepted
		}
		if got := o.State(current.Status); got != want {
			t.Errorf("offer %d state = %q, want %q", o.ID, got, want)
		}
	}
}

func TestFinishRequest(t *testing.T) {
	c, _ := newTestCoordinator()
	ctx := context.Background()
	req := openRequest(t, c)

	// cannot finish before acceptance
	if _, err := c.FinishRequest(ctx, driver, req.ID); !errors.Is(err, ErrState) {
		t.Errorf("finish new request: err = %v, want ErrState", err)
	}

	offer, _ := c.SubmitOffer(ctx, mechanic, req.ID, 150, "")
	if _, err := c.AcceptOffer(ctx, driver, offer.ID); err != nil {
		t.Fatalf("AcceptOffer: %v", err)
	}

	// a third party cannot finish
	if _, err := c.FinishRequest(ctx, mechanic2, req.ID); !errors.Is(err, ErrAuthorization) {
		t.Errorf("outsider finish: err = %v, want ErrAuthorization", err)
	}

	got, err := c.FinishRequest(ctx, driver, req.ID)
	if err != nil {
		t.Fatalf("FinishRequest: %v", err)
	}
	if got.Status != models.RequestStatusDone {
		t.Errorf("status = %q, want done", got.Status)
	}

	// the second confirmation is distinguishable from success
	if _, err := c.FinishRequest(ctx, mechanic, req.ID); !errors.Is(err, ErrState) {
		t.Errorf("double finish: err = %v, want ErrState", err)
	}
}

func TestFinishRequestByMechanic(t *testing.T) {
	c, _ := newTestCoordinator()
	ctx := context.Background()
	req := openRequest(t, c)

	offer, _ := c.SubmitOffer(ctx, mechanic, req.ID, 150, "")
	if _, err := c.AcceptOffer(ctx, driver, offer.ID); err != nil {
		t.Fatalf("AcceptOffer: %v", err)
	}

	got, err := c.FinishRequest(ctx, mechanic, req.ID)
	if err != nil {
		t.Fatalf("FinishRequest by accepted mechanic: %v", err)
	}
	if got.Status != models.RequestStatusDone {
		t.Errorf("status = %q, want done", got.Status)
	}
}

func TestCancelRequest(t *testing.T) {
	c, _ := newTestCoordinator()
	ctx := context.Background()

	// cancel while new
	req := openRequest(t, c)
	got, err := c.CancelRequest(ctx, driver, req.ID)
	if err != nil {
		t.Fatalf("CancelRequest: %v", err)
	}
	if got.Status != models.RequestStatusCanceled {
		t.Errorf("status = %q, want canceled", got.Status)
	}

	// cancel while active
	req = openRequest(t, c)
	offer, _ := c.SubmitOffer(ctx, mechanic, req.ID, 150, "")
	if _, err := c.AcceptOffer(ctx, driver, offer.ID); err != nil {
		t.Fatalf("AcceptOffer: %v", err)
	}
	if _, err := c.CancelRequest(ctx, driver, req.ID); err != nil {
		t.Fatalf("CancelRequest active: %v", err)
	}

	// done requests cannot be canceled
	req = openRequest(t, c)
	offer, _ = c.SubmitOffer(ctx, mechanic, req.ID, 150, "")
	c.AcceptOffer(ctx, driver, offer.ID)
	c.FinishRequest(ctx, driver, req.ID)
	if _, err := c.CancelRequest(ctx, driver, req.ID); !errors.Is(err, ErrState) {
		t.Errorf("cancel done request: err = %v, want ErrState", err)
	}

	// only the owner cancels
	req = openRequest(t, c)
	if _, err := c.CancelRequest(ctx, mechanic, req.ID); !errors.Is(err, ErrAuthorization) {
		t.Errorf("mechanic cancel: err = %v, want ErrAuthorization", err)
	}
}

func TestCanceledRequestRejectsOffers(t *testing.T) {
	c, _ := newTestCoordinator()
	ctx := context.Background()
	req := openRequest(t, c)

	if _, err := c.CancelRequest(ctx, driver, req.ID); err != nil {
		t.Fatalf("CancelRequest: %v", err)
	}
	if _, err := c.SubmitOffer(ctx, mechanic, req.ID, 150, ""); !errors.Is(err, ErrState) {
		t.Errorf("offer on canceled request: err = %v, want ErrState", err)
	}
}

func TestAttachPhoto(t *testing.T) {
	c, _ := newTestCoordinator()
	ctx := context.Background()
	req := openRequest(t, c)

	photo, err := c.AttachPhoto(ctx, driver, req.ID, "https://cdn.example.com/requests/1.jpg")
	if err != nil {
		t.Fatalf("AttachPhoto: %v", err)
	}
	if photo.RequestID != req.ID {
		t.Errorf("photo bound to wrong request")
	}

	if _, err := c.AttachPhoto(ctx, mechanic, req.ID, "https://cdn.example.com/x.jpg"); !errors.Is(err, ErrAuthorization) {
		t.Errorf("non-owner photo: err = %v, want ErrAuthorization", err)
	}
	if _, err := c.AttachPhoto(ctx, driver, req.ID, ""); !errors.Is(err, ErrValidation) {
		t.Errorf("empty url: err = %v, want ErrValidation", err)
	}

	c.CancelRequest(ctx, driver, req.ID)
	if _, err := c.AttachPhoto(ctx, driver, req.ID, "https://cdn.example.com/late.jpg"); !errors.Is(err, ErrState) {
		t.Errorf("photo on closed request: err = %v, want ErrState", err)
	}
}

func TestGetRequestNotFound(t *testing.T) {
	c, _ := newTestCoordinator()
	if _, err := c.GetRequest(context.Background(), 42); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestListOffersUnknownRequest(t *testing.T) {
	c, _ := newTestCoordinator()
	if _, err := c.ListOffers(context.Background(), 42); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestLegacyInProgressAlias(t *testing.T) {
	c, store := newTestCoordinator()
	ctx := context.Background()
	req := openRequest(t, c)

	// simulate an old row written before the status rename
	store.mu.Lock()
	store.requests[req.ID].Status = "in_progress"
	store.mu.Unlock()

	got, err := c.FinishRequest(ctx, driver, req.ID)
	if err != nil {
		t.Fatalf("FinishRequest on legacy row: %v", err)
	}
	if got.Status != models.RequestStatusDone {
		t.Errorf("status = %q, want done", got.Status)
	}
}
