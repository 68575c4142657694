package lifecycle

import (
	"context"
	"fmt"

	"github.com/autohelp/autohelp-backend/internal/models"
)

// Actor is the authenticated caller of a coordinator operation, as resolved
// by the identity boundary (JWT middleware).
type Actor struct {
	ID   uint
	Role models.UserRole
}

// Coordinator is the single authority over Request and Offer state
// transitions. Handlers never write status themselves; every transition goes
// through here and is applied as an atomic conditional update scoped to one
// request id.
type Coordinator struct {
	store Store
}

func NewCoordinator(store Store) *Coordinator {
	return &Coordinator{store: store}
}

// CreateRequestInput carries everything needed to open a request. The
// vehicle label is resolved from the caller's garage before it gets here;
// the coordinator treats it as an opaque display reference.
type CreateRequestInput struct {
	VehicleID    *uint
	VehicleLabel string
	CategoryID   *uint
	Description  string
	Urgency      models.Urgency
	Lat          float64
	Lng          float64
	Address      string
}

func (c *Coordinator) CreateRequest(ctx context.Context, actor Actor, in CreateRequestInput) (*models.Request, error) {
	if actor.Role != models.RoleDriver {
		return nil, fmt.Errorf("%w: only drivers can create requests", ErrAuthorization)
	}
	if !validPoint(in.Lat, in.Lng) {
		return nil, fmt.Errorf("%w: location out of range", ErrValidation)
	}
	if in.Description == "" && in.CategoryID == nil {
		return nil, fmt.Errorf("%w: description or category required", ErrValidation)
	}
	urgency := in.Urgency
	if urgency == "" {
		urgency = models.UrgencyPlanned
	}
	if !urgency.Valid() {
		return nil, fmt.Errorf("%w: unknown urgency %q", ErrValidation, in.Urgency)
	}

	req := &models.Request{
		OwnerID:      actor.ID,
		VehicleID:    in.VehicleID,
		VehicleLabel: in.VehicleLabel,
		CategoryID:   in.CategoryID,
		Description:  in.Description,
		Urgency:      urgency,
		Lat:          in.Lat,
		Lng:          in.Lng,
		Address:      in.Address,
		Status:       models.RequestStatusNew,
	}
	if err := c.store.CreateRequest(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

func (c *Coordinator) SubmitOffer(ctx context.Context, actor Actor, requestID uint, price float64, comment string) (*models.Offer, error) {
	if actor.Role != models.RoleMechanic {
		return nil, fmt.Errorf("%w: only mechanics can submit offers", ErrAuthorization)
	}
	if price <= 0 {
		return nil, fmt.Errorf("%w: price must be positive", ErrValidation)
	}

	req, err := c.store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status.Canonical() != models.RequestStatusNew {
		return nil, fmt.Errorf("%w: offer window closed for request %d", ErrState, requestID)
	}
	exists, err := c.store.HasOfferFrom(ctx, actor.ID, requestID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: offer already submitted for request %d", ErrConflict, requestID)
	}

	offer := &models.Offer{
		RequestID:  requestID,
		MechanicID: actor.ID,
		Price:      price,
		Comment:    comment,
	}
	// The unique index on (request_id, mechanic_id) backstops the check
	// above when two submissions race.
	if err := c.store.CreateOffer(ctx, offer); err != nil {
		return nil, err
	}
	return offer, nil
}

// AcceptOffer is the only transition out of "new" that wins the request.
// Under concurrent calls for the same request exactly one succeeds; the
// rest observe ErrState and must re-read.
func (c *Coordinator) AcceptOffer(ctx context.Context, actor Actor, offerID uint) (*models.Request, error) {
	offer, err := c.store.GetOffer(ctx, offerID)
	if err != nil {
		return nil, err
	}
	req, err := c.store.GetRequest(ctx, offer.RequestID)
	if err != nil {
		return nil, err
	}
	if req.OwnerID != actor.ID {
		return nil, fmt.Errorf("%w: request %d does not belong to caller", ErrAuthorization, req.ID)
	}

	ok, err := c.store.AcceptOffer(ctx, req.ID, offer.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: request %d is no longer open", ErrState, req.ID)
	}
	return c.store.GetRequest(ctx, req.ID)
}

// FinishRequest confirms completion. Either the owner or the mechanic whose
// offer was accepted may call it; a second call fails with ErrState so the
// caller can tell "already handled" from "success".
func (c *Coordinator) FinishRequest(ctx context.Context, actor Actor, requestID uint) (*models.Request, error) {
	req, err := c.store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.OwnerID != actor.ID {
		accepted, err := c.store.AcceptedOffer(ctx, requestID)
		if err != nil {
			return nil, err
		}
		if accepted == nil || accepted.MechanicID != actor.ID {
			return nil, fmt.Errorf("%w: caller is not a party to request %d", ErrAuthorization, requestID)
		}
	}

	ok, err := c.store.TransitionRequest(ctx, requestID,
		[]models.RequestStatus{models.RequestStatusActive}, models.RequestStatusDone)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: request %d is not in progress", ErrState, requestID)
	}
	return c.store.GetRequest(ctx, requestID)
}

func (c *Coordinator) CancelRequest(ctx context.Context, actor Actor, requestID uint) (*models.Request, error) {
	req, err := c.store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.OwnerID != actor.ID {
		return nil, fmt.Errorf("%w: request %d does not belong to caller", ErrAuthorization, requestID)
	}

	ok, err := c.store.TransitionRequest(ctx, requestID,
		[]models.RequestStatus{models.RequestStatusNew, models.RequestStatusActive}, models.RequestStatusCanceled)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: request %d can no longer be canceled", ErrState, requestID)
	}
	return c.store.GetRequest(ctx, requestID)
}

// GetRequest is the pull API for polling clients; the returned snapshot is
// advisory, authoritative checks happen at write time.
func (c *Coordinator) GetRequest(ctx context.Context, id uint) (*models.Request, error) {
	return c.store.GetRequest(ctx, id)
}

// ListOffers re-reads current state on every call, in creation order.
func (c *Coordinator) ListOffers(ctx context.Context, requestID uint) ([]models.Offer, error) {
	if _, err := c.store.GetRequest(ctx, requestID); err != nil {
		return nil, err
	}
	return c.store.ListOffers(ctx, requestID)
}

// AttachPhoto adds an immutable media reference to an open request.
func (c *Coordinator) AttachPhoto(ctx context.Context, actor Actor, requestID uint, url string) (*models.RequestPhoto, error) {
	if url == "" {
		return nil, fmt.Errorf("%w: photo url required", ErrValidation)
	}
	req, err := c.store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.OwnerID != actor.ID {
		return nil, fmt.Errorf("%w: request %d does not belong to caller", ErrAuthorization, requestID)
	}
	if req.Status.Terminal() {
		return nil, fmt.Errorf("%w: request %d is closed", ErrState, requestID)
	}

	photo := &models.RequestPhoto{RequestID: requestID, URL: url}
	if err := c.store.CreatePhoto(ctx, photo); err != nil {
		return nil, err
	}
	return photo, nil
}

func validPoint(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}
