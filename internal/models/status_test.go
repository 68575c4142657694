package models

import "testing"

func TestRequestStatusCanonical(t *testing.T) {
	if got := RequestStatus("in_progress").Canonical(); got != RequestStatusActive {
		t.Errorf("in_progress canonicalizes to %q, want active", got)
	}
	for _, s := range []RequestStatus{RequestStatusNew, RequestStatusActive, RequestStatusDone, RequestStatusCanceled} {
		if got := s.Canonical(); got != s {
			t.Errorf("%q canonicalizes to %q, want itself", s, got)
		}
	}
}

func TestRequestStatusTerminal(t *testing.T) {
	tests := []struct {
		status RequestStatus
		want   bool
	}{
		{RequestStatusNew, false},
		{RequestStatusActive, false},
		{"in_progress", false},
		{RequestStatusDone, true},
		{RequestStatusCanceled, true},
	}
	for _, tt := range tests {
		if got := tt.status.Terminal(); got != tt.want {
			t.Errorf("%q.Terminal() = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestOfferStateDerivation(t *testing.T) {
	pending := &Offer{}
	accepted := &Offer{Accepted: true}

	tests := []struct {
		name   string
		offer  *Offer
		status RequestStatus
		want   OfferState
	}{
		{"pending while request new", pending, RequestStatusNew, OfferStatePending},
		{"closed once request active", pending, RequestStatusActive, OfferStateClosed},
		{"closed on legacy in_progress", pending, "in_progress", OfferStateClosed},
		{"closed when request done", pending, RequestStatusDone, OfferStateClosed},
		{"closed when request canceled", pending, RequestStatusCanceled, OfferStateClosed},
		{"accepted flag wins", accepted, RequestStatusActive, OfferStateAccepted},
		{"accepted flag persists after done", accepted, RequestStatusDone, OfferStateAccepted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.offer.State(tt.status); got != tt.want {
				t.Errorf("State(%q) = %q, want %q", tt.status, got, tt.want)
			}
		})
	}
}

func TestVehicleLabel(t *testing.T) {
	v := &Vehicle{BrandModel: "TOYOTA HIGHLANDER", Plate: "AA1234AA"}
	if got := v.Label(); got != "TOYOTA HIGHLANDER (AA1234AA)" {
		t.Errorf("Label() = %q", got)
	}
}
