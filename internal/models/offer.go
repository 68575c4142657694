package models

import (
	"gorm.io/gorm"
)

// OfferState is derived at read time; only the accepted flag is stored.
// Losing offers are never rewritten, they read as closed once a sibling
// has been accepted.
type OfferState string

const (
	OfferStatePending  OfferState = "pending"
	OfferStateAccepted OfferState = "accepted"
	OfferStateClosed   OfferState = "closed"
)

// Offer is a mechanic's priced response to a Request.
type Offer struct {
	gorm.Model
	RequestID  uint     `json:"requestId" gorm:"not null;uniqueIndex:idx_offers_request_mechanic"`
	Request    *Request `json:"request,omitempty" gorm:"foreignKey:RequestID"`
	MechanicID uint     `json:"mechanicId" gorm:"not null;uniqueIndex:idx_offers_request_mechanic"`
	Mechanic   *User    `json:"mechanic,omitempty" gorm:"foreignKey:MechanicID"`
	Price      float64  `json:"price" gorm:"not null"`
	Comment    string   `json:"comment"`
	Accepted   bool     `json:"accepted" gorm:"not null;default:false"`
}

// TableName specifies the table name
func (Offer) TableName() string {
	return "offers"
}

// State derives the presentation state from the accepted flag and the
// parent request's status.
func (o *Offer) State(requestStatus RequestStatus) OfferState {
	if o.Accepted {
		return OfferStateAccepted
	}
	if requestStatus.Canonical() != RequestStatusNew {
		return OfferStateClosed
	}
	return OfferStatePending
}
