package models

import (
	"gorm.io/gorm"
)

type RequestStatus string

const (
	RequestStatusNew      RequestStatus = "new"
	RequestStatusActive   RequestStatus = "active"
	RequestStatusDone     RequestStatus = "done"
	RequestStatusCanceled RequestStatus = "canceled"

	// Legacy label found in older rows; treated as an alias of "active"
	// at the mapping boundary, never written by new code.
	requestStatusInProgress RequestStatus = "in_progress"
)

// Canonical maps legacy status labels onto the canonical state set.
func (s RequestStatus) Canonical() RequestStatus {
	if s == requestStatusInProgress {
		return RequestStatusActive
	}
	return s
}

// AliasSet returns every stored label that reads as this canonical status.
// Conditional updates match against the full set so legacy rows still
// transition correctly.
func (s RequestStatus) AliasSet() []RequestStatus {
	if s.Canonical() == RequestStatusActive {
		return []RequestStatus{RequestStatusActive, requestStatusInProgress}
	}
	return []RequestStatus{s}
}

// Terminal reports whether no further transition may leave this status.
func (s RequestStatus) Terminal() bool {
	c := s.Canonical()
	return c == RequestStatusDone || c == RequestStatusCanceled
}

type Urgency string

const (
	UrgencySOS     Urgency = "sos"
	UrgencyPlanned Urgency = "planned"
)

func (u Urgency) Valid() bool {
	return u == UrgencySOS || u == UrgencyPlanned
}

// Request is a driver's posted need for repair assistance.
type Request struct {
	gorm.Model
	OwnerID      uint             `json:"ownerId" gorm:"not null;index"`
	Owner        *User            `json:"owner,omitempty" gorm:"foreignKey:OwnerID"`
	VehicleID    *uint            `json:"vehicleId,omitempty"`
	VehicleLabel string           `json:"vehicleLabel" gorm:"not null"` // e.g. "Toyota Camry (AA1234AA)"
	CategoryID   *uint            `json:"categoryId,omitempty"`
	Category     *ServiceCategory `json:"category,omitempty" gorm:"foreignKey:CategoryID"`
	Description  string           `json:"description"`
	Urgency      Urgency          `json:"urgency" gorm:"not null;default:'planned'"`
	Lat          float64          `json:"lat" gorm:"not null"`
	Lng          float64          `json:"lng" gorm:"not null"`
	Address      string           `json:"address,omitempty"`
	Status       RequestStatus    `json:"status" gorm:"not null;default:'new'"`
	Photos       []RequestPhoto   `json:"photos,omitempty" gorm:"foreignKey:RequestID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name
func (Request) TableName() string {
	return "requests"
}

// RequestPhoto is an immutable media reference owned by a Request.
type RequestPhoto struct {
	gorm.Model
	RequestID uint   `json:"requestId" gorm:"not null;index"`
	URL       string `json:"url" gorm:"not null"`
}

// TableName specifies the table name
func (RequestPhoto) TableName() string {
	return "request_photos"
}
