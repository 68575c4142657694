package models

import (
	"gorm.io/gorm"
)

type ReviewDirection string

const (
	ReviewForMechanic ReviewDirection = "for_mechanic"
	ReviewForDriver   ReviewDirection = "for_driver"
)

// Review is a post-completion rating, at most one per (request, direction).
type Review struct {
	gorm.Model
	RequestID uint            `json:"requestId" gorm:"not null;uniqueIndex:idx_reviews_request_direction"`
	Direction ReviewDirection `json:"direction" gorm:"not null;uniqueIndex:idx_reviews_request_direction"`
	AuthorID  uint            `json:"authorId" gorm:"not null"`
	Author    *User           `json:"author,omitempty" gorm:"foreignKey:AuthorID"`
	SubjectID uint            `json:"subjectId" gorm:"not null;index"`
	Subject   *User           `json:"subject,omitempty" gorm:"foreignKey:SubjectID"`
	Rating    int             `json:"rating" gorm:"not null;check:rating >= 1 AND rating <= 5"`
	Comment   string          `json:"comment"`
}

// TableName specifies the table name
func (Review) TableName() string {
	return "reviews"
}
