package models

import (
	"gorm.io/gorm"
)

// ServiceCategory is a node in the problem-category taxonomy.
type ServiceCategory struct {
	gorm.Model
	Name     string `json:"name" gorm:"not null"`
	Slug     string `json:"slug" gorm:"unique;not null"`
	ParentID *uint  `json:"parentId,omitempty" gorm:"index"`
}

// TableName specifies the table name
func (ServiceCategory) TableName() string {
	return "service_categories"
}
