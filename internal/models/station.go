package models

import (
	"gorm.io/gorm"
)

// Station is a mechanic's service-station profile, one per owner.
type Station struct {
	gorm.Model
	OwnerID     uint    `json:"ownerId" gorm:"not null;uniqueIndex"`
	Owner       *User   `json:"owner,omitempty" gorm:"foreignKey:OwnerID"`
	Name        string  `json:"name" gorm:"not null"`
	Address     string  `json:"address" gorm:"not null"`
	Phone       string  `json:"phone" gorm:"not null"`
	Description string  `json:"description"`
	Lat         float64 `json:"lat" gorm:"not null"`
	Lng         float64 `json:"lng" gorm:"not null"`
}

// TableName specifies the table name
func (Station) TableName() string {
	return "stations"
}
