package models

import (
	"fmt"

	"gorm.io/gorm"
)

// Vehicle is an entry in a driver's garage.
type Vehicle struct {
	gorm.Model
	OwnerID      uint   `json:"ownerId" gorm:"not null;index"`
	Plate        string `json:"plate" gorm:"unique;not null"`
	BrandModel   string `json:"brandModel" gorm:"not null"` // e.g. "TOYOTA HIGHLANDER"
	Year         *int   `json:"year,omitempty"`
	VIN          string `json:"vin,omitempty"`
	Color        string `json:"color,omitempty"`
	BodyType     string `json:"bodyType,omitempty"`
	Fuel         string `json:"fuel,omitempty"`
	EngineVolume string `json:"engineVolume,omitempty"`
}

// TableName specifies the table name
func (Vehicle) TableName() string {
	return "vehicles"
}

// Label formats the display reference stored on a Request.
func (v *Vehicle) Label() string {
	return fmt.Sprintf("%s (%s)", v.BrandModel, v.Plate)
}
