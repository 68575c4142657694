package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/autohelp/autohelp-backend/internal/models"
)

type VehicleInput struct {
	Plate        string `json:"plate" binding:"required"`
	BrandModel   string `json:"brandModel" binding:"required"`
	Year         *int   `json:"year"`
	VIN          string `json:"vin"`
	Color        string `json:"color"`
	BodyType     string `json:"bodyType"`
	Fuel         string `json:"fuel"`
	EngineVolume string `json:"engineVolume"`
}

// AddVehicle registers a vehicle in the caller's garage.
func AddVehicle(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input VehicleInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		vehicle := models.Vehicle{
			OwnerID:      c.GetUint("userId"),
			Plate:        input.Plate,
			BrandModel:   input.BrandModel,
			Year:         input.Year,
			VIN:          input.VIN,
			Color:        input.Color,
			BodyType:     input.BodyType,
			Fuel:         input.Fuel,
			EngineVolume: input.EngineVolume,
		}

		if err := db.Create(&vehicle).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				c.JSON(409, gin.H{"error": "Vehicle with this plate already registered"})
				return
			}
			c.JSON(500, gin.H{"error": "Failed to add vehicle"})
			return
		}
		c.JSON(201, vehicle)
	}
}

// MyVehicles lists the caller's garage.
func MyVehicles(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var list []models.Vehicle
		err := db.Where("owner_id = ?", c.GetUint("userId")).
			Order("created_at ASC").
			Find(&list).Error
		if err != nil {
			c.JSON(500, gin.H{"error": "Failed to fetch vehicles"})
			return
		}
		c.JSON(200, gin.H{"vehicles": list, "count": len(list)})
	}
}

// UpdateVehicle edits a garage entry. Requests created earlier keep the
// label snapshot they were opened with.
func UpdateVehicle(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := parseID(c, "id")
		if err != nil {
			return
		}

		var vehicle models.Vehicle
		if err := db.Where("id = ? AND owner_id = ?", id, c.GetUint("userId")).First(&vehicle).Error; err != nil {
			c.JSON(404, gin.H{"error": "Vehicle not found"})
			return
		}

		var input struct {
			Plate        *string `json:"plate"`
			BrandModel   *string `json:"brandModel"`
			Year         *int    `json:"year"`
			VIN          *string `json:"vin"`
			Color        *string `json:"color"`
			BodyType     *string `json:"bodyType"`
			Fuel         *string `json:"fuel"`
			EngineVolume *string `json:"engineVolume"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		if input.Plate != nil {
			vehicle.Plate = *input.Plate
		}
		if input.BrandModel != nil {
			vehicle.BrandModel = *input.BrandModel
		}
		if input.Year != nil {
			vehicle.Year = input.Year
		}
		if input.VIN != nil {
			vehicle.VIN = *input.VIN
		}
		if input.Color != nil {
			vehicle.Color = *input.Color
		}
		if input.BodyType != nil {
			vehicle.BodyType = *input.BodyType
		}
		if input.Fuel != nil {
			vehicle.Fuel = *input.Fuel
		}
		if input.EngineVolume != nil {
			vehicle.EngineVolume = *input.EngineVolume
		}

		if err := db.Save(&vehicle).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				c.JSON(409, gin.H{"error": "Vehicle with this plate already registered"})
				return
			}
			c.JSON(500, gin.H{"error": "Failed to update vehicle"})
			return
		}
		c.JSON(200, vehicle)
	}
}

// DeleteVehicle removes a garage entry.
func DeleteVehicle(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := parseID(c, "id")
		if err != nil {
			return
		}

		result := db.Where("id = ? AND owner_id = ?", id, c.GetUint("userId")).Delete(&models.Vehicle{})
		if result.Error != nil {
			c.JSON(500, gin.H{"error": "Failed to delete vehicle"})
			return
		}
		if result.RowsAffected == 0 {
			c.JSON(404, gin.H{"error": "Vehicle not found"})
			return
		}
		c.JSON(200, gin.H{"message": "Vehicle deleted"})
	}
}
