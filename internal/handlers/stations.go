package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/autohelp/autohelp-backend/internal/matching"
	"github.com/autohelp/autohelp-backend/internal/models"
	"github.com/autohelp/autohelp-backend/internal/services"
	"github.com/autohelp/autohelp-backend/pkg/utils"
)

type UpsertStationInput struct {
	Name        string  `json:"name" binding:"required"`
	Address     string  `json:"address" binding:"required"`
	Phone       string  `json:"phone" binding:"required"`
	Description string  `json:"description"`
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
}

// UpsertMyStation creates or replaces the caller's station profile. Saving a
// station promotes the account to the mechanic role; the geo index is
// refreshed alongside the row.
func UpsertMyStation(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input UpsertStationInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}
		if input.Lat < -90 || input.Lat > 90 || input.Lng < -180 || input.Lng > 180 {
			c.JSON(400, gin.H{"error": "location out of range"})
			return
		}

		userId := c.GetUint("userId")

		var station models.Station
		err := db.Where("owner_id = ?", userId).First(&station).Error
		if err != nil && err != gorm.ErrRecordNotFound {
			c.JSON(500, gin.H{"error": "Failed to load station"})
			return
		}

		station.OwnerID = userId
		station.Name = input.Name
		station.Address = input.Address
		station.Phone = input.Phone
		station.Description = input.Description
		station.Lat = input.Lat
		station.Lng = input.Lng

		if err := db.Save(&station).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to save station"})
			return
		}

		if err := db.Model(&models.User{}).Where("id = ?", userId).
			Update("role", models.RoleMechanic).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to update role"})
			return
		}

		// Best effort; the nearby query falls back to the database when the
		// index is stale or Redis is down.
		services.IndexStationLocation(c.Request.Context(), station.ID, station.Lat, station.Lng)

		c.JSON(200, station)
	}
}

// GetMyStation returns the caller's station profile.
func GetMyStation(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var station models.Station
		if err := db.Where("owner_id = ?", c.GetUint("userId")).First(&station).Error; err != nil {
			c.JSON(404, gin.H{"error": "Station not found"})
			return
		}
		c.JSON(200, station)
	}
}

// NearbyStations returns stations within radiusKm of a point, nearest first.
// Results are served from a short-lived cache when the same point and radius
// were queried recently.
func NearbyStations(db *gorm.DB, svc *matching.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		lat, err1 := strconv.ParseFloat(c.Query("lat"), 64)
		lng, err2 := strconv.ParseFloat(c.Query("lng"), 64)
		if err1 != nil || err2 != nil {
			c.JSON(400, gin.H{"error": "lat and lng query parameters required"})
			return
		}
		radiusKm := 10.0
		if raw := c.Query("radiusKm"); raw != "" {
			r, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				c.JSON(400, gin.H{"error": "invalid radiusKm"})
				return
			}
			radiusKm = r
		}

		ctx := c.Request.Context()

		var cached []matching.StationMatch
		if ok, _ := services.GetCachedNearbyStations(ctx, lat, lng, radiusKm, &cached); ok {
			c.JSON(200, gin.H{"stations": cached, "count": len(cached), "cached": true})
			return
		}

		// Prefer the Redis geo index; fall back to the bounding-box scan when
		// it is unavailable.
		if ids, err := services.NearbyStationIDs(ctx, lat, lng, radiusKm); err == nil && len(ids) > 0 {
			var stations []models.Station
			if db.Where("id IN ?", ids).Find(&stations).Error == nil {
				matches := orderByGeoIndex(ids, stations, lat, lng)
				services.CacheNearbyStations(ctx, lat, lng, radiusKm, matches)
				c.JSON(200, gin.H{"stations": matches, "count": len(matches)})
				return
			}
		}

		matches, err := svc.NearbyStations(ctx, utils.Point{Lat: lat, Lng: lng}, radiusKm)
		if err != nil {
			respondError(c, err)
			return
		}
		services.CacheNearbyStations(ctx, lat, lng, radiusKm, matches)
		c.JSON(200, gin.H{"stations": matches, "count": len(matches)})
	}
}

// orderByGeoIndex preserves the nearest-first order Redis returned.
func orderByGeoIndex(ids []uint, stations []models.Station, lat, lng float64) []matching.StationMatch {
	byID := make(map[uint]models.Station, len(stations))
	for _, st := range stations {
		byID[st.ID] = st
	}
	matches := make([]matching.StationMatch, 0, len(ids))
	for _, id := range ids {
		st, ok := byID[id]
		if !ok {
			continue
		}
		d := utils.HaversineDistance(lat, lng, st.Lat, st.Lng)
		matches = append(matches, matching.StationMatch{Station: st, DistanceKm: utils.RoundKm(d)})
	}
	return matches
}
