package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/autohelp/autohelp-backend/internal/lifecycle"
	"github.com/autohelp/autohelp-backend/internal/matching"
	"github.com/autohelp/autohelp-backend/internal/models"
	"github.com/autohelp/autohelp-backend/internal/services"
	"github.com/autohelp/autohelp-backend/pkg/utils"
)

type CreateRequestInput struct {
	VehicleID    *uint          `json:"vehicleId"`
	VehicleLabel string         `json:"vehicleLabel"`
	CategoryID   *uint          `json:"categoryId"`
	Description  string         `json:"description"`
	Urgency      models.Urgency `json:"urgency"`
	Lat          float64        `json:"lat"`
	Lng          float64        `json:"lng"`
	Address      string         `json:"address"`
}

// CreateRequest opens a repair request. When a garage vehicle is referenced
// its label is snapshotted onto the request so later garage edits do not
// rewrite history.
func CreateRequest(db *gorm.DB, coord *lifecycle.Coordinator, hub *services.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input CreateRequestInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		actor := currentActor(c)

		label := input.VehicleLabel
		if input.VehicleID != nil {
			var vehicle models.Vehicle
			if err := db.Where("id = ? AND owner_id = ?", *input.VehicleID, actor.ID).First(&vehicle).Error; err != nil {
				c.JSON(404, gin.H{"error": "Vehicle not found in your garage"})
				return
			}
			label = vehicle.Label()
		}

		req, err := coord.CreateRequest(c.Request.Context(), actor, lifecycle.CreateRequestInput{
			VehicleID:    input.VehicleID,
			VehicleLabel: label,
			CategoryID:   input.CategoryID,
			Description:  input.Description,
			Urgency:      input.Urgency,
			Lat:          input.Lat,
			Lng:          input.Lng,
			Address:      input.Address,
		})
		if err != nil {
			respondError(c, err)
			return
		}

		hub.SendRequestPosted(services.RequestPosted{
			RequestID:    req.ID,
			Urgency:      string(req.Urgency),
			VehicleLabel: req.VehicleLabel,
			Description:  req.Description,
			Lat:          req.Lat,
			Lng:          req.Lng,
		})
		services.PublishRequestUpdate(c.Request.Context(), req.ID, string(req.Status), nil)

		c.JSON(201, req)
	}
}

// NearbyRequests is the mechanic feed: open requests within radiusKm of the
// caller, nearest first.
func NearbyRequests(svc *matching.Service) gin.HandlerFunc {
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

		matches, err := svc.NearbyRequests(c.Request.Context(), c.GetUint("userId"), utils.Point{Lat: lat, Lng: lng}, radiusKm)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(200, gin.H{"requests": matches, "count": len(matches)})
	}
}

// MyRequests lists the caller's own requests, newest first.
func MyRequests(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var list []models.Request
		err := db.Preload("Category").Preload("Photos").
			Where("owner_id = ?", c.GetUint("userId")).
			Order("created_at DESC").
			Find(&list).Error
		if err != nil {
			c.JSON(500, gin.H{"error": "Failed to fetch requests"})
			return
		}
		c.JSON(200, gin.H{"requests": list, "count": len(list)})
	}
}

// GetRequest returns the current request snapshot for polling clients.
func GetRequest(coord *lifecycle.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := parseID(c, "id")
		if err != nil {
			return
		}
		req, err := coord.GetRequest(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(200, req)
	}
}

// FinishRequest marks an active request done. Either party may call it; the
// second call gets a 409 so clients can tell "already done" from success.
func FinishRequest(coord *lifecycle.Coordinator, hub *services.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := parseID(c, "id")
		if err != nil {
			return
		}
		req, err := coord.FinishRequest(c.Request.Context(), currentActor(c), id)
		if err != nil {
			respondError(c, err)
			return
		}

		hub.SendStatusUpdate(req.OwnerID, services.RequestStatusUpdate{RequestID: req.ID, Status: string(req.Status)})
		services.PublishRequestUpdate(c.Request.Context(), req.ID, string(req.Status), nil)

		c.JSON(200, req)
	}
}

// CancelRequest closes a request that has not been completed.
func CancelRequest(coord *lifecycle.Coordinator, hub *services.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := parseID(c, "id")
		if err != nil {
			return
		}
		req, err := coord.CancelRequest(c.Request.Context(), currentActor(c), id)
		if err != nil {
			respondError(c, err)
			return
		}

		hub.SendStatusUpdate(req.OwnerID, services.RequestStatusUpdate{RequestID: req.ID, Status: string(req.Status)})
		services.PublishRequestUpdate(c.Request.Context(), req.ID, string(req.Status), nil)

		c.JSON(200, req)
	}
}

// UploadRequestPhoto stores the image and attaches its URL to the request.
func UploadRequestPhoto(coord *lifecycle.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := parseID(c, "id")
		if err != nil {
			return
		}

		file, err := c.FormFile("photo")
		if err != nil {
			c.JSON(400, gin.H{"error": "photo file required"})
			return
		}

		url, err := services.UploadImage(file, "requests")
		if err != nil {
			c.JSON(500, gin.H{"error": "Failed to upload photo"})
			return
		}

		photo, err := coord.AttachPhoto(c.Request.Context(), currentActor(c), id, url)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(201, photo)
	}
}

// parseID reads a numeric path parameter, answering 400 itself on failure.
func parseID(c *gin.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		c.JSON(400, gin.H{"error": "invalid " + name})
		return 0, err
	}
	return uint(id), nil
}
