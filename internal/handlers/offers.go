package handlers

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/autohelp/autohelp-backend/internal/lifecycle"
	"github.com/autohelp/autohelp-backend/internal/models"
	"github.com/autohelp/autohelp-backend/internal/services"
)

type SubmitOfferInput struct {
	Price   float64 `json:"price" binding:"required"`
	Comment string  `json:"comment"`
}

// SubmitOffer posts a priced offer on an open request.
func SubmitOffer(db *gorm.DB, coord *lifecycle.Coordinator, hub *services.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID, err := parseID(c, "id")
		if err != nil {
			return
		}

		var input SubmitOfferInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		actor := currentActor(c)
		offer, err := coord.SubmitOffer(c.Request.Context(), actor, requestID, input.Price, input.Comment)
		if err != nil {
			respondError(c, err)
			return
		}

		var mechanic models.User
		db.First(&mechanic, actor.ID)
		if req, err := coord.GetRequest(c.Request.Context(), requestID); err == nil {
			hub.SendOfferPosted(req.OwnerID, services.OfferPosted{
				RequestID:    requestID,
				OfferID:      offer.ID,
				Price:        offer.Price,
				MechanicName: mechanic.Username,
			})
		}

		c.JSON(201, offer)
	}
}

// ListOffers returns all offers on the caller's request, oldest first, each
// annotated with its derived state.
func ListOffers(coord *lifecycle.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID, err := parseID(c, "id")
		if err != nil {
			return
		}

		req, err := coord.GetRequest(c.Request.Context(), requestID)
		if err != nil {
			respondError(c, err)
			return
		}
		if req.OwnerID != c.GetUint("userId") {
			c.JSON(403, gin.H{"error": "Request does not belong to caller"})
			return
		}

		offers, err := coord.ListOffers(c.Request.Context(), requestID)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(200, gin.H{"offers": annotateOffers(offers, req.Status), "count": len(offers)})
	}
}

// AcceptOffer commits the request to one offer. Exactly one acceptance per
// request can succeed; losers of the race get a 409.
func AcceptOffer(db *gorm.DB, coord *lifecycle.Coordinator, hub *services.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		offerID, err := parseID(c, "offerId")
		if err != nil {
			return
		}

		req, err := coord.AcceptOffer(c.Request.Context(), currentActor(c), offerID)
		if err != nil {
			respondError(c, err)
			return
		}

		var offer models.Offer
		if db.First(&offer, offerID).Error == nil {
			var owner models.User
			db.First(&owner, req.OwnerID)
			hub.SendOfferAccepted(offer.MechanicID, services.OfferAccepted{
				RequestID:    req.ID,
				OfferID:      offer.ID,
				VehicleLabel: req.VehicleLabel,
				DriverPhone:  owner.Phone,
			})
		}
		hub.SendStatusUpdate(req.OwnerID, services.RequestStatusUpdate{RequestID: req.ID, Status: string(req.Status)})
		services.PublishRequestUpdate(c.Request.Context(), req.ID, string(req.Status), gin.H{"offerId": offerID})

		c.JSON(200, req)
	}
}

// MyOffers lists the mechanic's own offers with their derived state, newest
// first.
func MyOffers(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var offers []models.Offer
		err := db.Where("mechanic_id = ?", c.GetUint("userId")).
			Order("created_at DESC").
			Find(&offers).Error
		if err != nil {
			c.JSON(500, gin.H{"error": "Failed to fetch offers"})
			return
		}

		// Offer state is derived from the parent request on every read, so a
		// request leaving "new" implicitly closes the losing offers.
		out := make([]gin.H, 0, len(offers))
		for _, o := range offers {
			var req models.Request
			if err := db.First(&req, o.RequestID).Error; err != nil {
				continue
			}
			out = append(out, gin.H{
				"id":        o.ID,
				"requestId": o.RequestID,
				"price":     o.Price,
				"comment":   o.Comment,
				"state":     o.State(req.Status),
				"createdAt": o.CreatedAt,
				"request": gin.H{
					"id":           req.ID,
					"vehicleLabel": req.VehicleLabel,
					"description":  req.Description,
					"urgency":      req.Urgency,
					"status":       req.Status,
					"lat":          req.Lat,
					"lng":          req.Lng,
					"address":      req.Address,
				},
			})
		}
		c.JSON(200, gin.H{"offers": out, "count": len(out)})
	}
}

func annotateOffers(offers []models.Offer, status models.RequestStatus) []gin.H {
	out := make([]gin.H, 0, len(offers))
	for _, o := range offers {
		entry := gin.H{
			"id":         o.ID,
			"requestId":  o.RequestID,
			"mechanicId": o.MechanicID,
			"price":      o.Price,
			"comment":    o.Comment,
			"state":      o.State(status),
			"createdAt":  o.CreatedAt,
		}
		if o.Mechanic != nil {
			entry["mechanic"] = gin.H{
				"id":       o.Mechanic.ID,
				"username": o.Mechanic.Username,
				"rating":   o.Mechanic.Rating,
			}
		}
		out = append(out, entry)
	}
	return out
}
