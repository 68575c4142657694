package handlers

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/autohelp/autohelp-backend/internal/models"
	"github.com/autohelp/autohelp-backend/internal/reviews"
)

type SubmitReviewInput struct {
	Rating  int    `json:"rating" binding:"required"`
	Comment string `json:"comment"`
}

// SubmitReview records a rating for the other party of a completed request.
// The direction is inferred from who the caller is, not from the payload.
func SubmitReview(gate *reviews.Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID, err := parseID(c, "id")
		if err != nil {
			return
		}

		var input SubmitReviewInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		review, err := gate.SubmitReview(c.Request.Context(), currentActor(c), requestID, input.Rating, input.Comment)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(201, review)
	}
}

// ListUserReviews returns reviews written about a user, newest first.
func ListUserReviews(gate *reviews.Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := parseID(c, "id")
		if err != nil {
			return
		}

		list, err := gate.ListForUser(c.Request.Context(), userID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(200, gin.H{"reviews": list, "count": len(list)})
	}
}

// ListStationReviews resolves a station to its owner and returns the owner's
// reviews, so station pages show the mechanic's track record.
func ListStationReviews(db *gorm.DB, gate *reviews.Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		stationID, err := parseID(c, "id")
		if err != nil {
			return
		}

		var station models.Station
		if err := db.First(&station, stationID).Error; err != nil {
			c.JSON(404, gin.H{"error": "Station not found"})
			return
		}

		list, err := gate.ListForUser(c.Request.Context(), station.OwnerID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(200, gin.H{"reviews": list, "count": len(list)})
	}
}
