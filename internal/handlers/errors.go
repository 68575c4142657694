package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/autohelp/autohelp-backend/internal/lifecycle"
	"github.com/autohelp/autohelp-backend/internal/models"
)

// respondError maps service errors to HTTP status codes. Handlers never
// inspect error text; classification rides on the sentinel chain.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, lifecycle.ErrValidation):
		c.JSON(400, gin.H{"error": err.Error()})
	case errors.Is(err, lifecycle.ErrAuthorization):
		c.JSON(403, gin.H{"error": err.Error()})
	case errors.Is(err, lifecycle.ErrNotFound):
		c.JSON(404, gin.H{"error": err.Error()})
	case errors.Is(err, lifecycle.ErrState):
		c.JSON(409, gin.H{"error": err.Error()})
	case errors.Is(err, lifecycle.ErrConflict):
		c.JSON(409, gin.H{"error": err.Error()})
	default:
		c.JSON(500, gin.H{"error": "Internal server error"})
	}
}

// currentActor reads the authenticated caller set by the auth middleware.
func currentActor(c *gin.Context) lifecycle.Actor {
	return lifecycle.Actor{
		ID:   c.GetUint("userId"),
		Role: models.UserRole(c.GetString("role")),
	}
}
