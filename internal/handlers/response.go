package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/preetsinghmakkar/CampusConnect/internal/apperrors"
)

// respondError maps a service error onto the API's status codes.
func respondError(c *gin.Context, err error) {
	c.JSON(apperrors.HTTPStatus(err), gin.H{"error": apperrors.PublicMessage(err)})
}

func respondBindError(c *gin.Context, err error) {
	c.JSON(400, gin.H{"error": err.Error()})
}
