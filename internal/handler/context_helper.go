package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/edustack/portal-api/internal/middleware"
	"github.com/edustack/portal-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// optionalID reads a query/path value into a nullable id. Empty means nil.
func optionalID(raw string) *string {
	if raw == "" {
		return nil
	}
	return &raw
}
