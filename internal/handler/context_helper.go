package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/qau-se/cfms-api/internal/middleware"
	"github.com/qau-se/cfms-api/internal/models"
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

// sessionKeyFromRequest resolves the autosave session key. Each browser
// tab sends its own X-Session-Key; callers without one share a
// per-user session.
func sessionKeyFromRequest(c *gin.Context, claims *models.JWTClaims) string {
	if key := c.GetHeader("X-Session-Key"); key != "" {
		return key
	}
	return claims.UserID
}
