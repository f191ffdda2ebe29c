package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/stitchline/atelier-api/internal/middleware"
	"github.com/stitchline/atelier-api/internal/models"
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

// currentUser materialises the acting user from the verified token claims.
func currentUser(c *gin.Context) *models.User {
	claims := claimsFromContext(c)
	if claims == nil {
		return nil
	}
	return &models.User{
		ID:       claims.UserID,
		Email:    claims.Email,
		FullName: claims.FullName,
		Role:     claims.Role,
		Active:   true,
	}
}
