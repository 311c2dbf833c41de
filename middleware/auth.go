package middleware

import (
	"net/http"
	"strings"

	"restaurant-tracker-api/auth"
	"restaurant-tracker-api/models"

	"github.com/gin-gonic/gin"
)

// Context keys set by AuthRequired
const (
	ctxUserID = "userID"
	ctxEmail  = "email"
	ctxRole   = "role"
)

// TokenParser verifies a bearer token; *auth.Service implements it
type TokenParser interface {
	ParseToken(token string) (*auth.Claims, error)
}

// AuthRequired validates the JWT and injects claims into context
func AuthRequired(tokens TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required (Bearer <token>)"})
			return
		}
		claims, err := tokens.ParseToken(strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer ")))
		if err != nil {
			logger.WithError(err).Debug("Token rejected")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}
		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxEmail, claims.Email)
		c.Set(ctxRole, string(claims.Role))
		c.Next()
	}
}

// RoleRequired enforces that caller has one of the allowed roles
func RoleRequired(roles ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		callerRole := GetRole(c)
		for _, r := range roles {
			if callerRole == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error": "Access denied. Required role(s): " + rolesString(roles),
		})
	}
}

func rolesString(roles []models.UserRole) string {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	return strings.Join(names, ", ")
}

// GetUserID extracts caller account ID from context
func GetUserID(c *gin.Context) string {
	return c.GetString(ctxUserID)
}

// GetEmail extracts caller email from context
func GetEmail(c *gin.Context) string {
	return c.GetString(ctxEmail)
}

// GetRole extracts caller role from context
func GetRole(c *gin.Context) models.UserRole {
	return models.UserRole(c.GetString(ctxRole))
}
