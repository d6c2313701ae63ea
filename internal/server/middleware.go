package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware creates middleware that validates API tokens and checks roles
func (s *Server) AuthMiddleware(requiredRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Get token from Authorization header
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Authorization header is required"})
			c.Abort()
			return
		}

		// Check if it's a Bearer token
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Authorization header format must be Bearer {token}"})
			c.Abort()
			return
		}

		tokenString := parts[1]

		// Verify the token
		token, err := s.tc.VerifyToken(c.Request.Context(), tokenString)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Invalid or expired token"})
			c.Abort()
			return
		}

		if token.Revoked {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Token has been revoked"})
			c.Abort()
			return
		}

		// If roles are specified, check if the token has one of the required roles
		if len(requiredRoles) > 0 {
			hasRequiredRole := false
			for _, role := range requiredRoles {
				if token.Role == role {
					hasRequiredRole = true
					break
				}
			}

			if !hasRequiredRole {
				c.JSON(http.StatusForbidden, gin.H{"success": false, "error": "Insufficient permissions"})
				c.Abort()
				return
			}
		}

		// Store token info in the context for use in handlers
		c.Set("token", token)
		c.Set("tokenID", token.ID.Hex())

		c.Next()
	}
}

// getTokenID gets the token ID from the context (set by auth middleware)
func getTokenID(c *gin.Context) string {
	tokenID, exists := c.Get("tokenID")
	if !exists {
		return ""
	}
	return tokenID.(string)
}
