package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// TokenRequest represents the request for creating a token
type TokenRequest struct {
	Name          string `json:"name" binding:"required"`
	Role          string `json:"role" binding:"required"`
	ExpiresInDays int    `json:"expiresInDays"`
}

// CreateTokenHandler generates a new API token
func (s *Server) CreateTokenHandler(c *gin.Context) {
	var req TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	var expiresAt *time.Time
	if req.ExpiresInDays > 0 {
		t := time.Now().AddDate(0, 0, req.ExpiresInDays)
		expiresAt = &t
	}

	tokenString, token, err := s.tc.GenerateToken(c.Request.Context(), req.Name, req.Role, expiresAt)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to generate token: " + err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"token":   tokenString, // Only shown once
		"id":      token.ID.Hex(),
		"name":    token.Name,
		"role":    token.Role,
	})
}

// ListTokensHandler lists all tokens (hashes are never serialized)
func (s *Server) ListTokensHandler(c *gin.Context) {
	tokens, err := s.tc.ListTokens(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to list tokens: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "tokens": tokens})
}

// RevokeTokenHandler revokes a token by ID
func (s *Server) RevokeTokenHandler(c *gin.Context) {
	if err := s.tc.RevokeToken(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to revoke token: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
