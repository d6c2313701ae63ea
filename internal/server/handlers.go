package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) healthHandler(c *gin.Context) {
	health, err := s.sc.Health()
	if err != nil {
		c.String(http.StatusInternalServerError, health)
		return
	}

	c.String(http.StatusOK, health)
}

func (s *Server) onlineHandler(c *gin.Context) {
	c.String(http.StatusOK, s.sc.Online())
}
