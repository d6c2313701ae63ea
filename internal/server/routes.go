package server

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func (s *Server) RegisterRoutes() http.Handler {
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     s.config.CORS.AllowedOrigins,
		AllowMethods:     s.config.CORS.AllowedMethods,
		AllowHeaders:     s.config.CORS.AllowedHeaders,
		AllowCredentials: s.config.CORS.AllowCredentials,
		MaxAge:           time.Duration(s.config.CORS.MaxAge) * time.Second,
	}))

	r.GET("/health", s.healthHandler)
	r.GET("/online", s.onlineHandler)

	authed := r.Group("/", s.AuthMiddleware())
	{
		authed.POST("/stores/:storeId/imports", s.SubmitImportHandler)
		authed.GET("/imports", s.ListImportsHandler)
		authed.GET("/imports/template", s.ImportTemplateHandler)
		authed.GET("/imports/:id", s.GetImportHandler)
		authed.POST("/imports/:id/cancel", s.CancelImportHandler)
	}

	admin := r.Group("/tokens", s.AuthMiddleware("ADMIN"))
	{
		admin.POST("", s.CreateTokenHandler)
		admin.GET("", s.ListTokensHandler)
		admin.DELETE("/:id", s.RevokeTokenHandler)
	}

	return r
}
