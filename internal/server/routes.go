package server

import (
	"github.com/gin-gonic/gin"
)

func (s *Server) setupRoutes() {
	gin.SetMode(s.ginMode)
	s.router = gin.New()

	s.router.Use(gin.Logger())
	s.router.Use(gin.Recovery())
	s.router.Use(s.requestIDMiddleware())
	s.router.Use(s.corsMiddleware())
	s.router.Use(s.maxBodySizeMiddleware())
	s.router.Use(s.rateLimitMiddleware())

	// Public routes (no auth)
	s.router.GET("/health", s.healthCheck)

	// Protected routes, open when no client keys are configured
	protected := s.router.Group("/")
	if len(s.validClientKeys) > 0 {
		protected.Use(s.authenticateClient)
	}
	protected.POST("/predict", s.predict)

	api := protected.Group("/api")
	{
		api.GET("/model", s.modelInfo)
		api.GET("/stats", s.getStatsData)
	}
}
