// Package api exposes the feedback service over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	CORSOrigins  []string
}

func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:         ":8080",
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}

// NewRouter builds the gin engine with middleware and all routes registered
func NewRouter(handler *Handler, corsOrigins []string, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(requestID())
	r.Use(requestLogger(logger))
	r.Use(gin.Recovery())
	r.Use(corsMiddleware(corsOrigins))

	r.GET("/health", handler.HealthCheck)

	api := r.Group("/api")
	{
		api.POST("/feedback", handler.CreateFeedback)
		api.GET("/feedback", handler.ListFeedback)
		api.GET("/feedback/:id", handler.GetFeedback)
		api.PATCH("/feedback/:id", handler.UpdateFeedback)

		api.GET("/stats", handler.GetStats)
		api.GET("/insights", handler.GetInsights)
		api.GET("/themes", handler.GetThemes)

		api.POST("/seed", handler.Reseed)
	}

	return r
}

// NewServer wraps the router in an http.Server using cfg's timeouts
func NewServer(cfg ServerConfig, handler *Handler, logger *zap.Logger) *http.Server {
	return &http.Server{
		Addr:         cfg.Addr,
		Handler:      NewRouter(handler, cfg.CORSOrigins, logger),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}
