// Package http exposes the read-only API and the WebSocket entry point.
package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/iamasit07/connect4-server/internal/logging"
	"github.com/iamasit07/connect4-server/internal/transport/http/middleware"
	"github.com/rs/zerolog"
)

type RouterConfig struct {
	AllowedOrigins []string
	Sessions       *SessionsHandler
	History        *HistoryHandler
	WebSocket      gin.HandlerFunc
	Logger         zerolog.Logger
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	logger := logging.Component(cfg.Logger, "http")

	router := gin.New()
	router.Use(middleware.RequestLogger(logger), gin.Recovery())

	api := router.Group("/api")
	api.Use(middleware.CORSMiddleware(cfg.AllowedOrigins, logger))
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC()})
		})
		if cfg.Sessions != nil {
			api.GET("/sessions", cfg.Sessions.GetLiveSessions)
		}
		if cfg.History != nil {
			api.GET("/history", cfg.History.GetHistory)
			api.GET("/history/:id", cfg.History.GetGameDetails)
		}
	}

	// origin checks for the socket happen in the upgrader
	if cfg.WebSocket != nil {
		router.GET("/ws", cfg.WebSocket)
	}
	return router
}
