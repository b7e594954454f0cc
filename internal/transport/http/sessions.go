package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/iamasit07/connect4-server/internal/service/game"
)

type SessionsHandler struct {
	Registry game.Registry
}

func NewSessionsHandler(registry game.Registry) *SessionsHandler {
	return &SessionsHandler{Registry: registry}
}

// GetLiveSessions lists the running sessions from the registry.
func (h *SessionsHandler) GetLiveSessions(c *gin.Context) {
	sessions, err := h.Registry.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list sessions"})
		return
	}
	c.JSON(http.StatusOK, sessions)
}
