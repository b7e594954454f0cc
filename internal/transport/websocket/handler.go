package websocket

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/iamasit07/connect4-server/internal/logging"
	"github.com/iamasit07/connect4-server/internal/protocol"
	"github.com/rs/zerolog"
)

// Handler upgrades /ws requests and hands the sockets to the pairing loop.
type Handler struct {
	Acceptor protocol.Acceptor
	Upgrader websocket.Upgrader
	logger   zerolog.Logger
}

func NewHandler(acceptor protocol.Acceptor, allowedOrigins []string, logger zerolog.Logger) *Handler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = true
	}

	return &Handler{
		Acceptor: acceptor,
		Upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				// non-browser clients send no origin
				return origin == "" || allowed[origin]
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger: logging.Component(logger, "ws"),
	}
}

func (h *Handler) HandleWebSocket(c *gin.Context) {
	ws, err := h.Upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("upgrade error")
		return
	}

	conn := NewConn(ws)
	h.logger.Debug().Str("peer", conn.RemoteAddr().String()).Msg("connection upgraded")
	if err := h.Acceptor.Offer(c.Request.Context(), conn); err != nil {
		h.logger.Warn().Err(err).Msg("connection not accepted")
		conn.Close()
	}
}
