package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/iamasit07/connect4-server/internal/domain"
	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// HistoryStore is the read side of the game repository.
type HistoryStore interface {
	ListRecent(ctx context.Context, limit int) ([]domain.GameRecord, error)
	GetGameByID(ctx context.Context, gameID string) (*domain.GameRecord, error)
}

// HistoryHandler serves finished games. Listings are cached briefly and
// concurrent misses share one query.
type HistoryHandler struct {
	Store HistoryStore
	cache *cache.Cache
	group singleflight.Group
}

func NewHistoryHandler(store HistoryStore, ttl time.Duration) *HistoryHandler {
	return &HistoryHandler{
		Store: store,
		cache: cache.New(ttl, 2*ttl),
	}
}

type historyItem struct {
	ID            string    `json:"id"`
	SessionNumber uint32    `json:"sessionNumber"`
	Mode          string    `json:"mode"`
	Result        string    `json:"result"`
	EndReason     string    `json:"endReason"`
	MovesCount    int       `json:"movesCount"`
	Duration      int       `json:"durationSeconds"`
	FinishedAt    time.Time `json:"finishedAt"`
}

func (h *HistoryHandler) GetHistory(c *gin.Context) {
	if h.Store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "history is disabled"})
		return
	}

	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	key := strconv.Itoa(limit)
	if cached, found := h.cache.Get(key); found {
		c.JSON(http.StatusOK, cached)
		return
	}

	v, err, _ := h.group.Do(key, func() (interface{}, error) {
		games, err := h.Store.ListRecent(c.Request.Context(), limit)
		if err != nil {
			return nil, err
		}

		history := make([]historyItem, 0, len(games))
		for _, g := range games {
			history = append(history, historyItem{
				ID:            g.GameID,
				SessionNumber: g.SessionNumber,
				Mode:          g.Mode,
				Result:        resultOf(g),
				EndReason:     g.Reason,
				MovesCount:    g.TotalMoves,
				Duration:      g.DurationSeconds,
				FinishedAt:    g.FinishedAt,
			})
		}
		h.cache.SetDefault(key, history)
		return history, nil
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch history"})
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *HistoryHandler) GetGameDetails(c *gin.Context) {
	if h.Store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "history is disabled"})
		return
	}

	game, err := h.Store.GetGameByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch game"})
		return
	}
	if game == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Game not found"})
		return
	}
	c.JSON(http.StatusOK, game)
}

func resultOf(g domain.GameRecord) string {
	switch {
	case g.Winner != "":
		return g.Winner + " won"
	case g.Reason == domain.ReasonTie:
		return "draw"
	}
	return "aborted"
}
