package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/iamasit07/connect4-server/internal/domain"
	"github.com/iamasit07/connect4-server/internal/repository/memory"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	calls atomic.Int32
	games []domain.GameRecord
}

func (s *fakeStore) ListRecent(_ context.Context, limit int) ([]domain.GameRecord, error) {
	s.calls.Add(1)
	if limit < len(s.games) {
		return s.games[:limit], nil
	}
	return s.games, nil
}

func (s *fakeStore) GetGameByID(_ context.Context, id string) (*domain.GameRecord, error) {
	for _, g := range s.games {
		if g.GameID == id {
			return &g, nil
		}
	}
	return nil, nil
}

func newTestRouter(t *testing.T, store HistoryStore) (*gin.Engine, *memory.Registry) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	registry := memory.NewRegistry(time.Minute)
	var history *HistoryHandler
	if store != nil {
		history = NewHistoryHandler(store, time.Minute)
	}
	router := NewRouter(RouterConfig{
		AllowedOrigins: []string{"https://play.example"},
		Sessions:       NewSessionsHandler(registry),
		History:        history,
		Logger:         zerolog.Nop(),
	})
	return router, registry
}

func get(router http.Handler, path string, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRouter_Health(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	rec := get(router, "/api/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestRouter_LiveSessions(t *testing.T) {
	router, registry := newTestRouter(t, nil)
	require.NoError(t, registry.Track(context.Background(), domain.LiveSession{SessionNumber: 4, Mode: "computer", Turn: "X"}))

	rec := get(router, "/api/sessions")
	require.Equal(t, http.StatusOK, rec.Code)

	var live []domain.LiveSession
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &live))
	require.Len(t, live, 1)
	assert.Equal(t, uint32(4), live[0].SessionNumber)
}

func TestRouter_HistoryIsCached(t *testing.T) {
	store := &fakeStore{games: []domain.GameRecord{
		{GameID: "a", Winner: "X", Reason: domain.ReasonWin, TotalMoves: 7},
		{GameID: "b", Reason: domain.ReasonTie, TotalMoves: 42},
		{GameID: "c", Reason: domain.ReasonDisconnect, TotalMoves: 3},
	}}
	router, _ := newTestRouter(t, store)

	rec := get(router, "/api/history")
	require.Equal(t, http.StatusOK, rec.Code)

	var items []historyItem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	require.Len(t, items, 3)
	assert.Equal(t, "X won", items[0].Result)
	assert.Equal(t, "draw", items[1].Result)
	assert.Equal(t, "aborted", items[2].Result)

	get(router, "/api/history")
	assert.Equal(t, int32(1), store.calls.Load())

	rec = get(router, "/api/history?limit=1")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	assert.Len(t, items, 1)
	assert.Equal(t, int32(2), store.calls.Load())

	assert.Equal(t, http.StatusBadRequest, get(router, "/api/history?limit=-3").Code)
}

func TestRouter_GameDetails(t *testing.T) {
	store := &fakeStore{games: []domain.GameRecord{{GameID: "abc", Reason: domain.ReasonTie}}}
	router, _ := newTestRouter(t, store)

	rec := get(router, "/api/history/abc")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"gameId":"abc"`)

	assert.Equal(t, http.StatusNotFound, get(router, "/api/history/missing").Code)
}

func TestRouter_HistoryDisabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := NewRouter(RouterConfig{History: NewHistoryHandler(nil, time.Minute), Logger: zerolog.Nop()})

	assert.Equal(t, http.StatusServiceUnavailable, get(router, "/api/history").Code)
}

func TestRouter_CORS(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	rec := get(router, "/api/health", "Origin", "https://play.example")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://play.example", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = get(router, "/api/health", "Origin", "https://evil.example")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
