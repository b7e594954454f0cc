package game

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/iamasit07/connect4-server/internal/domain"
	"github.com/iamasit07/connect4-server/internal/logging"
	"github.com/iamasit07/connect4-server/internal/protocol"
	"github.com/iamasit07/connect4-server/internal/service/bot"
	"github.com/iamasit07/connect4-server/pkg/uid"
	"github.com/rs/zerolog"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrPeerCount       = errors.New("peer count does not match game mode")
)

// GameRepository stores finished games.
type GameRepository interface {
	SaveGame(ctx context.Context, rec domain.GameRecord) error
}

// Registry publishes the sessions that are currently running.
type Registry interface {
	Track(ctx context.Context, s domain.LiveSession) error
	Untrack(ctx context.Context, sessionNumber uint32) error
	List(ctx context.Context) ([]domain.LiveSession, error)
}

// SessionManager owns the live sessions and numbers them from a
// process-wide counter.
type SessionManager struct {
	sessions map[uint32]*Session
	mu       sync.RWMutex
	counter  atomic.Uint32

	repo     GameRepository
	registry Registry
	engine   bot.Engine
	logger   zerolog.Logger

	// trackTimeout bounds each registry update made from a running session.
	trackTimeout time.Duration

	saves sync.WaitGroup
}

const defaultTrackTimeout = 250 * time.Millisecond

// NewSessionManager accepts nil repo and registry; the matching features
// are then skipped.
func NewSessionManager(repo GameRepository, registry Registry, engine bot.Engine, logger zerolog.Logger) *SessionManager {
	return &SessionManager{
		sessions: make(map[uint32]*Session),
		repo:     repo,
		registry: registry,
		engine:   engine,
		logger:   logging.Component(logger, "session"),

		trackTimeout: defaultTrackTimeout,
	}
}

// CreateSession registers a session for peer a (token A) and, in two-player
// mode, peer b (token B). The caller runs it.
func (sm *SessionManager) CreateSession(ctx context.Context, mode protocol.Mode, a, b *protocol.Peer) (*Session, error) {
	if a == nil {
		return nil, fmt.Errorf("%w: missing peer A", ErrPeerCount)
	}
	switch mode {
	case protocol.ModeComputer:
		if b != nil {
			return nil, fmt.Errorf("%w: %s takes one peer", ErrPeerCount, mode)
		}
		if sm.engine == nil {
			return nil, fmt.Errorf("%s: no computer opponent configured", mode)
		}
	case protocol.ModeTwoPlayer:
		if b == nil {
			return nil, fmt.Errorf("%w: %s takes two peers", ErrPeerCount, mode)
		}
	default:
		return nil, fmt.Errorf("%w: %d", protocol.ErrUnknownMode, int32(mode))
	}

	number := sm.counter.Add(1)
	session := newSession(number, uid.GenerateGameID(), mode, a, b, sm)

	sm.mu.Lock()
	sm.sessions[number] = session
	sm.mu.Unlock()

	session.logger.Info().
		Str("mode", mode.String()).
		Str("peer_a", a.RemoteAddr()).
		Str("peer_b", peerAddr(b)).
		Msg("session created")
	sm.track(ctx, session)
	return session, nil
}

func (sm *SessionManager) GetSession(number uint32) (*Session, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	session, exists := sm.sessions[number]
	return session, exists
}

func (sm *SessionManager) RemoveSession(number uint32) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if _, exists := sm.sessions[number]; !exists {
		return fmt.Errorf("%w: %d", ErrSessionNotFound, number)
	}
	delete(sm.sessions, number)
	return nil
}

// ActiveSessions returns a summary of every running session ordered by
// session number.
func (sm *SessionManager) ActiveSessions() []domain.LiveSession {
	sm.mu.RLock()
	sessions := make([]*Session, 0, len(sm.sessions))
	for _, s := range sm.sessions {
		sessions = append(sessions, s)
	}
	sm.mu.RUnlock()

	summaries := make([]domain.LiveSession, 0, len(sessions))
	for _, s := range sessions {
		summaries = append(summaries, s.Summary())
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].SessionNumber < summaries[j].SessionNumber
	})
	return summaries
}

func (sm *SessionManager) Count() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}

// Wait blocks until every pending history write has finished.
func (sm *SessionManager) Wait() {
	sm.saves.Wait()
}

// release is called once by a session when it ends.
func (sm *SessionManager) release(s *Session, rec domain.GameRecord) {
	if err := sm.RemoveSession(s.Number); err != nil {
		s.logger.Warn().Err(err).Msg("release")
	}

	if sm.registry != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := sm.registry.Untrack(ctx, s.Number); err != nil {
			s.logger.Warn().Err(err).Msg("failed to untrack session")
		}
		cancel()
	}

	if sm.repo != nil {
		sm.saveGameAsync(s.logger, rec)
	}
}

func (sm *SessionManager) track(ctx context.Context, s *Session) {
	if sm.registry == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, sm.trackTimeout)
	defer cancel()
	if err := sm.registry.Track(ctx, s.Summary()); err != nil {
		s.logger.Warn().Err(err).Msg("failed to track session")
	}
}

// saveGameAsync writes the record in the background so the final broadcast
// is never held up by the database.
func (sm *SessionManager) saveGameAsync(logger zerolog.Logger, rec domain.GameRecord) {
	sm.saves.Add(1)
	go func() {
		defer sm.saves.Done()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := sm.repo.SaveGame(ctx, rec); err != nil {
			logger.Error().Err(err).Msg("error saving game")
			return
		}
		logger.Debug().Str("reason", rec.Reason).Msg("game saved")
	}()
}

func peerAddr(p *protocol.Peer) string {
	if p == nil {
		return ""
	}
	return p.RemoteAddr()
}
