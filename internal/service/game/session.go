package game

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/iamasit07/connect4-server/internal/domain"
	"github.com/iamasit07/connect4-server/internal/protocol"
	"github.com/iamasit07/connect4-server/internal/service/bot"
	"github.com/rs/zerolog"
)

// Session drives one authoritative game over the wire. Peer A always holds
// TokenA; in computer mode TokenB is played by the bot engine.
type Session struct {
	Number    uint32
	GameID    string
	Mode      protocol.Mode
	CreatedAt time.Time

	peers   [2]*protocol.Peer
	engine  bot.Engine
	manager *SessionManager
	logger  zerolog.Logger

	mu   sync.RWMutex
	game *domain.Game
}

// peerFailure remembers which side broke the session.
type peerFailure struct {
	token domain.Token
	err   error
}

func (f *peerFailure) Error() string { return fmt.Sprintf("peer %s: %v", f.token, f.err) }
func (f *peerFailure) Unwrap() error { return f.err }

func newSession(number uint32, gameID string, mode protocol.Mode, a, b *protocol.Peer, sm *SessionManager) *Session {
	s := &Session{
		Number:    number,
		GameID:    gameID,
		Mode:      mode,
		CreatedAt: time.Now(),
		peers:     [2]*protocol.Peer{a, b},
		manager:   sm,
		game:      domain.NewGame(),
		logger: sm.logger.With().
			Uint32("session", number).
			Str("game_id", gameID).
			Logger(),
	}
	if mode == protocol.ModeComputer {
		s.engine = sm.engine
	}
	return s
}

// Run plays the game to the end. It returns nil after a win or a tie, an
// error wrapping protocol.ErrPeerDisconnected or protocol.ErrProtocolViolation
// when a peer breaks the session, or ctx.Err() on cancellation. The peers are
// closed when Run returns.
func (s *Session) Run(ctx context.Context) (err error) {
	stop := context.AfterFunc(ctx, s.closePeers)
	defer stop()
	defer func() { s.finish(ctx, err) }()

	s.logger.Info().Msg("game started")
	if err := s.peers[0].SendStart(); err != nil {
		return s.abort(ctx, &peerFailure{token: domain.TokenA, err: err})
	}

	for {
		token := s.turn()

		var res domain.Result
		if s.isComputer(token) {
			res, err = s.computerMove(token)
		} else {
			res, err = s.humanMove(token)
		}
		if err != nil {
			return s.abort(ctx, err)
		}

		s.logger.Debug().
			Str("token", token.String()).
			Int("row", res.Row).
			Int("col", res.Col).
			Str("outcome", res.Outcome.String()).
			Msg("move applied")

		update := protocol.Broadcast{Status: protocol.StatusFromOutcome(res.Outcome), Row: res.Row, Col: res.Col}
		if err := s.broadcast(update); err != nil {
			return s.abort(ctx, err)
		}
		if res.Outcome.IsTerminal() {
			return nil
		}
		s.manager.track(ctx, s)
	}
}

// humanMove reads columns from the turn holder until one is legal.
func (s *Session) humanMove(token domain.Token) (domain.Result, error) {
	peer := s.peer(token)
	for {
		column, err := peer.ReadMove()
		if err != nil {
			return domain.Result{}, &peerFailure{token: token, err: err}
		}

		s.mu.Lock()
		res, err := s.game.ApplyMove(token, column)
		s.mu.Unlock()

		switch {
		case errors.Is(err, domain.ErrIllegalMove):
			s.logger.Debug().Str("token", token.String()).Int("column", column).Msg("move rejected")
			if err := peer.SendMoveStatus(protocol.MoveRejected); err != nil {
				return domain.Result{}, &peerFailure{token: token, err: err}
			}
			continue
		case err != nil:
			return domain.Result{}, &peerFailure{
				token: token,
				err:   fmt.Errorf("%w: %w", protocol.ErrProtocolViolation, err),
			}
		}

		if err := peer.SendMoveStatus(protocol.MoveAccepted); err != nil {
			return domain.Result{}, &peerFailure{token: token, err: err}
		}
		return res, nil
	}
}

func (s *Session) computerMove(token domain.Token) (domain.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	column, err := s.engine.ChooseMove(s.game.Board())
	if err != nil {
		return domain.Result{}, fmt.Errorf("computer move: %w", err)
	}
	return s.game.ApplyMove(token, column)
}

// broadcast sends the update to every human peer, A first.
func (s *Session) broadcast(b protocol.Broadcast) error {
	for i, peer := range s.peers {
		if peer == nil {
			continue
		}
		if err := peer.SendBroadcast(b); err != nil {
			return &peerFailure{token: tokenAt(i), err: err}
		}
	}
	return nil
}

// abort tells the surviving peers that the game is over and closes
// everything.
func (s *Session) abort(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		s.closePeers()
		return ctxErr
	}

	failed := domain.Empty
	var pf *peerFailure
	if errors.As(err, &pf) {
		failed = pf.token
	}

	notice := protocol.Broadcast{
		Status: protocol.StatusPeerDisconnected,
		Row:    int(protocol.NoMove),
		Col:    int(protocol.NoMove),
	}
	for i, peer := range s.peers {
		if peer == nil || tokenAt(i) == failed {
			continue
		}
		if sendErr := peer.SendBroadcast(notice); sendErr != nil {
			s.logger.Debug().Err(sendErr).Str("token", tokenAt(i).String()).Msg("disconnect notice not delivered")
		}
	}
	s.closePeers()
	return fmt.Errorf("session %d: %w", s.Number, err)
}

func (s *Session) finish(ctx context.Context, err error) {
	s.closePeers()

	rec := s.record(err)
	event := s.logger.Info()
	switch {
	case errors.Is(err, protocol.ErrProtocolViolation):
		event = s.logger.Error().Err(err)
	case err != nil && ctx.Err() == nil:
		event = s.logger.Warn().Err(err)
	}
	event.
		Str("reason", rec.Reason).
		Str("winner", rec.Winner).
		Int("moves", rec.TotalMoves).
		Msg("game ended")

	s.manager.release(s, rec)
}

func (s *Session) record(err error) domain.GameRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	finished := time.Now()
	rec := domain.GameRecord{
		GameID:          s.GameID,
		SessionNumber:   s.Number,
		Mode:            s.Mode.String(),
		PeerA:           peerAddr(s.peers[0]),
		PeerB:           peerAddr(s.peers[1]),
		TotalMoves:      s.game.MoveCount(),
		DurationSeconds: int(finished.Sub(s.CreatedAt).Seconds()),
		CreatedAt:       s.CreatedAt,
		FinishedAt:      finished,
		Board:           s.game.Board().Ints(),
	}
	if s.Mode == protocol.ModeComputer {
		rec.PeerB = "computer"
	}

	switch {
	case err == nil && s.game.State() == domain.Won:
		rec.Reason = domain.ReasonWin
		rec.Winner = string(s.game.Winner().Symbol())
	case err == nil:
		rec.Reason = domain.ReasonTie
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		rec.Reason = domain.ReasonShutdown
	case errors.Is(err, protocol.ErrProtocolViolation):
		rec.Reason = domain.ReasonViolation
	default:
		rec.Reason = domain.ReasonDisconnect
	}
	return rec
}

// Summary is safe to call while the session runs.
func (s *Session) Summary() domain.LiveSession {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return domain.LiveSession{
		SessionNumber: s.Number,
		GameID:        s.GameID,
		Mode:          s.Mode.String(),
		PeerA:         peerAddr(s.peers[0]),
		PeerB:         peerAddr(s.peers[1]),
		Turn:          string(s.game.Turn().Symbol()),
		MoveCount:     s.game.MoveCount(),
		StartedAt:     s.CreatedAt,
	}
}

func (s *Session) turn() domain.Token {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.game.Turn()
}

func (s *Session) isComputer(token domain.Token) bool {
	return token == domain.TokenB && s.Mode == protocol.ModeComputer
}

func (s *Session) peer(token domain.Token) *protocol.Peer {
	if token == domain.TokenA {
		return s.peers[0]
	}
	return s.peers[1]
}

func (s *Session) closePeers() {
	for _, peer := range s.peers {
		if peer != nil {
			peer.Close()
		}
	}
}

func tokenAt(i int) domain.Token {
	if i == 0 {
		return domain.TokenA
	}
	return domain.TokenB
}
