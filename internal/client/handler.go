// Package client is the peer side of the protocol: it follows the server's
// turn order, keeps a mirror of the board and reports progress as events.
package client

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/iamasit07/connect4-server/internal/domain"
	"github.com/iamasit07/connect4-server/internal/protocol"
)

var (
	ErrNotYourTurn = errors.New("not your turn")
	ErrGameOver    = errors.New("game is over")
)

type State int

const (
	Idle State = iota
	WaitingForIdentity
	WaitingForOpponent
	MyTurn
	OpponentTurn
	GameOver
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case WaitingForIdentity:
		return "waiting_for_identity"
	case WaitingForOpponent:
		return "waiting_for_opponent"
	case MyTurn:
		return "my_turn"
	case OpponentTurn:
		return "opponent_turn"
	case GameOver:
		return "game_over"
	}
	return "unknown"
}

type EventKind int

const (
	IdentityAssigned EventKind = iota
	GameStarted
	TurnStarted
	MoveRejected
	BoardUpdated
	Finished
)

// Event is delivered to the UI. Token is the local identity for
// IdentityAssigned and the mover for BoardUpdated.
type Event struct {
	Kind   EventKind
	Token  domain.Token
	Row    int
	Col    int
	Column int
	Status protocol.Status
}

// Handler runs one game for one peer. Run owns the connection; the UI reads
// Events and calls SubmitMove.
type Handler struct {
	peer   *protocol.Peer
	mode   protocol.Mode
	events chan Event
	moves  chan int

	mu     sync.RWMutex
	state  State
	token  domain.Token
	mirror *domain.Board
	result protocol.Status
	// awaiting is set once per turn (and again after a rejected column);
	// the first SubmitMove clears it.
	awaiting bool
}

// NewHandler wraps conn. mode is only sent when the server assigns token A.
func NewHandler(conn protocol.Transport, mode protocol.Mode, opts ...protocol.Option) *Handler {
	return &Handler{
		peer:   protocol.NewPeer(conn, opts...),
		mode:   mode,
		events: make(chan Event, 64),
		moves:  make(chan int, 1),
		state:  Idle,
		mirror: domain.NewBoard(),
	}
}

// Events is closed when Run returns. It must be drained.
func (h *Handler) Events() <-chan Event { return h.events }

func (h *Handler) State() State {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.state
}

func (h *Handler) Token() domain.Token {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.token
}

// Board returns a copy of the mirror board.
func (h *Handler) Board() *domain.Board {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.mirror.Clone()
}

// Result is the final game status once the state is GameOver.
func (h *Handler) Result() protocol.Status {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.result
}

// SubmitMove hands a 1-based column to Run. Only one column is taken per
// turn; anything submitted while that column is in flight or during the
// opponent's turn gets ErrNotYourTurn. The server decides legality; a
// rejected column produces a MoveRejected event and the turn stays local.
func (h *Handler) SubmitMove(ctx context.Context, column int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	switch {
	case h.state == GameOver:
		return ErrGameOver
	case h.state != MyTurn || !h.awaiting:
		return ErrNotYourTurn
	}
	h.awaiting = false
	// moves has room for exactly the one claimed column
	h.moves <- column
	return nil
}

// Run plays until the game ends, the connection fails or ctx is cancelled.
func (h *Handler) Run(ctx context.Context) error {
	defer close(h.events)
	defer h.peer.Close()
	stop := context.AfterFunc(ctx, func() { h.peer.Close() })
	defer stop()

	err := h.run(ctx)
	if ctxErr := ctx.Err(); ctxErr != nil && err != nil {
		return ctxErr
	}
	return err
}

func (h *Handler) run(ctx context.Context) error {
	h.setState(WaitingForIdentity)
	token, err := h.peer.ReadIdentity()
	if err != nil {
		return err
	}
	h.mu.Lock()
	h.token = token
	h.mu.Unlock()
	h.emit(ctx, Event{Kind: IdentityAssigned, Token: token})

	if token == domain.TokenA {
		if err := h.peer.SendMode(h.mode); err != nil {
			return err
		}
		h.setState(WaitingForOpponent)
		if err := h.peer.ReadStart(); err != nil {
			return err
		}
		h.emit(ctx, Event{Kind: GameStarted, Token: token})
		h.startTurn()
		h.emit(ctx, Event{Kind: TurnStarted, Token: token})
	} else {
		h.emit(ctx, Event{Kind: GameStarted, Token: token})
		h.setState(OpponentTurn)
	}

	for {
		var (
			mover domain.Token
			b     protocol.Broadcast
		)
		switch h.State() {
		case MyTurn:
			var column int
			select {
			case column = <-h.moves:
			case <-ctx.Done():
				return ctx.Err()
			}

			if err := h.peer.SendMove(column); err != nil {
				return err
			}
			status, err := h.peer.ReadMoveStatus()
			if err != nil {
				return err
			}
			if status == protocol.MoveRejected {
				h.startTurn()
				h.emit(ctx, Event{Kind: MoveRejected, Token: token, Column: column})
				continue
			}
			mover = token

		case OpponentTurn:
			mover = token.Other()

		default:
			return nil
		}

		if b, err = h.peer.ReadBroadcast(); err != nil {
			return err
		}
		over, err := h.apply(ctx, b, mover)
		if err != nil || over {
			return err
		}
	}
}

// apply mirrors one broadcast and moves the state machine on.
func (h *Handler) apply(ctx context.Context, b protocol.Broadcast, mover domain.Token) (bool, error) {
	if b.Status == protocol.StatusPeerDisconnected {
		h.finish(ctx, b.Status)
		return true, nil
	}

	h.mu.Lock()
	err := h.mirror.Place(b.Row, b.Col, mover)
	h.mu.Unlock()
	if err != nil {
		return true, fmt.Errorf("%w: broadcast (%d,%d): %w", protocol.ErrProtocolViolation, b.Row, b.Col, err)
	}
	h.emit(ctx, Event{Kind: BoardUpdated, Token: mover, Row: b.Row, Col: b.Col, Status: b.Status})

	if b.Status.IsTerminal() {
		h.finish(ctx, b.Status)
		return true, nil
	}

	if mover == h.Token() {
		h.setState(OpponentTurn)
		return false, nil
	}
	h.startTurn()
	h.emit(ctx, Event{Kind: TurnStarted, Token: h.Token()})
	return false, nil
}

func (h *Handler) finish(ctx context.Context, status protocol.Status) {
	h.mu.Lock()
	h.state = GameOver
	h.awaiting = false
	h.result = status
	h.mu.Unlock()
	h.emit(ctx, Event{Kind: Finished, Status: status})
}

func (h *Handler) setState(s State) {
	h.mu.Lock()
	h.state = s
	h.awaiting = false
	h.mu.Unlock()
}

// startTurn enters MyTurn and opens input for one column.
func (h *Handler) startTurn() {
	h.mu.Lock()
	h.state = MyTurn
	h.awaiting = true
	h.mu.Unlock()
}

func (h *Handler) emit(ctx context.Context, e Event) {
	select {
	case h.events <- e:
	case <-ctx.Done():
	}
}
