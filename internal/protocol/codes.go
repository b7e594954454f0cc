// Package protocol is the message vocabulary shared by the session server and
// the peer-side handler, together with the big-endian codec that carries it.
package protocol

import (
	"errors"
	"fmt"

	"github.com/iamasit07/connect4-server/internal/domain"
)

// Status is the game status broadcast after every accepted half-move.
type Status int32

const (
	StatusContinue         Status = 0
	StatusWinA             Status = 1
	StatusWinB             Status = 2
	StatusTie              Status = -1
	StatusPeerDisconnected Status = -3
)

func (s Status) String() string {
	switch s {
	case StatusContinue:
		return "continue"
	case StatusWinA:
		return "win_a"
	case StatusWinB:
		return "win_b"
	case StatusTie:
		return "tie"
	case StatusPeerDisconnected:
		return "peer_disconnected"
	}
	return fmt.Sprintf("status(%d)", int32(s))
}

func (s Status) Valid() bool {
	switch s {
	case StatusContinue, StatusWinA, StatusWinB, StatusTie, StatusPeerDisconnected:
		return true
	}
	return false
}

func (s Status) IsTerminal() bool {
	return s != StatusContinue
}

// StatusFromOutcome maps the win detector result onto the wire code.
func StatusFromOutcome(o domain.Outcome) Status {
	switch o {
	case domain.WinnerA:
		return StatusWinA
	case domain.WinnerB:
		return StatusWinB
	case domain.Tie:
		return StatusTie
	}
	return StatusContinue
}

// Winner returns the winning token for a win status, Empty otherwise.
func (s Status) Winner() domain.Token {
	switch s {
	case StatusWinA:
		return domain.TokenA
	case StatusWinB:
		return domain.TokenB
	}
	return domain.Empty
}

// MoveStatus answers a MoveRequest.
type MoveStatus int32

const (
	MoveAccepted MoveStatus = 0
	MoveRejected MoveStatus = -2
)

// Mode is negotiated by peer A right after it learns its identity.
type Mode int32

const (
	ModeComputer  Mode = 1
	ModeTwoPlayer Mode = 2
)

func (m Mode) String() string {
	switch m {
	case ModeComputer:
		return "computer"
	case ModeTwoPlayer:
		return "two_player"
	}
	return fmt.Sprintf("mode(%d)", int32(m))
}

func (m Mode) Valid() bool {
	return m == ModeComputer || m == ModeTwoPlayer
}

// ParseMode accepts the names used in configuration and flags.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "computer", "1":
		return ModeComputer, nil
	case "player", "two_player", "2":
		return ModeTwoPlayer, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// StartSignal tells peer A that the game can begin. Peers ignore the value.
const StartSignal int32 = 1

// NoMove fills LastMove when no move accompanies a terminal status.
const NoMove int32 = -1

// IdentityChar is the single UTF-16 code unit naming a token on the wire.
func IdentityChar(t domain.Token) uint16 {
	return uint16(t.Symbol())
}

func TokenFromIdentity(c uint16) (domain.Token, error) {
	switch rune(c) {
	case domain.TokenA.Symbol():
		return domain.TokenA, nil
	case domain.TokenB.Symbol():
		return domain.TokenB, nil
	}
	return domain.Empty, fmt.Errorf("%w: %w: %q", ErrProtocolViolation, ErrUnknownIdentity, rune(c))
}

var (
	ErrProtocolViolation = errors.New("protocol violation")
	ErrPeerDisconnected  = errors.New("peer disconnected")
	ErrUnknownIdentity   = errors.New("unknown identity")
	ErrUnknownMode       = errors.New("unknown game mode")
	ErrUnknownStatus     = errors.New("unknown status")
	ErrBadPosition       = errors.New("position out of range")
)
