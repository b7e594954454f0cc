package domain

import "time"

// End reasons stored with a finished game.
const (
	ReasonWin        = "win"
	ReasonTie        = "tie"
	ReasonDisconnect = "disconnect"
	ReasonViolation  = "protocol_violation"
	ReasonShutdown   = "shutdown"
)

// GameRecord is the history row written when a session ends.
type GameRecord struct {
	GameID          string    `json:"gameId"`
	SessionNumber   uint32    `json:"sessionNumber"`
	Mode            string    `json:"mode"`
	PeerA           string    `json:"peerA"`
	PeerB           string    `json:"peerB"`
	Winner          string    `json:"winner"`
	Reason          string    `json:"reason"`
	TotalMoves      int       `json:"totalMoves"`
	DurationSeconds int       `json:"durationSeconds"`
	CreatedAt       time.Time `json:"createdAt"`
	FinishedAt      time.Time `json:"finishedAt"`
	Board           [][]int   `json:"board,omitempty"`
}

// LiveSession is the summary of a running session shown by the registry.
type LiveSession struct {
	SessionNumber uint32    `json:"sessionNumber"`
	GameID        string    `json:"gameId"`
	Mode          string    `json:"mode"`
	PeerA         string    `json:"peerA"`
	PeerB         string    `json:"peerB,omitempty"`
	Turn          string    `json:"turn"`
	MoveCount     int       `json:"moveCount"`
	StartedAt     time.Time `json:"startedAt"`
}
