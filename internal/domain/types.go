package domain

// Token is the content of a single board cell.
type Token int

const (
	Empty  Token = 0
	TokenA Token = 1
	TokenB Token = 2
)

const (
	Rows    = 6
	Columns = 7
	ToWin   = 4
)

// Other returns the opposing token. Empty has no opponent.
func (t Token) Other() Token {
	switch t {
	case TokenA:
		return TokenB
	case TokenB:
		return TokenA
	}
	return Empty
}

// IsPlayer reports whether t is one of the two playing tokens.
func (t Token) IsPlayer() bool {
	return t == TokenA || t == TokenB
}

// Symbol is the character used for the token on the wire and in consoles.
func (t Token) Symbol() rune {
	switch t {
	case TokenA:
		return 'X'
	case TokenB:
		return 'O'
	}
	return ' '
}

func (t Token) String() string {
	switch t {
	case TokenA:
		return "A"
	case TokenB:
		return "B"
	}
	return "empty"
}

// Outcome is what the win detector reports after a move.
type Outcome int

const (
	Continue Outcome = iota
	WinnerA
	WinnerB
	Tie
)

func (o Outcome) String() string {
	switch o {
	case Continue:
		return "continue"
	case WinnerA:
		return "winner_a"
	case WinnerB:
		return "winner_b"
	case Tie:
		return "tie"
	}
	return "unknown"
}

// IsTerminal reports whether the outcome ends the game.
func (o Outcome) IsTerminal() bool {
	return o != Continue
}

// Winner returns the winning token, or Empty for Continue and Tie.
func (o Outcome) Winner() Token {
	switch o {
	case WinnerA:
		return TokenA
	case WinnerB:
		return TokenB
	}
	return Empty
}

func winnerOutcome(t Token) Outcome {
	if t == TokenA {
		return WinnerA
	}
	return WinnerB
}

// basic errors that can occur
type Error string

func (e Error) Error() string {
	return string(e)
}

const (
	ErrIllegalMove  Error = "illegal move"
	ErrInvalidToken Error = "invalid token"
	ErrOutOfTurn    Error = "move out of turn"
	ErrGameOver     Error = "game is over"
	ErrGravity      Error = "placement violates gravity"
)
