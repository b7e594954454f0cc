package domain

// GameState is the turn state machine of a single game.
type GameState int

const (
	AwaitingMove GameState = iota
	Won
	Tied
)

func (s GameState) String() string {
	switch s {
	case AwaitingMove:
		return "awaiting_move"
	case Won:
		return "won"
	case Tied:
		return "tied"
	}
	return "unknown"
}

// Result describes an accepted move. Row and Col are zero-based.
type Result struct {
	Outcome Outcome
	Row     int
	Col     int
}

// Game is one authoritative game. It is not safe for concurrent use; a
// session owns it exclusively.
type Game struct {
	board     *Board
	turn      Token
	state     GameState
	winner    Token
	lastRow   int
	lastCol   int
	moveCount int
}

func NewGame() *Game {
	return &Game{
		board:   NewBoard(),
		turn:    TokenA,
		state:   AwaitingMove,
		winner:  Empty,
		lastRow: -1,
		lastCol: -1,
	}
}

// ApplyMove plays an external 1-based column for token. An illegal column
// leaves the game untouched and returns ErrIllegalMove so the caller can ask
// again. A token that does not hold the turn is a protocol violation.
func (g *Game) ApplyMove(token Token, column int) (Result, error) {
	if g.IsFinished() {
		return Result{}, ErrGameOver
	}
	if token != g.turn {
		return Result{}, ErrOutOfTurn
	}
	if !g.board.IsLegal(column) {
		return Result{}, ErrIllegalMove
	}

	row, col, err := g.board.Apply(column, token)
	if err != nil {
		return Result{}, err
	}
	g.lastRow, g.lastCol = row, col
	g.moveCount++

	outcome := EvaluateMove(g.board, row, col)
	switch outcome {
	case WinnerA, WinnerB:
		g.state = Won
		g.winner = outcome.Winner()
	case Tie:
		g.state = Tied
	default:
		g.turn = g.turn.Other()
	}

	return Result{Outcome: outcome, Row: row, Col: col}, nil
}

// Turn is the token allowed to move next. After a terminal move it stays on
// the token that made it.
func (g *Game) Turn() Token {
	return g.turn
}

func (g *Game) State() GameState {
	return g.state
}

func (g *Game) Winner() Token {
	return g.winner
}

func (g *Game) IsFinished() bool {
	return g.state == Won || g.state == Tied
}

// LastMove returns the zero-based position of the last accepted move, or
// (-1, -1) before the first one.
func (g *Game) LastMove() (int, int) {
	return g.lastRow, g.lastCol
}

func (g *Game) MoveCount() int {
	return g.moveCount
}

// Board exposes the board read-only by handing out a copy.
func (g *Game) Board() *Board {
	return g.board.Clone()
}
