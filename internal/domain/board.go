package domain

// Board is the 6x7 grid stored as one stack per column. Row 0 is the top,
// row Rows-1 the bottom. A token can only ever be pushed onto a column, so
// there are no floating tokens by construction.
type Board struct {
	stacks  [Columns][Rows]Token
	heights [Columns]int
}

func NewBoard() *Board {
	return &Board{}
}

// IsLegal takes an external 1-based column.
func (b *Board) IsLegal(column int) bool {
	col := column - 1
	if col < 0 || col >= Columns {
		return false
	}
	return b.heights[col] < Rows
}

// Apply drops token into the external 1-based column and returns the
// zero-based row and column it landed on.
func (b *Board) Apply(column int, token Token) (int, int, error) {
	if !token.IsPlayer() {
		return -1, -1, ErrInvalidToken
	}
	if !b.IsLegal(column) {
		return -1, -1, ErrIllegalMove
	}

	col := column - 1
	b.stacks[col][b.heights[col]] = token
	b.heights[col]++
	return rowOf(b.heights[col] - 1), col, nil
}

// Place mirrors a move that was applied elsewhere. The row must be the next
// free row of the column.
func (b *Board) Place(row, col int, token Token) error {
	if !token.IsPlayer() {
		return ErrInvalidToken
	}
	if col < 0 || col >= Columns || row < 0 || row >= Rows {
		return ErrIllegalMove
	}
	if b.heights[col] >= Rows {
		return ErrIllegalMove
	}
	if rowOf(b.heights[col]) != row {
		return ErrGravity
	}

	b.stacks[col][b.heights[col]] = token
	b.heights[col]++
	return nil
}

// At returns the token at a zero-based position, Empty when out of range.
func (b *Board) At(row, col int) Token {
	if row < 0 || row >= Rows || col < 0 || col >= Columns {
		return Empty
	}
	level := Rows - 1 - row
	if level >= b.heights[col] {
		return Empty
	}
	return b.stacks[col][level]
}

// Height is the number of tokens in a zero-based column.
func (b *Board) Height(col int) int {
	if col < 0 || col >= Columns {
		return 0
	}
	return b.heights[col]
}

func (b *Board) Count() int {
	total := 0
	for _, h := range b.heights {
		total += h
	}
	return total
}

func (b *Board) Full() bool {
	return b.Count() == Rows*Columns
}

// LegalColumns lists the playable external 1-based columns.
func (b *Board) LegalColumns() []int {
	legal := make([]int, 0, Columns)
	for col := 1; col <= Columns; col++ {
		if b.IsLegal(col) {
			legal = append(legal, col)
		}
	}
	return legal
}

// Grid is a row-major snapshot, row 0 on top.
func (b *Board) Grid() [Rows][Columns]Token {
	var grid [Rows][Columns]Token
	for row := 0; row < Rows; row++ {
		for col := 0; col < Columns; col++ {
			grid[row][col] = b.At(row, col)
		}
	}
	return grid
}

// Ints converts the board for storage
func (b *Board) Ints() [][]int {
	out := make([][]int, Rows)
	for row := range out {
		out[row] = make([]int, Columns)
		for col := range out[row] {
			out[row][col] = int(b.At(row, col))
		}
	}
	return out
}

func (b *Board) Clone() *Board {
	clone := *b
	return &clone
}

func rowOf(level int) int {
	return Rows - 1 - level
}
