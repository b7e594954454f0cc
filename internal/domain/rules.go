package domain

// the four scan directions: right, down, down-right, down-left
var directions = [4][2]int{
	{0, 1},
	{1, 0},
	{1, 1},
	{1, -1},
}

// Evaluate scans the whole board. For every occupied cell, in row-major
// order, it looks for four equal tokens starting at that cell in each of the
// four directions. The first match decides the winner.
func Evaluate(b *Board) Outcome {
	for row := 0; row < Rows; row++ {
		for col := 0; col < Columns; col++ {
			token := b.At(row, col)
			if token == Empty {
				continue
			}
			for _, dir := range directions {
				if fourFrom(b, row, col, dir[0], dir[1], token) {
					return winnerOutcome(token)
				}
			}
		}
	}

	if b.Full() {
		return Tie
	}
	return Continue
}

// EvaluateMove only looks at the lines passing through (row, col), which is
// enough when it runs after every move. It agrees with Evaluate for any board
// reached by legal alternating play.
func EvaluateMove(b *Board, row, col int) Outcome {
	token := b.At(row, col)
	if token == Empty {
		return Evaluate(b)
	}

	for _, dir := range directions {
		total := 1 +
			CountInDirection(b, row, col, dir[0], dir[1], token) +
			CountInDirection(b, row, col, -dir[0], -dir[1], token)
		if total >= ToWin {
			return winnerOutcome(token)
		}
	}

	if b.Full() {
		return Tie
	}
	return Continue
}

// CountInDirection counts consecutive tokens after (row, col), not counting
// the starting cell.
func CountInDirection(b *Board, row, col, deltaRow, deltaCol int, token Token) int {
	count := 0
	r, c := row+deltaRow, col+deltaCol
	for r >= 0 && r < Rows && c >= 0 && c < Columns && b.At(r, c) == token {
		count++
		r += deltaRow
		c += deltaCol
	}
	return count
}

func fourFrom(b *Board, row, col, deltaRow, deltaCol int, token Token) bool {
	endRow := row + deltaRow*(ToWin-1)
	endCol := col + deltaCol*(ToWin-1)
	if endRow < 0 || endRow >= Rows || endCol < 0 || endCol >= Columns {
		return false
	}
	for i := 1; i < ToWin; i++ {
		if b.At(row+deltaRow*i, col+deltaCol*i) != token {
			return false
		}
	}
	return true
}
