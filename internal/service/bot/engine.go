package bot

import (
	"math/rand"
	"sync"
	"time"

	"github.com/iamasit07/connect4-server/internal/domain"
)

const ErrNoLegalMove = domain.Error("no legal move left")

// Engine picks the computer's next column (1-based).
type Engine interface {
	ChooseMove(b *domain.Board) (int, error)
}

// Random draws columns uniformly and redraws until one is legal. One Random
// may be shared by every running session.
type Random struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandom seeds the engine; a zero seed uses the clock.
func NewRandom(seed int64) *Random {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Random{rng: rand.New(rand.NewSource(seed))}
}

func (r *Random) ChooseMove(b *domain.Board) (int, error) {
	if b.Full() {
		return 0, ErrNoLegalMove
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for {
		column := r.rng.Intn(domain.Columns) + 1
		if b.IsLegal(column) {
			return column, nil
		}
	}
}
