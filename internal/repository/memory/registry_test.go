package memory

import (
	"context"
	"testing"
	"time"

	"github.com/iamasit07/connect4-server/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_TrackListUntrack(t *testing.T) {
	r := NewRegistry(time.Minute)
	ctx := context.Background()

	for _, n := range []uint32{3, 1, 2} {
		require.NoError(t, r.Track(ctx, domain.LiveSession{SessionNumber: n}))
	}
	require.NoError(t, r.Track(ctx, domain.LiveSession{SessionNumber: 2, MoveCount: 5}))

	live, err := r.List(ctx)
	require.NoError(t, err)
	require.Len(t, live, 3)
	assert.Equal(t, []uint32{1, 2, 3}, []uint32{live[0].SessionNumber, live[1].SessionNumber, live[2].SessionNumber})
	assert.Equal(t, 5, live[1].MoveCount)

	require.NoError(t, r.Untrack(ctx, 2))
	require.NoError(t, r.Untrack(ctx, 42))
	live, err = r.List(ctx)
	require.NoError(t, err)
	assert.Len(t, live, 2)
}

func TestRegistry_EntriesExpire(t *testing.T) {
	r := NewRegistry(50 * time.Millisecond)
	ctx := context.Background()
	require.NoError(t, r.Track(ctx, domain.LiveSession{SessionNumber: 1}))

	assert.Eventually(t, func() bool {
		live, err := r.List(ctx)
		return err == nil && len(live) == 0
	}, time.Second, 20*time.Millisecond)
}

func TestRegistry_NoTTL(t *testing.T) {
	r := NewRegistry(0)
	require.NoError(t, r.Track(context.Background(), domain.LiveSession{SessionNumber: 1}))

	live, err := r.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, live, 1)
}

func TestRegistry_CancelledContext(t *testing.T) {
	r := NewRegistry(time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, r.Track(ctx, domain.LiveSession{SessionNumber: 1}), context.Canceled)
	_, err := r.List(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
