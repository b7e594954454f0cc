package matchmaking

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/iamasit07/connect4-server/internal/domain"
	"github.com/iamasit07/connect4-server/internal/protocol"
	"github.com/iamasit07/connect4-server/internal/service/bot"
	"github.com/iamasit07/connect4-server/internal/service/game"
	"github.com/iamasit07/connect4-server/internal/transport/tcp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	addr     string
	manager  *game.SessionManager
	cancel   context.CancelFunc
	finished chan error
}

func startServer(t *testing.T) *harness {
	t.Helper()

	sm := game.NewSessionManager(nil, nil, bot.NewRandom(21), zerolog.Nop())
	listener := NewListener(sm, time.Second, zerolog.Nop(),
		protocol.WithReadTimeout(2*time.Second), protocol.WithWriteTimeout(2*time.Second))

	source := tcp.NewSource("127.0.0.1:0", zerolog.Nop())
	require.NoError(t, source.Listen())

	ctx, cancel := context.WithCancel(context.Background())
	h := &harness{
		addr:     source.ListenAddr().String(),
		manager:  sm,
		cancel:   cancel,
		finished: make(chan error, 2),
	}
	go func() { h.finished <- listener.Run(ctx) }()
	go func() { h.finished <- source.Serve(ctx, listener) }()

	t.Cleanup(func() {
		cancel()
		for i := 0; i < 2; i++ {
			select {
			case <-h.finished:
			case <-time.After(3 * time.Second):
				t.Error("server did not shut down")
				return
			}
		}
	})
	return h
}

func dial(t *testing.T, addr string) *protocol.Peer {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	peer := protocol.NewPeer(conn, protocol.WithReadTimeout(2*time.Second), protocol.WithWriteTimeout(2*time.Second))
	t.Cleanup(func() { peer.Close() })
	return peer
}

// play sends columns in order whenever it holds the turn and returns the
// final broadcast.
func play(p *protocol.Peer, token domain.Token, moves []int) (protocol.Broadcast, error) {
	turn := domain.TokenA
	for {
		if turn == token {
			if err := p.SendMove(moves[0]); err != nil {
				return protocol.Broadcast{}, err
			}
			moves = moves[1:]
			if _, err := p.ReadMoveStatus(); err != nil {
				return protocol.Broadcast{}, err
			}
		}
		b, err := p.ReadBroadcast()
		if err != nil || b.Status.IsTerminal() {
			return b, err
		}
		turn = turn.Other()
	}
}

func TestListener_TwoPlayerSession(t *testing.T) {
	h := startServer(t)

	a := dial(t, h.addr)
	token, err := a.ReadIdentity()
	require.NoError(t, err)
	require.Equal(t, domain.TokenA, token)
	require.NoError(t, a.SendMode(protocol.ModeTwoPlayer))

	b := dial(t, h.addr)
	token, err = b.ReadIdentity()
	require.NoError(t, err)
	require.Equal(t, domain.TokenB, token)

	require.NoError(t, a.ReadStart())

	type outcome struct {
		b   protocol.Broadcast
		err error
	}
	resultB := make(chan outcome, 1)
	go func() {
		last, err := play(b, domain.TokenB, []int{2, 2, 2})
		resultB <- outcome{last, err}
	}()

	lastA, err := play(a, domain.TokenA, []int{1, 1, 1, 1})
	require.NoError(t, err)
	gotB := <-resultB
	require.NoError(t, gotB.err)

	want := protocol.Broadcast{Status: protocol.StatusWinA, Row: 2, Col: 0}
	assert.Equal(t, want, lastA)
	assert.Equal(t, want, gotB.b)
}

func TestListener_ComputerSession(t *testing.T) {
	h := startServer(t)

	a := dial(t, h.addr)
	token, err := a.ReadIdentity()
	require.NoError(t, err)
	require.Equal(t, domain.TokenA, token)
	require.NoError(t, a.SendMode(protocol.ModeComputer))
	require.NoError(t, a.ReadStart())

	require.NoError(t, a.SendMove(4))
	status, err := a.ReadMoveStatus()
	require.NoError(t, err)
	assert.Equal(t, protocol.MoveAccepted, status)

	own, err := a.ReadBroadcast()
	require.NoError(t, err)
	assert.Equal(t, protocol.Broadcast{Status: protocol.StatusContinue, Row: 5, Col: 3}, own)

	computer, err := a.ReadBroadcast()
	require.NoError(t, err)
	assert.Equal(t, protocol.StatusContinue, computer.Status)
	assert.True(t, computer.Row == 5 || (computer.Row == 4 && computer.Col == 3))

	assert.Eventually(t, func() bool { return h.manager.Count() == 1 }, time.Second, 10*time.Millisecond)
}

func TestListener_SkipsFailedHandshake(t *testing.T) {
	h := startServer(t)

	bad := dial(t, h.addr)
	_, err := bad.ReadIdentity()
	require.NoError(t, err)
	// an out-of-range mode is a handshake failure
	require.NoError(t, bad.SendMove(7))
	err = bad.ReadStart()
	assert.ErrorIs(t, err, protocol.ErrPeerDisconnected)

	good := dial(t, h.addr)
	token, err := good.ReadIdentity()
	require.NoError(t, err)
	assert.Equal(t, domain.TokenA, token)
	require.NoError(t, good.SendMode(protocol.ModeComputer))
	require.NoError(t, good.ReadStart())
}

func TestListener_OfferAfterShutdown(t *testing.T) {
	sm := game.NewSessionManager(nil, nil, bot.NewRandom(1), zerolog.Nop())
	listener := NewListener(sm, time.Second, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, listener.Run(ctx))

	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()
	assert.ErrorIs(t, listener.Offer(context.Background(), server), ErrListenerClosed)
}
