package client

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/iamasit07/connect4-server/internal/domain"
	"github.com/iamasit07/connect4-server/internal/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	handler *Handler
	server  *protocol.Peer
	result  chan error
	cancel  context.CancelFunc
}

func start(t *testing.T, mode protocol.Mode) *fixture {
	t.Helper()
	serverConn, clientConn := net.Pipe()

	f := &fixture{
		handler: NewHandler(clientConn, mode, protocol.WithReadTimeout(2*time.Second), protocol.WithWriteTimeout(2*time.Second)),
		server:  protocol.NewPeer(serverConn, protocol.WithReadTimeout(2*time.Second), protocol.WithWriteTimeout(2*time.Second)),
		result:  make(chan error, 1),
	}
	ctx, cancel := context.WithCancel(context.Background())
	f.cancel = cancel
	go func() { f.result <- f.handler.Run(ctx) }()

	t.Cleanup(func() {
		cancel()
		f.server.Close()
	})
	return f
}

func (f *fixture) next(t *testing.T) Event {
	t.Helper()
	select {
	case e, ok := <-f.handler.Events():
		require.True(t, ok, "events closed")
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("no event")
	}
	return Event{}
}

func (f *fixture) expect(t *testing.T, kinds ...EventKind) []Event {
	t.Helper()
	events := make([]Event, 0, len(kinds))
	for _, kind := range kinds {
		e := f.next(t)
		require.Equal(t, kind, e.Kind, "got %+v", e)
		events = append(events, e)
	}
	return events
}

func (f *fixture) wait(t *testing.T) error {
	t.Helper()
	select {
	case err := <-f.result:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("handler did not return")
	}
	return nil
}

func TestHandler_PlayerAFlow(t *testing.T) {
	f := start(t, protocol.ModeTwoPlayer)

	require.NoError(t, f.server.SendIdentity(domain.TokenA))
	mode, err := f.server.ReadMode(time.Second)
	require.NoError(t, err)
	assert.Equal(t, protocol.ModeTwoPlayer, mode)

	events := f.expect(t, IdentityAssigned)
	assert.Equal(t, domain.TokenA, events[0].Token)
	assert.Eventually(t, func() bool { return f.handler.State() == WaitingForOpponent }, time.Second, time.Millisecond)
	assert.ErrorIs(t, f.handler.SubmitMove(context.Background(), 1), ErrNotYourTurn)

	require.NoError(t, f.server.SendStart())
	f.expect(t, GameStarted, TurnStarted)
	assert.Equal(t, MyTurn, f.handler.State())

	// rejected column keeps the turn
	go f.handler.SubmitMove(context.Background(), 8)
	column, err := f.server.ReadMove()
	require.NoError(t, err)
	assert.Equal(t, 8, column)
	require.NoError(t, f.server.SendMoveStatus(protocol.MoveRejected))
	events = f.expect(t, MoveRejected)
	assert.Equal(t, 8, events[0].Column)
	assert.Equal(t, MyTurn, f.handler.State())

	go f.handler.SubmitMove(context.Background(), 1)
	column, err = f.server.ReadMove()
	require.NoError(t, err)
	assert.Equal(t, 1, column)
	require.NoError(t, f.server.SendMoveStatus(protocol.MoveAccepted))
	require.NoError(t, f.server.SendBroadcast(protocol.Broadcast{Status: protocol.StatusContinue, Row: 5, Col: 0}))

	events = f.expect(t, BoardUpdated)
	assert.Equal(t, domain.TokenA, events[0].Token)
	assert.Eventually(t, func() bool { return f.handler.State() == OpponentTurn }, time.Second, time.Millisecond)

	require.NoError(t, f.server.SendBroadcast(protocol.Broadcast{Status: protocol.StatusContinue, Row: 5, Col: 1}))
	events = f.expect(t, BoardUpdated, TurnStarted)
	assert.Equal(t, domain.TokenB, events[0].Token)

	board := f.handler.Board()
	assert.Equal(t, domain.TokenA, board.At(5, 0))
	assert.Equal(t, domain.TokenB, board.At(5, 1))
	assert.Equal(t, 2, board.Count())

	go f.handler.SubmitMove(context.Background(), 1)
	_, err = f.server.ReadMove()
	require.NoError(t, err)
	require.NoError(t, f.server.SendMoveStatus(protocol.MoveAccepted))
	// a terminal status ends the game for the client
	require.NoError(t, f.server.SendBroadcast(protocol.Broadcast{Status: protocol.StatusTie, Row: 4, Col: 0}))

	events = f.expect(t, BoardUpdated, Finished)
	assert.Equal(t, protocol.StatusTie, events[1].Status)
	require.NoError(t, f.wait(t))
	assert.Equal(t, GameOver, f.handler.State())
	assert.Equal(t, protocol.StatusTie, f.handler.Result())
	assert.ErrorIs(t, f.handler.SubmitMove(context.Background(), 1), ErrGameOver)
}

func TestHandler_OneColumnPerTurn(t *testing.T) {
	f := start(t, protocol.ModeTwoPlayer)

	require.NoError(t, f.server.SendIdentity(domain.TokenA))
	_, err := f.server.ReadMode(time.Second)
	require.NoError(t, err)
	require.NoError(t, f.server.SendStart())
	f.expect(t, IdentityAssigned, GameStarted, TurnStarted)

	ctx := context.Background()
	require.NoError(t, f.handler.SubmitMove(ctx, 1))
	// typed ahead while column 1 is still in flight
	assert.Equal(t, MyTurn, f.handler.State())
	assert.ErrorIs(t, f.handler.SubmitMove(ctx, 7), ErrNotYourTurn)

	column, err := f.server.ReadMove()
	require.NoError(t, err)
	assert.Equal(t, 1, column)
	require.NoError(t, f.server.SendMoveStatus(protocol.MoveAccepted))
	require.NoError(t, f.server.SendBroadcast(protocol.Broadcast{Status: protocol.StatusContinue, Row: 5, Col: 0}))
	f.expect(t, BoardUpdated)
	assert.ErrorIs(t, f.handler.SubmitMove(ctx, 7), ErrNotYourTurn)

	require.NoError(t, f.server.SendBroadcast(protocol.Broadcast{Status: protocol.StatusContinue, Row: 5, Col: 1}))
	f.expect(t, BoardUpdated, TurnStarted)

	// the next column sent is the one entered after TurnStarted
	require.NoError(t, f.handler.SubmitMove(ctx, 3))
	column, err = f.server.ReadMove()
	require.NoError(t, err)
	assert.Equal(t, 3, column)

	// a rejected column reopens input once
	require.NoError(t, f.server.SendMoveStatus(protocol.MoveRejected))
	f.expect(t, MoveRejected)
	require.NoError(t, f.handler.SubmitMove(ctx, 4))
	assert.ErrorIs(t, f.handler.SubmitMove(ctx, 5), ErrNotYourTurn)
	column, err = f.server.ReadMove()
	require.NoError(t, err)
	assert.Equal(t, 4, column)
}

func TestHandler_ComputerModeBroadcastsBackToBack(t *testing.T) {
	f := start(t, protocol.ModeComputer)

	require.NoError(t, f.server.SendIdentity(domain.TokenA))
	mode, err := f.server.ReadMode(time.Second)
	require.NoError(t, err)
	assert.Equal(t, protocol.ModeComputer, mode)
	require.NoError(t, f.server.SendStart())
	f.expect(t, IdentityAssigned, GameStarted, TurnStarted)

	ctx := context.Background()
	require.NoError(t, f.handler.SubmitMove(ctx, 4))
	_, err = f.server.ReadMove()
	require.NoError(t, err)
	require.NoError(t, f.server.SendMoveStatus(protocol.MoveAccepted))
	// own move and the computer's reply with no input in between
	require.NoError(t, f.server.SendBroadcast(protocol.Broadcast{Status: protocol.StatusContinue, Row: 5, Col: 3}))
	require.NoError(t, f.server.SendBroadcast(protocol.Broadcast{Status: protocol.StatusContinue, Row: 4, Col: 3}))

	events := f.expect(t, BoardUpdated, BoardUpdated, TurnStarted)
	assert.Equal(t, domain.TokenA, events[0].Token)
	assert.Equal(t, domain.TokenB, events[1].Token)

	require.NoError(t, f.handler.SubmitMove(ctx, 1))
	_, err = f.server.ReadMove()
	require.NoError(t, err)
	require.NoError(t, f.server.SendMoveStatus(protocol.MoveAccepted))
	require.NoError(t, f.server.SendBroadcast(protocol.Broadcast{Status: protocol.StatusContinue, Row: 5, Col: 0}))
	require.NoError(t, f.server.SendBroadcast(protocol.Broadcast{Status: protocol.StatusWinB, Row: 3, Col: 3}))

	events = f.expect(t, BoardUpdated, BoardUpdated, Finished)
	assert.Equal(t, protocol.StatusWinB, events[2].Status)
	require.NoError(t, f.wait(t))
	assert.Equal(t, protocol.StatusWinB, f.handler.Result())

	board := f.handler.Board()
	assert.Equal(t, 4, board.Count())
	assert.Equal(t, domain.TokenB, board.At(3, 3))
}

func TestHandler_PlayerBStartsWithOpponentTurn(t *testing.T) {
	f := start(t, protocol.ModeTwoPlayer)

	require.NoError(t, f.server.SendIdentity(domain.TokenB))
	events := f.expect(t, IdentityAssigned, GameStarted)
	assert.Equal(t, domain.TokenB, events[0].Token)
	assert.Eventually(t, func() bool { return f.handler.State() == OpponentTurn }, time.Second, time.Millisecond)

	require.NoError(t, f.server.SendBroadcast(protocol.Broadcast{Status: protocol.StatusContinue, Row: 5, Col: 3}))
	events = f.expect(t, BoardUpdated, TurnStarted)
	assert.Equal(t, domain.TokenA, events[0].Token)
	assert.Equal(t, MyTurn, f.handler.State())

	go f.handler.SubmitMove(context.Background(), 4)
	column, err := f.server.ReadMove()
	require.NoError(t, err)
	assert.Equal(t, 4, column)
	require.NoError(t, f.server.SendMoveStatus(protocol.MoveAccepted))
	require.NoError(t, f.server.SendBroadcast(protocol.Broadcast{Status: protocol.StatusContinue, Row: 4, Col: 3}))
	f.expect(t, BoardUpdated)

	// opponent drops out: the mirror stays as it was
	require.NoError(t, f.server.SendBroadcast(protocol.Broadcast{Status: protocol.StatusPeerDisconnected, Row: -1, Col: -1}))
	events = f.expect(t, Finished)
	assert.Equal(t, protocol.StatusPeerDisconnected, events[0].Status)
	require.NoError(t, f.wait(t))

	assert.Equal(t, 2, f.handler.Board().Count())
	assert.Equal(t, domain.TokenB, f.handler.Board().At(4, 3))
}

func TestHandler_GravityViolationIsFatal(t *testing.T) {
	f := start(t, protocol.ModeTwoPlayer)

	require.NoError(t, f.server.SendIdentity(domain.TokenB))
	f.expect(t, IdentityAssigned, GameStarted)

	// row 2 of an empty column is a floating token
	require.NoError(t, f.server.SendBroadcast(protocol.Broadcast{Status: protocol.StatusContinue, Row: 2, Col: 0}))
	err := f.wait(t)
	assert.ErrorIs(t, err, protocol.ErrProtocolViolation)
	assert.ErrorIs(t, err, domain.ErrGravity)
}

func TestHandler_ServerHangsUp(t *testing.T) {
	f := start(t, protocol.ModeComputer)

	require.NoError(t, f.server.SendIdentity(domain.TokenA))
	_, err := f.server.ReadMode(time.Second)
	require.NoError(t, err)
	f.expect(t, IdentityAssigned)
	require.NoError(t, f.server.Close())

	assert.ErrorIs(t, f.wait(t), protocol.ErrPeerDisconnected)
}

func TestHandler_CancelStopsRun(t *testing.T) {
	f := start(t, protocol.ModeComputer)

	require.NoError(t, f.server.SendIdentity(domain.TokenB))
	f.expect(t, IdentityAssigned, GameStarted)

	f.cancel()
	assert.ErrorIs(t, f.wait(t), context.Canceled)

	// events are closed once Run returns
	_, ok := <-f.handler.Events()
	assert.False(t, ok)
}
