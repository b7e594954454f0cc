package matchmaking

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/iamasit07/connect4-server/internal/domain"
	"github.com/iamasit07/connect4-server/internal/logging"
	"github.com/iamasit07/connect4-server/internal/protocol"
	"github.com/iamasit07/connect4-server/internal/service/game"
	"github.com/rs/zerolog"
)

var ErrListenerClosed = errors.New("listener closed")

// Listener pairs incoming peers into sessions. Every transport feeds the
// same pairing loop, so sessions are formed strictly in arrival order.
type Listener struct {
	incoming chan protocol.Transport
	done     chan struct{}
	stopOnce sync.Once

	manager          *game.SessionManager
	handshakeTimeout time.Duration
	peerOpts         []protocol.Option
	logger           zerolog.Logger

	sessions sync.WaitGroup
}

func NewListener(sm *game.SessionManager, handshakeTimeout time.Duration, logger zerolog.Logger, peerOpts ...protocol.Option) *Listener {
	return &Listener{
		incoming:         make(chan protocol.Transport),
		done:             make(chan struct{}),
		manager:          sm,
		handshakeTimeout: handshakeTimeout,
		peerOpts:         peerOpts,
		logger:           logging.Component(logger, "matchmaking"),
	}
}

// Offer blocks until the pairing loop takes conn. On error the caller still
// owns conn.
func (l *Listener) Offer(ctx context.Context, conn protocol.Transport) error {
	select {
	case l.incoming <- conn:
		return nil
	case <-l.done:
		return ErrListenerClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run is the pairing loop. It returns nil once ctx is cancelled and every
// session it started has ended.
func (l *Listener) Run(ctx context.Context) error {
	defer l.sessions.Wait()
	defer l.stopOnce.Do(func() { close(l.done) })

	l.logger.Info().Msg("waiting for players")
	for {
		a, mode, err := l.acceptFirst(ctx)
		if err != nil {
			return nil
		}

		var b *protocol.Peer
		if mode == protocol.ModeTwoPlayer {
			if b, err = l.acceptSecond(ctx); err != nil {
				a.Close()
				return nil
			}
		}

		session, err := l.manager.CreateSession(ctx, mode, a, b)
		if err != nil {
			l.logger.Error().Err(err).Msg("failed to create session")
			a.Close()
			if b != nil {
				b.Close()
			}
			continue
		}

		l.sessions.Add(1)
		go func() {
			defer l.sessions.Done()
			// the session logs its own outcome
			_ = session.Run(ctx)
		}()
	}
}

// acceptFirst waits for a peer that completes the handshake: it gets
// Identity A and must answer with a game mode.
func (l *Listener) acceptFirst(ctx context.Context) (*protocol.Peer, protocol.Mode, error) {
	for {
		conn, err := l.next(ctx)
		if err != nil {
			return nil, 0, err
		}

		peer := protocol.NewPeer(conn, l.peerOpts...)
		if err := peer.SendIdentity(domain.TokenA); err != nil {
			l.logger.Warn().Err(err).Str("peer", peer.RemoteAddr()).Msg("handshake failed")
			peer.Close()
			continue
		}
		mode, err := peer.ReadMode(l.handshakeTimeout)
		if err != nil {
			l.logger.Warn().Err(err).Str("peer", peer.RemoteAddr()).Msg("handshake failed")
			peer.Close()
			continue
		}

		l.logger.Info().Str("peer", peer.RemoteAddr()).Str("mode", mode.String()).Msg("player A connected")
		return peer, mode, nil
	}
}

func (l *Listener) acceptSecond(ctx context.Context) (*protocol.Peer, error) {
	for {
		conn, err := l.next(ctx)
		if err != nil {
			return nil, err
		}

		peer := protocol.NewPeer(conn, l.peerOpts...)
		if err := peer.SendIdentity(domain.TokenB); err != nil {
			l.logger.Warn().Err(err).Str("peer", peer.RemoteAddr()).Msg("handshake failed")
			peer.Close()
			continue
		}

		l.logger.Info().Str("peer", peer.RemoteAddr()).Msg("player B connected")
		return peer, nil
	}
}

func (l *Listener) next(ctx context.Context) (protocol.Transport, error) {
	select {
	case conn := <-l.incoming:
		return conn, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
