// Package tcp accepts plain TCP peers and hands them to the pairing loop.
package tcp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync/atomic"

	"github.com/iamasit07/connect4-server/internal/logging"
	"github.com/iamasit07/connect4-server/internal/protocol"
	"github.com/rs/zerolog"
)

type Source struct {
	Addr     string
	listener net.Listener
	running  atomic.Bool
	logger   zerolog.Logger
}

func NewSource(addr string, logger zerolog.Logger) *Source {
	return &Source{Addr: addr, logger: logging.Component(logger, "tcp")}
}

// Listen binds the address. It is separate from Serve so callers can learn
// the bound port first.
func (s *Source) Listen() error {
	if s.running.Load() {
		return fmt.Errorf("tcp source %s already running", s.Addr)
	}
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return fmt.Errorf("tcp source failed to start: %w", err)
	}
	s.listener = ln
	s.running.Store(true)
	s.logger.Info().Str("addr", ln.Addr().String()).Msg("tcp source started")
	return nil
}

// ListenAddr is the bound address, or nil before Listen.
func (s *Source) ListenAddr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve accepts connections until ctx is cancelled and offers each one to
// acceptor.
func (s *Source) Serve(ctx context.Context, acceptor protocol.Acceptor) error {
	if !s.running.Load() {
		if err := s.Listen(); err != nil {
			return err
		}
	}
	stop := context.AfterFunc(ctx, s.Stop)
	defer stop()

	for s.running.Load() {
		conn, err := s.listener.Accept()
		if err != nil {
			if !s.running.Load() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.logger.Error().Err(err).Msg("accept error")
			continue
		}

		s.logger.Debug().Str("peer", conn.RemoteAddr().String()).Msg("connection accepted")
		if err := acceptor.Offer(ctx, conn); err != nil {
			conn.Close()
			return nil
		}
	}
	return nil
}

func (s *Source) Stop() {
	if !s.running.Swap(false) {
		return
	}
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.logger.Info().Msg("tcp source stopped")
}
