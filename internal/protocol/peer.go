package protocol

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/iamasit07/connect4-server/internal/domain"
)

// Transport is the byte stream a peer talks over. net.Conn satisfies it, and
// so does the WebSocket adapter.
type Transport interface {
	io.ReadWriteCloser
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	RemoteAddr() net.Addr
}

// Broadcast is the GameStatus + LastMove pair sent after each half-move.
// Row and Col are zero-based, or NoMove for a disconnect.
type Broadcast struct {
	Status Status
	Row    int
	Col    int
}

// Peer wraps a Transport with the typed messages of the protocol. Every read
// and write is bounded by a deadline; a zero timeout disables it.
type Peer struct {
	conn         Transport
	readTimeout  time.Duration
	writeTimeout time.Duration

	writeMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

type Option func(*Peer)

func WithReadTimeout(d time.Duration) Option {
	return func(p *Peer) { p.readTimeout = d }
}

func WithWriteTimeout(d time.Duration) Option {
	return func(p *Peer) { p.writeTimeout = d }
}

func NewPeer(conn Transport, opts ...Option) *Peer {
	p := &Peer{conn: conn}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Peer) RemoteAddr() string {
	if addr := p.conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return "unknown"
}

// Close is safe to call more than once.
func (p *Peer) Close() error {
	p.closeOnce.Do(func() {
		p.closeErr = p.conn.Close()
	})
	return p.closeErr
}

// ---- server side ----

func (p *Peer) SendIdentity(token domain.Token) error {
	return p.writeChar("identity", IdentityChar(token))
}

// ReadMode reads the GameMode that peer A sends after its identity.
func (p *Peer) ReadMode(timeout time.Duration) (Mode, error) {
	v, err := p.readInt("game mode", timeout)
	if err != nil {
		return 0, err
	}
	mode := Mode(v)
	if !mode.Valid() {
		return 0, fmt.Errorf("%w: %w: %d", ErrProtocolViolation, ErrUnknownMode, v)
	}
	return mode, nil
}

func (p *Peer) SendStart() error {
	return p.writeInts("start signal", StartSignal)
}

// ReadMove returns the raw 1-based column. Range checks belong to the game.
func (p *Peer) ReadMove() (int, error) {
	v, err := p.readInt("move", p.readTimeout)
	if err != nil {
		return 0, err
	}
	return int(v), nil
}

func (p *Peer) SendMoveStatus(status MoveStatus) error {
	return p.writeInts("move status", int32(status))
}

// SendBroadcast writes the status and the last move as a single frame.
func (p *Peer) SendBroadcast(b Broadcast) error {
	return p.writeInts("broadcast", int32(b.Status), int32(b.Row), int32(b.Col))
}

// ---- peer side ----

func (p *Peer) ReadIdentity() (domain.Token, error) {
	c, err := p.readChar("identity", p.readTimeout)
	if err != nil {
		return domain.Empty, err
	}
	return TokenFromIdentity(c)
}

func (p *Peer) SendMode(mode Mode) error {
	if !mode.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownMode, int32(mode))
	}
	return p.writeInts("game mode", int32(mode))
}

func (p *Peer) ReadStart() error {
	_, err := p.readInt("start signal", p.readTimeout)
	return err
}

func (p *Peer) SendMove(column int) error {
	return p.writeInts("move", int32(column))
}

func (p *Peer) ReadMoveStatus() (MoveStatus, error) {
	v, err := p.readInt("move status", p.readTimeout)
	if err != nil {
		return 0, err
	}
	status := MoveStatus(v)
	if status != MoveAccepted && status != MoveRejected {
		return 0, fmt.Errorf("%w: move status %d", ErrProtocolViolation, v)
	}
	return status, nil
}

func (p *Peer) ReadBroadcast() (Broadcast, error) {
	status, err := p.readInt("game status", p.readTimeout)
	if err != nil {
		return Broadcast{}, err
	}
	row, err := p.readInt("last move row", p.readTimeout)
	if err != nil {
		return Broadcast{}, err
	}
	col, err := p.readInt("last move column", p.readTimeout)
	if err != nil {
		return Broadcast{}, err
	}

	b := Broadcast{Status: Status(status), Row: int(row), Col: int(col)}
	if !b.Status.Valid() {
		return Broadcast{}, fmt.Errorf("%w: %w: %d", ErrProtocolViolation, ErrUnknownStatus, status)
	}
	if b.Status == StatusPeerDisconnected {
		return b, nil
	}
	if b.Row < 0 || b.Row >= domain.Rows || b.Col < 0 || b.Col >= domain.Columns {
		return Broadcast{}, fmt.Errorf("%w: %w: (%d,%d)", ErrProtocolViolation, ErrBadPosition, b.Row, b.Col)
	}
	return b, nil
}

// ---- codec ----

func (p *Peer) writeInts(what string, values ...int32) error {
	buf := make([]byte, 0, 4*len(values))
	for _, v := range values {
		buf = binary.BigEndian.AppendUint32(buf, uint32(v))
	}
	return p.write(what, buf)
}

func (p *Peer) writeChar(what string, c uint16) error {
	return p.write(what, binary.BigEndian.AppendUint16(nil, c))
}

func (p *Peer) write(what string, buf []byte) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	if err := p.conn.SetWriteDeadline(deadline(p.writeTimeout)); err != nil {
		return fmt.Errorf("write %s: %w: %w", what, ErrPeerDisconnected, err)
	}
	if _, err := p.conn.Write(buf); err != nil {
		return fmt.Errorf("write %s: %w: %w", what, ErrPeerDisconnected, err)
	}
	return nil
}

func (p *Peer) readInt(what string, timeout time.Duration) (int32, error) {
	var buf [4]byte
	if err := p.read(what, buf[:], timeout); err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(buf[:])), nil
}

func (p *Peer) readChar(what string, timeout time.Duration) (uint16, error) {
	var buf [2]byte
	if err := p.read(what, buf[:], timeout); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(buf[:]), nil
}

func (p *Peer) read(what string, buf []byte, timeout time.Duration) error {
	if err := p.conn.SetReadDeadline(deadline(timeout)); err != nil {
		return fmt.Errorf("read %s: %w: %w", what, ErrPeerDisconnected, err)
	}
	if _, err := io.ReadFull(p.conn, buf); err != nil {
		return fmt.Errorf("read %s: %w: %w", what, ErrPeerDisconnected, err)
	}
	return nil
}

func deadline(timeout time.Duration) time.Time {
	if timeout <= 0 {
		return time.Time{}
	}
	return time.Now().Add(timeout)
}

// Acceptor takes ownership of a freshly connected transport. Transports
// hand their connections to it; it is implemented by the pairing loop.
type Acceptor interface {
	Offer(ctx context.Context, conn Transport) error
}
