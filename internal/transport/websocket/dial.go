package websocket

import (
	"context"
	"fmt"

	"github.com/gorilla/websocket"
)

// Dial opens a client connection to a /ws endpoint.
func Dial(ctx context.Context, url string) (*Conn, error) {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return NewConn(ws), nil
}
