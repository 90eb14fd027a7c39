package feed

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// Conn is the read side of an open push channel.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
}

// Dialer opens push channel connections.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// WebsocketDialer dials the push channel with gorilla/websocket.
type WebsocketDialer struct {
	Dialer *websocket.Dialer
	Header http.Header
}

func NewWebsocketDialer(handshakeTimeout time.Duration) *WebsocketDialer {
	return &WebsocketDialer{
		Dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: handshakeTimeout,
		},
	}
}

func (d *WebsocketDialer) Dial(ctx context.Context, url string) (Conn, error) {
	conn, resp, err := d.Dialer.DialContext(ctx, url, d.Header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("error dialing %s (status %d): %w", url, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("error dialing %s: %w", url, err)
	}
	return conn, nil
}
