package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ErrWebSocketClosed is returned by Read/Write after Close.
var ErrWebSocketClosed = errors.New("transport: websocket connection closed")

// WebSocket adapts a gorilla/websocket connection to the Transport
// interface, buffering partial reads of a single WebSocket message
// across multiple Read calls since wire framing reads arbitrary-sized
// chunks, not whole WebSocket messages.
type WebSocket struct {
	conn     *websocket.Conn
	readBuf  []byte
	readIdx  int
	readMu   sync.Mutex
	writeMu  sync.Mutex
	closed   bool
	closedMu sync.RWMutex
}

// DialWebSocket connects to a ws:// or wss:// URL (http(s):// is
// normalized to the matching ws(s) scheme).
func DialWebSocket(ctx context.Context, rawURL string) (*WebSocket, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("transport: invalid websocket url: %w", err)
	}

	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "wss"
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("transport: websocket dial: %w", err)
	}
	return &WebSocket{conn: conn}, nil
}

func (c *WebSocket) Read(p []byte) (int, error) {
	c.closedMu.RLock()
	if c.closed {
		c.closedMu.RUnlock()
		return 0, ErrWebSocketClosed
	}
	c.closedMu.RUnlock()

	c.readMu.Lock()
	defer c.readMu.Unlock()

	if c.readIdx < len(c.readBuf) {
		n := copy(p, c.readBuf[c.readIdx:])
		c.readIdx += n
		return n, nil
	}

	_, msg, err := c.conn.ReadMessage()
	if err != nil {
		if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
			return 0, io.EOF
		}
		return 0, err
	}

	c.readBuf = msg
	n := copy(p, c.readBuf)
	c.readIdx = n
	return n, nil
}

func (c *WebSocket) Write(p []byte) (int, error) {
	c.closedMu.RLock()
	if c.closed {
		c.closedMu.RUnlock()
		return 0, ErrWebSocketClosed
	}
	c.closedMu.RUnlock()

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (c *WebSocket) Close() error {
	c.closedMu.Lock()
	defer c.closedMu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true

	c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return c.conn.Close()
}

func (c *WebSocket) SetDeadline(t time.Time) error {
	if err := c.conn.SetReadDeadline(t); err != nil {
		return err
	}
	return c.conn.SetWriteDeadline(t)
}

func (c *WebSocket) SetReadDeadline(t time.Time) error  { return c.conn.SetReadDeadline(t) }
func (c *WebSocket) SetWriteDeadline(t time.Time) error { return c.conn.SetWriteDeadline(t) }

// WebSocketServer upgrades incoming HTTP connections and hands each
// one to handler as a Transport.
type WebSocketServer struct {
	upgrader websocket.Upgrader
	handler  func(*WebSocket)
}

// NewWebSocketServer builds a server that upgrades any origin (this is
// a peer-rendezvous endpoint, not a browser-facing API).
func NewWebSocketServer(handler func(*WebSocket)) *WebSocketServer {
	return &WebSocketServer{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  65536,
			WriteBufferSize: 65536,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		handler: handler,
	}
}

func (s *WebSocketServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.handler(&WebSocket{conn: conn})
}
