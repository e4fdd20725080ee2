// Package transport defines the byte-stream contract the protocol
// engine runs over and provides the concrete stream implementations a
// deployed Revery session actually uses: direct TCP, WebSocket (for
// running over a relay or reverse proxy), and an in-memory pipe for
// tests.
package transport

import (
	"io"
	"time"
)

// Transport is any reliable, ordered, full-duplex byte stream with
// deadline support. It is satisfied by a TCP connection, a WebSocket
// connection, or an in-memory pipe — the protocol engine in
// internal/wire never cares which one it got.
type Transport interface {
	io.ReadWriteCloser
	SetDeadline(t time.Time) error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
}
