package transport

import (
	"net"
	"time"
)

// pipeEnd adapts one end of a net.Pipe to Transport. net.Pipe's
// connections already support deadlines, so this is a thin rename.
type pipeEnd struct {
	net.Conn
}

func (p pipeEnd) SetDeadline(t time.Time) error      { return p.Conn.SetDeadline(t) }
func (p pipeEnd) SetReadDeadline(t time.Time) error  { return p.Conn.SetReadDeadline(t) }
func (p pipeEnd) SetWriteDeadline(t time.Time) error { return p.Conn.SetWriteDeadline(t) }

// Pipe returns two connected in-memory Transports, for exercising the
// orchestrator and wire layers without a real network.
func Pipe() (a, b Transport) {
	ca, cb := net.Pipe()
	return pipeEnd{ca}, pipeEnd{cb}
}
