// Package wire implements the length-prefixed typed frame protocol
// Revery peers speak over any transport.Transport: handshake messages,
// the session timestamp, and encrypted chat messages all travel as
// [type:1][length:4 LE][payload].
package wire

import (
	"encoding/binary"
	"io"
	"time"

	"github.com/revery-project/revery/internal/revery"
	"github.com/revery-project/revery/internal/transport"
)

// FrameType identifies a frame's payload.
type FrameType uint8

const (
	FrameAuth             FrameType = 0x01
	FrameAuthVerification FrameType = 0x02
	FrameChat             FrameType = 0x03
	FrameTimestamp        FrameType = 0x04
)

func (t FrameType) valid() bool {
	switch t {
	case FrameAuth, FrameAuthVerification, FrameChat, FrameTimestamp:
		return true
	default:
		return false
	}
}

// MaxFrameSize is the largest payload a frame may declare; large
// enough for a JPEG/PNG image wrapped in a base64 data: URL.
const MaxFrameSize = 10 * 1024 * 1024

// largeFrameThreshold is the payload size above which the per-op
// timeout is tripled, matching the reference implementation's timeout
// budget for big image payloads.
const largeFrameThreshold = 1024 * 1024

// DefaultTimeout is the per read/write operation timeout applied when
// a Conn is built with New instead of NewWithTimeout.
const DefaultTimeout = 30 * time.Second

// Frame is the raw, not-yet-interpreted unit the wire protocol
// exchanges.
type Frame struct {
	Type    FrameType
	Payload []byte
}

// Conn drives one side of the wire protocol over a transport.
// Transport. It has no concept of roles — both a host and a joiner use
// the same Conn type, just in a different call order.
type Conn struct {
	t       transport.Transport
	timeout time.Duration
}

// New builds a Conn with DefaultTimeout.
func New(t transport.Transport) *Conn {
	return NewWithTimeout(t, DefaultTimeout)
}

// NewWithTimeout builds a Conn with a caller-chosen per-operation
// timeout.
func NewWithTimeout(t transport.Transport, timeout time.Duration) *Conn {
	return &Conn{t: t, timeout: timeout}
}

// Close closes the underlying transport.
func (c *Conn) Close() error {
	return c.t.Close()
}

// SendFrame writes a single frame: type byte, little-endian length,
// payload. Timeouts above largeFrameThreshold get tripled.
func (c *Conn) SendFrame(f Frame) error {
	if len(f.Payload) > MaxFrameSize {
		return revery.TooLarge(len(f.Payload))
	}

	timeout := c.timeout
	if len(f.Payload) > largeFrameThreshold {
		timeout *= 3
	}
	if err := c.t.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
		return revery.New(revery.KindIO, err)
	}

	header := make([]byte, 5)
	header[0] = byte(f.Type)
	binary.LittleEndian.PutUint32(header[1:5], uint32(len(f.Payload)))

	if _, err := c.t.Write(header); err != nil {
		return wrapIOError(err)
	}
	if len(f.Payload) > 0 {
		if _, err := c.t.Write(f.Payload); err != nil {
			return wrapIOError(err)
		}
	}
	return nil
}

// ReceiveFrame reads a single frame, enforcing MaxFrameSize before
// allocating a payload buffer so an attacker can't force a large
// allocation with a single oversized length header.
func (c *Conn) ReceiveFrame() (Frame, error) {
	if err := c.t.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
		return Frame{}, revery.New(revery.KindIO, err)
	}

	header := make([]byte, 5)
	if _, err := io.ReadFull(c.t, header); err != nil {
		return Frame{}, wrapIOError(err)
	}

	frameType := FrameType(header[0])
	if !frameType.valid() {
		return Frame{}, revery.New(revery.KindInvalidFormat, nil)
	}

	length := binary.LittleEndian.Uint32(header[1:5])
	if length > MaxFrameSize {
		return Frame{}, revery.TooLarge(int(length))
	}

	if length > largeFrameThreshold {
		if err := c.t.SetReadDeadline(time.Now().Add(c.timeout * 3)); err != nil {
			return Frame{}, revery.New(revery.KindIO, err)
		}
	}

	payload := make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(c.t, payload); err != nil {
			return Frame{}, wrapIOError(err)
		}
	}

	return Frame{Type: frameType, Payload: payload}, nil
}

// receiveExpected reads a frame and confirms it carries want, failing
// with KindInvalidFormat on a type mismatch.
func (c *Conn) receiveExpected(want FrameType) (Frame, error) {
	f, err := c.ReceiveFrame()
	if err != nil {
		return Frame{}, err
	}
	if f.Type != want {
		return Frame{}, revery.New(revery.KindInvalidFormat, nil)
	}
	return f, nil
}

func wrapIOError(err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return revery.New(revery.KindConnectionClosed, err)
	}
	if netErr, ok := err.(interface{ Timeout() bool }); ok && netErr.Timeout() {
		return revery.New(revery.KindConnectionClosed, err)
	}
	return revery.New(revery.KindIO, err)
}
