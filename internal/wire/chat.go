package wire

import (
	"encoding/binary"

	"github.com/revery-project/revery/internal/revery"
	"github.com/revery-project/revery/internal/session"
)

// chatFixedSize is the fixed portion of an encoded session.Message:
// sequence(8) + timestamp(4) + content_type(1) + payload_length(4).
// The variable-length payload and the trailing 32-byte mac follow, in
// that order, per spec.md §6's wire table:
// seq ‖ ts ‖ content_type ‖ payload:length-prefixed ‖ mac:32 bytes.
const chatFixedSize = 8 + 4 + 1 + 4
const macSize = 32

func encodeMessage(m session.Message) []byte {
	buf := make([]byte, chatFixedSize+len(m.Payload)+macSize)
	binary.LittleEndian.PutUint64(buf[0:8], m.Sequence)
	binary.LittleEndian.PutUint32(buf[8:12], uint32(m.Timestamp))
	buf[12] = byte(m.ContentType)
	binary.LittleEndian.PutUint32(buf[13:17], uint32(len(m.Payload)))
	payloadEnd := chatFixedSize + len(m.Payload)
	copy(buf[chatFixedSize:payloadEnd], m.Payload)
	copy(buf[payloadEnd:], m.MAC[:])
	return buf
}

func decodeMessage(data []byte) (session.Message, error) {
	if len(data) < chatFixedSize {
		return session.Message{}, revery.New(revery.KindInvalidFormat, nil)
	}
	var m session.Message
	m.Sequence = binary.LittleEndian.Uint64(data[0:8])
	m.Timestamp = session.MessageTimestamp(binary.LittleEndian.Uint32(data[8:12]))
	m.ContentType = session.ContentType(data[12])
	payloadLen := binary.LittleEndian.Uint32(data[13:17])

	payloadEnd := chatFixedSize + int(payloadLen)
	if payloadLen > MaxFrameSize || payloadEnd+macSize != len(data) {
		return session.Message{}, revery.New(revery.KindInvalidFormat, nil)
	}

	m.Payload = append([]byte(nil), data[chatFixedSize:payloadEnd]...)
	copy(m.MAC[:], data[payloadEnd:payloadEnd+macSize])
	return m, nil
}

// ChatConn is a Conn with a conversation bound to it, which makes
// SendText/SendImage/ReceiveChat usable. A ChatConn whose conversation
// is nil returns KindInvalidFormat from those methods, matching the
// wire error the handshake-phase frames (Auth/AuthVerification/
// Timestamp) would never hit.
type ChatConn struct {
	*Conn
	conv *session.Conversation
}

// AttachConversation wraps c with conv, returning a ChatConn whose
// chat helpers are now usable.
func AttachConversation(c *Conn, conv *session.Conversation) *ChatConn {
	return &ChatConn{Conn: c, conv: conv}
}

// SendText encrypts content as the next outgoing message and sends it
// as a Chat frame.
func (c *ChatConn) SendText(content string) error {
	if c.conv == nil {
		return revery.New(revery.KindInvalidFormat, nil)
	}
	m := c.conv.CreateText(content)
	return c.SendFrame(Frame{Type: FrameChat, Payload: encodeMessage(m)})
}

// SendImage encrypts imageData as the next outgoing message and sends
// it as a Chat frame.
func (c *ChatConn) SendImage(imageData []byte) error {
	if c.conv == nil {
		return revery.New(revery.KindInvalidFormat, nil)
	}
	m := c.conv.CreateImage(imageData)
	return c.SendFrame(Frame{Type: FrameChat, Payload: encodeMessage(m)})
}

// ReceiveChat reads the next Chat frame, decrypts it, and returns the
// plaintext payload alongside its content type.
func (c *ChatConn) ReceiveChat() ([]byte, session.ContentType, error) {
	if c.conv == nil {
		return nil, 0, revery.New(revery.KindInvalidFormat, nil)
	}
	f, err := c.receiveExpected(FrameChat)
	if err != nil {
		return nil, 0, err
	}
	m, err := decodeMessage(f.Payload)
	if err != nil {
		return nil, 0, err
	}
	plaintext, err := c.conv.Decrypt(&m)
	if err != nil {
		return nil, 0, err
	}
	return plaintext, m.ContentType, nil
}
