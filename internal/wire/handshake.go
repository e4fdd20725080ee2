package wire

import (
	"encoding/binary"

	"github.com/revery-project/revery/internal/pake"
	"github.com/revery-project/revery/internal/revery"
)

// SendAuthMessage sends the PAKE exchange message raw — it carries no
// secret material of its own, just an ephemeral public key.
func (c *Conn) SendAuthMessage(msg pake.AuthMessage) error {
	return c.SendFrame(Frame{Type: FrameAuth, Payload: msg.ExchangeMessage})
}

// ReceiveAuthMessage reads the peer's PAKE exchange message.
func (c *Conn) ReceiveAuthMessage() (pake.AuthMessage, error) {
	f, err := c.receiveExpected(FrameAuth)
	if err != nil {
		return pake.AuthMessage{}, err
	}
	return pake.AuthMessage{ExchangeMessage: f.Payload}, nil
}

// SendAuthVerification sends this side's mutual-verification challenge.
func (c *Conn) SendAuthVerification(v pake.Verification) error {
	return c.SendFrame(Frame{Type: FrameAuthVerification, Payload: v.ChallengeHash})
}

// ReceiveAuthVerification reads the peer's mutual-verification
// challenge.
func (c *Conn) ReceiveAuthVerification() (pake.Verification, error) {
	f, err := c.receiveExpected(FrameAuthVerification)
	if err != nil {
		return pake.Verification{}, err
	}
	return pake.Verification{ChallengeHash: f.Payload}, nil
}

// SendTimestamp sends the session timestamp the key schedule will be
// derived against. Only the host side calls this; the joiner always
// receives it, so the key schedule input is unambiguous.
func (c *Conn) SendTimestamp(timestamp uint64) error {
	payload := make([]byte, 8)
	binary.LittleEndian.PutUint64(payload, timestamp)
	return c.SendFrame(Frame{Type: FrameTimestamp, Payload: payload})
}

// ReceiveTimestamp reads the session timestamp sent by the host.
func (c *Conn) ReceiveTimestamp() (uint64, error) {
	f, err := c.receiveExpected(FrameTimestamp)
	if err != nil {
		return 0, err
	}
	if len(f.Payload) != 8 {
		return 0, revery.New(revery.KindInvalidFormat, nil)
	}
	return binary.LittleEndian.Uint64(f.Payload), nil
}
