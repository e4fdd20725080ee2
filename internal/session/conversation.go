package session

import (
	"time"

	"github.com/revery-project/revery/internal/keyschedule"
)

// Timestamp is the session-level value (seconds since epoch) mixed
// into the key schedule when the conversation is created. It is a
// distinct type from MessageTimestamp, which is the per-message
// wall-clock value mixed into each message's nonce and MAC — the two
// are never interchangeable even though both ultimately come from the
// system clock.
type Timestamp uint64

// Conversation holds the derived session keys and the monotonically
// increasing sequence counter for one direction of message creation.
// Both peers construct their own Conversation from the same
// (shared_secret, address, timestamp) and arrive at identical keys.
type Conversation struct {
	keys         keyschedule.Keys
	nextSequence uint64
	createdAt    Timestamp
}

// New derives session keys from sharedSecret, address, and the current
// time, and starts the outgoing sequence counter at 1.
func New(sharedSecret []byte, address string) *Conversation {
	createdAt := Timestamp(time.Now().Unix())
	return FromKeys(keyschedule.Derive(sharedSecret, address, uint64(createdAt)), createdAt)
}

// FromKeys builds a Conversation from already-derived keys, bypassing
// key derivation. The orchestrator uses it once keys are derived with
// the negotiated timestamp, and tests use it so both sides of a
// session share fixed key material without re-deriving it.
func FromKeys(keys keyschedule.Keys, createdAt Timestamp) *Conversation {
	return &Conversation{keys: keys, nextSequence: 1, createdAt: createdAt}
}

// CreatedAt returns the session timestamp this conversation's keys
// were derived with.
func (c *Conversation) CreatedAt() Timestamp {
	return c.createdAt
}

// CurrentSequence returns the sequence number the next outgoing
// message will use.
func (c *Conversation) CurrentSequence() uint64 {
	return c.nextSequence
}

// CreateText encrypts content as the next outgoing text message,
// advancing the sequence counter.
func (c *Conversation) CreateText(content string) Message {
	return c.create(RawText{}, []byte(content))
}

// CreateImage encrypts imageData as the next outgoing image message,
// advancing the sequence counter.
func (c *Conversation) CreateImage(imageData []byte) Message {
	return c.create(DataURLBase64{}, imageData)
}

func (c *Conversation) create(enc ContentEncoder, payload []byte) Message {
	sequence := c.nextSequence
	timestamp := currentMessageTimestamp()
	c.nextSequence++

	return Encrypt(sequence, timestamp, enc.ContentType(), enc.Encode(payload), &c.keys.Encryption, &c.keys.Signing)
}

// Decrypt verifies and decrypts a received message using this
// conversation's keys. It never touches the sequence counter, since
// that counter only governs outgoing messages.
func (c *Conversation) Decrypt(m *Message) ([]byte, error) {
	return Decrypt(m, &c.keys.Encryption, &c.keys.Signing)
}

// CreateForgedText builds a message at a caller-chosen sequence and
// timestamp instead of the conversation's own counter. Given the same
// sequence and timestamp as a genuine message, this produces a
// different message that is cryptographically indistinguishable from
// the original under the same keys — the mechanism behind the
// conversation's deniability property. It never advances the sequence
// counter.
func (c *Conversation) CreateForgedText(sequence uint64, timestamp MessageTimestamp, fakeContent string) Message {
	return Encrypt(sequence, timestamp, ContentText, []byte(fakeContent), &c.keys.Encryption, &c.keys.Signing)
}

// Zero overwrites the conversation's key material. Call this when a
// session ends; nothing else in this package retains a copy of the
// keys.
func (c *Conversation) Zero() {
	c.keys.Zero()
}

func currentMessageTimestamp() MessageTimestamp {
	return MessageTimestamp(time.Now().Unix())
}
