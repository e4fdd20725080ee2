// Package session implements the deniable message codec: a
// deterministic-nonce ChaCha20 stream cipher combined with a keyed
// BLAKE3 MAC over the message metadata and ciphertext. The codec is
// deliberately not an AEAD — binding ciphertext to an implicit
// identity or associated-data context would defeat the goal that any
// key-holder can forge a message indistinguishable from a genuine one.
package session

import (
	"encoding/binary"

	"golang.org/x/crypto/chacha20"

	"github.com/revery-project/revery/internal/crypto"
	"github.com/revery-project/revery/internal/revery"
)

// ContentType identifies how a message's decrypted payload should be
// interpreted.
type ContentType uint8

const (
	ContentText  ContentType = 0
	ContentImage ContentType = 1
)

// MessageTimestamp is the per-message wall-clock value mixed into the
// nonce and the MAC. It is distinct from the session-level Timestamp
// used by the key schedule; the two are never the same Go type.
type MessageTimestamp uint32

// Message is a single encrypted, authenticated chat message. Every
// field except the MAC itself is covered by the MAC, so tampering with
// sequence, timestamp, or content_type is detected exactly like
// tampering with the ciphertext.
type Message struct {
	Sequence    uint64
	Timestamp   MessageTimestamp
	ContentType ContentType
	Payload     []byte
	MAC         [32]byte
}

// Encrypt builds a Message by applying the ChaCha20 keystream derived
// from (sequence, timestamp) to plaintext, then computing the MAC over
// the resulting header and ciphertext. Two calls with the same
// sequence, timestamp, and keys always produce the same nonce — this
// determinism is intentional, not a bug: it is what makes forged
// messages indistinguishable from genuine ones under the same key
// material.
func Encrypt(sequence uint64, timestamp MessageTimestamp, contentType ContentType, plaintext []byte, encryptionKey, signingKey *[32]byte) Message {
	payload := append([]byte(nil), plaintext...)
	xorKeystream(payload, sequence, timestamp, encryptionKey)

	m := Message{
		Sequence:    sequence,
		Timestamp:   timestamp,
		ContentType: contentType,
		Payload:     payload,
	}
	m.MAC = computeMAC(&m, signingKey)
	return m
}

// Decrypt verifies the MAC and, if it matches, returns the decrypted
// plaintext. The MAC is checked before any decryption is attempted.
func Decrypt(m *Message, encryptionKey, signingKey *[32]byte) ([]byte, error) {
	expected := computeMAC(m, signingKey)
	if !macEqual(expected, m.MAC) {
		return nil, revery.New(revery.KindHmacVerificationFailed, nil)
	}

	plaintext := append([]byte(nil), m.Payload...)
	xorKeystream(plaintext, m.Sequence, m.Timestamp, encryptionKey)
	return plaintext, nil
}

// computeMAC covers sequence, timestamp, content type, and ciphertext,
// in that order — exactly the fields a receiver can observe, so
// nothing outside the MAC's reach can be tampered with undetected.
func computeMAC(m *Message, signingKey *[32]byte) [32]byte {
	buf := make([]byte, 0, 8+4+1+len(m.Payload))
	var seqBuf [8]byte
	binary.LittleEndian.PutUint64(seqBuf[:], m.Sequence)
	buf = append(buf, seqBuf[:]...)

	var tsBuf [4]byte
	binary.LittleEndian.PutUint32(tsBuf[:], uint32(m.Timestamp))
	buf = append(buf, tsBuf[:]...)

	buf = append(buf, byte(m.ContentType))
	buf = append(buf, m.Payload...)

	mac := crypto.Blake3MAC(signingKey[:], buf)
	var out [32]byte
	copy(out[:], mac)
	return out
}

func macEqual(a, b [32]byte) bool {
	var v byte
	for i := range a {
		v |= a[i] ^ b[i]
	}
	return v == 0
}

// buildNonce packs sequence (little-endian, 8 bytes) and timestamp
// (little-endian, 4 bytes) into the 12-byte ChaCha20 nonce.
func buildNonce(sequence uint64, timestamp MessageTimestamp) [chacha20.NonceSize]byte {
	var nonce [chacha20.NonceSize]byte
	binary.LittleEndian.PutUint64(nonce[0:8], sequence)
	binary.LittleEndian.PutUint32(nonce[8:12], uint32(timestamp))
	return nonce
}

func xorKeystream(data []byte, sequence uint64, timestamp MessageTimestamp, key *[32]byte) {
	nonce := buildNonce(sequence, timestamp)
	cipher, err := chacha20.NewUnauthenticatedCipher(key[:], nonce[:])
	if err != nil {
		// Only returns an error for malformed key/nonce lengths, which
		// are fixed-size arrays here and can never be wrong.
		panic(err)
	}
	cipher.XORKeyStream(data, data)
}
