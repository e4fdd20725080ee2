// Package pake implements the balanced, password-authenticated key
// exchange both sides of a Revery session run before any chat traffic
// is possible. It is CPace-shaped: a password-derived generator point
// on Curve25519, a random per-flow scalar, and a single round trip of
// public keys. Unlike a textbook CPace, it does not itself confirm
// agreement — spec.md keeps that as a separate phase bound to the
// derived authentication key, not the raw output of this package.
package pake

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"io"

	"golang.org/x/crypto/curve25519"

	"github.com/revery-project/revery/internal/crypto"
	"github.com/revery-project/revery/internal/revery"
)

// Role identifies which side of the exchange a Flow plays. The two
// roles use fixed, distinct party identities so the derived shared
// secret binds to "who sent which public key" even though the message
// shape is otherwise symmetric.
type Role int

const (
	Creator Role = iota
	Joiner
)

const (
	identityCreator = "revery-creator"
	identityJoiner  = "revery-joiner"
)

func (r Role) identity() string {
	if r == Creator {
		return identityCreator
	}
	return identityJoiner
}

func (r Role) peerIdentity() string {
	if r == Creator {
		return identityJoiner
	}
	return identityCreator
}

// elementSize is the size in bytes of a Curve25519 public key.
const elementSize = 32

// AuthMessage is the single message each side sends: its ephemeral
// public key for this exchange.
type AuthMessage struct {
	ExchangeMessage []byte
}

// Flow holds one side's state for a single PAKE exchange. A Flow is
// single-use: Authenticate consumes it, and a second call returns
// ErrInvalidState rather than reusing stale key material.
type Flow struct {
	role       Role
	privateKey [32]byte
	publicKey  [32]byte
	consumed   bool
}

// Start derives this side's key pair from password and returns the
// message to send to the peer. The generator point is derived
// deterministically from the password alone (no random session ID, no
// salt) — spec.md's Non-goals exclude PAKE-level forward secrecy, and
// freshness is reintroduced later by the key schedule mixing in the
// session address and timestamp.
func Start(role Role, password []byte) (*Flow, AuthMessage, error) {
	generator := deriveGenerator(password)

	var scalar [32]byte
	if _, err := io.ReadFull(rand.Reader, scalar[:]); err != nil {
		return nil, AuthMessage{}, fmt.Errorf("pake: generate scalar: %w", err)
	}
	scalar[0] &= 248
	scalar[31] &= 127
	scalar[31] |= 64

	public, err := curve25519.X25519(scalar[:], generator[:])
	if err != nil {
		return nil, AuthMessage{}, fmt.Errorf("pake: derive public key: %w", err)
	}

	f := &Flow{role: role, privateKey: scalar}
	copy(f.publicKey[:], public)

	return f, AuthMessage{ExchangeMessage: append([]byte(nil), f.publicKey[:]...)}, nil
}

// Authenticate consumes the peer's message and computes the raw shared
// secret. It does not verify agreement; a mismatched password simply
// yields a shared secret the two sides disagree on, which the
// verification phase (operating on the derived auth_key) will catch.
func (f *Flow) Authenticate(peer AuthMessage) ([]byte, error) {
	if f.consumed {
		return nil, revery.New(revery.KindInvalidState, nil)
	}
	if len(peer.ExchangeMessage) != elementSize {
		return nil, revery.New(revery.KindAuthenticationFailed, fmt.Errorf("pake: bad exchange message length %d", len(peer.ExchangeMessage)))
	}
	f.consumed = true

	shared, err := curve25519.X25519(f.privateKey[:], peer.ExchangeMessage)
	if err != nil {
		return nil, revery.New(revery.KindAuthenticationFailed, fmt.Errorf("pake: ecdh: %w", err))
	}

	var zero [32]byte
	if subtle.ConstantTimeCompare(shared, zero[:]) == 1 {
		return nil, revery.New(revery.KindAuthenticationFailed, fmt.Errorf("pake: low-order peer key"))
	}

	ourPublic := f.publicKey[:]
	peerPublic := peer.ExchangeMessage

	transcript := make([]byte, 0, len(shared)+len(identityCreator)+len(identityJoiner)+2*elementSize)
	transcript = append(transcript, shared...)
	if f.role == Creator {
		transcript = append(transcript, f.role.identity()...)
		transcript = append(transcript, ourPublic...)
		transcript = append(transcript, f.role.peerIdentity()...)
		transcript = append(transcript, peerPublic...)
	} else {
		transcript = append(transcript, f.role.peerIdentity()...)
		transcript = append(transcript, peerPublic...)
		transcript = append(transcript, f.role.identity()...)
		transcript = append(transcript, ourPublic...)
	}

	return crypto.Blake3DeriveKey("revery-pake-shared-secret-v1", transcript, 32), nil
}

// deriveGenerator hashes password into a pseudo-basepoint on
// Curve25519. Both sides derive the identical generator because both
// hold the identical password; there is no session ID mixed in, unlike
// the teacher's CPace, since this generator is meant to be stable
// across repeated exchanges with the same password.
func deriveGenerator(password []byte) [32]byte {
	digest := crypto.Blake3HashSize(append(append([]byte(nil), password...), "revery-pake-generator-v1"...), 32)
	var g [32]byte
	copy(g[:], digest)
	g[0] &= 248
	g[31] &= 127
	g[31] |= 64
	return g
}

