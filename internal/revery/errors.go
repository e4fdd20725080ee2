// Package revery defines the error taxonomy shared by every layer of
// the protocol engine (pake, keyschedule, session, wire, orchestrator).
package revery

import (
	"errors"
	"fmt"
)

// Kind identifies one of the observable error categories a Revery
// session can surface. The protocol packages (pake, session, wire)
// return errors that unwrap to one of these via errors.As.
type Kind int

const (
	// KindAuthenticationFailed means the PAKE rejected the peer
	// message: wrong password, or malformed exchange data.
	KindAuthenticationFailed Kind = iota
	// KindInvalidState means a PAKE flow was already consumed, or the
	// mutual verification challenge did not match.
	KindInvalidState
	// KindMessageTooLarge means a frame's declared length exceeds the
	// 10 MiB cap.
	KindMessageTooLarge
	// KindInvalidFormat means an unknown frame type, a type mismatch
	// against an expected frame, a serialization failure, or an
	// operation that needed a conversation that was never attached.
	KindInvalidFormat
	// KindConnectionClosed means a short read, a timeout, or an
	// explicit transport close.
	KindConnectionClosed
	// KindIO means any other transport error.
	KindIO
	// KindHmacVerificationFailed means the MAC over a received
	// message did not match; this also covers metadata tampering,
	// since metadata is part of the MAC input.
	KindHmacVerificationFailed
)

func (k Kind) String() string {
	switch k {
	case KindAuthenticationFailed:
		return "authentication_failed"
	case KindInvalidState:
		return "invalid_state"
	case KindMessageTooLarge:
		return "message_too_large"
	case KindInvalidFormat:
		return "invalid_format"
	case KindConnectionClosed:
		return "connection_closed"
	case KindIO:
		return "io"
	case KindHmacVerificationFailed:
		return "hmac_verification_failed"
	default:
		return "unknown"
	}
}

// Error is the single error type returned across package boundaries
// so that callers can use errors.As(err, &revery.Error{}) regardless
// of which layer produced it.
type Error struct {
	Kind Kind
	// Size is populated for KindMessageTooLarge and holds the
	// offending declared length in bytes.
	Size int
	Err  error
}

func (e *Error) Error() string {
	if e.Kind == KindMessageTooLarge {
		return fmt.Sprintf("revery: message too large: %d bytes", e.Size)
	}
	if e.Err != nil {
		return fmt.Sprintf("revery: %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("revery: %s", e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error with the same Kind, allowing
// errors.Is(err, New(KindInvalidState, nil)) style checks.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// New constructs an *Error of the given kind wrapping cause (which may
// be nil).
func New(kind Kind, cause error) *Error {
	return &Error{Kind: kind, Err: cause}
}

// TooLarge constructs a KindMessageTooLarge error carrying the
// offending size.
func TooLarge(size int) *Error {
	return &Error{Kind: KindMessageTooLarge, Size: size}
}

// Sentinel values for errors.Is comparisons where no wrapped cause or
// size is relevant.
var (
	ErrAuthenticationFailed   = New(KindAuthenticationFailed, nil)
	ErrInvalidState           = New(KindInvalidState, nil)
	ErrInvalidFormat          = New(KindInvalidFormat, nil)
	ErrConnectionClosed       = New(KindConnectionClosed, nil)
	ErrHmacVerificationFailed = New(KindHmacVerificationFailed, nil)
)

// Of reports whether err carries the given Kind anywhere in its chain.
func Of(err error, kind Kind) bool {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind == kind
	}
	return false
}
