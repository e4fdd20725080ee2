package revery

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindString(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{KindAuthenticationFailed, "authentication_failed"},
		{KindInvalidState, "invalid_state"},
		{KindMessageTooLarge, "message_too_large"},
		{KindInvalidFormat, "invalid_format"},
		{KindConnectionClosed, "connection_closed"},
		{KindIO, "io"},
		{KindHmacVerificationFailed, "hmac_verification_failed"},
		{Kind(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.kind.String(); got != tt.want {
				t.Errorf("Kind(%d).String() = %q, want %q", tt.kind, got, tt.want)
			}
		})
	}
}

func TestErrorMessage(t *testing.T) {
	cause := errors.New("bad mac")
	err := New(KindHmacVerificationFailed, cause)

	if got := err.Error(); got != "revery: hmac_verification_failed: bad mac" {
		t.Errorf("Error() = %q", got)
	}

	bare := New(KindConnectionClosed, nil)
	if got := bare.Error(); got != "revery: connection_closed" {
		t.Errorf("Error() = %q", got)
	}
}

func TestTooLargeMessage(t *testing.T) {
	err := TooLarge(20 * 1024 * 1024)
	want := "revery: message too large: 20971520 bytes"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("short read")
	err := New(KindIO, cause)

	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}
}

func TestErrorIsMatchesKindOnly(t *testing.T) {
	a := New(KindInvalidState, errors.New("first"))
	b := New(KindInvalidState, errors.New("second"))
	c := New(KindInvalidFormat, nil)

	if !errors.Is(a, b) {
		t.Error("errors with the same Kind should satisfy errors.Is")
	}
	if errors.Is(a, c) {
		t.Error("errors with different Kinds should not satisfy errors.Is")
	}
}

func TestErrorIsSentinels(t *testing.T) {
	wrapped := fmt.Errorf("dial failed: %w", New(KindConnectionClosed, nil))

	if !errors.Is(wrapped, ErrConnectionClosed) {
		t.Error("wrapped error should match ErrConnectionClosed sentinel")
	}
	if errors.Is(wrapped, ErrInvalidState) {
		t.Error("wrapped error should not match an unrelated sentinel")
	}
}

func TestOf(t *testing.T) {
	err := fmt.Errorf("handshake: %w", New(KindAuthenticationFailed, errors.New("bad password")))

	if !Of(err, KindAuthenticationFailed) {
		t.Error("Of(err, KindAuthenticationFailed) = false, want true")
	}
	if Of(err, KindIO) {
		t.Error("Of(err, KindIO) = true, want false")
	}
	if Of(errors.New("plain error"), KindIO) {
		t.Error("Of on a non-revery error should always be false")
	}
}

func TestErrorAs(t *testing.T) {
	var target *Error
	err := fmt.Errorf("wire: %w", New(KindMessageTooLarge, nil))

	if !errors.As(err, &target) {
		t.Fatal("errors.As failed to extract *Error")
	}
	if target.Kind != KindMessageTooLarge {
		t.Errorf("extracted Kind = %v, want %v", target.Kind, KindMessageTooLarge)
	}
}
