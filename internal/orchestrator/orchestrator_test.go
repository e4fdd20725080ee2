package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/revery-project/revery/internal/revery"
	"github.com/revery-project/revery/internal/session"
	"github.com/revery-project/revery/internal/transport"
)

// runHostAndJoin starts Host and Join concurrently over an in-memory
// pipe and returns both sessions (or the errors that killed them).
func runHostAndJoin(t *testing.T, hostPassword, joinPassword []byte) (*Session, error, *Session, error) {
	t.Helper()

	hostTransport, joinTransport := transport.Pipe()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	type result struct {
		s   *Session
		err error
	}
	hostCh := make(chan result, 1)
	joinCh := make(chan result, 1)

	go func() {
		s, err := Host(ctx, hostTransport, hostPassword, "revery-test-address", DefaultOptions())
		hostCh <- result{s, err}
	}()
	go func() {
		s, err := Join(ctx, joinTransport, joinPassword, "revery-test-address", DefaultOptions())
		joinCh <- result{s, err}
	}()

	var hostResult, joinResult result
	select {
	case hostResult = <-hostCh:
	case <-time.After(5 * time.Second):
		t.Fatal("Host did not complete in time")
	}
	select {
	case joinResult = <-joinCh:
	case <-time.After(5 * time.Second):
		t.Fatal("Join did not complete in time")
	}

	return hostResult.s, hostResult.err, joinResult.s, joinResult.err
}

func TestHostJoinHonestRoundTrip(t *testing.T) {
	password := []byte("correct horse battery staple")
	hostSession, hostErr, joinSession, joinErr := runHostAndJoin(t, password, password)

	if hostErr != nil {
		t.Fatalf("Host failed: %v", hostErr)
	}
	if joinErr != nil {
		t.Fatalf("Join failed: %v", joinErr)
	}
	defer hostSession.Close()
	defer joinSession.Close()

	hostSession.SendText("hello from host")

	select {
	case msg := <-joinSession.Inbound():
		if msg.ContentType != session.ContentText {
			t.Errorf("ContentType = %v, want ContentText", msg.ContentType)
		}
		if string(msg.Content) != "hello from host" {
			t.Errorf("Content = %q, want %q", msg.Content, "hello from host")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("joiner did not receive the host's message")
	}

	joinSession.SendText("hi back from joiner")

	select {
	case msg := <-hostSession.Inbound():
		if string(msg.Content) != "hi back from joiner" {
			t.Errorf("Content = %q, want %q", msg.Content, "hi back from joiner")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("host did not receive the joiner's message")
	}
}

func TestHostJoinWrongPasswordFailsVerification(t *testing.T) {
	_, hostErr, _, joinErr := runHostAndJoin(t, []byte("password-one"), []byte("password-two"))

	if hostErr == nil {
		t.Fatal("Host should fail when passwords disagree")
	}
	if joinErr == nil {
		t.Fatal("Join should fail when passwords disagree")
	}

	if !revery.Of(hostErr, revery.KindInvalidState) {
		t.Errorf("Host error = %v, want KindInvalidState", hostErr)
	}
	if !revery.Of(joinErr, revery.KindInvalidState) {
		t.Errorf("Join error = %v, want KindInvalidState", joinErr)
	}
}

func TestSessionCloseEndsLoop(t *testing.T) {
	password := []byte("shared secret phrase")
	hostSession, hostErr, joinSession, joinErr := runHostAndJoin(t, password, password)
	if hostErr != nil || joinErr != nil {
		t.Fatalf("setup failed: hostErr=%v joinErr=%v", hostErr, joinErr)
	}

	hostSession.Close()

	select {
	case <-hostSession.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("host loop did not exit after Close")
	}

	joinSession.Close()
	select {
	case <-joinSession.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("joiner loop did not exit after Close")
	}
}
