package wire

import (
	"testing"

	"github.com/revery-project/revery/internal/pake"
	"github.com/revery-project/revery/internal/revery"
	"github.com/revery-project/revery/internal/session"
	"github.com/revery-project/revery/internal/transport"
)

func newTestConns(t *testing.T) (*Conn, *Conn) {
	t.Helper()
	a, b := transport.Pipe()
	return New(a), New(b)
}

func TestAuthMessageRoundTrip(t *testing.T) {
	client, server := newTestConns(t)
	defer client.Close()
	defer server.Close()

	msg := pake.AuthMessage{ExchangeMessage: []byte{1, 2, 3, 4, 5}}

	errCh := make(chan error, 1)
	go func() { errCh <- client.SendAuthMessage(msg) }()

	received, err := server.ReceiveAuthMessage()
	if err != nil {
		t.Fatalf("ReceiveAuthMessage: %v", err)
	}
	if err := <-errCh; err != nil {
		t.Fatalf("SendAuthMessage: %v", err)
	}

	if string(received.ExchangeMessage) != string(msg.ExchangeMessage) {
		t.Fatalf("ExchangeMessage = %v, want %v", received.ExchangeMessage, msg.ExchangeMessage)
	}
}

func TestAuthVerificationRoundTrip(t *testing.T) {
	client, server := newTestConns(t)
	defer client.Close()
	defer server.Close()

	v := pake.Verification{ChallengeHash: []byte{1, 2, 3, 4, 5, 6, 7, 8}}

	errCh := make(chan error, 1)
	go func() { errCh <- client.SendAuthVerification(v) }()

	received, err := server.ReceiveAuthVerification()
	if err != nil {
		t.Fatalf("ReceiveAuthVerification: %v", err)
	}
	if err := <-errCh; err != nil {
		t.Fatalf("SendAuthVerification: %v", err)
	}

	if string(received.ChallengeHash) != string(v.ChallengeHash) {
		t.Fatalf("ChallengeHash = %v, want %v", received.ChallengeHash, v.ChallengeHash)
	}
}

func TestTimestampRoundTrip(t *testing.T) {
	client, server := newTestConns(t)
	defer client.Close()
	defer server.Close()

	errCh := make(chan error, 1)
	go func() { errCh <- client.SendTimestamp(1717171717) }()

	got, err := server.ReceiveTimestamp()
	if err != nil {
		t.Fatalf("ReceiveTimestamp: %v", err)
	}
	if err := <-errCh; err != nil {
		t.Fatalf("SendTimestamp: %v", err)
	}
	if got != 1717171717 {
		t.Fatalf("ReceiveTimestamp() = %d, want 1717171717", got)
	}
}

func TestTextMessageRoundTrip(t *testing.T) {
	client, server := newTestConns(t)
	defer client.Close()
	defer server.Close()

	keys := fixedKeysForTest()
	clientChat := AttachConversation(client, session.FromKeys(keys, 1000))
	serverChat := AttachConversation(server, session.FromKeys(keys, 1000))

	errCh := make(chan error, 1)
	go func() { errCh <- clientChat.SendText("Hello, world!") }()

	content, contentType, err := serverChat.ReceiveChat()
	if err != nil {
		t.Fatalf("ReceiveChat: %v", err)
	}
	if err := <-errCh; err != nil {
		t.Fatalf("SendText: %v", err)
	}

	if string(content) != "Hello, world!" {
		t.Fatalf("content = %q, want %q", content, "Hello, world!")
	}
	if contentType != session.ContentText {
		t.Fatalf("contentType = %v, want ContentText", contentType)
	}
}

func TestReceiveChatWithoutConversationFails(t *testing.T) {
	client, server := newTestConns(t)
	defer client.Close()
	defer server.Close()

	// Send a raw Chat frame with garbage payload; the receiving side
	// has no conversation attached at the Conn level.
	go client.SendFrame(Frame{Type: FrameChat, Payload: []byte("not a real message")})

	_, err := server.ReceiveFrame()
	if err != nil {
		t.Fatalf("ReceiveFrame: %v", err)
	}

	chat := AttachConversation(server, nil)
	if _, _, err := chat.ReceiveChat(); !revery.Of(err, revery.KindInvalidFormat) {
		t.Fatalf("ReceiveChat without conversation err = %v, want KindInvalidFormat", err)
	}
}

func TestOversizedFrameRejected(t *testing.T) {
	client, server := newTestConns(t)
	defer client.Close()
	defer server.Close()

	err := client.SendFrame(Frame{Type: FrameChat, Payload: make([]byte, MaxFrameSize+1)})
	if !revery.Of(err, revery.KindMessageTooLarge) {
		t.Fatalf("err = %v, want KindMessageTooLarge", err)
	}
	_ = server
}

func fixedKeysForTest() (keys struct{ Auth, Encryption, Signing [32]byte }) {
	for i := range keys.Auth {
		keys.Auth[i] = 0x01
		keys.Encryption[i] = 0x02
		keys.Signing[i] = 0x03
	}
	return
}
