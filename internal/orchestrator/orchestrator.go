// Package orchestrator drives one Revery session end to end: the PAKE
// exchange, session-timestamp negotiation, mutual verification, and
// the duplex messaging loop that follows. It mirrors
// host_session_impl/join_session_impl/handle_messages in the original
// Tauri glue (see DESIGN.md), but returns a *Session the caller drives
// instead of emitting framework events, per spec.md §9's note that the
// duplex loop should be "an object whose constructor returns
// (loop_future, sender_handle)".
package orchestrator

import (
	"context"
	"time"

	"github.com/revery-project/revery/internal/keyschedule"
	"github.com/revery-project/revery/internal/metrics"
	"github.com/revery-project/revery/internal/pake"
	"github.com/revery-project/revery/internal/revery"
	"github.com/revery-project/revery/internal/session"
	"github.com/revery-project/revery/internal/transport"
	"github.com/revery-project/revery/internal/wire"

	"golang.org/x/time/rate"
)

// Options tunes the duplex loop's error budget and inbound rate cap.
// The zero value is not useable directly; construct with
// DefaultOptions and override individual fields.
type Options struct {
	// MaxConsecutiveFailures is the number of consecutive send/receive
	// failures the duplex loop tolerates before giving up.
	MaxConsecutiveFailures int
	// NetworkErrorTolerance is the additional budget granted to
	// failures classified as network errors (I/O kind or
	// ConnectionClosed), on top of MaxConsecutiveFailures.
	NetworkErrorTolerance int
	// BackoffBase and BackoffStep parameterize the linear backoff
	// applied after a network-classified failure: BackoffBase +
	// BackoffStep*n, where n is the current consecutive-failure count.
	BackoffBase time.Duration
	BackoffStep time.Duration
	// InboundRateLimit and InboundBurst cap how fast inbound chat
	// frames are processed, independent of the failure budget (which
	// bounds failures, not volume); a misbehaving peer that sends
	// well-formed-but-wrong-MAC frames as fast as possible is slowed
	// down here before it can spend much MAC-verification CPU.
	InboundRateLimit rate.Limit
	InboundBurst     int
	// FrameTimeout is the per-operation wire timeout; zero uses
	// wire.DefaultTimeout.
	FrameTimeout time.Duration
	// Metrics, if non-nil, receives handshake/frame/error-budget
	// observations. A nil Metrics is valid; every Recorder method is
	// a no-op on a nil receiver.
	Metrics *metrics.Recorder
}

// DefaultOptions returns spec.md §5's constants: 5 consecutive
// failures, +2 tolerance for network errors, 500ms+200ms*n backoff.
func DefaultOptions() Options {
	return Options{
		MaxConsecutiveFailures: 5,
		NetworkErrorTolerance:  2,
		BackoffBase:            500 * time.Millisecond,
		BackoffStep:            200 * time.Millisecond,
		InboundRateLimit:       50,
		InboundBurst:           10,
		FrameTimeout:           wire.DefaultTimeout,
	}
}

// outboundQueueCapacity is the bounded outbound queue depth spec.md
// §5 specifies.
const outboundQueueCapacity = 32

// outboundText and outboundImage are the two request shapes an
// external producer can push onto a Session's outbound queue.
type outboundKind int

const (
	outboundText outboundKind = iota
	outboundImage
)

type outboundRequest struct {
	kind    outboundKind
	text    string
	imageBy []byte
}

// InboundMessage is a decrypted chat message delivered to the caller.
type InboundMessage struct {
	Content     []byte
	ContentType session.ContentType
}

// Session is a live, verified Revery session: a bound conversation,
// the outbound queue handle a caller pushes Text/Image requests onto,
// and the inbound channel decrypted messages arrive on. Calling Close
// (or cancelling the context passed to Host/Join) ends the
// duplex loop; Inbound is closed when the loop exits for any reason.
type Session struct {
	conv     *session.Conversation
	chat     *wire.ChatConn
	outbound chan outboundRequest
	inbound  chan InboundMessage
	done     chan struct{}
	err      error
}

// SendText enqueues content for encryption and transmission. It
// blocks if the outbound queue (capacity 32) is full.
func (s *Session) SendText(content string) {
	s.outbound <- outboundRequest{kind: outboundText, text: content}
}

// SendImage enqueues imageData for encryption and transmission.
func (s *Session) SendImage(imageData []byte) {
	s.outbound <- outboundRequest{kind: outboundImage, imageBy: imageData}
}

// Close shuts down the outbound queue, which ends the duplex loop
// after any already-queued sends drain.
func (s *Session) Close() {
	close(s.outbound)
}

// Inbound returns the channel decrypted messages arrive on. It closes
// when the duplex loop exits.
func (s *Session) Inbound() <-chan InboundMessage {
	return s.inbound
}

// Done returns a channel closed when the duplex loop has exited.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Err returns the error that ended the duplex loop, or nil if it is
// still running or ended because the outbound queue was closed.
func (s *Session) Err() error {
	return s.err
}

// Host runs the Creator side of a session: receive-then-send PAKE,
// choose and send the session timestamp, send-then-receive mutual
// verification, then hand off to the duplex loop. address must be the
// same string both sides bind into the key schedule (e.g. the
// rendezvous address the joiner dialed).
func Host(ctx context.Context, t transport.Transport, password []byte, address string, opts Options) (*Session, error) {
	c := wire.NewWithTimeout(t, frameTimeout(opts))

	flow, ourMsg, err := pake.Start(pake.Creator, password)
	if err != nil {
		opts.Metrics.HandshakeFailed()
		return nil, err
	}

	peerMsg, err := c.ReceiveAuthMessage()
	if err != nil {
		opts.Metrics.HandshakeFailed()
		return nil, err
	}
	if err := c.SendAuthMessage(ourMsg); err != nil {
		opts.Metrics.HandshakeFailed()
		return nil, err
	}

	sharedSecret, err := flow.Authenticate(peerMsg)
	if err != nil {
		opts.Metrics.HandshakeFailed()
		return nil, err
	}

	sessionTimestamp := uint64(time.Now().Unix())
	if err := c.SendTimestamp(sessionTimestamp); err != nil {
		opts.Metrics.HandshakeFailed()
		return nil, err
	}

	conv, err := verifyAndAttach(c, sharedSecret, address, sessionTimestamp, true, opts)
	if err != nil {
		return nil, err
	}

	return startDuplexLoop(ctx, c, conv, opts), nil
}

// Join runs the Joiner side of a session: send-then-receive PAKE,
// receive the host-chosen session timestamp, receive-then-send mutual
// verification, then hand off to the duplex loop.
func Join(ctx context.Context, t transport.Transport, password []byte, address string, opts Options) (*Session, error) {
	c := wire.NewWithTimeout(t, frameTimeout(opts))

	flow, ourMsg, err := pake.Start(pake.Joiner, password)
	if err != nil {
		opts.Metrics.HandshakeFailed()
		return nil, err
	}

	if err := c.SendAuthMessage(ourMsg); err != nil {
		opts.Metrics.HandshakeFailed()
		return nil, err
	}
	peerMsg, err := c.ReceiveAuthMessage()
	if err != nil {
		opts.Metrics.HandshakeFailed()
		return nil, err
	}

	sharedSecret, err := flow.Authenticate(peerMsg)
	if err != nil {
		opts.Metrics.HandshakeFailed()
		return nil, err
	}

	sessionTimestamp, err := c.ReceiveTimestamp()
	if err != nil {
		opts.Metrics.HandshakeFailed()
		return nil, err
	}

	conv, err := verifyAndAttach(c, sharedSecret, address, sessionTimestamp, false, opts)
	if err != nil {
		return nil, err
	}

	return startDuplexLoop(ctx, c, conv, opts), nil
}

// verifyAndAttach runs mutual challenge/verification (host sends
// first then receives; joiner receives first then sends, per spec.md
// §4.3 step 6, to keep the half-duplex frame queue deadlock-free) and,
// on success, derives the conversation both sides now agree on.
func verifyAndAttach(c *wire.Conn, sharedSecret []byte, address string, sessionTimestamp uint64, isHost bool, opts Options) (*session.Conversation, error) {
	keys := keyschedule.Derive(sharedSecret, address, sessionTimestamp)
	ourChallenge := pake.Challenge(keys.Auth)

	if isHost {
		if err := c.SendAuthVerification(ourChallenge); err != nil {
			opts.Metrics.HandshakeFailed()
			return nil, err
		}
		peerChallenge, err := c.ReceiveAuthVerification()
		if err != nil {
			opts.Metrics.HandshakeFailed()
			return nil, err
		}
		if err := verifyEqual(ourChallenge, peerChallenge); err != nil {
			opts.Metrics.HandshakeFailed()
			return nil, err
		}
	} else {
		peerChallenge, err := c.ReceiveAuthVerification()
		if err != nil {
			opts.Metrics.HandshakeFailed()
			return nil, err
		}
		if err := c.SendAuthVerification(ourChallenge); err != nil {
			opts.Metrics.HandshakeFailed()
			return nil, err
		}
		if err := verifyEqual(ourChallenge, peerChallenge); err != nil {
			opts.Metrics.HandshakeFailed()
			return nil, err
		}
	}

	opts.Metrics.HandshakeSucceeded()
	conv := session.FromKeys(keys, session.Timestamp(sessionTimestamp))
	return conv, nil
}

func verifyEqual(ours, peer pake.Verification) error {
	return pake.VerifyChallengeHash(ours, peer)
}

func frameTimeout(opts Options) time.Duration {
	if opts.FrameTimeout <= 0 {
		return wire.DefaultTimeout
	}
	return opts.FrameTimeout
}

// startDuplexLoop attaches conv to c and launches the bidirectional
// messaging loop in its own goroutine, returning a Session handle
// immediately.
func startDuplexLoop(ctx context.Context, c *wire.Conn, conv *session.Conversation, opts Options) *Session {
	chat := wire.AttachConversation(c, conv)

	s := &Session{
		conv:     conv,
		chat:     chat,
		outbound: make(chan outboundRequest, outboundQueueCapacity),
		inbound:  make(chan InboundMessage, outboundQueueCapacity),
		done:     make(chan struct{}),
	}

	go runDuplexLoop(ctx, s, opts)
	return s
}

// runDuplexLoop implements spec.md §5's duplex multiplexing and error
// budget: an outbound queue and an inbound frame reader race, with a
// shared consecutive-failure budget that trips the loop after
// MaxConsecutiveFailures non-network-classified failures, or after
// MaxConsecutiveFailures+NetworkErrorTolerance failures overall —
// network-kind errors get the extra tolerance, everything else does
// not, so a streak of e.g. HmacVerificationFailed still terminates at
// MaxConsecutiveFailures.
func runDuplexLoop(ctx context.Context, s *Session, opts Options) {
	started := time.Now()
	defer close(s.inbound)
	defer close(s.done)
	defer s.conv.Zero()
	defer opts.Metrics.SessionEnded(started)

	limiter := rate.NewLimiter(opts.InboundRateLimit, opts.InboundBurst)
	budget := failureBudget{}

	type recvResult struct {
		content []byte
		ctype   session.ContentType
		err     error
	}
	recvCh := make(chan recvResult, 1)
	requestRecv := func() {
		go func() {
			if limiter.Wait(ctx) != nil {
				return
			}
			content, ctype, err := s.chat.ReceiveChat()
			recvCh <- recvResult{content, ctype, err}
		}()
	}
	requestRecv()

	for {
		select {
		case <-ctx.Done():
			s.err = ctx.Err()
			return

		case req, ok := <-s.outbound:
			if !ok {
				return
			}
			var err error
			switch req.kind {
			case outboundText:
				err = s.chat.SendText(req.text)
			case outboundImage:
				err = s.chat.SendImage(req.imageBy)
			}
			if !recordOutcome(&budget, opts, err) {
				s.err = err
				return
			}
			if err == nil {
				opts.Metrics.FrameSent()
			}

		case res := <-recvCh:
			if res.err != nil {
				if revery.Of(res.err, revery.KindHmacVerificationFailed) {
					// spec.md §7: a MAC failure drops the offending
					// frame and advances the failure counter; it never
					// surfaces partial plaintext.
					opts.Metrics.MacVerificationFailed()
				}
				if !recordOutcome(&budget, opts, res.err) {
					s.err = res.err
					return
				}
				requestRecv()
				continue
			}

			budget.reset()
			opts.Metrics.SetConsecutiveFailures(0)
			opts.Metrics.FrameReceived()

			select {
			case s.inbound <- InboundMessage{Content: res.content, ContentType: res.ctype}:
			case <-ctx.Done():
				s.err = ctx.Err()
				return
			}
			requestRecv()
		}
	}
}

// failureBudget tracks the duplex loop's consecutive-failure counters:
// total counts every failure, nonNetwork counts only the ones that
// aren't network-classified. Network errors advance total but not
// nonNetwork, which is what gives them their extra tolerance — a
// streak of nothing but network errors can run to
// MaxConsecutiveFailures+NetworkErrorTolerance, but a streak containing
// any non-network failure still trips at MaxConsecutiveFailures of
// those.
type failureBudget struct {
	total      int
	nonNetwork int
}

func (b *failureBudget) reset() {
	b.total = 0
	b.nonNetwork = 0
}

// recordOutcome updates the shared failure budget with the result of
// one outbound/inbound operation. It returns false once the budget is
// exhausted. Network-classified errors sleep for a linearly growing
// backoff before the caller retries.
func recordOutcome(budget *failureBudget, opts Options, err error) bool {
	if err == nil {
		budget.reset()
		opts.Metrics.SetConsecutiveFailures(0)
		return true
	}

	budget.total++
	network := isNetworkError(err)
	if !network {
		budget.nonNetwork++
	}
	opts.Metrics.SetConsecutiveFailures(budget.total)

	if network {
		backoff := opts.BackoffBase + opts.BackoffStep*time.Duration(budget.total)
		time.Sleep(backoff)
	}

	if budget.nonNetwork >= opts.MaxConsecutiveFailures {
		return false
	}
	return budget.total < opts.MaxConsecutiveFailures+opts.NetworkErrorTolerance
}

func isNetworkError(err error) bool {
	return revery.Of(err, revery.KindIO) || revery.Of(err, revery.KindConnectionClosed)
}
