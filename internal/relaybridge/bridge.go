// Package relaybridge stands in for the anonymizing transport
// spec.md's §1 declares out of scope: a byte-blind forwarding relay
// that lets two Revery peers who can't reach each other directly (no
// LAN, no routable address) rendezvous and exchange their already
// wire-framed, encrypted byte stream through a third party that never
// sees plaintext — the relay forwards opaque bytes, never parses a
// frame or holds a key.
package relaybridge

import (
	"context"
	"io"
	"sync"
	"time"
)

// Bridge forwards bytes bidirectionally between two peer connections
// once a rendezvous address has matched them up.
type Bridge struct {
	peerA      io.ReadWriteCloser
	peerB      io.ReadWriteCloser
	bufferSize int
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	closed     bool
	closedMu   sync.Mutex
	bytesA2B   int64
	bytesB2A   int64
	bytesMu    sync.Mutex
	onComplete func(a2b, b2a int64)
}

// Config configures a Bridge.
type Config struct {
	BufferSize int
	Timeout    time.Duration
	OnComplete func(a2b, b2a int64)
}

// DefaultConfig returns the bridge defaults: a 64 KiB copy buffer and
// a 24-hour Timeout. Bridge does not apply Timeout; forwarding runs
// until a side closes or errors, however long it sits idle.
func DefaultConfig() Config {
	return Config{BufferSize: 65536, Timeout: 24 * time.Hour}
}

// New creates a Bridge between a and b. Call Start to begin
// forwarding and Wait to block until both directions finish.
func New(a, b io.ReadWriteCloser, cfg Config) *Bridge {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 65536
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Bridge{
		peerA:      a,
		peerB:      b,
		bufferSize: cfg.BufferSize,
		ctx:        ctx,
		cancel:     cancel,
		onComplete: cfg.OnComplete,
	}
}

// Start launches the two forwarding goroutines.
func (b *Bridge) Start() {
	b.wg.Add(2)
	go func() {
		defer b.wg.Done()
		n := b.forward(b.peerA, b.peerB)
		b.bytesMu.Lock()
		b.bytesA2B = n
		b.bytesMu.Unlock()
	}()
	go func() {
		defer b.wg.Done()
		n := b.forward(b.peerB, b.peerA)
		b.bytesMu.Lock()
		b.bytesB2A = n
		b.bytesMu.Unlock()
	}()
}

// Wait blocks until both directions have stopped forwarding (peer
// close or error) and reports the final byte counts via onComplete.
func (b *Bridge) Wait() {
	b.wg.Wait()

	b.closedMu.Lock()
	b.closed = true
	b.closedMu.Unlock()

	if b.onComplete != nil {
		a2b, b2a := b.Stats()
		b.onComplete(a2b, b2a)
	}
}

func (b *Bridge) forward(src io.Reader, dst io.Writer) int64 {
	buf := make([]byte, b.bufferSize)
	var total int64

	for {
		select {
		case <-b.ctx.Done():
			return total
		default:
		}

		n, err := src.Read(buf)
		if n > 0 {
			written, writeErr := dst.Write(buf[:n])
			total += int64(written)
			if writeErr != nil {
				b.Close()
				return total
			}
		}
		if err != nil {
			if err != io.EOF {
				b.Close()
			}
			return total
		}
	}
}

// Close tears down both peer connections and stops forwarding.
func (b *Bridge) Close() {
	b.closedMu.Lock()
	if b.closed {
		b.closedMu.Unlock()
		return
	}
	b.closed = true
	b.closedMu.Unlock()

	b.cancel()
	b.peerA.Close()
	b.peerB.Close()
}

// IsClosed reports whether the bridge has been torn down.
func (b *Bridge) IsClosed() bool {
	b.closedMu.Lock()
	defer b.closedMu.Unlock()
	return b.closed
}

// Stats returns the bytes relayed in each direction so far.
func (b *Bridge) Stats() (a2b, b2a int64) {
	b.bytesMu.Lock()
	defer b.bytesMu.Unlock()
	return b.bytesA2B, b.bytesB2A
}

// Pool tracks the bridges currently forwarding, one per matched
// rendezvous address.
type Pool struct {
	bridges map[string]*Bridge
	mu      sync.RWMutex
}

// NewPool creates an empty bridge pool.
func NewPool() *Pool {
	return &Pool{bridges: make(map[string]*Bridge)}
}

// Add registers bridge under address.
func (p *Pool) Add(address string, bridge *Bridge) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bridges[address] = bridge
}

// Remove closes and forgets the bridge registered under address, if
// any.
func (p *Pool) Remove(address string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if bridge, exists := p.bridges[address]; exists {
		bridge.Close()
		delete(p.bridges, address)
	}
}

// Count returns the number of bridges currently forwarding.
func (p *Pool) Count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.bridges)
}

// CloseAll tears down every bridge in the pool.
func (p *Pool) CloseAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for address, bridge := range p.bridges {
		bridge.Close()
		delete(p.bridges, address)
	}
}
