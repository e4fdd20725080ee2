package relaybridge

import (
	"net"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter provides per-IP rate limiting for inbound rendezvous
// requests, independent of the duplex loop's own consecutive-failure
// budget (which bounds errors within an already-bridged session, not
// how fast a peer can ask for one).
type RateLimiter struct {
	limiters    map[string]*rate.Limiter
	mu          sync.RWMutex
	rateLimit   rate.Limit
	burstLimit  int
	cleanupTick time.Duration
}

// NewRateLimiter creates a limiter allowing ratePerSecond requests per
// IP, with burst as the instantaneous allowance.
func NewRateLimiter(ratePerSecond float64, burst int) *RateLimiter {
	rl := &RateLimiter{
		limiters:    make(map[string]*rate.Limiter),
		rateLimit:   rate.Limit(ratePerSecond),
		burstLimit:  burst,
		cleanupTick: 5 * time.Minute,
	}
	go rl.cleanup()
	return rl
}

// Allow reports whether a request from ip is within its rate budget.
func (rl *RateLimiter) Allow(ip string) bool {
	return rl.getLimiter(ip).Allow()
}

func (rl *RateLimiter) getLimiter(ip string) *rate.Limiter {
	rl.mu.RLock()
	limiter, exists := rl.limiters[ip]
	rl.mu.RUnlock()
	if exists {
		return limiter
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if limiter, exists = rl.limiters[ip]; exists {
		return limiter
	}
	limiter = rate.NewLimiter(rl.rateLimit, rl.burstLimit)
	rl.limiters[ip] = limiter
	return limiter
}

func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(rl.cleanupTick)
	defer ticker.Stop()

	for range ticker.C {
		rl.mu.Lock()
		if len(rl.limiters) > 10000 {
			rl.limiters = make(map[string]*rate.Limiter)
		}
		rl.mu.Unlock()
	}
}

// ExtractIP strips the port from a net.Conn.RemoteAddr()-style string.
func ExtractIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}

// ConnectionLimiter bounds the number of concurrent rendezvous
// connections a single IP may hold open.
type ConnectionLimiter struct {
	connections map[string]int
	mu          sync.RWMutex
	maxPerIP    int
}

// NewConnectionLimiter creates a limiter allowing at most maxPerIP
// concurrent connections per source IP.
func NewConnectionLimiter(maxPerIP int) *ConnectionLimiter {
	return &ConnectionLimiter{connections: make(map[string]int), maxPerIP: maxPerIP}
}

// Acquire attempts to reserve a connection slot for ip.
func (cl *ConnectionLimiter) Acquire(ip string) bool {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	if cl.connections[ip] >= cl.maxPerIP {
		return false
	}
	cl.connections[ip]++
	return true
}

// Release frees a connection slot previously acquired for ip.
func (cl *ConnectionLimiter) Release(ip string) {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	if cl.connections[ip] > 0 {
		cl.connections[ip]--
		if cl.connections[ip] == 0 {
			delete(cl.connections, ip)
		}
	}
}
