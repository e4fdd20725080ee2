package relaybridge

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ServerConfig configures the rendezvous server.
type ServerConfig struct {
	ListenAddr          string
	AddressTTL          time.Duration
	MaxConnectionsPerIP int
	RateLimit           float64
	BurstLimit          int
}

// DefaultServerConfig returns sane defaults for a LAN/relay bridge
// deployment.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		ListenAddr:          ":8080",
		AddressTTL:          10 * time.Minute,
		MaxConnectionsPerIP: 10,
		RateLimit:           10,
		BurstLimit:          20,
	}
}

// waitingPeer is the first peer to arrive at a rendezvous address,
// held until either a second peer shows up or its TTL expires.
type waitingPeer struct {
	conn      *websocket.Conn
	arrivedAt time.Time
}

// Server is a byte-blind rendezvous point: two peers that connect
// with the same address are bridged together and every byte either
// side sends is forwarded to the other, untouched. The server never
// parses a Revery frame and never sees a session key.
type Server struct {
	cfg         ServerConfig
	upgrader    websocket.Upgrader
	rateLimiter *RateLimiter
	connLimiter *ConnectionLimiter
	pool        *Pool

	waitingMu sync.Mutex
	waiting   map[string]*waitingPeer

	connectionsTotal int64
	bridgesCompleted int64

	httpServer *http.Server
	startedAt  time.Time
}

// NewServer builds a Server; call Run to start serving.
func NewServer(cfg ServerConfig) *Server {
	if cfg.AddressTTL <= 0 {
		cfg.AddressTTL = 10 * time.Minute
	}
	return &Server{
		cfg:         cfg,
		rateLimiter: NewRateLimiter(cfg.RateLimit, cfg.BurstLimit),
		connLimiter: NewConnectionLimiter(cfg.MaxConnectionsPerIP),
		pool:        NewPool(),
		waiting:     make(map[string]*waitingPeer),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  65536,
			WriteBufferSize: 65536,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Run starts the HTTP/WebSocket listener and blocks until ctx is
// cancelled or the listener fails.
func (s *Server) Run(ctx context.Context) error {
	s.startedAt = time.Now()

	mux := http.NewServeMux()
	mux.HandleFunc("/rendezvous", s.handleRendezvous)

	s.httpServer = &http.Server{Addr: s.cfg.ListenAddr, Handler: mux}

	go s.expireWaiting(ctx)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.cfg.ListenAddr).Msg("relay bridge listening")
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.pool.CloseAll()
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

func (s *Server) handleRendezvous(w http.ResponseWriter, r *http.Request) {
	address := r.URL.Query().Get("address")
	if address == "" {
		http.Error(w, "missing address", http.StatusBadRequest)
		return
	}

	ip := ExtractIP(r.RemoteAddr)
	if !s.rateLimiter.Allow(ip) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
		return
	}
	if !s.connLimiter.Acquire(ip) {
		http.Error(w, "too many connections", http.StatusTooManyRequests)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.connLimiter.Release(ip)
		return
	}
	atomic.AddInt64(&s.connectionsTotal, 1)

	logger := log.With().Str("address", address).Str("remote_ip", ip).Logger()
	s.pairOrWait(conn, address, ip, logger)
}

// pairOrWait either bridges conn with a peer already waiting at
// address, or parks conn as the new waiting peer for that address.
func (s *Server) pairOrWait(conn *websocket.Conn, address, ip string, logger zerolog.Logger) {
	s.waitingMu.Lock()
	first, ok := s.waiting[address]
	if !ok {
		s.waiting[address] = &waitingPeer{conn: conn, arrivedAt: time.Now()}
		s.waitingMu.Unlock()
		logger.Info().Msg("peer waiting for rendezvous")
		return
	}
	delete(s.waiting, address)
	s.waitingMu.Unlock()

	logger.Info().Msg("peers matched, bridging")

	bridge := New(&websocketConn{conn: first.conn}, &websocketConn{conn: conn}, DefaultConfig())
	s.pool.Add(address, bridge)
	bridge.Start()

	go func() {
		bridge.Wait()
		s.pool.Remove(address)
		s.connLimiter.Release(ip)
		atomic.AddInt64(&s.bridgesCompleted, 1)
		a2b, b2a := bridge.Stats()
		logger.Info().Int64("bytes_a_to_b", a2b).Int64("bytes_b_to_a", b2a).Msg("bridge closed")
	}()
}

func (s *Server) expireWaiting(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.waitingMu.Lock()
			for address, peer := range s.waiting {
				if time.Since(peer.arrivedAt) > s.cfg.AddressTTL {
					peer.conn.Close()
					delete(s.waiting, address)
				}
			}
			s.waitingMu.Unlock()
		}
	}
}

// Stats reports basic server-lifetime counters.
type Stats struct {
	ConnectionsTotal int64
	BridgesCompleted int64
	ActiveBridges    int
	Uptime           time.Duration
}

// Stats returns current server statistics.
func (s *Server) Stats() Stats {
	return Stats{
		ConnectionsTotal: atomic.LoadInt64(&s.connectionsTotal),
		BridgesCompleted: atomic.LoadInt64(&s.bridgesCompleted),
		ActiveBridges:    s.pool.Count(),
		Uptime:           time.Since(s.startedAt),
	}
}

// websocketConn adapts *websocket.Conn to io.ReadWriteCloser for the
// byte-blind Bridge, which only needs to copy opaque frames and
// doesn't care that the transport underneath is message-oriented. A
// single WebSocket message (which may carry an image payload well
// over the Bridge's 64 KiB copy buffer) is doled out across however
// many Read calls it takes, the same way transport.WebSocket does for
// the protocol engine itself.
type websocketConn struct {
	conn    *websocket.Conn
	readBuf []byte
	readIdx int
}

func (w *websocketConn) Read(p []byte) (int, error) {
	if w.readIdx < len(w.readBuf) {
		n := copy(p, w.readBuf[w.readIdx:])
		w.readIdx += n
		return n, nil
	}

	_, msg, err := w.conn.ReadMessage()
	if err != nil {
		return 0, err
	}
	w.readBuf = msg
	n := copy(p, w.readBuf)
	w.readIdx = n
	return n, nil
}

func (w *websocketConn) Write(p []byte) (int, error) {
	if err := w.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *websocketConn) Close() error {
	return w.conn.Close()
}
