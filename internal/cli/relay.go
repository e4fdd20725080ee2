package cli

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/revery-project/revery/internal/relaybridge"
)

var (
	relayPort       int
	relayAddressTTL time.Duration
	relayMaxConns   int
	relayRateLimit  float64
	relayBurst      int
)

var relayCmd = &cobra.Command{
	Use:   "relay",
	Short: "Run a byte-blind rendezvous relay",
	Long: `Run a relay that pairs two revery peers by rendezvous address and
forwards their already-encrypted byte stream between them. The relay
never parses a frame and never holds a session key — it exists purely
for peers that have no direct route to each other (no shared LAN, no
routable address).

Examples:
  # Start the relay on the default port
  revery relay

  # Start on a custom port with a shorter address TTL
  revery relay --port 8080 --address-ttl 5m`,
	RunE: runRelay,
}

func init() {
	rootCmd.AddCommand(relayCmd)

	relayCmd.Flags().IntVar(&relayPort, "port", 8080, "listen port")
	relayCmd.Flags().DurationVar(&relayAddressTTL, "address-ttl", 10*time.Minute, "how long a waiting peer is held before eviction")
	relayCmd.Flags().IntVar(&relayMaxConns, "max-connections", 10, "max connections per IP")
	relayCmd.Flags().Float64Var(&relayRateLimit, "rate-limit", 10, "requests per second per IP")
	relayCmd.Flags().IntVar(&relayBurst, "burst", 20, "rate limit burst size")
}

func runRelay(cmd *cobra.Command, args []string) error {
	cfg := relaybridge.ServerConfig{
		ListenAddr:          fmt.Sprintf(":%d", relayPort),
		AddressTTL:          relayAddressTTL,
		MaxConnectionsPerIP: relayMaxConns,
		RateLimit:           relayRateLimit,
		BurstLimit:          relayBurst,
	}

	server := relaybridge.NewServer(cfg)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Println("Starting revery relay...")
	fmt.Printf("  Listen:      %s\n", cfg.ListenAddr)
	fmt.Printf("  Address TTL: %s\n", cfg.AddressTTL)
	fmt.Println()
	fmt.Println("The relay is byte-blind: every message stays end-to-end encrypted.")
	fmt.Println()

	return server.Run(ctx)
}
