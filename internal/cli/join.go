package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/revery-project/revery/internal/discovery"
	"github.com/revery-project/revery/internal/orchestrator"
	"github.com/revery-project/revery/internal/transport"
	"github.com/revery-project/revery/internal/wordlist"
)

var (
	joinTimeout time.Duration
)

var joinCmd = &cobra.Command{
	Use:   "join <address>",
	Short: "Join a session started with 'revery host'",
	Long: `Join a revery session by its rendezvous address: look for the host
on the local network first, and fall back to the configured relay
bridge if that fails. The address doubles as the shared password, so
it must match exactly what the host printed.

Examples:
  revery join north-violet-harp`,
	Args: cobra.ExactArgs(1),
	RunE: runJoin,
}

func init() {
	rootCmd.AddCommand(joinCmd)

	joinCmd.Flags().DurationVar(&joinTimeout, "discovery-timeout", 5*time.Second, "how long to look for the host on the local network")
}

func runJoin(cmd *cobra.Command, args []string) error {
	green := color.New(color.FgGreen, color.Bold)
	yellow := color.New(color.FgYellow)

	address := wordlist.NormalizeCode(args[0])
	if !wordlist.ValidateCode(address) {
		return fmt.Errorf("%q doesn't look like a valid address", args[0])
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	yellow.Printf("Looking for %s...\n", address)

	t, err := dialPeer(ctx, address)
	if err != nil {
		return err
	}

	session, err := orchestrator.Join(ctx, t, []byte(address), address, orchestrator.DefaultOptions())
	if err != nil {
		return fmt.Errorf("handshake failed: %w", err)
	}

	green.Println("Connected and verified.")
	fmt.Println()

	return runChat(ctx, session)
}

// dialPeer tries local mDNS discovery first, then the configured
// relay bridge.
func dialPeer(ctx context.Context, address string) (transport.Transport, error) {
	discoverCtx, cancel := context.WithTimeout(ctx, joinTimeout)
	defer cancel()

	resolver := discovery.NewResolver(joinTimeout)
	peer, err := resolver.ResolveByAddress(discoverCtx, address)
	if err == nil && peer != nil {
		if IsVerbose() {
			fmt.Printf("Found host at %s:%d\n", peer.IP, peer.Port)
		}
		conn, dialErr := transport.DialTCP(ctx, fmt.Sprintf("%s:%d", peer.IP, peer.Port))
		if dialErr == nil {
			return conn, nil
		}
		if IsVerbose() {
			fmt.Printf("Local dial failed (%v), falling back to relay\n", dialErr)
		}
	}

	relayURL := GetRelayServer()
	if relayURL == "" {
		return nil, fmt.Errorf("no host found on the local network and no relay configured")
	}

	if IsVerbose() {
		fmt.Printf("Trying relay %s...\n", relayURL)
	}
	return dialRelay(ctx, relayURL, address)
}
