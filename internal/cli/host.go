package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/revery-project/revery/internal/discovery"
	"github.com/revery-project/revery/internal/orchestrator"
	"github.com/revery-project/revery/internal/session"
	"github.com/revery-project/revery/internal/transport"
	"github.com/revery-project/revery/internal/wordlist"
)

var (
	hostWords   int
	hostPort    int
	hostLocal   bool
	hostAddress string
)

var hostCmd = &cobra.Command{
	Use:   "host",
	Short: "Start a session and wait for someone to join",
	Long: `Start a revery session: generate (or accept) a rendezvous address,
which also serves as the shared password, advertise it on the local
network, and wait for a peer to join with the same address.

Examples:
  # Start a session with a freshly generated address
  revery host

  # Use a specific address/password instead of generating one
  revery host --address north-violet-harp`,
	RunE: runHost,
}

func init() {
	rootCmd.AddCommand(hostCmd)

	hostCmd.Flags().IntVar(&hostWords, "words", 3, "number of words in a generated address")
	hostCmd.Flags().IntVar(&hostPort, "port", 0, "TCP port to listen on (0 = automatic)")
	hostCmd.Flags().BoolVar(&hostLocal, "local", true, "advertise on the local network via mDNS")
	hostCmd.Flags().StringVar(&hostAddress, "address", "", "use this address/password instead of generating one")
}

func runHost(cmd *cobra.Command, args []string) error {
	green := color.New(color.FgGreen, color.Bold)
	cyan := color.New(color.FgCyan)
	yellow := color.New(color.FgYellow)

	address := hostAddress
	if address == "" {
		var err error
		address, err = wordlist.GenerateCode(hostWords)
		if err != nil {
			return fmt.Errorf("failed to generate address: %w", err)
		}
	}

	fmt.Println()
	green.Printf("Address: %s\n", address)
	fmt.Println()
	cyan.Println("Share this address with the person you want to talk to.")
	fmt.Println()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	listener, err := transport.ListenTCP(fmt.Sprintf(":%d", hostPort))
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	defer listener.Close()

	if hostLocal {
		advertiser := discovery.NewAdvertiser(listener.Port(), address)
		if err := advertiser.Start(); err != nil && IsVerbose() {
			fmt.Fprintf(os.Stderr, "local advertising unavailable: %v\n", err)
		} else if err == nil {
			defer advertiser.Stop()
		}
	}

	printPublicAddressHint(ctx, listener.Port())

	yellow.Println("Waiting for a peer to join...")
	fmt.Println()

	t, err := acceptPeer(ctx, listener, address)
	if err != nil {
		return err
	}

	session, err := orchestrator.Host(ctx, t, []byte(address), address, orchestrator.DefaultOptions())
	if err != nil {
		return fmt.Errorf("handshake failed: %w", err)
	}

	green.Println("Connected and verified.")
	fmt.Println()

	return runChat(ctx, session)
}

// acceptPeer waits for a local connection, falling back to the
// configured relay if one doesn't arrive within a short grace period
// (or immediately, if local advertising is disabled).
func acceptPeer(ctx context.Context, listener *transport.TCPListener, address string) (transport.Transport, error) {
	localCh := make(chan transport.Transport, 1)
	errCh := make(chan error, 1)

	go func() {
		conn, err := listener.Accept()
		if err != nil {
			errCh <- err
			return
		}
		localCh <- conn
	}()

	grace := 30 * time.Second
	if !hostLocal {
		grace = 0
	}

	select {
	case conn := <-localCh:
		return conn, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(grace):
	}

	relayURL := GetRelayServer()
	if relayURL == "" {
		select {
		case conn := <-localCh:
			return conn, nil
		case err := <-errCh:
			return nil, err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if IsVerbose() {
		fmt.Printf("No local peer yet, trying relay %s...\n", relayURL)
	}
	return dialRelay(ctx, relayURL, address)
}

// printPublicAddressHint does a best-effort STUN lookup so a host
// behind a NAT knows what to port-forward for a joiner to reach it
// directly, without requiring the relay. Failure is silent outside
// verbose mode: it's a convenience, not a requirement for hosting.
func printPublicAddressHint(ctx context.Context, localPort int) {
	stunCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	pub, err := transport.NewSTUNClient(nil).PublicAddress(stunCtx)
	if err != nil {
		if IsVerbose() {
			fmt.Fprintf(os.Stderr, "public address lookup failed: %v\n", err)
		}
		return
	}

	fmt.Printf("Public address (for port forwarding): %s:%d -> local port %d\n", pub.IP, pub.Port, localPort)
}

func dialRelay(ctx context.Context, relayURL, address string) (transport.Transport, error) {
	ws, err := transport.DialWebSocket(ctx, relayURL+"/rendezvous?address="+address)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to relay: %w", err)
	}
	return ws, nil
}

// runChat drives the interactive loop once a session is verified:
// print inbound messages as they arrive, read outbound lines from
// stdin until the session ends or the user sends /quit.
func runChat(ctx context.Context, s *orchestrator.Session) error {
	cyan := color.New(color.FgCyan)
	magenta := color.New(color.FgMagenta)

	go func() {
		for msg := range s.Inbound() {
			if msg.ContentType == session.ContentImage {
				magenta.Printf("peer: [image, %d bytes]\n", len(msg.Content))
				continue
			}
			magenta.Printf("peer: %s\n", msg.Content)
		}
	}()

	linesCh := make(chan string)
	go func() {
		defer close(linesCh)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			linesCh <- scanner.Text()
		}
	}()

	cyan.Println("Type a message and press enter. /image <path> to send an image, /quit to leave.")

	for {
		select {
		case <-ctx.Done():
			s.Close()
			return ctx.Err()

		case <-s.Done():
			if err := s.Err(); err != nil {
				return fmt.Errorf("session ended: %w", err)
			}
			return nil

		case line, ok := <-linesCh:
			if !ok {
				s.Close()
				continue
			}
			if err := handleInputLine(s, line); err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
			}
		}
	}
}

func handleInputLine(s *orchestrator.Session, line string) error {
	switch {
	case line == "/quit":
		s.Close()
		return nil
	case strings.HasPrefix(line, "/image "):
		path := strings.TrimSpace(strings.TrimPrefix(line, "/image "))
		return sendImageFile(s, path)
	case line == "":
		return nil
	default:
		s.SendText(line)
		return nil
	}
}

func sendImageFile(s *orchestrator.Session, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("cannot read %s: %w", path, err)
	}
	s.SendImage(data)
	return nil
}
