package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

// SetVersionInfo sets the version information from build flags
func SetVersionInfo(ver, com, date string) {
	version = ver
	commit = com
	buildDate = date
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  "Print detailed version information about revery",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("revery %s\n", version)
		fmt.Printf("  Commit:     %s\n", commit)
		fmt.Printf("  Built:      %s\n", buildDate)
		fmt.Printf("  Go version: %s\n", runtime.Version())
		fmt.Printf("  OS/Arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
		fmt.Println()
		fmt.Println("Cryptographic features:")
		fmt.Println("  - CPace-shaped PAKE over Curve25519")
		fmt.Println("  - BLAKE3 key schedule and message authentication")
		fmt.Println("  - ChaCha20 deniable authenticated encryption (no AEAD)")
		fmt.Println("  - No forward secrecy, no persistent identity keys, by design")
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
