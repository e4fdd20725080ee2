// Command revery is a two-party, password-authenticated, deniable
// encrypted messaging tool. Besides the public STUN servers `revery
// host` queries for its external address, it never touches a server
// except the optional byte-blind relay, and never writes anything to
// disk.
package main

import (
	"fmt"
	"os"

	"github.com/revery-project/revery/internal/cli"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	cli.SetVersionInfo(version, commit, buildDate)

	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
