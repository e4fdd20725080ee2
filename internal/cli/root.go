// Package cli implements the command-line interface for revery.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile     string
	verbose     bool
	relayServer string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "revery",
	Short: "Deniable, password-authenticated encrypted messaging between two peers",
	Long: `Revery is a command-line tool for two people who share a password
to open a direct, end-to-end encrypted chat session, with no account,
no identity key, and no record that either side ever said anything
they didn't say.

Features:
  - CPace-shaped password-authenticated key exchange over Curve25519
  - Mutual verification bound to the session's address and timestamp
  - Deniable authenticated message encryption (ChaCha20 + keyed BLAKE3)
  - Local network discovery via mDNS
  - An optional byte-blind relay for peers that can't reach each other directly

Examples:
  # Start a session and wait for the other side to join
  revery host

  # Join a session someone else started
  revery join north-violet-harp

  # Run a rendezvous relay for peers with no direct route
  revery relay --port 8080`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.revery.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&relayServer, "relay", "", "relay bridge URL (wss://...), if the peers can't reach each other directly")

	viper.BindPFlag("relay", rootCmd.PersistentFlags().Lookup("relay"))
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initConfig reads in config file and ENV variables if set
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return
		}

		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".revery")
	}

	viper.SetEnvPrefix("REVERY")
	viper.AutomaticEnv()

	viper.SetDefault("relay", "")
	viper.SetDefault("local_discovery", true)

	if err := viper.ReadInConfig(); err == nil {
		if verbose {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}
}

// IsVerbose returns whether verbose mode is enabled
func IsVerbose() bool {
	return verbose || viper.GetBool("verbose")
}

// GetRelayServer returns the configured relay bridge URL, or "" if
// sessions should only be reached directly/via LAN discovery.
func GetRelayServer() string {
	return viper.GetString("relay")
}
