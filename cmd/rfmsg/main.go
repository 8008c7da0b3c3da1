// Rfmsg decodes, builds and captures insulin pump RF messages.
//
// It reads packets from a radio bridge (websocket or serial), decodes the
// identity header and schema fields against a message catalog, and can
// build outbound messages field by field.
//
// Usage:
//
//	rfmsg [command] [flags]
//
// See 'rfmsg --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pumpkit/rfmsg/internal/logging"
	"github.com/pumpkit/rfmsg/internal/ui"
	"github.com/pumpkit/rfmsg/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	logging.Sync()
}

// Global flags
var (
	logLevel    string
	catalogPath string
	configPath  string
)

var rootCmd = &cobra.Command{
	Use:   "rfmsg",
	Short: "Insulin pump RF message toolkit",
	Long: `Decode, build and capture insulin pump RF messages.

Every packet starts with an identity header: packet type, three-byte device
address and message type. The remaining bits are read and written through
named fields described by a message catalog (a built-in starter catalog is
embedded; use --catalog to supply your own).

Packets come from a radio bridge, either a websocket endpoint (ws://, wss://)
or a serial UART speaking one hex packet per line.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logging.Initialize(logLevel)
	},
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); silent when unset and "+logging.LogLevelEnvVar+" is empty")
	rootCmd.PersistentFlags().StringVar(&catalogPath, "catalog", "", "Message catalog YAML file (default: config preference, then built-in)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Configuration file (default: platform config dir)")

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		p := ui.NewPrinter(cmd.OutOrStdout())
		p.PrintSuccess("rfmsg "+version.Version, version.Details())
	},
}
