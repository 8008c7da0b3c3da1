package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pumpkit/rfmsg/internal/bridge"
	"github.com/pumpkit/rfmsg/internal/ui"
)

func init() {
	rootCmd.AddCommand(listenCmd)
	rootCmd.AddCommand(monitorCmd)

	addBridgeFlags(listenCmd.Flags())
	addCaptureFlags(listenCmd.Flags())
	addBridgeFlags(monitorCmd.Flags())
	addCaptureFlags(monitorCmd.Flags())
}

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Print packets received from a bridge",
	Long: `Connect to a radio bridge and print one line per received packet until
interrupted. Packets can also be written to a capture file.`,
	Example: `  # Websocket bridge
  rfmsg listen --url ws://rfbridge.local:8080/packets

  # Serial bridge, capturing to CBOR
  rfmsg listen --port /dev/ttyUSB0 --capture-dir ~/captures --capture-format cbor`,
	Args: cobra.NoArgs,
	RunE: runListen,
}

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Live packet monitor",
	Long: `Full-screen live view of the packets received from a bridge, with pump
nicknames from the configuration. Press q to quit.`,
	Example: `  rfmsg monitor --url ws://rfbridge.local:8080/packets`,
	Args:    cobra.NoArgs,
	RunE:    runMonitor,
}

func runListen(cmd *cobra.Command, args []string) error {
	return withBridgeSession(cmd, func(ctx context.Context, s *session) error {
		p := ui.NewPrinter(cmd.OutOrStdout())
		p.PrintHeader("Listen", "rfmsg listen", s.params())

		return bridge.Listen(ctx, s.bridge, s.catalog, func(pkt bridge.Packet) {
			s.record(pkt)
			ts := pkt.Received.Format("15:04:05.000")
			if pkt.Err != nil {
				p.Printf("%s %s %x: %v\n", ts, ui.FailureMarker, pkt.Raw, pkt.Err)
				return
			}
			line := ui.FormatPacketLine(pkt.Message, pkt.VariantName())
			if fields, err := pkt.Message.Fields(); err == nil && len(fields) > 0 {
				line += " " + formatFields(pkt.Message.Schema().Names(), fields)
			}
			p.Printf("%s %s\n", ts, line)
		})
	})
}

func runMonitor(cmd *cobra.Command, args []string) error {
	return withBridgeSession(cmd, func(ctx context.Context, s *session) error {
		return ui.RunMonitor(ctx, s.bridge, s.catalog, s.registry.Label, s.record)
	})
}

// withBridgeSession opens the bridge, catalog and optional capture, runs fn
// until SIGINT or SIGTERM, then saves the registry.
func withBridgeSession(cmd *cobra.Command, fn func(ctx context.Context, s *session) error) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	return fn(ctx, s)
}

func formatFields(names []string, fields map[string]uint64) string {
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s=%d", name, fields[name]))
	}
	return strings.Join(parts, " ")
}
