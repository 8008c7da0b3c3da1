package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pumpkit/rfmsg/internal/capture"
	"github.com/pumpkit/rfmsg/internal/catalog"
	"github.com/pumpkit/rfmsg/internal/config"
	"github.com/pumpkit/rfmsg/internal/logging"
	"github.com/pumpkit/rfmsg/internal/message"
	"github.com/pumpkit/rfmsg/internal/ui"
)

var (
	decodeVariant string
	decodeJSON    bool
)

func init() {
	rootCmd.AddCommand(decodeCmd)
	rootCmd.AddCommand(replayCmd)

	decodeCmd.Flags().StringVar(&decodeVariant, "variant", "", "Decode with this catalog variant instead of matching by type")
	decodeCmd.Flags().BoolVar(&decodeJSON, "json", false, "Print capture records as JSON")
	replayCmd.Flags().BoolVar(&decodeJSON, "json", false, "Print records as JSON")
}

var decodeCmd = &cobra.Command{
	Use:   "decode <hex>...",
	Short: "Decode one or more packets",
	Long: `Decode hex-encoded packets.

The identity header (packet type, address, message type) is always shown.
When a catalog variant matches the packet and message types, every field of
that variant is decoded as well. Unknown packet or message types are not an
error; they are reported as Unknown(0x..).`,
	Example: `  # Decode a button press
  rfmsg decode a71234565b0400

  # Force a variant when the types do not match the catalog
  rfmsg decode --variant power a7123456 5d 01 0a

  # Machine-readable output
  rfmsg decode --json a71234565b0400`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDecode,
}

func runDecode(cmd *cobra.Command, args []string) error {
	reg := loadRegistryQuiet()
	cat, err := loadCatalog(reg)
	if err != nil {
		return err
	}

	// A forced variant takes the whole argument list as one packet
	packets := args
	if decodeVariant != "" {
		packets = []string{strings.Join(args, "")}
	}

	p := ui.NewPrinter(cmd.OutOrStdout())
	enc := json.NewEncoder(cmd.OutOrStdout())
	for _, h := range packets {
		msg, err := decodeOne(cat, h)
		if err != nil {
			return err
		}
		if decodeJSON {
			if err := enc.Encode(capture.NewRecord(time.Now(), "cli", capture.DirectionRX, msg)); err != nil {
				return err
			}
			continue
		}
		p.PrintMessage(msg, pumpLabel(reg, msg.Address()))
	}
	return nil
}

func decodeOne(cat *catalog.Catalog, h string) (*message.Message, error) {
	if decodeVariant != "" {
		v, ok := cat.Lookup(decodeVariant)
		if !ok {
			return nil, fmt.Errorf("%w: %q (see 'rfmsg catalog list')", catalog.ErrUnknownVariant, decodeVariant)
		}
		return message.FromHex(h, v.Schema)
	}

	data, err := message.FromHex(h, nil)
	if err != nil {
		return nil, err
	}
	msg, _, err := cat.Decode(data.Data())
	return msg, err
}

var replayCmd = &cobra.Command{
	Use:   "replay <capture-file>",
	Short: "Re-decode the packets of a capture file",
	Long: `Read a capture file written by 'listen', 'monitor' or 'serve' and decode
every packet again against the current catalog. Use this after extending the
catalog to see fields of previously unknown messages.`,
	Example: `  rfmsg replay ~/captures/capture-20250301-120000.jsonl
  rfmsg replay --catalog my-catalog.yaml capture-20250301-120000.cbor`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func runReplay(cmd *cobra.Command, args []string) error {
	reg := loadRegistryQuiet()
	cat, err := loadCatalog(reg)
	if err != nil {
		return err
	}

	records, err := capture.ReadFile(expandHome(args[0]))
	if err != nil && len(records) == 0 {
		return err
	}
	if err != nil {
		logging.Warn("Capture file is truncated", zap.Error(err))
	}

	p := ui.NewPrinter(cmd.OutOrStdout())
	enc := json.NewEncoder(cmd.OutOrStdout())
	for _, rec := range records {
		raw, herr := rec.Message()
		if herr != nil {
			p.Printf("%s %s %s: %s\n", rec.Timestamp.Format(time.RFC3339), ui.FailureMarker, rec.PacketHex, rec.Error)
			continue
		}
		msg, v, derr := cat.Decode(raw.Data())
		if derr != nil {
			return derr
		}
		if decodeJSON {
			if err := enc.Encode(capture.NewRecord(rec.Timestamp, rec.Source, rec.Direction, msg)); err != nil {
				return err
			}
			continue
		}
		name := ""
		if v != nil {
			name = v.Name
		}
		p.Printf("%s %s %s\n", rec.Timestamp.Format(time.RFC3339), rec.Direction, ui.FormatPacketLine(msg, name))
	}
	p.Printf("\n%d record(s)\n", len(records))
	return nil
}

// loadRegistryQuiet is for read-only commands where labels are optional.
func loadRegistryQuiet() *config.Registry {
	reg, _, err := loadRegistry()
	if err != nil {
		logging.Warn("Ignoring unreadable configuration", zap.Error(err))
		return nil
	}
	return reg
}

func pumpLabel(reg *config.Registry, address string) string {
	if reg == nil {
		return ""
	}
	return reg.Label(address)
}
