package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pumpkit/rfmsg/internal/capture"
	"github.com/pumpkit/rfmsg/internal/catalog"
	"github.com/pumpkit/rfmsg/internal/message"
	"github.com/pumpkit/rfmsg/internal/ui"
)

var (
	encodeAddress    string
	encodePacketType string
	encodeSet        []string
	encodeSend       bool
	encodeYes        bool
)

func init() {
	rootCmd.AddCommand(encodeCmd)

	encodeCmd.Flags().StringVarP(&encodeAddress, "address", "a", "", "Six hex digit device address (required)")
	encodeCmd.Flags().StringVar(&encodePacketType, "packet-type", "", "Packet type name or hex byte (required for variants without one)")
	encodeCmd.Flags().StringArrayVarP(&encodeSet, "set", "s", nil, "Field assignment name=value (repeatable, value may be 0x hex)")
	encodeCmd.Flags().BoolVar(&encodeSend, "send", false, "Transmit the packet through a bridge")
	encodeCmd.Flags().BoolVarP(&encodeYes, "yes", "y", false, "Skip the transmission confirmation prompt")
	addBridgeFlags(encodeCmd.Flags())
	_ = encodeCmd.MarkFlagRequired("address")
}

var encodeCmd = &cobra.Command{
	Use:   "encode <variant>",
	Short: "Build an outbound packet",
	Long: `Build a packet for a catalog variant.

The buffer is sized from the variant, the identity header is written from
the variant's packet and message types and the given address, then each
--set assignment is stored in its field. Fields not assigned stay zero. A
value that does not fit its field is an error and nothing is produced.

With --send the packet is transmitted through a bridge after confirmation.`,
	Example: `  # Build a power-on command for ten minutes
  rfmsg encode power -a 123456 -s on=1 -s minutes=10

  # Catalog variants without a fixed packet type need one
  rfmsg --catalog my-catalog.yaml encode generic_ack -a 0a0b0c --packet-type Sentry

  # Build and transmit
  rfmsg encode button_press -a 123456 -s button=4 --send --url ws://rfbridge.local:8080/packets`,
	Args: cobra.ExactArgs(1),
	RunE: runEncode,
}

func runEncode(cmd *cobra.Command, args []string) error {
	reg := loadRegistryQuiet()
	cat, err := loadCatalog(reg)
	if err != nil {
		return err
	}

	values, err := parseAssignments(encodeSet)
	if err != nil {
		return err
	}

	msg, err := buildPacket(cat, args[0], encodeAddress, encodePacketType, values)
	if err != nil {
		return err
	}

	p := ui.NewPrinter(cmd.OutOrStdout())
	p.PrintMessage(msg, pumpLabel(reg, msg.Address()))

	if !encodeSend {
		p.Println(msg.Hex())
		return nil
	}
	return sendPacket(cmd, p, msg)
}

// buildPacket resolves the variant and packet type and builds the message.
func buildPacket(cat *catalog.Catalog, name, address, packetType string, values map[string]uint64) (*message.Message, error) {
	v, ok := cat.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q (see 'rfmsg catalog list')", catalog.ErrUnknownVariant, name)
	}

	pt := v.PacketType
	if packetType != "" {
		parsed, err := message.ParsePacketType(packetType)
		if err != nil {
			return nil, err
		}
		if !v.AnyPacketType() && parsed != v.PacketType {
			return nil, fmt.Errorf("variant %q is framed as %s, not %s", v.Name, v.PacketType, parsed)
		}
		pt = parsed
	}
	if pt == 0 {
		return nil, fmt.Errorf("%w: %q (use --packet-type)", catalog.ErrNoPacketType, v.Name)
	}

	return v.Build(pt, address, values)
}

func sendPacket(cmd *cobra.Command, p *ui.Printer, msg *message.Message) error {
	reg, regPath, err := loadRegistry()
	if err != nil {
		return err
	}
	target, err := bridgeTarget(reg)
	if err != nil {
		return err
	}

	if !encodeYes && !ui.ConfirmTransmit(os.Stdin, cmd.OutOrStdout(), target, msg.Hex()) {
		return errors.New("transmission cancelled")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	b, err := openBridge(ctx, reg)
	if err != nil {
		return err
	}
	defer b.Close()

	if err := b.Send(ctx, msg.Data()); err != nil {
		p.PrintError("Transmission failed", err, []string{
			"Check that the bridge is powered and reachable",
			"Run with --log-level debug to see the bridge traffic",
		})
		return err
	}

	w, err := openCapture(reg)
	if err != nil {
		return err
	}
	if w != nil {
		defer w.Close()
		if err := w.Write(capture.NewRecord(time.Now(), b.String(), capture.DirectionTX, msg)); err != nil {
			return err
		}
	}
	saveRegistry(reg, regPath)

	p.PrintSuccess("Packet sent", map[string]string{
		"Bridge": b.String(),
		"Bytes":  fmt.Sprintf("%d", msg.Len()),
	})
	return nil
}
