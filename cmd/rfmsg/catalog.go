package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/pumpkit/rfmsg/internal/catalog"
	"github.com/pumpkit/rfmsg/internal/message"
	"github.com/pumpkit/rfmsg/internal/ui"
)

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.AddCommand(catalogListCmd)
	catalogCmd.AddCommand(catalogShowCmd)
	catalogCmd.AddCommand(catalogCheckCmd)
}

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect the message catalog",
	Long: `Inspect the message catalog that maps packet and message types to field
layouts. The catalog comes from --catalog, the catalog_path preference, or
the built-in starter catalog, in that order.`,
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalog variants",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := loadCatalog(loadRegistryQuiet())
		if err != nil {
			return err
		}

		rows := make([][]string, 0, cat.Len())
		for _, v := range cat.Variants() {
			rows = append(rows, []string{
				v.Name,
				packetTypeLabel(v),
				v.MessageType.String(),
				strconv.Itoa(v.Length),
				strconv.Itoa(v.Schema.Len()),
			})
		}

		p := ui.NewPrinter(cmd.OutOrStdout())
		p.PrintTable([]string{"Variant", "Packet type", "Message type", "Bytes", "Fields"}, rows)
		p.Printf("%d variant(s) from %s\n", cat.Len(), cat.Source())
		return nil
	},
}

var catalogShowCmd = &cobra.Command{
	Use:   "show <variant>",
	Short: "Show the field layout of one variant",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := loadCatalog(loadRegistryQuiet())
		if err != nil {
			return err
		}
		v, ok := cat.Lookup(args[0])
		if !ok {
			return fmt.Errorf("%w: %q (see 'rfmsg catalog list')", catalog.ErrUnknownVariant, args[0])
		}

		p := ui.NewPrinter(cmd.OutOrStdout())
		p.PrintHeader(v.Name, v.Description, map[string]string{
			"Packet type":  packetTypeLabel(v),
			"Message type": fmt.Sprintf("%s (0x%02x)", v.MessageType, byte(v.MessageType)),
			"Length":       fmt.Sprintf("%d bytes", v.Length),
			"Bits offset":  strconv.Itoa(v.Schema.BitsOffset()),
		})

		rows := make([][]string, 0, v.Schema.Len())
		for _, name := range v.Schema.Names() {
			f, _ := v.Schema.Lookup(name)
			start := v.Schema.BitsOffset() + f.Offset
			rows = append(rows, []string{
				name,
				strconv.Itoa(f.Offset),
				strconv.Itoa(f.Width),
				fmt.Sprintf("%d..%d", start, start+f.Width-1),
				strconv.FormatUint(maxValue(f.Width), 10),
			})
		}
		p.PrintTable([]string{"Field", "Offset", "Width", "Absolute bits", "Max"}, rows)
		return nil
	},
}

var catalogCheckCmd = &cobra.Command{
	Use:   "check <file>",
	Short: "Validate a catalog file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := catalog.Load(expandHome(args[0]))
		p := ui.NewPrinter(cmd.OutOrStdout())
		if err != nil {
			p.PrintError("Catalog invalid", err, []string{
				"Field widths must be 1..64 and offsets non-negative",
				"Each packet type and message type pair may appear once",
				"Type names come from 'rfmsg types' or may be hex like 0x5d",
			})
			return err
		}
		p.PrintSuccess("Catalog valid", map[string]string{
			"File":     cat.Source(),
			"Variants": strconv.Itoa(cat.Len()),
		})
		return nil
	},
}

func packetTypeLabel(v *catalog.Variant) string {
	if v.AnyPacketType() {
		return "any"
	}
	return v.PacketType.String()
}

func maxValue(width int) uint64 {
	if width >= message.MaxFieldWidth {
		return ^uint64(0)
	}
	return 1<<uint(width) - 1
}
