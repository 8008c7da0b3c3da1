package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pumpkit/rfmsg/internal/message"
	"github.com/pumpkit/rfmsg/internal/ui"
)

func init() {
	rootCmd.AddCommand(typesCmd)
}

var typesCmd = &cobra.Command{
	Use:   "types",
	Short: "List known packet and message types",
	Long: `List the registered packet types (byte 0) and message types (byte 4).

Any other byte value decodes as Unknown(0x..) without error.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		p := ui.NewPrinter(cmd.OutOrStdout())

		var packetRows [][]string
		for _, pt := range message.PacketTypes() {
			packetRows = append(packetRows, []string{fmt.Sprintf("0x%02x", byte(pt)), pt.String()})
		}
		p.Println(ui.HeaderTitleStyle.Render("Packet types"))
		p.PrintTable([]string{"Byte", "Name"}, packetRows)
		p.Newline()

		var messageRows [][]string
		for _, mt := range message.MessageTypes() {
			messageRows = append(messageRows, []string{fmt.Sprintf("0x%02x", byte(mt)), mt.String()})
		}
		p.Println(ui.HeaderTitleStyle.Render("Message types"))
		p.PrintTable([]string{"Byte", "Name"}, messageRows)
	},
}
