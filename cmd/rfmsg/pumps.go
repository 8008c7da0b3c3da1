package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pumpkit/rfmsg/internal/message"
	"github.com/pumpkit/rfmsg/internal/ui"
)

func init() {
	rootCmd.AddCommand(pumpsCmd)
	pumpsCmd.AddCommand(pumpsListCmd)
	pumpsCmd.AddCommand(pumpsNameCmd)
	pumpsCmd.AddCommand(pumpsModelCmd)
}

var pumpsCmd = &cobra.Command{
	Use:   "pumps",
	Short: "Manage known pumps",
	Long: `Pumps are remembered by their six-digit radio address whenever a packet
from them is decoded by listen, monitor or serve. Give them nicknames to make
feeds easier to read.`,
}

var pumpsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List known pumps",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, _, err := loadRegistry()
		if err != nil {
			return err
		}

		p := ui.NewPrinter(cmd.OutOrStdout())
		addresses := reg.Addresses()
		if len(addresses) == 0 {
			p.Println("No pumps seen yet. Run 'rfmsg listen' or 'rfmsg serve' first.")
			return nil
		}

		rows := make([][]string, 0, len(addresses))
		for _, addr := range addresses {
			pump := reg.GetPump(addr)
			lastSeen := "-"
			if !pump.LastSeen.IsZero() {
				lastSeen = pump.LastSeen.Local().Format("2006-01-02 15:04:05")
			}
			rows = append(rows, []string{addr, pump.Nickname, pump.Model, lastSeen, pump.LastBridge})
		}
		p.PrintTable([]string{"Address", "Nickname", "Model", "Last seen", "Via"}, rows)
		return nil
	},
}

var pumpsNameCmd = &cobra.Command{
	Use:     "name <address> <nickname>",
	Short:   "Set a pump nickname",
	Example: `  rfmsg pumps name 123456 "Night pump"`,
	Args:    cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, err := normalizeAddress(args[0])
		if err != nil {
			return err
		}
		return updatePump(cmd, addr, "Nickname", strings.Join(args[1:], " "))
	},
}

var pumpsModelCmd = &cobra.Command{
	Use:     "model <address> <model>",
	Short:   "Record a pump model number",
	Example: `  rfmsg pumps model 123456 522`,
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, err := normalizeAddress(args[0])
		if err != nil {
			return err
		}
		return updatePump(cmd, addr, "Model", args[1])
	},
}

func updatePump(cmd *cobra.Command, addr, field, value string) error {
	reg, regPath, err := loadRegistry()
	if err != nil {
		return err
	}
	switch field {
	case "Nickname":
		reg.SetPumpNickname(addr, value)
	case "Model":
		reg.SetPumpModel(addr, value)
	}
	if err := reg.SaveTo(regPath); err != nil {
		return err
	}
	ui.NewPrinter(cmd.OutOrStdout()).PrintSuccess("Pump updated", map[string]string{
		"Address": addr,
		field:     value,
	})
	return nil
}

// normalizeAddress validates a six hex digit address and lower-cases it to
// match the decoder's formatting.
func normalizeAddress(s string) (string, error) {
	b, err := message.ParseAddress(s)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", b[:]), nil
}
