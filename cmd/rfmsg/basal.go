package main

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pumpkit/rfmsg/internal/basal"
	"github.com/pumpkit/rfmsg/internal/ui"
)

func init() {
	rootCmd.AddCommand(basalCmd)
	basalCmd.AddCommand(basalDecodeCmd)
	basalCmd.AddCommand(basalEncodeCmd)
}

var basalCmd = &cobra.Command{
	Use:   "basal",
	Short: "Decode and encode raw basal schedules",
	Long: `Work with the pump's raw basal schedule block: 192 bytes of 3-byte
entries, each a little-endian rate in 1/40 U/h and a start time in 30-minute
slots after midnight.`,
}

var basalDecodeCmd = &cobra.Command{
	Use:     "decode <hex>...",
	Short:   "Decode a raw schedule",
	Example: `  rfmsg basal decode 280000 3c000c 280024`,
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := hex.DecodeString(strings.Join(strings.Fields(strings.Join(args, "")), ""))
		if err != nil {
			return fmt.Errorf("invalid hex: %w", err)
		}
		s, err := basal.Decode(raw)
		if err != nil {
			return err
		}
		ui.NewPrinter(cmd.OutOrStdout()).PrintSchedule(s)
		return nil
	},
}

var basalEncodeCmd = &cobra.Command{
	Use:   "encode <HH:MM=rate>...",
	Short: "Encode a schedule to raw hex",
	Long: `Encode entries given as start=rate pairs. Start times are rounded down to
30-minute slots and rates to 1/40 U/h. The first entry should start at 00:00.`,
	Example: `  rfmsg basal encode 00:00=1.0 06:00=1.5 18:00=1.0`,
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := parseBasalEntries(args)
		if err != nil {
			return err
		}
		raw, err := s.Encode()
		if err != nil {
			return err
		}
		p := ui.NewPrinter(cmd.OutOrStdout())
		p.PrintSchedule(s)
		p.Newline()
		p.Println(hex.EncodeToString(raw))
		return nil
	},
}

// parseBasalEntries parses "HH:MM=rate" pairs in order.
func parseBasalEntries(args []string) (basal.Schedule, error) {
	var s basal.Schedule
	for i, arg := range args {
		clock, rateText, ok := strings.Cut(arg, "=")
		if !ok {
			return basal.Schedule{}, fmt.Errorf("invalid entry %q (want HH:MM=rate)", arg)
		}
		t, err := time.Parse("15:04", strings.TrimSpace(clock))
		if err != nil {
			return basal.Schedule{}, fmt.Errorf("invalid start time in %q: %w", arg, err)
		}
		rate, err := strconv.ParseFloat(strings.TrimSpace(rateText), 64)
		if err != nil || rate < 0 {
			return basal.Schedule{}, fmt.Errorf("invalid rate in %q", arg)
		}
		start := time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute
		if n := len(s.Entries); n > 0 && s.Entries[n-1].Start >= start {
			return basal.Schedule{}, fmt.Errorf("entry %q does not start after the previous one", arg)
		}
		s.Entries = append(s.Entries, basal.Entry{Index: i, Start: start, Rate: rate})
	}
	return s, nil
}
