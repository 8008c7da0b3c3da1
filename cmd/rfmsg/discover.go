package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pumpkit/rfmsg/internal/bridge"
	"github.com/pumpkit/rfmsg/internal/discovery"
	"github.com/pumpkit/rfmsg/internal/ui"
)

var (
	discoverTimeout int
	discoverSave    bool
	discoverSerial  bool
)

func init() {
	rootCmd.AddCommand(discoverCmd)

	discoverCmd.Flags().IntVar(&discoverTimeout, "timeout", 0, "Scan timeout in seconds (default: config preference, 5)")
	discoverCmd.Flags().BoolVar(&discoverSave, "save", false, "Store the first bridge found as the default bridge URL")
	discoverCmd.Flags().BoolVar(&discoverSerial, "serial", false, "Also list local serial ports")
}

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Find radio bridges on the network",
	Long: `Browse mDNS for radio bridges advertising ` + discovery.ServiceType + ` and print their
websocket endpoints.`,
	Example: `  # Scan for 5 seconds
  rfmsg discover

  # Remember the bridge so listen and monitor need no --url
  rfmsg discover --save

  # Include USB serial bridges
  rfmsg discover --serial`,
	Args: cobra.NoArgs,
	RunE: runDiscover,
}

func runDiscover(cmd *cobra.Command, args []string) error {
	reg, regPath, err := loadRegistry()
	if err != nil {
		return err
	}

	timeout := discoverTimeout
	if timeout == 0 {
		timeout = reg.Preferences.DiscoverTimeout
	}

	p := ui.NewPrinter(cmd.OutOrStdout())
	p.Printf("Scanning for radio bridges (timeout: %ds)...\n\n", timeout)

	bridges, err := discovery.Scan(cmd.Context(), time.Duration(timeout)*time.Second)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	if len(bridges) == 0 {
		p.PrintError("No bridges found", nil, []string{
			"Ensure the bridge is powered on and joined to this network",
			"mDNS does not cross subnets or most VPNs",
			"Try increasing --timeout",
			"Use --url or --port to connect directly",
		})
	} else {
		rows := make([][]string, 0, len(bridges))
		for _, b := range bridges {
			rows = append(rows, []string{b.Name, b.Hostname, b.WebSocketURL(), b.GetMetadata("fw")})
		}
		p.PrintTable([]string{"Name", "Host", "Endpoint", "Firmware"}, rows)
	}

	if discoverSerial {
		ports, err := bridge.ListPorts()
		if err != nil {
			return err
		}
		p.Newline()
		if len(ports) == 0 {
			p.Println("No serial ports found.")
		}
		for _, port := range ports {
			p.Printf("serial: %s\n", port)
		}
	}

	if discoverSave && len(bridges) > 0 {
		reg.Preferences.BridgeURL = bridges[0].WebSocketURL()
		if err := reg.SaveTo(regPath); err != nil {
			return err
		}
		p.PrintSuccess("Default bridge saved", map[string]string{
			"Bridge": reg.Preferences.BridgeURL,
			"Config": regPath,
		})
	}
	return nil
}
