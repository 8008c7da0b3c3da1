package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/pumpkit/rfmsg/internal/bridge"
	"github.com/pumpkit/rfmsg/internal/capture"
	"github.com/pumpkit/rfmsg/internal/catalog"
	"github.com/pumpkit/rfmsg/internal/config"
	"github.com/pumpkit/rfmsg/internal/logging"
)

// Bridge connection flags shared by listen, monitor and encode --send
var (
	bridgeURL     string
	serialPort    string
	baudRate      int
	bridgeUser    string
	skipTLSVerify bool
)

// Capture flags shared by listen, monitor and serve
var (
	captureDir    string
	captureFormat string
)

// loadRegistry returns the configuration registry and the path it saves to.
func loadRegistry() (*config.Registry, string, error) {
	if configPath != "" {
		reg, err := config.LoadRegistryFrom(configPath)
		return reg, configPath, err
	}
	path, err := config.GetConfigPath()
	if err != nil {
		return nil, "", err
	}
	reg, err := config.LoadRegistry()
	return reg, path, err
}

// loadCatalog resolves --catalog, then the config preference, then the
// built-in catalog.
func loadCatalog(reg *config.Registry) (*catalog.Catalog, error) {
	path := catalogPath
	if path == "" && reg != nil && reg.Preferences != nil {
		path = reg.Preferences.CatalogPath
	}
	cat, err := catalog.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	return cat, nil
}

// bridgeTarget picks the bridge from flags, falling back to preferences.
func bridgeTarget(reg *config.Registry) (string, error) {
	switch {
	case bridgeURL != "" && serialPort != "":
		return "", fmt.Errorf("use either --url or --port, not both")
	case bridgeURL != "":
		return bridgeURL, nil
	case serialPort != "":
		return serialPort, nil
	}
	if reg != nil && reg.Preferences != nil {
		if reg.Preferences.BridgeURL != "" {
			return reg.Preferences.BridgeURL, nil
		}
		if reg.Preferences.SerialPort != "" {
			return reg.Preferences.SerialPort, nil
		}
	}
	return "", fmt.Errorf("no bridge specified (use --url, --port or 'rfmsg discover')")
}

func openBridge(ctx context.Context, reg *config.Registry) (bridge.Bridge, error) {
	target, err := bridgeTarget(reg)
	if err != nil {
		return nil, err
	}

	opts := bridge.Options{
		Username:      bridgeUser,
		SkipTLSVerify: skipTLSVerify,
		BaudRate:      baudRate,
	}
	if opts.BaudRate == 0 && reg != nil && reg.Preferences != nil {
		opts.BaudRate = reg.Preferences.SerialBaud
	}
	if bridgeUser != "" {
		opts.Password, err = bridge.GetPassword()
		if err != nil {
			return nil, err
		}
	}

	return bridge.Open(ctx, target, opts)
}

func addBridgeFlags(flags *pflag.FlagSet) {
	flags.StringVar(&bridgeURL, "url", "", "Websocket bridge URL (ws:// or wss://)")
	flags.StringVar(&serialPort, "port", "", "Serial bridge device (e.g. /dev/ttyUSB0)")
	flags.IntVar(&baudRate, "baud", 0, "Serial baud rate (default: config preference, 115200)")
	flags.StringVar(&bridgeUser, "user", "", "Bridge username for HTTP Basic auth (password from "+bridge.PasswordEnvVar+" or prompt)")
	flags.BoolVar(&skipTLSVerify, "skip-tls-verify", false, "Skip TLS certificate verification for wss:// bridges")
}

func addCaptureFlags(flags *pflag.FlagSet) {
	flags.StringVar(&captureDir, "capture-dir", "", "Write every packet to a capture file in this directory")
	flags.StringVar(&captureFormat, "capture-format", "", "Capture format: jsonl or cbor (default: config preference)")
}

// openCapture returns nil when capturing is disabled.
func openCapture(reg *config.Registry) (*capture.Writer, error) {
	dir, format := captureDir, captureFormat
	if reg != nil && reg.Preferences != nil {
		if dir == "" {
			dir = reg.Preferences.CaptureDir
		}
		if format == "" {
			format = reg.Preferences.CaptureFormat
		}
	}
	if dir == "" {
		return nil, nil
	}

	f, err := capture.ParseFormat(format)
	if err != nil {
		return nil, err
	}
	return capture.Create(expandHome(dir), f, time.Now())
}

// recordPacket is the packet handler shared by listen and monitor.
func recordPacket(w *capture.Writer, reg *config.Registry) func(bridge.Packet) {
	return func(pkt bridge.Packet) {
		if w != nil {
			if err := w.Write(pkt.Record()); err != nil {
				logging.Error("Failed to write capture record", zap.Error(err))
			}
		}
		if reg != nil && pkt.Message != nil && pkt.Message.PacketType().Known() {
			reg.UpdatePumpLastSeen(pkt.Message.Address(), pkt.Source, pkt.Received)
		}
	}
}

func saveRegistry(reg *config.Registry, path string) {
	if reg == nil || path == "" {
		return
	}
	if err := reg.SaveTo(path); err != nil {
		logging.Warn("Failed to save configuration", zap.String("path", path), zap.Error(err))
	}
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}

// parseAssignments turns ["rate=40", "flag=0x1"] into a value map.
func parseAssignments(pairs []string) (map[string]uint64, error) {
	values := make(map[string]uint64, len(pairs))
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid field assignment %q (want name=value)", pair)
		}
		v, err := strconv.ParseUint(strings.TrimSpace(raw), 0, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid value for field %q: %w", key, err)
		}
		if _, dup := values[key]; dup {
			return nil, fmt.Errorf("field %q assigned twice", key)
		}
		values[key] = v
	}
	return values, nil
}
