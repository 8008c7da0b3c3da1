package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pumpkit/rfmsg/internal/capture"
	"github.com/pumpkit/rfmsg/internal/catalog"
	"github.com/pumpkit/rfmsg/internal/config"
	"github.com/pumpkit/rfmsg/internal/message"
)

// execute runs the root command with a private config file.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	decodeJSON, decodeVariant = false, ""
	bridgeURL, serialPort = "", ""

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "config.yaml")}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestParseAssignments(t *testing.T) {
	got, err := parseAssignments([]string{"on=1", "minutes=0x0a", " button = 4 "})
	require.NoError(t, err)
	assert.Equal(t, map[string]uint64{"on": 1, "minutes": 10, "button": 4}, got)

	for _, bad := range [][]string{{"on"}, {"=1"}, {"on=x"}, {"on=-1"}, {"on=1", "on=0"}} {
		_, err := parseAssignments(bad)
		assert.Error(t, err, "%v", bad)
	}
}

func TestParseBasalEntries(t *testing.T) {
	s, err := parseBasalEntries([]string{"00:00=1.0", "06:30=1.25"})
	require.NoError(t, err)
	require.Len(t, s.Entries, 2)
	assert.Equal(t, 6*time.Hour+30*time.Minute, s.Entries[1].Start)
	assert.Equal(t, 1.25, s.Entries[1].Rate)

	for _, bad := range [][]string{{"00:00"}, {"25:00=1"}, {"00:00=abc"}, {"00:00=-1"}, {"06:00=1", "05:00=1"}} {
		_, err := parseBasalEntries(bad)
		assert.Error(t, err, "%v", bad)
	}
}

func TestNormalizeAddress(t *testing.T) {
	got, err := normalizeAddress("1A2B3C")
	require.NoError(t, err)
	assert.Equal(t, "1a2b3c", got)

	_, err = normalizeAddress("12345")
	assert.ErrorIs(t, err, message.ErrInvalidAddress)
}

func TestBuildPacket(t *testing.T) {
	cat := catalog.Default()

	msg, err := buildPacket(cat, "power", "123456", "", map[string]uint64{"on": 1, "minutes": 10})
	require.NoError(t, err)
	assert.Equal(t, message.PacketTypeCarelink, msg.PacketType())
	minutes, err := msg.Field("minutes")
	require.NoError(t, err)
	assert.Equal(t, uint64(10), minutes)

	_, err = buildPacket(cat, "nope", "123456", "", nil)
	assert.ErrorIs(t, err, catalog.ErrUnknownVariant)

	_, err = buildPacket(cat, "power", "123456", "Sentry", nil)
	assert.Error(t, err, "fixed packet type cannot be overridden")

	_, err = buildPacket(cat, "power", "123456", "", map[string]uint64{"on": 2})
	assert.ErrorIs(t, err, message.ErrValueTooLarge)
}

func TestBridgeTarget(t *testing.T) {
	defer func() { bridgeURL, serialPort = "", "" }()

	reg := config.NewRegistry()
	_, err := bridgeTarget(reg)
	assert.Error(t, err)

	reg.Preferences.SerialPort = "/dev/ttyUSB0"
	got, err := bridgeTarget(reg)
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyUSB0", got)

	bridgeURL = "ws://rfbridge.local:8080/packets"
	got, err = bridgeTarget(reg)
	require.NoError(t, err)
	assert.Equal(t, bridgeURL, got)

	serialPort = "/dev/ttyACM0"
	_, err = bridgeTarget(reg)
	assert.Error(t, err)
}

func TestMaxValue(t *testing.T) {
	assert.Equal(t, uint64(1), maxValue(1))
	assert.Equal(t, uint64(255), maxValue(8))
	assert.Equal(t, ^uint64(0), maxValue(64))
}

func TestDecodeCommand(t *testing.T) {
	out, err := execute(t, "decode", "a71234565b0400")
	require.NoError(t, err)
	assert.Contains(t, out, "button_press")
	assert.Contains(t, out, "Carelink")

	out, err = execute(t, "decode", "--json", "99000001 77")
	require.NoError(t, err)
	var rec capture.Record
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(out)), &rec))
	assert.Equal(t, "Unknown(0x99)", rec.PacketType)
	assert.Empty(t, rec.Variant)

	_, err = execute(t, "decode", "a701")
	assert.ErrorIs(t, err, message.ErrInvalidBuffer)
}

func TestEncodeCommand(t *testing.T) {
	encodeSet, encodeSend = nil, false
	out, err := execute(t, "encode", "button_press", "-a", "123456", "-s", "button=4")
	require.NoError(t, err)
	assert.Contains(t, out, "a71234565b0400")
}

func TestBasalCommands(t *testing.T) {
	out, err := execute(t, "basal", "encode", "00:00=1.0", "06:00=1.5")
	require.NoError(t, err)
	assert.Contains(t, out, "2800003c000c")

	out, err = execute(t, "basal", "decode", "280000", "3c000c")
	require.NoError(t, err)
	assert.Contains(t, out, "06:00")
	assert.Contains(t, out, "1.500 U/h")
}

func TestTypesAndCatalogCommands(t *testing.T) {
	out, err := execute(t, "types")
	require.NoError(t, err)
	assert.Contains(t, out, "Sentry")
	assert.Contains(t, out, "0xa2")

	out, err = execute(t, "catalog", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "pump_status")

	out, err = execute(t, "catalog", "show", "power")
	require.NoError(t, err)
	assert.Contains(t, out, "minutes")
	assert.Contains(t, out, "48..55")

	_, err = execute(t, "catalog", "show", "nope")
	assert.ErrorIs(t, err, catalog.ErrUnknownVariant)
}

func TestPumpsCommands(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "config.yaml")

	rootCmd.SetArgs([]string{"--config", cfg, "pumps", "name", "1A2B3C", "Night", "pump"})
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	require.NoError(t, rootCmd.Execute())

	reg, err := config.LoadRegistryFrom(cfg)
	require.NoError(t, err)
	assert.Equal(t, "Night pump", reg.Label("1a2b3c"))

	out.Reset()
	rootCmd.SetArgs([]string{"--config", cfg, "pumps", "list"})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "Night pump")
}

func TestReplayCommand(t *testing.T) {
	dir := t.TempDir()
	w, err := capture.Create(dir, capture.FormatJSONL, time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	msg, err := message.FromHex("a71234565b0400", nil)
	require.NoError(t, err)
	require.NoError(t, w.Write(capture.NewRecord(time.Now(), "serial:test", capture.DirectionRX, msg)))
	require.NoError(t, w.Close())

	out, err := execute(t, "replay", w.Path())
	require.NoError(t, err)
	assert.Contains(t, out, "button_press", "replay re-matches against the catalog")
	assert.Contains(t, out, "1 record(s)")
}

func TestFormatFields(t *testing.T) {
	got := formatFields([]string{"on", "minutes"}, map[string]uint64{"on": 1, "minutes": 10})
	assert.Equal(t, "on=1 minutes=10", got)
}
