package message

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// PacketType is the RF framing byte at offset 0 of every message.
// Values outside the closed set are kept as-is; Known reports membership.
type PacketType byte

// Packet types understood by the radio bridge
const (
	PacketTypeSentry   PacketType = 0xa2
	PacketTypeMeter    PacketType = 0xa5
	PacketTypeCarelink PacketType = 0xa7
	PacketTypeSensor   PacketType = 0xa8
)

// MessageType is the pump-protocol command/response byte at offset 4.
type MessageType byte

// Pump message types
const (
	MessageTypeAlert        MessageType = 0x01
	MessageTypeAlertCleared MessageType = 0x02
	MessageTypeDeviceTest   MessageType = 0x03
	MessageTypePumpStatus   MessageType = 0x04
	MessageTypeAck          MessageType = 0x06
	MessageTypePumpBackfill MessageType = 0x08
	MessageTypeFindDevice   MessageType = 0x09
	MessageTypeDeviceLink   MessageType = 0x0a
	MessageTypeButtonPress  MessageType = 0x5b
	MessageTypePower        MessageType = 0x5d
	MessageTypeGetBattery   MessageType = 0x72
	MessageTypeReadHistory  MessageType = 0x80
	MessageTypeGetPumpModel MessageType = 0x8d

	// MessageTypePumpDump shares its byte with DeviceLink; pumps answer a
	// dump request on the same opcode.
	MessageTypePumpDump = MessageTypeDeviceLink
)

var packetTypeNames = map[PacketType]string{
	PacketTypeSentry:   "Sentry",
	PacketTypeMeter:    "Meter",
	PacketTypeCarelink: "Carelink",
	PacketTypeSensor:   "Sensor",
}

var messageTypeNames = map[MessageType]string{
	MessageTypeAlert:        "Alert",
	MessageTypeAlertCleared: "AlertCleared",
	MessageTypeDeviceTest:   "DeviceTest",
	MessageTypePumpStatus:   "PumpStatus",
	MessageTypeAck:          "Ack",
	MessageTypePumpBackfill: "PumpBackfill",
	MessageTypeFindDevice:   "FindDevice",
	MessageTypeDeviceLink:   "DeviceLink",
	MessageTypeButtonPress:  "ButtonPress",
	MessageTypePower:        "Power",
	MessageTypeGetBattery:   "GetBattery",
	MessageTypeReadHistory:  "ReadHistory",
	MessageTypeGetPumpModel: "GetPumpModel",
}

// Reverse lookups, keyed by normalized name. Built once at init.
var (
	packetTypesByName  = make(map[string]PacketType, len(packetTypeNames))
	messageTypesByName = make(map[string]MessageType, len(messageTypeNames)+1)
)

func init() {
	for v, name := range packetTypeNames {
		packetTypesByName[normalizeName(name)] = v
	}
	for v, name := range messageTypeNames {
		messageTypesByName[normalizeName(name)] = v
	}
	messageTypesByName[normalizeName("PumpDump")] = MessageTypePumpDump
}

// Known reports whether p is one of the enumerated packet types
func (p PacketType) Known() bool {
	_, ok := packetTypeNames[p]
	return ok
}

// Name returns the registered name, or "" for unknown values
func (p PacketType) Name() string {
	return packetTypeNames[p]
}

func (p PacketType) String() string {
	if name, ok := packetTypeNames[p]; ok {
		return name
	}
	return fmt.Sprintf("Unknown(0x%02x)", byte(p))
}

// Known reports whether t is one of the enumerated message types
func (t MessageType) Known() bool {
	_, ok := messageTypeNames[t]
	return ok
}

// Name returns the registered name, or "" for unknown values
func (t MessageType) Name() string {
	return messageTypeNames[t]
}

func (t MessageType) String() string {
	if name, ok := messageTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Unknown(0x%02x)", byte(t))
}

// PacketTypes returns the closed set of packet types in byte order.
func PacketTypes() []PacketType {
	out := make([]PacketType, 0, len(packetTypeNames))
	for v := range packetTypeNames {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// MessageTypes returns the closed set of message types in byte order.
func MessageTypes() []MessageType {
	out := make([]MessageType, 0, len(messageTypeNames))
	for v := range messageTypeNames {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ParsePacketType accepts a registered name ("sentry", "Carelink") or a hex
// byte ("0xa2"). Hex values outside the closed set are returned as-is.
func ParsePacketType(s string) (PacketType, error) {
	if b, ok, err := parseHexByte(s); ok {
		if err != nil {
			return 0, fmt.Errorf("invalid packet type %q: %w", s, err)
		}
		return PacketType(b), nil
	}
	if v, ok := packetTypesByName[normalizeName(s)]; ok {
		return v, nil
	}
	return 0, fmt.Errorf("unknown packet type %q", s)
}

// ParseMessageType accepts a registered name ("button_press", "PumpStatus")
// or a hex byte ("0x5b").
func ParseMessageType(s string) (MessageType, error) {
	if b, ok, err := parseHexByte(s); ok {
		if err != nil {
			return 0, fmt.Errorf("invalid message type %q: %w", s, err)
		}
		return MessageType(b), nil
	}
	if v, ok := messageTypesByName[normalizeName(s)]; ok {
		return v, nil
	}
	return 0, fmt.Errorf("unknown message type %q", s)
}

// parseHexByte reports ok=true when s carries a 0x prefix.
func parseHexByte(s string) (byte, bool, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return 0, false, nil
	}
	v, err := strconv.ParseUint(s[2:], 16, 8)
	if err != nil {
		return 0, true, err
	}
	return byte(v), true, nil
}

func normalizeName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer("_", "", "-", "", " ", "").Replace(s)
}
