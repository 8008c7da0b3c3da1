package ui

import (
	"fmt"
	"strings"

	"github.com/pumpkit/rfmsg/internal/message"
)

// RenderType styles a packet or message type name by whether it is
// registered.
func RenderType(name string, known bool, raw byte) string {
	text := fmt.Sprintf("%s (0x%02x)", name, raw)
	if known {
		return KnownTypeStyle.Render(text)
	}
	return UnknownTypeStyle.Render(text)
}

// RenderMessage renders a decoded message: identity header, hex and, when a
// schema is bound, one row per field in offset order. label replaces the
// bare address when the pump has a nickname.
func RenderMessage(msg *message.Message, label string, width int) string {
	if width < MinTerminalWidth {
		width = MinTerminalWidth
	}

	pt, mt := msg.PacketType(), msg.MessageType()
	address := msg.Address()
	if label != "" && label != address {
		address = fmt.Sprintf("%s (%s)", address, label)
	}

	variant := "-"
	if schema := msg.Schema(); schema != nil {
		variant = schema.Name()
	}

	rows := [][2]string{
		{"Packet type", RenderType(pt.String(), pt.Known(), byte(pt))},
		{"Address", address},
		{"Message type", RenderType(mt.String(), mt.Known(), byte(mt))},
		{"Variant", variant},
		{"Length", fmt.Sprintf("%d bytes", msg.Len())},
		{"Hex", HexStyle.Render(msg.Hex())},
	}

	lines := make([]string, 0, len(rows)+8)
	for _, row := range rows {
		lines = append(lines, ResultKeyStyle.Render(row[0]+":")+" "+ResultValueStyle.Render(row[1]))
	}

	if fieldLines := renderFields(msg); len(fieldLines) > 0 {
		lines = append(lines, "", RenderHorizontalDivider(width-6, "─"))
		lines = append(lines, fieldLines...)
	}

	return PacketBoxStyle(width).Render(strings.Join(lines, "\n"))
}

func renderFields(msg *message.Message) []string {
	schema := msg.Schema()
	if schema == nil {
		return nil
	}

	var lines []string
	for _, name := range schema.Names() {
		f, _ := schema.Lookup(name)
		start := schema.BitsOffset() + f.Offset
		bits := FieldRangeStyle.Render(fmt.Sprintf("bits %d..%d", start, start+f.Width-1))

		v, err := msg.Field(name)
		if err != nil {
			lines = append(lines, FieldNameStyle.Render(name)+" "+ErrorMessageStyle.Render(err.Error()))
			continue
		}
		value := FieldValueStyle.Render(fmt.Sprintf("%d", v))
		lines = append(lines, FieldNameStyle.Render(name)+" "+value+bits)
	}
	return lines
}

// FormatPacketLine is the one-line form used by the listen feed and the
// monitor.
func FormatPacketLine(msg *message.Message, variant string) string {
	if variant == "" {
		variant = "-"
	}
	return fmt.Sprintf("%s %s %s %s %s",
		PacketMarker,
		RenderType(msg.PacketType().String(), msg.PacketType().Known(), byte(msg.PacketType())),
		msg.Address(),
		msg.MessageType(),
		HexStyle.Render(variant),
	)
}
