package ui

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ConfirmPhrase must be typed to approve a transmission
const ConfirmPhrase = "SEND"

// ConfirmTransmit shows the packet about to be sent over the air and asks
// the user to type SEND. Anything else, including EOF, declines.
func ConfirmTransmit(in io.Reader, out io.Writer, target, packetHex string) bool {
	width := GetTerminalWidth()

	lines := []string{
		"",
		lipgloss.NewStyle().
			Foreground(WarningColor).
			Bold(true).
			Render(fmt.Sprintf("   %s  WARNING  ─  RADIO TRANSMISSION", WarningMarker)),
		"",
		lipgloss.NewStyle().Foreground(TextColor).Render("   • Bridge: " + target),
		lipgloss.NewStyle().Foreground(TextColor).Render("   • Packet: " + packetHex),
		"",
		lipgloss.NewStyle().
			Foreground(MutedColor).
			Italic(true).
			Width(width - 12).
			PaddingLeft(3).
			Render("A pump in range will act on this packet. Only transmit to devices you own " +
				"and never to a pump attached to a person."),
		"",
	}

	_, _ = fmt.Fprintln(out, WarningBoxStyle(width).Render(strings.Join(lines, "\n")))
	_, _ = fmt.Fprintln(out)

	promptStyle := lipgloss.NewStyle().
		Foreground(WarningColor).
		Bold(true)
	_, _ = fmt.Fprint(out, promptStyle.Render(fmt.Sprintf("To proceed, type %q and press Enter: ", ConfirmPhrase)))

	input, err := bufio.NewReader(in).ReadString('\n')
	_, _ = fmt.Fprintln(out)
	if err != nil && input == "" {
		return false
	}

	if strings.TrimSpace(input) == ConfirmPhrase {
		return true
	}

	_, _ = fmt.Fprintln(out, lipgloss.NewStyle().Foreground(MutedColor).Render("  Transmission cancelled."))
	return false
}
