package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pumpkit/rfmsg/internal/bridge"
	"github.com/pumpkit/rfmsg/internal/catalog"
)

// DefaultMonitorRows is how many recent packets the monitor keeps on screen
const DefaultMonitorRows = 20

// PacketMsg delivers a received packet to the monitor
type PacketMsg bridge.Packet

// ListenDoneMsg reports that the bridge loop has ended
type ListenDoneMsg struct {
	Err error
}

// MonitorModel is a live feed of decoded packets.
type MonitorModel struct {
	source  string
	spinner spinner.Model
	rows    int
	packets []bridge.Packet // newest last
	label   func(address string) string

	total   int
	unknown int
	failed  int

	done bool
	err  error
}

// NewMonitorModel creates a monitor for source keeping the last rows
// packets. label may be nil.
func NewMonitorModel(source string, rows int, label func(string) string) MonitorModel {
	if rows <= 0 {
		rows = DefaultMonitorRows
	}
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(PrimaryColor)

	return MonitorModel{
		source:  source,
		spinner: s,
		rows:    rows,
		label:   label,
	}
}

// Init implements tea.Model
func (m MonitorModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update implements tea.Model
func (m MonitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.done = true
			return m, tea.Quit
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case PacketMsg:
		pkt := bridge.Packet(msg)
		m.total++
		switch {
		case pkt.Err != nil:
			m.failed++
		case !pkt.Message.PacketType().Known():
			m.unknown++
		}
		m.packets = append(m.packets, pkt)
		if len(m.packets) > m.rows {
			m.packets = m.packets[len(m.packets)-m.rows:]
		}

	case ListenDoneMsg:
		m.done = true
		m.err = msg.Err
		return m, tea.Quit
	}
	return m, nil
}

// View implements tea.Model
func (m MonitorModel) View() string {
	var b strings.Builder

	status := m.spinner.View()
	if m.done {
		status = SuccessMarker
	}
	b.WriteString(fmt.Sprintf("%s %s %s\n", status,
		HeaderTitleStyle.UnsetPaddingLeft().Render("Monitoring"),
		HeaderParamValueStyle.Render(m.source)))
	b.WriteString(HeaderCommandStyle.UnsetPaddingLeft().Render(fmt.Sprintf(
		"%d packets · %d unknown type · %d undecodable", m.total, m.unknown, m.failed)))
	b.WriteString("\n\n")

	if len(m.packets) == 0 {
		b.WriteString(HexStyle.Render("  waiting for packets..."))
		b.WriteString("\n")
	}
	for _, pkt := range m.packets {
		b.WriteString("  ")
		b.WriteString(HexStyle.Render(pkt.Received.Format("15:04:05.000")))
		b.WriteString(" ")
		b.WriteString(m.packetLine(pkt))
		b.WriteString("\n")
	}

	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(ErrorMessageStyle.Render("  Error: " + m.err.Error()))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(HexStyle.Render("  q to quit"))
	b.WriteString("\n")
	return b.String()
}

func (m MonitorModel) packetLine(pkt bridge.Packet) string {
	if pkt.Err != nil {
		return ErrorMessageStyle.Render(fmt.Sprintf("%s %x: %v", FailureMarker, pkt.Raw, pkt.Err))
	}
	line := FormatPacketLine(pkt.Message, pkt.VariantName())
	if m.label != nil {
		if l := m.label(pkt.Message.Address()); l != "" && l != pkt.Message.Address() {
			line += " " + HeaderParamKeyStyle.Render("("+l+")")
		}
	}
	return line
}

// Err returns the error that ended the bridge loop, if any
func (m MonitorModel) Err() error {
	return m.err
}

// Total returns the number of packets seen
func (m MonitorModel) Total() int {
	return m.total
}

// RunMonitor listens on b and shows the feed until the user quits or the
// bridge closes. handle, when set, sees every packet first (capture,
// registry updates).
func RunMonitor(ctx context.Context, b bridge.Bridge, cat *catalog.Catalog, label func(string) string, handle func(bridge.Packet)) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewMonitorModel(b.String(), DefaultMonitorRows, label), tea.WithContext(ctx))

	go func() {
		err := bridge.Listen(ctx, b, cat, func(pkt bridge.Packet) {
			if handle != nil {
				handle(pkt)
			}
			p.Send(PacketMsg(pkt))
		})
		p.Send(ListenDoneMsg{Err: err})
	}()

	final, err := p.Run()
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("monitor failed: %w", err)
	}
	if m, ok := final.(MonitorModel); ok {
		return m.Err()
	}
	return nil
}
