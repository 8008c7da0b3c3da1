// Package ui provides terminal output for the rfmsg CLI.
//
// Output is styled with Lipgloss. One-shot commands (decode, encode,
// catalog, basal) print through a Printer:
//
//   - Header: command banner with the operation name and parameters
//   - RenderMessage: decoded packet report with identity and field rows
//   - RenderSchedule: basal schedule chart built on bubbles/progress bars
//   - Result boxes: success or failure with troubleshooting tips
//
// The monitor command runs a Bubble Tea program (MonitorModel) fed by
// bridge.Listen, with a spinner while waiting and a rolling list of recent
// packets. ConfirmTransmit guards every over-the-air send.
//
// Example:
//
//	p := ui.NewPrinter(os.Stdout)
//	p.PrintHeader("Decode", "rfmsg decode", map[string]string{"Catalog": "built-in"})
//	p.PrintMessage(msg, "")
package ui
