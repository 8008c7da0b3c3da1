package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"

	"github.com/pumpkit/rfmsg/internal/basal"
)

// RenderSchedule draws one bar per basal entry, scaled to the highest rate
// in the schedule, followed by the daily total.
func RenderSchedule(s basal.Schedule, width int) string {
	if width < MinTerminalWidth {
		width = MinTerminalWidth
	}

	barWidth := width - 30 // time, rate and padding
	if barWidth < 20 {
		barWidth = 20
	}
	if barWidth > 50 {
		barWidth = 50
	}
	bar := progress.New(
		progress.WithDefaultGradient(),
		progress.WithWidth(barWidth),
		progress.WithoutPercentage(),
	)

	peak := 0.0
	for _, e := range s.Entries {
		if e.Rate > peak {
			peak = e.Rate
		}
	}

	lines := make([]string, 0, len(s.Entries)+2)
	for _, e := range s.Entries {
		ratio := 0.0
		if peak > 0 {
			ratio = e.Rate / peak
		}
		start := fmt.Sprintf("%02d:%02d", int(e.Start.Hours()), int(e.Start.Minutes())%60)
		lines = append(lines, fmt.Sprintf("  %s  %s  %s",
			HeaderParamValueStyle.Render(start),
			bar.ViewAs(ratio),
			FieldValueStyle.Render(fmt.Sprintf("%.3f U/h", e.Rate)),
		))
	}
	lines = append(lines, "", ResultKeyStyle.Render("  Daily total:")+" "+
		ResultValueStyle.Render(fmt.Sprintf("%.3f U", s.Total())))

	return strings.Join(lines, "\n")
}
