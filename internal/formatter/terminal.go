package formatter

import (
	"fmt"
	"strings"

	"github.com/yildizm/go-termfmt"

	"github.com/yildizm/trackctl/internal/api"
	"github.com/yildizm/trackctl/internal/panel"
	"github.com/yildizm/trackctl/internal/stream"
)

// terminalFormatter formats output as plain text for terminal display using go-termfmt
type terminalFormatter struct {
	opts *termfmt.TerminalOptions
}

// NewTerminal creates a new terminal formatter with optional color support
func NewTerminal(color bool) Formatter {
	opts := termfmt.DefaultOptions()
	opts.Color = color
	opts.Emoji = true
	return &terminalFormatter{opts: opts}
}

func (f *terminalFormatter) FormatSystemInfo(info *api.SystemInfo) ([]byte, error) {
	var b strings.Builder
	writeHeader(&b, "Device Status")

	symbol := termfmt.GetEmoji("statistics", f.opts)
	b.WriteString(symbol + " System\n")

	items := []termfmt.TreeItem{
		{Label: "Current Time", Value: info.CurrentTime},
		{Label: "Side", Value: fmt.Sprintf("%d", info.Side)},
		{Label: "Network Mode", Value: directModeLabel(info.DirectMode)},
		{Label: "Debug Mode", Value: onOff(info.DebugMode)},
		{
			Label: "Last NTP Sync",
			Value: valueOr(info.LastNTPSyncTime, "never"),
			Children: []termfmt.TreeItem{
				{Label: "Server", Value: valueOr(info.LastNTPSyncServer, "N/A"), Last: true},
			},
			Last: true,
		},
	}
	b.WriteString(termfmt.TreeViewWithOptions(items, f.opts) + "\n")
	return []byte(b.String()), nil
}

func (f *terminalFormatter) FormatCalibration(status *api.CalibrationStatus) ([]byte, error) {
	var b strings.Builder

	symbol := termfmt.GetEmoji("insights", f.opts)
	if status.IsCalibrating {
		symbol = termfmt.GetEmoji("warning", f.opts)
	}
	b.WriteString(symbol + " Sensor Calibration\n")

	deadzoneBar := termfmt.CreateConfidenceBar(float64(status.DeadzonePercent)/100, f.opts)
	items := []termfmt.TreeItem{
		{Label: "Status", Value: status.StatusText},
		{Label: "Calibrating", Value: yesNo(status.IsCalibrating)},
		{Label: "Noise Threshold", Value: fmt.Sprintf("%.4f g", status.NoiseThreshold)},
		{Label: "Current Magnitude", Value: fmt.Sprintf("%.4f g", status.CurrentMagnitude)},
		{Label: "Deadzone", Value: fmt.Sprintf("%s %d%%", deadzoneBar, status.DeadzonePercent), Last: true},
	}
	b.WriteString(termfmt.TreeViewWithOptions(items, f.opts) + "\n")
	return []byte(b.String()), nil
}

func (f *terminalFormatter) FormatMatches(matches []api.Match) ([]byte, error) {
	var b strings.Builder

	symbol := termfmt.GetEmoji("statistics", f.opts)
	fmt.Fprintf(&b, "%s Matches (%s)\n", symbol, formatNumber(len(matches)))
	if len(matches) == 0 {
		b.WriteString("No matches recorded\n")
		return []byte(b.String()), nil
	}

	items := make([]termfmt.TreeItem, 0, len(matches))
	for i, m := range matches {
		items = append(items, termfmt.TreeItem{
			Label: fmt.Sprintf("#%d side %d", m.ID, m.Side),
			Value: m.MatchTime + " s",
			Children: []termfmt.TreeItem{
				{Label: "Start", Value: m.StartTimeFormatted},
				{Label: "Finish", Value: m.FinishTimeFormatted, Last: true},
			},
			Last: i == len(matches)-1,
		})
	}
	b.WriteString(termfmt.TreeViewWithOptions(items, f.opts) + "\n")
	return []byte(b.String()), nil
}

func (f *terminalFormatter) FormatEntries(entries []stream.Entry) ([]byte, error) {
	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "%s %s\n", getLevelEmoji(e.Level, f.opts), e.Message)
	}
	return []byte(b.String()), nil
}

func (f *terminalFormatter) FormatNotice(n panel.Notice) ([]byte, error) {
	symbol := termfmt.GetEmoji("info", f.opts)
	if n.Failed() {
		symbol = termfmt.GetEmoji("error", f.opts)
	}
	text := n.Text
	if n.FollowUp != "" {
		text += "\n" + n.FollowUp
	}
	return []byte(symbol + " " + text + "\n"), nil
}

// writeHeader writes a box drawn title
func writeHeader(b *strings.Builder, header string) {
	headerLen := len(header)

	b.WriteString("╔" + strings.Repeat("═", headerLen+2) + "╗\n")
	b.WriteString("║ " + header + " ║\n")
	b.WriteString("╚" + strings.Repeat("═", headerLen+2) + "╝\n\n")
}
