package formatter

import (
	"fmt"
	"strings"

	"github.com/yildizm/trackctl/internal/api"
	"github.com/yildizm/trackctl/internal/panel"
	"github.com/yildizm/trackctl/internal/stream"
)

// markdownFormatter formats output as Markdown tables, for pasting into
// reports and issues
type markdownFormatter struct{}

// NewMarkdown creates a new Markdown formatter
func NewMarkdown() Formatter {
	return &markdownFormatter{}
}

func (f *markdownFormatter) FormatSystemInfo(info *api.SystemInfo) ([]byte, error) {
	var b strings.Builder
	b.WriteString("## Device Status\n\n")
	writeFieldTable(&b, [][2]string{
		{"Current Time", info.CurrentTime},
		{"Side", fmt.Sprintf("%d", info.Side)},
		{"Network Mode", directModeLabel(info.DirectMode)},
		{"Debug Mode", onOff(info.DebugMode)},
		{"Last NTP Sync", valueOr(info.LastNTPSyncTime, "never")},
		{"Last NTP Server", valueOr(info.LastNTPSyncServer, "N/A")},
	})
	return []byte(b.String()), nil
}

func (f *markdownFormatter) FormatCalibration(status *api.CalibrationStatus) ([]byte, error) {
	var b strings.Builder
	b.WriteString("## Sensor Calibration\n\n")
	writeFieldTable(&b, [][2]string{
		{"Status", status.StatusText},
		{"Calibrating", yesNo(status.IsCalibrating)},
		{"Noise Threshold", fmt.Sprintf("%.4f g", status.NoiseThreshold)},
		{"Current Magnitude", fmt.Sprintf("%.4f g", status.CurrentMagnitude)},
		{"Deadzone", fmt.Sprintf("%d%%", status.DeadzonePercent)},
	})
	return []byte(b.String()), nil
}

func (f *markdownFormatter) FormatMatches(matches []api.Match) ([]byte, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "## Matches (%s)\n\n", formatNumber(len(matches)))
	if len(matches) == 0 {
		b.WriteString("No matches recorded.\n")
		return []byte(b.String()), nil
	}

	b.WriteString("| ID | Side | Start | Finish | Time (s) |\n")
	b.WriteString("|----|------|-------|--------|----------|\n")
	for _, m := range matches {
		fmt.Fprintf(&b, "| %d | %d | %s | %s | %s |\n",
			m.ID, m.Side, m.StartTimeFormatted, m.FinishTimeFormatted, m.MatchTime)
	}
	return []byte(b.String()), nil
}

func (f *markdownFormatter) FormatEntries(entries []stream.Entry) ([]byte, error) {
	var b strings.Builder
	b.WriteString("## Device Log\n\n```\n")
	for _, e := range entries {
		b.WriteString(flatten(e.Message) + "\n")
	}
	b.WriteString("```\n")
	return []byte(b.String()), nil
}

func (f *markdownFormatter) FormatNotice(n panel.Notice) ([]byte, error) {
	prefix := "**OK**"
	if n.Failed() {
		prefix = "**Error**"
	}
	return []byte(fmt.Sprintf("%s: %s\n", prefix, n.Text)), nil
}

func writeFieldTable(b *strings.Builder, rows [][2]string) {
	b.WriteString("| Field | Value |\n")
	b.WriteString("|-------|-------|\n")
	for _, row := range rows {
		fmt.Fprintf(b, "| %s | %s |\n", row[0], escapePipes(row[1]))
	}
}

func escapePipes(s string) string {
	return strings.ReplaceAll(flatten(s), "|", `\|`)
}
