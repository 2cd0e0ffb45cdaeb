package formatter

import (
	"fmt"
	"strings"
	"time"

	"github.com/yildizm/go-termfmt"

	"github.com/yildizm/trackctl/internal/stream"
)

// formatNumber formats numbers with commas for readability
func formatNumber(n int) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	return addCommas(fmt.Sprintf("%d", n))
}

// addCommas adds commas to number strings
func addCommas(s string) string {
	if len(s) <= 3 {
		return s
	}
	return addCommas(s[:len(s)-3]) + "," + s[len(s)-3:]
}

// getLevelEmoji returns the symbol for a log level using go-termfmt
func getLevelEmoji(level stream.Level, opts *termfmt.TerminalOptions) string {
	switch level {
	case stream.LevelError:
		return termfmt.GetEmoji("error", opts)
	case stream.LevelWarning:
		return termfmt.GetEmoji("warning", opts)
	case stream.LevelDebug:
		return termfmt.GetEmoji("insight", opts)
	default:
		return termfmt.GetEmoji("info", opts)
	}
}

func directModeLabel(direct bool) string {
	if direct {
		return "DIRECT"
	}
	return "PROXY"
}

func onOff(v bool) string {
	if v {
		return "ON"
	}
	return "OFF"
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func valueOr(s *string, fallback string) string {
	if s == nil || *s == "" {
		return fallback
	}
	return *s
}

// formatCSVTime formats time for CSV output
func formatCSVTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02 15:04:05.000")
}

// flatten keeps multi-line values on one row or table cell
func flatten(s string) string {
	s = strings.ReplaceAll(s, "\r", " ")
	return strings.ReplaceAll(s, "\n", " ")
}
