package formatter

import (
	"fmt"

	"github.com/yildizm/trackctl/internal/api"
	"github.com/yildizm/trackctl/internal/panel"
	"github.com/yildizm/trackctl/internal/stream"
)

// Formatter renders device data for output
type Formatter interface {
	FormatSystemInfo(info *api.SystemInfo) ([]byte, error)
	FormatCalibration(status *api.CalibrationStatus) ([]byte, error)
	FormatMatches(matches []api.Match) ([]byte, error)
	FormatEntries(entries []stream.Entry) ([]byte, error)
	FormatNotice(notice panel.Notice) ([]byte, error)
}

// Supported output formats
const (
	FormatText     = "text"
	FormatJSON     = "json"
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
)

// New returns the formatter for format. color only affects text output.
func New(format string, color bool) (Formatter, error) {
	switch format {
	case FormatText, "":
		return NewTerminal(color), nil
	case FormatJSON:
		return NewJSON(), nil
	case FormatCSV:
		return NewCSV(), nil
	case FormatMarkdown:
		return NewMarkdown(), nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s (must be one of: text, json, csv, markdown)", format)
	}
}
