package formatter

import (
	"encoding/json"

	"github.com/yildizm/trackctl/internal/api"
	"github.com/yildizm/trackctl/internal/panel"
	"github.com/yildizm/trackctl/internal/stream"
)

// jsonFormatter formats output as JSON
type jsonFormatter struct{}

// NewJSON creates a new JSON formatter
func NewJSON() Formatter {
	return &jsonFormatter{}
}

// MatchesOutput wraps the match list with its count
type MatchesOutput struct {
	Count   int         `json:"count"`
	Matches []api.Match `json:"matches"`
}

// EntriesOutput wraps buffered log entries with per-level counts
type EntriesOutput struct {
	Count   int                  `json:"count"`
	Levels  map[stream.Level]int `json:"levels"`
	Entries []stream.Entry       `json:"entries"`
}

func (f *jsonFormatter) FormatSystemInfo(info *api.SystemInfo) ([]byte, error) {
	return json.MarshalIndent(info, "", "  ")
}

func (f *jsonFormatter) FormatCalibration(status *api.CalibrationStatus) ([]byte, error) {
	return json.MarshalIndent(status, "", "  ")
}

func (f *jsonFormatter) FormatMatches(matches []api.Match) ([]byte, error) {
	if matches == nil {
		matches = []api.Match{}
	}
	return json.MarshalIndent(&MatchesOutput{Count: len(matches), Matches: matches}, "", "  ")
}

func (f *jsonFormatter) FormatEntries(entries []stream.Entry) ([]byte, error) {
	out := &EntriesOutput{
		Count:   len(entries),
		Levels:  make(map[stream.Level]int),
		Entries: entries,
	}
	if out.Entries == nil {
		out.Entries = []stream.Entry{}
	}
	for _, e := range entries {
		out.Levels[e.Level]++
	}
	return json.MarshalIndent(out, "", "  ")
}

func (f *jsonFormatter) FormatNotice(n panel.Notice) ([]byte, error) {
	return json.MarshalIndent(n, "", "  ")
}
