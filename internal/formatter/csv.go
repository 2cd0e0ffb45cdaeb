package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/yildizm/trackctl/internal/api"
	"github.com/yildizm/trackctl/internal/panel"
	"github.com/yildizm/trackctl/internal/stream"
)

// csvFormatter formats device data as CSV
type csvFormatter struct{}

// NewCSV creates a new CSV formatter
func NewCSV() Formatter {
	return &csvFormatter{}
}

func writeCSV(headers []string, records [][]string) ([]byte, error) {
	var b bytes.Buffer
	writer := csv.NewWriter(&b)

	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, record := range records {
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return b.Bytes(), nil
}

func (f *csvFormatter) FormatSystemInfo(info *api.SystemInfo) ([]byte, error) {
	return writeCSV([]string{"Field", "Value"}, [][]string{
		{"current_time", info.CurrentTime},
		{"side", strconv.Itoa(info.Side)},
		{"direct_mode", strconv.FormatBool(info.DirectMode)},
		{"debug_mode", strconv.FormatBool(info.DebugMode)},
		{"last_ntp_sync_time", valueOr(info.LastNTPSyncTime, "")},
		{"last_ntp_sync_server", valueOr(info.LastNTPSyncServer, "")},
	})
}

func (f *csvFormatter) FormatCalibration(status *api.CalibrationStatus) ([]byte, error) {
	return writeCSV([]string{"Field", "Value"}, [][]string{
		{"status_text", status.StatusText},
		{"is_calibrating", strconv.FormatBool(status.IsCalibrating)},
		{"noise_threshold", strconv.FormatFloat(status.NoiseThreshold, 'f', 4, 64)},
		{"current_magnitude", strconv.FormatFloat(status.CurrentMagnitude, 'f', 4, 64)},
		{"deadzone_percent", strconv.Itoa(status.DeadzonePercent)},
	})
}

func (f *csvFormatter) FormatMatches(matches []api.Match) ([]byte, error) {
	headers := []string{
		"ID",
		"Side",
		"Start",
		"Finish",
		"Match Time",
		"Created At",
	}

	records := make([][]string, 0, len(matches))
	for _, m := range matches {
		records = append(records, []string{
			strconv.FormatInt(m.ID, 10),
			strconv.Itoa(m.Side),
			m.StartTimeFormatted,
			m.FinishTimeFormatted,
			m.MatchTime,
			m.CreatedAt,
		})
	}
	return writeCSV(headers, records)
}

func (f *csvFormatter) FormatEntries(entries []stream.Entry) ([]byte, error) {
	headers := []string{"Seq", "Received", "Timestamp", "Level", "Message"}

	records := make([][]string, 0, len(entries))
	for _, e := range entries {
		records = append(records, []string{
			strconv.FormatUint(e.Seq, 10),
			formatCSVTime(e.Received),
			formatCSVTime(e.Timestamp),
			string(e.Level),
			flatten(e.Message),
		})
	}
	return writeCSV(headers, records)
}

func (f *csvFormatter) FormatNotice(n panel.Notice) ([]byte, error) {
	return writeCSV([]string{"Kind", "Text", "Follow Up"}, [][]string{
		{string(n.Kind), n.Text, n.FollowUp},
	})
}
