package stream

import (
	"strings"
	"time"

	"github.com/yildizm/go-logparser"
)

// Level is the display classification of a log line
type Level string

const (
	LevelError   Level = "error"
	LevelWarning Level = "warning"
	LevelDebug   Level = "debug"
	LevelInfo    Level = "info"
)

// Classify maps a message to a level by substring, first match wins.
func Classify(message string) Level {
	switch {
	case strings.Contains(message, "ERROR"):
		return LevelError
	case strings.Contains(message, "WARNING"):
		return LevelWarning
	case strings.Contains(message, "DEBUG"):
		return LevelDebug
	default:
		return LevelInfo
	}
}

// IsAccessLog reports whether message looks like a web server access log
// line for a GET or POST request.
func IsAccessLog(message string) bool {
	if !strings.Contains(message, ` - - [`) {
		return false
	}
	return strings.Contains(message, `"GET `) || strings.Contains(message, `"POST `)
}

// IsBlank reports whether message has no visible content.
func IsBlank(message string) bool {
	return strings.TrimSpace(message) == ""
}

// Entry is a rendered log line held by the display buffer
type Entry struct {
	Seq       uint64    `json:"seq"`
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
	Received  time.Time `json:"received"`
	Timestamp time.Time `json:"timestamp,omitzero"` // zero when the line has no recognisable timestamp
}

// deviceTimeLayout matches the device's "%(asctime)s - LEVEL - text" prefix.
const deviceTimeLayout = "2006-01-02 15:04:05,000"

// NewEntry classifies message and extracts its timestamp when present.
func NewEntry(seq uint64, message string, received time.Time) Entry {
	return Entry{
		Seq:       seq,
		Level:     Classify(message),
		Message:   message,
		Received:  received,
		Timestamp: parseTimestamp(message),
	}
}

func parseTimestamp(message string) time.Time {
	if len(message) >= len(deviceTimeLayout) {
		if ts, err := time.ParseInLocation(deviceTimeLayout, message[:len(deviceTimeLayout)], time.Local); err == nil {
			return ts
		}
	}
	// Other sources on the device (json or RFC3339 prefixed lines)
	if message == "" || !(message[0] == '{' || (message[0] >= '0' && message[0] <= '9')) {
		return time.Time{}
	}
	entries, err := logparser.New().ParseString(message)
	if err != nil || len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Timestamp
}
