package stream

import (
	"bufio"
	"bytes"
	"io"
	"strconv"
	"strings"
	"time"
)

// maxLineSize bounds a single SSE line.
const maxLineSize = 1 << 20

// SSEEvent is one dispatched server-sent event.
type SSEEvent struct {
	Type  string
	ID    string
	Data  string
	Retry time.Duration
}

// Decoder reads server-sent events from a long-lived stream, one event at a
// time. Field handling follows the EventSource processing rules: data lines
// are joined with "\n", comments are skipped, and a blank line dispatches.
type Decoder struct {
	scanner *bufio.Scanner
	lastID  string
	retry   time.Duration
	started bool
}

// NewDecoder wraps r.
func NewDecoder(r io.Reader) *Decoder {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 4096), maxLineSize)
	s.Split(scanSSELines)
	return &Decoder{scanner: s}
}

// Retry is the most recent reconnection time the server asked for, zero if
// it never sent one.
func (d *Decoder) Retry() time.Duration {
	return d.retry
}

// LastEventID is the most recent id field seen on the stream.
func (d *Decoder) LastEventID() string {
	return d.lastID
}

// Next blocks until a complete event is available. It returns io.EOF when
// the stream ends; a partially received event at that point is discarded.
func (d *Decoder) Next() (SSEEvent, error) {
	var (
		data    strings.Builder
		hasData bool
		ev      SSEEvent
	)

	for d.scanner.Scan() {
		line := d.scanner.Text()
		if !d.started {
			line = strings.TrimPrefix(line, "\uFEFF")
			d.started = true
		}

		if line == "" {
			if !hasData {
				ev.Type = ""
				continue
			}
			ev.Data = strings.TrimSuffix(data.String(), "\n")
			ev.ID = d.lastID
			ev.Retry = d.retry
			return ev, nil
		}

		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value := line, ""
		if i := strings.IndexByte(line, ':'); i >= 0 {
			field = line[:i]
			value = strings.TrimPrefix(line[i+1:], " ")
		}

		switch field {
		case "data":
			data.WriteString(value)
			data.WriteByte('\n')
			hasData = true
		case "event":
			ev.Type = value
		case "id":
			if !strings.ContainsRune(value, 0) {
				d.lastID = value
			}
		case "retry":
			if ms, err := strconv.ParseUint(value, 10, 32); err == nil {
				d.retry = time.Duration(ms) * time.Millisecond
			}
		}
	}

	if err := d.scanner.Err(); err != nil {
		return SSEEvent{}, err
	}
	return SSEEvent{}, io.EOF
}

// IsMessage reports whether the event reaches the default message handler.
func (e SSEEvent) IsMessage() bool {
	return e.Type == "" || e.Type == "message"
}

// scanSSELines splits on CRLF, LF or a lone CR.
func scanSSELines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		if data[i] == '\n' {
			return i + 1, data[:i], nil
		}
		// CR: need one more byte to tell CRLF from a lone CR
		if i+1 < len(data) {
			if data[i+1] == '\n' {
				return i + 2, data[:i], nil
			}
			return i + 1, data[:i], nil
		}
		if atEOF {
			return i + 1, data[:i], nil
		}
		return 0, nil, nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
