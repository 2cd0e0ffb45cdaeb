package devicesim

import (
	"fmt"
	"sync"
	"time"
)

// logTimeLayout matches Python's logging asctime format.
const logTimeLayout = "2006-01-02 15:04:05,000"

// LogHub keeps the most recent device log lines and fans new ones out to
// stream subscribers.
type LogHub struct {
	mu          sync.RWMutex
	lines       []string
	maxLines    int
	subscribers map[chan string]struct{}
	now         func() time.Time
}

// NewLogHub creates a hub retaining at most maxLines lines.
func NewLogHub(maxLines int) *LogHub {
	if maxLines <= 0 {
		maxLines = 1000
	}
	return &LogHub{
		lines:       make([]string, 0, maxLines),
		maxLines:    maxLines,
		subscribers: make(map[chan string]struct{}),
		now:         time.Now,
	}
}

// Logf formats a line the way the device logger does and publishes it.
func (h *LogHub) Logf(level, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	h.Publish(fmt.Sprintf("%s - %s - %s", h.now().Format(logTimeLayout), level, msg))
}

// Publish appends a raw line and delivers it to every subscriber. Slow
// subscribers miss lines rather than block the device.
func (h *LogHub) Publish(line string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.lines = append(h.lines, line)
	if len(h.lines) > h.maxLines {
		h.lines = h.lines[1:]
	}

	for ch := range h.subscribers {
		select {
		case ch <- line:
		default:
		}
	}
}

// Subscribe registers a new listener. Call the returned func to detach.
func (h *LogHub) Subscribe() (<-chan string, func()) {
	ch := make(chan string, 64)

	h.mu.Lock()
	h.subscribers[ch] = struct{}{}
	h.mu.Unlock()

	return ch, func() {
		h.mu.Lock()
		delete(h.subscribers, ch)
		h.mu.Unlock()
	}
}

// Lines returns a copy of the retained lines, oldest first.
func (h *LogHub) Lines() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]string, len(h.lines))
	copy(out, h.lines)
	return out
}

// Subscribers returns the number of attached listeners.
func (h *LogHub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}
