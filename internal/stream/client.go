package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/yildizm/trackctl/internal/logger"
)

// DefaultReconnectDelay is the fixed wait between a transport error and the
// next connect attempt.
const DefaultReconnectDelay = 5 * time.Second

// ErrStreamClosed is reported when the server ends the stream cleanly.
var ErrStreamClosed = errors.New("log stream closed by server")

// Source opens the server-push connection. Each call must return a fresh
// stream; the Client closes it.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) (io.ReadCloser, error)

func (f SourceFunc) Open(ctx context.Context) (io.ReadCloser, error) { return f(ctx) }

// Options configures a Client
type Options struct {
	ReconnectDelay   time.Duration
	BufferSize       int
	FilterAccessLogs bool
	Logger           *logger.Logger
}

// DefaultOptions mirrors the device web UI behaviour.
func DefaultOptions() Options {
	return Options{
		ReconnectDelay:   DefaultReconnectDelay,
		BufferSize:       DefaultCapacity,
		FilterAccessLogs: true,
	}
}

// Stats counts what happened to inbound events.
type Stats struct {
	Received    uint64 `json:"received"`
	Heartbeats  uint64 `json:"heartbeats"`
	PausedDrops uint64 `json:"paused_drops"`
	Filtered    uint64 `json:"filtered"`
	Malformed   uint64 `json:"malformed"`
	Rendered    uint64 `json:"rendered"`
	Evicted     uint64 `json:"evicted"`
	Connects    uint64 `json:"connects"`
	Reconnects  uint64 `json:"reconnects"`
}

// Client keeps a live log feed from a Source, renders it into a bounded
// buffer and reconnects after transport errors.
type Client struct {
	source Source
	view   View
	opts   Options
	log    *logger.Logger

	// after is time.After, swapped in tests
	after func(time.Duration) <-chan time.Time
	now   func() time.Time

	mu             sync.Mutex
	state          State
	paused         bool
	connectionLost bool
	conn           io.ReadCloser
	buffer         *Buffer
	seq            uint64
	stats          Stats
	lastErr        error
}

// NewClient creates a client rendering into view. A nil view discards output.
func NewClient(source Source, view View, opts Options) *Client {
	if view == nil {
		view = NopView{}
	}
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = DefaultReconnectDelay
	}
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &Client{
		source: source,
		view:   view,
		opts:   opts,
		log:    log.WithComponent("stream"),
		after:  time.After,
		now:    time.Now,
		state:  StateConnecting,
		buffer: NewBuffer(opts.BufferSize),
	}
}

// Run connects and keeps the stream alive until ctx is cancelled. Every
// transport error schedules exactly one reconnect after the fixed delay;
// there is no backoff and no retry limit.
func (c *Client) Run(ctx context.Context) error {
	defer c.setState(StateStopped)

	for {
		c.setState(StateConnecting)
		err := c.connectOnce(ctx)
		if ctx.Err() != nil {
			c.closeConn()
			return ctx.Err()
		}

		c.markLost(err)

		select {
		case <-ctx.Done():
			c.closeConn()
			return ctx.Err()
		case <-c.after(c.opts.ReconnectDelay):
		}
		c.closeConn()
	}
}

func (c *Client) connectOnce(ctx context.Context) error {
	body, err := c.source.Open(ctx)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}

	c.mu.Lock()
	c.conn = body
	c.state = StateOpen
	c.stats.Connects++
	if c.connectionLost {
		c.connectionLost = false
		c.view.SetBanner(false)
	}
	c.mu.Unlock()
	c.log.Info("log stream connected")

	// Unblock a pending read when the session ends
	stop := context.AfterFunc(ctx, func() { _ = body.Close() })
	defer stop()

	dec := NewDecoder(body)
	for {
		ev, err := dec.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return ErrStreamClosed
			}
			return fmt.Errorf("read: %w", err)
		}
		if !ev.IsMessage() {
			continue
		}
		c.HandleData([]byte(ev.Data))
	}
}

func (c *Client) markLost(err error) {
	c.mu.Lock()
	c.state = StateReconnecting
	c.lastErr = err
	c.stats.Reconnects++
	c.connectionLost = true
	c.view.SetBanner(true)
	c.mu.Unlock()

	c.log.Warn("log stream lost, reconnecting in %v: %v", c.opts.ReconnectDelay, err)
}

func (c *Client) closeConn() {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// HandleData processes one SSE data payload. Malformed payloads are counted
// and dropped.
func (c *Client) HandleData(data []byte) {
	ev, err := DecodeEvent(data)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.stats.Received++
	if err != nil {
		c.stats.Malformed++
		c.log.Debug("dropping malformed event: %v", err)
		return
	}
	c.handleEventLocked(ev)
}

// HandleEvent processes one decoded event.
func (c *Client) HandleEvent(ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stats.Received++
	c.handleEventLocked(ev)
}

func (c *Client) handleEventLocked(ev Event) {
	switch {
	case ev.Heartbeat:
		c.stats.Heartbeats++
		return
	case c.paused:
		c.stats.PausedDrops++
		return
	case IsBlank(ev.Message):
		c.stats.Filtered++
		return
	case c.opts.FilterAccessLogs && IsAccessLog(ev.Message):
		c.stats.Filtered++
		return
	}

	autoscroll := c.view.NearBottom()
	c.seq++
	entry := NewEntry(c.seq, ev.Message, c.now())
	if c.buffer.Append(entry) {
		c.stats.Evicted++
	}
	c.stats.Rendered++
	c.view.EntryAppended(entry, autoscroll)
}

// TogglePause flips the pause flag and returns the new value. The stream
// stays connected; events arriving while paused are dropped.
func (c *Client) TogglePause() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.paused = !c.paused
	if c.paused {
		c.view.SetPauseControl(ResumeLabel, true)
	} else {
		c.view.SetPauseControl(PauseLabel, false)
	}
	return c.paused
}

// Clear empties the display buffer.
func (c *Client) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.buffer.Clear()
	c.view.EntriesCleared()
}

// Paused reports the pause flag.
func (c *Client) Paused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}

// State returns the connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ConnectionLost reports whether the connection-lost banner is showing.
func (c *Client) ConnectionLost() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectionLost
}

// LastError is the error behind the most recent reconnect, if any.
func (c *Client) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Entries returns a copy of the buffered entries, oldest first.
func (c *Client) Entries() []Entry {
	return c.buffer.Snapshot()
}

// Capacity is the display buffer size.
func (c *Client) Capacity() int {
	return c.buffer.Cap()
}

// Stats returns the event counters.
func (c *Client) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}
