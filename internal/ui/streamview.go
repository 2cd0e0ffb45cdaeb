package ui

import (
	"sync"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/yildizm/trackctl/internal/stream"
)

// StreamView adapts stream.View to a bubbletea program: every callback
// becomes a message, and the near-bottom answer comes from a flag the model
// keeps current after each scroll.
type StreamView struct {
	mu   sync.RWMutex
	send func(tea.Msg)

	nearBottom atomic.Bool
}

// NewStreamView creates a view that reports being at the bottom until the
// model says otherwise.
func NewStreamView() *StreamView {
	v := &StreamView{}
	v.nearBottom.Store(true)
	return v
}

// Attach sets the message sink, usually tea.Program.Send.
func (v *StreamView) Attach(send func(tea.Msg)) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.send = send
}

func (v *StreamView) emit(msg tea.Msg) {
	v.mu.RLock()
	send := v.send
	v.mu.RUnlock()
	if send != nil {
		send(msg)
	}
}

// SetNearBottom records the model's scroll position.
func (v *StreamView) SetNearBottom(near bool) {
	v.nearBottom.Store(near)
}

func (v *StreamView) EntryAppended(e stream.Entry, autoscroll bool) {
	v.emit(entryMsg{entry: e, autoscroll: autoscroll})
}

func (v *StreamView) EntriesCleared() {
	v.emit(entriesClearedMsg{})
}

func (v *StreamView) SetBanner(visible bool) {
	v.emit(bannerMsg{visible: visible})
}

func (v *StreamView) SetPauseControl(label string, paused bool) {
	v.emit(pauseControlMsg{label: label, paused: paused})
}

func (v *StreamView) NearBottom() bool {
	return v.nearBottom.Load()
}
