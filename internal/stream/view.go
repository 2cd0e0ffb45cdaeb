package stream

// Pause control labels.
const (
	PauseLabel  = "Pause Logs"
	ResumeLabel = "Resume Logs"
)

// View is the display surface driven by the Client. Callbacks run on the
// Client's goroutine with its lock held, so implementations must not call
// back into the Client synchronously.
type View interface {
	// EntryAppended renders e; autoscroll is true when the view was near
	// the bottom before the append.
	EntryAppended(e Entry, autoscroll bool)
	EntriesCleared()
	// SetBanner shows or hides the connection-lost indicator.
	SetBanner(visible bool)
	SetPauseControl(label string, paused bool)
	// NearBottom reports whether the view is scrolled to (or close to) the
	// newest entry.
	NearBottom() bool
}

// NopView discards every callback and always reports being at the bottom.
type NopView struct{}

func (NopView) EntryAppended(Entry, bool)    {}
func (NopView) EntriesCleared()              {}
func (NopView) SetBanner(bool)               {}
func (NopView) SetPauseControl(string, bool) {}
func (NopView) NearBottom() bool             { return true }
