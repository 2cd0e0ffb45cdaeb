package ui

import (
	"fmt"
	"io"
	"sync"

	"github.com/yildizm/trackctl/internal/emoji"
	"github.com/yildizm/trackctl/internal/stream"
)

// Printer is a stream.View that writes each entry as a coloured line, for
// following the device log without the full panel.
type Printer struct {
	mu     sync.Mutex
	w      io.Writer
	styles *Styles
	color  bool
}

// NewPrinter creates a printer writing to w
func NewPrinter(w io.Writer, color bool) *Printer {
	return &Printer{w: w, styles: GetStyles(), color: color && !IsColorDisabled()}
}

func (p *Printer) render(level stream.Level, text string) string {
	if !p.color {
		return text
	}
	return p.styles.LevelStyle(level).Render(text)
}

func (p *Printer) EntryAppended(e stream.Entry, _ bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = fmt.Fprintln(p.w, p.render(e.Level, e.Message))
}

func (p *Printer) EntriesCleared() {}

func (p *Printer) SetBanner(visible bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if visible {
		_, _ = fmt.Fprintln(p.w, p.render(stream.LevelError, emoji.GetEmoji("offline")+" Connection lost. Reconnecting..."))
		return
	}
	_, _ = fmt.Fprintln(p.w, p.render(stream.LevelInfo, emoji.GetEmoji("live")+" Connected"))
}

func (p *Printer) SetPauseControl(string, bool) {}

// NearBottom is always true: a terminal follows its output.
func (p *Printer) NearBottom() bool { return true }
