package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/yildizm/trackctl/internal/api"
	"github.com/yildizm/trackctl/internal/panel"
	"github.com/yildizm/trackctl/internal/stream"
)

// Stream view callbacks, forwarded into the program
type entryMsg struct {
	entry      stream.Entry
	autoscroll bool
}

type entriesClearedMsg struct{}

type bannerMsg struct {
	visible bool
}

type pauseControlMsg struct {
	label  string
	paused bool
}

// Poller and action results
type systemInfoMsg struct {
	info *api.SystemInfo
	err  error
}

type calibrationMsg struct {
	status *api.CalibrationStatus
	err    error
}

type matchesMsg struct {
	matches []api.Match
	err     error
}

type noticeMsg struct {
	notice panel.Notice
}

// noticeExpiredMsg hides notice id if it is still showing
type noticeExpiredMsg struct {
	id int
}

// followUpMsg swaps a terminal notice for its follow-up text
type followUpMsg struct {
	id int
}

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

var spinnerChars = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
