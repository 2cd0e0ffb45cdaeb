package ui

import (
	"bytes"
	"context"
	"fmt"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yildizm/trackctl/internal/api"
	"github.com/yildizm/trackctl/internal/devicesim"
	"github.com/yildizm/trackctl/internal/panel"
	"github.com/yildizm/trackctl/internal/stream"
)

type fakeStream struct {
	mu       sync.Mutex
	toggles  int
	clears   int
	capacity int
}

func (f *fakeStream) TogglePause() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.toggles++
	return f.toggles%2 == 1
}

func (f *fakeStream) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clears++
}

func (f *fakeStream) Capacity() int { return f.capacity }

func (f *fakeStream) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.toggles, f.clears
}

// newTestModel builds a 100x15 panel (10 body lines) against a simulated
// device.
func newTestModel(t *testing.T, capacity int) (*Model, *fakeStream, *StreamView) {
	t.Helper()

	opts := devicesim.DefaultOptions()
	opts.GenerateInterval = 0
	sim := devicesim.New(opts)
	ts := httptest.NewServer(sim.Handler())
	t.Cleanup(ts.Close)

	client, err := api.New(api.Config{BaseURL: ts.URL, Username: "admin", Password: "admin"})
	require.NoError(t, err)

	fs := &fakeStream{capacity: capacity}
	view := NewStreamView()
	ctx, cancel := context.WithCancel(context.Background())
	m := NewModel(ctx, ModelOptions{
		Session:         panel.NewSession(client, nil),
		Stream:          fs,
		View:            view,
		DeviceURL:       ts.URL,
		NearBottomLines: 2,
		ExportPath:      filepath.Join(t.TempDir(), "matches.json"),
	})
	t.Cleanup(func() {
		m.Close()
		cancel()
	})

	m.Update(tea.WindowSizeMsg{Width: 100, Height: 15})
	return m, fs, view
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "home":
		return tea.KeyMsg{Type: tea.KeyHome}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "ctrl+s":
		return tea.KeyMsg{Type: tea.KeyCtrlS}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// press sends keys in order and returns the command from the last one.
func press(m *Model, keys ...string) tea.Cmd {
	var cmd tea.Cmd
	for _, k := range keys {
		_, cmd = m.Update(key(k))
	}
	return cmd
}

func appendEntries(m *Model, n int, autoscroll bool) {
	for i := 0; i < n; i++ {
		msg := fmt.Sprintf("2024-05-01 10:15:%02d,000 - INFO - line %d", i%60, i)
		m.Update(entryMsg{entry: stream.NewEntry(uint64(i+1), msg, time.Now()), autoscroll: autoscroll})
	}
}

func runNotice(t *testing.T, cmd tea.Cmd) panel.Notice {
	t.Helper()
	require.NotNil(t, cmd)
	msg := cmd()
	nm, ok := msg.(noticeMsg)
	require.True(t, ok, "expected a notice, got %T", msg)
	return nm.notice
}

func TestEntriesFollowTheBottom(t *testing.T) {
	m, _, view := newTestModel(t, stream.DefaultCapacity)

	appendEntries(m, 30, true)

	assert.Equal(t, 30, m.lines.Len())
	assert.True(t, m.viewport.AtBottom())
	assert.True(t, view.NearBottom())
}

func TestScrolledUpViewStaysPut(t *testing.T) {
	m, _, view := newTestModel(t, stream.DefaultCapacity)
	appendEntries(m, 30, true)

	press(m, "home")
	require.Equal(t, 0, m.viewport.YOffset)
	assert.False(t, view.NearBottom())

	appendEntries(m, 1, false)
	assert.Equal(t, 0, m.viewport.YOffset)
	assert.Equal(t, 31, m.lines.Len())
}

func TestNearBottomThreshold(t *testing.T) {
	m, _, view := newTestModel(t, stream.DefaultCapacity)
	appendEntries(m, 30, true)

	press(m, "up")
	assert.True(t, view.NearBottom(), "one line above the bottom is still near")

	press(m, "up", "up")
	assert.False(t, view.NearBottom(), "three lines above the bottom is not")
}

func TestBufferMirrorsCapacity(t *testing.T) {
	m, _, _ := newTestModel(t, 5)

	appendEntries(m, 7, true)

	entries := m.lines.Snapshot()
	require.Len(t, entries, 5)
	assert.Equal(t, uint64(3), entries[0].Seq)
	assert.Equal(t, uint64(7), entries[4].Seq)
}

func TestClearResetsView(t *testing.T) {
	m, _, view := newTestModel(t, stream.DefaultCapacity)
	appendEntries(m, 30, true)
	press(m, "home")

	m.Update(entriesClearedMsg{})

	assert.Equal(t, 0, m.lines.Len())
	assert.True(t, view.NearBottom())
	assert.Contains(t, m.View(), "Waiting for log entries")
}

func TestStreamKeysRunInCommands(t *testing.T) {
	m, fs, _ := newTestModel(t, stream.DefaultCapacity)

	cmd := press(m, "p")
	require.NotNil(t, cmd)
	toggles, _ := fs.counts()
	assert.Equal(t, 0, toggles, "pause must not run inside Update")
	cmd()
	toggles, _ = fs.counts()
	assert.Equal(t, 1, toggles)

	cmd = press(m, "c")
	require.NotNil(t, cmd)
	cmd()
	_, clears := fs.counts()
	assert.Equal(t, 1, clears)

	m.Update(pauseControlMsg{label: stream.ResumeLabel, paused: true})
	assert.True(t, m.paused)
	assert.Contains(t, m.View(), stream.ResumeLabel)
}

func TestBannerShownWhileDisconnected(t *testing.T) {
	m, _, _ := newTestModel(t, stream.DefaultCapacity)

	m.Update(bannerMsg{visible: true})
	assert.Contains(t, m.View(), "Connection lost")

	m.Update(bannerMsg{visible: false})
	assert.NotContains(t, m.View(), "Connection lost")
}

func TestSensorPollerFollowsTab(t *testing.T) {
	m, _, _ := newTestModel(t, stream.DefaultCapacity)

	press(m, "3")
	assert.Equal(t, TabSensors, m.tab)
	assert.True(t, m.sensorPoller.IsRunning())

	press(m, "1")
	assert.Equal(t, TabLogs, m.tab)
	assert.False(t, m.sensorPoller.IsRunning())
}

func TestMatchesTab(t *testing.T) {
	m, _, _ := newTestModel(t, stream.DefaultCapacity)

	cmd := press(m, "4")
	require.NotNil(t, cmd)
	m.Update(cmd())
	assert.True(t, m.matchesLoaded)
	assert.Contains(t, m.View(), "No matches recorded")

	n := runNotice(t, press(m, "t"))
	assert.Equal(t, "Trigger start sent", n.Text)
	n = runNotice(t, press(m, "f"))
	assert.Equal(t, "Trigger finish sent", n.Text)

	cmd = press(m, "r")
	require.NotNil(t, cmd)
	m.Update(cmd())
	require.Len(t, m.matches, 1)
	assert.Contains(t, m.View(), m.matches[0].MatchTime)

	n = runNotice(t, press(m, "e"))
	assert.False(t, n.Failed(), n.Text)
	assert.FileExists(t, m.opts.ExportPath)
}

func TestConfirmDialog(t *testing.T) {
	m, _, _ := newTestModel(t, stream.DefaultCapacity)
	press(m, "2")

	press(m, "r")
	assert.Equal(t, modeConfirm, m.mode)
	assert.Contains(t, m.View(), "Reboot the device?")

	cmd := press(m, "n")
	assert.Nil(t, cmd)
	assert.Equal(t, modeNormal, m.mode)
	assert.False(t, m.opts.Session.Terminated())

	press(m, "r")
	n := runNotice(t, press(m, "y"))
	assert.True(t, n.Sticky)
	assert.Equal(t, "System is rebooting...", n.FollowUp)
	assert.True(t, m.opts.Session.Terminated())

	m.Update(noticeMsg{notice: n})
	m.Update(followUpMsg{id: m.noticeID})
	require.NotNil(t, m.notice)
	assert.Equal(t, "System is rebooting...", m.notice.Text)
	assert.False(t, m.systemPoller.IsRunning())
}

func TestNoticeExpires(t *testing.T) {
	m, _, _ := newTestModel(t, stream.DefaultCapacity)

	_, cmd := m.Update(noticeMsg{notice: panel.Notice{Kind: panel.KindSuccess, Text: "done"}})
	assert.NotNil(t, cmd)
	assert.Contains(t, m.View(), "done")

	m.Update(noticeExpiredMsg{id: m.noticeID - 1})
	assert.NotNil(t, m.notice, "a stale timer must not hide a newer notice")

	m.Update(noticeExpiredMsg{id: m.noticeID})
	assert.Nil(t, m.notice)
}

func TestDeadzoneInput(t *testing.T) {
	m, _, _ := newTestModel(t, stream.DefaultCapacity)
	press(m, "3")

	press(m, "z")
	require.Equal(t, modeDeadzone, m.mode)
	n := runNotice(t, press(m, "1", "5", "0", "enter"))
	assert.Equal(t, modeNormal, m.mode)
	assert.True(t, n.Failed())
	assert.Equal(t, "Deadzone must be an integer between 0 and 100", n.Text)

	press(m, "z")
	n = runNotice(t, press(m, "4", "2", "enter"))
	assert.Equal(t, "Deadzone updated to 42%", n.Text)
}

func TestSaveNTPServers(t *testing.T) {
	m, _, _ := newTestModel(t, stream.DefaultCapacity)
	press(m, "2", "n")
	require.Equal(t, modeServers, m.mode)

	press(m, "a.ntp.org", "enter", "b.ntp.org")
	n := runNotice(t, press(m, "ctrl+s"))
	assert.Equal(t, "NTP server list updated successfully.", n.Text)
	assert.Equal(t, modeNormal, m.mode)
}

func TestDirectModeToggle(t *testing.T) {
	m, _, _ := newTestModel(t, stream.DefaultCapacity)
	press(m, "2")

	press(m, "d")
	require.NotNil(t, m.notice)
	assert.Equal(t, "System info not loaded yet", m.notice.Text)

	m.Update(systemInfoMsg{info: &api.SystemInfo{CurrentTime: "2024-05-01 10:00:00", Side: 2}})
	n := runNotice(t, press(m, "d"))
	assert.Equal(t, "Direct mode setting saved as DIRECT. Changes will be applied after reboot.", n.Text)
}

func TestViewRendersTabs(t *testing.T) {
	m, _, _ := newTestModel(t, stream.DefaultCapacity)

	out := m.View()
	for _, title := range tabTitles {
		assert.Contains(t, out, title)
	}

	press(m, "?")
	assert.Equal(t, TabHelp, m.tab)
	assert.Contains(t, m.View(), "Keys")
}

func TestStreamViewForwardsCallbacks(t *testing.T) {
	view := NewStreamView()
	assert.True(t, view.NearBottom())

	var got []tea.Msg
	view.Attach(func(msg tea.Msg) { got = append(got, msg) })

	view.EntryAppended(stream.NewEntry(1, "hello", time.Now()), true)
	view.EntriesCleared()
	view.SetBanner(true)
	view.SetPauseControl(stream.ResumeLabel, true)

	require.Len(t, got, 4)
	assert.IsType(t, entryMsg{}, got[0])
	assert.True(t, got[0].(entryMsg).autoscroll)
	assert.IsType(t, entriesClearedMsg{}, got[1])
	assert.Equal(t, bannerMsg{visible: true}, got[2])
	assert.Equal(t, pauseControlMsg{label: stream.ResumeLabel, paused: true}, got[3])

	view.SetNearBottom(false)
	assert.False(t, view.NearBottom())
}

func TestPrinter(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, false)

	p.EntryAppended(stream.NewEntry(1, "2024-05-01 10:15:30,250 - ERROR - sensor lost", time.Now()), true)
	p.SetBanner(true)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "2024-05-01 10:15:30,250 - ERROR - sensor lost", lines[0])
	assert.Contains(t, lines[1], "Connection lost")
	assert.True(t, p.NearBottom())
}
