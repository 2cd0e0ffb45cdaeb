package ui

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/yildizm/trackctl/internal/api"
	"github.com/yildizm/trackctl/internal/panel"
	"github.com/yildizm/trackctl/internal/stream"
)

// Tab is a panel view
type Tab int

const (
	TabLogs Tab = iota
	TabSystem
	TabSensors
	TabMatches
	TabHelp
)

var tabTitles = []string{"Logs", "System", "Sensors", "Matches", "Help"}

func (t Tab) String() string {
	if t < 0 || int(t) >= len(tabTitles) {
		return "Unknown"
	}
	return tabTitles[t]
}

type inputMode int

const (
	modeNormal inputMode = iota
	modeDeadzone
	modeServers
	modeConfirm
)

// chromeLines is everything above and below the body: header, tab bar,
// banner, notice and footer.
const chromeLines = 5

// StreamController is the part of the stream client the panel drives. Its
// methods call back into the view, so the model only invokes them from
// commands.
type StreamController interface {
	TogglePause() bool
	Clear()
	Capacity() int
}

// ModelOptions configures the panel model
type ModelOptions struct {
	Session   *panel.Session
	Stream    StreamController
	View      *StreamView
	DeviceURL string

	SystemInterval  time.Duration
	SensorInterval  time.Duration
	NoticeTimeout   time.Duration
	FollowUpDelay   time.Duration
	NearBottomLines int
	ExportPath      string
}

func (o *ModelOptions) applyDefaults() {
	if o.SystemInterval <= 0 {
		o.SystemInterval = 5 * time.Second
	}
	if o.SensorInterval <= 0 {
		o.SensorInterval = 2 * time.Second
	}
	if o.NoticeTimeout <= 0 {
		o.NoticeTimeout = 5 * time.Second
	}
	if o.FollowUpDelay <= 0 {
		o.FollowUpDelay = 2 * time.Second
	}
	if o.NearBottomLines < 0 {
		o.NearBottomLines = 0
	}
	if o.ExportPath == "" {
		o.ExportPath = "matches.json"
	}
}

type confirmation struct {
	prompt string
	run    func(ctx context.Context) panel.Notice
}

// Model is the device panel: live logs plus the system, sensor and match
// views.
type Model struct {
	opts   ModelOptions
	ctx    context.Context
	styles *Styles

	width    int
	height   int
	ready    bool
	quitting bool
	tab      Tab
	mode     inputMode

	viewport   viewport.Model
	lines      *stream.Buffer
	banner     bool
	pauseLabel string
	paused     bool

	systemInfo     *api.SystemInfo
	systemErr      error
	calibration    *api.CalibrationStatus
	calibrationErr error
	matches        []api.Match
	matchesErr     error
	matchesLoaded  bool

	notice   *panel.Notice
	noticeID int

	deadzoneInput textinput.Model
	serversInput  textarea.Model
	confirm       *confirmation

	systemPoller *panel.Poller
	sensorPoller *panel.Poller

	sendMu sync.RWMutex
	send   func(tea.Msg)

	spinnerFrame int
}

// NewModel creates the panel model. Requests made by the model are bound
// to ctx.
func NewModel(ctx context.Context, opts ModelOptions) *Model {
	opts.applyDefaults()

	capacity := stream.DefaultCapacity
	if opts.Stream != nil {
		capacity = opts.Stream.Capacity()
	}

	di := textinput.New()
	di.Prompt = "Deadzone % > "
	di.Placeholder = "0-100"
	di.CharLimit = 5
	di.Width = 10

	si := textarea.New()
	si.Placeholder = "one NTP server per line"
	si.ShowLineNumbers = false
	si.SetHeight(6)

	m := &Model{
		opts:          opts,
		ctx:           ctx,
		styles:        GetStyles(),
		viewport:      viewport.New(0, 0),
		lines:         stream.NewBuffer(capacity),
		pauseLabel:    stream.PauseLabel,
		deadzoneInput: di,
		serversInput:  si,
	}
	m.viewport.MouseWheelEnabled = true
	m.systemPoller = panel.NewPoller(opts.SystemInterval, m.pollSystemInfo)
	m.sensorPoller = panel.NewPoller(opts.SensorInterval, m.pollCalibration)
	return m
}

// Attach sets where poller results are delivered, usually tea.Program.Send.
func (m *Model) Attach(send func(tea.Msg)) {
	m.sendMu.Lock()
	defer m.sendMu.Unlock()
	m.send = send
}

// post delivers msg without blocking the caller, so stopping a poller from
// Update never waits on the event loop.
func (m *Model) post(msg tea.Msg) {
	m.sendMu.RLock()
	send := m.send
	m.sendMu.RUnlock()
	if send != nil {
		go send(msg)
	}
}

func (m *Model) pollSystemInfo(ctx context.Context) {
	info, err := m.opts.Session.RefreshSystemInfo(ctx)
	if ctx.Err() != nil {
		return
	}
	m.post(systemInfoMsg{info: info, err: err})
}

func (m *Model) pollCalibration(ctx context.Context) {
	status, err := m.opts.Session.CalibrationStatus(ctx)
	if ctx.Err() != nil {
		return
	}
	m.post(calibrationMsg{status: status, err: err})
}

// Close stops the pollers
func (m *Model) Close() {
	m.systemPoller.Stop()
	m.sensorPoller.Stop()
}

// Init starts the system info poller
func (m *Model) Init() tea.Cmd {
	m.systemPoller.Start(m.ctx)
	return tick()
}

// Update handles messages and navigation
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleWindowResize(msg)
	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	case tea.MouseMsg:
		return m.handleMouse(msg)
	case tickMsg:
		return m.handleTick()
	case entryMsg:
		return m.handleEntry(msg)
	case entriesClearedMsg:
		return m.handleCleared()
	case bannerMsg:
		m.banner = msg.visible
		return m, nil
	case pauseControlMsg:
		m.pauseLabel = msg.label
		m.paused = msg.paused
		return m, nil
	case systemInfoMsg:
		return m.handleSystemInfo(msg)
	case calibrationMsg:
		return m.handleCalibration(msg)
	case matchesMsg:
		return m.handleMatches(msg)
	case noticeMsg:
		return m.handleNotice(msg.notice)
	case noticeExpiredMsg:
		if m.notice != nil && msg.id == m.noticeID {
			m.notice = nil
		}
		return m, nil
	case followUpMsg:
		return m.handleFollowUp(msg)
	}
	return m, nil
}

func (m *Model) handleWindowResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	m.ready = true

	atBottom := m.isNearBottom()
	m.viewport.Width = msg.Width
	m.viewport.Height = m.bodyHeight()
	m.serversInput.SetWidth(max(msg.Width-4, 20))
	m.refreshLog()
	if atBottom {
		m.viewport.GotoBottom()
	}
	m.syncNearBottom()
	return m, nil
}

func (m *Model) bodyHeight() int {
	return max(m.height-chromeLines, 1)
}

func (m *Model) handleTick() (tea.Model, tea.Cmd) {
	m.spinnerFrame = (m.spinnerFrame + 1) % len(spinnerChars)
	return m, tick()
}

func (m *Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if m.tab != TabLogs {
		return m, nil
	}
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	m.syncNearBottom()
	return m, cmd
}

// --- log view ---

func (m *Model) handleEntry(msg entryMsg) (tea.Model, tea.Cmd) {
	m.lines.Append(msg.entry)
	m.refreshLog()
	if msg.autoscroll {
		m.viewport.GotoBottom()
	}
	m.syncNearBottom()
	return m, nil
}

func (m *Model) handleCleared() (tea.Model, tea.Cmd) {
	m.lines.Clear()
	m.refreshLog()
	m.viewport.GotoTop()
	m.syncNearBottom()
	return m, nil
}

// refreshLog re-renders the buffered entries into the viewport, one line
// per entry, cut to the view width.
func (m *Model) refreshLog() {
	entries := m.lines.Snapshot()
	rendered := make([]string, len(entries))
	for i, e := range entries {
		rendered[i] = m.styles.LevelStyle(e.Level).MaxWidth(m.width).Render(flattenLine(e.Message))
	}
	m.viewport.SetContent(strings.Join(rendered, "\n"))
}

func flattenLine(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
}

// isNearBottom reports whether the newest entry is visible or at most
// NearBottomLines away.
func (m *Model) isNearBottom() bool {
	if m.viewport.AtBottom() {
		return true
	}
	remaining := m.viewport.TotalLineCount() - (m.viewport.YOffset + m.viewport.Height)
	return remaining <= m.opts.NearBottomLines
}

func (m *Model) syncNearBottom() {
	if m.opts.View != nil {
		m.opts.View.SetNearBottom(m.isNearBottom())
	}
}

// --- keys ---

func (m *Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m.handleQuit()
	}

	switch m.mode {
	case modeDeadzone:
		return m.handleDeadzoneKey(msg)
	case modeServers:
		return m.handleServersKey(msg)
	case modeConfirm:
		return m.handleConfirmKey(msg)
	}

	switch msg.String() {
	case "q":
		return m.handleQuit()
	case "tab":
		return m, m.switchTab((m.tab + 1) % Tab(len(tabTitles)))
	case "shift+tab":
		return m, m.switchTab((m.tab + Tab(len(tabTitles)) - 1) % Tab(len(tabTitles)))
	case "1", "2", "3", "4", "5":
		return m, m.switchTab(Tab(msg.String()[0] - '1'))
	case "?":
		return m, m.switchTab(TabHelp)
	case "esc":
		m.notice = nil
		return m, nil
	}

	switch m.tab {
	case TabLogs:
		return m.handleLogsKey(msg)
	case TabSystem:
		return m.handleSystemKey(msg)
	case TabSensors:
		return m.handleSensorsKey(msg)
	case TabMatches:
		return m.handleMatchesKey(msg)
	}
	return m, nil
}

func (m *Model) handleQuit() (tea.Model, tea.Cmd) {
	m.quitting = true
	return m, tea.Quit
}

// switchTab changes view. The sensor poller only runs while the sensor view
// is showing.
func (m *Model) switchTab(t Tab) tea.Cmd {
	if t == m.tab {
		return nil
	}
	if m.tab == TabSensors {
		m.sensorPoller.Stop()
	}
	m.tab = t

	switch t {
	case TabSensors:
		m.sensorPoller.Start(m.ctx)
	case TabMatches:
		return m.fetchMatches()
	}
	return nil
}

func (m *Model) handleLogsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "p":
		return m, m.streamCmd(func(s StreamController) { s.TogglePause() })
	case "c":
		return m, m.streamCmd(StreamController.Clear)
	case "g", "home":
		m.viewport.GotoTop()
	case "G", "end":
		m.viewport.GotoBottom()
	default:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		m.syncNearBottom()
		return m, cmd
	}
	m.syncNearBottom()
	return m, nil
}

// streamCmd runs fn off the event loop; the stream client reports back
// through the view.
func (m *Model) streamCmd(fn func(StreamController)) tea.Cmd {
	s := m.opts.Stream
	if s == nil {
		return nil
	}
	return func() tea.Msg {
		fn(s)
		return nil
	}
}

func (m *Model) handleSystemKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	s := m.opts.Session
	switch msg.String() {
	case "s":
		return m, m.action(s.SyncNTP)
	case "n":
		m.mode = modeServers
		m.serversInput.Reset()
		return m, m.serversInput.Focus()
	case "d":
		if m.systemInfo == nil {
			return m.handleNotice(panel.Notice{Kind: panel.KindInfo, Text: "System info not loaded yet"})
		}
		enable := !m.systemInfo.DirectMode
		return m, m.action(func(ctx context.Context) panel.Notice { return s.SaveDirectMode(ctx, enable) })
	case "r":
		m.ask("Reboot the device?", s.Reboot)
	case "S":
		m.ask("Shut down the device?", s.Shutdown)
	case "K":
		m.ask("Terminate the tracking script?", s.KillScript)
	case "R":
		return m, m.fetchSystemInfo()
	}
	return m, nil
}

func (m *Model) handleSensorsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "c", "enter":
		return m, m.action(m.opts.Session.StartCalibration)
	case "z":
		m.mode = modeDeadzone
		m.deadzoneInput.Reset()
		if m.calibration != nil {
			m.deadzoneInput.SetValue(strconv.Itoa(m.calibration.DeadzonePercent))
		}
		return m, m.deadzoneInput.Focus()
	case "R":
		return m, m.fetchCalibration()
	}
	return m, nil
}

func (m *Model) handleMatchesKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	s := m.opts.Session
	switch msg.String() {
	case "r", "R":
		return m, m.fetchMatches()
	case "x":
		m.ask("Clear the match history?", s.ClearMatches)
	case "e":
		path := m.opts.ExportPath
		return m, m.action(func(ctx context.Context) panel.Notice { return s.ExportDatabase(ctx, path) })
	case "t":
		return m, m.action(func(ctx context.Context) panel.Notice { return s.Trigger(ctx, true) })
	case "f":
		return m, m.action(func(ctx context.Context) panel.Notice { return s.Trigger(ctx, false) })
	}
	return m, nil
}

func (m *Model) ask(prompt string, run func(ctx context.Context) panel.Notice) {
	m.mode = modeConfirm
	m.confirm = &confirmation{prompt: prompt, run: run}
}

func (m *Model) handleConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y", "enter":
		c := m.confirm
		m.mode = modeNormal
		m.confirm = nil
		if c == nil {
			return m, nil
		}
		return m, m.action(c.run)
	case "n", "N", "esc", "q":
		m.mode = modeNormal
		m.confirm = nil
	}
	return m, nil
}

func (m *Model) handleDeadzoneKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		value := m.deadzoneInput.Value()
		m.mode = modeNormal
		m.deadzoneInput.Blur()
		s := m.opts.Session
		return m, m.action(func(ctx context.Context) panel.Notice { return s.UpdateDeadzone(ctx, value) })
	case "esc":
		m.mode = modeNormal
		m.deadzoneInput.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.deadzoneInput, cmd = m.deadzoneInput.Update(msg)
	return m, cmd
}

func (m *Model) handleServersKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+s":
		text := m.serversInput.Value()
		m.mode = modeNormal
		m.serversInput.Blur()
		s := m.opts.Session
		return m, m.action(func(ctx context.Context) panel.Notice { return s.SaveNTPServers(ctx, text) })
	case "esc":
		m.mode = modeNormal
		m.serversInput.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.serversInput, cmd = m.serversInput.Update(msg)
	return m, cmd
}

// --- actions and fetches ---

func (m *Model) action(run func(ctx context.Context) panel.Notice) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return noticeMsg{notice: run(ctx)}
	}
}

func (m *Model) fetchSystemInfo() tea.Cmd {
	ctx, s := m.ctx, m.opts.Session
	return func() tea.Msg {
		info, err := s.RefreshSystemInfo(ctx)
		return systemInfoMsg{info: info, err: err}
	}
}

func (m *Model) fetchCalibration() tea.Cmd {
	ctx, s := m.ctx, m.opts.Session
	return func() tea.Msg {
		status, err := s.CalibrationStatus(ctx)
		return calibrationMsg{status: status, err: err}
	}
}

func (m *Model) fetchMatches() tea.Cmd {
	ctx, s := m.ctx, m.opts.Session
	return func() tea.Msg {
		matches, err := s.Matches(ctx)
		return matchesMsg{matches: matches, err: err}
	}
}

func (m *Model) handleSystemInfo(msg systemInfoMsg) (tea.Model, tea.Cmd) {
	m.systemErr = msg.err
	if msg.err == nil {
		m.systemInfo = msg.info
	}
	return m, nil
}

func (m *Model) handleCalibration(msg calibrationMsg) (tea.Model, tea.Cmd) {
	m.calibrationErr = msg.err
	if msg.err == nil {
		m.calibration = msg.status
	}
	return m, nil
}

func (m *Model) handleMatches(msg matchesMsg) (tea.Model, tea.Cmd) {
	m.matchesErr = msg.err
	if msg.err == nil {
		m.matches = msg.matches
		m.matchesLoaded = true
	}
	return m, nil
}

// handleNotice shows n. Plain notices hide after the notice timeout, a
// terminal notice switches to its follow-up text, and a successful action
// refreshes the view it came from.
func (m *Model) handleNotice(n panel.Notice) (tea.Model, tea.Cmd) {
	m.noticeID++
	id := m.noticeID
	m.notice = &n

	var cmds []tea.Cmd
	switch {
	case n.FollowUp != "":
		cmds = append(cmds, tea.Tick(m.opts.FollowUpDelay, func(time.Time) tea.Msg { return followUpMsg{id: id} }))
	case !n.Sticky:
		cmds = append(cmds, tea.Tick(m.opts.NoticeTimeout, func(time.Time) tea.Msg { return noticeExpiredMsg{id: id} }))
	}

	if m.opts.Session != nil && m.opts.Session.Terminated() {
		m.Close()
		return m, tea.Batch(cmds...)
	}

	if !n.Failed() {
		switch m.tab {
		case TabSystem:
			cmds = append(cmds, m.fetchSystemInfo())
		case TabSensors:
			cmds = append(cmds, m.fetchCalibration())
		case TabMatches:
			cmds = append(cmds, m.fetchMatches())
		}
	}
	return m, tea.Batch(cmds...)
}

func (m *Model) handleFollowUp(msg followUpMsg) (tea.Model, tea.Cmd) {
	if m.notice == nil || msg.id != m.noticeID || m.notice.FollowUp == "" {
		return m, nil
	}
	next := *m.notice
	next.Text = next.FollowUp
	next.FollowUp = ""
	next.Sticky = true
	m.notice = &next
	return m, nil
}
