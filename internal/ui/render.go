package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/yildizm/trackctl/internal/api"
	"github.com/yildizm/trackctl/internal/emoji"
	"github.com/yildizm/trackctl/internal/panel"
)

// View renders the panel
func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return spinnerChars[m.spinnerFrame] + " Connecting to device..."
	}

	body := lipgloss.NewStyle().
		Height(m.bodyHeight()).
		MaxHeight(m.bodyHeight()).
		Render(m.renderBody())

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		m.renderTabs(),
		m.renderBanner(),
		body,
		m.renderNotice(),
		m.renderFooter(),
	)
}

func (m *Model) renderHeader() string {
	title := m.styles.Title.Render(emoji.GetEmoji("sensor") + " trackctl")
	device := m.styles.Muted.Render(m.opts.DeviceURL)

	var state string
	switch {
	case m.opts.Session != nil && m.opts.Session.Terminated():
		state = m.styles.Warning.Render(emoji.GetEmoji("power") + " device going down")
	case m.banner:
		state = m.styles.Error.Render(emoji.GetEmoji("offline") + " offline")
	case m.paused:
		state = m.styles.Warning.Render(emoji.GetEmoji("pause") + " paused")
	default:
		state = m.styles.Success.Render(emoji.GetEmoji("live") + " live")
	}

	clock := ""
	if m.systemInfo != nil {
		clock = m.styles.Muted.Render(emoji.GetEmoji("clock") + " " + m.systemInfo.CurrentTime)
	}

	left := lipgloss.JoinHorizontal(lipgloss.Top, title, " ", device)
	right := lipgloss.JoinHorizontal(lipgloss.Top, clock, "  ", state)
	gap := max(m.width-lipgloss.Width(left)-lipgloss.Width(right), 1)
	return left + strings.Repeat(" ", gap) + right
}

func (m *Model) renderTabs() string {
	tabs := make([]string, len(tabTitles))
	for i, title := range tabTitles {
		label := fmt.Sprintf("%d %s", i+1, title)
		if Tab(i) == m.tab {
			tabs[i] = m.styles.ActiveTab.Render(label)
		} else {
			tabs[i] = m.styles.Tab.Render(label)
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m *Model) renderBanner() string {
	if !m.banner {
		return ""
	}
	return m.styles.Banner.Width(m.width).Render(emoji.GetEmoji("offline") + " Connection lost. Reconnecting...")
}

func (m *Model) renderBody() string {
	if m.mode == modeConfirm && m.confirm != nil {
		return m.renderConfirm()
	}

	switch m.tab {
	case TabLogs:
		return m.renderLogsView()
	case TabSystem:
		return m.renderSystemView()
	case TabSensors:
		return m.renderSensorsView()
	case TabMatches:
		return m.renderMatchesView()
	default:
		return m.renderHelpView()
	}
}

func (m *Model) renderConfirm() string {
	prompt := lipgloss.JoinVertical(lipgloss.Center,
		m.styles.Warning.Render(emoji.GetEmoji("warning")+" "+m.confirm.prompt),
		"",
		m.styles.Muted.Render("y confirm • n cancel"),
	)
	return lipgloss.Place(m.width, m.bodyHeight(), lipgloss.Center, lipgloss.Center, m.styles.Confirm.Render(prompt))
}

func (m *Model) renderLogsView() string {
	if m.lines.Len() == 0 {
		waiting := m.styles.Muted.Render(spinnerChars[m.spinnerFrame] + " Waiting for log entries...")
		return lipgloss.Place(m.width, m.bodyHeight(), lipgloss.Center, lipgloss.Center, waiting)
	}
	return m.viewport.View()
}

// renderFields lays out label/value rows with aligned labels
func (m *Model) renderFields(rows [][2]string) string {
	width := 0
	for _, r := range rows {
		width = max(width, lipgloss.Width(r[0]))
	}
	label := m.styles.Muted.Width(width + 2)

	lines := make([]string, len(rows))
	for i, r := range rows {
		lines[i] = label.Render(r[0]) + m.styles.Body.Render(r[1])
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderSystemView() string {
	var sections []string

	switch {
	case m.systemInfo != nil:
		info := m.systemInfo
		sync := "Never"
		if last := m.opts.Session.LastSync(); last != nil {
			sync = fmt.Sprintf("%s (%s)", last.Time, last.Server)
		}
		mode := "PROXY"
		if info.DirectMode {
			mode = "DIRECT"
		}
		debug := "Off"
		if info.DebugMode {
			debug = "On"
		}
		sections = append(sections, m.styles.Panel.Render(m.renderFields([][2]string{
			{"Current time", info.CurrentTime},
			{"Side", fmt.Sprintf("%d", info.Side)},
			{"Direct mode", mode},
			{"Debug mode", debug},
			{"Last NTP sync", sync},
		})))
	case m.systemErr == nil:
		sections = append(sections, m.styles.Muted.Render(spinnerChars[m.spinnerFrame]+" Loading system info..."))
	}
	if m.systemErr != nil {
		sections = append(sections, m.styles.Error.Render(emoji.GetEmoji("error")+" "+fmt.Sprintf("Request failed: %v", m.systemErr)))
	}

	if m.mode == modeServers {
		sections = append(sections, "",
			m.styles.Header.Render("NTP servers"),
			m.serversInput.View(),
			m.styles.Muted.Render("ctrl+s save • esc cancel"))
	}
	return strings.Join(sections, "\n")
}

func (m *Model) renderSensorsView() string {
	var sections []string

	switch {
	case m.calibration != nil:
		c := m.calibration
		status := c.StatusText
		if c.IsCalibrating {
			status = spinnerChars[m.spinnerFrame] + " " + status
		}
		sections = append(sections, m.styles.Panel.Render(m.renderFields([][2]string{
			{"Calibration", status},
			{"Noise threshold", fmt.Sprintf("%.4f g", c.NoiseThreshold)},
			{"Magnitude", fmt.Sprintf("%.4f g", c.CurrentMagnitude)},
			{"Deadzone", fmt.Sprintf("%d%%", c.DeadzonePercent)},
		})))
	case m.calibrationErr == nil:
		sections = append(sections, m.styles.Muted.Render(spinnerChars[m.spinnerFrame]+" Loading sensor status..."))
	}
	if m.calibrationErr != nil {
		sections = append(sections, m.styles.Error.Render(emoji.GetEmoji("error")+" "+fmt.Sprintf("Request failed: %v", m.calibrationErr)))
	}

	if m.mode == modeDeadzone {
		sections = append(sections, "", m.deadzoneInput.View(), m.styles.Muted.Render("enter save • esc cancel"))
	}
	return strings.Join(sections, "\n")
}

func (m *Model) renderMatchesView() string {
	if m.matchesErr != nil {
		return m.styles.Error.Render(emoji.GetEmoji("error") + " " + fmt.Sprintf("Request failed: %v", m.matchesErr))
	}
	if !m.matchesLoaded {
		return m.styles.Muted.Render(spinnerChars[m.spinnerFrame] + " Loading matches...")
	}
	if len(m.matches) == 0 {
		return m.styles.Muted.Render("No matches recorded")
	}

	rows := []string{m.styles.Header.Render(matchRow("ID", "Side", "Start", "Finish", "Time (s)"))}
	limit := min(len(m.matches), m.bodyHeight()-1)
	for _, match := range m.matches[:limit] {
		rows = append(rows, m.styles.Body.Render(formatMatchRow(match)))
	}
	if limit < len(m.matches) {
		rows[len(rows)-1] = m.styles.Muted.Render(fmt.Sprintf("... %d more", len(m.matches)-limit+1))
	}
	return strings.Join(rows, "\n")
}

func matchRow(id, side, start, finish, elapsed string) string {
	return fmt.Sprintf("%-6s %-5s %-24s %-24s %s", id, side, start, finish, elapsed)
}

func formatMatchRow(match api.Match) string {
	return matchRow(fmt.Sprintf("%d", match.ID), fmt.Sprintf("%d", match.Side),
		match.StartTimeFormatted, match.FinishTimeFormatted, match.MatchTime)
}

var helpSections = []struct {
	title string
	keys  [][2]string
}{
	{"Global", [][2]string{
		{"1-5 / tab", "switch view"},
		{"esc", "dismiss notice"},
		{"q / ctrl+c", "quit"},
	}},
	{"Logs", [][2]string{
		{"p", "pause or resume the live feed"},
		{"c", "clear the log view"},
		{"↑↓ pgup pgdn", "scroll"},
		{"g / G", "jump to oldest / newest"},
	}},
	{"System", [][2]string{
		{"s", "sync NTP time"},
		{"n", "edit NTP servers"},
		{"d", "toggle direct mode"},
		{"r / S / K", "reboot / shut down / kill script"},
	}},
	{"Sensors", [][2]string{
		{"c", "start calibration"},
		{"z", "set deadzone"},
	}},
	{"Matches", [][2]string{
		{"r", "refresh"},
		{"x", "clear history"},
		{"e", "export database"},
		{"t / f", "trigger start / finish"},
	}},
}

func (m *Model) renderHelpView() string {
	var b strings.Builder
	b.WriteString(m.styles.Header.Render(emoji.GetEmoji("help") + " Keys"))
	b.WriteString("\n")
	for _, section := range helpSections {
		b.WriteString("\n")
		b.WriteString(m.styles.Header.Render(section.title))
		b.WriteString("\n")
		b.WriteString(m.renderFields(section.keys))
		b.WriteString("\n")
	}
	return b.String()
}

func (m *Model) renderNotice() string {
	if m.notice == nil {
		return ""
	}
	return m.styleNotice(*m.notice)
}

func (m *Model) styleNotice(n panel.Notice) string {
	switch n.Kind {
	case panel.KindError:
		return m.styles.Error.Render(emoji.GetEmoji("error") + " " + n.Text)
	case panel.KindSuccess:
		return m.styles.Success.Render(emoji.GetEmoji("success") + " " + n.Text)
	default:
		return m.styles.Info.Render(emoji.GetEmoji("info") + " " + n.Text)
	}
}

func (m *Model) renderFooter() string {
	var parts []string
	if m.tab == TabLogs {
		control := m.styles.Control
		if m.paused {
			control = m.styles.PausedControl
		}
		parts = append(parts,
			control.Render(m.pauseLabel),
			m.styles.Muted.Render(fmt.Sprintf("%s %d/%d", emoji.GetEmoji("logs"), m.lines.Len(), m.lines.Cap())),
		)
	}
	parts = append(parts, m.styles.Muted.Render("? help • q quit"))
	return strings.Join(parts, "  ")
}
