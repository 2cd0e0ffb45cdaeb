package panel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/yildizm/trackctl/internal/api"
	"github.com/yildizm/trackctl/internal/logger"
)

// ErrTerminated is returned once a reboot, shutdown or kill went through.
var ErrTerminated = errors.New("device is going down, no further actions accepted")

// Device is the subset of the device API the panel drives.
type Device interface {
	SystemInfo(ctx context.Context) (*api.SystemInfo, error)
	TriggerNTPSync(ctx context.Context) (*api.NTPSyncResult, error)
	UpdateNTPServers(ctx context.Context, servers []string) error
	Reboot(ctx context.Context) error
	Shutdown(ctx context.Context) error
	KillScript(ctx context.Context) error
	SaveDirectMode(ctx context.Context, enabled bool) (*api.Result, error)
	ClearMatches(ctx context.Context) (*api.Result, error)
	Matches(ctx context.Context) ([]api.Match, error)
	ExportDatabase(ctx context.Context, w io.Writer) (int64, error)
	TriggerStart(ctx context.Context) error
	TriggerFinish(ctx context.Context) error
	StartCalibration(ctx context.Context) (*api.Result, error)
	CalibrationStatus(ctx context.Context) (*api.CalibrationStatus, error)
	UpdateDeadzone(ctx context.Context, percent int) (*api.Result, error)
}

// LastSync is the most recent NTP sync known to the panel.
type LastSync struct {
	Time   string `json:"time"`
	Server string `json:"server"`
}

// Session runs control actions against a device and turns their outcome
// into notices. It is safe for concurrent use.
type Session struct {
	dev Device
	log *logger.Logger

	mu         sync.Mutex
	terminated bool
	lastSync   *LastSync
	info       *api.SystemInfo
}

// NewSession creates a session driving dev
func NewSession(dev Device, log *logger.Logger) *Session {
	if log == nil {
		log = logger.Nop()
	}
	return &Session{dev: dev, log: log.WithComponent("panel")}
}

// Terminated reports whether a terminal action succeeded.
func (s *Session) Terminated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.terminated
}

// LastSync returns the cached last sync, nil when none is known.
func (s *Session) LastSync() *LastSync {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastSync == nil {
		return nil
	}
	ls := *s.lastSync
	return &ls
}

func (s *Session) guard() error {
	if s.Terminated() {
		return ErrTerminated
	}
	return nil
}

func (s *Session) refused() Notice {
	return Notice{Kind: KindError, Text: "Device is going down. No further actions are accepted.", Sticky: true, Err: ErrTerminated}
}

// describe maps an action error to notice text. Device reasons get the
// action prefix, anything that never reached the device is a request failure.
func describe(prefix string, err error) string {
	if api.IsValidationError(err) {
		return err.Error()
	}
	if msg, ok := api.RemoteMessage(err); ok {
		return prefix + msg
	}
	return fmt.Sprintf("Request failed: %v", err)
}

func (s *Session) failed(op, prefix string, err error) Notice {
	s.log.WarnWithFields("%s failed", []logger.Field{logger.Error(err)}, op)
	return failure(describe(prefix, err), err)
}

// RefreshSystemInfo fetches system info and updates the cached sync data.
func (s *Session) RefreshSystemInfo(ctx context.Context) (*api.SystemInfo, error) {
	info, err := s.dev.SystemInfo(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.info = info
	if info.LastNTPSyncTime != nil && info.LastNTPSyncServer != nil {
		s.lastSync = &LastSync{Time: *info.LastNTPSyncTime, Server: *info.LastNTPSyncServer}
	}
	return info, nil
}

// SyncNTP triggers an NTP sync.
func (s *Session) SyncNTP(ctx context.Context) Notice {
	if err := s.guard(); err != nil {
		return s.refused()
	}
	res, err := s.dev.TriggerNTPSync(ctx)
	if err != nil {
		return s.failed("ntp sync", "Failed to sync NTP time: ", err)
	}

	s.mu.Lock()
	s.lastSync = &LastSync{Time: res.Time, Server: res.Server}
	s.mu.Unlock()
	return success("NTP time synchronized successfully with " + res.Server)
}

// ParseServerList splits editor text into servers, one per line, dropping
// blank lines.
func ParseServerList(text string) []string {
	return api.CleanServerList(strings.Split(text, "\n"))
}

// SaveNTPServers replaces the NTP server list with the lines of text.
func (s *Session) SaveNTPServers(ctx context.Context, text string) Notice {
	return s.SetNTPServers(ctx, ParseServerList(text))
}

// SetNTPServers replaces the NTP server list.
func (s *Session) SetNTPServers(ctx context.Context, servers []string) Notice {
	if err := s.guard(); err != nil {
		return s.refused()
	}
	if err := s.dev.UpdateNTPServers(ctx, servers); err != nil {
		return s.failed("update ntp servers", "Failed to update NTP servers: ", err)
	}
	return success("NTP server list updated successfully.")
}

// SaveDirectMode stores the direct mode setting.
func (s *Session) SaveDirectMode(ctx context.Context, enabled bool) Notice {
	if err := s.guard(); err != nil {
		return s.refused()
	}
	if _, err := s.dev.SaveDirectMode(ctx, enabled); err != nil {
		return s.failed("save direct mode", "Failed to save direct mode setting: ", err)
	}
	mode := "PROXY"
	if enabled {
		mode = "DIRECT"
	}
	return success(fmt.Sprintf("Direct mode setting saved as %s. Changes will be applied after reboot.", mode))
}

type terminalAction struct {
	op       string
	call     func(context.Context) error
	prefix   string
	started  string
	followUp string
}

// Reboot restarts the device. On success the session locks.
func (s *Session) Reboot(ctx context.Context) Notice {
	return s.terminal(ctx, terminalAction{
		op:       "reboot",
		call:     s.dev.Reboot,
		prefix:   "Failed to reboot system: ",
		started:  "System reboot initiated. Please wait while the Raspberry Pi restarts...",
		followUp: "System is rebooting...",
	})
}

// Shutdown powers the device off. On success the session locks.
func (s *Session) Shutdown(ctx context.Context) Notice {
	return s.terminal(ctx, terminalAction{
		op:       "shutdown",
		call:     s.dev.Shutdown,
		prefix:   "Failed to shut down system: ",
		started:  "System shutdown initiated. The Raspberry Pi will power off.",
		followUp: "System is shutting down...",
	})
}

// KillScript stops the device service. On success the session locks.
func (s *Session) KillScript(ctx context.Context) Notice {
	return s.terminal(ctx, terminalAction{
		op:       "kill script",
		call:     s.dev.KillScript,
		prefix:   "Failed to terminate script: ",
		started:  "Script termination initiated. The device will no longer be reachable.",
		followUp: "Script is terminating...",
	})
}

func (s *Session) terminal(ctx context.Context, a terminalAction) Notice {
	if err := s.guard(); err != nil {
		return s.refused()
	}
	if err := a.call(ctx); err != nil {
		return s.failed(a.op, a.prefix, err)
	}

	s.mu.Lock()
	s.terminated = true
	s.mu.Unlock()
	s.log.Warn("%s accepted, panel locked", a.op)
	return Notice{Kind: KindSuccess, Text: a.started, Sticky: true, FollowUp: a.followUp}
}

// ClearMatches deletes the match history.
func (s *Session) ClearMatches(ctx context.Context) Notice {
	if err := s.guard(); err != nil {
		return s.refused()
	}
	res, err := s.dev.ClearMatches(ctx)
	if err != nil {
		return s.failed("clear matches", "Failed to clear match history: ", err)
	}
	if res.Message == "" {
		return success("Match history cleared")
	}
	return success(res.Message)
}

// Matches lists recorded matches, newest first.
func (s *Session) Matches(ctx context.Context) ([]api.Match, error) {
	return s.dev.Matches(ctx)
}

// ExportDatabase downloads the match database into path.
func (s *Session) ExportDatabase(ctx context.Context, path string) Notice {
	if err := s.guard(); err != nil {
		return s.refused()
	}

	// #nosec G304 - path is chosen by the user
	f, err := os.Create(path)
	if err != nil {
		return failure(fmt.Sprintf("Failed to export database: %v", err), err)
	}

	n, err := s.dev.ExportDatabase(ctx, f)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(path)
		return s.failed("export database", "Failed to export database: ", err)
	}
	return success(fmt.Sprintf("Exported %d bytes to %s", n, path))
}

// Trigger sends a start or finish event. The device ignores triggers
// unless debug mode is on.
func (s *Session) Trigger(ctx context.Context, start bool) Notice {
	if err := s.guard(); err != nil {
		return s.refused()
	}
	name, call := "finish", s.dev.TriggerFinish
	if start {
		name, call = "start", s.dev.TriggerStart
	}
	if err := call(ctx); err != nil {
		return s.failed("trigger "+name, "Failed to trigger "+name+": ", err)
	}

	s.mu.Lock()
	debug := s.info == nil || s.info.DebugMode
	s.mu.Unlock()
	if !debug {
		return infoNotice(fmt.Sprintf("Trigger %s sent, but the device is not in debug mode", name))
	}
	return success(fmt.Sprintf("Trigger %s sent", name))
}

// StartCalibration begins sensor calibration. Conflicts and a missing
// sensor come back with the device's own reason.
func (s *Session) StartCalibration(ctx context.Context) Notice {
	if err := s.guard(); err != nil {
		return s.refused()
	}
	res, err := s.dev.StartCalibration(ctx)
	if err != nil {
		return s.failed("start calibration", "", err)
	}
	if res.Message == "" {
		return success("Calibration started")
	}
	return success(res.Message)
}

// CalibrationStatus fetches the sensor calibration status.
func (s *Session) CalibrationStatus(ctx context.Context) (*api.CalibrationStatus, error) {
	return s.dev.CalibrationStatus(ctx)
}

// UpdateDeadzone parses input and sets the deadzone. Invalid input never
// reaches the device.
func (s *Session) UpdateDeadzone(ctx context.Context, input string) Notice {
	if err := s.guard(); err != nil {
		return s.refused()
	}
	percent, err := api.ParseDeadzone(input)
	if err != nil {
		return failure(err.Error(), err)
	}
	res, err := s.dev.UpdateDeadzone(ctx, percent)
	if err != nil {
		return s.failed("update deadzone", "Failed to update deadzone: ", err)
	}
	if res.Message == "" {
		return success(fmt.Sprintf("Deadzone updated to %d%%", percent))
	}
	return success(res.Message)
}
