package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
)

// Deadzone bounds accepted by the sensor.
const (
	MinDeadzone = 0
	MaxDeadzone = 100
)

// SystemInfo fetches the device clock and mode summary.
func (c *Client) SystemInfo(ctx context.Context) (*SystemInfo, error) {
	var info SystemInfo
	if err := c.call(ctx, "system info", http.MethodGet, PathSystemInfo, nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// TriggerNTPSync asks the device to synchronise its clock now.
func (c *Client) TriggerNTPSync(ctx context.Context) (*NTPSyncResult, error) {
	var res NTPSyncResult
	if err := c.call(ctx, "ntp sync", http.MethodPost, PathTriggerNTPSync, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// UpdateNTPServers replaces the device's NTP server list. Blank entries are
// removed; an empty result is rejected without contacting the device.
func (c *Client) UpdateNTPServers(ctx context.Context, servers []string) error {
	cleaned := CleanServerList(servers)
	if len(cleaned) == 0 {
		return NewValidationError("servers", "", "Server list cannot be empty")
	}
	var res Result
	return c.call(ctx, "update ntp servers", http.MethodPost, PathUpdateNTPServers, ntpServersRequest{Servers: cleaned}, &res)
}

// CleanServerList trims entries and drops blank ones, keeping order.
func CleanServerList(servers []string) []string {
	out := make([]string, 0, len(servers))
	for _, s := range servers {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Reboot restarts the device.
func (c *Client) Reboot(ctx context.Context) error {
	var res Result
	return c.call(ctx, "reboot", http.MethodPost, PathRebootSystem, nil, &res)
}

// Shutdown powers the device off.
func (c *Client) Shutdown(ctx context.Context) error {
	var res Result
	return c.call(ctx, "shutdown", http.MethodPost, PathShutdownSystem, nil, &res)
}

// KillScript terminates the sensor service process.
func (c *Client) KillScript(ctx context.Context) error {
	var res Result
	return c.call(ctx, "kill script", http.MethodPost, PathKillScript, nil, &res)
}

// SaveDirectMode stores the direct mode flag, applied after the next reboot.
func (c *Client) SaveDirectMode(ctx context.Context, enabled bool) (*Result, error) {
	var res Result
	if err := c.call(ctx, "save direct mode", http.MethodPost, PathSaveDirectMode, directModeRequest{DirectMode: enabled}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// ClearMatches deletes the stored match history.
func (c *Client) ClearMatches(ctx context.Context) (*Result, error) {
	var res Result
	if err := c.call(ctx, "clear matches", http.MethodPost, PathClearMatches, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Matches lists the most recent recorded matches, newest first.
func (c *Client) Matches(ctx context.Context) ([]Match, error) {
	var matches []Match
	if err := c.call(ctx, "matches", http.MethodGet, PathMatches, nil, &matches); err != nil {
		return nil, err
	}
	return matches, nil
}

// ExportDatabase streams the match database file into w.
func (c *Client) ExportDatabase(ctx context.Context, w io.Writer) (int64, error) {
	resp, err := c.send(ctx, "export database", http.MethodGet, PathExportDatabase, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return 0, remoteErrorFromBody("export database", resp.StatusCode, data)
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, &TransportError{Op: "export database", Err: err}
	}
	return n, nil
}

// TriggerStart simulates a start sensor event. The device ignores it unless
// debug mode is on.
func (c *Client) TriggerStart(ctx context.Context) error {
	return c.trigger(ctx, "trigger start", PathTriggerStart)
}

// TriggerFinish simulates a finish sensor event.
func (c *Client) TriggerFinish(ctx context.Context) error {
	return c.trigger(ctx, "trigger finish", PathTriggerFinish)
}

func (c *Client) trigger(ctx context.Context, op, path string) error {
	resp, err := c.send(ctx, op, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	// The device answers with a redirect back to its index page
	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return remoteErrorFromBody(op, resp.StatusCode, data)
	}
	return nil
}

// StartCalibration begins the accelerometer noise calibration.
func (c *Client) StartCalibration(ctx context.Context) (*Result, error) {
	var res Result
	if err := c.call(ctx, "start calibration", http.MethodPost, PathStartCalibration, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// CalibrationStatus fetches the calibration state and live sensor readings.
func (c *Client) CalibrationStatus(ctx context.Context) (*CalibrationStatus, error) {
	var status CalibrationStatus
	if err := c.call(ctx, "calibration status", http.MethodGet, PathCalibrationStatus, nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// UpdateDeadzone sets the motion deadzone. Values outside [0,100] are
// rejected before any request is sent.
func (c *Client) UpdateDeadzone(ctx context.Context, percent int) (*Result, error) {
	if err := ValidateDeadzone(percent); err != nil {
		return nil, err
	}
	var res Result
	if err := c.call(ctx, "update deadzone", http.MethodPost, PathUpdateDeadzone, deadzoneRequest{DeadzonePercent: percent}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// ValidateDeadzone checks the deadzone range.
func ValidateDeadzone(percent int) error {
	if percent < MinDeadzone || percent > MaxDeadzone {
		return NewValidationError("deadzone_percent", strconv.Itoa(percent),
			fmt.Sprintf("Deadzone must be an integer between %d and %d", MinDeadzone, MaxDeadzone))
	}
	return nil
}

// ParseDeadzone parses user input and validates it.
func ParseDeadzone(input string) (int, error) {
	input = strings.TrimSpace(input)
	percent, err := strconv.Atoi(input)
	if err != nil {
		return 0, NewValidationError("deadzone_percent", input,
			fmt.Sprintf("Deadzone must be an integer between %d and %d", MinDeadzone, MaxDeadzone))
	}
	return percent, ValidateDeadzone(percent)
}
