package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/yildizm/trackctl/internal/api"
	"github.com/yildizm/trackctl/internal/devicesim"
	"github.com/yildizm/trackctl/internal/formatter"
	"github.com/yildizm/trackctl/internal/logger"
	"github.com/yildizm/trackctl/internal/panel"
)

// isolate keeps the host's config files and .env out of the test
func isolate(t *testing.T) {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("TRACKCTL_ENV_FILE", filepath.Join(home, "missing.env"))
	t.Setenv("TRACKCTL_DEVICE_PASSWORD", "admin")
}

func startDevice(t *testing.T) string {
	t.Helper()
	opts := devicesim.DefaultOptions()
	opts.GenerateInterval = 0
	sim := devicesim.New(opts)
	sim.AddMatch(time.Now().Add(-12*time.Second), time.Now())
	ts := httptest.NewServer(sim.Handler())
	t.Cleanup(ts.Close)
	return ts.URL
}

// execute runs trackctl with args against url and returns stdout.
func execute(t *testing.T, url, stdin string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand("test", "abc123", "today")

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--url", url, "--user", "admin", "--no-emoji", "--no-color"}, args...))

	err := root.Execute()
	return out.String(), err
}

func TestDeviceCommands(t *testing.T) {
	isolate(t)
	url := startDevice(t)

	tests := []struct {
		name     string
		args     []string
		stdin    string
		contains string
		wantErr  string
	}{
		{
			name:     "ntp sync",
			args:     []string{"ntp", "sync"},
			contains: "NTP time synchronized successfully with mock.ntp.org",
		},
		{
			name:     "ntp servers set",
			args:     []string{"ntp", "servers", "set", "a.ntp.org", "b.ntp.org"},
			contains: "NTP server list updated successfully.",
		},
		{
			name:     "direct mode on",
			args:     []string{"direct-mode", "on"},
			contains: "Direct mode setting saved as DIRECT. Changes will be applied after reboot.",
		},
		{
			name:    "direct mode invalid",
			args:    []string{"direct-mode", "maybe"},
			wantErr: "invalid mode: maybe",
		},
		{
			name:     "deadzone",
			args:     []string{"calibrate", "deadzone", "25"},
			contains: "Deadzone updated to 25%",
		},
		{
			name:    "deadzone out of range",
			args:    []string{"calibrate", "deadzone", "150"},
			wantErr: "Deadzone must be an integer between 0 and 100",
		},
		{
			name:     "trigger start",
			args:     []string{"trigger", "start"},
			contains: "Trigger start sent",
		},
		{
			name:     "reboot declined",
			args:     []string{"system", "reboot"},
			stdin:    "n\n",
			contains: "Cancelled",
		},
		{
			name:     "calibration status",
			args:     []string{"calibrate", "status"},
			contains: "Not calibrated",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, url, tt.stdin, tt.args...)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Contains(t, out, tt.contains)
		})
	}
}

func TestStatusJSON(t *testing.T) {
	isolate(t)
	url := startDevice(t)

	out, err := execute(t, url, "", "status", "-o", "json")
	require.NoError(t, err)

	var info map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.EqualValues(t, 2, info["side"])
	assert.Equal(t, true, info["debug_mode"])
}

func TestMatchesCommands(t *testing.T) {
	isolate(t)
	url := startDevice(t)

	out, err := execute(t, url, "", "matches", "list", "-o", "json")
	require.NoError(t, err)
	var listed struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &listed))
	assert.Equal(t, 1, listed.Count)

	file := filepath.Join(t.TempDir(), "export.json")
	out, err = execute(t, url, "", "matches", "export", "--file", file)
	require.NoError(t, err)
	assert.Contains(t, out, "Exported")
	assert.FileExists(t, file)

	out, err = execute(t, url, "y\n", "matches", "clear")
	require.NoError(t, err)
	assert.Contains(t, out, "Match history cleared successfully")

	out, err = execute(t, url, "", "matches", "list", "-o", "json")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &listed))
	assert.Equal(t, 0, listed.Count)
}

func TestKillFollowUp(t *testing.T) {
	isolate(t)
	url := startDevice(t)

	out, err := execute(t, url, "", "system", "kill", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "Script termination initiated")
	assert.Contains(t, out, "Script is terminating...")
}

func TestNTPServersFromFile(t *testing.T) {
	isolate(t)
	url := startDevice(t)

	file := filepath.Join(t.TempDir(), "servers.txt")
	require.NoError(t, os.WriteFile(file, []byte("pool.ntp.org\n\n time.google.com \n"), 0o600))

	out, err := execute(t, url, "", "ntp", "servers", "set", "--file", file)
	require.NoError(t, err)
	assert.Contains(t, out, "NTP server list updated successfully.")

	_, err = execute(t, url, "", "ntp", "servers", "set", "--file", file, "extra.ntp.org")
	assert.Error(t, err)
}

func TestUnreachableDevice(t *testing.T) {
	isolate(t)

	_, err := execute(t, "http://127.0.0.1:1", "", "ntp", "sync")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Request failed:")
}

func TestConfigCommands(t *testing.T) {
	isolate(t)
	file := filepath.Join(t.TempDir(), "trackctl.yaml")

	out, err := execute(t, "http://localhost:8080", "", "config", "init", "--file", file)
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration file created at")

	_, err = execute(t, "http://localhost:8080", "", "config", "init", "--file", file)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	out, err = execute(t, "http://localhost:8080", "", "--config", file, "config", "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration is valid")

	out, err = execute(t, "http://localhost:8080", "", "--config", file, "config", "show", "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"base_url"`)
	assert.NotContains(t, out, "password")
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "http://localhost:8080", "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "trackctl test (abc123) built on today")
}

func TestParseOnOff(t *testing.T) {
	tests := []struct {
		in      string
		want    bool
		wantErr bool
	}{
		{"on", true, false},
		{"DIRECT", true, false},
		{"off", false, false},
		{"proxy", false, false},
		{"sometimes", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseOnOff(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

// brokenFormatter fails to render notices
type brokenFormatter struct {
	formatter.Formatter
}

func (brokenFormatter) FormatNotice(panel.Notice) ([]byte, error) {
	return nil, errors.New("template broken")
}

func TestPushServerListReportsFailures(t *testing.T) {
	isolate(t)
	url := startDevice(t)

	client, err := api.New(api.Config{BaseURL: url, Username: "admin", Password: "admin"})
	require.NoError(t, err)
	session := panel.NewSession(client, logger.Nop())
	text, err := formatter.New(formatter.FormatText, false)
	require.NoError(t, err)

	tests := []struct {
		name     string
		format   formatter.Formatter
		failing  bool
		contains string
	}{
		{name: "write error", format: text, failing: true, contains: "failed to write result: disk full"},
		{name: "format error", format: brokenFormatter{}, contains: "failed to format result: template broken"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := &cobra.Command{}
			var stdout, stderr bytes.Buffer
			if tt.failing {
				cmd.SetOut(failingWriter{})
			} else {
				cmd.SetOut(&stdout)
			}
			cmd.SetErr(&stderr)

			pushServerList(context.Background(), cmd, session, tt.format, []string{"a.ntp.org"})
			assert.Contains(t, stderr.String(), tt.contains)
			assert.Empty(t, stdout.String())
		})
	}
}

func TestTriggerLogsRefreshFailure(t *testing.T) {
	isolate(t)
	opts := devicesim.DefaultOptions()
	opts.GenerateInterval = 0
	sim := devicesim.New(opts)
	handler := sim.Handler()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/system_info" {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		handler.ServeHTTP(w, r)
	}))
	t.Cleanup(ts.Close)

	var logs bytes.Buffer
	logger.SetOutput(&logs)
	t.Cleanup(func() { logger.SetOutput(nil) })

	out, err := execute(t, ts.URL, "", "--verbose", "trigger", "start")
	require.NoError(t, err)
	assert.Contains(t, out, "Trigger start sent")
	assert.Contains(t, logs.String(), "system info refresh before trigger start failed")
}
