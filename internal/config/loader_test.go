package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	tests := []struct {
		input    string
		expected string
	}{
		{"~/config.yaml", filepath.Join(home, "config.yaml")},
		{"/etc/trackctl/config.yaml", "/etc/trackctl/config.yaml"},
		{"./.trackctl.yaml", "./.trackctl.yaml"},
		{"relative/path", "relative/path"},
	}

	for _, tt := range tests {
		if result := expandPath(tt.input); result != tt.expected {
			t.Errorf("expandPath(%s) = %s, expected %s", tt.input, result, tt.expected)
		}
	}
}

func TestGetConfigPaths(t *testing.T) {
	paths := GetConfigPaths()

	if len(paths) != len(ConfigPaths) {
		t.Errorf("Expected %d paths, got %d", len(ConfigPaths), len(paths))
	}

	for _, path := range paths {
		assert.NotContains(t, path, "~/", "path should be expanded")
	}
}

func TestNewLoader(t *testing.T) {
	t.Setenv("TRACKCTL_ENV_FILE", "")
	loader := NewLoader()

	if len(loader.configPaths) != len(ConfigPaths) {
		t.Errorf("Expected %d config paths, got %d", len(ConfigPaths), len(loader.configPaths))
	}
	if loader.envFile != DefaultEnvFile {
		t.Errorf("Expected env file %s, got %s", DefaultEnvFile, loader.envFile)
	}

	t.Setenv("TRACKCTL_ENV_FILE", "/tmp/custom.env")
	if got := NewLoader().envFile; got != "/tmp/custom.env" {
		t.Errorf("Expected env file from TRACKCTL_ENV_FILE, got %s", got)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	loader := &Loader{configPaths: []string{filepath.Join(t.TempDir(), "missing.yaml")}}

	config, err := loader.LoadConfig("")
	require.NoError(t, err)

	defaults := DefaultConfig()
	assert.Equal(t, defaults.Device.BaseURL, config.Device.BaseURL)
	assert.Equal(t, defaults.Stream.BufferSize, config.Stream.BufferSize)
}

func TestLoadConfigFromFile(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "config.yaml")

	configContent := `
version: "1.0"
device:
  base_url: "http://10.0.0.42:8080"
  username: "timer"
stream:
  reconnect_delay: 2s
  buffer_size: 250
output:
  default_format: "json"
  verbose: true
`
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0o600))

	loader := &Loader{}
	config, err := loader.LoadConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, "http://10.0.0.42:8080", config.Device.BaseURL)
	assert.Equal(t, "timer", config.Device.Username)
	assert.Equal(t, 2*time.Second, config.Stream.ReconnectDelay)
	assert.Equal(t, 250, config.Stream.BufferSize)
	assert.Equal(t, "json", config.Output.DefaultFormat)
	assert.True(t, config.Output.Verbose)

	// Keys absent from the file keep their defaults
	assert.True(t, config.Stream.FilterAccessLogs)
	assert.Equal(t, "/api/log_stream", config.Stream.Endpoint)
	assert.Equal(t, 10*time.Second, config.Device.RequestTimeout)
}

func TestLoadConfigLayering(t *testing.T) {
	tempDir := t.TempDir()
	system := filepath.Join(tempDir, "system.yaml")
	project := filepath.Join(tempDir, "project.yaml")

	require.NoError(t, os.WriteFile(system, []byte("device:\n  base_url: \"http://system:8080\"\n  username: \"sys\"\n"), 0o600))
	require.NoError(t, os.WriteFile(project, []byte("device:\n  base_url: \"http://project:8080\"\n"), 0o600))

	loader := &Loader{configPaths: []string{project, system}}
	config, err := loader.LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "http://project:8080", config.Device.BaseURL, "higher priority file wins")
	assert.Equal(t, "sys", config.Device.Username, "lower priority values survive when not overridden")
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "invalid.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("device:\n  base_url: [unclosed\n"), 0o600))

	loader := &Loader{}
	if _, err := loader.LoadConfig(configPath); err == nil {
		t.Error("Expected error for invalid YAML")
	}
}

func TestLoadConfigRejectsUnsafePath(t *testing.T) {
	loader := &Loader{}

	for _, path := range []string{"../outside.yaml", "config.json", "/proc/self/config.yaml"} {
		if _, err := loader.LoadConfig(path); err == nil {
			t.Errorf("Expected error for path %s", path)
		}
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("TRACKCTL_DEVICE_BASE_URL", "http://pi.lan:9000")
	t.Setenv("TRACKCTL_DEVICE_PASSWORD", "hunter2")
	t.Setenv("TRACKCTL_STREAM_BUFFER_SIZE", "50")
	t.Setenv("TRACKCTL_STREAM_FILTER_ACCESS_LOGS", "false")
	t.Setenv("TRACKCTL_POLLING_SENSOR_STATUS_INTERVAL", "500ms")
	t.Setenv("TRACKCTL_OUTPUT_VERBOSE", "true")

	config := DefaultConfig()
	loader := &Loader{}
	require.NoError(t, loader.applyEnvOverrides(config))

	assert.Equal(t, "http://pi.lan:9000", config.Device.BaseURL)
	assert.Equal(t, "hunter2", config.Device.Password)
	assert.Equal(t, 50, config.Stream.BufferSize)
	assert.False(t, config.Stream.FilterAccessLogs)
	assert.Equal(t, 500*time.Millisecond, config.Polling.SensorStatusInterval)
	assert.True(t, config.Output.Verbose)
}

func TestApplyEnvOverridesInvalidValues(t *testing.T) {
	tests := []struct {
		envVar string
		value  string
	}{
		{"TRACKCTL_STREAM_BUFFER_SIZE", "lots"},
		{"TRACKCTL_STREAM_FILTER_ACCESS_LOGS", "maybe"},
		{"TRACKCTL_DEVICE_REQUEST_TIMEOUT", "soon"},
	}

	for _, tt := range tests {
		t.Run(tt.envVar, func(t *testing.T) {
			t.Setenv(tt.envVar, tt.value)

			loader := &Loader{}
			if err := loader.applyEnvOverrides(DefaultConfig()); err == nil {
				t.Errorf("Expected error for invalid %s=%s", tt.envVar, tt.value)
			}
		})
	}
}

func TestLoadEnvFile(t *testing.T) {
	envPath := filepath.Join(t.TempDir(), "trackctl.env")
	require.NoError(t, os.WriteFile(envPath, []byte("TRACKCTL_DEVICE_USERNAME=fromfile\n"), 0o600))

	// Registered so the variable is restored after the test
	t.Setenv("TRACKCTL_DEVICE_USERNAME", "")
	require.NoError(t, os.Unsetenv("TRACKCTL_DEVICE_USERNAME"))

	loader := &Loader{configPaths: []string{}, envFile: envPath}
	config, err := loader.LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "fromfile", config.Device.Username)
}

func TestParseDuration(t *testing.T) {
	var d time.Duration
	require.NoError(t, parseDuration("1m30s", &d))
	if d != 90*time.Second {
		t.Errorf("Expected 90s, got %v", d)
	}
	if err := parseDuration("nope", &d); err == nil {
		t.Error("Expected error for invalid duration")
	}
}

func TestParseInt(t *testing.T) {
	var i int
	require.NoError(t, parseInt("42", &i))
	if i != 42 {
		t.Errorf("Expected 42, got %d", i)
	}
	if err := parseInt("4.2", &i); err == nil {
		t.Error("Expected error for non-integer")
	}
}
