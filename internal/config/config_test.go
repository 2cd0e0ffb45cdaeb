package config

import (
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.Version != "1.0" {
		t.Errorf("Expected version 1.0, got %s", config.Version)
	}

	if config.Device.BaseURL != "http://raspberrypi.local:8080" {
		t.Errorf("Expected default base URL, got %s", config.Device.BaseURL)
	}

	if config.Stream.Endpoint != "/api/log_stream" {
		t.Errorf("Expected stream endpoint /api/log_stream, got %s", config.Stream.Endpoint)
	}

	if config.Stream.BufferSize != 1000 {
		t.Errorf("Expected buffer size 1000, got %d", config.Stream.BufferSize)
	}

	if !config.Stream.FilterAccessLogs {
		t.Error("Expected access log filtering to be enabled by default")
	}

	if config.Output.DefaultFormat != "text" {
		t.Errorf("Expected default format text, got %s", config.Output.DefaultFormat)
	}

	if err := config.Validate(); err != nil {
		t.Errorf("Default config should be valid, got error: %v", err)
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
		errMsg  string
	}{
		{
			name:    "valid config",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "empty base url",
			mutate:  func(c *Config) { c.Device.BaseURL = "" },
			wantErr: true,
			errMsg:  "device base_url must be set",
		},
		{
			name:    "unsupported scheme",
			mutate:  func(c *Config) { c.Device.BaseURL = "ftp://pi:21" },
			wantErr: true,
			errMsg:  "invalid device base_url scheme: ftp (must be http or https)",
		},
		{
			name:    "negative request timeout",
			mutate:  func(c *Config) { c.Device.RequestTimeout = -time.Second },
			wantErr: true,
			errMsg:  "request_timeout must be non-negative",
		},
		{
			name:    "relative stream endpoint",
			mutate:  func(c *Config) { c.Stream.Endpoint = "api/log_stream" },
			wantErr: true,
			errMsg:  "stream endpoint must start with /",
		},
		{
			name:    "zero reconnect delay",
			mutate:  func(c *Config) { c.Stream.ReconnectDelay = 0 },
			wantErr: true,
			errMsg:  "reconnect_delay must be greater than 0",
		},
		{
			name:    "zero buffer size",
			mutate:  func(c *Config) { c.Stream.BufferSize = 0 },
			wantErr: true,
			errMsg:  "buffer_size must be greater than 0",
		},
		{
			name:    "negative near bottom lines",
			mutate:  func(c *Config) { c.Stream.NearBottomLines = -1 },
			wantErr: true,
			errMsg:  "near_bottom_lines must be non-negative",
		},
		{
			name:    "invalid output format",
			mutate:  func(c *Config) { c.Output.DefaultFormat = "xml" },
			wantErr: true,
			errMsg:  "invalid output format: xml (must be one of: json, text, csv, markdown)",
		},
		{
			name:    "invalid color mode",
			mutate:  func(c *Config) { c.Output.ColorMode = "sometimes" },
			wantErr: true,
			errMsg:  "invalid color mode: sometimes (must be one of: auto, always, never)",
		},
		{
			name:    "invalid theme",
			mutate:  func(c *Config) { c.Output.Theme = "neon" },
			wantErr: true,
			errMsg:  "invalid theme: neon (must be one of: default, high-contrast, minimal)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(config)

			err := config.Validate()
			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected error but got none")
				} else if tt.errMsg != "" && err.Error() != tt.errMsg {
					t.Errorf("Expected error message %q, got %q", tt.errMsg, err.Error())
				}
			} else if err != nil {
				t.Errorf("Expected no error but got: %v", err)
			}
		})
	}
}

func TestSampleConfigsParse(t *testing.T) {
	for name, sample := range map[string]string{
		"full":    SampleConfig(),
		"minimal": MinimalSampleConfig(),
	} {
		t.Run(name, func(t *testing.T) {
			config := DefaultConfig()
			if err := yaml.Unmarshal([]byte(sample), config); err != nil {
				t.Fatalf("Expected sample to parse, got %v", err)
			}
			if err := config.Validate(); err != nil {
				t.Errorf("Expected sample to validate, got %v", err)
			}
			if config.Stream.ReconnectDelay != 5*time.Second {
				t.Errorf("Expected reconnect delay 5s, got %v", config.Stream.ReconnectDelay)
			}
		})
	}
}

func TestSampleConfigPointsAtPasswordEnv(t *testing.T) {
	if !strings.Contains(SampleConfig(), "TRACKCTL_DEVICE_PASSWORD") {
		t.Error("Expected sample config to point at the password env var")
	}
}
