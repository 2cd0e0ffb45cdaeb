package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config holds the complete application configuration
type Config struct {
	Version string        `yaml:"version" json:"version"`
	Device  DeviceConfig  `yaml:"device" json:"device"`
	Stream  StreamConfig  `yaml:"stream" json:"stream"`
	Polling PollingConfig `yaml:"polling" json:"polling"`
	Output  OutputConfig  `yaml:"output" json:"output"`
}

// DeviceConfig configures how the device API is reached
type DeviceConfig struct {
	BaseURL        string        `yaml:"base_url" json:"base_url"`               // http(s)://host:port of the device
	Username       string        `yaml:"username" json:"username"`               // login form user
	Password       string        `yaml:"password" json:"-"`                      // login form password (prefer TRACKCTL_DEVICE_PASSWORD)
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout"` // per request, not applied to the log stream
}

// StreamConfig configures the live log stream client
type StreamConfig struct {
	Endpoint         string        `yaml:"endpoint" json:"endpoint"`
	ReconnectDelay   time.Duration `yaml:"reconnect_delay" json:"reconnect_delay"`
	BufferSize       int           `yaml:"buffer_size" json:"buffer_size"`
	NearBottomLines  int           `yaml:"near_bottom_lines" json:"near_bottom_lines"`
	FilterAccessLogs bool          `yaml:"filter_access_logs" json:"filter_access_logs"`
}

// PollingConfig configures the periodic status refreshers
type PollingConfig struct {
	SystemInfoInterval   time.Duration `yaml:"system_info_interval" json:"system_info_interval"`
	SensorStatusInterval time.Duration `yaml:"sensor_status_interval" json:"sensor_status_interval"`
	NoticeTimeout        time.Duration `yaml:"notice_timeout" json:"notice_timeout"`
}

// OutputConfig configures output formatting and display
type OutputConfig struct {
	DefaultFormat   string `yaml:"default_format" json:"default_format"`     // text|json|csv|markdown
	ColorMode       string `yaml:"color_mode" json:"color_mode"`             // auto|always|never
	Theme           string `yaml:"theme" json:"theme"`                       // default|high-contrast|minimal
	Verbose         bool   `yaml:"verbose" json:"verbose"`                   // default verbosity
	TimestampFormat string `yaml:"timestamp_format" json:"timestamp_format"` // time format string
	LogFile         string `yaml:"log_file" json:"log_file"`                 // where the TUI sends its own logs
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Version: "1.0",
		Device: DeviceConfig{
			BaseURL:        "http://raspberrypi.local:8080",
			Username:       "admin",
			Password:       "",
			RequestTimeout: 10 * time.Second,
		},
		Stream: StreamConfig{
			Endpoint:         "/api/log_stream",
			ReconnectDelay:   5 * time.Second,
			BufferSize:       1000,
			NearBottomLines:  2,
			FilterAccessLogs: true,
		},
		Polling: PollingConfig{
			SystemInfoInterval:   5 * time.Second,
			SensorStatusInterval: 2 * time.Second,
			NoticeTimeout:        5 * time.Second,
		},
		Output: OutputConfig{
			DefaultFormat:   "text",
			ColorMode:       "auto",
			Theme:           "default",
			Verbose:         false,
			TimestampFormat: "2006-01-02 15:04:05",
			LogFile:         "~/.cache/trackctl/trackctl.log",
		},
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := c.validateDeviceConfig(); err != nil {
		return err
	}
	if err := c.validateStreamConfig(); err != nil {
		return err
	}
	if err := c.validatePollingConfig(); err != nil {
		return err
	}
	if err := c.validateOutputConfig(); err != nil {
		return err
	}
	return nil
}

// validateDeviceConfig validates device-related configuration
func (c *Config) validateDeviceConfig() error {
	if c.Device.BaseURL == "" {
		return fmt.Errorf("device base_url must be set")
	}
	u, err := url.Parse(c.Device.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid device base_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid device base_url scheme: %s (must be http or https)", u.Scheme)
	}
	if c.Device.RequestTimeout < 0 {
		return fmt.Errorf("request_timeout must be non-negative")
	}
	return nil
}

// validateStreamConfig validates stream-related configuration
func (c *Config) validateStreamConfig() error {
	if !strings.HasPrefix(c.Stream.Endpoint, "/") {
		return fmt.Errorf("stream endpoint must start with /")
	}
	if c.Stream.ReconnectDelay <= 0 {
		return fmt.Errorf("reconnect_delay must be greater than 0")
	}
	if c.Stream.BufferSize < 1 {
		return fmt.Errorf("buffer_size must be greater than 0")
	}
	if c.Stream.NearBottomLines < 0 {
		return fmt.Errorf("near_bottom_lines must be non-negative")
	}
	return nil
}

// validatePollingConfig validates polling intervals
func (c *Config) validatePollingConfig() error {
	if c.Polling.SystemInfoInterval <= 0 {
		return fmt.Errorf("system_info_interval must be greater than 0")
	}
	if c.Polling.SensorStatusInterval <= 0 {
		return fmt.Errorf("sensor_status_interval must be greater than 0")
	}
	if c.Polling.NoticeTimeout < 0 {
		return fmt.Errorf("notice_timeout must be non-negative")
	}
	return nil
}

// validateOutputConfig validates output-related configuration
func (c *Config) validateOutputConfig() error {
	if c.Output.DefaultFormat != "" {
		validFormats := map[string]bool{
			"json":     true,
			"text":     true,
			"csv":      true,
			"markdown": true,
		}
		if !validFormats[c.Output.DefaultFormat] {
			return fmt.Errorf("invalid output format: %s (must be one of: json, text, csv, markdown)", c.Output.DefaultFormat)
		}
	}
	if c.Output.ColorMode != "" {
		validColorModes := map[string]bool{
			"auto":   true,
			"always": true,
			"never":  true,
		}
		if !validColorModes[c.Output.ColorMode] {
			return fmt.Errorf("invalid color mode: %s (must be one of: auto, always, never)", c.Output.ColorMode)
		}
	}
	if c.Output.Theme != "" {
		validThemes := map[string]bool{
			"default":       true,
			"high-contrast": true,
			"minimal":       true,
		}
		if !validThemes[c.Output.Theme] {
			return fmt.Errorf("invalid theme: %s (must be one of: default, high-contrast, minimal)", c.Output.Theme)
		}
	}
	return nil
}

// IsVerbose implements logger.VerboseChecker
func (c *Config) IsVerbose() bool {
	return c.Output.Verbose
}

// SampleConfig returns a documented configuration file
func SampleConfig() string {
	return `# trackctl configuration
version: "1.0"

device:
  # Address of the track sensor web interface
  base_url: "http://raspberrypi.local:8080"
  username: "admin"
  # Leave empty and set TRACKCTL_DEVICE_PASSWORD (or put it in .env)
  password: ""
  request_timeout: 10s

stream:
  endpoint: "/api/log_stream"
  # Fixed delay between a dropped stream and the next connect attempt
  reconnect_delay: 5s
  # Entries kept in the log view, oldest evicted first
  buffer_size: 1000
  # Auto-scroll only when the view is this close to the bottom
  near_bottom_lines: 2
  # Hide "GET"/"POST" web access log lines
  filter_access_logs: true

polling:
  system_info_interval: 5s
  sensor_status_interval: 2s
  notice_timeout: 5s

output:
  default_format: "text"   # text, json, csv, markdown
  color_mode: "auto"       # auto, always, never
  theme: "default"         # default, high-contrast, minimal
  verbose: false
  timestamp_format: "2006-01-02 15:04:05"
  log_file: "~/.cache/trackctl/trackctl.log"
`
}

// MinimalSampleConfig returns a compact configuration file
func MinimalSampleConfig() string {
	return `version: "1.0"
device:
  base_url: "http://raspberrypi.local:8080"
  username: "admin"
`
}
