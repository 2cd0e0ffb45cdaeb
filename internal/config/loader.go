package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ConfigPaths defines the config file search paths in priority order
var ConfigPaths = []string{
	"./.trackctl.yaml",               // Project-specific config (highest priority)
	"~/.config/trackctl/config.yaml", // User config
	"/etc/trackctl/config.yaml",      // System config (lowest priority)
}

// DefaultEnvFile is loaded before env overrides when present
const DefaultEnvFile = ".env"

// Loader handles configuration loading with priority merging
type Loader struct {
	configPaths []string
	envFile     string
}

// NewLoader creates a new config loader
func NewLoader() *Loader {
	envFile := os.Getenv("TRACKCTL_ENV_FILE")
	if envFile == "" {
		envFile = DefaultEnvFile
	}
	return &Loader{
		configPaths: ConfigPaths,
		envFile:     envFile,
	}
}

// LoadConfig loads configuration from multiple sources with priority order:
// 1. Command line flags (handled by caller)
// 2. Environment variables (including a .env file)
// 3. ./.trackctl.yaml
// 4. ~/.config/trackctl/config.yaml
// 5. /etc/trackctl/config.yaml
// 6. Built-in defaults
func (l *Loader) LoadConfig(customPath string) (*Config, error) {
	config := DefaultConfig()

	if customPath != "" {
		if err := validateConfigPath(customPath); err != nil {
			return nil, fmt.Errorf("invalid config path: %w", err)
		}
		if err := l.loadFromFile(config, customPath); err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", customPath, err)
		}
	} else {
		// Lowest priority first so later files win
		for i := len(l.configPaths) - 1; i >= 0; i-- {
			expandedPath := expandPath(l.configPaths[i])
			if fileExists(expandedPath) {
				if err := l.loadFromFile(config, expandedPath); err != nil {
					fmt.Fprintf(os.Stderr, "Warning: Failed to load config from %s: %v\n", expandedPath, err)
				}
			}
		}
	}

	if err := l.loadEnvFile(); err != nil {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}

	if err := l.applyEnvOverrides(config); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// loadFromFile decodes a YAML file on top of the existing config; keys absent
// from the file keep their current values
func (l *Loader) loadFromFile(config *Config, path string) error {
	// #nosec G304 - path is validated by validateConfigPath() before reaching here
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	return nil
}

// loadEnvFile loads KEY=VALUE pairs into the process environment without
// overriding variables that are already set
func (l *Loader) loadEnvFile() error {
	if l.envFile == "" || !fileExists(l.envFile) {
		return nil
	}
	return godotenv.Load(l.envFile)
}

// applyEnvOverrides applies environment variable overrides to the config
func (l *Loader) applyEnvOverrides(config *Config) error {
	envMappings := map[string]func(string) error{
		// Device Config
		"TRACKCTL_DEVICE_BASE_URL":        func(v string) error { config.Device.BaseURL = v; return nil },
		"TRACKCTL_DEVICE_USERNAME":        func(v string) error { config.Device.Username = v; return nil },
		"TRACKCTL_DEVICE_PASSWORD":        func(v string) error { config.Device.Password = v; return nil },
		"TRACKCTL_DEVICE_REQUEST_TIMEOUT": func(v string) error { return parseDuration(v, &config.Device.RequestTimeout) },

		// Stream Config
		"TRACKCTL_STREAM_ENDPOINT":           func(v string) error { config.Stream.Endpoint = v; return nil },
		"TRACKCTL_STREAM_RECONNECT_DELAY":    func(v string) error { return parseDuration(v, &config.Stream.ReconnectDelay) },
		"TRACKCTL_STREAM_BUFFER_SIZE":        func(v string) error { return parseInt(v, &config.Stream.BufferSize) },
		"TRACKCTL_STREAM_NEAR_BOTTOM_LINES":  func(v string) error { return parseInt(v, &config.Stream.NearBottomLines) },
		"TRACKCTL_STREAM_FILTER_ACCESS_LOGS": func(v string) error { return parseBool(v, &config.Stream.FilterAccessLogs) },

		// Polling Config
		"TRACKCTL_POLLING_SYSTEM_INFO_INTERVAL":   func(v string) error { return parseDuration(v, &config.Polling.SystemInfoInterval) },
		"TRACKCTL_POLLING_SENSOR_STATUS_INTERVAL": func(v string) error { return parseDuration(v, &config.Polling.SensorStatusInterval) },
		"TRACKCTL_POLLING_NOTICE_TIMEOUT":         func(v string) error { return parseDuration(v, &config.Polling.NoticeTimeout) },

		// Output Config
		"TRACKCTL_OUTPUT_DEFAULT_FORMAT":   func(v string) error { config.Output.DefaultFormat = v; return nil },
		"TRACKCTL_OUTPUT_COLOR_MODE":       func(v string) error { config.Output.ColorMode = v; return nil },
		"TRACKCTL_OUTPUT_THEME":            func(v string) error { config.Output.Theme = v; return nil },
		"TRACKCTL_OUTPUT_VERBOSE":          func(v string) error { return parseBool(v, &config.Output.Verbose) },
		"TRACKCTL_OUTPUT_TIMESTAMP_FORMAT": func(v string) error { config.Output.TimestampFormat = v; return nil },
		"TRACKCTL_OUTPUT_LOG_FILE":         func(v string) error { config.Output.LogFile = v; return nil },
	}

	for envVar, setter := range envMappings {
		if value := os.Getenv(envVar); value != "" {
			if err := setter(value); err != nil {
				return fmt.Errorf("invalid value for %s: %w", envVar, err)
			}
		}
	}

	return nil
}

// GetConfigPaths returns the list of configuration file paths that will be searched
func GetConfigPaths() []string {
	paths := make([]string, 0, len(ConfigPaths))
	for _, path := range ConfigPaths {
		paths = append(paths, expandPath(path))
	}
	return paths
}

// FindConfigFile finds the first existing config file in the search paths
func FindConfigFile() (string, bool) {
	for _, path := range ConfigPaths {
		expandedPath := expandPath(path)
		if fileExists(expandedPath) {
			return expandedPath, true
		}
	}
	return "", false
}

// ExpandPath expands a leading ~/ to the user's home directory
func ExpandPath(path string) string {
	return expandPath(path)
}

// Helper functions

// validateConfigPath validates that a config path is safe to read
func validateConfigPath(path string) error {
	cleanPath := filepath.Clean(path)

	if strings.Contains(cleanPath, "..") {
		return fmt.Errorf("path traversal not allowed")
	}

	ext := strings.ToLower(filepath.Ext(cleanPath))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("config file must have .yaml or .yml extension")
	}

	absPath, err := filepath.Abs(cleanPath)
	if err != nil {
		return fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	if strings.HasPrefix(absPath, "/proc/") || strings.HasPrefix(absPath, "/sys/") {
		return fmt.Errorf("access to system files not allowed")
	}

	return nil
}

// expandPath expands ~ to home directory
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}

// fileExists checks if a file exists
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Type conversion helpers

func parseInt(s string, dst *int) error {
	val, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	*dst = val
	return nil
}

func parseBool(s string, dst *bool) error {
	val, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	*dst = val
	return nil
}

func parseDuration(s string, dst *time.Duration) error {
	val, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*dst = val
	return nil
}
