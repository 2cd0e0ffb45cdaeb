package config

import (
	"testing"
	"time"
)

func TestTimingDefaults(t *testing.T) {
	config := DefaultConfig()

	if config.Device.RequestTimeout != 10*time.Second {
		t.Errorf("Expected RequestTimeout to be 10s, got %v", config.Device.RequestTimeout)
	}

	if config.Stream.ReconnectDelay != 5*time.Second {
		t.Errorf("Expected ReconnectDelay to be 5s, got %v", config.Stream.ReconnectDelay)
	}

	if config.Polling.SystemInfoInterval != 5*time.Second {
		t.Errorf("Expected SystemInfoInterval to be 5s, got %v", config.Polling.SystemInfoInterval)
	}

	if config.Polling.SensorStatusInterval != 2*time.Second {
		t.Errorf("Expected SensorStatusInterval to be 2s, got %v", config.Polling.SensorStatusInterval)
	}

	if config.Polling.NoticeTimeout != 5*time.Second {
		t.Errorf("Expected NoticeTimeout to be 5s, got %v", config.Polling.NoticeTimeout)
	}
}

func TestPollingValidation(t *testing.T) {
	tests := []struct {
		name    string
		polling PollingConfig
		wantErr bool
		errMsg  string
	}{
		{
			name: "valid intervals",
			polling: PollingConfig{
				SystemInfoInterval:   5 * time.Second,
				SensorStatusInterval: 2 * time.Second,
				NoticeTimeout:        5 * time.Second,
			},
			wantErr: false,
		},
		{
			name: "notice timeout zero keeps notices sticky",
			polling: PollingConfig{
				SystemInfoInterval:   5 * time.Second,
				SensorStatusInterval: 2 * time.Second,
			},
			wantErr: false,
		},
		{
			name: "zero system info interval",
			polling: PollingConfig{
				SensorStatusInterval: 2 * time.Second,
			},
			wantErr: true,
			errMsg:  "system_info_interval must be greater than 0",
		},
		{
			name: "negative sensor interval",
			polling: PollingConfig{
				SystemInfoInterval:   5 * time.Second,
				SensorStatusInterval: -time.Second,
			},
			wantErr: true,
			errMsg:  "sensor_status_interval must be greater than 0",
		},
		{
			name: "negative notice timeout",
			polling: PollingConfig{
				SystemInfoInterval:   5 * time.Second,
				SensorStatusInterval: 2 * time.Second,
				NoticeTimeout:        -time.Second,
			},
			wantErr: true,
			errMsg:  "notice_timeout must be non-negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			config.Polling = tt.polling
			err := config.Validate()

			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected error but got none")
				} else if err.Error() != tt.errMsg {
					t.Errorf("Expected error message %q, got %q", tt.errMsg, err.Error())
				}
			} else if err != nil {
				t.Errorf("Expected no error but got: %v", err)
			}
		})
	}
}
