package api

// Result is the envelope every control endpoint answers with.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// NTPSyncResult is returned by a manual NTP sync.
type NTPSyncResult struct {
	Result
	Server string `json:"server,omitempty"`
	Time   string `json:"time,omitempty"`
}

// SystemInfo is the device clock and mode summary.
type SystemInfo struct {
	CurrentTime       string  `json:"current_time"`
	Side              int     `json:"side"`
	DirectMode        bool    `json:"direct_mode"`
	DebugMode         bool    `json:"debug_mode"`
	LastNTPSyncTime   *string `json:"last_ntp_sync_time"`
	LastNTPSyncServer *string `json:"last_ntp_sync_server"`
}

// CalibrationStatus reports the accelerometer calibration job and live readings.
type CalibrationStatus struct {
	StatusText       string  `json:"status_text"`
	IsCalibrating    bool    `json:"is_calibrating"`
	NoiseThreshold   float64 `json:"noise_threshold"`
	CurrentMagnitude float64 `json:"current_magnitude"`
	DeadzonePercent  int     `json:"deadzone_percent"`
}

// Match is one recorded start/finish run.
type Match struct {
	ID                  int64   `json:"id"`
	Side                int     `json:"side"`
	StartTime           float64 `json:"start_time"`
	FinishTime          float64 `json:"finish_time"`
	StartTimeFormatted  string  `json:"start_time_formatted"`
	FinishTimeFormatted string  `json:"finish_time_formatted"`
	MatchTime           string  `json:"match_time"`
	StartLog            string  `json:"start_log,omitempty"`
	FinishLog           string  `json:"finish_log,omitempty"`
	StartResponse       string  `json:"start_response,omitempty"`
	FinishResponse      string  `json:"finish_response,omitempty"`
	CreatedAt           string  `json:"created_at"`
}

type ntpServersRequest struct {
	Servers []string `json:"servers"`
}

type directModeRequest struct {
	DirectMode bool `json:"direct_mode"`
}

type deadzoneRequest struct {
	DeadzonePercent int `json:"deadzone_percent"`
}
