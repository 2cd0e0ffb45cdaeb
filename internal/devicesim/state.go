package devicesim

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/yildizm/trackctl/internal/api"
)

// MaxMatches is how many recorded matches the device keeps.
const MaxMatches = 40

const matchTimeLayout = "2006-01-02 15:04:05.000"

var (
	errCalibrationRunning = errors.New("calibration already in progress")
	errSensorUnavailable  = errors.New("sensor not initialized")
)

// deviceState is the mutable state behind the simulated API.
type deviceState struct {
	mu sync.Mutex

	side       int
	directMode bool
	debugMode  bool
	ntpServers []string

	lastSyncTime   *string
	lastSyncServer *string

	matches      []api.Match
	nextMatchID  int64
	pendingStart *time.Time

	sensorReady     bool
	calibrating     bool
	calibrationText string
	noiseThreshold  float64
	deadzone        int
}

func newDeviceState(opts Options) *deviceState {
	servers := make([]string, len(opts.NTPServers))
	copy(servers, opts.NTPServers)
	return &deviceState{
		side:            opts.Side,
		directMode:      opts.DirectMode,
		debugMode:       opts.DebugMode,
		ntpServers:      servers,
		nextMatchID:     1,
		sensorReady:     !opts.SensorUnavailable,
		calibrationText: "Not calibrated",
		deadzone:        opts.Deadzone,
	}
}

func (s *deviceState) systemInfo(now time.Time) api.SystemInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return api.SystemInfo{
		CurrentTime:       now.Format("2006-01-02 15:04:05"),
		Side:              s.side,
		DirectMode:        s.directMode,
		DebugMode:         s.debugMode,
		LastNTPSyncTime:   s.lastSyncTime,
		LastNTPSyncServer: s.lastSyncServer,
	}
}

func (s *deviceState) recordSync(server string, at time.Time) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	formatted := at.Format(matchTimeLayout)
	s.lastSyncTime = &formatted
	s.lastSyncServer = &server
	return formatted
}

func (s *deviceState) setNTPServers(servers []string) []string {
	unique := make([]string, 0, len(servers))
	seen := make(map[string]bool, len(servers))
	for _, srv := range api.CleanServerList(servers) {
		if !seen[srv] {
			seen[srv] = true
			unique = append(unique, srv)
		}
	}

	s.mu.Lock()
	s.ntpServers = unique
	s.mu.Unlock()
	return unique
}

func (s *deviceState) servers() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.ntpServers))
	copy(out, s.ntpServers)
	return out
}

func (s *deviceState) setDirectMode(enabled bool) {
	s.mu.Lock()
	s.directMode = enabled
	s.mu.Unlock()
}

func (s *deviceState) isDebug() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.debugMode
}

// start records a start trigger; finish pairs it into a match.
func (s *deviceState) start(at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingStart = &at
}

func (s *deviceState) finish(at time.Time) (api.Match, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pendingStart == nil {
		return api.Match{}, false
	}
	started := *s.pendingStart
	s.pendingStart = nil
	return s.addMatchLocked(started, at), true
}

func (s *deviceState) addMatch(start, finish time.Time) api.Match {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addMatchLocked(start, finish)
}

func (s *deviceState) addMatchLocked(start, finish time.Time) api.Match {
	elapsed := finish.Sub(start).Seconds()
	m := api.Match{
		ID:                  s.nextMatchID,
		Side:                s.side,
		StartTime:           unixSeconds(start),
		FinishTime:          unixSeconds(finish),
		StartTimeFormatted:  start.Format(matchTimeLayout),
		FinishTimeFormatted: finish.Format(matchTimeLayout),
		MatchTime:           fmt.Sprintf("%.2f", elapsed),
		StartLog:            fmt.Sprintf("START side=%d", s.side),
		FinishLog:           fmt.Sprintf("FINISH side=%d", s.side),
		StartResponse:       `{"status": "ok"}`,
		FinishResponse:      `{"status": "ok"}`,
		CreatedAt:           finish.Format("2006-01-02 15:04:05"),
	}
	s.nextMatchID++

	// newest first, bounded
	s.matches = append([]api.Match{m}, s.matches...)
	if len(s.matches) > MaxMatches {
		s.matches = s.matches[:MaxMatches]
	}
	return m
}

func (s *deviceState) listMatches() []api.Match {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]api.Match, len(s.matches))
	copy(out, s.matches)
	return out
}

func (s *deviceState) clearMatches() {
	s.mu.Lock()
	s.matches = nil
	s.mu.Unlock()
}

func (s *deviceState) beginCalibration() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case !s.sensorReady:
		return errSensorUnavailable
	case s.calibrating:
		return errCalibrationRunning
	}
	s.calibrating = true
	s.calibrationText = "Calibration in progress... keep the sensor still"
	return nil
}

func (s *deviceState) completeCalibration(threshold float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calibrating = false
	s.noiseThreshold = threshold
	s.calibrationText = fmt.Sprintf("Calibrated (noise threshold %.4f g)", threshold)
}

func (s *deviceState) calibrationStatus(magnitude float64) api.CalibrationStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return api.CalibrationStatus{
		StatusText:       s.calibrationText,
		IsCalibrating:    s.calibrating,
		NoiseThreshold:   s.noiseThreshold,
		CurrentMagnitude: magnitude,
		DeadzonePercent:  s.deadzone,
	}
}

func (s *deviceState) setDeadzone(percent int) {
	s.mu.Lock()
	s.deadzone = percent
	s.mu.Unlock()
}

func unixSeconds(t time.Time) float64 {
	return math.Round(float64(t.UnixNano())/1e6) / 1e3
}
