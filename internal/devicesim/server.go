// Package devicesim serves a simulated track sensor device: the same web API
// and log stream as the real one, backed by in-memory state.
package devicesim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yildizm/trackctl/internal/logger"
)

// Options configures the simulated device
type Options struct {
	Username string
	Password string

	Side              int
	DirectMode        bool
	DebugMode         bool
	NTPServers        []string
	Deadzone          int
	SensorUnavailable bool

	// HeartbeatInterval is the idle time before a heartbeat is sent on the
	// log stream.
	HeartbeatInterval time.Duration
	// CalibrationDuration is how long a calibration run takes.
	CalibrationDuration time.Duration
	// GenerateInterval emits synthetic sensor log lines; zero disables it.
	GenerateInterval time.Duration
	// NTPServerName is reported by a manual sync.
	NTPServerName string

	Logger *logger.Logger
}

// DefaultOptions mirrors the device's standalone mock mode.
func DefaultOptions() Options {
	return Options{
		Username:   "admin",
		Password:   "admin",
		Side:       2,
		DebugMode:  true,
		Deadzone:   10,
		NTPServers: []string{"pool.ntp.org", "time.google.com", "time.apple.com"},

		HeartbeatInterval:   500 * time.Millisecond,
		CalibrationDuration: 3 * time.Second,
		GenerateInterval:    2 * time.Second,
		NTPServerName:       "mock.ntp.org",
	}
}

// Server is a simulated device
type Server struct {
	opts   Options
	engine *gin.Engine
	state  *deviceState
	hub    *LogHub
	log    *logger.Logger

	sessionsMu sync.Mutex
	sessions   map[string]time.Time

	now func() time.Time
	wg  sync.WaitGroup
}

// New builds the simulator and its routes.
func New(opts Options) *Server {
	if opts.HeartbeatInterval <= 0 {
		opts.HeartbeatInterval = 500 * time.Millisecond
	}
	if opts.NTPServerName == "" {
		opts.NTPServerName = "mock.ntp.org"
	}
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}

	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		opts:     opts,
		engine:   gin.New(),
		state:    newDeviceState(opts),
		hub:      NewLogHub(1000),
		log:      log.WithComponent("devicesim"),
		sessions: make(map[string]time.Time),
		now:      time.Now,
	}
	s.engine.Use(gin.Recovery(), s.accessLog())
	s.setupRoutes()
	return s
}

// Handler returns the HTTP handler, for httptest servers.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Logs exposes the device log hub.
func (s *Server) Logs() *LogHub {
	return s.hub
}

// AddMatch stores a finished run, used to seed demo data.
func (s *Server) AddMatch(start, finish time.Time) {
	m := s.state.addMatch(start, finish)
	s.hub.Logf("INFO", "Match saved to database: %s seconds", m.MatchTime)
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
		// Request contexts end with ctx so open log streams return on shutdown
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	if s.opts.GenerateInterval > 0 {
		s.wg.Add(1)
		go s.generate(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("simulated device listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("device simulator: %w", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.wg.Wait()
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("device simulator shutdown: %w", err)
	}
	return nil
}

// generate emits sensor-like log lines, the occasional warning, and a match
// every few cycles when debug mode is on.
func (s *Server) generate(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.opts.GenerateInterval)
	defer ticker.Stop()

	var cycle int
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		cycle++

		switch {
		case cycle%15 == 0:
			s.hub.Logf("WARNING", "NTP offset %.3fs exceeds threshold", 0.5+rand.Float64())
		case cycle%7 == 0:
			s.hub.Logf("DEBUG", "Accelerometer magnitude %.4f g", s.magnitude())
		case cycle%10 == 0 && s.state.isDebug():
			finish := s.now()
			start := finish.Add(-time.Duration(5000+rand.IntN(20000)) * time.Millisecond)
			s.AddMatch(start, finish)
		default:
			s.hub.Logf("INFO", "Sensor heartbeat ok (side %d)", s.opts.Side)
		}
	}
}

// magnitude is a slowly varying synthetic accelerometer reading.
func (s *Server) magnitude() float64 {
	t := float64(s.now().UnixMilli()) / 1000
	return 0.02 + 0.01*math.Abs(math.Sin(t)) + rand.Float64()*0.002
}

func (s *Server) runCalibration() {
	defer s.wg.Done()
	time.Sleep(s.opts.CalibrationDuration)

	threshold := 0.015 + rand.Float64()*0.01
	s.state.completeCalibration(threshold)
	s.hub.Logf("INFO", "Calibration complete, noise threshold %.4f g", threshold)
}
