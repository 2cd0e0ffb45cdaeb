package devicesim

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yildizm/trackctl/internal/api"
)

func fail(c *gin.Context, status int, msg string) {
	c.JSON(status, api.Result{Success: false, Error: msg})
}

func (s *Server) systemInfoHandler(c *gin.Context) {
	c.JSON(http.StatusOK, s.state.systemInfo(s.now()))
}

func (s *Server) ntpSyncHandler(c *gin.Context) {
	server := s.opts.NTPServerName
	synced := s.state.recordSync(server, s.now())
	s.hub.Logf("INFO", "Manual NTP sync successful with %s", server)
	c.JSON(http.StatusOK, api.NTPSyncResult{
		Result: api.Result{Success: true},
		Server: server,
		Time:   synced,
	})
}

func (s *Server) updateNTPServersHandler(c *gin.Context) {
	var req struct {
		Servers []string `json:"servers"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Servers == nil {
		fail(c, http.StatusOK, "Invalid server list format")
		return
	}
	if len(req.Servers) == 0 {
		fail(c, http.StatusOK, "Server list cannot be empty")
		return
	}

	servers := s.state.setNTPServers(req.Servers)
	s.hub.Logf("INFO", "NTP server list updated and saved to config: %s", strings.Join(servers, ", "))
	c.JSON(http.StatusOK, api.Result{Success: true})
}

// powerHandler covers reboot, shutdown and kill. The simulator only logs.
func (s *Server) powerHandler(logLine string) gin.HandlerFunc {
	return func(c *gin.Context) {
		s.hub.Logf("WARNING", "%s", logLine)
		c.JSON(http.StatusOK, api.Result{Success: true})
	}
}

func (s *Server) saveDirectModeHandler(c *gin.Context) {
	var req struct {
		DirectMode bool `json:"direct_mode"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusOK, err.Error())
		return
	}

	s.state.setDirectMode(req.DirectMode)
	mode := "OFF"
	if req.DirectMode {
		mode = "ON"
	}
	s.hub.Logf("INFO", "Direct mode setting updated to %s and saved to config", mode)
	c.JSON(http.StatusOK, api.Result{Success: true, Message: "Direct mode setting saved"})
}

func (s *Server) matchesHandler(c *gin.Context) {
	c.JSON(http.StatusOK, s.state.listMatches())
}

func (s *Server) clearMatchesHandler(c *gin.Context) {
	s.state.clearMatches()
	s.hub.Logf("INFO", "Match history cleared")
	c.JSON(http.StatusOK, api.Result{Success: true, Message: "Match history cleared successfully"})
}

// exportDatabaseHandler serves the match store as a JSON document download.
func (s *Server) exportDatabaseHandler(c *gin.Context) {
	data, err := json.MarshalIndent(s.state.listMatches(), "", "  ")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Header("Content-Disposition", "attachment; filename=matches.json")
	c.Data(http.StatusOK, "application/json", data)
}

func (s *Server) triggerHandler(start bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.state.isDebug() {
			now := s.now()
			if start {
				s.hub.Logf("INFO", "Web interface triggered START event")
				s.state.start(now)
			} else {
				s.hub.Logf("INFO", "Web interface triggered FINISH event")
				if m, ok := s.state.finish(now); ok {
					s.hub.Logf("INFO", "Match saved to database: %s seconds", m.MatchTime)
				}
			}
		}
		c.Redirect(http.StatusFound, "/")
	}
}

func (s *Server) startCalibrationHandler(c *gin.Context) {
	if err := s.state.beginCalibration(); err != nil {
		switch {
		case errors.Is(err, errCalibrationRunning):
			fail(c, http.StatusConflict, "Calibration is already in progress.")
		case errors.Is(err, errSensorUnavailable):
			fail(c, http.StatusServiceUnavailable, "Sensor not initialized. Cannot calibrate.")
		default:
			fail(c, http.StatusInternalServerError, err.Error())
		}
		return
	}

	s.hub.Logf("INFO", "Calibration started, sampling noise for %v", s.opts.CalibrationDuration)
	s.wg.Add(1)
	go s.runCalibration()
	c.JSON(http.StatusOK, api.Result{Success: true, Message: "Calibration started"})
}

func (s *Server) calibrationStatusHandler(c *gin.Context) {
	c.JSON(http.StatusOK, s.state.calibrationStatus(s.magnitude()))
}

func (s *Server) updateDeadzoneHandler(c *gin.Context) {
	var req struct {
		DeadzonePercent *json.Number `json:"deadzone_percent"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.DeadzonePercent == nil {
		fail(c, http.StatusBadRequest, "Missing 'deadzone_percent' parameter")
		return
	}

	percent, err := req.DeadzonePercent.Int64()
	if err != nil || percent < api.MinDeadzone || percent > api.MaxDeadzone {
		fail(c, http.StatusBadRequest, fmt.Sprintf("Invalid deadzone value: %s (must be 0-100)", req.DeadzonePercent.String()))
		return
	}

	s.state.setDeadzone(int(percent))
	msg := fmt.Sprintf("Deadzone updated to %d%%", percent)
	s.hub.Logf("INFO", "%s", msg)
	c.JSON(http.StatusOK, api.Result{Success: true, Message: msg})
}

// setClock pins the simulator clock.
func (s *Server) setClock(now func() time.Time) {
	s.now = now
	s.hub.now = now
}
