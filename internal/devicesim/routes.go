package devicesim

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) setupRoutes() {
	r := s.engine

	// --- Public Routes ---
	r.GET("/login", s.loginPageHandler)
	r.POST("/login", s.loginHandler)
	r.GET("/logout", s.logoutHandler)

	// --- Authenticated Routes ---
	authed := r.Group("/")
	authed.Use(s.requireLogin())
	{
		authed.GET("/", s.indexHandler)

		apiGroup := authed.Group("/api")
		{
			apiGroup.GET("/system_info", s.systemInfoHandler)
			apiGroup.POST("/trigger_ntp_sync", s.ntpSyncHandler)
			apiGroup.POST("/update_ntp_servers", s.updateNTPServersHandler)

			apiGroup.POST("/reboot_system", s.powerHandler("System reboot initiated from web interface"))
			apiGroup.POST("/shutdown_system", s.powerHandler("System shutdown initiated from web interface"))
			apiGroup.POST("/kill_script", s.powerHandler("Script termination initiated from web interface"))
			apiGroup.POST("/save_direct_mode", s.saveDirectModeHandler)

			apiGroup.GET("/matches", s.matchesHandler)
			apiGroup.POST("/clear_matches", s.clearMatchesHandler)
			apiGroup.GET("/export_database", s.exportDatabaseHandler)
			apiGroup.GET("/trigger_start", s.triggerHandler(true))
			apiGroup.GET("/trigger_finish", s.triggerHandler(false))

			apiGroup.POST("/start_calibration", s.startCalibrationHandler)
			apiGroup.GET("/calibration_status", s.calibrationStatusHandler)
			apiGroup.POST("/update_deadzone", s.updateDeadzoneHandler)

			apiGroup.GET("/log_stream", s.logStreamHandler)
		}
	}
}

// accessLog publishes werkzeug style access lines into the device log, so
// clients see the same noise the real device produces.
func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if c.Request.URL.Path == "/api/log_stream" {
			return
		}
		s.hub.Publish(fmt.Sprintf(`%s - - [%s] "%s %s %s" %d -`,
			c.ClientIP(),
			s.now().Format("02/Jan/2006 15:04:05"),
			c.Request.Method,
			c.Request.URL.RequestURI(),
			c.Request.Proto,
			c.Writer.Status(),
		))
	}
}

func (s *Server) indexHandler(c *gin.Context) {
	info := s.state.systemInfo(s.now())
	c.JSON(http.StatusOK, gin.H{
		"device":      "track sensor (simulated)",
		"system_info": info,
		"ntp_servers": s.state.servers(),
		"matches":     s.state.listMatches(),
		"logs":        s.hub.Lines(),
	})
}
