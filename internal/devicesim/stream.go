package devicesim

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"
)

type logMessage struct {
	Message string `json:"message"`
}

type heartbeatMessage struct {
	Heartbeat bool `json:"heartbeat"`
}

// logStreamHandler pushes device log lines as server-sent events. A
// heartbeat goes out whenever the stream has been idle for the heartbeat
// interval, and a line identical to the previous one is skipped.
func (s *Server) logStreamHandler(c *gin.Context) {
	lines, unsubscribe := s.hub.Subscribe()
	defer unsubscribe()

	interval := s.opts.HeartbeatInterval
	ctx := c.Request.Context()

	c.Header("Content-Type", sse.ContentType)
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)
	c.Writer.WriteHeaderNow()
	c.Writer.Flush()

	heartbeat := time.NewTimer(interval)
	defer heartbeat.Stop()

	var last string
	c.Stream(func(w io.Writer) bool {
		for {
			select {
			case <-ctx.Done():
				return false
			case line := <-lines:
				if line == last {
					continue
				}
				last = line
				heartbeat.Reset(interval)
				c.Render(-1, sse.Event{Data: logMessage{Message: line}})
				return true
			case <-heartbeat.C:
				heartbeat.Reset(interval)
				c.Render(-1, sse.Event{Data: heartbeatMessage{Heartbeat: true}})
				return true
			}
		}
	})
	s.log.Debug("log stream client %s disconnected", c.ClientIP())
}
