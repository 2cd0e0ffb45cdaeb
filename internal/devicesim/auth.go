package devicesim

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const sessionCookie = "session"

const loginPage = `<!doctype html>
<html><head><title>Login</title></head><body>
<form method="post" action="/login">
<input name="username"><input name="password" type="password">
<button type="submit">Login</button>
</form>%s
</body></html>`

func (s *Server) loginPageHandler(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(fmt.Sprintf(loginPage, "")))
}

func (s *Server) loginHandler(c *gin.Context) {
	username := c.PostForm("username")
	password := c.PostForm("password")

	if username != s.opts.Username || password != s.opts.Password {
		s.log.Debug("login rejected for %q", username)
		page := fmt.Sprintf(loginPage, `<p class="error">Invalid credentials</p>`)
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(page))
		return
	}

	id := uuid.NewString()
	s.sessionsMu.Lock()
	s.sessions[id] = s.now()
	s.sessionsMu.Unlock()

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookie, id, int((24 * time.Hour).Seconds()), "/", "", false, true)
	c.Redirect(http.StatusFound, "/")
}

func (s *Server) logoutHandler(c *gin.Context) {
	if id, err := c.Cookie(sessionCookie); err == nil {
		s.sessionsMu.Lock()
		delete(s.sessions, id)
		s.sessionsMu.Unlock()
	}
	c.SetCookie(sessionCookie, "", -1, "/", "", false, true)
	c.Redirect(http.StatusFound, "/login")
}

// requireLogin redirects requests without a known session to the login page.
func (s *Server) requireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := c.Cookie(sessionCookie)
		if err == nil {
			s.sessionsMu.Lock()
			_, ok := s.sessions[id]
			s.sessionsMu.Unlock()
			if ok {
				c.Next()
				return
			}
		}
		c.Redirect(http.StatusFound, "/login")
		c.Abort()
	}
}

// ActiveSessions returns the number of logged-in sessions.
func (s *Server) ActiveSessions() int {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()
	return len(s.sessions)
}
