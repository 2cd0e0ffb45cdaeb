package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/yildizm/trackctl/internal/logger"
)

// Endpoint paths served by the device
const (
	PathLogin             = "/login"
	PathLogout            = "/logout"
	PathLogStream         = "/api/log_stream"
	PathSystemInfo        = "/api/system_info"
	PathTriggerNTPSync    = "/api/trigger_ntp_sync"
	PathUpdateNTPServers  = "/api/update_ntp_servers"
	PathRebootSystem      = "/api/reboot_system"
	PathShutdownSystem    = "/api/shutdown_system"
	PathKillScript        = "/api/kill_script"
	PathSaveDirectMode    = "/api/save_direct_mode"
	PathClearMatches      = "/api/clear_matches"
	PathMatches           = "/api/matches"
	PathExportDatabase    = "/api/export_database"
	PathTriggerStart      = "/api/trigger_start"
	PathTriggerFinish     = "/api/trigger_finish"
	PathStartCalibration  = "/api/start_calibration"
	PathUpdateDeadzone    = "/api/update_deadzone"
	PathCalibrationStatus = "/api/calibration_status"
)

// DefaultTimeout applies to every request except the log stream.
const DefaultTimeout = 10 * time.Second

// Config holds the device connection settings
type Config struct {
	BaseURL        string
	Username       string
	Password       string
	Timeout        time.Duration
	StreamEndpoint string
	Logger         *logger.Logger
}

// Client talks to the device web API. The session cookie is shared by all
// requests, including the log stream.
type Client struct {
	baseURL    *url.URL
	http       *http.Client
	streamHTTP *http.Client
	username   string
	password   string
	streamPath string
	log        *logger.Logger

	loginMu sync.Mutex
}

// New creates a client for the device at cfg.BaseURL
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, NewValidationError("base_url", "", "base URL is required")
	}
	baseURL, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, NewValidationError("base_url", cfg.BaseURL, "invalid base URL: "+err.Error())
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	streamPath := cfg.StreamEndpoint
	if streamPath == "" {
		streamPath = PathLogStream
	}
	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}

	// Redirects are how the device reports a missing session, so they are
	// inspected rather than followed.
	noRedirect := func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }

	return &Client{
		baseURL: baseURL,
		http: &http.Client{
			Timeout:       timeout,
			Jar:           jar,
			CheckRedirect: noRedirect,
		},
		streamHTTP: &http.Client{
			Jar:           jar,
			CheckRedirect: noRedirect,
		},
		username:   cfg.Username,
		password:   cfg.Password,
		streamPath: streamPath,
		log:        log.WithComponent("api"),
	}, nil
}

// BaseURL returns the device address
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// HasCredentials reports whether a username was configured
func (c *Client) HasCredentials() bool {
	return c.username != ""
}

// Login posts the credentials to the login form and stores the session cookie.
func (c *Client) Login(ctx context.Context) error {
	c.loginMu.Lock()
	defer c.loginMu.Unlock()

	form := url.Values{}
	form.Set("username", c.username)
	form.Set("password", c.password)

	endpoint := c.baseURL.JoinPath(PathLogin)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), strings.NewReader(form.Encode()))
	if err != nil {
		return &TransportError{Op: "login", Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Op: "login", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	// Success redirects to the index page; a rejected login re-renders the form
	if isRedirect(resp.StatusCode) && !redirectsToLogin(resp) {
		c.log.Debug("logged in as %s", c.username)
		return nil
	}
	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusUnauthorized {
		return ErrInvalidCredentials
	}
	return &RemoteError{Op: "login", Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
}

// Logout ends the device session
func (c *Client) Logout(ctx context.Context) error {
	resp, err := c.send(ctx, "logout", http.MethodGet, PathLogout, nil)
	if err != nil {
		if errors.Is(err, ErrNotAuthenticated) {
			return nil
		}
		return err
	}
	_ = resp.Body.Close()
	return nil
}

// send performs a request, logging in once and repeating it if the device
// redirected to its login page and credentials are configured.
func (c *Client) send(ctx context.Context, op, method, path string, body any) (*http.Response, error) {
	resp, err := c.sendOnce(ctx, c.http, op, method, path, body)
	if !errors.Is(err, ErrNotAuthenticated) || !c.HasCredentials() {
		return resp, err
	}
	if err := c.Login(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return c.sendOnce(ctx, c.http, op, method, path, body)
}

func (c *Client) sendOnce(ctx context.Context, hc *http.Client, op, method, path string, body any) (*http.Response, error) {
	endpoint := c.baseURL.JoinPath(path)

	var reader io.Reader = http.NoBody
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to marshal request: %w", op, err)
		}
		reader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reader)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := hc.Do(req)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	c.log.DebugWithFields("request done", []logger.Field{
		logger.F("method", method),
		logger.F("path", path),
		logger.F("status", resp.StatusCode),
		logger.Duration(time.Since(start)),
	})

	if isRedirect(resp.StatusCode) && redirectsToLogin(resp) {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("%s: %w", op, ErrNotAuthenticated)
	}
	return resp, nil
}

// call sends a request and decodes the JSON response into out. Non-2xx
// statuses and {"success": false} both become a RemoteError.
func (c *Client) call(ctx context.Context, op, method, path string, body, out any) error {
	resp, err := c.send(ctx, op, method, path, body)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return remoteErrorFromBody(op, resp.StatusCode, data)
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return &RemoteError{Op: op, Status: resp.StatusCode, Message: "invalid response: " + err.Error()}
		}
	}

	if r, ok := out.(interface{ result() *Result }); ok {
		if res := r.result(); !res.Success {
			msg := res.Error
			if msg == "" {
				msg = "request was not successful"
			}
			return &RemoteError{Op: op, Status: resp.StatusCode, Message: msg}
		}
	}
	return nil
}

func (r *Result) result() *Result { return r }

func remoteErrorFromBody(op string, status int, data []byte) error {
	var envelope Result
	if json.Unmarshal(data, &envelope) == nil && envelope.Error != "" {
		return &RemoteError{Op: op, Status: status, Message: envelope.Error}
	}
	return &RemoteError{Op: op, Status: status, Message: fmt.Sprintf("request failed with status %d", status)}
}

func isRedirect(status int) bool {
	return status >= 300 && status < 400
}

func redirectsToLogin(resp *http.Response) bool {
	loc, err := resp.Location()
	if err != nil {
		return false
	}
	return strings.TrimSuffix(loc.Path, "/") == PathLogin
}

// OpenLogStream opens the server-sent event stream. The returned body lives
// until ctx is cancelled or the connection drops; no request timeout applies.
func (c *Client) OpenLogStream(ctx context.Context) (io.ReadCloser, error) {
	resp, err := c.openStream(ctx)
	if errors.Is(err, ErrNotAuthenticated) && c.HasCredentials() {
		if err := c.Login(ctx); err != nil {
			return nil, fmt.Errorf("log stream: %w", err)
		}
		resp, err = c.openStream(ctx)
	}
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		defer func() { _ = resp.Body.Close() }()
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, remoteErrorFromBody("log stream", resp.StatusCode, data)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "text/event-stream") {
		_ = resp.Body.Close()
		return nil, &RemoteError{Op: "log stream", Status: resp.StatusCode, Message: "unexpected content type " + ct}
	}
	return resp.Body, nil
}

func (c *Client) openStream(ctx context.Context) (*http.Response, error) {
	endpoint := c.baseURL.JoinPath(c.streamPath)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), http.NoBody)
	if err != nil {
		return nil, &TransportError{Op: "log stream", Err: err}
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.streamHTTP.Do(req)
	if err != nil {
		return nil, &TransportError{Op: "log stream", Err: err}
	}
	if isRedirect(resp.StatusCode) && redirectsToLogin(resp) {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("log stream: %w", ErrNotAuthenticated)
	}
	return resp, nil
}
