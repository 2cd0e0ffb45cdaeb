package api_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yildizm/trackctl/internal/api"
	"github.com/yildizm/trackctl/internal/devicesim"
	"github.com/yildizm/trackctl/internal/stream"
)

func startDevice(t *testing.T, mutate func(*devicesim.Options)) (*devicesim.Server, *api.Client) {
	t.Helper()
	opts := devicesim.DefaultOptions()
	opts.GenerateInterval = 0
	opts.HeartbeatInterval = 50 * time.Millisecond
	opts.CalibrationDuration = 300 * time.Millisecond
	if mutate != nil {
		mutate(&opts)
	}

	sim := devicesim.New(opts)
	ts := httptest.NewServer(sim.Handler())
	t.Cleanup(ts.Close)

	client, err := api.New(api.Config{BaseURL: ts.URL, Username: "admin", Password: "admin", Timeout: 2 * time.Second})
	require.NoError(t, err)
	return sim, client
}

func TestDeviceEndpoints(t *testing.T) {
	sim, c := startDevice(t, nil)
	ctx := context.Background()

	info, err := c.SystemInfo(ctx)
	require.NoError(t, err, "first call logs in transparently")
	assert.Equal(t, 2, info.Side)

	synced, err := c.TriggerNTPSync(ctx)
	require.NoError(t, err)
	assert.Equal(t, "mock.ntp.org", synced.Server)

	info, err = c.SystemInfo(ctx)
	require.NoError(t, err)
	require.NotNil(t, info.LastNTPSyncServer)
	assert.Equal(t, "mock.ntp.org", *info.LastNTPSyncServer)

	require.NoError(t, c.UpdateNTPServers(ctx, []string{"a.ntp.org", "b.ntp.org"}))

	res, err := c.SaveDirectMode(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, "Direct mode setting saved", res.Message)

	require.NoError(t, c.Reboot(ctx))
	require.NoError(t, c.Shutdown(ctx))
	require.NoError(t, c.KillScript(ctx))

	now := time.Now()
	sim.AddMatch(now.Add(-9*time.Second), now)
	matches, err := c.Matches(ctx)
	require.NoError(t, err)
	require.Len(t, matches, 1)

	res, err = c.ClearMatches(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Match history cleared successfully", res.Message)

	res, err = c.UpdateDeadzone(ctx, 40)
	require.NoError(t, err)
	assert.Equal(t, "Deadzone updated to 40%", res.Message)

	status, err := c.CalibrationStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 40, status.DeadzonePercent)
}

func TestDeviceTriggersRecordMatch(t *testing.T) {
	_, c := startDevice(t, nil)
	ctx := context.Background()

	require.NoError(t, c.TriggerStart(ctx))
	require.NoError(t, c.TriggerFinish(ctx))

	matches, err := c.Matches(ctx)
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestDeviceCalibrationConflict(t *testing.T) {
	_, c := startDevice(t, nil)
	ctx := context.Background()

	_, err := c.StartCalibration(ctx)
	require.NoError(t, err)

	_, err = c.StartCalibration(ctx)
	var re *api.RemoteError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, http.StatusConflict, re.Status)
	assert.Equal(t, "Calibration is already in progress.", re.Message)
}

func TestDeviceWrongPassword(t *testing.T) {
	sim, _ := startDevice(t, nil)
	ts := httptest.NewServer(sim.Handler())
	defer ts.Close()

	c, err := api.New(api.Config{BaseURL: ts.URL, Username: "admin", Password: "nope"})
	require.NoError(t, err)

	_, err = c.SystemInfo(context.Background())
	assert.ErrorIs(t, err, api.ErrInvalidCredentials)
}

func TestDeviceLogStreamIntoClient(t *testing.T) {
	sim, c := startDevice(t, nil)

	sc := stream.NewClient(stream.SourceFunc(c.OpenLogStream), nil, stream.Options{
		ReconnectDelay:   100 * time.Millisecond,
		BufferSize:       stream.DefaultCapacity,
		FilterAccessLogs: true,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sc.Run(ctx) }()

	require.Eventually(t, func() bool { return sim.Logs().Subscribers() == 1 }, 3*time.Second, 10*time.Millisecond)

	sim.Logs().Logf("ERROR", "Sensor read failed")
	sim.Logs().Logf("INFO", "Sensor heartbeat ok")
	_, err := c.SystemInfo(ctx) // produces an access log line
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(sc.Entries()) == 2 && sc.Stats().Filtered >= 1 && sc.Stats().Heartbeats >= 1
	}, 3*time.Second, 10*time.Millisecond)

	entries := sc.Entries()
	assert.Equal(t, stream.LevelError, entries[0].Level)
	assert.False(t, entries[0].Timestamp.IsZero())
	assert.Equal(t, stream.LevelInfo, entries[1].Level)
	assert.Equal(t, stream.StateOpen, sc.State())
	assert.False(t, sc.ConnectionLost())

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(3 * time.Second):
		t.Fatal("stream client did not stop")
	}
}
