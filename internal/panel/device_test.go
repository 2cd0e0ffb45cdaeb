package panel_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yildizm/trackctl/internal/api"
	"github.com/yildizm/trackctl/internal/devicesim"
	"github.com/yildizm/trackctl/internal/panel"
)

func TestSessionAgainstSimulator(t *testing.T) {
	opts := devicesim.DefaultOptions()
	opts.GenerateInterval = 0
	opts.CalibrationDuration = time.Second
	sim := devicesim.New(opts)
	ts := httptest.NewServer(sim.Handler())
	defer ts.Close()

	client, err := api.New(api.Config{BaseURL: ts.URL, Username: "admin", Password: "admin"})
	require.NoError(t, err)
	s := panel.NewSession(client, nil)
	ctx := context.Background()

	n := s.SyncNTP(ctx)
	assert.Equal(t, "NTP time synchronized successfully with mock.ntp.org", n.Text)

	n = s.SaveNTPServers(ctx, "\n  \n")
	assert.Equal(t, "Server list cannot be empty", n.Text)

	n = s.StartCalibration(ctx)
	assert.Equal(t, panel.KindSuccess, n.Kind)
	n = s.StartCalibration(ctx)
	assert.Equal(t, "Calibration is already in progress.", n.Text)

	n = s.UpdateDeadzone(ctx, "55")
	assert.Equal(t, "Deadzone updated to 55%", n.Text)

	n = s.KillScript(ctx)
	assert.Equal(t, "Script is terminating...", n.FollowUp)
	assert.True(t, s.Terminated())
}
