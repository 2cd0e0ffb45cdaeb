package panel

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchServerFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ntp.txt")
	require.NoError(t, os.WriteFile(path, []byte("# primary\npool.ntp.org\n"), 0o600))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	lists := make(chan []string, 4)
	done := make(chan error, 1)
	go func() {
		done <- WatchServerFile(ctx, path, func(servers []string) { lists <- servers })
	}()

	select {
	case got := <-lists:
		assert.Equal(t, []string{"pool.ntp.org"}, got)
	case <-time.After(2 * time.Second):
		t.Fatal("expected the initial list")
	}

	require.NoError(t, os.WriteFile(path, []byte("pool.ntp.org\ntime.google.com\n"), 0o600))
	select {
	case got := <-lists:
		assert.Equal(t, []string{"pool.ntp.org", "time.google.com"}, got)
	case <-time.After(2 * time.Second):
		t.Fatal("expected the updated list")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatchServerFileInvalidPath(t *testing.T) {
	tests := []struct {
		name string
		path string
	}{
		{"empty", ""},
		{"missing", filepath.Join(t.TempDir(), "missing.txt")},
		{"directory", t.TempDir()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := WatchServerFile(context.Background(), tt.path, func([]string) {})
			assert.Error(t, err)
		})
	}
}
