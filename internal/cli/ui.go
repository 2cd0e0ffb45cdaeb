package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/yildizm/trackctl/internal/config"
	"github.com/yildizm/trackctl/internal/logger"
	"github.com/yildizm/trackctl/internal/stream"
	"github.com/yildizm/trackctl/internal/ui"
)

var (
	uiTheme    string
	tailNoFilt bool
)

func newUICommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ui",
		Short: "Open the interactive device panel",
		Long: `Open the interactive panel: the live device log plus system, sensor and
match views. Logs of trackctl itself go to output.log_file while it runs.`,
		Args: cobra.NoArgs,
		RunE: runUI,
	}
	cmd.Flags().StringVar(&uiTheme, "theme", "", "color theme (default, high-contrast, minimal)")
	return cmd
}

func runUI(cmd *cobra.Command, _ []string) error {
	cfg := GetGlobalConfig()

	closeLog, err := redirectLogs(cfg.Output.LogFile)
	if err != nil {
		return err
	}
	defer closeLog()

	client, err := newDeviceClient()
	if err != nil {
		return err
	}

	theme := cfg.Output.Theme
	if uiTheme != "" {
		theme = uiTheme
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	return ui.Run(ctx, ui.Options{
		Device:          client,
		Logger:          newLogger("ui"),
		Theme:           theme,
		Stream:          streamOptions(cfg),
		SystemInterval:  cfg.Polling.SystemInfoInterval,
		SensorInterval:  cfg.Polling.SensorStatusInterval,
		NoticeTimeout:   cfg.Polling.NoticeTimeout,
		NearBottomLines: cfg.Stream.NearBottomLines,
	})
}

// redirectLogs sends log output to path so it does not tear the panel.
func redirectLogs(path string) (func(), error) {
	if path == "" {
		return func() {}, nil
	}
	path = config.ExpandPath(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	// #nosec G304 - path comes from configuration
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	logger.SetOutput(f)
	return func() {
		logger.SetOutput(nil)
		_ = f.Close()
	}, nil
}

func streamOptions(cfg *config.Config) stream.Options {
	return stream.Options{
		ReconnectDelay:   cfg.Stream.ReconnectDelay,
		BufferSize:       cfg.Stream.BufferSize,
		FilterAccessLogs: cfg.Stream.FilterAccessLogs,
		Logger:           newLogger("stream"),
	}
}

func newTailCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Follow the live device log",
		Long: `Print the live device log to stdout, colored by level. The stream reconnects
after errors until Ctrl+C.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := newDeviceClient()
			if err != nil {
				return err
			}
			opts := streamOptions(GetGlobalConfig())
			if tailNoFilt {
				opts.FilterAccessLogs = false
			}

			ctx, cancel := signalContext(cmd)
			defer cancel()
			return ui.Tail(ctx, client, ui.NewPrinter(cmd.OutOrStdout(), useColor()), opts)
		},
	}
	cmd.Flags().BoolVar(&tailNoFilt, "no-filter", false, "include HTTP access log lines")
	return cmd
}
