package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var calibrateFollow bool

func newCalibrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calibrate",
		Short: "Calibrate the sensor and set its deadzone",
	}

	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start a calibration run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			session, err := newSession()
			if err != nil {
				return err
			}
			return reportNotice(cmd, session.StartCalibration(cmd.Context()))
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show calibration status and sensor readings",
		Long: `Show the calibration state, noise threshold, current magnitude, and deadzone.
With --follow the status is refreshed on the sensor polling interval.`,
		Args: cobra.NoArgs,
		RunE: runCalibrateStatus,
	}
	statusCmd.Flags().BoolVarP(&calibrateFollow, "follow", "f", false, "keep refreshing")

	deadzoneCmd := &cobra.Command{
		Use:     "deadzone <percent>",
		Short:   "Set the deadzone (0-100)",
		Example: `  trackctl calibrate deadzone 15`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := newSession()
			if err != nil {
				return err
			}
			return reportNotice(cmd, session.UpdateDeadzone(cmd.Context(), args[0]))
		},
	}

	cmd.AddCommand(startCmd, statusCmd, deadzoneCmd)
	return cmd
}

func runCalibrateStatus(cmd *cobra.Command, _ []string) error {
	session, err := newSession()
	if err != nil {
		return err
	}
	f, err := getFormatter()
	if err != nil {
		return err
	}

	show := func(ctx context.Context) error {
		status, err := session.CalibrationStatus(ctx)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		output, err := f.FormatCalibration(status)
		if err != nil {
			return fmt.Errorf("failed to format output: %w", err)
		}
		return writeOutput(cmd, output)
	}

	if !calibrateFollow {
		return show(cmd.Context())
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()
	return poll(ctx, cmd, GetGlobalConfig().Polling.SensorStatusInterval, show)
}
