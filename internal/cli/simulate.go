package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/yildizm/trackctl/internal/devicesim"
)

var (
	simAddr       string
	simUser       string
	simPassword   string
	simSide       int
	simNoDebug    bool
	simNoSensor   bool
	simGenerate   time.Duration
	simSeed       int
	simCalibrates time.Duration
)

func newSimulateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Serve a simulated device",
		Long: `Serve the device web API and log stream from memory, for trying trackctl
without hardware. Power actions only log; calibration takes a few seconds.`,
		Example: `  trackctl simulate --addr :8080
  trackctl --url http://localhost:8080 --user admin ui`,
		Args: cobra.NoArgs,
		// The simulator needs no device config
		PersistentPreRun: func(cmd *cobra.Command, args []string) { applyEmojiSetting(cmd) },
		RunE:             runSimulate,
	}

	defaults := devicesim.DefaultOptions()
	cmd.Flags().StringVar(&simAddr, "addr", ":8080", "listen address")
	cmd.Flags().StringVar(&simUser, "sim-user", defaults.Username, "login user")
	cmd.Flags().StringVar(&simPassword, "sim-password", defaults.Password, "login password")
	cmd.Flags().IntVar(&simSide, "side", defaults.Side, "track side reported by the device")
	cmd.Flags().BoolVar(&simNoDebug, "no-debug", false, "disable debug mode (triggers are ignored)")
	cmd.Flags().BoolVar(&simNoSensor, "no-sensor", false, "report the sensor as unavailable")
	cmd.Flags().DurationVar(&simGenerate, "generate", defaults.GenerateInterval, "interval of synthetic log lines, 0 disables")
	cmd.Flags().DurationVar(&simCalibrates, "calibration-time", defaults.CalibrationDuration, "duration of a calibration run")
	cmd.Flags().IntVar(&simSeed, "seed-matches", 3, "matches recorded at startup")

	return cmd
}

func runSimulate(cmd *cobra.Command, _ []string) error {
	opts := devicesim.DefaultOptions()
	opts.Username = simUser
	opts.Password = simPassword
	opts.Side = simSide
	opts.DebugMode = !simNoDebug
	opts.SensorUnavailable = simNoSensor
	opts.GenerateInterval = simGenerate
	opts.CalibrationDuration = simCalibrates
	opts.Logger = newLogger("simulate")

	sim := devicesim.New(opts)
	now := time.Now()
	for i := simSeed; i > 0; i-- {
		finish := now.Add(-time.Duration(i) * time.Minute)
		sim.AddMatch(finish.Add(-time.Duration(9+i)*time.Second), finish)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s Simulated device on %s (user %q)\n", GetEmoji("sensor"), simAddr, simUser)

	ctx, cancel := signalContext(cmd)
	defer cancel()
	return sim.Run(ctx, simAddr)
}
