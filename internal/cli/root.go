package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yildizm/trackctl/internal/api"
	"github.com/yildizm/trackctl/internal/config"
	"github.com/yildizm/trackctl/internal/emoji"
	"github.com/yildizm/trackctl/internal/logger"
	"github.com/yildizm/trackctl/internal/panel"
)

var (
	cfgFile    string
	verbose    bool
	noColor    bool
	noEmoji    bool
	outputFmt  string
	deviceURL  string
	deviceUser string

	globalConfig *config.Config
)

// NewRootCommand creates the root command
func NewRootCommand(version, commit, date string) *cobra.Command {
	globalConfig = nil

	rootCmd := &cobra.Command{
		Use:   "trackctl",
		Short: "Control panel for the track sensor device",
		Long: `trackctl drives a track sensor device over its web API: it follows the live
device log, syncs time, manages NTP servers and direct mode, calibrates the
sensor, and reads or clears the recorded matches.

Without a subcommand it opens the interactive panel.`,
		SilenceUsage:      true,
		PersistentPreRunE: loadGlobalConfig,
		RunE:              runUI,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVar(&noEmoji, "no-emoji", false, "disable emoji output (useful for Windows terminals)")
	rootCmd.PersistentFlags().StringVarP(&outputFmt, "output", "o", "text", "output format (text, json, csv, markdown)")
	rootCmd.PersistentFlags().StringVar(&deviceURL, "url", "", "device address, overrides device.base_url")
	rootCmd.PersistentFlags().StringVar(&deviceUser, "user", "", "login user, overrides device.username")

	// Add subcommands
	rootCmd.AddCommand(newUICommand())
	rootCmd.AddCommand(newTailCommand())
	rootCmd.AddCommand(newStatusCommand())
	rootCmd.AddCommand(newNTPCommand())
	rootCmd.AddCommand(newDirectModeCommand())
	rootCmd.AddCommand(newSystemCommand())
	rootCmd.AddCommand(newMatchesCommand())
	rootCmd.AddCommand(newCalibrateCommand())
	rootCmd.AddCommand(newTriggerCommand())
	rootCmd.AddCommand(newSimulateCommand())
	rootCmd.AddCommand(newConfigCommand())
	rootCmd.AddCommand(newVersionCommand(version, commit, date))

	return rootCmd
}

// applyEmojiSetting disables emoji when asked to, and by default on Windows
func applyEmojiSetting(cmd *cobra.Command) {
	if runtime.GOOS == "windows" && !cmd.Flag("no-emoji").Changed {
		noEmoji = true
	}
	emoji.SetEmojiDisabled(noEmoji)
}

// loadGlobalConfig merges the config sources, then lets explicitly set
// flags win.
func loadGlobalConfig(cmd *cobra.Command, _ []string) error {
	applyEmojiSetting(cmd)

	cfg, err := config.NewLoader().LoadConfig(cfgFile)
	if err != nil {
		return err
	}

	if deviceURL != "" {
		cfg.Device.BaseURL = deviceURL
	}
	if deviceUser != "" {
		cfg.Device.Username = deviceUser
	}
	if !cmd.Flag("output").Changed && cfg.Output.DefaultFormat != "" {
		outputFmt = cfg.Output.DefaultFormat
	}
	if cfg.Output.ColorMode == "never" {
		noColor = true
	}
	if verbose {
		cfg.Output.Verbose = true
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	globalConfig = cfg
	return nil
}

// GetGlobalConfig returns the loaded configuration, or defaults before
// loading.
func GetGlobalConfig() *config.Config {
	if globalConfig == nil {
		return config.DefaultConfig()
	}
	return globalConfig
}

func newVersionCommand(version, commit, date string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  "Display version number, build commit, date, and runtime information",
		// Version needs no config
		PersistentPreRun: func(cmd *cobra.Command, args []string) {},
		Run: func(cmd *cobra.Command, args []string) {
			displayVersion := version
			displayCommit := commit
			displayDate := date

			if version == "dev" || version == "" {
				displayVersion = "development"
			}
			if commit == "none" || commit == "" {
				displayCommit = "local-build"
			}
			if date == "unknown" || date == "" {
				displayDate = "local-build"
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "trackctl %s (%s) built on %s\n", displayVersion, displayCommit, displayDate)
			fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}

// Global helpers
func isVerbose() bool {
	return verbose || GetGlobalConfig().IsVerbose()
}

func getOutputFormat() string {
	return outputFmt
}

func isEmojiDisabled() bool {
	return noEmoji
}

func useColor() bool {
	return !noColor && GetGlobalConfig().Output.ColorMode != "never"
}

func newLogger(component string) *logger.Logger {
	return logger.NewWithCallback(component, isVerbose)
}

// signalContext ends on SIGINT or SIGTERM
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// newDeviceClient builds an API client from the loaded config
func newDeviceClient() (*api.Client, error) {
	cfg := GetGlobalConfig()
	return api.New(api.Config{
		BaseURL:        cfg.Device.BaseURL,
		Username:       cfg.Device.Username,
		Password:       cfg.Device.Password,
		Timeout:        cfg.Device.RequestTimeout,
		StreamEndpoint: cfg.Stream.Endpoint,
		Logger:         newLogger("api"),
	})
}

func newSession() (*panel.Session, error) {
	client, err := newDeviceClient()
	if err != nil {
		return nil, err
	}
	return panel.NewSession(client, newLogger("panel")), nil
}
