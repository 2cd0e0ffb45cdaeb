package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yildizm/trackctl/internal/panel"
)

var (
	statusWatch    bool
	ntpServersFile string
	assumeYes      bool
)

func newStatusCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show device system info",
		Long: `Show the device clock, side, direct and debug mode, and the last NTP sync.

With --watch the info is refreshed on the polling interval until Ctrl+C.`,
		Args: cobra.NoArgs,
		RunE: runStatus,
	}
	cmd.Flags().BoolVarP(&statusWatch, "watch", "w", false, "keep refreshing")
	return cmd
}

func runStatus(cmd *cobra.Command, _ []string) error {
	session, err := newSession()
	if err != nil {
		return err
	}
	f, err := getFormatter()
	if err != nil {
		return err
	}

	show := func(ctx context.Context) error {
		info, err := session.RefreshSystemInfo(ctx)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		output, err := f.FormatSystemInfo(info)
		if err != nil {
			return fmt.Errorf("failed to format output: %w", err)
		}
		return writeOutput(cmd, output)
	}

	if !statusWatch {
		return show(cmd.Context())
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()
	return poll(ctx, cmd, GetGlobalConfig().Polling.SystemInfoInterval, show)
}

func newNTPCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ntp",
		Short: "Sync time and manage NTP servers",
	}

	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Trigger an NTP sync on the device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			session, err := newSession()
			if err != nil {
				return err
			}
			return reportNotice(cmd, session.SyncNTP(cmd.Context()))
		},
	}

	serversCmd := &cobra.Command{
		Use:   "servers",
		Short: "Manage the NTP server list",
	}

	setCmd := &cobra.Command{
		Use:   "set [server...]",
		Short: "Replace the NTP server list",
		Long: `Replace the device's NTP server list with the given servers, or with the
lines of --file. Blank lines are dropped.`,
		Example: `  trackctl ntp servers set pool.ntp.org time.google.com
  trackctl ntp servers set --file servers.txt`,
		RunE: runNTPServersSet,
	}
	setCmd.Flags().StringVarP(&ntpServersFile, "file", "f", "", "read servers from a file, one per line")

	serversCmd.AddCommand(setCmd)
	serversCmd.AddCommand(newNTPServersWatchCommand())

	cmd.AddCommand(syncCmd)
	cmd.AddCommand(serversCmd)
	return cmd
}

func runNTPServersSet(cmd *cobra.Command, args []string) error {
	if ntpServersFile != "" && len(args) > 0 {
		return fmt.Errorf("give servers as arguments or with --file, not both")
	}

	text := strings.Join(args, "\n")
	if ntpServersFile != "" {
		// #nosec G304 - path is chosen by the user
		data, err := os.ReadFile(ntpServersFile)
		if err != nil {
			return fmt.Errorf("failed to read server file: %w", err)
		}
		text = string(data)
	}

	session, err := newSession()
	if err != nil {
		return err
	}
	return reportNotice(cmd, session.SaveNTPServers(cmd.Context(), text))
}

func newDirectModeCommand() *cobra.Command {
	return &cobra.Command{
		Use:       "direct-mode <on|off>",
		Short:     "Save the direct mode setting",
		Long:      "Save direct (on) or proxy (off) mode. The device applies it after a reboot.",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"on", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			enabled, err := parseOnOff(args[0])
			if err != nil {
				return err
			}
			session, err := newSession()
			if err != nil {
				return err
			}
			return reportNotice(cmd, session.SaveDirectMode(cmd.Context(), enabled))
		},
	}
}

func parseOnOff(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "direct", "true", "1":
		return true, nil
	case "off", "proxy", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid mode: %s (use on or off)", s)
	}
}

// systemAction is a confirmed power action
type systemAction struct {
	use, short, prompt string
	run                func(s *panel.Session, ctx context.Context) panel.Notice
}

func newSystemCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "system",
		Short: "Reboot, shut down, or stop the device",
		Long: `Power actions. Each asks for confirmation unless --yes is given; once one
succeeds the device stops accepting actions.`,
	}
	cmd.PersistentFlags().BoolVarP(&assumeYes, "yes", "y", false, "do not ask for confirmation")

	actions := []systemAction{
		{"reboot", "Reboot the device", "Reboot the device?", (*panel.Session).Reboot},
		{"shutdown", "Shut the device down", "Shut down the device?", (*panel.Session).Shutdown},
		{"kill", "Terminate the tracking script", "Terminate the tracking script?", (*panel.Session).KillScript},
	}
	for _, a := range actions {
		cmd.AddCommand(&cobra.Command{
			Use:   a.use,
			Short: a.short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				if !assumeYes && !confirm(cmd, a.prompt) {
					fmt.Fprintln(cmd.OutOrStdout(), "Cancelled")
					return nil
				}
				session, err := newSession()
				if err != nil {
					return err
				}
				return reportNotice(cmd, a.run(session, cmd.Context()))
			},
		})
	}
	return cmd
}

func newTriggerCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trigger",
		Short: "Send a start or finish trigger (debug mode only)",
	}
	for _, start := range []bool{true, false} {
		name := "finish"
		if start {
			name = "start"
		}
		cmd.AddCommand(&cobra.Command{
			Use:   name,
			Short: "Send a " + name + " trigger",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				session, err := newSession()
				if err != nil {
					return err
				}
				// the cached info tells whether the device will act on it
				if _, err := session.RefreshSystemInfo(cmd.Context()); err != nil {
					newLogger("cli").Debug("system info refresh before trigger %s failed: %v", name, err)
				}
				return reportNotice(cmd, session.Trigger(cmd.Context(), start))
			},
		})
	}
	return cmd
}
