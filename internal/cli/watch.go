package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/yildizm/trackctl/internal/formatter"
	"github.com/yildizm/trackctl/internal/panel"
)

func newNTPServersWatchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "watch <file>",
		Short: "Push the NTP server list whenever a file changes",
		Long: `Watch a server list file and send it to the device after every write.
The file holds one server per line; blank lines and lines starting with #
are ignored. Press Ctrl+C to stop watching.`,
		Example: `  trackctl ntp servers watch /etc/trackctl/ntp-servers.txt`,
		Args:    cobra.ExactArgs(1),
		RunE:    runNTPServersWatch,
	}
}

func runNTPServersWatch(cmd *cobra.Command, args []string) error {
	filename := args[0]

	session, err := newSession()
	if err != nil {
		return err
	}
	f, err := getFormatter()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	if isVerbose() {
		fmt.Fprintf(cmd.ErrOrStderr(), "Watching file: %s\n", filename)
		fmt.Fprintf(cmd.ErrOrStderr(), "Press Ctrl+C to stop...\n\n")
	}

	return panel.WatchServerFile(ctx, filename, func(servers []string) {
		pushServerList(ctx, cmd, session, f, servers)
	})
}

// pushServerList sends servers to the device and prints the result. Every
// failure is reported on stderr so watching goes on.
func pushServerList(ctx context.Context, cmd *cobra.Command, session *panel.Session, f formatter.Formatter, servers []string) {
	n := session.SetNTPServers(ctx, servers)
	if n.Failed() {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", GetEmoji("error"), n.Text)
		return
	}
	output, err := f.FormatNotice(n)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s failed to format result: %v\n", GetEmoji("error"), err)
		return
	}
	if err := writeOutput(cmd, output); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s failed to write result: %v\n", GetEmoji("error"), err)
		return
	}
	if isVerbose() {
		fmt.Fprintf(cmd.ErrOrStderr(), "Pushed %d servers: %s\n", len(servers), strings.Join(servers, ", "))
	}
}

// poll runs show now and then every interval until ctx ends. Failures are
// reported and polling goes on.
func poll(ctx context.Context, cmd *cobra.Command, interval time.Duration, show func(context.Context) error) error {
	p := panel.NewPoller(interval, func(ctx context.Context) {
		if err := show(ctx); err != nil && ctx.Err() == nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s %v\n", GetEmoji("error"), err)
		}
	})
	p.Start(ctx)
	<-ctx.Done()
	p.Stop()
	return nil
}
