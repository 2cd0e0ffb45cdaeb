package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var exportFile string

func newMatchesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "matches",
		Short: "List, clear, or export recorded matches",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded matches, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			session, err := newSession()
			if err != nil {
				return err
			}
			matches, err := session.Matches(cmd.Context())
			if err != nil {
				return fmt.Errorf("request failed: %w", err)
			}
			f, err := getFormatter()
			if err != nil {
				return err
			}
			output, err := f.FormatMatches(matches)
			if err != nil {
				return fmt.Errorf("failed to format output: %w", err)
			}
			return writeOutput(cmd, output)
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every recorded match",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !assumeYes && !confirm(cmd, "Clear the match history?") {
				fmt.Fprintln(cmd.OutOrStdout(), "Cancelled")
				return nil
			}
			session, err := newSession()
			if err != nil {
				return err
			}
			return reportNotice(cmd, session.ClearMatches(cmd.Context()))
		},
	}
	clearCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "do not ask for confirmation")

	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Download the match database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := validateOutputFilePath(exportFile); err != nil {
				return fmt.Errorf("invalid output file path: %w", err)
			}
			session, err := newSession()
			if err != nil {
				return err
			}
			return reportNotice(cmd, session.ExportDatabase(cmd.Context(), exportFile))
		},
	}
	exportCmd.Flags().StringVarP(&exportFile, "file", "f", "matches.json", "destination file")

	cmd.AddCommand(listCmd, clearCmd, exportCmd)
	return cmd
}
