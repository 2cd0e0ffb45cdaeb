package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yildizm/trackctl/internal/formatter"
	"github.com/yildizm/trackctl/internal/panel"
)

// getFormatter returns the formatter for the selected output format
func getFormatter() (formatter.Formatter, error) {
	format := getOutputFormat()
	if format == "md" {
		format = formatter.FormatMarkdown
	}
	return formatter.New(format, useColor())
}

// writeOutput writes formatted output to the command's stdout
func writeOutput(cmd *cobra.Command, output []byte) error {
	_, err := cmd.OutOrStdout().Write(output)
	return err
}

// reportNotice prints a successful notice. A failed one becomes the
// command error so the process exits non-zero.
func reportNotice(cmd *cobra.Command, n panel.Notice) error {
	if n.Failed() {
		return errors.New(n.Text)
	}
	f, err := getFormatter()
	if err != nil {
		return err
	}
	output, err := f.FormatNotice(n)
	if err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	return writeOutput(cmd, output)
}

// confirm asks a yes/no question on the command's stdin; anything but y or
// yes declines.
func confirm(cmd *cobra.Command, prompt string) bool {
	fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N] ", prompt)
	answer, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

func validateOutputFilePath(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("empty file path")
	}
	info, err := os.Stat(filepath.Dir(filepath.Clean(path)))
	if err != nil {
		return fmt.Errorf("cannot access directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("parent is not a directory: %s", filepath.Dir(path))
	}
	return nil
}

// Helper function to check if file exists
func fileExists(filename string) bool {
	_, err := os.Stat(filename)
	return err == nil
}
