// Package ui is the interactive device panel and the plain log printer.
package ui

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/yildizm/trackctl/internal/api"
	"github.com/yildizm/trackctl/internal/logger"
	"github.com/yildizm/trackctl/internal/panel"
	"github.com/yildizm/trackctl/internal/stream"
)

// Options configures the interactive panel
type Options struct {
	Device *api.Client
	Logger *logger.Logger
	Theme  string

	Stream stream.Options

	SystemInterval  time.Duration
	SensorInterval  time.Duration
	NoticeTimeout   time.Duration
	NearBottomLines int
	ExportPath      string
}

// Run logs in, then shows the panel until the user quits or ctx ends. The
// log stream runs alongside and stops with the panel.
func Run(parent context.Context, opts Options) error {
	if opts.Device == nil {
		return errors.New("ui: no device client")
	}
	if opts.Theme != "" && !SetThemeByName(opts.Theme) {
		return fmt.Errorf("unknown theme: %s (available: %v)", opts.Theme, GetAvailableThemes())
	}
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}

	if opts.Device.HasCredentials() {
		if err := opts.Device.Login(parent); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	view := NewStreamView()
	streamOpts := opts.Stream
	streamOpts.Logger = log
	client := stream.NewClient(stream.SourceFunc(opts.Device.OpenLogStream), view, streamOpts)

	model := NewModel(ctx, ModelOptions{
		Session:         panel.NewSession(opts.Device, log),
		Stream:          client,
		View:            view,
		DeviceURL:       opts.Device.BaseURL(),
		SystemInterval:  opts.SystemInterval,
		SensorInterval:  opts.SensorInterval,
		NoticeTimeout:   opts.NoticeTimeout,
		NearBottomLines: opts.NearBottomLines,
		ExportPath:      opts.ExportPath,
	})

	p := tea.NewProgram(model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)
	view.Attach(p.Send)
	model.Attach(p.Send)

	streamDone := make(chan error, 1)
	go func() {
		streamDone <- client.Run(ctx)
	}()

	_, err := p.Run()
	cancel()
	model.Close()
	streamErr := <-streamDone

	log.Debug("panel closed, stream stats %+v", client.Stats())

	if err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && parent.Err() != nil {
			return nil
		}
		return fmt.Errorf("panel: %w", err)
	}
	if streamErr != nil && !errors.Is(streamErr, context.Canceled) {
		return streamErr
	}
	return nil
}

// Tail prints the live log to the printer's writer until ctx ends.
func Tail(ctx context.Context, device *api.Client, printer *Printer, opts stream.Options) error {
	if device.HasCredentials() {
		if err := device.Login(ctx); err != nil {
			return err
		}
	}

	client := stream.NewClient(stream.SourceFunc(device.OpenLogStream), printer, opts)
	err := client.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
