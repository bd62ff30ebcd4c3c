package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/srg/webble/bluetooth"
	"github.com/srg/webble/internal/config"
	"github.com/srg/webble/internal/devicefactory"
	"github.com/srg/webble/internal/tracer"
)

// session bundles what every command needs: configuration, a logger, tracing
// and an open Bluetooth facade on the selected adapter.
type session struct {
	cfg    *config.Config
	logger *logrus.Logger
	bt     *bluetooth.Bluetooth

	// progress is where connect reports its phases; nil when stderr is not
	// a terminal.
	progress io.Writer

	shutdownTracer func(context.Context) error
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	optional := path == ""
	if optional {
		path = config.DefaultConfigPath()
	}
	cfg, err := config.Load(path, optional)
	if err != nil {
		return nil, err
	}
	if lib, _ := cmd.Flags().GetString("library"); lib != "" {
		cfg.LibraryPath = lib
	}
	return cfg, nil
}

func openSession(cmd *cobra.Command) (*session, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	logger, err := configureLogger(cmd, cfg)
	if err != nil {
		return nil, err
	}

	shutdown, err := tracer.Setup(cmd.Context(), cfg.Tracing)
	if err != nil {
		return nil, err
	}

	bt, err := devicefactory.BluetoothFactory(cfg, logger)
	if err != nil {
		_ = shutdown(context.Background())
		return nil, err
	}

	s := &session{cfg: cfg, logger: logger, bt: bt, shutdownTracer: shutdown}
	if isTerminal(cmd.ErrOrStderr()) {
		s.progress = cmd.ErrOrStderr()
	}

	if index, _ := cmd.Flags().GetInt("adapter"); index != 0 {
		if err := bt.SetAdapter(index); err != nil {
			s.Close()
			return nil, err
		}
	}
	return s, nil
}

// Close disconnects every device, releases the adapter and flushes traces.
func (s *session) Close() {
	if err := s.bt.Close(); err != nil {
		s.logger.WithError(err).Warn("Failed to close Bluetooth")
	}
	if err := s.shutdownTracer(context.Background()); err != nil {
		s.logger.WithError(err).Warn("Failed to flush traces")
	}
}

// targetFilter matches a device by address (case-insensitive) or by its
// advertised name.
func targetFilter(target string) bluetooth.Predicate {
	return func(info bluetooth.DeviceInfo) bool {
		return strings.EqualFold(info.Address, target) || info.Name == target
	}
}

// connect finds target with a bounded scan and connects to it.
func (s *session) connect(ctx context.Context, target string) (*bluetooth.Device, error) {
	setPhase := func(string) {}
	if s.progress != nil {
		progress := NewProgressPrinter(s.progress, "Connecting to "+target, "Scanning")
		progress.Start()
		defer progress.Stop()
		setPhase = progress.SetPhase
	}

	dev, err := s.bt.RequestDevice(ctx, bluetooth.RequestDeviceOptions{
		Filter:  targetFilter(target),
		Timeout: s.cfg.RequestTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("looking up %s: %w", target, err)
	}

	setPhase("Connecting")
	if err := dev.GATT().Connect(ctx); err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", dev, err)
	}
	s.logger.WithField("device", dev.String()).Info("Connected")
	return dev, nil
}

