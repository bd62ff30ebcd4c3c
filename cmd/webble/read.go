package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/srg/webble/bluetooth"
)

// readCmd represents the read command
var readCmd = &cobra.Command{
	Use:   "read <device> <characteristic-uuid>",
	Short: "Read a characteristic or descriptor value",
	Long: `Reads a characteristic, or one of its descriptors, from a device given by
address or advertised name. Values are written raw unless --hex is given or
stdout is a terminal.

Examples:
  # Read Battery Level
  webble read 11:22:33:44:55:66 2a19 --hex

  # Disambiguate a characteristic present in several services
  webble read HRM-1 2a37 --service 180d

  # Read the Client Characteristic Configuration descriptor
  webble read HRM-1 2a37 --desc 2902 --hex

  # Poll every 500ms until Ctrl+C
  webble read HRM-1 2a37 --watch 500ms`,
	Args: cobra.ExactArgs(2),
	RunE: runRead,
}

var (
	readServiceUUID string
	readDescUUID    string
	readHex         bool
	readWatch       string
)

func init() {
	readCmd.Flags().StringVar(&readServiceUUID, "service", "", "Service UUID (required if characteristic UUID is ambiguous)")
	readCmd.Flags().StringVar(&readDescUUID, "desc", "", "Descriptor UUID (reads descriptor instead of characteristic)")
	readCmd.Flags().BoolVar(&readHex, "hex", false, "Output as hex string (e.g., 'ff01'); raw bytes by default")
	readCmd.Flags().StringVar(&readWatch, "watch", "", "Continuously read at interval (e.g., 1s, 500ms); default 1s if no value given")
	readCmd.Flags().Lookup("watch").NoOptDefVal = "1s"
}

func runRead(cmd *cobra.Command, args []string) error {
	target, charUUID := args[0], args[1]

	var watchInterval time.Duration
	if readWatch != "" {
		var err error
		watchInterval, err = time.ParseDuration(readWatch)
		if err != nil {
			return fmt.Errorf("invalid watch interval: %w", err)
		}
		if watchInterval <= 0 {
			return fmt.Errorf("invalid watch interval %s: must be positive", watchInterval)
		}
	}

	// All arguments validated - don't show usage on runtime errors
	cmd.SilenceUsage = true

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := cmd.Context()
	dev, err := s.connect(ctx, target)
	if err != nil {
		return err
	}

	read, err := readerFor(dev, charUUID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	hexOut := readHex || isTerminal(out)

	if watchInterval > 0 {
		return watchValue(ctx, out, read, watchInterval, hexOut, s.logger)
	}

	data, err := read()
	if err != nil {
		return err
	}
	return outputData(out, data, hexOut)
}

// readerFor resolves the characteristic or descriptor selected by the flags.
func readerFor(dev *bluetooth.Device, charUUID string) (func() ([]byte, error), error) {
	if readDescUUID != "" {
		desc, err := resolveDescriptor(dev, readServiceUUID, charUUID, readDescUUID)
		if err != nil {
			return nil, err
		}
		return desc.ReadValue, nil
	}
	char, err := resolveCharacteristic(dev, readServiceUUID, charUUID)
	if err != nil {
		return nil, err
	}
	return char.ReadValue, nil
}

// watchValue reads immediately and then on every tick until ctx ends.
func watchValue(ctx context.Context, out io.Writer, read func() ([]byte, error), interval time.Duration, hexOut bool, logger *logrus.Logger) error {
	readOnce := func() error {
		data, err := read()
		if err != nil {
			return err
		}
		return outputData(out, data, hexOut)
	}

	if err := readOnce(); err != nil {
		return err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := readOnce(); err != nil {
				if errors.Is(err, bluetooth.ErrNotConnected) {
					return ErrConnectionLost
				}
				logger.WithError(err).Warn("Failed to read value, continuing...")
			}
		}
	}
}

// outputData writes data as a hex line, or raw.
func outputData(out io.Writer, data []byte, hexOut bool) error {
	if hexOut {
		_, err := fmt.Fprintln(out, hex.EncodeToString(data))
		return err
	}
	_, err := out.Write(data)
	return err
}
