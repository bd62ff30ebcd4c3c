package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/srg/webble/bluetooth"
)

// subscribeCmd represents the subscribe command
var subscribeCmd = &cobra.Command{
	Use:   "subscribe <device> <characteristic-uuid>",
	Short: "Subscribe to characteristic notifications",
	Long: `Subscribes to notifications and indications of a characteristic and writes
every received value, one per line with --hex. Stops after --count values,
after --duration, on Ctrl+C, or when the device disconnects.

When values arrive faster than they are written, the oldest buffered values
are dropped; --buffer sets how many are kept.

Examples:
  # Stream heart rate measurements
  webble subscribe HRM-1 2a37 --hex

  # Take 10 values and exit
  webble subscribe 11:22:33:44:55:66 2a37 --count 10 --hex

  # Listen for 30 seconds
  webble subscribe HRM-1 2a37 --service 180d --duration 30s`,
	Args: cobra.ExactArgs(2),
	RunE: runSubscribe,
}

var (
	subscribeServiceUUID string
	subscribeHex         bool
	subscribeCount       int
	subscribeDuration    time.Duration
	subscribeBuffer      int
)

func init() {
	subscribeCmd.Flags().StringVar(&subscribeServiceUUID, "service", "", "Service UUID (required if characteristic UUID is ambiguous)")
	subscribeCmd.Flags().BoolVar(&subscribeHex, "hex", false, "Output as hex string; raw bytes by default")
	subscribeCmd.Flags().IntVarP(&subscribeCount, "count", "n", 0, "Exit after this many values; 0 for no limit")
	subscribeCmd.Flags().DurationVarP(&subscribeDuration, "duration", "d", 0, "Exit after this long; 0 for no limit")
	subscribeCmd.Flags().IntVar(&subscribeBuffer, "buffer", 64, "Values buffered before the oldest are dropped")
}

func runSubscribe(cmd *cobra.Command, args []string) error {
	target, charUUID := args[0], args[1]

	if subscribeCount < 0 {
		return fmt.Errorf("invalid count %d: must not be negative", subscribeCount)
	}
	if subscribeDuration < 0 {
		return fmt.Errorf("invalid duration %s: must not be negative", subscribeDuration)
	}
	if subscribeBuffer < 1 {
		return fmt.Errorf("invalid buffer %d: must be at least 1", subscribeBuffer)
	}

	// All arguments validated - don't show usage on runtime errors
	cmd.SilenceUsage = true

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := context.WithCancelCause(cmd.Context())
	defer cancel(nil)

	dev, err := s.connect(ctx, target)
	if err != nil {
		return err
	}
	char, err := resolveCharacteristic(dev, subscribeServiceUUID, charUUID)
	if err != nil {
		return err
	}

	if subscribeDuration > 0 {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeout(ctx, subscribeDuration)
		defer cancelTimeout()
	}

	removeListener := dev.AddEventListener(bluetooth.EventGATTServerDisconnected, func(bluetooth.Event) {
		cancel(ErrConnectionLost)
	})
	defer removeListener()

	values, unsubscribe := char.Subscribe(subscribeBuffer)
	defer unsubscribe()

	if err := char.StartNotifications(); err != nil {
		return fmt.Errorf("failed to start notifications: %w", err)
	}
	defer func() {
		if err := char.StopNotifications(); err != nil {
			s.logger.WithError(err).Debug("Failed to stop notifications")
		}
	}()

	out := cmd.OutOrStdout()
	hexOut := subscribeHex || isTerminal(out)
	s.logger.WithField("characteristic", char.UUID()).Info("Subscribed")

	received := 0
	for {
		select {
		case <-ctx.Done():
			if errors.Is(context.Cause(ctx), ErrConnectionLost) {
				return ErrConnectionLost
			}
			return nil
		case data := <-values:
			if err := outputData(out, data, hexOut); err != nil {
				return err
			}
			received++
			if subscribeCount > 0 && received >= subscribeCount {
				return nil
			}
		}
	}
}
