package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// writeCmd represents the write command
var writeCmd = &cobra.Command{
	Use:   "write <device> <characteristic-uuid> <data>",
	Short: "Write to a characteristic or descriptor",
	Long: `Writes data to a characteristic, or one of its descriptors, on a device
given by address or advertised name.

Examples:
  # Write a string
  webble write 11:22:33:44:55:66 2a06 "high"

  # Write hex data
  webble write HRM-1 2a39 01 --hex

  # Enable notifications through the CCCD
  webble write HRM-1 2a37 0100 --desc 2902 --hex

  # Write without response
  webble write HRM-1 2a39 01 --hex --without-response`,
	Args: cobra.ExactArgs(3),
	RunE: runWrite,
}

var (
	writeServiceUUID string
	writeDescUUID    string
	writeHex         bool
	writeNoResponse  bool
)

func init() {
	writeCmd.Flags().StringVar(&writeServiceUUID, "service", "", "Service UUID (required if characteristic UUID is ambiguous)")
	writeCmd.Flags().StringVar(&writeDescUUID, "desc", "", "Descriptor UUID (writes descriptor instead of characteristic)")
	writeCmd.Flags().BoolVar(&writeHex, "hex", false, "Parse input as hex string (e.g., 'FF01'); raw bytes by default")
	writeCmd.Flags().BoolVar(&writeNoResponse, "without-response", false, "Write without response")
}

func runWrite(cmd *cobra.Command, args []string) error {
	target, charUUID := args[0], args[1]

	data := []byte(args[2])
	if writeHex {
		var err error
		if data, err = parseHexData(args[2]); err != nil {
			return fmt.Errorf("failed to parse data: %w", err)
		}
	}
	if writeNoResponse && writeDescUUID != "" {
		return fmt.Errorf("--without-response does not apply to descriptors")
	}

	// All arguments validated - don't show usage on runtime errors
	cmd.SilenceUsage = true

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	dev, err := s.connect(cmd.Context(), target)
	if err != nil {
		return err
	}

	if writeDescUUID != "" {
		desc, err := resolveDescriptor(dev, writeServiceUUID, charUUID, writeDescUUID)
		if err != nil {
			return err
		}
		if err := desc.WriteValue(data); err != nil {
			return fmt.Errorf("failed to write descriptor: %w", err)
		}
	} else {
		char, err := resolveCharacteristic(dev, writeServiceUUID, charUUID)
		if err != nil {
			return err
		}
		write := char.WriteValueWithResponse
		if writeNoResponse {
			write = char.WriteValueWithoutResponse
		}
		if err := write(data); err != nil {
			return fmt.Errorf("failed to write characteristic: %w", err)
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d bytes\n", len(data))
	return nil
}
