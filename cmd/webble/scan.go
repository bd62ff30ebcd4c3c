package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/srg/webble/bluetooth"
	"github.com/srg/webble/internal/luafilter"
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for BLE devices",
	Long: `Scan for and display Bluetooth Low Energy devices in the vicinity.

Filters are combined: every given flag must match. --lua selects devices with
a script that defines match(device) instead, where device has the fields
name, address, rssi and manufacturer_data (company id -> bytes).

Examples:
  # Scan for 5 seconds and print a table
  webble scan -d 5s

  # Devices whose name starts with "HRM"
  webble scan --prefix HRM

  # Apple iBeacons: company 004c, data starting with 0215
  webble scan --manufacturer 004c:0215

  # Only match the high nibble of the first byte
  webble scan --manufacturer 004c:10/f0

  # Stream devices as they are found until Ctrl+C
  webble scan --watch`,
	Args: cobra.NoArgs,
	RunE: runScan,
}

var (
	scanDuration     time.Duration
	scanFormat       string
	scanName         string
	scanPrefix       string
	scanManufacturer []string
	scanLua          string
	scanWatch        bool
)

func init() {
	scanCmd.Flags().DurationVarP(&scanDuration, "duration", "d", 0, "Scan duration; default request_timeout, indefinite with --watch")
	scanCmd.Flags().StringVarP(&scanFormat, "format", "f", "table", "Output format (table, json)")
	scanCmd.Flags().StringVar(&scanName, "name", "", "Only show devices with this exact name")
	scanCmd.Flags().StringVar(&scanPrefix, "prefix", "", "Only show devices whose name starts with this prefix")
	scanCmd.Flags().StringSliceVar(&scanManufacturer, "manufacturer", nil, "Manufacturer data filter COMPANY[:PREFIX[/MASK]] in hex, repeatable")
	scanCmd.Flags().StringVar(&scanLua, "lua", "", "Lua script defining match(device)")
	scanCmd.Flags().BoolVarP(&scanWatch, "watch", "w", false, "Stream devices as they are discovered")
}

type deviceJSON struct {
	Name             string            `json:"name"`
	Address          string            `json:"address"`
	RSSI             int16             `json:"rssi"`
	ManufacturerData map[string]string `json:"manufacturer_data"`
}

func toDeviceJSON(adv bluetooth.Advertisement) deviceJSON {
	return deviceJSON{
		Name:             adv.Name,
		Address:          adv.Address,
		RSSI:             adv.RSSI,
		ManufacturerData: manufacturerDataJSON(adv.ManufacturerData),
	}
}

// parseManufacturerFilter parses COMPANY[:PREFIX[/MASK]], all in hex.
func parseManufacturerFilter(arg string) (bluetooth.ManufacturerDataFilter, error) {
	var f bluetooth.ManufacturerDataFilter

	company, data, hasData := strings.Cut(arg, ":")
	id, err := strconv.ParseUint(strings.TrimPrefix(company, "0x"), 16, 16)
	if err != nil {
		return f, fmt.Errorf("invalid company identifier %q: %w", company, err)
	}
	f.CompanyIdentifier = uint16(id)
	if !hasData {
		return f, nil
	}

	prefix, mask, hasMask := strings.Cut(data, "/")
	if f.DataPrefix, err = hex.DecodeString(prefix); err != nil {
		return f, fmt.Errorf("invalid data prefix %q: %w", prefix, err)
	}
	if hasMask {
		if f.Mask, err = hex.DecodeString(mask); err != nil {
			return f, fmt.Errorf("invalid mask %q: %w", mask, err)
		}
	}
	return f, nil
}

// scanFilters builds the single declarative filter from the flags, or nil
// when no filter flag is set.
func scanFilters() ([]bluetooth.ScanFilter, error) {
	if scanName == "" && scanPrefix == "" && len(scanManufacturer) == 0 {
		return nil, nil
	}
	f := bluetooth.ScanFilter{Name: scanName, NamePrefix: scanPrefix}
	for _, arg := range scanManufacturer {
		md, err := parseManufacturerFilter(arg)
		if err != nil {
			return nil, err
		}
		f.ManufacturerData = append(f.ManufacturerData, md)
	}
	return []bluetooth.ScanFilter{f}, nil
}

// scanSelection is what a scan matches against: declarative filters, a Lua
// predicate or everything.
type scanSelection struct {
	filters []bluetooth.ScanFilter
	lua     *luafilter.Filter
}

func (sel scanSelection) predicate() bluetooth.Predicate {
	if sel.lua == nil {
		return nil
	}
	return sel.lua.Predicate()
}

func (sel scanSelection) acceptAll() bool {
	return sel.lua == nil && len(sel.filters) == 0
}

func (sel scanSelection) close(logger *logrus.Logger) {
	if sel.lua == nil {
		return
	}
	if err := sel.lua.Err(); err != nil {
		logger.WithError(err).Warn("Lua filter reported an error")
	}
	sel.lua.Close()
}

func runScan(cmd *cobra.Command, _ []string) error {
	if err := validateFormat(scanFormat); err != nil {
		return err
	}
	if scanDuration < 0 {
		return fmt.Errorf("invalid duration %s: must not be negative", scanDuration)
	}

	filters, err := scanFilters()
	if err != nil {
		return err
	}
	if scanLua != "" && filters != nil {
		return fmt.Errorf("--lua cannot be combined with --name, --prefix or --manufacturer")
	}

	// All arguments validated - don't show usage on runtime errors
	cmd.SilenceUsage = true

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	sel := scanSelection{filters: filters}
	if scanLua != "" {
		if sel.lua, err = luafilter.Load(scanLua, s.logger); err != nil {
			return err
		}
	}
	defer sel.close(s.logger)

	if scanWatch {
		return runWatchMode(cmd.Context(), cmd.OutOrStdout(), s, sel)
	}
	return runSingleScan(cmd.Context(), cmd.OutOrStdout(), s, sel)
}

func runSingleScan(ctx context.Context, out io.Writer, s *session, sel scanSelection) error {
	devices, err := s.bt.RequestDevices(ctx, bluetooth.RequestDeviceOptions{
		Filters:          sel.filters,
		Filter:           sel.predicate(),
		AcceptAllDevices: sel.acceptAll(),
		Timeout:          scanDuration,
	})
	switch {
	case errors.Is(err, bluetooth.ErrNotFound):
		fmt.Fprintln(out, "No devices discovered")
		return nil
	case err != nil:
		return err
	}

	advs := make([]bluetooth.Advertisement, 0, len(devices))
	for _, d := range devices {
		advs = append(advs, d.Advertisement())
	}

	if scanFormat == "json" {
		list := make([]deviceJSON, 0, len(advs))
		for _, adv := range advs {
			list = append(list, toDeviceJSON(adv))
		}
		return writeJSON(out, list)
	}
	return displayDevicesTable(out, advs)
}

func displayDevicesTable(out io.Writer, advs []bluetooth.Advertisement) error {
	w := newTable(out)
	fmt.Fprintln(w, "NAME\tADDRESS\tRSSI\tMANUFACTURER DATA")
	for _, adv := range advs {
		name := adv.Name
		if len(name) > 20 {
			name = name[:17] + "..."
		}
		fmt.Fprintf(w, "%s\t%s\t%d dBm\t%s\n", name, adv.Address, adv.RSSI, formatManufacturerData(adv.ManufacturerData))
	}
	return w.Flush()
}

// runWatchMode prints every device once, as it is discovered, until the
// duration elapses or the command is interrupted.
func runWatchMode(ctx context.Context, out io.Writer, s *session, sel scanSelection) error {
	if scanDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, scanDuration)
		defer cancel()
	}

	highlight := color.New(color.FgCyan, color.Bold)
	if !isTerminal(out) {
		highlight.DisableColor()
	}

	seq := s.bt.Scan(ctx, bluetooth.ScanOptions{
		Filters:          sel.filters,
		Filter:           sel.predicate(),
		AcceptAllDevices: sel.acceptAll(),
	})

	for dev, err := range seq {
		if err != nil {
			return err
		}
		adv := dev.Advertisement()
		if scanFormat == "json" {
			// One object per line so the stream can be piped.
			if err := writeJSONLine(out, toDeviceJSON(adv)); err != nil {
				return err
			}
			continue
		}
		fmt.Fprintf(out, "%s  %s  %d dBm  %s\n",
			highlight.Sprint(adv.Address), adv.Name, adv.RSSI, formatManufacturerData(adv.ManufacturerData))
	}
	return nil
}
