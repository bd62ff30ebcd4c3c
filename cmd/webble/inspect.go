package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/srg/webble/bluetooth"
	"github.com/srg/webble/internal/bleuuid"
	"github.com/srg/webble/internal/gattfmt"
)

// inspectCmd represents the inspect command
var inspectCmd = &cobra.Command{
	Use:   "inspect <device>",
	Short: "Inspect the GATT profile of a device",
	Long: `Connects to a device, given by address or advertised name, and prints its
primary services, characteristics with their properties, and descriptors.

Examples:
  # Print the GATT tree
  webble inspect 11:22:33:44:55:66

  # Also read every characteristic and descriptor value
  webble inspect HRM-1 --read

  # JSON output, services and characteristics in discovery order
  webble inspect HRM-1 --format json`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

var (
	inspectFormat string
	inspectRead   bool
)

func init() {
	inspectCmd.Flags().StringVarP(&inspectFormat, "format", "f", "text", "Output format (text, json)")
	inspectCmd.Flags().BoolVar(&inspectRead, "read", false, "Read characteristic and descriptor values")
}

// profile is the walked GATT tree of one device.
type profile struct {
	device   *bluetooth.Device
	services []serviceProfile
}

type serviceProfile struct {
	uuid  string
	chars []charProfile
}

type charProfile struct {
	uuid        string
	props       bluetooth.CharacteristicProperties
	value       []byte
	readErr     error
	descriptors []descProfile
}

type descProfile struct {
	uuid    string
	value   []byte
	readErr error
}

func runInspect(cmd *cobra.Command, args []string) error {
	if inspectFormat != "text" && inspectFormat != "json" {
		return fmt.Errorf("invalid format '%s': must be one of [text json]", inspectFormat)
	}

	// All arguments validated - don't show usage on runtime errors
	cmd.SilenceUsage = true

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	dev, err := s.connect(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	p, err := walkProfile(dev, inspectRead)
	if err != nil {
		return err
	}

	if inspectFormat == "json" {
		return writeJSON(cmd.OutOrStdout(), p.toJSON())
	}
	p.print(cmd.OutOrStdout())
	return nil
}

// walkProfile collects every primary service, characteristic and
// descriptor. With read set, readable values are fetched as well; a failed
// read is recorded on the entry instead of aborting the walk.
func walkProfile(dev *bluetooth.Device, read bool) (*profile, error) {
	services, err := dev.GATT().PrimaryServices("")
	if err != nil {
		return nil, err
	}

	p := &profile{device: dev}
	for _, svc := range services {
		sp := serviceProfile{uuid: svc.UUID()}

		chars, err := svc.Characteristics("")
		if err != nil {
			return nil, err
		}
		for _, c := range chars {
			cp := charProfile{uuid: c.UUID(), props: c.Properties()}
			if read && cp.props.Read {
				cp.value, cp.readErr = c.ReadValue()
			}

			descs, err := c.Descriptors("")
			if err != nil {
				return nil, err
			}
			for _, d := range descs {
				dp := descProfile{uuid: d.UUID()}
				if read {
					dp.value, dp.readErr = d.ReadValue()
				}
				cp.descriptors = append(cp.descriptors, dp)
			}
			sp.chars = append(sp.chars, cp)
		}
		p.services = append(p.services, sp)
	}
	return p, nil
}

func valueString(value []byte, err error) string {
	if err != nil {
		return "error: " + err.Error()
	}
	return hex.EncodeToString(value)
}

func (p *profile) print(w io.Writer) {
	fmt.Fprintf(w, "Device %s (%s)\n", p.device.Name(), p.device.Address())
	for _, svc := range p.services {
		fmt.Fprintf(w, "  Service %s\n", bleuuid.Short(svc.uuid))
		for _, c := range svc.chars {
			fmt.Fprintf(w, "    Characteristic %s [%s]\n", bleuuid.Short(c.uuid), c.props)
			if c.value != nil || c.readErr != nil {
				fmt.Fprintf(w, "      value: %s\n", valueString(c.value, c.readErr))
			}
			for _, d := range c.descriptors {
				line := fmt.Sprintf("      Descriptor %s", bleuuid.Short(d.uuid))
				if d.value != nil || d.readErr != nil {
					line += " value: " + valueString(d.value, d.readErr)
				}
				if desc := gattfmt.Describe(d.uuid, d.value); d.readErr == nil && desc != "" {
					line += " (" + desc + ")"
				}
				fmt.Fprintln(w, line)
			}
		}
	}
}

// toJSON keeps services, characteristics and descriptors in discovery order.
func (p *profile) toJSON() *orderedmap.OrderedMap[string, any] {
	root := orderedmap.New[string, any]()

	device := orderedmap.New[string, any]()
	device.Set("name", p.device.Name())
	device.Set("address", p.device.Address())
	root.Set("device", device)

	services := orderedmap.New[string, any]()
	for _, svc := range p.services {
		chars := orderedmap.New[string, any]()
		for _, c := range svc.chars {
			entry := orderedmap.New[string, any]()
			entry.Set("properties", strings.Split(c.props.String(), ","))
			if c.readErr != nil {
				entry.Set("error", c.readErr.Error())
			} else if c.value != nil {
				entry.Set("value", hex.EncodeToString(c.value))
			}

			descs := orderedmap.New[string, any]()
			for _, d := range c.descriptors {
				var v any
				switch {
				case d.readErr != nil:
					v = map[string]string{"error": d.readErr.Error()}
				case d.value != nil:
					v = hex.EncodeToString(d.value)
				}
				descs.Set(d.uuid, v)
			}
			entry.Set("descriptors", descs)
			chars.Set(c.uuid, entry)
		}
		svcEntry := orderedmap.New[string, any]()
		svcEntry.Set("characteristics", chars)
		services.Set(svc.uuid, svcEntry)
	}
	root.Set("services", services)
	return root
}
