package main

import (
	"fmt"
	"strings"

	"github.com/srg/webble/bluetooth"
	"github.com/srg/webble/internal/bleuuid"
)

// resolveCharacteristic finds charUUID in serviceUUID, or in every primary
// service when serviceUUID is empty. A characteristic present in more than
// one service must be disambiguated with --service.
func resolveCharacteristic(dev *bluetooth.Device, serviceUUID, charUUID string) (*bluetooth.Characteristic, error) {
	if serviceUUID != "" {
		svc, err := dev.GATT().PrimaryService(serviceUUID)
		if err != nil {
			return nil, err
		}
		return svc.Characteristic(charUUID)
	}

	services, err := dev.GATT().PrimaryServices("")
	if err != nil {
		return nil, err
	}

	var found []*bluetooth.Characteristic
	for _, svc := range services {
		chars, err := svc.Characteristics(charUUID)
		if err != nil {
			return nil, err
		}
		found = append(found, chars...)
	}

	switch len(found) {
	case 0:
		return nil, &bluetooth.NotFoundError{Resource: "characteristic", UUIDs: []string{charUUID}}
	case 1:
		return found[0], nil
	default:
		owners := make([]string, 0, len(found))
		for _, c := range found {
			owners = append(owners, bleuuid.Short(c.Service().UUID()))
		}
		return nil, fmt.Errorf("characteristic %s is present in services %s; use --service: %w",
			charUUID, strings.Join(owners, ", "), bluetooth.ErrInvalidArgument)
	}
}

// resolveDescriptor finds descUUID under the characteristic resolved from
// serviceUUID and charUUID.
func resolveDescriptor(dev *bluetooth.Device, serviceUUID, charUUID, descUUID string) (*bluetooth.Descriptor, error) {
	char, err := resolveCharacteristic(dev, serviceUUID, charUUID)
	if err != nil {
		return nil, err
	}
	return char.Descriptor(descUUID)
}
