package bluetooth

import (
	"maps"
	"time"
)

const (
	// DefaultRequestTimeout is how long a bounded request scans.
	DefaultRequestTimeout = 5 * time.Second
	// DefaultScanInterval is the length of one continuous scan cycle.
	DefaultScanInterval = 200 * time.Millisecond
)

// DeviceInfo is what a filter sees of a discovered peripheral. Name is the
// SimpleBLE identifier, which carries the advertised local name.
type DeviceInfo struct {
	Name             string
	Address          string
	RSSI             int16
	ManufacturerData map[uint16][]byte
}

func (i DeviceInfo) clone() DeviceInfo {
	c := i
	c.ManufacturerData = make(map[uint16][]byte, len(i.ManufacturerData))
	for k, v := range i.ManufacturerData {
		c.ManufacturerData[k] = append([]byte(nil), v...)
	}
	return c
}

// Predicate decides whether a discovered peripheral is wanted.
type Predicate func(DeviceInfo) bool

// ManufacturerDataFilter matches one company's manufacturer data. Mask,
// when set, must be as long as DataPrefix and is applied to both sides
// before comparing.
type ManufacturerDataFilter struct {
	CompanyIdentifier uint16
	DataPrefix        []byte
	Mask              []byte
}

// ScanFilter is one declarative filter clause. Every field that is set must
// match. Services is declared for completeness and always rejected.
type ScanFilter struct {
	Name             string
	NamePrefix       string
	ManufacturerData []ManufacturerDataFilter
	Services         []string
}

// RequestDeviceOptions configures RequestDevice and RequestDevices. Exactly
// one of Filters, Filter or AcceptAllDevices must be given.
type RequestDeviceOptions struct {
	Filters          []ScanFilter
	Filter           Predicate
	AcceptAllDevices bool
	// Timeout is the scan duration; zero means DefaultRequestTimeout.
	Timeout time.Duration
}

// ScanOptions configures Scan. Exactly one of Filters, Filter or
// AcceptAllDevices must be given.
type ScanOptions struct {
	Filters          []ScanFilter
	Filter           Predicate
	AcceptAllDevices bool
	// Interval is the length of one scan cycle; zero means
	// DefaultScanInterval.
	Interval time.Duration
}

// Advertisement is the advertisement data captured when a device was found.
type Advertisement struct {
	Name             string
	Address          string
	RSSI             int16
	ManufacturerData map[uint16][]byte
}

func advertisementFrom(info DeviceInfo) *Advertisement {
	return &Advertisement{
		Name:             info.Name,
		Address:          info.Address,
		RSSI:             info.RSSI,
		ManufacturerData: maps.Clone(info.ManufacturerData),
	}
}
