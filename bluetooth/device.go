package bluetooth

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/srg/webble/internal/simpleble"
)

// Device is a remote peripheral returned by a request or a scan. It owns the
// native peripheral handle until Close.
type Device struct {
	EventTarget

	bt         *Bluetooth
	peripheral *simpleble.Peripheral
	logger     *logrus.Logger

	name          string
	address       string
	advertisement *Advertisement
	gatt          *Server

	closeOnce sync.Once
}

func newDevice(bt *Bluetooth, p *simpleble.Peripheral, info DeviceInfo) *Device {
	d := &Device{
		bt:            bt,
		peripheral:    p,
		logger:        bt.logger,
		name:          info.Name,
		address:       info.Address,
		advertisement: advertisementFrom(info),
	}
	d.gatt = newServer(d)
	return d
}

// ID identifies the device: its address, or its name when the platform
// hides addresses.
func (d *Device) ID() string {
	if d.address != "" {
		return d.address
	}
	return d.name
}

// Name is the identifier SimpleBLE reported, which carries the advertised
// local name. It may be empty.
func (d *Device) Name() string {
	return d.name
}

func (d *Device) Address() string {
	return d.address
}

// Advertisement returns the advertisement captured when the device was
// found. It is not refreshed afterwards.
func (d *Device) Advertisement() Advertisement {
	a := *d.advertisement
	a.ManufacturerData = maps.Clone(a.ManufacturerData)
	return a
}

// ManufacturerData returns a copy of the advertised manufacturer data.
func (d *Device) ManufacturerData() map[uint16][]byte {
	return maps.Clone(d.advertisement.ManufacturerData)
}

// GATT returns the device's GATT server.
func (d *Device) GATT() *Server {
	return d.gatt
}

// RSSI queries the current signal strength.
func (d *Device) RSSI() (int16, error) {
	rssi, err := d.peripheral.RSSI()
	return rssi, classify("rssi", err, ErrBadResource)
}

func (d *Device) IsConnectable() (bool, error) {
	v, err := d.peripheral.IsConnectable()
	return v, classify("is connectable", err, ErrBadResource)
}

func (d *Device) IsPaired() (bool, error) {
	v, err := d.peripheral.IsPaired()
	return v, classify("is paired", err, ErrBadResource)
}

func (d *Device) Unpair() error {
	return classify("unpair", d.peripheral.Unpair(), ErrBadResource)
}

// WatchAdvertisements is not available through SimpleBLE.
func (d *Device) WatchAdvertisements(context.Context) error {
	return fmt.Errorf("%w: watchAdvertisements", ErrUnsupported)
}

// UnwatchAdvertisements is not available through SimpleBLE.
func (d *Device) UnwatchAdvertisements() error {
	return fmt.Errorf("%w: unwatchAdvertisements", ErrUnsupported)
}

// WatchingAdvertisements is always false.
func (d *Device) WatchingAdvertisements() bool {
	return false
}

// Close disconnects the device if needed and releases its native handle.
// Objects obtained from the device fail with ErrBadResource afterwards.
func (d *Device) Close() {
	d.closeOnce.Do(func() {
		if d.gatt.Connected() {
			if err := d.gatt.Disconnect(); err != nil {
				d.logger.WithError(err).WithField("device", d.ID()).Warn("Failed to disconnect while closing device")
			}
		}
		d.peripheral.Release()
	})
}

func (d *Device) String() string {
	if d.name == "" {
		return d.address
	}
	return fmt.Sprintf("%s (%s)", d.name, d.address)
}
