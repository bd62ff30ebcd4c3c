package bluetooth

import (
	"fmt"

	"github.com/srg/webble/internal/bleuuid"
	"github.com/srg/webble/internal/simpleble"
)

// Service is a primary GATT service. A new Service is built for every
// lookup; they are cheap and share the device's native handle.
type Service struct {
	EventTarget

	device *Device
	record simpleble.ServiceRecord
	uuid   string
}

func newService(d *Device, rec simpleble.ServiceRecord) *Service {
	s := &Service{device: d, record: rec, uuid: displayUUID(rec.UUID)}
	e := Event{Type: EventServiceAdded, Device: d, Service: s}
	s.dispatchEvent(e)
	d.dispatchEvent(e)
	return s
}

// UUID returns the canonical 128-bit UUID.
func (s *Service) UUID() string {
	return s.uuid
}

func (s *Service) Device() *Device {
	return s.device
}

// IsPrimary is always true: SimpleBLE only exposes primary services.
func (s *Service) IsPrimary() bool {
	return true
}

// Characteristics returns the service's characteristics, or only those
// matching uuid when it is not empty.
func (s *Service) Characteristics(uuid string) ([]*Characteristic, error) {
	if err := s.device.gatt.ensureConnected(); err != nil {
		return nil, err
	}
	want, err := canonicalFilter(uuid)
	if err != nil {
		return nil, err
	}

	var chars []*Characteristic
	for _, rec := range s.record.Characteristics {
		if want != "" && !bleuuid.Equal(rec.UUID, want) {
			continue
		}
		chars = append(chars, newCharacteristic(s, rec))
	}
	return chars, nil
}

// Characteristic returns the characteristic with the given UUID.
func (s *Service) Characteristic(uuid string) (*Characteristic, error) {
	if err := s.device.gatt.ensureConnected(); err != nil {
		return nil, err
	}
	if uuid == "" {
		return nil, fmt.Errorf("%w: characteristic uuid is required", ErrInvalidArgument)
	}
	chars, err := s.Characteristics(uuid)
	if err != nil {
		return nil, err
	}
	if len(chars) == 0 {
		return nil, &NotFoundError{Resource: "characteristic", UUIDs: []string{s.uuid, uuid}}
	}
	return chars[0], nil
}

// displayUUID canonicalizes a native UUID, keeping it as is when it does
// not parse.
func displayUUID(native string) string {
	if c, err := bleuuid.Canonical(native); err == nil {
		return c
	}
	return native
}
