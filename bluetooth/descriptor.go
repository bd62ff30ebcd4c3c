package bluetooth

import (
	"fmt"
	"sync"
)

// Descriptor is a GATT descriptor of a characteristic.
type Descriptor struct {
	characteristic *Characteristic
	native         string
	uuid           string

	mu       sync.Mutex
	value    []byte
	hasValue bool
}

func newDescriptor(c *Characteristic, native string) *Descriptor {
	return &Descriptor{characteristic: c, native: native, uuid: displayUUID(native)}
}

func (d *Descriptor) UUID() string {
	return d.uuid
}

func (d *Descriptor) Characteristic() *Characteristic {
	return d.characteristic
}

// Value returns a copy of the cached value, or ErrInvalidData before the
// first read or write.
func (d *Descriptor) Value() ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.hasValue {
		return nil, fmt.Errorf("descriptor %s: %w: no value read yet", d.uuid, ErrInvalidData)
	}
	return append([]byte(nil), d.value...), nil
}

func (d *Descriptor) ReadValue() ([]byte, error) {
	c := d.characteristic
	if err := c.device().gatt.ensureConnected(); err != nil {
		return nil, err
	}
	svc, chr := c.path()
	data, err := c.device().peripheral.ReadDescriptor(svc, chr, d.native)
	if err != nil {
		return nil, classify("read descriptor "+d.uuid, err, ErrBadResource)
	}
	d.store(data)
	return append([]byte(nil), data...), nil
}

func (d *Descriptor) WriteValue(data []byte) error {
	c := d.characteristic
	if err := c.device().gatt.ensureConnected(); err != nil {
		return err
	}
	svc, chr := c.path()
	buf := append([]byte(nil), data...)
	if err := c.device().peripheral.WriteDescriptor(svc, chr, d.native, buf); err != nil {
		return classify("write descriptor "+d.uuid, err, ErrBadResource)
	}
	d.store(buf)
	return nil
}

func (d *Descriptor) store(data []byte) {
	d.mu.Lock()
	d.value, d.hasValue = append([]byte(nil), data...), true
	d.mu.Unlock()
}
