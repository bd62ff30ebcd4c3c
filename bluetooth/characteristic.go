package bluetooth

import (
	"fmt"
	"sync"

	"github.com/srg/webble/internal/bleuuid"
	"github.com/srg/webble/internal/ringchan"
	"github.com/srg/webble/internal/simpleble"
)

// Characteristic is a GATT characteristic. It caches the last value read,
// written or notified.
type Characteristic struct {
	EventTarget

	service    *Service
	record     simpleble.CharacteristicRecord
	uuid       string
	properties CharacteristicProperties

	mu       sync.Mutex
	value    []byte
	hasValue bool
}

func newCharacteristic(s *Service, rec simpleble.CharacteristicRecord) *Characteristic {
	return &Characteristic{
		service:    s,
		record:     rec,
		uuid:       displayUUID(rec.UUID),
		properties: propertiesFromFlags(assumedProperties),
	}
}

func (c *Characteristic) UUID() string {
	return c.uuid
}

func (c *Characteristic) Service() *Service {
	return c.service
}

func (c *Characteristic) Properties() CharacteristicProperties {
	return c.properties
}

// Value returns a copy of the cached value, or ErrInvalidData when nothing
// has been read, written or notified yet.
func (c *Characteristic) Value() ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.hasValue {
		return nil, fmt.Errorf("characteristic %s: %w: no value read yet", c.uuid, ErrInvalidData)
	}
	return append([]byte(nil), c.value...), nil
}

func (c *Characteristic) device() *Device {
	return c.service.device
}

func (c *Characteristic) path() (string, string) {
	return c.service.record.UUID, c.record.UUID
}

// ReadValue reads the value, caches it and dispatches
// characteristicvaluechanged.
func (c *Characteristic) ReadValue() ([]byte, error) {
	if err := c.device().gatt.ensureConnected(); err != nil {
		return nil, err
	}
	svc, chr := c.path()
	data, err := c.device().peripheral.Read(svc, chr)
	if err != nil {
		return nil, classify("read "+c.uuid, err, ErrBadResource)
	}
	c.setValue(data)
	return append([]byte(nil), data...), nil
}

// WriteValueWithResponse writes data through SimpleBLE's write command.
func (c *Characteristic) WriteValueWithResponse(data []byte) error {
	svc, chr := c.path()
	return c.write(data, c.device().peripheral.WriteCommand, svc, chr)
}

// WriteValueWithoutResponse writes data through SimpleBLE's write request.
func (c *Characteristic) WriteValueWithoutResponse(data []byte) error {
	svc, chr := c.path()
	return c.write(data, c.device().peripheral.WriteRequest, svc, chr)
}

// write caches data on success without dispatching an event.
func (c *Characteristic) write(data []byte, fn func(string, string, []byte) error, svc, chr string) error {
	if err := c.device().gatt.ensureConnected(); err != nil {
		return err
	}
	buf := append([]byte(nil), data...)
	if err := fn(svc, chr, buf); err != nil {
		return classify("write "+c.uuid, err, ErrWriteFailed)
	}
	c.mu.Lock()
	c.value, c.hasValue = buf, true
	c.mu.Unlock()
	return nil
}

// StartNotifications subscribes to both notifications and indications.
// Every value received is cached and dispatched as
// characteristicvaluechanged.
func (c *Characteristic) StartNotifications() error {
	if err := c.device().gatt.ensureConnected(); err != nil {
		return err
	}
	p := c.device().peripheral
	svc, chr := c.path()
	if err := p.Notify(svc, chr, c.setValue); err != nil {
		return classify("start notifications "+c.uuid, err, ErrBadResource)
	}
	if err := p.Indicate(svc, chr, c.setValue); err != nil {
		_ = p.Unsubscribe(svc, chr)
		return classify("start notifications "+c.uuid, err, ErrBadResource)
	}
	c.device().logger.WithField("characteristic", c.uuid).Debug("Notifications started")
	return nil
}

// StopNotifications unsubscribes. Stopping notifications that were never
// started succeeds.
func (c *Characteristic) StopNotifications() error {
	p := c.device().peripheral
	svc, chr := c.path()
	if !p.Subscribed(svc, chr) {
		return nil
	}
	if err := p.Unsubscribe(svc, chr); err != nil {
		return classify("stop notifications "+c.uuid, err, ErrBadResource)
	}
	c.device().logger.WithField("characteristic", c.uuid).Debug("Notifications stopped")
	return nil
}

// Notifying reports whether notifications are active for this
// characteristic on its device.
func (c *Characteristic) Notifying() bool {
	svc, chr := c.path()
	return c.device().peripheral.Subscribed(svc, chr)
}

// Subscribe delivers every value change to a channel holding at most
// capacity values; the oldest is dropped when the consumer falls behind.
// Call cancel to stop delivery and close the channel. Subscribe does not
// start notifications.
func (c *Characteristic) Subscribe(capacity int) (values <-chan []byte, cancel func()) {
	rc := ringchan.New[[]byte](max(capacity, 1))
	remove := c.AddEventListener(EventCharacteristicValueChanged, func(e Event) {
		rc.Send(e.Value)
	})
	var once sync.Once
	return rc.C(), func() {
		once.Do(func() {
			remove()
			rc.Close()
		})
	}
}

// setValue caches data and dispatches characteristicvaluechanged to the
// characteristic, its service and its device, in that order.
func (c *Characteristic) setValue(data []byte) {
	buf := append([]byte(nil), data...)
	c.mu.Lock()
	c.value, c.hasValue = buf, true
	c.mu.Unlock()

	d := c.device()
	e := Event{
		Type:           EventCharacteristicValueChanged,
		Device:         d,
		Service:        c.service,
		Characteristic: c,
		Value:          buf,
	}
	c.dispatchEvent(e)
	c.service.dispatchEvent(e)
	d.dispatchEvent(e)
}

// Descriptors returns the characteristic's descriptors, or only those
// matching uuid when it is not empty.
func (c *Characteristic) Descriptors(uuid string) ([]*Descriptor, error) {
	if err := c.device().gatt.ensureConnected(); err != nil {
		return nil, err
	}
	want, err := canonicalFilter(uuid)
	if err != nil {
		return nil, err
	}

	var descriptors []*Descriptor
	for _, native := range c.record.Descriptors {
		if want != "" && !bleuuid.Equal(native, want) {
			continue
		}
		descriptors = append(descriptors, newDescriptor(c, native))
	}
	return descriptors, nil
}

// Descriptor returns the descriptor with the given UUID.
func (c *Characteristic) Descriptor(uuid string) (*Descriptor, error) {
	if err := c.device().gatt.ensureConnected(); err != nil {
		return nil, err
	}
	if uuid == "" {
		return nil, fmt.Errorf("%w: descriptor uuid is required", ErrInvalidArgument)
	}
	descriptors, err := c.Descriptors(uuid)
	if err != nil {
		return nil, err
	}
	if len(descriptors) == 0 {
		return nil, &NotFoundError{Resource: "descriptor", UUIDs: []string{c.uuid, uuid}}
	}
	return descriptors[0], nil
}
