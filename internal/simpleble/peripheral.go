package simpleble

import (
	"errors"
	"fmt"
	"sync"
)

type subscriptionKey struct {
	service        string
	characteristic string
}

type subscription struct {
	notify   uintptr
	indicate uintptr
}

// Peripheral owns a native peripheral handle. Release gives the handle back
// exactly once; any use afterwards fails with ErrReleased. A call already
// running when Release happens keeps the handle alive until it returns.
type Peripheral struct {
	lib   *Lib
	guard handleGuard

	mu             sync.Mutex
	onConnected    uintptr
	onDisconnected uintptr
	subs           map[subscriptionKey]*subscription
}

func newPeripheral(lib *Lib, h Handle) *Peripheral {
	p := &Peripheral{lib: lib, subs: make(map[subscriptionKey]*subscription)}
	p.guard = handleGuard{h: h, free: p.free}
	return p
}

// Released reports whether Release has been called.
func (p *Peripheral) Released() bool {
	return p.guard.isReleased()
}

// Release drops every callback registered through this peripheral and
// releases the native handle.
func (p *Peripheral) Release() {
	p.guard.release()
}

func (p *Peripheral) free(h Handle) {
	p.mu.Lock()
	p.lib.callbacks.remove(p.onConnected, p.onDisconnected)
	p.onConnected, p.onDisconnected = 0, 0
	for k, s := range p.subs {
		p.lib.callbacks.remove(s.notify, s.indicate)
		delete(p.subs, k)
	}
	p.mu.Unlock()
	p.lib.native.PeripheralReleaseHandle(h)
}

func (p *Peripheral) Identifier() (string, error) {
	h, done, err := p.guard.acquire()
	if err != nil {
		return "", err
	}
	defer done()
	return p.lib.takeString(p.lib.native.PeripheralIdentifier(h)), nil
}

func (p *Peripheral) Address() (string, error) {
	h, done, err := p.guard.acquire()
	if err != nil {
		return "", err
	}
	defer done()
	return p.lib.takeString(p.lib.native.PeripheralAddress(h)), nil
}

func (p *Peripheral) RSSI() (int16, error) {
	h, done, err := p.guard.acquire()
	if err != nil {
		return 0, err
	}
	defer done()
	return p.lib.native.PeripheralRSSI(h), nil
}

func (p *Peripheral) Connect() error {
	h, done, err := p.guard.acquire()
	if err != nil {
		return err
	}
	defer done()
	return check("peripheral_connect", p.lib.native.PeripheralConnect(h))
}

func (p *Peripheral) Disconnect() error {
	h, done, err := p.guard.acquire()
	if err != nil {
		return err
	}
	defer done()
	return check("peripheral_disconnect", p.lib.native.PeripheralDisconnect(h))
}

func (p *Peripheral) IsConnected() (bool, error) {
	return p.flag("peripheral_is_connected", p.lib.native.PeripheralIsConnected)
}

func (p *Peripheral) IsConnectable() (bool, error) {
	return p.flag("peripheral_is_connectable", p.lib.native.PeripheralIsConnectable)
}

func (p *Peripheral) IsPaired() (bool, error) {
	return p.flag("peripheral_is_paired", p.lib.native.PeripheralIsPaired)
}

func (p *Peripheral) flag(op string, get func(Handle, *bool) Status) (bool, error) {
	h, done, err := p.guard.acquire()
	if err != nil {
		return false, err
	}
	defer done()
	var v bool
	if err := check(op, get(h, &v)); err != nil {
		return false, err
	}
	return v, nil
}

func (p *Peripheral) Unpair() error {
	h, done, err := p.guard.acquire()
	if err != nil {
		return err
	}
	defer done()
	return check("peripheral_unpair", p.lib.native.PeripheralUnpair(h))
}

// Services decodes every service record the peripheral currently exposes.
func (p *Peripheral) Services() ([]ServiceRecord, error) {
	h, done, err := p.guard.acquire()
	if err != nil {
		return nil, err
	}
	defer done()

	n := p.lib.native.PeripheralServicesCount(h)
	if err := checkCount("services", n, MaxServices); err != nil {
		return nil, err
	}
	services := make([]ServiceRecord, 0, n)
	buf := make([]byte, ServiceSize)
	for i := 0; i < n; i++ {
		clear(buf)
		if err := check("peripheral_services_get", p.lib.native.PeripheralServicesGet(h, i, buf)); err != nil {
			return nil, fmt.Errorf("service %d: %w", i, err)
		}
		rec, err := DecodeService(buf)
		if err != nil {
			return nil, err
		}
		services = append(services, rec)
	}
	return services, nil
}

// ManufacturerData decodes every manufacturer data entry of the last
// advertisement. An entry that cannot be fetched or decoded is left out and
// reported in err next to the entries that did decode; a failure that
// concerns the whole peripheral returns no entries.
func (p *Peripheral) ManufacturerData() (entries []ManufacturerData, err error) {
	h, done, err := p.guard.acquire()
	if err != nil {
		return nil, err
	}
	defer done()

	n := p.lib.native.PeripheralManufacturerDataCount(h)
	if err := checkCount("manufacturer data", n, MaxManufacturerDataEntries); err != nil {
		return nil, err
	}
	entries = make([]ManufacturerData, 0, n)
	buf := make([]byte, ManufacturerDataSize)
	var skipped []error
	for i := 0; i < n; i++ {
		clear(buf)
		if err := check("peripheral_manufacturer_data_get", p.lib.native.PeripheralManufacturerDataGet(h, i, buf)); err != nil {
			skipped = append(skipped, fmt.Errorf("manufacturer data %d: %w", i, err))
			continue
		}
		md, err := DecodeManufacturerData(buf)
		if err != nil {
			skipped = append(skipped, fmt.Errorf("manufacturer data %d: %w", i, err))
			continue
		}
		entries = append(entries, md)
	}
	return entries, errors.Join(skipped...)
}

func (p *Peripheral) Read(service, characteristic string) ([]byte, error) {
	h, done, err := p.guard.acquire()
	if err != nil {
		return nil, err
	}
	defer done()
	slots, err := uuidSlots(service, characteristic)
	if err != nil {
		return nil, err
	}

	var data, length uintptr
	if err := check("peripheral_read", p.lib.native.PeripheralRead(h, slots[0], slots[1], &data, &length)); err != nil {
		return nil, err
	}
	return p.lib.takeBytes(data, length), nil
}

// WriteRequest writes through simpleble_peripheral_write_request.
func (p *Peripheral) WriteRequest(service, characteristic string, data []byte) error {
	return p.write("peripheral_write_request", p.lib.native.PeripheralWriteRequest, service, characteristic, data)
}

// WriteCommand writes through simpleble_peripheral_write_command.
func (p *Peripheral) WriteCommand(service, characteristic string, data []byte) error {
	return p.write("peripheral_write_command", p.lib.native.PeripheralWriteCommand, service, characteristic, data)
}

func (p *Peripheral) write(op string, fn func(Handle, *UUIDSlot, *UUIDSlot, []byte) Status, service, characteristic string, data []byte) error {
	h, done, err := p.guard.acquire()
	if err != nil {
		return err
	}
	defer done()
	slots, err := uuidSlots(service, characteristic)
	if err != nil {
		return err
	}
	return check(op, fn(h, slots[0], slots[1], data))
}

// Notify registers fn for notifications of the characteristic. The closure
// stays registered until Unsubscribe or Release.
func (p *Peripheral) Notify(service, characteristic string, fn func(data []byte)) error {
	return p.subscribe(service, characteristic, fn, false)
}

// Indicate registers fn for indications of the characteristic. The closure
// stays registered until Unsubscribe or Release.
func (p *Peripheral) Indicate(service, characteristic string, fn func(data []byte)) error {
	return p.subscribe(service, characteristic, fn, true)
}

func (p *Peripheral) subscribe(service, characteristic string, fn func([]byte), indicate bool) error {
	h, done, err := p.guard.acquire()
	if err != nil {
		return err
	}
	defer done()
	slots, err := uuidSlots(service, characteristic)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	token := p.lib.callbacks.add(&callback{onValue: func(_, _ string, data []byte) { fn(data) }})

	op, register := "peripheral_notify", p.lib.native.PeripheralNotify
	if indicate {
		op, register = "peripheral_indicate", p.lib.native.PeripheralIndicate
	}
	if err := check(op, register(h, slots[0], slots[1], token)); err != nil {
		p.lib.callbacks.remove(token)
		return err
	}

	key := subscriptionKey{service: service, characteristic: characteristic}
	s := p.subs[key]
	if s == nil {
		s = &subscription{}
		p.subs[key] = s
	}
	if indicate {
		p.lib.callbacks.remove(s.indicate)
		s.indicate = token
	} else {
		p.lib.callbacks.remove(s.notify)
		s.notify = token
	}
	return nil
}

// Unsubscribe stops notifications and indications of the characteristic and
// drops both closures.
func (p *Peripheral) Unsubscribe(service, characteristic string) error {
	h, done, err := p.guard.acquire()
	if err != nil {
		return err
	}
	defer done()
	slots, err := uuidSlots(service, characteristic)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := check("peripheral_unsubscribe", p.lib.native.PeripheralUnsubscribe(h, slots[0], slots[1])); err != nil {
		return err
	}
	key := subscriptionKey{service: service, characteristic: characteristic}
	if s, ok := p.subs[key]; ok {
		p.lib.callbacks.remove(s.notify, s.indicate)
		delete(p.subs, key)
	}
	return nil
}

// Subscribed reports whether a notify or indicate closure is registered for
// the characteristic.
func (p *Peripheral) Subscribed(service, characteristic string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.subs[subscriptionKey{service: service, characteristic: characteristic}]
	return ok
}

func (p *Peripheral) ReadDescriptor(service, characteristic, descriptor string) ([]byte, error) {
	h, done, err := p.guard.acquire()
	if err != nil {
		return nil, err
	}
	defer done()
	slots, err := uuidSlots(service, characteristic, descriptor)
	if err != nil {
		return nil, err
	}

	var data, length uintptr
	if err := check("peripheral_read_descriptor", p.lib.native.PeripheralReadDescriptor(h, slots[0], slots[1], slots[2], &data, &length)); err != nil {
		return nil, err
	}
	return p.lib.takeBytes(data, length), nil
}

func (p *Peripheral) WriteDescriptor(service, characteristic, descriptor string, data []byte) error {
	h, done, err := p.guard.acquire()
	if err != nil {
		return err
	}
	defer done()
	slots, err := uuidSlots(service, characteristic, descriptor)
	if err != nil {
		return err
	}
	return check("peripheral_write_descriptor", p.lib.native.PeripheralWriteDescriptor(h, slots[0], slots[1], slots[2], data))
}

// OnConnected registers fn for the connected event, replacing any earlier one.
func (p *Peripheral) OnConnected(fn func()) error {
	return p.setEventCallback(&p.onConnected, fn, "peripheral_set_callback_on_connected", p.lib.native.PeripheralSetCallbackOnConnected)
}

// OnDisconnected registers fn for the disconnected event, replacing any
// earlier one.
func (p *Peripheral) OnDisconnected(fn func()) error {
	return p.setEventCallback(&p.onDisconnected, fn, "peripheral_set_callback_on_disconnected", p.lib.native.PeripheralSetCallbackOnDisconnected)
}

func (p *Peripheral) setEventCallback(slot *uintptr, fn func(), op string, set func(Handle, uintptr) Status) error {
	h, done, err := p.guard.acquire()
	if err != nil {
		return err
	}
	defer done()

	p.mu.Lock()
	defer p.mu.Unlock()

	token := p.lib.callbacks.add(&callback{onEvent: fn})
	if err := check(op, set(h, token)); err != nil {
		p.lib.callbacks.remove(token)
		return err
	}
	p.lib.callbacks.remove(*slot)
	*slot = token
	return nil
}
