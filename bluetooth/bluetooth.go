package bluetooth

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"

	"github.com/srg/webble/internal/simpleble"
	"github.com/srg/webble/internal/tracer"
)

// AdapterInfo describes one native adapter.
type AdapterInfo struct {
	Index      int
	Identifier string
	Address    string
}

// Bluetooth is the entry point: it owns the active adapter and every device
// handed out by a request or a scan.
type Bluetooth struct {
	EventTarget

	lib            *simpleble.Lib
	ownsLib        bool
	logger         *logrus.Logger
	requestTimeout time.Duration
	scanInterval   time.Duration
	connectTimeout time.Duration

	adapters []AdapterInfo

	mu       sync.Mutex
	adapter  *simpleble.Adapter
	active   int
	devices  []*Device
	scanning bool

	// closed is only set under mu; closing is closed with it and wakes a
	// scan that is waiting out its cycle.
	closed  atomic.Bool
	closing chan struct{}
}

// Option configures a Bluetooth instance.
type Option func(*Bluetooth)

func WithLogger(logger *logrus.Logger) Option {
	return func(b *Bluetooth) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithRequestTimeout sets the default scan duration of RequestDevice and
// RequestDevices.
func WithRequestTimeout(d time.Duration) Option {
	return func(b *Bluetooth) { b.requestTimeout = d }
}

// WithScanInterval sets the default cycle length of Scan.
func WithScanInterval(d time.Duration) Option {
	return func(b *Bluetooth) { b.scanInterval = d }
}

// WithConnectTimeout bounds Server.Connect. Zero leaves it to the caller's
// context.
func WithConnectTimeout(d time.Duration) Option {
	return func(b *Bluetooth) { b.connectTimeout = d }
}

// Open loads the SimpleBLE library from path and returns a Bluetooth that
// closes it again on Close.
func Open(path string, opts ...Option) (*Bluetooth, error) {
	probe := &Bluetooth{logger: logrus.New()}
	for _, opt := range opts {
		opt(probe)
	}
	lib, err := simpleble.Open(path, probe.logger)
	if err != nil {
		return nil, err
	}
	b, err := New(lib, opts...)
	if err != nil {
		_ = lib.Close()
		return nil, err
	}
	b.ownsLib = true
	return b, nil
}

// New enumerates the adapters of lib and activates the first one. It fails
// with ErrNoAdapters when there is none.
func New(lib *simpleble.Lib, opts ...Option) (*Bluetooth, error) {
	b := &Bluetooth{
		lib:            lib,
		logger:         logrus.New(),
		requestTimeout: DefaultRequestTimeout,
		scanInterval:   DefaultScanInterval,
		closing:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}

	count := lib.AdapterCount()
	for i := 0; i < count; i++ {
		info, err := b.describeAdapter(i)
		if err != nil {
			b.logger.WithError(err).WithField("index", i).Warn("Skipping adapter")
			continue
		}
		b.adapters = append(b.adapters, info)
	}
	if len(b.adapters) == 0 {
		return nil, ErrNoAdapters
	}

	if err := b.activate(b.adapters[0].Index); err != nil {
		return nil, err
	}
	b.logger.WithFields(logrus.Fields{
		"adapters": len(b.adapters),
		"active":   b.adapters[0].Identifier,
	}).Info("Bluetooth ready")
	b.dispatchEvent(Event{Type: EventAvailabilityChanged, Available: true})
	return b, nil
}

func (b *Bluetooth) describeAdapter(index int) (AdapterInfo, error) {
	a, err := b.lib.Adapter(index)
	if err != nil {
		return AdapterInfo{}, classify("adapter", err, ErrBadResource)
	}
	defer a.Release()

	id, err := a.Identifier()
	if err != nil {
		return AdapterInfo{}, classify("adapter identifier", err, ErrBadResource)
	}
	addr, err := a.Address()
	if err != nil {
		return AdapterInfo{}, classify("adapter address", err, ErrBadResource)
	}
	return AdapterInfo{Index: index, Identifier: id, Address: addr}, nil
}

// activate acquires the adapter at index, wires its callbacks and releases
// the previously active one.
func (b *Bluetooth) activate(index int) error {
	a, err := b.lib.Adapter(index)
	if err != nil {
		return classify("adapter", err, ErrBadResource)
	}

	register := []error{
		a.OnScanStart(func() { b.dispatchEvent(Event{Type: EventScanStart}) }),
		a.OnScanStop(func() { b.dispatchEvent(Event{Type: EventScanStop}) }),
		a.OnScanFound(b.onAdvertisement),
		a.OnScanUpdated(b.onAdvertisement),
	}
	for _, err := range register {
		if err != nil {
			b.logger.WithError(err).Warn("Failed to register adapter callback")
		}
	}

	b.mu.Lock()
	old := b.adapter
	b.adapter, b.active = a, index
	b.mu.Unlock()

	if old != nil {
		old.Release()
	}
	return nil
}

// onAdvertisement runs on the native scan thread. It never keeps the
// handle.
func (b *Bluetooth) onAdvertisement(p *simpleble.Peripheral) {
	defer p.Release()
	if b.ListenerCount(EventAdvertisementReceived) == 0 {
		return
	}
	info, err := describePeripheral(p, b.logger)
	if err != nil {
		b.logger.WithError(err).Debug("Dropping undecodable advertisement")
		return
	}
	b.dispatchEvent(Event{Type: EventAdvertisementReceived, Advertisement: advertisementFrom(info)})
}

// Adapters lists the adapters found at construction.
func (b *Bluetooth) Adapters() []AdapterInfo {
	return append([]AdapterInfo(nil), b.adapters...)
}

// Adapter returns the active adapter.
func (b *Bluetooth) Adapter() AdapterInfo {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, info := range b.adapters {
		if info.Index == b.active {
			return info
		}
	}
	return AdapterInfo{Index: b.active}
}

// SetAdapter makes the adapter with the given index active. It fails with
// ErrScanInProgress while a scan runs.
func (b *Bluetooth) SetAdapter(index int) error {
	done, err := b.beginScan()
	if err != nil {
		return err
	}
	defer done()

	known := false
	for _, info := range b.adapters {
		known = known || info.Index == index
	}
	if !known {
		return fmt.Errorf("%w: no adapter with index %d", ErrInvalidArgument, index)
	}
	if err := b.activate(index); err != nil {
		return err
	}
	b.logger.WithField("index", index).Info("Adapter switched")
	b.dispatchEvent(Event{Type: EventAvailabilityChanged, Available: true})
	return nil
}

// Availability reports whether an adapter is usable.
func (b *Bluetooth) Availability() bool {
	return !b.closed.Load() && len(b.adapters) > 0
}

// Devices returns every device handed out so far, including closed ones.
func (b *Bluetooth) Devices() []*Device {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*Device(nil), b.devices...)
}

// track records d. Once Close has started it closes d instead and fails
// with ErrClosed, so no device outlives the teardown.
func (b *Bluetooth) track(d *Device) (*Device, error) {
	b.mu.Lock()
	if b.closed.Load() {
		b.mu.Unlock()
		d.Close()
		return nil, ErrClosed
	}
	b.devices = append(b.devices, d)
	b.mu.Unlock()
	return d, nil
}

// PairedDevices returns a device for every peripheral paired with the
// active adapter. The devices are tracked like requested ones.
func (b *Bluetooth) PairedDevices() ([]*Device, error) {
	a, err := b.activeAdapter()
	if err != nil {
		return nil, err
	}
	n, err := a.PairedCount()
	if err != nil {
		return nil, classify("paired count", err, ErrBadResource)
	}

	var devices []*Device
	for i := 0; i < n; i++ {
		p, err := a.PairedPeripheral(i)
		if err != nil {
			b.logger.WithError(err).WithField("index", i).Warn("Skipping paired peripheral")
			continue
		}
		info, err := describePeripheral(p, b.logger)
		if err != nil {
			p.Release()
			b.logger.WithError(err).WithField("index", i).Warn("Skipping paired peripheral")
			continue
		}
		d, err := b.track(newDevice(b, p, info))
		if err != nil {
			return nil, err
		}
		devices = append(devices, d)
	}
	return devices, nil
}

// ScanFor runs one blocking native scan for d and returns the
// advertisements seen. Unlike RequestDevice it cannot be cancelled.
func (b *Bluetooth) ScanFor(d time.Duration) ([]Advertisement, error) {
	done, err := b.beginScan()
	if err != nil {
		return nil, err
	}
	defer done()

	a, err := b.activeAdapter()
	if err != nil {
		return nil, err
	}
	if err := a.ScanFor(d); err != nil {
		return nil, classify("scan for", err, ErrBadResource)
	}

	n, err := a.ScanResultsCount()
	if err != nil {
		return nil, classify("scan results", err, ErrBadResource)
	}
	ads := make([]Advertisement, 0, n)
	for i := 0; i < n; i++ {
		p, err := a.ScanResult(i)
		if err != nil {
			continue
		}
		info, err := describePeripheral(p, b.logger)
		p.Release()
		if err != nil {
			continue
		}
		ads = append(ads, *advertisementFrom(info))
	}
	return ads, nil
}

// Close closes every device, releases the adapter and, when the library was
// loaded by Open, unloads it. A scan in progress is woken and fails with
// ErrClosed; the teardown then runs when that scan returns, so Close does not
// wait for it and may be called from a scan consumer or a filter.
func (b *Bluetooth) Close() error {
	b.mu.Lock()
	if b.closed.Load() {
		b.mu.Unlock()
		return nil
	}
	b.closed.Store(true)
	close(b.closing)
	scanning := b.scanning
	b.mu.Unlock()

	if scanning {
		b.logger.Debug("Close deferred until the running scan returns")
		return nil
	}
	return b.teardown()
}

func (b *Bluetooth) teardown() error {
	for _, d := range b.Devices() {
		d.Close()
	}

	b.mu.Lock()
	a := b.adapter
	b.adapter = nil
	b.mu.Unlock()
	if a != nil {
		a.Release()
	}
	b.dispatchEvent(Event{Type: EventAvailabilityChanged, Available: false})

	if b.ownsLib {
		return b.lib.Close()
	}
	return nil
}

func (b *Bluetooth) activeAdapter() (*simpleble.Adapter, error) {
	if b.closed.Load() {
		return nil, ErrClosed
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.adapter == nil {
		return nil, ErrNoAdapters
	}
	return b.adapter, nil
}

// beginScan takes the single scan slot. The returned done gives it back and
// runs the teardown of a Close that happened meanwhile.
func (b *Bluetooth) beginScan() (done func(), err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed.Load() {
		return nil, ErrClosed
	}
	if b.scanning {
		return nil, ErrScanInProgress
	}
	b.scanning = true
	return b.endScan, nil
}

func (b *Bluetooth) endScan() {
	b.mu.Lock()
	b.scanning = false
	closed := b.closed.Load()
	b.mu.Unlock()

	if closed {
		if err := b.teardown(); err != nil {
			b.logger.WithError(err).Warn("Deferred close failed")
		}
	}
}

func deviceAttr(d *Device) trace.SpanStartOption {
	return trace.WithAttributes(tracer.StringAttr("device.id", d.ID()))
}
