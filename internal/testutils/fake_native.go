package testutils

import (
	"sync"

	"github.com/srg/webble/internal/simpleble"
)

// FakeAdapter describes one adapter reported by FakeNative.
type FakeAdapter struct {
	Identifier string
	Address    string
}

// FakeStats is a snapshot of FakeNative's resource accounting.
type FakeStats struct {
	AdaptersAcquired       int
	AdaptersReleased       int
	PeripheralsAcquired    int
	PeripheralsReleased    int
	DoubleReleases         int
	OutstandingAllocations int
	DoubleFrees            int
	ScanStarts             int
	ScanStops              int
}

// WriteRecord is one write observed by FakeNative.
type WriteRecord struct {
	Op             string
	Identifier     string
	Service        string
	Characteristic string
	Descriptor     string
	Data           []byte
}

type handleKind int

const (
	adapterHandle handleKind = iota
	peripheralHandle
)

type fakeHandle struct {
	kind       handleKind
	adapter    int
	peripheral *FakePeripheral
	released   bool
}

type allocation struct {
	str  string
	data []byte
}

type subKey struct {
	identifier     string
	service        string
	characteristic string
	indicate       bool
}

type adapterCallbacks struct {
	scanStart, scanStop, scanFound, scanUpdated uintptr
}

// FakeNative is an in-memory simpleble.Native. It hands out a fresh handle
// for every acquire, hands out tracked allocations for every string and
// buffer, echoes writes back on reads and lets tests fire native callbacks.
type FakeNative struct {
	mu         sync.Mutex
	dispatcher simpleble.Dispatcher

	adapters    []FakeAdapter
	inRange     []*FakePeripheral
	paired      []*FakePeripheral
	results     []*FakePeripheral
	handles     map[simpleble.Handle]*fakeHandle
	nextHandle  uintptr
	allocations map[uintptr]allocation
	nextAlloc   uintptr

	scanning         map[int]bool
	adapterCallbacks map[int]*adapterCallbacks
	subscriptions    map[subKey]uintptr
	onConnected      map[string]uintptr
	onDisconnected   map[string]uintptr
	writes           []WriteRecord
	unsubscribes     int
	stats            FakeStats

	// FailScanStart makes every scan start report failure.
	FailScanStart bool
	// FailScanStop makes every scan stop report failure.
	FailScanStop bool
}

// NewFakeNative creates a fake with the given adapters.
func NewFakeNative(adapters ...FakeAdapter) *FakeNative {
	return &FakeNative{
		adapters:         adapters,
		handles:          make(map[simpleble.Handle]*fakeHandle),
		nextHandle:       0x1000,
		allocations:      make(map[uintptr]allocation),
		nextAlloc:        0x9000,
		scanning:         make(map[int]bool),
		adapterCallbacks: make(map[int]*adapterCallbacks),
		subscriptions:    make(map[subKey]uintptr),
		onConnected:      make(map[string]uintptr),
		onDisconnected:   make(map[string]uintptr),
	}
}

// AddPeripheral puts p in radio range. It shows up in the next scan.
func (f *FakeNative) AddPeripheral(p *FakePeripheral) *FakeNative {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inRange = append(f.inRange, p)
	return f
}

// RemovePeripheral takes the peripheral with identifier out of range.
func (f *FakeNative) RemovePeripheral(identifier string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.inRange[:0]
	for _, p := range f.inRange {
		if p.Identifier != identifier {
			kept = append(kept, p)
		}
	}
	f.inRange = kept
}

// AddPaired registers p as a paired peripheral.
func (f *FakeNative) AddPaired(p *FakePeripheral) *FakeNative {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paired = append(f.paired, p)
	return f
}

// Stats returns the current resource accounting.
func (f *FakeNative) Stats() FakeStats {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.stats
	s.OutstandingAllocations = len(f.allocations)
	return s
}

// IsScanning reports whether any adapter is mid-scan.
func (f *FakeNative) IsScanning() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, active := range f.scanning {
		if active {
			return true
		}
	}
	return false
}

// Writes returns every write observed so far.
func (f *FakeNative) Writes() []WriteRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]WriteRecord(nil), f.writes...)
}

// Unsubscribes returns how many unsubscribe calls reached the fake.
func (f *FakeNative) Unsubscribes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.unsubscribes
}

// Subscribed reports whether a notify or indicate registration is active.
func (f *FakeNative) Subscribed(identifier, service, characteristic string, indicate bool) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.subscriptions[subKey{identifier, service, characteristic, indicate}]
	return ok
}

// Notify delivers data through the notify callback registered for the
// characteristic. It returns false when nothing is subscribed.
func (f *FakeNative) Notify(identifier, service, characteristic string, data []byte) bool {
	return f.deliver(subKey{identifier, service, characteristic, false}, data)
}

// Indicate delivers data through the indicate callback registered for the
// characteristic. It returns false when nothing is subscribed.
func (f *FakeNative) Indicate(identifier, service, characteristic string, data []byte) bool {
	return f.deliver(subKey{identifier, service, characteristic, true}, data)
}

func (f *FakeNative) deliver(key subKey, data []byte) bool {
	f.mu.Lock()
	token, ok := f.subscriptions[key]
	d := f.dispatcher
	f.mu.Unlock()
	if !ok {
		return false
	}
	d.OnValue(key.service, key.characteristic, append([]byte(nil), data...), token)
	return true
}

// DropConnection simulates a link loss initiated by the remote side.
func (f *FakeNative) DropConnection(identifier string) bool {
	f.mu.Lock()
	p := f.lookupPeripheral(identifier)
	if p == nil || !p.connected {
		f.mu.Unlock()
		return false
	}
	p.connected = false
	token, ok := f.onDisconnected[identifier]
	d := f.dispatcher
	f.mu.Unlock()
	if ok {
		d.OnPeripheralEvent(0, token)
	}
	return true
}

func (f *FakeNative) lookupPeripheral(identifier string) *FakePeripheral {
	for _, list := range [][]*FakePeripheral{f.inRange, f.results, f.paired} {
		for _, p := range list {
			if p.Identifier == identifier {
				return p
			}
		}
	}
	return nil
}

// locked helpers

func (f *FakeNative) acquire(h *fakeHandle) simpleble.Handle {
	f.nextHandle++
	id := simpleble.Handle(f.nextHandle)
	f.handles[id] = h
	if h.kind == adapterHandle {
		f.stats.AdaptersAcquired++
	} else {
		f.stats.PeripheralsAcquired++
	}
	return id
}

func (f *FakeNative) release(h simpleble.Handle, kind handleKind) {
	fh, ok := f.handles[h]
	if !ok || fh.kind != kind || fh.released {
		f.stats.DoubleReleases++
		return
	}
	fh.released = true
	if kind == adapterHandle {
		f.stats.AdaptersReleased++
	} else {
		f.stats.PeripheralsReleased++
	}
}

func (f *FakeNative) peripheral(h simpleble.Handle) *FakePeripheral {
	fh, ok := f.handles[h]
	if !ok || fh.released || fh.kind != peripheralHandle {
		return nil
	}
	return fh.peripheral
}

func (f *FakeNative) adapter(h simpleble.Handle) (int, bool) {
	fh, ok := f.handles[h]
	if !ok || fh.released || fh.kind != adapterHandle {
		return 0, false
	}
	return fh.adapter, true
}

func (f *FakeNative) alloc(a allocation) uintptr {
	f.nextAlloc += 0x10
	f.allocations[f.nextAlloc] = a
	return f.nextAlloc
}

func status(ok bool) simpleble.Status {
	if ok {
		return simpleble.StatusSuccess
	}
	return simpleble.StatusFailure
}

// simpleble.Native

func (f *FakeNative) Bind(d simpleble.Dispatcher) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dispatcher = d
}

func (f *FakeNative) Free(ptr uintptr) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.allocations[ptr]; !ok {
		f.stats.DoubleFrees++
		return
	}
	delete(f.allocations, ptr)
}

func (f *FakeNative) CString(ptr uintptr) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.allocations[ptr].str
}

func (f *FakeNative) CopyBytes(ptr uintptr, n int) []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]byte, n)
	copy(out, f.allocations[ptr].data)
	return out
}

func (f *FakeNative) AdapterGetCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.adapters)
}

func (f *FakeNative) AdapterGetHandle(index int) simpleble.Handle {
	f.mu.Lock()
	defer f.mu.Unlock()
	if index < 0 || index >= len(f.adapters) {
		return 0
	}
	return f.acquire(&fakeHandle{kind: adapterHandle, adapter: index})
}

func (f *FakeNative) AdapterReleaseHandle(h simpleble.Handle) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.release(h, adapterHandle)
}

func (f *FakeNative) AdapterIdentifier(h simpleble.Handle) uintptr {
	f.mu.Lock()
	defer f.mu.Unlock()
	i, ok := f.adapter(h)
	if !ok {
		return 0
	}
	return f.alloc(allocation{str: f.adapters[i].Identifier})
}

func (f *FakeNative) AdapterAddress(h simpleble.Handle) uintptr {
	f.mu.Lock()
	defer f.mu.Unlock()
	i, ok := f.adapter(h)
	if !ok {
		return 0
	}
	return f.alloc(allocation{str: f.adapters[i].Address})
}

func (f *FakeNative) AdapterScanFor(h simpleble.Handle, _ int) simpleble.Status {
	if st := f.AdapterScanStart(h); st != simpleble.StatusSuccess {
		return st
	}
	return f.AdapterScanStop(h)
}

func (f *FakeNative) AdapterScanStart(h simpleble.Handle) simpleble.Status {
	f.mu.Lock()
	i, ok := f.adapter(h)
	if !ok || f.FailScanStart {
		f.mu.Unlock()
		return simpleble.StatusFailure
	}
	f.scanning[i] = true
	f.stats.ScanStarts++

	cbs := f.adapterCallbacks[i]
	var found []simpleble.Handle
	if cbs != nil && cbs.scanFound != 0 {
		for _, p := range f.inRange {
			found = append(found, f.acquire(&fakeHandle{kind: peripheralHandle, peripheral: p}))
		}
	}
	d := f.dispatcher
	f.mu.Unlock()

	if cbs != nil && cbs.scanStart != 0 {
		d.OnAdapterEvent(h, cbs.scanStart)
	}
	for _, p := range found {
		d.OnScanResult(h, p, cbs.scanFound)
	}
	return simpleble.StatusSuccess
}

func (f *FakeNative) AdapterScanStop(h simpleble.Handle) simpleble.Status {
	f.mu.Lock()
	i, ok := f.adapter(h)
	if !ok {
		f.mu.Unlock()
		return simpleble.StatusFailure
	}
	f.stats.ScanStops++
	f.scanning[i] = false
	f.results = append([]*FakePeripheral(nil), f.inRange...)
	cbs := f.adapterCallbacks[i]
	d := f.dispatcher
	fail := f.FailScanStop
	f.mu.Unlock()

	if cbs != nil && cbs.scanStop != 0 {
		d.OnAdapterEvent(h, cbs.scanStop)
	}
	return status(!fail)
}

func (f *FakeNative) AdapterScanIsActive(h simpleble.Handle, active *bool) simpleble.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	i, ok := f.adapter(h)
	if !ok {
		return simpleble.StatusFailure
	}
	*active = f.scanning[i]
	return simpleble.StatusSuccess
}

func (f *FakeNative) AdapterScanGetResultsCount(h simpleble.Handle) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.adapter(h); !ok {
		return 0
	}
	return len(f.results)
}

func (f *FakeNative) AdapterScanGetResultsHandle(h simpleble.Handle, index int) simpleble.Handle {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.adapter(h); !ok || index < 0 || index >= len(f.results) {
		return 0
	}
	return f.acquire(&fakeHandle{kind: peripheralHandle, peripheral: f.results[index]})
}

func (f *FakeNative) AdapterGetPairedPeripheralsCount(h simpleble.Handle) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.adapter(h); !ok {
		return 0
	}
	return len(f.paired)
}

func (f *FakeNative) AdapterGetPairedPeripheralsHandle(h simpleble.Handle, index int) simpleble.Handle {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.adapter(h); !ok || index < 0 || index >= len(f.paired) {
		return 0
	}
	return f.acquire(&fakeHandle{kind: peripheralHandle, peripheral: f.paired[index]})
}

func (f *FakeNative) setAdapterCallback(h simpleble.Handle, userdata uintptr, set func(*adapterCallbacks)) simpleble.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	i, ok := f.adapter(h)
	if !ok {
		return simpleble.StatusFailure
	}
	cbs := f.adapterCallbacks[i]
	if cbs == nil {
		cbs = &adapterCallbacks{}
		f.adapterCallbacks[i] = cbs
	}
	set(cbs)
	return simpleble.StatusSuccess
}

func (f *FakeNative) AdapterSetCallbackOnScanStart(h simpleble.Handle, userdata uintptr) simpleble.Status {
	return f.setAdapterCallback(h, userdata, func(c *adapterCallbacks) { c.scanStart = userdata })
}

func (f *FakeNative) AdapterSetCallbackOnScanStop(h simpleble.Handle, userdata uintptr) simpleble.Status {
	return f.setAdapterCallback(h, userdata, func(c *adapterCallbacks) { c.scanStop = userdata })
}

func (f *FakeNative) AdapterSetCallbackOnScanFound(h simpleble.Handle, userdata uintptr) simpleble.Status {
	return f.setAdapterCallback(h, userdata, func(c *adapterCallbacks) { c.scanFound = userdata })
}

func (f *FakeNative) AdapterSetCallbackOnScanUpdated(h simpleble.Handle, userdata uintptr) simpleble.Status {
	return f.setAdapterCallback(h, userdata, func(c *adapterCallbacks) { c.scanUpdated = userdata })
}

func (f *FakeNative) PeripheralReleaseHandle(h simpleble.Handle) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.release(h, peripheralHandle)
}

func (f *FakeNative) PeripheralIdentifier(h simpleble.Handle) uintptr {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.peripheral(h)
	if p == nil {
		return 0
	}
	return f.alloc(allocation{str: p.Identifier})
}

func (f *FakeNative) PeripheralAddress(h simpleble.Handle) uintptr {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.peripheral(h)
	if p == nil {
		return 0
	}
	return f.alloc(allocation{str: p.Address})
}

func (f *FakeNative) PeripheralRSSI(h simpleble.Handle) int16 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p := f.peripheral(h); p != nil {
		return p.RSSI
	}
	return 0
}

func (f *FakeNative) PeripheralConnect(h simpleble.Handle) simpleble.Status {
	f.mu.Lock()
	p := f.peripheral(h)
	if p == nil || p.FailConnect {
		f.mu.Unlock()
		return simpleble.StatusFailure
	}
	p.connected = true
	token, ok := f.onConnected[p.Identifier]
	d := f.dispatcher
	f.mu.Unlock()
	if ok {
		d.OnPeripheralEvent(h, token)
	}
	return simpleble.StatusSuccess
}

func (f *FakeNative) PeripheralDisconnect(h simpleble.Handle) simpleble.Status {
	f.mu.Lock()
	p := f.peripheral(h)
	if p == nil {
		f.mu.Unlock()
		return simpleble.StatusFailure
	}
	wasConnected := p.connected
	p.connected = false
	token, ok := f.onDisconnected[p.Identifier]
	d := f.dispatcher
	f.mu.Unlock()
	if ok && wasConnected {
		d.OnPeripheralEvent(h, token)
	}
	return simpleble.StatusSuccess
}

func (f *FakeNative) peripheralFlag(h simpleble.Handle, out *bool, get func(*FakePeripheral) bool) simpleble.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.peripheral(h)
	if p == nil {
		return simpleble.StatusFailure
	}
	*out = get(p)
	return simpleble.StatusSuccess
}

func (f *FakeNative) PeripheralIsConnected(h simpleble.Handle, out *bool) simpleble.Status {
	return f.peripheralFlag(h, out, func(p *FakePeripheral) bool { return p.connected })
}

func (f *FakeNative) PeripheralIsConnectable(h simpleble.Handle, out *bool) simpleble.Status {
	return f.peripheralFlag(h, out, func(p *FakePeripheral) bool { return p.Connectable })
}

func (f *FakeNative) PeripheralIsPaired(h simpleble.Handle, out *bool) simpleble.Status {
	return f.peripheralFlag(h, out, func(p *FakePeripheral) bool { return p.Paired })
}

func (f *FakeNative) PeripheralUnpair(h simpleble.Handle) simpleble.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.peripheral(h)
	if p == nil {
		return simpleble.StatusFailure
	}
	p.Paired = false
	return simpleble.StatusSuccess
}

func (f *FakeNative) PeripheralServicesCount(h simpleble.Handle) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p := f.peripheral(h); p != nil && p.connected {
		return len(p.Services)
	}
	return 0
}

func (f *FakeNative) PeripheralServicesGet(h simpleble.Handle, index int, out []byte) simpleble.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.peripheral(h)
	if p == nil || index < 0 || index >= len(p.Services) {
		return simpleble.StatusFailure
	}
	buf, err := simpleble.EncodeService(p.Services[index])
	if err != nil {
		return simpleble.StatusFailure
	}
	copy(out, buf)
	return simpleble.StatusSuccess
}

func (f *FakeNative) PeripheralManufacturerDataCount(h simpleble.Handle) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p := f.peripheral(h); p != nil {
		return len(p.ManufacturerData)
	}
	return 0
}

func (f *FakeNative) PeripheralManufacturerDataGet(h simpleble.Handle, index int, out []byte) simpleble.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.peripheral(h)
	if p == nil || index < 0 || index >= len(p.ManufacturerData) {
		return simpleble.StatusFailure
	}
	buf, err := simpleble.EncodeManufacturerData(p.ManufacturerData[index])
	if err != nil {
		return simpleble.StatusFailure
	}
	copy(out, buf)
	return simpleble.StatusSuccess
}

func (f *FakeNative) readValue(h simpleble.Handle, key string, data *uintptr, length *uintptr) simpleble.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.peripheral(h)
	if p == nil || !p.connected || p.FailReads {
		return simpleble.StatusFailure
	}
	v, ok := p.Values[key]
	if !ok {
		return simpleble.StatusFailure
	}
	*data = f.alloc(allocation{data: append([]byte(nil), v...)})
	*length = uintptr(len(v))
	return simpleble.StatusSuccess
}

func (f *FakeNative) writeValue(h simpleble.Handle, rec WriteRecord) simpleble.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.peripheral(h)
	if p == nil || !p.connected || p.FailWrites {
		return simpleble.StatusFailure
	}
	rec.Identifier = p.Identifier
	rec.Data = append([]byte(nil), rec.Data...)
	f.writes = append(f.writes, rec)
	p.Values[valueKey(rec.Service, rec.Characteristic, rec.Descriptor)] = rec.Data
	return simpleble.StatusSuccess
}

func (f *FakeNative) PeripheralRead(h simpleble.Handle, service, characteristic *simpleble.UUIDSlot, data *uintptr, length *uintptr) simpleble.Status {
	return f.readValue(h, valueKey(service.String(), characteristic.String(), ""), data, length)
}

func (f *FakeNative) PeripheralWriteRequest(h simpleble.Handle, service, characteristic *simpleble.UUIDSlot, data []byte) simpleble.Status {
	return f.writeValue(h, WriteRecord{Op: "write_request", Service: service.String(), Characteristic: characteristic.String(), Data: data})
}

func (f *FakeNative) PeripheralWriteCommand(h simpleble.Handle, service, characteristic *simpleble.UUIDSlot, data []byte) simpleble.Status {
	return f.writeValue(h, WriteRecord{Op: "write_command", Service: service.String(), Characteristic: characteristic.String(), Data: data})
}

func (f *FakeNative) subscribe(h simpleble.Handle, service, characteristic *simpleble.UUIDSlot, userdata uintptr, indicate bool) simpleble.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.peripheral(h)
	if p == nil || !p.connected || p.FailSubscribe {
		return simpleble.StatusFailure
	}
	f.subscriptions[subKey{p.Identifier, service.String(), characteristic.String(), indicate}] = userdata
	return simpleble.StatusSuccess
}

func (f *FakeNative) PeripheralNotify(h simpleble.Handle, service, characteristic *simpleble.UUIDSlot, userdata uintptr) simpleble.Status {
	return f.subscribe(h, service, characteristic, userdata, false)
}

func (f *FakeNative) PeripheralIndicate(h simpleble.Handle, service, characteristic *simpleble.UUIDSlot, userdata uintptr) simpleble.Status {
	return f.subscribe(h, service, characteristic, userdata, true)
}

func (f *FakeNative) PeripheralUnsubscribe(h simpleble.Handle, service, characteristic *simpleble.UUIDSlot) simpleble.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.peripheral(h)
	if p == nil {
		return simpleble.StatusFailure
	}
	f.unsubscribes++
	delete(f.subscriptions, subKey{p.Identifier, service.String(), characteristic.String(), false})
	delete(f.subscriptions, subKey{p.Identifier, service.String(), characteristic.String(), true})
	return simpleble.StatusSuccess
}

func (f *FakeNative) PeripheralReadDescriptor(h simpleble.Handle, service, characteristic, descriptor *simpleble.UUIDSlot, data *uintptr, length *uintptr) simpleble.Status {
	return f.readValue(h, valueKey(service.String(), characteristic.String(), descriptor.String()), data, length)
}

func (f *FakeNative) PeripheralWriteDescriptor(h simpleble.Handle, service, characteristic, descriptor *simpleble.UUIDSlot, data []byte) simpleble.Status {
	return f.writeValue(h, WriteRecord{
		Op:             "write_descriptor",
		Service:        service.String(),
		Characteristic: characteristic.String(),
		Descriptor:     descriptor.String(),
		Data:           data,
	})
}

func (f *FakeNative) PeripheralSetCallbackOnConnected(h simpleble.Handle, userdata uintptr) simpleble.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.peripheral(h)
	if p == nil {
		return simpleble.StatusFailure
	}
	f.onConnected[p.Identifier] = userdata
	return simpleble.StatusSuccess
}

func (f *FakeNative) PeripheralSetCallbackOnDisconnected(h simpleble.Handle, userdata uintptr) simpleble.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.peripheral(h)
	if p == nil {
		return simpleble.StatusFailure
	}
	f.onDisconnected[p.Identifier] = userdata
	return simpleble.StatusSuccess
}

var _ simpleble.Native = (*FakeNative)(nil)
