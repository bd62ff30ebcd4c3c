package simpleble

import (
	"fmt"
	"sync"
	"time"
)

type adapterCallback int

const (
	onScanStart adapterCallback = iota
	onScanStop
	onScanFound
	onScanUpdated
)

// Adapter owns a native adapter handle. Release gives the handle back exactly
// once; any use afterwards fails with ErrReleased. A call already running
// when Release happens keeps the handle alive until it returns.
type Adapter struct {
	lib   *Lib
	guard handleGuard

	mu     sync.Mutex
	tokens map[adapterCallback]uintptr
}

func newAdapter(lib *Lib, h Handle) *Adapter {
	a := &Adapter{lib: lib, tokens: make(map[adapterCallback]uintptr)}
	a.guard = handleGuard{h: h, free: a.free}
	return a
}

// Released reports whether Release has been called.
func (a *Adapter) Released() bool {
	return a.guard.isReleased()
}

// Release drops the registered callbacks and releases the native handle.
func (a *Adapter) Release() {
	a.guard.release()
}

func (a *Adapter) free(h Handle) {
	a.mu.Lock()
	for kind, t := range a.tokens {
		a.lib.callbacks.remove(t)
		delete(a.tokens, kind)
	}
	a.mu.Unlock()
	a.lib.native.AdapterReleaseHandle(h)
}

func (a *Adapter) Identifier() (string, error) {
	h, done, err := a.guard.acquire()
	if err != nil {
		return "", err
	}
	defer done()
	return a.lib.takeString(a.lib.native.AdapterIdentifier(h)), nil
}

func (a *Adapter) Address() (string, error) {
	h, done, err := a.guard.acquire()
	if err != nil {
		return "", err
	}
	defer done()
	return a.lib.takeString(a.lib.native.AdapterAddress(h)), nil
}

// ScanFor runs a complete scan and blocks the calling goroutine for the whole
// duration.
func (a *Adapter) ScanFor(d time.Duration) error {
	h, done, err := a.guard.acquire()
	if err != nil {
		return err
	}
	defer done()
	return check("adapter_scan_for", a.lib.native.AdapterScanFor(h, int(d.Milliseconds())))
}

func (a *Adapter) ScanStart() error {
	h, done, err := a.guard.acquire()
	if err != nil {
		return err
	}
	defer done()
	return check("adapter_scan_start", a.lib.native.AdapterScanStart(h))
}

func (a *Adapter) ScanStop() error {
	h, done, err := a.guard.acquire()
	if err != nil {
		return err
	}
	defer done()
	return check("adapter_scan_stop", a.lib.native.AdapterScanStop(h))
}

func (a *Adapter) ScanIsActive() (bool, error) {
	h, done, err := a.guard.acquire()
	if err != nil {
		return false, err
	}
	defer done()
	var active bool
	if err := check("adapter_scan_is_active", a.lib.native.AdapterScanIsActive(h, &active)); err != nil {
		return false, err
	}
	return active, nil
}

func (a *Adapter) ScanResultsCount() (int, error) {
	h, done, err := a.guard.acquire()
	if err != nil {
		return 0, err
	}
	defer done()
	return a.lib.native.AdapterScanGetResultsCount(h), nil
}

// ScanResult acquires the peripheral at index of the last scan. The caller
// owns the returned peripheral.
func (a *Adapter) ScanResult(index int) (*Peripheral, error) {
	h, done, err := a.guard.acquire()
	if err != nil {
		return nil, err
	}
	defer done()
	p := a.lib.native.AdapterScanGetResultsHandle(h, index)
	if p == 0 {
		return nil, fmt.Errorf("%w: scan result %d", ErrInvalidHandle, index)
	}
	return newPeripheral(a.lib, p), nil
}

func (a *Adapter) PairedCount() (int, error) {
	h, done, err := a.guard.acquire()
	if err != nil {
		return 0, err
	}
	defer done()
	return a.lib.native.AdapterGetPairedPeripheralsCount(h), nil
}

// PairedPeripheral acquires the paired peripheral at index. The caller owns
// the returned peripheral.
func (a *Adapter) PairedPeripheral(index int) (*Peripheral, error) {
	h, done, err := a.guard.acquire()
	if err != nil {
		return nil, err
	}
	defer done()
	p := a.lib.native.AdapterGetPairedPeripheralsHandle(h, index)
	if p == 0 {
		return nil, fmt.Errorf("%w: paired peripheral %d", ErrInvalidHandle, index)
	}
	return newPeripheral(a.lib, p), nil
}

// OnScanStart registers fn for the scan start event, replacing any earlier one.
func (a *Adapter) OnScanStart(fn func()) error {
	return a.setCallback(onScanStart, &callback{onEvent: fn}, "adapter_set_callback_on_scan_start", a.lib.native.AdapterSetCallbackOnScanStart)
}

// OnScanStop registers fn for the scan stop event, replacing any earlier one.
func (a *Adapter) OnScanStop(fn func()) error {
	return a.setCallback(onScanStop, &callback{onEvent: fn}, "adapter_set_callback_on_scan_stop", a.lib.native.AdapterSetCallbackOnScanStop)
}

// OnScanFound registers fn for newly discovered peripherals. fn owns the
// peripheral it receives.
func (a *Adapter) OnScanFound(fn func(*Peripheral)) error {
	cb := &callback{onResult: func(p Handle) { fn(newPeripheral(a.lib, p)) }}
	return a.setCallback(onScanFound, cb, "adapter_set_callback_on_scan_found", a.lib.native.AdapterSetCallbackOnScanFound)
}

// OnScanUpdated registers fn for advertisement updates of known peripherals.
// fn owns the peripheral it receives.
func (a *Adapter) OnScanUpdated(fn func(*Peripheral)) error {
	cb := &callback{onResult: func(p Handle) { fn(newPeripheral(a.lib, p)) }}
	return a.setCallback(onScanUpdated, cb, "adapter_set_callback_on_scan_updated", a.lib.native.AdapterSetCallbackOnScanUpdated)
}

func (a *Adapter) setCallback(kind adapterCallback, cb *callback, op string, set func(Handle, uintptr) Status) error {
	h, done, err := a.guard.acquire()
	if err != nil {
		return err
	}
	defer done()

	a.mu.Lock()
	defer a.mu.Unlock()

	token := a.lib.callbacks.add(cb)
	if err := check(op, set(h, token)); err != nil {
		a.lib.callbacks.remove(token)
		return err
	}
	a.lib.callbacks.remove(a.tokens[kind])
	a.tokens[kind] = token
	return nil
}
