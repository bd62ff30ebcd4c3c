//go:build darwin || linux

package simpleble

import (
	"fmt"
	"runtime"
	"sync/atomic"
	"unsafe"

	"github.com/ebitengine/purego"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// DefaultLibraryName is the file name Open falls back to when no path is
// configured; the dynamic loader resolves it through its search path.
func DefaultLibraryName() string {
	if runtime.GOOS == "darwin" {
		return "libsimpleble-c.dylib"
	}
	return "libsimpleble-c.so"
}

// Open loads libsimpleble-c from path and binds every entry point.
func Open(path string, logger *logrus.Logger) (*Lib, error) {
	if path == "" {
		path = DefaultLibraryName()
	}

	handle, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrLibraryNotFound, path, err)
	}

	d := &dylib{handle: handle}
	if err := d.bind(); err != nil {
		_ = purego.Dlclose(handle)
		return nil, err
	}

	lib := New(d, logger)
	lib.closer = func() error { return purego.Dlclose(handle) }
	lib.logger.WithFields(logrus.Fields{
		"path":   path,
		"layout": LayoutVersion,
	}).Debug("SimpleBLE library loaded")
	return lib, nil
}

// dylib is the purego-backed Native. UUID slots are passed by pointer and
// size_t maps to uintptr.
type dylib struct {
	handle     uintptr
	dispatcher atomic.Value

	scanEventCallback       uintptr
	scanResultCallback      uintptr
	peripheralEventCallback uintptr
	valueCallback           uintptr

	free func(ptr uintptr)

	adapterGetCount                   func() uintptr
	adapterGetHandle                  func(index uintptr) uintptr
	adapterReleaseHandle              func(h uintptr)
	adapterIdentifier                 func(h uintptr) uintptr
	adapterAddress                    func(h uintptr) uintptr
	adapterScanFor                    func(h uintptr, timeoutMs int32) uint32
	adapterScanStart                  func(h uintptr) uint32
	adapterScanStop                   func(h uintptr) uint32
	adapterScanIsActive               func(h uintptr, active *bool) uint32
	adapterScanGetResultsCount        func(h uintptr) uintptr
	adapterScanGetResultsHandle       func(h uintptr, index uintptr) uintptr
	adapterGetPairedPeripheralsCount  func(h uintptr) uintptr
	adapterGetPairedPeripheralsHandle func(h uintptr, index uintptr) uintptr
	adapterSetCallbackOnScanStart     func(h uintptr, cb uintptr, userdata uintptr) uint32
	adapterSetCallbackOnScanStop      func(h uintptr, cb uintptr, userdata uintptr) uint32
	adapterSetCallbackOnScanFound     func(h uintptr, cb uintptr, userdata uintptr) uint32
	adapterSetCallbackOnScanUpdated   func(h uintptr, cb uintptr, userdata uintptr) uint32

	peripheralReleaseHandle             func(h uintptr)
	peripheralIdentifier                func(h uintptr) uintptr
	peripheralAddress                   func(h uintptr) uintptr
	peripheralRSSI                      func(h uintptr) int16
	peripheralConnect                   func(h uintptr) uint32
	peripheralDisconnect                func(h uintptr) uint32
	peripheralIsConnected               func(h uintptr, out *bool) uint32
	peripheralIsConnectable             func(h uintptr, out *bool) uint32
	peripheralIsPaired                  func(h uintptr, out *bool) uint32
	peripheralUnpair                    func(h uintptr) uint32
	peripheralServicesCount             func(h uintptr) uintptr
	peripheralServicesGet               func(h uintptr, index uintptr, out *byte) uint32
	peripheralManufacturerDataCount     func(h uintptr) uintptr
	peripheralManufacturerDataGet       func(h uintptr, index uintptr, out *byte) uint32
	peripheralRead                      func(h uintptr, service, characteristic *byte, data *uintptr, length *uintptr) uint32
	peripheralWriteRequest              func(h uintptr, service, characteristic *byte, data *byte, length uintptr) uint32
	peripheralWriteCommand              func(h uintptr, service, characteristic *byte, data *byte, length uintptr) uint32
	peripheralNotify                    func(h uintptr, service, characteristic *byte, cb uintptr, userdata uintptr) uint32
	peripheralIndicate                  func(h uintptr, service, characteristic *byte, cb uintptr, userdata uintptr) uint32
	peripheralUnsubscribe               func(h uintptr, service, characteristic *byte) uint32
	peripheralReadDescriptor            func(h uintptr, service, characteristic, descriptor *byte, data *uintptr, length *uintptr) uint32
	peripheralWriteDescriptor           func(h uintptr, service, characteristic, descriptor *byte, data *byte, length uintptr) uint32
	peripheralSetCallbackOnConnected    func(h uintptr, cb uintptr, userdata uintptr) uint32
	peripheralSetCallbackOnDisconnected func(h uintptr, cb uintptr, userdata uintptr) uint32
}

func (d *dylib) bind() error {
	symbols := []struct {
		fptr any
		name string
	}{
		{&d.free, "simpleble_free"},
		{&d.adapterGetCount, "simpleble_adapter_get_count"},
		{&d.adapterGetHandle, "simpleble_adapter_get_handle"},
		{&d.adapterReleaseHandle, "simpleble_adapter_release_handle"},
		{&d.adapterIdentifier, "simpleble_adapter_identifier"},
		{&d.adapterAddress, "simpleble_adapter_address"},
		{&d.adapterScanFor, "simpleble_adapter_scan_for"},
		{&d.adapterScanStart, "simpleble_adapter_scan_start"},
		{&d.adapterScanStop, "simpleble_adapter_scan_stop"},
		{&d.adapterScanIsActive, "simpleble_adapter_scan_is_active"},
		{&d.adapterScanGetResultsCount, "simpleble_adapter_scan_get_results_count"},
		{&d.adapterScanGetResultsHandle, "simpleble_adapter_scan_get_results_handle"},
		{&d.adapterGetPairedPeripheralsCount, "simpleble_adapter_get_paired_peripherals_count"},
		{&d.adapterGetPairedPeripheralsHandle, "simpleble_adapter_get_paired_peripherals_handle"},
		{&d.adapterSetCallbackOnScanStart, "simpleble_adapter_set_callback_on_scan_start"},
		{&d.adapterSetCallbackOnScanStop, "simpleble_adapter_set_callback_on_scan_stop"},
		{&d.adapterSetCallbackOnScanFound, "simpleble_adapter_set_callback_on_scan_found"},
		{&d.adapterSetCallbackOnScanUpdated, "simpleble_adapter_set_callback_on_scan_updated"},
		{&d.peripheralReleaseHandle, "simpleble_peripheral_release_handle"},
		{&d.peripheralIdentifier, "simpleble_peripheral_identifier"},
		{&d.peripheralAddress, "simpleble_peripheral_address"},
		{&d.peripheralRSSI, "simpleble_peripheral_rssi"},
		{&d.peripheralConnect, "simpleble_peripheral_connect"},
		{&d.peripheralDisconnect, "simpleble_peripheral_disconnect"},
		{&d.peripheralIsConnected, "simpleble_peripheral_is_connected"},
		{&d.peripheralIsConnectable, "simpleble_peripheral_is_connectable"},
		{&d.peripheralIsPaired, "simpleble_peripheral_is_paired"},
		{&d.peripheralUnpair, "simpleble_peripheral_unpair"},
		{&d.peripheralServicesCount, "simpleble_peripheral_services_count"},
		{&d.peripheralServicesGet, "simpleble_peripheral_services_get"},
		{&d.peripheralManufacturerDataCount, "simpleble_peripheral_manufacturer_data_count"},
		{&d.peripheralManufacturerDataGet, "simpleble_peripheral_manufacturer_data_get"},
		{&d.peripheralRead, "simpleble_peripheral_read"},
		{&d.peripheralWriteRequest, "simpleble_peripheral_write_request"},
		{&d.peripheralWriteCommand, "simpleble_peripheral_write_command"},
		{&d.peripheralNotify, "simpleble_peripheral_notify"},
		{&d.peripheralIndicate, "simpleble_peripheral_indicate"},
		{&d.peripheralUnsubscribe, "simpleble_peripheral_unsubscribe"},
		{&d.peripheralReadDescriptor, "simpleble_peripheral_read_descriptor"},
		{&d.peripheralWriteDescriptor, "simpleble_peripheral_write_descriptor"},
		{&d.peripheralSetCallbackOnConnected, "simpleble_peripheral_set_callback_on_connected"},
		{&d.peripheralSetCallbackOnDisconnected, "simpleble_peripheral_set_callback_on_disconnected"},
	}
	for _, s := range symbols {
		if err := d.register(s.fptr, s.name); err != nil {
			return err
		}
	}

	// purego callbacks are never freed, so one trampoline per signature is
	// created here and every registration is told apart by its userdata.
	d.scanEventCallback = purego.NewCallback(func(adapter, userdata uintptr) {
		d.current().OnAdapterEvent(Handle(adapter), userdata)
	})
	d.scanResultCallback = purego.NewCallback(func(adapter, peripheral, userdata uintptr) {
		d.current().OnScanResult(Handle(adapter), Handle(peripheral), userdata)
	})
	d.peripheralEventCallback = purego.NewCallback(func(peripheral, userdata uintptr) {
		d.current().OnPeripheralEvent(Handle(peripheral), userdata)
	})
	d.valueCallback = purego.NewCallback(func(service, characteristic, data, length, userdata uintptr) {
		d.current().OnValue(d.CString(service), d.CString(characteristic), d.CopyBytes(data, int(length)), userdata)
	})
	return nil
}

func (d *dylib) register(fptr any, name string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s: %v", ErrSymbolMissing, name, r)
		}
	}()
	purego.RegisterLibFunc(fptr, d.handle, name)
	return nil
}

type boundDispatcher struct{ Dispatcher }

func (d *dylib) Bind(disp Dispatcher) {
	d.dispatcher.Store(boundDispatcher{disp})
}

func (d *dylib) current() Dispatcher {
	return d.dispatcher.Load().(boundDispatcher).Dispatcher
}

func (d *dylib) Free(ptr uintptr) {
	d.free(ptr)
}

func (d *dylib) CString(ptr uintptr) string {
	if ptr == 0 {
		return ""
	}
	return unix.BytePtrToString((*byte)(unsafe.Pointer(ptr)))
}

func (d *dylib) CopyBytes(ptr uintptr, n int) []byte {
	out := make([]byte, n)
	if ptr == 0 || n == 0 {
		return out
	}
	copy(out, unsafe.Slice((*byte)(unsafe.Pointer(ptr)), n))
	return out
}

func slotPtr(s *UUIDSlot) *byte {
	return &s[0]
}

func dataPtr(b []byte) *byte {
	if len(b) == 0 {
		return nil
	}
	return &b[0]
}

func (d *dylib) AdapterGetCount() int {
	return int(d.adapterGetCount())
}

func (d *dylib) AdapterGetHandle(index int) Handle {
	return Handle(d.adapterGetHandle(uintptr(index)))
}

func (d *dylib) AdapterReleaseHandle(h Handle) {
	d.adapterReleaseHandle(uintptr(h))
}

func (d *dylib) AdapterIdentifier(h Handle) uintptr {
	return d.adapterIdentifier(uintptr(h))
}

func (d *dylib) AdapterAddress(h Handle) uintptr {
	return d.adapterAddress(uintptr(h))
}

func (d *dylib) AdapterScanFor(h Handle, timeoutMs int) Status {
	return Status(d.adapterScanFor(uintptr(h), int32(timeoutMs)))
}

func (d *dylib) AdapterScanStart(h Handle) Status {
	return Status(d.adapterScanStart(uintptr(h)))
}

func (d *dylib) AdapterScanStop(h Handle) Status {
	return Status(d.adapterScanStop(uintptr(h)))
}

func (d *dylib) AdapterScanIsActive(h Handle, active *bool) Status {
	return Status(d.adapterScanIsActive(uintptr(h), active))
}

func (d *dylib) AdapterScanGetResultsCount(h Handle) int {
	return int(d.adapterScanGetResultsCount(uintptr(h)))
}

func (d *dylib) AdapterScanGetResultsHandle(h Handle, index int) Handle {
	return Handle(d.adapterScanGetResultsHandle(uintptr(h), uintptr(index)))
}

func (d *dylib) AdapterGetPairedPeripheralsCount(h Handle) int {
	return int(d.adapterGetPairedPeripheralsCount(uintptr(h)))
}

func (d *dylib) AdapterGetPairedPeripheralsHandle(h Handle, index int) Handle {
	return Handle(d.adapterGetPairedPeripheralsHandle(uintptr(h), uintptr(index)))
}

func (d *dylib) AdapterSetCallbackOnScanStart(h Handle, userdata uintptr) Status {
	return Status(d.adapterSetCallbackOnScanStart(uintptr(h), d.scanEventCallback, userdata))
}

func (d *dylib) AdapterSetCallbackOnScanStop(h Handle, userdata uintptr) Status {
	return Status(d.adapterSetCallbackOnScanStop(uintptr(h), d.scanEventCallback, userdata))
}

func (d *dylib) AdapterSetCallbackOnScanFound(h Handle, userdata uintptr) Status {
	return Status(d.adapterSetCallbackOnScanFound(uintptr(h), d.scanResultCallback, userdata))
}

func (d *dylib) AdapterSetCallbackOnScanUpdated(h Handle, userdata uintptr) Status {
	return Status(d.adapterSetCallbackOnScanUpdated(uintptr(h), d.scanResultCallback, userdata))
}

func (d *dylib) PeripheralReleaseHandle(h Handle) {
	d.peripheralReleaseHandle(uintptr(h))
}

func (d *dylib) PeripheralIdentifier(h Handle) uintptr {
	return d.peripheralIdentifier(uintptr(h))
}

func (d *dylib) PeripheralAddress(h Handle) uintptr {
	return d.peripheralAddress(uintptr(h))
}

func (d *dylib) PeripheralRSSI(h Handle) int16 {
	return d.peripheralRSSI(uintptr(h))
}

func (d *dylib) PeripheralConnect(h Handle) Status {
	return Status(d.peripheralConnect(uintptr(h)))
}

func (d *dylib) PeripheralDisconnect(h Handle) Status {
	return Status(d.peripheralDisconnect(uintptr(h)))
}

func (d *dylib) PeripheralIsConnected(h Handle, out *bool) Status {
	return Status(d.peripheralIsConnected(uintptr(h), out))
}

func (d *dylib) PeripheralIsConnectable(h Handle, out *bool) Status {
	return Status(d.peripheralIsConnectable(uintptr(h), out))
}

func (d *dylib) PeripheralIsPaired(h Handle, out *bool) Status {
	return Status(d.peripheralIsPaired(uintptr(h), out))
}

func (d *dylib) PeripheralUnpair(h Handle) Status {
	return Status(d.peripheralUnpair(uintptr(h)))
}

func (d *dylib) PeripheralServicesCount(h Handle) int {
	return int(d.peripheralServicesCount(uintptr(h)))
}

func (d *dylib) PeripheralServicesGet(h Handle, index int, out []byte) Status {
	return Status(d.peripheralServicesGet(uintptr(h), uintptr(index), &out[0]))
}

func (d *dylib) PeripheralManufacturerDataCount(h Handle) int {
	return int(d.peripheralManufacturerDataCount(uintptr(h)))
}

func (d *dylib) PeripheralManufacturerDataGet(h Handle, index int, out []byte) Status {
	return Status(d.peripheralManufacturerDataGet(uintptr(h), uintptr(index), &out[0]))
}

func (d *dylib) PeripheralRead(h Handle, service, characteristic *UUIDSlot, data *uintptr, length *uintptr) Status {
	return Status(d.peripheralRead(uintptr(h), slotPtr(service), slotPtr(characteristic), data, length))
}

func (d *dylib) PeripheralWriteRequest(h Handle, service, characteristic *UUIDSlot, data []byte) Status {
	return Status(d.peripheralWriteRequest(uintptr(h), slotPtr(service), slotPtr(characteristic), dataPtr(data), uintptr(len(data))))
}

func (d *dylib) PeripheralWriteCommand(h Handle, service, characteristic *UUIDSlot, data []byte) Status {
	return Status(d.peripheralWriteCommand(uintptr(h), slotPtr(service), slotPtr(characteristic), dataPtr(data), uintptr(len(data))))
}

func (d *dylib) PeripheralNotify(h Handle, service, characteristic *UUIDSlot, userdata uintptr) Status {
	return Status(d.peripheralNotify(uintptr(h), slotPtr(service), slotPtr(characteristic), d.valueCallback, userdata))
}

func (d *dylib) PeripheralIndicate(h Handle, service, characteristic *UUIDSlot, userdata uintptr) Status {
	return Status(d.peripheralIndicate(uintptr(h), slotPtr(service), slotPtr(characteristic), d.valueCallback, userdata))
}

func (d *dylib) PeripheralUnsubscribe(h Handle, service, characteristic *UUIDSlot) Status {
	return Status(d.peripheralUnsubscribe(uintptr(h), slotPtr(service), slotPtr(characteristic)))
}

func (d *dylib) PeripheralReadDescriptor(h Handle, service, characteristic, descriptor *UUIDSlot, data *uintptr, length *uintptr) Status {
	return Status(d.peripheralReadDescriptor(uintptr(h), slotPtr(service), slotPtr(characteristic), slotPtr(descriptor), data, length))
}

func (d *dylib) PeripheralWriteDescriptor(h Handle, service, characteristic, descriptor *UUIDSlot, data []byte) Status {
	return Status(d.peripheralWriteDescriptor(uintptr(h), slotPtr(service), slotPtr(characteristic), slotPtr(descriptor), dataPtr(data), uintptr(len(data))))
}

func (d *dylib) PeripheralSetCallbackOnConnected(h Handle, userdata uintptr) Status {
	return Status(d.peripheralSetCallbackOnConnected(uintptr(h), d.peripheralEventCallback, userdata))
}

func (d *dylib) PeripheralSetCallbackOnDisconnected(h Handle, userdata uintptr) Status {
	return Status(d.peripheralSetCallbackOnDisconnected(uintptr(h), d.peripheralEventCallback, userdata))
}
