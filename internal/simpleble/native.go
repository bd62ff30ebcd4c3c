package simpleble

// Handle is an opaque native adapter or peripheral handle.
type Handle uintptr

// Status is the simpleble_err_t returned by fallible entry points.
type Status uint32

const (
	StatusSuccess Status = 0
	StatusFailure Status = 1
)

// Dispatcher receives native callbacks. Every callback carries the userdata
// token that was passed when the callback was registered.
type Dispatcher interface {
	// OnAdapterEvent fires for scan start and scan stop.
	OnAdapterEvent(adapter Handle, userdata uintptr)
	// OnScanResult fires for scan found and scan updated. The peripheral
	// handle is owned by the receiver.
	OnScanResult(adapter, peripheral Handle, userdata uintptr)
	// OnPeripheralEvent fires for connected and disconnected.
	OnPeripheralEvent(peripheral Handle, userdata uintptr)
	// OnValue fires for notify and indicate. data is a copy.
	OnValue(service, characteristic string, data []byte, userdata uintptr)
}

// Native is the flat SimpleBLE-C entry point table.
//
// Pointer-returning entry points (identifiers, addresses, read buffers) hand
// ownership of the native allocation to the caller, who must Free it after
// decoding it with CString or CopyBytes. Struct-returning entry points fill a
// caller supplied buffer of the size given in layout.go.
type Native interface {
	Bind(d Dispatcher)

	Free(ptr uintptr)
	CString(ptr uintptr) string
	CopyBytes(ptr uintptr, n int) []byte

	AdapterGetCount() int
	AdapterGetHandle(index int) Handle
	AdapterReleaseHandle(h Handle)
	AdapterIdentifier(h Handle) uintptr
	AdapterAddress(h Handle) uintptr
	AdapterScanFor(h Handle, timeoutMs int) Status
	AdapterScanStart(h Handle) Status
	AdapterScanStop(h Handle) Status
	AdapterScanIsActive(h Handle, active *bool) Status
	AdapterScanGetResultsCount(h Handle) int
	AdapterScanGetResultsHandle(h Handle, index int) Handle
	AdapterGetPairedPeripheralsCount(h Handle) int
	AdapterGetPairedPeripheralsHandle(h Handle, index int) Handle
	AdapterSetCallbackOnScanStart(h Handle, userdata uintptr) Status
	AdapterSetCallbackOnScanStop(h Handle, userdata uintptr) Status
	AdapterSetCallbackOnScanFound(h Handle, userdata uintptr) Status
	AdapterSetCallbackOnScanUpdated(h Handle, userdata uintptr) Status

	PeripheralReleaseHandle(h Handle)
	PeripheralIdentifier(h Handle) uintptr
	PeripheralAddress(h Handle) uintptr
	PeripheralRSSI(h Handle) int16
	PeripheralConnect(h Handle) Status
	PeripheralDisconnect(h Handle) Status
	PeripheralIsConnected(h Handle, connected *bool) Status
	PeripheralIsConnectable(h Handle, connectable *bool) Status
	PeripheralIsPaired(h Handle, paired *bool) Status
	PeripheralUnpair(h Handle) Status
	PeripheralServicesCount(h Handle) int
	PeripheralServicesGet(h Handle, index int, out []byte) Status
	PeripheralManufacturerDataCount(h Handle) int
	PeripheralManufacturerDataGet(h Handle, index int, out []byte) Status
	PeripheralRead(h Handle, service, characteristic *UUIDSlot, data *uintptr, length *uintptr) Status
	PeripheralWriteRequest(h Handle, service, characteristic *UUIDSlot, data []byte) Status
	PeripheralWriteCommand(h Handle, service, characteristic *UUIDSlot, data []byte) Status
	PeripheralNotify(h Handle, service, characteristic *UUIDSlot, userdata uintptr) Status
	PeripheralIndicate(h Handle, service, characteristic *UUIDSlot, userdata uintptr) Status
	PeripheralUnsubscribe(h Handle, service, characteristic *UUIDSlot) Status
	PeripheralReadDescriptor(h Handle, service, characteristic, descriptor *UUIDSlot, data *uintptr, length *uintptr) Status
	PeripheralWriteDescriptor(h Handle, service, characteristic, descriptor *UUIDSlot, data []byte) Status
	PeripheralSetCallbackOnConnected(h Handle, userdata uintptr) Status
	PeripheralSetCallbackOnDisconnected(h Handle, userdata uintptr) Status
}
