package testutils

import (
	"github.com/stretchr/testify/mock"

	"github.com/srg/webble/internal/simpleble"
)

// MockNative is a testify mock of simpleble.Native for call-level
// assertions. Out parameters are set from a Run hook.
type MockNative struct {
	mock.Mock
}

var _ simpleble.Native = (*MockNative)(nil)

func (m *MockNative) Bind(d simpleble.Dispatcher) {
	m.Called(d)
}

func (m *MockNative) Free(ptr uintptr) {
	m.Called(ptr)
}

func (m *MockNative) CString(ptr uintptr) string {
	return m.Called(ptr).String(0)
}

func (m *MockNative) CopyBytes(ptr uintptr, n int) []byte {
	args := m.Called(ptr, n)
	if b, ok := args.Get(0).([]byte); ok {
		return b
	}
	return nil
}

func (m *MockNative) AdapterGetCount() int {
	return m.Called().Int(0)
}

func (m *MockNative) AdapterGetHandle(index int) simpleble.Handle {
	return m.Called(index).Get(0).(simpleble.Handle)
}

func (m *MockNative) AdapterReleaseHandle(h simpleble.Handle) {
	m.Called(h)
}

func (m *MockNative) AdapterIdentifier(h simpleble.Handle) uintptr {
	return m.Called(h).Get(0).(uintptr)
}

func (m *MockNative) AdapterAddress(h simpleble.Handle) uintptr {
	return m.Called(h).Get(0).(uintptr)
}

func (m *MockNative) AdapterScanFor(h simpleble.Handle, timeoutMs int) simpleble.Status {
	return m.Called(h, timeoutMs).Get(0).(simpleble.Status)
}

func (m *MockNative) AdapterScanStart(h simpleble.Handle) simpleble.Status {
	return m.Called(h).Get(0).(simpleble.Status)
}

func (m *MockNative) AdapterScanStop(h simpleble.Handle) simpleble.Status {
	return m.Called(h).Get(0).(simpleble.Status)
}

func (m *MockNative) AdapterScanIsActive(h simpleble.Handle, active *bool) simpleble.Status {
	return m.Called(h, active).Get(0).(simpleble.Status)
}

func (m *MockNative) AdapterScanGetResultsCount(h simpleble.Handle) int {
	return m.Called(h).Int(0)
}

func (m *MockNative) AdapterScanGetResultsHandle(h simpleble.Handle, index int) simpleble.Handle {
	return m.Called(h, index).Get(0).(simpleble.Handle)
}

func (m *MockNative) AdapterGetPairedPeripheralsCount(h simpleble.Handle) int {
	return m.Called(h).Int(0)
}

func (m *MockNative) AdapterGetPairedPeripheralsHandle(h simpleble.Handle, index int) simpleble.Handle {
	return m.Called(h, index).Get(0).(simpleble.Handle)
}

func (m *MockNative) AdapterSetCallbackOnScanStart(h simpleble.Handle, userdata uintptr) simpleble.Status {
	return m.Called(h, userdata).Get(0).(simpleble.Status)
}

func (m *MockNative) AdapterSetCallbackOnScanStop(h simpleble.Handle, userdata uintptr) simpleble.Status {
	return m.Called(h, userdata).Get(0).(simpleble.Status)
}

func (m *MockNative) AdapterSetCallbackOnScanFound(h simpleble.Handle, userdata uintptr) simpleble.Status {
	return m.Called(h, userdata).Get(0).(simpleble.Status)
}

func (m *MockNative) AdapterSetCallbackOnScanUpdated(h simpleble.Handle, userdata uintptr) simpleble.Status {
	return m.Called(h, userdata).Get(0).(simpleble.Status)
}

func (m *MockNative) PeripheralReleaseHandle(h simpleble.Handle) {
	m.Called(h)
}

func (m *MockNative) PeripheralIdentifier(h simpleble.Handle) uintptr {
	return m.Called(h).Get(0).(uintptr)
}

func (m *MockNative) PeripheralAddress(h simpleble.Handle) uintptr {
	return m.Called(h).Get(0).(uintptr)
}

func (m *MockNative) PeripheralRSSI(h simpleble.Handle) int16 {
	return m.Called(h).Get(0).(int16)
}

func (m *MockNative) PeripheralConnect(h simpleble.Handle) simpleble.Status {
	return m.Called(h).Get(0).(simpleble.Status)
}

func (m *MockNative) PeripheralDisconnect(h simpleble.Handle) simpleble.Status {
	return m.Called(h).Get(0).(simpleble.Status)
}

func (m *MockNative) PeripheralIsConnected(h simpleble.Handle, connected *bool) simpleble.Status {
	return m.Called(h, connected).Get(0).(simpleble.Status)
}

func (m *MockNative) PeripheralIsConnectable(h simpleble.Handle, connectable *bool) simpleble.Status {
	return m.Called(h, connectable).Get(0).(simpleble.Status)
}

func (m *MockNative) PeripheralIsPaired(h simpleble.Handle, paired *bool) simpleble.Status {
	return m.Called(h, paired).Get(0).(simpleble.Status)
}

func (m *MockNative) PeripheralUnpair(h simpleble.Handle) simpleble.Status {
	return m.Called(h).Get(0).(simpleble.Status)
}

func (m *MockNative) PeripheralServicesCount(h simpleble.Handle) int {
	return m.Called(h).Int(0)
}

func (m *MockNative) PeripheralServicesGet(h simpleble.Handle, index int, out []byte) simpleble.Status {
	return m.Called(h, index, out).Get(0).(simpleble.Status)
}

func (m *MockNative) PeripheralManufacturerDataCount(h simpleble.Handle) int {
	return m.Called(h).Int(0)
}

func (m *MockNative) PeripheralManufacturerDataGet(h simpleble.Handle, index int, out []byte) simpleble.Status {
	return m.Called(h, index, out).Get(0).(simpleble.Status)
}

func (m *MockNative) PeripheralRead(h simpleble.Handle, service, characteristic *simpleble.UUIDSlot, data *uintptr, length *uintptr) simpleble.Status {
	return m.Called(h, service, characteristic, data, length).Get(0).(simpleble.Status)
}

func (m *MockNative) PeripheralWriteRequest(h simpleble.Handle, service, characteristic *simpleble.UUIDSlot, data []byte) simpleble.Status {
	return m.Called(h, service, characteristic, data).Get(0).(simpleble.Status)
}

func (m *MockNative) PeripheralWriteCommand(h simpleble.Handle, service, characteristic *simpleble.UUIDSlot, data []byte) simpleble.Status {
	return m.Called(h, service, characteristic, data).Get(0).(simpleble.Status)
}

func (m *MockNative) PeripheralNotify(h simpleble.Handle, service, characteristic *simpleble.UUIDSlot, userdata uintptr) simpleble.Status {
	return m.Called(h, service, characteristic, userdata).Get(0).(simpleble.Status)
}

func (m *MockNative) PeripheralIndicate(h simpleble.Handle, service, characteristic *simpleble.UUIDSlot, userdata uintptr) simpleble.Status {
	return m.Called(h, service, characteristic, userdata).Get(0).(simpleble.Status)
}

func (m *MockNative) PeripheralUnsubscribe(h simpleble.Handle, service, characteristic *simpleble.UUIDSlot) simpleble.Status {
	return m.Called(h, service, characteristic).Get(0).(simpleble.Status)
}

func (m *MockNative) PeripheralReadDescriptor(h simpleble.Handle, service, characteristic, descriptor *simpleble.UUIDSlot, data *uintptr, length *uintptr) simpleble.Status {
	return m.Called(h, service, characteristic, descriptor, data, length).Get(0).(simpleble.Status)
}

func (m *MockNative) PeripheralWriteDescriptor(h simpleble.Handle, service, characteristic, descriptor *simpleble.UUIDSlot, data []byte) simpleble.Status {
	return m.Called(h, service, characteristic, descriptor, data).Get(0).(simpleble.Status)
}

func (m *MockNative) PeripheralSetCallbackOnConnected(h simpleble.Handle, userdata uintptr) simpleble.Status {
	return m.Called(h, userdata).Get(0).(simpleble.Status)
}

func (m *MockNative) PeripheralSetCallbackOnDisconnected(h simpleble.Handle, userdata uintptr) simpleble.Status {
	return m.Called(h, userdata).Get(0).(simpleble.Status)
}
