package simpleble_test

import (
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/srg/webble/internal/simpleble"
	"github.com/srg/webble/internal/testutils"
)

const (
	mockAdapter    = simpleble.Handle(0x10)
	mockPeripheral = simpleble.Handle(0x20)
)

// NativeCallsTestSuite checks the exact native calls the binding issues.
type NativeCallsTestSuite struct {
	suite.Suite
	native *testutils.MockNative
	lib    *simpleble.Lib
}

func (suite *NativeCallsTestSuite) SetupTest() {
	suite.native = new(testutils.MockNative)
	suite.native.On("Bind", mock.Anything).Once()
	suite.lib = simpleble.New(suite.native, testutils.NewTestHelper(suite.T()).Logger)
}

func (suite *NativeCallsTestSuite) TearDownTest() {
	suite.native.AssertExpectations(suite.T())
}

func (suite *NativeCallsTestSuite) peripheral() (*simpleble.Adapter, *simpleble.Peripheral) {
	suite.native.On("AdapterGetHandle", 0).Return(mockAdapter).Once()
	suite.native.On("AdapterScanGetResultsHandle", mockAdapter, 0).Return(mockPeripheral).Once()

	adapter, err := suite.lib.Adapter(0)
	suite.Require().NoError(err)
	p, err := adapter.ScanResult(0)
	suite.Require().NoError(err)
	return adapter, p
}

func (suite *NativeCallsTestSuite) TestReadCopiesThenFrees() {
	adapter, p := suite.peripheral()
	const buffer = uintptr(0xbeef)

	suite.native.On("PeripheralRead", mockPeripheral, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			*args.Get(3).(*uintptr) = buffer
			*args.Get(4).(*uintptr) = 2
		}).
		Return(simpleble.StatusSuccess).Once()
	suite.native.On("CopyBytes", buffer, 2).Return([]byte{0x00, 0x48}).Once()
	suite.native.On("Free", buffer).Once()
	suite.native.On("PeripheralReleaseHandle", mockPeripheral).Once()
	suite.native.On("AdapterReleaseHandle", mockAdapter).Once()

	data, err := p.Read("180d", "2a37")
	suite.NoError(err)
	suite.Equal([]byte{0x00, 0x48}, data)

	p.Release()
	p.Release()
	adapter.Release()
}

func (suite *NativeCallsTestSuite) TestFailedSubscribeDropsClosure() {
	adapter, p := suite.peripheral()

	suite.native.On("PeripheralNotify", mockPeripheral, mock.Anything, mock.Anything, mock.AnythingOfType("uintptr")).
		Return(simpleble.StatusFailure).Once()
	suite.native.On("PeripheralReleaseHandle", mockPeripheral).Once()
	suite.native.On("AdapterReleaseHandle", mockAdapter).Once()

	err := p.Notify("180d", "2a37", func([]byte) {})
	suite.ErrorIs(err, simpleble.ErrCallFailed)
	suite.Zero(suite.lib.PendingCallbacks(), "a rejected registration MUST NOT keep its closure")
	suite.False(p.Subscribed("180d", "2a37"))

	p.Release()
	adapter.Release()
}

func (suite *NativeCallsTestSuite) TestNullHandleIsRejected() {
	suite.native.On("AdapterGetHandle", 3).Return(simpleble.Handle(0)).Once()

	_, err := suite.lib.Adapter(3)
	suite.ErrorIs(err, simpleble.ErrInvalidHandle)
	suite.native.AssertNotCalled(suite.T(), "AdapterReleaseHandle", mock.Anything)
}

func (suite *NativeCallsTestSuite) TestImplausibleCountsAreRejected() {
	adapter, p := suite.peripheral()

	suite.native.On("PeripheralServicesCount", mockPeripheral).Return(simpleble.MaxServices + 1).Once()
	suite.native.On("PeripheralManufacturerDataCount", mockPeripheral).Return(-1).Once()
	suite.native.On("PeripheralReleaseHandle", mockPeripheral).Once()
	suite.native.On("AdapterReleaseHandle", mockAdapter).Once()

	_, err := p.Services()
	suite.ErrorIs(err, simpleble.ErrLayout, "a services count above the ATT handle space MUST be rejected")
	_, err = p.ManufacturerData()
	suite.ErrorIs(err, simpleble.ErrLayout, "a negative count MUST be rejected")
	suite.native.AssertNotCalled(suite.T(), "PeripheralServicesGet", mock.Anything, mock.Anything, mock.Anything)
	suite.native.AssertNotCalled(suite.T(), "PeripheralManufacturerDataGet", mock.Anything, mock.Anything, mock.Anything)

	p.Release()
	adapter.Release()
}

func (suite *NativeCallsTestSuite) TestManufacturerDataKeepsDecodableEntries() {
	adapter, p := suite.peripheral()

	good, err := simpleble.EncodeManufacturerData(simpleble.ManufacturerData{CompanyID: 0x0059, Data: []byte{0x01}})
	suite.Require().NoError(err)
	oversized := make([]byte, simpleble.ManufacturerDataSize)
	oversized[8] = 255

	suite.native.On("PeripheralManufacturerDataCount", mockPeripheral).Return(3).Once()
	suite.native.On("PeripheralManufacturerDataGet", mockPeripheral, 0, mock.Anything).
		Run(func(args mock.Arguments) { copy(args.Get(2).([]byte), oversized) }).
		Return(simpleble.StatusSuccess).Once()
	suite.native.On("PeripheralManufacturerDataGet", mockPeripheral, 1, mock.Anything).
		Return(simpleble.StatusFailure).Once()
	suite.native.On("PeripheralManufacturerDataGet", mockPeripheral, 2, mock.Anything).
		Run(func(args mock.Arguments) { copy(args.Get(2).([]byte), good) }).
		Return(simpleble.StatusSuccess).Once()
	suite.native.On("PeripheralReleaseHandle", mockPeripheral).Once()
	suite.native.On("AdapterReleaseHandle", mockAdapter).Once()

	entries, err := p.ManufacturerData()
	suite.ErrorIs(err, simpleble.ErrLayout, "the oversized entry MUST be reported")
	suite.ErrorIs(err, simpleble.ErrCallFailed, "the failed fetch MUST be reported")
	suite.Equal([]simpleble.ManufacturerData{{CompanyID: 0x0059, Data: []byte{0x01}}}, entries,
		"entries that decode MUST survive a bad sibling")

	p.Release()
	adapter.Release()
}

func (suite *NativeCallsTestSuite) TestReleaseWaitsForRunningCall() {
	adapter, p := suite.peripheral()

	entered := make(chan struct{})
	unblock := make(chan struct{})
	suite.native.On("PeripheralConnect", mockPeripheral).
		Run(func(mock.Arguments) {
			close(entered)
			<-unblock
		}).
		Return(simpleble.StatusSuccess).Once()
	suite.native.On("PeripheralReleaseHandle", mockPeripheral).Once()
	suite.native.On("AdapterReleaseHandle", mockAdapter).Once()

	connected := make(chan error, 1)
	go func() { connected <- p.Connect() }()
	<-entered

	p.Release()
	suite.True(p.Released())
	suite.ErrorIs(p.Disconnect(), simpleble.ErrReleased, "new calls MUST fail once Release was called")
	suite.native.AssertNotCalled(suite.T(), "PeripheralReleaseHandle", mockPeripheral)

	close(unblock)
	suite.NoError(<-connected)
	suite.native.AssertNumberOfCalls(suite.T(), "PeripheralReleaseHandle", 1)

	p.Release()
	adapter.Release()
}

func TestNativeCallsTestSuite(t *testing.T) {
	suite.Run(t, new(NativeCallsTestSuite))
}
