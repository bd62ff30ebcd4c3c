package simpleble_test

import (
	"testing"
	"time"

	"github.com/srg/webble/internal/simpleble"
	"github.com/srg/webble/internal/testutils"
	"github.com/stretchr/testify/suite"
)

const (
	hrService = "0000180d-0000-1000-8000-00805f9b34fb"
	hrMeasure = "00002a37-0000-1000-8000-00805f9b34fb"
	hrControl = "00002a39-0000-1000-8000-00805f9b34fb"
	cccd      = "00002902-0000-1000-8000-00805f9b34fb"
)

type BindingTestSuite struct {
	suite.Suite
	helper *testutils.TestHelper
	fake   *testutils.FakeNative
	lib    *simpleble.Lib
}

func (suite *BindingTestSuite) SetupTest() {
	suite.helper = testutils.NewTestHelper(suite.T())
	suite.fake = testutils.NewFakeNative(testutils.DefaultAdapter())
	suite.fake.AddPeripheral(testutils.HeartRateMonitor("HRM-1", "11:22:33:44:55:66").
		WithManufacturerData(0x004c, []byte{0x02, 0x15}).
		Build())
	suite.lib = suite.helper.NewLib(suite.fake)
}

func (suite *BindingTestSuite) scanOne() (*simpleble.Adapter, *simpleble.Peripheral) {
	adapter, err := suite.lib.Adapter(0)
	suite.Require().NoError(err)
	suite.Require().NoError(adapter.ScanStart())
	suite.Require().NoError(adapter.ScanStop())
	p, err := adapter.ScanResult(0)
	suite.Require().NoError(err)
	return adapter, p
}

func (suite *BindingTestSuite) TestStringsAreFreedAfterDecoding() {
	adapter, err := suite.lib.Adapter(0)
	suite.Require().NoError(err)
	defer adapter.Release()

	id, err := adapter.Identifier()
	suite.NoError(err)
	suite.Equal("hci0", id)

	addr, err := adapter.Address()
	suite.NoError(err)
	suite.Equal("AA:BB:CC:DD:EE:FF", addr)

	stats := suite.fake.Stats()
	suite.Zero(stats.OutstandingAllocations, "every native string MUST be freed once decoded")
	suite.Zero(stats.DoubleFrees)
}

func (suite *BindingTestSuite) TestReleaseIsIdempotent() {
	adapter, p := suite.scanOne()

	p.Release()
	p.Release()
	adapter.Release()
	adapter.Release()

	stats := suite.fake.Stats()
	suite.Equal(1, stats.PeripheralsReleased)
	suite.Equal(1, stats.AdaptersReleased)
	suite.Zero(stats.DoubleReleases, "release MUST reach native code exactly once")
}

func (suite *BindingTestSuite) TestUseAfterReleaseNeverReachesNative() {
	adapter, p := suite.scanOne()
	p.Release()

	_, err := p.Identifier()
	suite.ErrorIs(err, simpleble.ErrReleased)
	suite.ErrorIs(p.Connect(), simpleble.ErrReleased)

	adapter.Release()
	suite.ErrorIs(adapter.ScanStart(), simpleble.ErrReleased)
	suite.Equal(1, suite.fake.Stats().ScanStarts)
}

func (suite *BindingTestSuite) TestServicesAndManufacturerData() {
	adapter, p := suite.scanOne()
	defer adapter.Release()
	defer p.Release()

	md, err := p.ManufacturerData()
	suite.Require().NoError(err)
	suite.Equal([]simpleble.ManufacturerData{{CompanyID: 0x004c, Data: []byte{0x02, 0x15}}}, md)

	suite.Require().NoError(p.Connect())
	services, err := p.Services()
	suite.Require().NoError(err)
	suite.Require().Len(services, 2)
	suite.Equal(hrService, services[0].UUID)
	suite.Equal([]string{cccd}, services[0].Characteristics[0].Descriptors)
}

func (suite *BindingTestSuite) TestReadWriteRoundTrip() {
	adapter, p := suite.scanOne()
	defer adapter.Release()
	defer p.Release()
	suite.Require().NoError(p.Connect())

	suite.Require().NoError(p.WriteRequest(hrService, hrControl, []byte{0x01}))
	got, err := p.Read(hrService, hrControl)
	suite.NoError(err)
	suite.Equal([]byte{0x01}, got)

	suite.Require().NoError(p.WriteDescriptor(hrService, hrMeasure, cccd, []byte{0x01, 0x00}))
	got, err = p.ReadDescriptor(hrService, hrMeasure, cccd)
	suite.NoError(err)
	suite.Equal([]byte{0x01, 0x00}, got)

	suite.Zero(suite.fake.Stats().OutstandingAllocations, "read buffers MUST be freed after copying")
}

func (suite *BindingTestSuite) TestFailedCallsReturnStatusErrors() {
	adapter, p := suite.scanOne()
	defer adapter.Release()
	defer p.Release()

	_, err := p.Read(hrService, hrMeasure)
	suite.ErrorIs(err, simpleble.ErrCallFailed, "reading while disconnected MUST surface the native failure")

	var statusErr *simpleble.StatusError
	suite.ErrorAs(err, &statusErr)
	suite.Equal("peripheral_read", statusErr.Op)
}

func (suite *BindingTestSuite) TestCallbacksLiveUntilUnsubscribe() {
	adapter, p := suite.scanOne()
	defer adapter.Release()
	suite.Require().NoError(p.Connect())

	var notified, indicated [][]byte
	suite.Require().NoError(p.Notify(hrService, hrMeasure, func(data []byte) { notified = append(notified, data) }))
	suite.Require().NoError(p.Indicate(hrService, hrMeasure, func(data []byte) { indicated = append(indicated, data) }))
	suite.Equal(2, suite.lib.PendingCallbacks())

	suite.True(suite.fake.Notify("HRM-1", hrService, hrMeasure, []byte{0x00, 0x50}))
	suite.True(suite.fake.Indicate("HRM-1", hrService, hrMeasure, []byte{0x00, 0x51}))
	suite.Equal([][]byte{{0x00, 0x50}}, notified)
	suite.Equal([][]byte{{0x00, 0x51}}, indicated)

	suite.Require().NoError(p.Unsubscribe(hrService, hrMeasure))
	suite.Zero(suite.lib.PendingCallbacks(), "unsubscribe MUST drop both closures")
	suite.False(suite.fake.Notify("HRM-1", hrService, hrMeasure, []byte{0x00}))

	suite.Require().NoError(p.OnDisconnected(func() {}))
	suite.Equal(1, suite.lib.PendingCallbacks())
	p.Release()
	suite.Zero(suite.lib.PendingCallbacks(), "release MUST drop every closure of the peripheral")
}

func (suite *BindingTestSuite) TestScanCallbacks() {
	adapter, err := suite.lib.Adapter(0)
	suite.Require().NoError(err)

	var started, stopped int
	var found []string
	suite.Require().NoError(adapter.OnScanStart(func() { started++ }))
	suite.Require().NoError(adapter.OnScanStop(func() { stopped++ }))
	suite.Require().NoError(adapter.OnScanFound(func(p *simpleble.Peripheral) {
		defer p.Release()
		id, _ := p.Identifier()
		found = append(found, id)
	}))

	suite.Require().NoError(adapter.ScanFor(10 * time.Millisecond))
	suite.Equal(1, started)
	suite.Equal(1, stopped)
	suite.Equal([]string{"HRM-1"}, found)

	adapter.Release()
	suite.Zero(suite.lib.PendingCallbacks())

	stats := suite.fake.Stats()
	suite.Equal(stats.PeripheralsAcquired, stats.PeripheralsReleased)
}

func TestBindingTestSuite(t *testing.T) {
	suite.Run(t, new(BindingTestSuite))
}
