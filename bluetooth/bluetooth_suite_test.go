package bluetooth_test

import (
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/srg/webble/bluetooth"
	"github.com/srg/webble/internal/testutils"
)

// BluetoothSuite owns a fake native layer and a Bluetooth bound to it.
// Every test ends with a full leak check after Close.
type BluetoothSuite struct {
	suite.Suite
	helper *testutils.TestHelper
	fake   *testutils.FakeNative
	bt     *bluetooth.Bluetooth
}

func (s *BluetoothSuite) SetupTest() {
	s.helper = testutils.NewTestHelper(s.T())
	s.fake = testutils.NewFakeNative(testutils.DefaultAdapter())
	s.bt = nil
}

func (s *BluetoothSuite) TearDownTest() {
	if s.bt != nil {
		s.NoError(s.bt.Close())
	}
	stats := s.fake.Stats()
	s.Equal(stats.PeripheralsAcquired, stats.PeripheralsReleased, "every peripheral handle MUST be released exactly once")
	s.Equal(stats.AdaptersAcquired, stats.AdaptersReleased, "every adapter handle MUST be released exactly once")
	s.Zero(stats.DoubleReleases)
	s.Zero(stats.OutstandingAllocations, "every native allocation MUST be freed")
	s.Zero(stats.DoubleFrees)
}

// open binds the fake with short timings so scans finish quickly.
func (s *BluetoothSuite) open(opts ...bluetooth.Option) *bluetooth.Bluetooth {
	s.T().Helper()
	defaults := []bluetooth.Option{
		bluetooth.WithLogger(s.helper.Logger),
		bluetooth.WithRequestTimeout(5 * time.Millisecond),
		bluetooth.WithScanInterval(2 * time.Millisecond),
	}
	bt, err := bluetooth.New(s.helper.NewLib(s.fake), append(defaults, opts...)...)
	s.Require().NoError(err)
	s.bt = bt
	return bt
}

// openConnected adds a heart rate monitor, requests it and connects.
func (s *BluetoothSuite) openConnected() *bluetooth.Device {
	s.T().Helper()
	s.fake.AddPeripheral(testutils.HeartRateMonitor("HRM-1", "11:22:33:44:55:66").Build())
	bt := s.open()
	d, err := bt.RequestDevice(s.T().Context(), bluetooth.RequestDeviceOptions{
		Filters: []bluetooth.ScanFilter{{Name: "HRM-1"}},
	})
	s.Require().NoError(err)
	s.Require().NoError(d.GATT().Connect(s.T().Context()))
	return d
}
