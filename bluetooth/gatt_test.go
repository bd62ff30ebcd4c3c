package bluetooth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/srg/webble/bluetooth"
	"github.com/srg/webble/internal/testutils"
)

const (
	heartRateService     = "0000180d-0000-1000-8000-00805f9b34fb"
	heartRateMeasurement = "00002a37-0000-1000-8000-00805f9b34fb"
	heartRateControl     = "00002a39-0000-1000-8000-00805f9b34fb"
	batteryService       = "0000180f-0000-1000-8000-00805f9b34fb"
	clientConfig         = "00002902-0000-1000-8000-00805f9b34fb"
)

type GATTTestSuite struct {
	BluetoothSuite
}

func (s *GATTTestSuite) measurement(d *bluetooth.Device) *bluetooth.Characteristic {
	s.T().Helper()
	svc, err := d.GATT().PrimaryService("180d")
	s.Require().NoError(err)
	c, err := svc.Characteristic("2a37")
	s.Require().NoError(err)
	return c
}

func (s *GATTTestSuite) TestServiceDiscovery() {
	d := s.openConnected()

	var added []string
	defer d.AddEventListener(bluetooth.EventServiceAdded, func(e bluetooth.Event) {
		added = append(added, e.Service.UUID())
	})()

	services, err := d.GATT().PrimaryServices("")
	s.Require().NoError(err)
	s.Require().Len(services, 2)
	s.Equal(heartRateService, services[0].UUID())
	s.Equal(batteryService, services[1].UUID())
	s.True(services[0].IsPrimary())
	s.Same(d, services[0].Device())
	s.Equal([]string{heartRateService, batteryService}, added, "serviceadded MUST reach the device for every service built")

	svc, err := d.GATT().PrimaryService("0x180F")
	s.Require().NoError(err)
	s.Equal(batteryService, svc.UUID(), "short and prefixed UUIDs MUST be canonicalized")

	chars, err := services[0].Characteristics("")
	s.Require().NoError(err)
	s.Require().Len(chars, 2)
	s.Equal(heartRateMeasurement, chars[0].UUID())
	s.Equal(heartRateControl, chars[1].UUID())
	s.Same(services[0], chars[0].Service())

	descriptors, err := chars[0].Descriptors("")
	s.Require().NoError(err)
	s.Require().Len(descriptors, 1)
	s.Equal(clientConfig, descriptors[0].UUID())
	s.Same(chars[0], descriptors[0].Characteristic())
}

func (s *GATTTestSuite) TestLookupErrors() {
	d := s.openConnected()
	gatt := d.GATT()

	_, err := gatt.PrimaryService("")
	s.ErrorIs(err, bluetooth.ErrInvalidArgument)

	_, err = gatt.PrimaryService("not-a-uuid")
	s.ErrorIs(err, bluetooth.ErrInvalidArgument)

	_, err = gatt.PrimaryService("1800")
	s.ErrorIs(err, bluetooth.ErrNotFound)
	var nf *bluetooth.NotFoundError
	s.Require().ErrorAs(err, &nf)
	s.Equal("service", nf.Resource)

	svc, err := gatt.PrimaryService("180d")
	s.Require().NoError(err)
	_, err = svc.Characteristic("2a00")
	s.Require().ErrorAs(err, &nf)
	s.Equal([]string{heartRateService, "2a00"}, nf.UUIDs)

	c := s.measurement(d)
	_, err = c.Descriptor("2901")
	s.ErrorIs(err, bluetooth.ErrNotFound)
	_, err = c.Descriptor("")
	s.ErrorIs(err, bluetooth.ErrInvalidArgument)
}

func (s *GATTTestSuite) TestLookupsRequireConnection() {
	d := s.openConnected()
	svc, err := d.GATT().PrimaryService("180d")
	s.Require().NoError(err)
	c := s.measurement(d)

	s.Require().NoError(d.GATT().Disconnect())

	_, err = d.GATT().PrimaryServices("")
	s.ErrorIs(err, bluetooth.ErrNotConnected)
	_, err = d.GATT().PrimaryService("")
	s.ErrorIs(err, bluetooth.ErrNotConnected, "the connection check MUST come before argument validation")
	_, err = svc.Characteristic("")
	s.ErrorIs(err, bluetooth.ErrNotConnected)
	_, err = c.Descriptors("")
	s.ErrorIs(err, bluetooth.ErrNotConnected)
	_, err = c.ReadValue()
	s.ErrorIs(err, bluetooth.ErrNotConnected)
}

func (s *GATTTestSuite) TestReadValueCachesAndBubbles() {
	d := s.openConnected()
	c := s.measurement(d)

	_, err := c.Value()
	s.ErrorIs(err, bluetooth.ErrInvalidData, "reading the cache before any read MUST fail")

	var order []string
	defer c.AddEventListener(bluetooth.EventCharacteristicValueChanged, func(e bluetooth.Event) {
		order = append(order, "characteristic")
		s.Equal([]byte{0x00, 0x48}, e.Value)
		s.Same(c, e.Characteristic)
	})()
	defer c.Service().AddEventListener(bluetooth.EventCharacteristicValueChanged, func(bluetooth.Event) {
		order = append(order, "service")
	})()
	defer d.AddEventListener(bluetooth.EventCharacteristicValueChanged, func(bluetooth.Event) {
		order = append(order, "device")
	})()

	value, err := c.ReadValue()
	s.Require().NoError(err)
	s.Equal([]byte{0x00, 0x48}, value)
	s.Equal([]string{"characteristic", "service", "device"}, order)

	cached, err := c.Value()
	s.NoError(err)
	s.Equal(value, cached)
}

func (s *GATTTestSuite) TestWriteThenReadRoundTrip() {
	d := s.openConnected()
	svc, err := d.GATT().PrimaryService("180d")
	s.Require().NoError(err)
	c, err := svc.Characteristic("2a39")
	s.Require().NoError(err)

	events := 0
	defer c.AddEventListener(bluetooth.EventCharacteristicValueChanged, func(bluetooth.Event) { events++ })()

	s.Require().NoError(c.WriteValueWithResponse([]byte{0x01}))
	s.Require().NoError(c.WriteValueWithoutResponse([]byte{0x02}))
	s.Zero(events, "writes MUST NOT dispatch value change events")

	cached, err := c.Value()
	s.NoError(err)
	s.Equal([]byte{0x02}, cached)

	writes := s.fake.Writes()
	s.Require().Len(writes, 2)
	s.Equal("write_command", writes[0].Op)
	s.Equal("write_request", writes[1].Op)

	value, err := c.ReadValue()
	s.NoError(err)
	s.Equal([]byte{0x02}, value)
}

func (s *GATTTestSuite) TestFailedIOClassification() {
	s.fake.AddPeripheral(testutils.HeartRateMonitor("HRM-F", "22:22:22:22:22:22").FailingReads().FailingWrites().Build())
	bt := s.open()
	d, err := bt.RequestDevice(s.T().Context(), bluetooth.RequestDeviceOptions{Filters: []bluetooth.ScanFilter{{Name: "HRM-F"}}})
	s.Require().NoError(err)
	s.Require().NoError(d.GATT().Connect(s.T().Context()))
	c := s.measurement(d)

	_, err = c.ReadValue()
	s.ErrorIs(err, bluetooth.ErrBadResource)

	err = c.WriteValueWithResponse([]byte{0x01})
	s.ErrorIs(err, bluetooth.ErrWriteFailed)
	s.ErrorIs(err, bluetooth.ErrBadResource)

	descriptor, err := c.Descriptor("2902")
	s.Require().NoError(err)
	_, err = descriptor.ReadValue()
	s.ErrorIs(err, bluetooth.ErrBadResource)
	s.ErrorIs(descriptor.WriteValue([]byte{0x01, 0x00}), bluetooth.ErrBadResource)
}

func (s *GATTTestSuite) TestDescriptorReadWrite() {
	d := s.openConnected()
	descriptor, err := s.measurement(d).Descriptor("2902")
	s.Require().NoError(err)

	_, err = descriptor.Value()
	s.ErrorIs(err, bluetooth.ErrInvalidData)

	value, err := descriptor.ReadValue()
	s.Require().NoError(err)
	s.Equal([]byte{0x00, 0x00}, value)

	s.Require().NoError(descriptor.WriteValue([]byte{0x01, 0x00}))
	cached, err := descriptor.Value()
	s.NoError(err)
	s.Equal([]byte{0x01, 0x00}, cached)

	value, err = descriptor.ReadValue()
	s.NoError(err)
	s.Equal([]byte{0x01, 0x00}, value)
}

func (s *GATTTestSuite) TestNotifications() {
	d := s.openConnected()
	c := s.measurement(d)

	var values [][]byte
	defer d.AddEventListener(bluetooth.EventCharacteristicValueChanged, func(e bluetooth.Event) {
		values = append(values, e.Value)
	})()

	s.Require().NoError(c.StartNotifications())
	s.True(c.Notifying())
	s.True(s.fake.Subscribed("HRM-1", heartRateService, heartRateMeasurement, false))
	s.True(s.fake.Subscribed("HRM-1", heartRateService, heartRateMeasurement, true))

	s.True(s.fake.Notify("HRM-1", heartRateService, heartRateMeasurement, []byte{0x00, 0x50}))
	s.True(s.fake.Indicate("HRM-1", heartRateService, heartRateMeasurement, []byte{0x00, 0x51}))
	s.Equal([][]byte{{0x00, 0x50}, {0x00, 0x51}}, values, "notify and indicate MUST share one handler")

	cached, err := c.Value()
	s.NoError(err)
	s.Equal([]byte{0x00, 0x51}, cached)

	s.Require().NoError(c.StopNotifications())
	s.Require().NoError(c.StopNotifications(), "stopping twice MUST succeed")
	s.Equal(1, s.fake.Unsubscribes())
	s.False(c.Notifying())
	s.False(s.fake.Notify("HRM-1", heartRateService, heartRateMeasurement, []byte{0x00}))
}

func (s *GATTTestSuite) TestStopWithoutStartIsNoop() {
	d := s.openConnected()
	s.NoError(s.measurement(d).StopNotifications())
	s.Zero(s.fake.Unsubscribes())
}

func (s *GATTTestSuite) TestSubscribeChannel() {
	d := s.openConnected()
	c := s.measurement(d)
	s.Require().NoError(c.StartNotifications())

	values, cancel := c.Subscribe(2)
	for _, b := range []byte{0x01, 0x02, 0x03} {
		s.fake.Notify("HRM-1", heartRateService, heartRateMeasurement, []byte{0x00, b})
	}

	s.Equal([]byte{0x00, 0x02}, <-values, "the oldest value MUST be dropped when the buffer is full")
	s.Equal([]byte{0x00, 0x03}, <-values)

	cancel()
	cancel()
	_, open := <-values
	s.False(open)
	s.Zero(c.ListenerCount(bluetooth.EventCharacteristicValueChanged))
}

func (s *GATTTestSuite) TestProperties() {
	d := s.openConnected()
	p := s.measurement(d).Properties()

	s.False(p.Broadcast)
	s.False(p.AuthenticatedSignedWrites)
	s.True(p.Read)
	s.True(p.Write)
	s.True(p.WriteWithoutResponse)
	s.True(p.Notify)
	s.True(p.Indicate)
	s.True(p.ReliableWrite)
	s.Equal("read,writeWithoutResponse,write,notify,indicate,reliableWrite", p.String())
}

func (s *GATTTestSuite) TestConnectRefused() {
	s.fake.AddPeripheral(testutils.NewPeripheral("Locked").FailingConnect().Build())
	bt := s.open()
	d, err := bt.RequestDevice(s.T().Context(), bluetooth.RequestDeviceOptions{AcceptAllDevices: true})
	s.Require().NoError(err)

	err = d.GATT().Connect(s.T().Context())
	s.ErrorIs(err, bluetooth.ErrConnectionRefused)
	s.False(d.GATT().Connected())
}

func (s *GATTTestSuite) TestConnectHonoursCancelledContext() {
	s.fake.AddPeripheral(testutils.NewPeripheral("HRM-1").Build())
	bt := s.open()
	d, err := bt.RequestDevice(s.T().Context(), bluetooth.RequestDeviceOptions{AcceptAllDevices: true})
	s.Require().NoError(err)

	ctx, cancel := context.WithCancel(s.T().Context())
	cancel()
	s.ErrorIs(d.GATT().Connect(ctx), context.Canceled)
	s.False(d.GATT().Connected())
}

func (s *GATTTestSuite) TestLocalDisconnectFiresOnce() {
	d := s.openConnected()
	events := 0
	defer d.AddEventListener(bluetooth.EventGATTServerDisconnected, func(bluetooth.Event) { events++ })()

	s.Require().NoError(d.GATT().Disconnect())
	s.Require().NoError(d.GATT().Disconnect())
	s.False(d.GATT().Connected())
	s.Equal(1, events, "gattserverdisconnected MUST fire once per transition")

	s.Require().NoError(d.GATT().Connect(s.T().Context()))
	s.True(d.GATT().Connected(), "a disconnected server MUST be reconnectable")
	d.Close()
	s.Equal(2, events)
}

func (s *GATTTestSuite) TestRemoteLinkLossConverges() {
	d := s.openConnected()
	events := 0
	defer d.AddEventListener(bluetooth.EventGATTServerDisconnected, func(bluetooth.Event) { events++ })()

	s.True(s.fake.DropConnection("HRM-1"))
	s.False(d.GATT().Connected())
	s.NoError(d.GATT().Disconnect())
	s.Equal(1, events)

	_, err := d.GATT().PrimaryServices("")
	s.ErrorIs(err, bluetooth.ErrNotConnected)
}

func (s *GATTTestSuite) TestDeviceQueriesAndClose() {
	s.fake.AddPeripheral(testutils.HeartRateMonitor("HRM-1", "11:22:33:44:55:66").WithRSSI(-70).Paired().Build())
	bt := s.open()
	d, err := bt.RequestDevice(s.T().Context(), bluetooth.RequestDeviceOptions{AcceptAllDevices: true})
	s.Require().NoError(err)

	rssi, err := d.RSSI()
	s.NoError(err)
	s.Equal(int16(-70), rssi)
	s.Equal(int16(-70), d.Advertisement().RSSI)

	connectable, err := d.IsConnectable()
	s.NoError(err)
	s.True(connectable)

	paired, err := d.IsPaired()
	s.NoError(err)
	s.True(paired)
	s.Require().NoError(d.Unpair())
	paired, err = d.IsPaired()
	s.NoError(err)
	s.False(paired)

	s.ErrorIs(d.WatchAdvertisements(s.T().Context()), bluetooth.ErrUnsupported)
	s.ErrorIs(d.UnwatchAdvertisements(), bluetooth.ErrUnsupported)
	s.False(d.WatchingAdvertisements())

	d.Close()
	_, err = d.RSSI()
	s.ErrorIs(err, bluetooth.ErrBadResource, "a closed device MUST NOT reach native code")
}

func TestGATTTestSuite(t *testing.T) {
	suite.Run(t, new(GATTTestSuite))
}
