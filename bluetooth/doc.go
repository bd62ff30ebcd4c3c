// Package bluetooth is a Web Bluetooth shaped BLE central API over
// SimpleBLE.
//
// A Bluetooth owns one active adapter. RequestDevice, RequestDevices and
// Scan discover peripherals, match them against filters and hand out
// Devices that own their native handles until Close:
//
//	bt, err := bluetooth.Open("", bluetooth.WithLogger(logger))
//	if err != nil {
//		return err
//	}
//	defer bt.Close()
//
//	dev, err := bt.RequestDevice(ctx, bluetooth.RequestDeviceOptions{
//		Filters: []bluetooth.ScanFilter{{NamePrefix: "HRM"}},
//	})
//	if err != nil {
//		return err
//	}
//	if err := dev.GATT().Connect(ctx); err != nil {
//		return err
//	}
//	svc, _ := dev.GATT().PrimaryService("180d")
//	chr, _ := svc.Characteristic("2a37")
//	value, err := chr.ReadValue()
//
// Value changes are dispatched as characteristicvaluechanged events to the
// characteristic, then its service, then its device.
package bluetooth
