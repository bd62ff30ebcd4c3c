package devicefactory

import (
	"github.com/sirupsen/logrus"

	"github.com/srg/webble/bluetooth"
	"github.com/srg/webble/internal/config"
)

// Options translates the configuration into facade options.
func Options(cfg *config.Config, logger *logrus.Logger) []bluetooth.Option {
	return []bluetooth.Option{
		bluetooth.WithLogger(logger),
		bluetooth.WithRequestTimeout(cfg.RequestTimeout),
		bluetooth.WithScanInterval(cfg.ScanInterval),
		bluetooth.WithConnectTimeout(cfg.ConnectTimeout),
	}
}

// BluetoothFactory opens the SimpleBLE library named by the configuration
// and activates its first adapter.
// This is a variable so that it can be overridden in tests.
var BluetoothFactory = func(cfg *config.Config, logger *logrus.Logger) (*bluetooth.Bluetooth, error) {
	return bluetooth.Open(cfg.LibraryPath, Options(cfg, logger)...)
}
