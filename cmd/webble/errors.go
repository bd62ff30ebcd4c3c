package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/srg/webble/bluetooth"
	"github.com/srg/webble/internal/luafilter"
	"github.com/srg/webble/internal/simpleble"
)

// Command-level errors
var (
	// ErrConnectionLost indicates the BLE connection was unexpectedly lost during operation.
	// This is distinct from bluetooth.ErrNotConnected, which indicates an attempt to use
	// a device that was never connected or was already disconnected.
	ErrConnectionLost = errors.New("connection lost")
)

// FormatUserError turns an error chain into the one-line message printed by
// main. Unknown errors are printed as they are.
func FormatUserError(err error) string {
	var notFound *bluetooth.NotFoundError
	var connErr *bluetooth.ConnectionError
	var scriptErr *luafilter.ScriptError

	switch {
	case errors.Is(err, bluetooth.ErrNoAdapters):
		return "no Bluetooth adapter found; make sure Bluetooth is enabled"
	case errors.As(err, &notFound) && notFound.Resource == "device":
		return "no matching device found; make sure it is powered on and advertising"
	case errors.As(err, &notFound):
		return notFound.Error()
	case errors.As(err, &connErr) && connErr.State == bluetooth.ConnectionRefused:
		return "device refused the connection"
	case errors.As(err, &connErr) && connErr.State == bluetooth.NotConnected:
		return "device is not connected"
	case errors.Is(err, ErrConnectionLost):
		return "connection to the device was lost"
	case errors.Is(err, bluetooth.ErrWriteFailed):
		return fmt.Sprintf("write rejected by device (%v)", err)
	case errors.Is(err, bluetooth.ErrScanInProgress):
		return "another scan is already running on this adapter"
	case errors.Is(err, bluetooth.ErrUnsupported):
		return fmt.Sprintf("operation not supported: %v", err)
	case errors.Is(err, bluetooth.ErrClosed):
		return "Bluetooth was closed before the operation finished"
	case errors.Is(err, simpleble.ErrLibraryNotFound):
		return fmt.Sprintf("%v; set --library, library_path or WEBBLE_SIMPLEBLE_PATH", err)
	case errors.Is(err, simpleble.ErrSymbolMissing):
		return fmt.Sprintf("SimpleBLE library is incompatible (%s expected): %v", simpleble.LayoutVersion, err)
	case errors.Is(err, simpleble.ErrUnsupportedPlatform):
		return "SimpleBLE is not supported on this platform"
	case errors.Is(err, context.DeadlineExceeded):
		return "operation timed out"
	case errors.As(err, &scriptErr):
		return fmt.Sprintf("lua filter: %s", scriptErr.Error())
	default:
		return err.Error()
	}
}
