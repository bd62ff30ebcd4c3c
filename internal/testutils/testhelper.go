package testutils

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/srg/webble/internal/simpleble"
)

type TestHelper struct {
	T      *testing.T
	Logger *logrus.Logger
}

// NewTestHelper creates a test helper with a debug-level logger.
func NewTestHelper(t *testing.T) *TestHelper {
	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel) // enable debug logs to track execution flow
	return &TestHelper{
		T:      t,
		Logger: logger,
	}
}

// NewLib binds fake into a simpleble.Lib that logs through the helper.
func (h *TestHelper) NewLib(fake *FakeNative) *simpleble.Lib {
	return simpleble.New(fake, h.Logger)
}

// DefaultAdapter is the single adapter most tests run against.
func DefaultAdapter() FakeAdapter {
	return FakeAdapter{Identifier: "hci0", Address: "AA:BB:CC:DD:EE:FF"}
}

// HeartRateMonitor builds a peripheral with a heart rate service, a
// writable control point and a client configuration descriptor.
func HeartRateMonitor(identifier, address string) *PeripheralBuilder {
	return NewPeripheral(identifier).
		WithAddress(address).
		WithService("0000180d-0000-1000-8000-00805f9b34fb",
			Char("00002a37-0000-1000-8000-00805f9b34fb", "00002902-0000-1000-8000-00805f9b34fb"),
			Char("00002a39-0000-1000-8000-00805f9b34fb"),
		).
		WithService("0000180f-0000-1000-8000-00805f9b34fb",
			Char("00002a19-0000-1000-8000-00805f9b34fb"),
		).
		WithValue("0000180d-0000-1000-8000-00805f9b34fb", "00002a37-0000-1000-8000-00805f9b34fb", []byte{0x00, 0x48}).
		WithValue("0000180f-0000-1000-8000-00805f9b34fb", "00002a19-0000-1000-8000-00805f9b34fb", []byte{0x5a}).
		WithDescriptorValue("0000180d-0000-1000-8000-00805f9b34fb", "00002a37-0000-1000-8000-00805f9b34fb",
			"00002902-0000-1000-8000-00805f9b34fb", []byte{0x00, 0x00})
}

// LoadFile reads a file relative to the module root.
func LoadFile(relPath string) (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}

	// Navigate up to find the project root (look for go.mod file)
	projectRoot := wd
	for {
		if _, err := os.Stat(filepath.Join(projectRoot, "go.mod")); err == nil {
			break
		}
		parent := filepath.Dir(projectRoot)
		if parent == projectRoot {
			return "", fmt.Errorf("could not find project root (go.mod not found)")
		}
		projectRoot = parent
	}

	fullPath := filepath.Join(projectRoot, relPath)
	data, err := os.ReadFile(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to read file %s: %w", fullPath, err)
	}

	return string(data), nil
}
