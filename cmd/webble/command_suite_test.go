package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/suite"

	"github.com/srg/webble/bluetooth"
	"github.com/srg/webble/internal/config"
	"github.com/srg/webble/internal/devicefactory"
	"github.com/srg/webble/internal/testutils"
)

const (
	hrmName    = "HRM-1"
	hrmAddress = "11:22:33:44:55:66"

	hrService = "0000180d-0000-1000-8000-00805f9b34fb"
	hrMeasure = "00002a37-0000-1000-8000-00805f9b34fb"
	hrControl = "00002a39-0000-1000-8000-00805f9b34fb"
)

const testConfig = `log_level: error
request_timeout: 20ms
scan_interval: 5ms
connect_timeout: 1s
`

// CommandTestSuite runs commands against a FakeNative. Every test starts
// with default flag values and ends with every native handle released.
type CommandTestSuite struct {
	suite.Suite
	helper     *testutils.TestHelper
	fake       *testutils.FakeNative
	configPath string
	stderr     *bytes.Buffer

	originalFactory func(*config.Config, *logrus.Logger) (*bluetooth.Bluetooth, error)
}

func (s *CommandTestSuite) SetupSuite() {
	s.originalFactory = devicefactory.BluetoothFactory
}

func (s *CommandTestSuite) TearDownSuite() {
	devicefactory.BluetoothFactory = s.originalFactory
}

func (s *CommandTestSuite) SetupTest() {
	s.helper = testutils.NewTestHelper(s.T())
	s.fake = testutils.NewFakeNative(testutils.DefaultAdapter())
	s.fake.AddPeripheral(testutils.HeartRateMonitor(hrmName, hrmAddress).
		WithManufacturerData(0x004c, []byte{0x02, 0x15}).
		Build())

	s.configPath = filepath.Join(s.T().TempDir(), "config.yaml")
	s.Require().NoError(os.WriteFile(s.configPath, []byte(testConfig), 0o600))

	devicefactory.BluetoothFactory = func(cfg *config.Config, logger *logrus.Logger) (*bluetooth.Bluetooth, error) {
		return bluetooth.New(s.helper.NewLib(s.fake), devicefactory.Options(cfg, logger)...)
	}
}

func (s *CommandTestSuite) TearDownTest() {
	stats := s.fake.Stats()
	s.Equal(stats.PeripheralsAcquired, stats.PeripheralsReleased, "every peripheral handle MUST be released when the command ends")
	s.Equal(stats.AdaptersAcquired, stats.AdaptersReleased, "every adapter handle MUST be released when the command ends")
	s.Zero(stats.OutstandingAllocations)
}

// ExecuteCommand runs the root command with default flags, args and the
// suite's config, returns stdout and the command error. Stderr is kept in s.stderr.
func (s *CommandTestSuite) ExecuteCommand(args ...string) (string, error) {
	resetFlags(rootCmd)
	out := new(bytes.Buffer)
	s.stderr = new(bytes.Buffer)
	rootCmd.SetOut(out)
	rootCmd.SetErr(s.stderr)
	rootCmd.SetArgs(append([]string{"--config", s.configPath}, args...))
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

// resetFlags restores every flag of cmd and its subcommands to its default
// so that package-level flag variables do not leak between tests.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}
