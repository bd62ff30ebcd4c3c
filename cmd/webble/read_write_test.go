package main

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/srg/webble/bluetooth"
	"github.com/srg/webble/internal/testutils"
)

type ReadWriteTestSuite struct {
	CommandTestSuite
}

func (s *ReadWriteTestSuite) TestReadCharacteristic() {
	out, err := s.ExecuteCommand("read", hrmAddress, "2a19", "--hex")
	s.Require().NoError(err)
	s.Equal("5a\n", out)

	out, err = s.ExecuteCommand("read", hrmAddress, "2a19")
	s.Require().NoError(err)
	s.Equal("\x5a", out, "values MUST be written raw without --hex")
}

func (s *ReadWriteTestSuite) TestReadWithServiceAndDescriptor() {
	out, err := s.ExecuteCommand("read", hrmName, "2a37", "--service", "180d", "--desc", "2902", "--hex")
	s.Require().NoError(err)
	s.Equal("0000\n", out)
}

func (s *ReadWriteTestSuite) TestLookupFailures() {
	_, err := s.ExecuteCommand("read", hrmAddress, "2a00")
	s.ErrorIs(err, bluetooth.ErrNotFound)
	s.Equal(`characteristic "2a00" not found`, FormatUserError(err))

	_, err = s.ExecuteCommand("read", hrmAddress, "2a19", "--service", "180d")
	s.ErrorIs(err, bluetooth.ErrNotFound, "a characteristic MUST only be found in the given service")

	_, err = s.ExecuteCommand("read", hrmAddress, "2a37", "--desc", "2901")
	s.ErrorIs(err, bluetooth.ErrNotFound)
}

func (s *ReadWriteTestSuite) TestAmbiguousCharacteristicNeedsService() {
	s.fake = testutils.NewFakeNative(testutils.DefaultAdapter())
	s.fake.AddPeripheral(testutils.NewPeripheral("Twin").
		WithAddress("AA:00:00:00:00:03").
		WithService("0000ff10-0000-1000-8000-00805f9b34fb", testutils.Char("0000ff01-0000-1000-8000-00805f9b34fb")).
		WithService("0000ff20-0000-1000-8000-00805f9b34fb", testutils.Char("0000ff01-0000-1000-8000-00805f9b34fb")).
		WithValue("0000ff20-0000-1000-8000-00805f9b34fb", "0000ff01-0000-1000-8000-00805f9b34fb", []byte{0x20}).
		Build())

	_, err := s.ExecuteCommand("read", "Twin", "ff01")
	s.Require().ErrorIs(err, bluetooth.ErrInvalidArgument)
	s.ErrorContains(err, "ff10, ff20")

	out, err := s.ExecuteCommand("read", "Twin", "ff01", "--service", "ff20", "--hex")
	s.Require().NoError(err)
	s.Equal("20\n", out)
}

func (s *ReadWriteTestSuite) TestWriteModes() {
	out, err := s.ExecuteCommand("write", hrmAddress, "2a39", "01:02", "--hex")
	s.Require().NoError(err)
	s.Equal("Wrote 2 bytes\n", out)

	_, err = s.ExecuteCommand("write", hrmAddress, "2a39", "go", "--without-response")
	s.Require().NoError(err)

	_, err = s.ExecuteCommand("write", hrmAddress, "2a37", "0100", "--desc", "2902", "--hex")
	s.Require().NoError(err)

	writes := s.fake.Writes()
	s.Require().Len(writes, 3)
	s.Equal(testutils.WriteRecord{Op: "write_command", Identifier: hrmName, Service: hrService, Characteristic: hrControl, Data: []byte{0x01, 0x02}}, writes[0])
	s.Equal("write_request", writes[1].Op, "--without-response MUST use the unacknowledged native write")
	s.Equal([]byte("go"), writes[1].Data)
	s.Equal("write_descriptor", writes[2].Op)
	s.Equal(hrMeasure, writes[2].Characteristic)
	s.Equal([]byte{0x01, 0x00}, writes[2].Data)
}

func (s *ReadWriteTestSuite) TestWriteThenReadBack() {
	_, err := s.ExecuteCommand("write", hrmAddress, "2a39", "0x7f", "--hex")
	s.Require().NoError(err)

	out, err := s.ExecuteCommand("read", hrmAddress, "2a39", "--hex")
	s.Require().NoError(err)
	s.Equal("7f\n", out)
}

func (s *ReadWriteTestSuite) TestRejectedWrite() {
	s.fake = testutils.NewFakeNative(testutils.DefaultAdapter())
	s.fake.AddPeripheral(testutils.HeartRateMonitor(hrmName, hrmAddress).FailingWrites().Build())

	_, err := s.ExecuteCommand("write", hrmAddress, "2a39", "01", "--hex")
	s.Require().ErrorIs(err, bluetooth.ErrWriteFailed)
	s.Contains(FormatUserError(err), "write rejected by device")
}

func (s *ReadWriteTestSuite) TestArgumentValidation() {
	_, err := s.ExecuteCommand("write", hrmAddress, "2a39", "zz", "--hex")
	s.ErrorContains(err, "invalid hex data")

	_, err = s.ExecuteCommand("write", hrmAddress, "2a37", "01", "--desc", "2902", "--without-response")
	s.ErrorContains(err, "does not apply to descriptors")

	_, err = s.ExecuteCommand("read", hrmAddress, "2a19", "--watch=0s")
	s.ErrorContains(err, "must be positive")

	s.Zero(s.fake.Stats().AdaptersAcquired, "invalid arguments MUST be rejected before touching the adapter")
}

func TestReadWriteTestSuite(t *testing.T) {
	suite.Run(t, new(ReadWriteTestSuite))
}
