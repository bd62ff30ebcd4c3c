package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/srg/webble/bluetooth"
	"github.com/srg/webble/internal/testutils"
)

type InspectTestSuite struct {
	CommandTestSuite
}

func (s *InspectTestSuite) TestTextTreeWithValues() {
	out, err := s.ExecuteCommand("inspect", hrmAddress, "--read")
	s.Require().NoError(err)

	testutils.NewTextAsserter(s.T()).Assert(out, `
Device HRM-1 (11:22:33:44:55:66)
  Service 180d
    Characteristic 2a37 [read,writeWithoutResponse,write,notify,indicate,reliableWrite]
      value: 0048
      Descriptor 2902 value: 0000 (notifications off, indications off)
    Characteristic 2a39 [read,writeWithoutResponse,write,notify,indicate,reliableWrite]
      value: error: read 00002a39-0000-1000-8000-00805f9b34fb: bad resource
  Service 180f
    Characteristic 2a19 [read,writeWithoutResponse,write,notify,indicate,reliableWrite]
      value: 5a
`)
}

func (s *InspectTestSuite) TestTextTreeWithoutReads() {
	out, err := s.ExecuteCommand("inspect", hrmName)
	s.Require().NoError(err, "a device MUST be found by its advertised name too")

	s.NotContains(out, "value:", "values MUST only be read with --read")
	s.Contains(out, "Descriptor 2902\n")
}

func (s *InspectTestSuite) TestJSONKeepsDiscoveryOrder() {
	out, err := s.ExecuteCommand("inspect", hrmAddress, "--read", "--format", "json")
	s.Require().NoError(err)

	testutils.NewJSONAsserter(s.T()).Assert(out, `{
		"device": {"name": "HRM-1", "address": "11:22:33:44:55:66"},
		"services": {
			"0000180d-0000-1000-8000-00805f9b34fb": {
				"characteristics": {
					"00002a37-0000-1000-8000-00805f9b34fb": {
						"properties": ["read", "writeWithoutResponse", "write", "notify", "indicate", "reliableWrite"],
						"value": "0048",
						"descriptors": {"00002902-0000-1000-8000-00805f9b34fb": "0000"}
					},
					"00002a39-0000-1000-8000-00805f9b34fb": {
						"error": "<<PRESENCE>>",
						"descriptors": {}
					}
				}
			},
			"0000180f-0000-1000-8000-00805f9b34fb": {
				"characteristics": {
					"00002a19-0000-1000-8000-00805f9b34fb": {"value": "5a"}
				}
			}
		}
	}`)

	s.Less(strings.Index(out, "0000180d"), strings.Index(out, "0000180f"), "services MUST be listed in discovery order")
}

func (s *InspectTestSuite) TestUnknownDeviceIsNotFound() {
	_, err := s.ExecuteCommand("inspect", "00:00:00:00:00:99")
	s.Require().ErrorIs(err, bluetooth.ErrNotFound)
	s.Equal("no matching device found; make sure it is powered on and advertising", FormatUserError(err))
}

func (s *InspectTestSuite) TestRefusedConnection() {
	s.fake = testutils.NewFakeNative(testutils.DefaultAdapter())
	s.fake.AddPeripheral(testutils.NewPeripheral("Locked").WithAddress("AA:00:00:00:00:02").FailingConnect().Build())

	_, err := s.ExecuteCommand("inspect", "Locked")
	s.Require().ErrorIs(err, bluetooth.ErrConnectionRefused)
	s.Equal("device refused the connection", FormatUserError(err))
}

func TestInspectTestSuite(t *testing.T) {
	suite.Run(t, new(InspectTestSuite))
}
