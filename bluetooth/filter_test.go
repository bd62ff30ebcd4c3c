package bluetooth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/srg/webble/bluetooth"
)

func TestMatchFilters(t *testing.T) {
	info := bluetooth.DeviceInfo{
		Name:    "HRM-Pro",
		Address: "02:02:02:02:02:02",
		ManufacturerData: map[uint16][]byte{
			0x004c: {0x02, 0x15, 0xaa},
			0x0059: {0x01},
		},
	}

	tests := []struct {
		name    string
		filters []bluetooth.ScanFilter
		want    bool
	}{
		{"exact name", []bluetooth.ScanFilter{{Name: "HRM-Pro"}}, true},
		{"wrong name", []bluetooth.ScanFilter{{Name: "HRM"}}, false},
		{"prefix", []bluetooth.ScanFilter{{NamePrefix: "HRM"}}, true},
		{"second clause matches", []bluetooth.ScanFilter{{Name: "Thermo"}, {NamePrefix: "HRM-"}}, true},
		{"clause needs every field", []bluetooth.ScanFilter{{NamePrefix: "HRM", ManufacturerData: []bluetooth.ManufacturerDataFilter{{CompanyIdentifier: 0x0001}}}}, false},
		{"company presence", []bluetooth.ScanFilter{{ManufacturerData: []bluetooth.ManufacturerDataFilter{{CompanyIdentifier: 0x0059}}}}, true},
		{"any manufacturer entry", []bluetooth.ScanFilter{{ManufacturerData: []bluetooth.ManufacturerDataFilter{
			{CompanyIdentifier: 0x0001},
			{CompanyIdentifier: 0x004c, DataPrefix: []byte{0x02, 0x15}},
		}}}, true},
		{"prefix mismatch", []bluetooth.ScanFilter{{ManufacturerData: []bluetooth.ManufacturerDataFilter{{CompanyIdentifier: 0x004c, DataPrefix: []byte{0x03}}}}}, false},
		{"prefix longer than data", []bluetooth.ScanFilter{{ManufacturerData: []bluetooth.ManufacturerDataFilter{{CompanyIdentifier: 0x0059, DataPrefix: []byte{0x01, 0x02}}}}}, false},
		{"masked prefix", []bluetooth.ScanFilter{{ManufacturerData: []bluetooth.ManufacturerDataFilter{
			{CompanyIdentifier: 0x004c, DataPrefix: []byte{0x02, 0x10}, Mask: []byte{0xff, 0xf0}},
		}}}, true},
		{"no clauses", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, bluetooth.MatchFilters(tt.filters, info))
		})
	}
}

func TestManufacturerDataFilterWithoutData(t *testing.T) {
	f := bluetooth.ManufacturerDataFilter{CompanyIdentifier: 0x004c, DataPrefix: []byte{0x02}}
	assert.False(t, f.Matches(nil), "a missing company MUST NOT match")
	assert.False(t, f.Matches(map[uint16][]byte{0x004c: {}}), "empty data MUST NOT match a non-empty prefix")
}
