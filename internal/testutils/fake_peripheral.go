package testutils

import (
	"github.com/srg/webble/internal/simpleble"
)

// FakePeripheral is the state FakeNative keeps for one remote device.
// Values holds characteristic and descriptor contents keyed by valueKey.
type FakePeripheral struct {
	Identifier       string
	Address          string
	RSSI             int16
	Connectable      bool
	Paired           bool
	ManufacturerData []simpleble.ManufacturerData
	Services         []simpleble.ServiceRecord
	Values           map[string][]byte

	FailConnect   bool
	FailReads     bool
	FailWrites    bool
	FailSubscribe bool

	connected bool
}

func valueKey(service, characteristic, descriptor string) string {
	if descriptor == "" {
		return service + "/" + characteristic
	}
	return service + "/" + characteristic + "/" + descriptor
}

// PeripheralBuilder assembles a FakePeripheral.
type PeripheralBuilder struct {
	p *FakePeripheral
}

// NewPeripheral starts a connectable peripheral whose identifier doubles as
// its advertised name.
func NewPeripheral(identifier string) *PeripheralBuilder {
	return &PeripheralBuilder{p: &FakePeripheral{
		Identifier:  identifier,
		RSSI:        -60,
		Connectable: true,
		Values:      make(map[string][]byte),
	}}
}

func (b *PeripheralBuilder) WithAddress(address string) *PeripheralBuilder {
	b.p.Address = address
	return b
}

func (b *PeripheralBuilder) WithRSSI(rssi int16) *PeripheralBuilder {
	b.p.RSSI = rssi
	return b
}

func (b *PeripheralBuilder) Paired() *PeripheralBuilder {
	b.p.Paired = true
	return b
}

func (b *PeripheralBuilder) WithManufacturerData(companyID uint16, data []byte) *PeripheralBuilder {
	b.p.ManufacturerData = append(b.p.ManufacturerData, simpleble.ManufacturerData{CompanyID: companyID, Data: data})
	return b
}

// WithService adds a service. Use Char to describe its characteristics.
func (b *PeripheralBuilder) WithService(uuid string, chars ...simpleble.CharacteristicRecord) *PeripheralBuilder {
	b.p.Services = append(b.p.Services, simpleble.ServiceRecord{UUID: uuid, Characteristics: chars})
	return b
}

// WithValue seeds the value returned by a characteristic read.
func (b *PeripheralBuilder) WithValue(service, characteristic string, value []byte) *PeripheralBuilder {
	b.p.Values[valueKey(service, characteristic, "")] = value
	return b
}

// WithDescriptorValue seeds the value returned by a descriptor read.
func (b *PeripheralBuilder) WithDescriptorValue(service, characteristic, descriptor string, value []byte) *PeripheralBuilder {
	b.p.Values[valueKey(service, characteristic, descriptor)] = value
	return b
}

func (b *PeripheralBuilder) FailingConnect() *PeripheralBuilder {
	b.p.FailConnect = true
	return b
}

func (b *PeripheralBuilder) FailingReads() *PeripheralBuilder {
	b.p.FailReads = true
	return b
}

func (b *PeripheralBuilder) FailingWrites() *PeripheralBuilder {
	b.p.FailWrites = true
	return b
}

func (b *PeripheralBuilder) FailingSubscribe() *PeripheralBuilder {
	b.p.FailSubscribe = true
	return b
}

func (b *PeripheralBuilder) Build() *FakePeripheral {
	if b.p.Address == "" {
		b.p.Address = "00:00:00:00:00:00"
	}
	return b.p
}

// Char describes a characteristic and its descriptors for WithService.
func Char(uuid string, descriptors ...string) simpleble.CharacteristicRecord {
	if descriptors == nil {
		descriptors = []string{}
	}
	return simpleble.CharacteristicRecord{UUID: uuid, Descriptors: descriptors}
}
