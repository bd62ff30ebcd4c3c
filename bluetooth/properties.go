package bluetooth

import (
	"strings"

	"github.com/go-ble/ble"
)

// CharacteristicProperties reports what a characteristic supports.
type CharacteristicProperties struct {
	Broadcast                 bool
	Read                      bool
	WriteWithoutResponse      bool
	Write                     bool
	Notify                    bool
	Indicate                  bool
	AuthenticatedSignedWrites bool
	ReliableWrite             bool
}

// assumedProperties is what every characteristic reports: the pinned
// SimpleBLE struct layout carries no property bits.
const assumedProperties = ble.CharRead | ble.CharWriteNR | ble.CharWrite | ble.CharNotify | ble.CharIndicate | ble.CharExtended

func propertiesFromFlags(p ble.Property) CharacteristicProperties {
	return CharacteristicProperties{
		Broadcast:                 p&ble.CharBroadcast != 0,
		Read:                      p&ble.CharRead != 0,
		WriteWithoutResponse:      p&ble.CharWriteNR != 0,
		Write:                     p&ble.CharWrite != 0,
		Notify:                    p&ble.CharNotify != 0,
		Indicate:                  p&ble.CharIndicate != 0,
		AuthenticatedSignedWrites: p&ble.CharSignedWrite != 0,
		ReliableWrite:             p&ble.CharExtended != 0,
	}
}

// Flags returns the properties as GATT property bits.
func (p CharacteristicProperties) Flags() ble.Property {
	var f ble.Property
	set := func(on bool, bit ble.Property) {
		if on {
			f |= bit
		}
	}
	set(p.Broadcast, ble.CharBroadcast)
	set(p.Read, ble.CharRead)
	set(p.WriteWithoutResponse, ble.CharWriteNR)
	set(p.Write, ble.CharWrite)
	set(p.Notify, ble.CharNotify)
	set(p.Indicate, ble.CharIndicate)
	set(p.AuthenticatedSignedWrites, ble.CharSignedWrite)
	set(p.ReliableWrite, ble.CharExtended)
	return f
}

// String lists the supported properties, comma separated.
func (p CharacteristicProperties) String() string {
	var names []string
	for _, e := range []struct {
		on   bool
		name string
	}{
		{p.Broadcast, "broadcast"},
		{p.Read, "read"},
		{p.WriteWithoutResponse, "writeWithoutResponse"},
		{p.Write, "write"},
		{p.Notify, "notify"},
		{p.Indicate, "indicate"},
		{p.AuthenticatedSignedWrites, "authenticatedSignedWrites"},
		{p.ReliableWrite, "reliableWrite"},
	} {
		if e.on {
			names = append(names, e.name)
		}
	}
	return strings.Join(names, ",")
}
