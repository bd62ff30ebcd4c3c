// Package gattfmt decodes the values of well-known GATT descriptors for
// display.
package gattfmt

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/srg/webble/internal/bleuuid"
)

// Well-known GATT descriptor UUIDs (16-bit short form)
const (
	DescriptorExtendedProperties = "2900"
	DescriptorUserDescription    = "2901"
	DescriptorClientConfig       = "2902"
	DescriptorServerConfig       = "2903"
	DescriptorPresentationFormat = "2904"
	DescriptorValidRange         = "2906"
)

var ErrMalformed = errors.New("malformed descriptor value")

// ExtendedProperties is the Characteristic Extended Properties descriptor (0x2900).
type ExtendedProperties struct {
	ReliableWrite       bool
	WritableAuxiliaries bool
}

func (p ExtendedProperties) String() string {
	return fmt.Sprintf("reliable write %s, writable auxiliaries %s", onOff(p.ReliableWrite), onOff(p.WritableAuxiliaries))
}

// ClientConfig is the Client Characteristic Configuration descriptor (0x2902).
type ClientConfig struct {
	Notifications bool
	Indications   bool
}

func (c ClientConfig) String() string {
	return fmt.Sprintf("notifications %s, indications %s", onOff(c.Notifications), onOff(c.Indications))
}

// ServerConfig is the Server Characteristic Configuration descriptor (0x2903).
type ServerConfig struct {
	Broadcasts bool
}

func (c ServerConfig) String() string {
	return "broadcasts " + onOff(c.Broadcasts)
}

// PresentationFormat is the Characteristic Presentation Format descriptor
// (0x2904): Format(1), Exponent(1), Unit(2), Namespace(1), Description(2).
type PresentationFormat struct {
	Format      uint8
	Exponent    int8
	Unit        uint16
	Namespace   uint8
	Description uint16
}

func (f PresentationFormat) String() string {
	return fmt.Sprintf("format 0x%02x, exponent %d, unit 0x%04x", f.Format, f.Exponent, f.Unit)
}

// ValidRange is the Valid Range descriptor (0x2906). The value is split in
// half; an odd extra byte goes to Max.
type ValidRange struct {
	Min []byte
	Max []byte
}

func (r ValidRange) String() string {
	return fmt.Sprintf("min %s, max %s", hex.EncodeToString(r.Min), hex.EncodeToString(r.Max))
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func flags16(data []byte, what string) (uint16, error) {
	if len(data) != 2 {
		return 0, fmt.Errorf("%w: %s must be 2 bytes, got %d", ErrMalformed, what, len(data))
	}
	return binary.LittleEndian.Uint16(data), nil
}

// Decode parses a descriptor value by UUID. It returns (nil, nil) for
// descriptors it does not know.
func Decode(uuid string, data []byte) (any, error) {
	switch bleuuid.Short(uuid) {
	case DescriptorExtendedProperties:
		v, err := flags16(data, "extended properties")
		if err != nil {
			return nil, err
		}
		return ExtendedProperties{ReliableWrite: v&0x0001 != 0, WritableAuxiliaries: v&0x0002 != 0}, nil

	case DescriptorUserDescription:
		s := strings.TrimRight(string(data), "\x00")
		if !utf8.ValidString(s) {
			return nil, fmt.Errorf("%w: user description is not UTF-8", ErrMalformed)
		}
		return s, nil

	case DescriptorClientConfig:
		v, err := flags16(data, "client config")
		if err != nil {
			return nil, err
		}
		return ClientConfig{Notifications: v&0x0001 != 0, Indications: v&0x0002 != 0}, nil

	case DescriptorServerConfig:
		v, err := flags16(data, "server config")
		if err != nil {
			return nil, err
		}
		return ServerConfig{Broadcasts: v&0x0001 != 0}, nil

	case DescriptorPresentationFormat:
		if len(data) != 7 {
			return nil, fmt.Errorf("%w: presentation format must be 7 bytes, got %d", ErrMalformed, len(data))
		}
		return PresentationFormat{
			Format:      data[0],
			Exponent:    int8(data[1]),
			Unit:        binary.LittleEndian.Uint16(data[2:4]),
			Namespace:   data[4],
			Description: binary.LittleEndian.Uint16(data[5:7]),
		}, nil

	case DescriptorValidRange:
		if len(data) < 2 {
			return nil, fmt.Errorf("%w: valid range needs at least 2 bytes, got %d", ErrMalformed, len(data))
		}
		mid := len(data) / 2
		return ValidRange{
			Min: append([]byte(nil), data[:mid]...),
			Max: append([]byte(nil), data[mid:]...),
		}, nil
	}
	return nil, nil
}

// Describe renders the decoded value, or "" when the descriptor is unknown
// or its value does not decode.
func Describe(uuid string, data []byte) string {
	v, err := Decode(uuid, data)
	if err != nil || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return fmt.Sprintf("%q", s)
	}
	return fmt.Sprint(v)
}
