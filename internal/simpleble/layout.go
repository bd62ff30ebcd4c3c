package simpleble

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// LayoutVersion names the SimpleBLE-C release whose struct ABI the offsets
// below reproduce. All offsets live here and nowhere else.
const LayoutVersion = "simpleble-c 0.4"

const (
	// UUIDSize is sizeof(simpleble_uuid_t): 36 characters plus NUL.
	UUIDSize = 37

	// MaxCharacteristics is SIMPLEBLE_CHARACTERISTIC_MAX_COUNT.
	MaxCharacteristics = 16
	// MaxDescriptors is SIMPLEBLE_DESCRIPTOR_MAX_COUNT.
	MaxDescriptors = 16
	// ManufacturerDataCapacity is SIMPLEBLE_MANUFACTURER_DATA_MAX_SIZE.
	ManufacturerDataCapacity = 24

	// MaxServices bounds services_count: every service occupies at least
	// one of the 0xffff ATT handles.
	MaxServices = 0xffff
	// MaxManufacturerDataEntries bounds manufacturer_data_count: an
	// extended advertisement carries at most 254 bytes and every entry
	// needs four of them.
	MaxManufacturerDataEntries = 254 / 4

	DescriptorSize       = UUIDSize
	CharacteristicSize   = 640
	ServiceSize          = 10288
	ManufacturerDataSize = 40

	charDescriptorCountOffset = 40
	charDescriptorsOffset     = 48

	serviceCharacteristicCountOffset = 40
	serviceCharacteristicsOffset     = 48

	manufacturerIDOffset     = 0
	manufacturerLengthOffset = 8
	manufacturerDataOffset   = 16
)

// UUIDSlot is the fixed-size, NUL-padded UUID buffer exchanged with native code.
type UUIDSlot [UUIDSize]byte

// NewUUIDSlot copies uuid into a NUL-terminated slot.
func NewUUIDSlot(uuid string) (*UUIDSlot, error) {
	if len(uuid) > UUIDSize-1 {
		return nil, fmt.Errorf("%w: uuid %q exceeds %d bytes", ErrLayout, uuid, UUIDSize-1)
	}
	var s UUIDSlot
	copy(s[:], uuid)
	return &s, nil
}

func (s *UUIDSlot) String() string {
	return decodeUUID(s[:])
}

// ServiceRecord is a decoded simpleble_service_t.
type ServiceRecord struct {
	UUID            string
	Characteristics []CharacteristicRecord
}

// CharacteristicRecord is a decoded simpleble_characteristic_t.
type CharacteristicRecord struct {
	UUID        string
	Descriptors []string
}

// ManufacturerData is a decoded simpleble_manufacturer_data_t.
type ManufacturerData struct {
	CompanyID uint16
	Data      []byte
}

func decodeUUID(b []byte) string {
	b = b[:UUIDSize-1]
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(bytes.TrimSpace(b))
}

func encodeUUID(dst []byte, uuid string) error {
	if len(uuid) > UUIDSize-1 {
		return fmt.Errorf("%w: uuid %q exceeds %d bytes", ErrLayout, uuid, UUIDSize-1)
	}
	copy(dst[:UUIDSize], uuid)
	return nil
}

// checkCount rejects a native element count that is negative or larger
// than limit before it drives an allocation or a loop.
func checkCount(what string, n, limit int) error {
	if n < 0 || n > limit {
		return fmt.Errorf("%w: %s count %d outside [0, %d]", ErrLayout, what, n, limit)
	}
	return nil
}

// DecodeService decodes a ServiceSize buffer filled by services_get.
func DecodeService(buf []byte) (ServiceRecord, error) {
	if len(buf) < ServiceSize {
		return ServiceRecord{}, fmt.Errorf("%w: service buffer is %d bytes, want %d", ErrLayout, len(buf), ServiceSize)
	}

	rec := ServiceRecord{UUID: decodeUUID(buf)}
	count := binary.LittleEndian.Uint64(buf[serviceCharacteristicCountOffset:])
	if count > MaxCharacteristics {
		return ServiceRecord{}, fmt.Errorf("%w: service %s reports %d characteristics (max %d)", ErrLayout, rec.UUID, count, MaxCharacteristics)
	}

	rec.Characteristics = make([]CharacteristicRecord, 0, count)
	for i := 0; i < int(count); i++ {
		off := serviceCharacteristicsOffset + i*CharacteristicSize
		chr, err := decodeCharacteristic(buf[off : off+CharacteristicSize])
		if err != nil {
			return ServiceRecord{}, fmt.Errorf("service %s characteristic %d: %w", rec.UUID, i, err)
		}
		rec.Characteristics = append(rec.Characteristics, chr)
	}
	return rec, nil
}

func decodeCharacteristic(buf []byte) (CharacteristicRecord, error) {
	rec := CharacteristicRecord{UUID: decodeUUID(buf)}
	count := binary.LittleEndian.Uint64(buf[charDescriptorCountOffset:])
	if count > MaxDescriptors {
		return CharacteristicRecord{}, fmt.Errorf("%w: characteristic %s reports %d descriptors (max %d)", ErrLayout, rec.UUID, count, MaxDescriptors)
	}

	rec.Descriptors = make([]string, 0, count)
	for j := 0; j < int(count); j++ {
		off := charDescriptorsOffset + j*DescriptorSize
		rec.Descriptors = append(rec.Descriptors, decodeUUID(buf[off:off+DescriptorSize]))
	}
	return rec, nil
}

// EncodeService is the inverse of DecodeService. Test doubles use it to
// produce buffers with the native layout.
func EncodeService(rec ServiceRecord) ([]byte, error) {
	if len(rec.Characteristics) > MaxCharacteristics {
		return nil, fmt.Errorf("%w: %d characteristics (max %d)", ErrLayout, len(rec.Characteristics), MaxCharacteristics)
	}

	buf := make([]byte, ServiceSize)
	if err := encodeUUID(buf, rec.UUID); err != nil {
		return nil, err
	}
	binary.LittleEndian.PutUint64(buf[serviceCharacteristicCountOffset:], uint64(len(rec.Characteristics)))

	for i, chr := range rec.Characteristics {
		if len(chr.Descriptors) > MaxDescriptors {
			return nil, fmt.Errorf("%w: characteristic %s has %d descriptors (max %d)", ErrLayout, chr.UUID, len(chr.Descriptors), MaxDescriptors)
		}
		cbuf := buf[serviceCharacteristicsOffset+i*CharacteristicSize:]
		if err := encodeUUID(cbuf, chr.UUID); err != nil {
			return nil, err
		}
		binary.LittleEndian.PutUint64(cbuf[charDescriptorCountOffset:], uint64(len(chr.Descriptors)))
		for j, d := range chr.Descriptors {
			if err := encodeUUID(cbuf[charDescriptorsOffset+j*DescriptorSize:], d); err != nil {
				return nil, err
			}
		}
	}
	return buf, nil
}

// DecodeManufacturerData decodes a ManufacturerDataSize buffer. A length
// larger than the payload capacity is rejected.
func DecodeManufacturerData(buf []byte) (ManufacturerData, error) {
	if len(buf) < ManufacturerDataSize {
		return ManufacturerData{}, fmt.Errorf("%w: manufacturer data buffer is %d bytes, want %d", ErrLayout, len(buf), ManufacturerDataSize)
	}

	md := ManufacturerData{CompanyID: binary.LittleEndian.Uint16(buf[manufacturerIDOffset:])}
	n := binary.LittleEndian.Uint64(buf[manufacturerLengthOffset:])
	if n > ManufacturerDataCapacity {
		return ManufacturerData{}, fmt.Errorf("%w: manufacturer data length %d exceeds %d", ErrLayout, n, ManufacturerDataCapacity)
	}

	md.Data = make([]byte, n)
	copy(md.Data, buf[manufacturerDataOffset:manufacturerDataOffset+int(n)])
	return md, nil
}

// EncodeManufacturerData is the inverse of DecodeManufacturerData.
func EncodeManufacturerData(md ManufacturerData) ([]byte, error) {
	if len(md.Data) > ManufacturerDataCapacity {
		return nil, fmt.Errorf("%w: manufacturer data length %d exceeds %d", ErrLayout, len(md.Data), ManufacturerDataCapacity)
	}
	buf := make([]byte, ManufacturerDataSize)
	binary.LittleEndian.PutUint16(buf[manufacturerIDOffset:], md.CompanyID)
	binary.LittleEndian.PutUint64(buf[manufacturerLengthOffset:], uint64(len(md.Data)))
	copy(buf[manufacturerDataOffset:], md.Data)
	return buf, nil
}
