package simpleble_test

import (
	"encoding/binary"
	"testing"

	"github.com/srg/webble/internal/simpleble"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeServiceReadsEveryDescriptorOfEveryCharacteristic(t *testing.T) {
	rec := simpleble.ServiceRecord{
		UUID: "0000180d-0000-1000-8000-00805f9b34fb",
		Characteristics: []simpleble.CharacteristicRecord{
			{UUID: "00002a37-0000-1000-8000-00805f9b34fb", Descriptors: []string{"00002902-0000-1000-8000-00805f9b34fb", "00002901-0000-1000-8000-00805f9b34fb"}},
			{UUID: "00002a38-0000-1000-8000-00805f9b34fb", Descriptors: []string{}},
			{UUID: "00002a39-0000-1000-8000-00805f9b34fb", Descriptors: []string{"00002904-0000-1000-8000-00805f9b34fb"}},
		},
	}

	buf, err := simpleble.EncodeService(rec)
	require.NoError(t, err)
	require.Len(t, buf, simpleble.ServiceSize)

	// Fixed ABI offsets: count at 40, characteristics from 48 with a 640 byte stride,
	// descriptors from 48 within each characteristic with a 37 byte stride.
	assert.Equal(t, uint64(3), binary.LittleEndian.Uint64(buf[40:]))
	second := 48 + 640
	assert.Equal(t, "00002a38-0000-1000-8000-00805f9b34fb", string(buf[second:second+36]))
	thirdDesc := 48 + 2*640 + 48
	assert.Equal(t, "00002904-0000-1000-8000-00805f9b34fb", string(buf[thirdDesc:thirdDesc+36]))

	got, err := simpleble.DecodeService(buf)
	require.NoError(t, err)
	assert.Equal(t, rec, got)
}

func TestDecodeServiceRejectsImplausibleCounts(t *testing.T) {
	buf := make([]byte, simpleble.ServiceSize)
	copy(buf, "0000180d-0000-1000-8000-00805f9b34fb")
	binary.LittleEndian.PutUint64(buf[40:], simpleble.MaxCharacteristics+1)

	_, err := simpleble.DecodeService(buf)
	assert.ErrorIs(t, err, simpleble.ErrLayout, "a characteristic count beyond the array capacity MUST be rejected")

	binary.LittleEndian.PutUint64(buf[40:], 1)
	binary.LittleEndian.PutUint64(buf[48+40:], 1<<40)
	_, err = simpleble.DecodeService(buf)
	assert.ErrorIs(t, err, simpleble.ErrLayout, "a descriptor count beyond the array capacity MUST be rejected")

	_, err = simpleble.DecodeService(buf[:640])
	assert.ErrorIs(t, err, simpleble.ErrLayout, "a buffer smaller than the service struct MUST be rejected")
}

func TestDecodeManufacturerData(t *testing.T) {
	t.Run("decodes company and payload", func(t *testing.T) {
		buf := make([]byte, simpleble.ManufacturerDataSize)
		binary.LittleEndian.PutUint16(buf[0:], 0x004c)
		binary.LittleEndian.PutUint64(buf[8:], 3)
		copy(buf[16:], []byte{0x02, 0x15, 0xff})

		md, err := simpleble.DecodeManufacturerData(buf)
		require.NoError(t, err)
		assert.Equal(t, uint16(0x004c), md.CompanyID)
		assert.Equal(t, []byte{0x02, 0x15, 0xff}, md.Data)
	})

	t.Run("rejects length beyond capacity", func(t *testing.T) {
		buf := make([]byte, simpleble.ManufacturerDataSize)
		binary.LittleEndian.PutUint64(buf[8:], simpleble.ManufacturerDataCapacity+1)

		_, err := simpleble.DecodeManufacturerData(buf)
		assert.ErrorIs(t, err, simpleble.ErrLayout)
	})

	t.Run("encoder refuses oversized payload", func(t *testing.T) {
		_, err := simpleble.EncodeManufacturerData(simpleble.ManufacturerData{Data: make([]byte, 25)})
		assert.ErrorIs(t, err, simpleble.ErrLayout)
	})
}

func TestUUIDSlot(t *testing.T) {
	s, err := simpleble.NewUUIDSlot("0000180d-0000-1000-8000-00805f9b34fb")
	require.NoError(t, err)
	assert.Equal(t, byte(0), s[36], "slot MUST stay NUL terminated")
	assert.Equal(t, "0000180d-0000-1000-8000-00805f9b34fb", s.String())

	_, err = simpleble.NewUUIDSlot("0000180d-0000-1000-8000-00805f9b34fb-extra")
	assert.ErrorIs(t, err, simpleble.ErrLayout)
}
