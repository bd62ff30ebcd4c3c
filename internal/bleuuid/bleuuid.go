// Package bleuuid canonicalizes Bluetooth UUIDs so that lookups compare one
// spelling: the lowercase, dashed 128-bit form SimpleBLE reports.
package bleuuid

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-ble/ble"
)

// BaseSuffix is the tail of the Bluetooth base UUID that 16- and 32-bit
// aliases expand onto.
const BaseSuffix = "-0000-1000-8000-00805f9b34fb"

var (
	ErrEmpty   = errors.New("uuid is empty")
	ErrInvalid = errors.New("uuid is invalid")
)

// Canonical returns the lowercase 36-character form of uuid. It accepts
// 16-bit ("180d", "0x180D"), 32-bit ("0000180d") and 128-bit (dashed or
// not) spellings.
func Canonical(uuid string) (string, error) {
	s := strings.TrimSpace(uuid)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if s == "" {
		return "", ErrEmpty
	}

	if len(s) == 8 && !strings.Contains(s, "-") {
		v, err := strconv.ParseUint(s, 16, 32)
		if err != nil {
			return "", fmt.Errorf("%w: %q", ErrInvalid, uuid)
		}
		return fmt.Sprintf("%08x%s", v, BaseSuffix), nil
	}

	u, err := ble.Parse(s)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrInvalid, uuid, err)
	}

	// go-ble keeps UUIDs little-endian.
	b := make([]byte, len(u))
	for i := range u {
		b[len(u)-1-i] = u[i]
	}

	if len(b) == 2 {
		return "0000" + hex.EncodeToString(b) + BaseSuffix, nil
	}
	if len(b) != 16 {
		return "", fmt.Errorf("%w: %q", ErrInvalid, uuid)
	}
	h := hex.EncodeToString(b)
	return h[0:8] + "-" + h[8:12] + "-" + h[12:16] + "-" + h[16:20] + "-" + h[20:32], nil
}

// MustCanonical is Canonical for literals known to be valid.
func MustCanonical(uuid string) string {
	c, err := Canonical(uuid)
	if err != nil {
		panic(err)
	}
	return c
}

// Equal reports whether a and b spell the same UUID. Invalid spellings
// compare case-insensitively as plain strings.
func Equal(a, b string) bool {
	ca, errA := Canonical(a)
	cb, errB := Canonical(b)
	if errA != nil || errB != nil {
		return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
	}
	return ca == cb
}

// Short returns the 16-bit alias of uuid when it sits on the base UUID, and
// the canonical form otherwise.
func Short(uuid string) string {
	c, err := Canonical(uuid)
	if err != nil {
		return uuid
	}
	if strings.HasPrefix(c, "0000") && strings.HasSuffix(c, BaseSuffix) {
		return c[4:8]
	}
	return c
}
