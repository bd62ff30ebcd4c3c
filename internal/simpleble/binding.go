package simpleble

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Lib is the typed front of a Native table. It converts status codes into
// errors, frees every native allocation it decodes and owns the callback
// registry shared by all adapters and peripherals it hands out.
type Lib struct {
	native    Native
	callbacks *registry
	logger    *logrus.Logger
	closer    func() error
}

// New wraps native. A nil logger falls back to logrus.New().
func New(native Native, logger *logrus.Logger) *Lib {
	if logger == nil {
		logger = logrus.New()
	}
	l := &Lib{
		native:    native,
		callbacks: newRegistry(logger),
		logger:    logger,
	}
	native.Bind(dispatcher{lib: l})
	return l
}

// Close unloads the shared library when the Lib was created by Open.
func (l *Lib) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer()
}

// PendingCallbacks reports how many closures are still registered.
func (l *Lib) PendingCallbacks() int {
	return l.callbacks.len()
}

// AdapterCount returns the number of adapters the native stack reports.
func (l *Lib) AdapterCount() int {
	return l.native.AdapterGetCount()
}

// Adapter acquires the adapter at index. The caller owns the returned
// adapter and must Release it.
func (l *Lib) Adapter(index int) (*Adapter, error) {
	h := l.native.AdapterGetHandle(index)
	if h == 0 {
		return nil, fmt.Errorf("%w: adapter %d", ErrInvalidHandle, index)
	}
	return newAdapter(l, h), nil
}

// takeString decodes and frees a native string.
func (l *Lib) takeString(ptr uintptr) string {
	if ptr == 0 {
		return ""
	}
	defer l.native.Free(ptr)
	return l.native.CString(ptr)
}

// takeBytes copies and frees a native buffer.
func (l *Lib) takeBytes(ptr uintptr, n uintptr) []byte {
	if ptr == 0 {
		return []byte{}
	}
	defer l.native.Free(ptr)
	return l.native.CopyBytes(ptr, int(n))
}

func uuidSlots(uuids ...string) ([]*UUIDSlot, error) {
	slots := make([]*UUIDSlot, len(uuids))
	for i, u := range uuids {
		s, err := NewUUIDSlot(u)
		if err != nil {
			return nil, err
		}
		slots[i] = s
	}
	return slots, nil
}
