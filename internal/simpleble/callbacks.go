package simpleble

import (
	"sync/atomic"

	"github.com/cornelk/hashmap"
	"github.com/sirupsen/logrus"
)

// callback holds the Go closure behind one native registration. Exactly one
// of the fields is set, matching the native callback signature it serves.
type callback struct {
	onEvent  func()
	onResult func(peripheral Handle)
	onValue  func(service, characteristic string, data []byte)
}

// registry maps userdata tokens to closures. Native code only ever sees the
// token, so a closure stays reachable for as long as it is registered here.
type registry struct {
	next    atomic.Uint64
	entries *hashmap.Map[uintptr, *callback]
	logger  *logrus.Logger
}

func newRegistry(logger *logrus.Logger) *registry {
	return &registry{
		entries: hashmap.New[uintptr, *callback](),
		logger:  logger,
	}
}

// add stores cb and returns its token. Tokens start at 1 so that a NULL
// userdata is never mistaken for a registration.
func (r *registry) add(cb *callback) uintptr {
	token := uintptr(r.next.Add(1))
	r.entries.Set(token, cb)
	return token
}

func (r *registry) remove(tokens ...uintptr) {
	for _, t := range tokens {
		if t != 0 {
			r.entries.Del(t)
		}
	}
}

func (r *registry) len() int {
	return r.entries.Len()
}

func (r *registry) lookup(token uintptr) *callback {
	cb, ok := r.entries.Get(token)
	if !ok {
		r.logger.WithField("token", token).Debug("Dropping native callback for unregistered token")
		return nil
	}
	return cb
}

// dispatcher adapts the registry to the Dispatcher interface handed to Native.
type dispatcher struct {
	lib *Lib
}

func (d dispatcher) OnAdapterEvent(_ Handle, userdata uintptr) {
	if cb := d.lib.callbacks.lookup(userdata); cb != nil && cb.onEvent != nil {
		cb.onEvent()
	}
}

func (d dispatcher) OnScanResult(_ Handle, peripheral Handle, userdata uintptr) {
	cb := d.lib.callbacks.lookup(userdata)
	if cb == nil || cb.onResult == nil {
		// Nobody will take ownership of the handle.
		if peripheral != 0 {
			d.lib.native.PeripheralReleaseHandle(peripheral)
		}
		return
	}
	cb.onResult(peripheral)
}

func (d dispatcher) OnPeripheralEvent(_ Handle, userdata uintptr) {
	if cb := d.lib.callbacks.lookup(userdata); cb != nil && cb.onEvent != nil {
		cb.onEvent()
	}
}

func (d dispatcher) OnValue(service, characteristic string, data []byte, userdata uintptr) {
	if cb := d.lib.callbacks.lookup(userdata); cb != nil && cb.onValue != nil {
		cb.onValue(service, characteristic, data)
	}
}
