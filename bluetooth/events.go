package bluetooth

import "sync"

// EventType names an event dispatched through an EventTarget.
type EventType string

const (
	EventCharacteristicValueChanged EventType = "characteristicvaluechanged"
	EventServiceAdded               EventType = "serviceadded"
	EventAdvertisementReceived      EventType = "advertisementreceived"
	EventGATTServerDisconnected     EventType = "gattserverdisconnected"
	EventAvailabilityChanged        EventType = "availabilitychanged"
	EventScanStart                  EventType = "scanstart"
	EventScanStop                   EventType = "scanstop"
)

// Event carries the objects involved in an event. Only the fields relevant
// to Type are set.
type Event struct {
	Type           EventType
	Device         *Device
	Service        *Service
	Characteristic *Characteristic
	Value          []byte
	Advertisement  *Advertisement
	Available      bool
}

// Listener receives events. Listeners run synchronously on the goroutine or
// native thread that dispatched the event and must not block.
type Listener func(Event)

type listenerEntry struct {
	id uint64
	fn Listener
}

// EventTarget is embedded by every object that dispatches events. The zero
// value is ready to use.
type EventTarget struct {
	mu        sync.Mutex
	nextID    uint64
	listeners map[EventType][]listenerEntry
}

// AddEventListener registers fn for typ and returns a function that removes
// it again. Listeners are called in registration order.
func (t *EventTarget) AddEventListener(typ EventType, fn Listener) (remove func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.listeners == nil {
		t.listeners = make(map[EventType][]listenerEntry)
	}
	t.nextID++
	id := t.nextID
	t.listeners[typ] = append(t.listeners[typ], listenerEntry{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() { t.removeListener(typ, id) })
	}
}

func (t *EventTarget) removeListener(typ EventType, id uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	entries := t.listeners[typ]
	for i, e := range entries {
		if e.id == id {
			t.listeners[typ] = append(entries[:i:i], entries[i+1:]...)
			return
		}
	}
}

// ListenerCount returns the number of listeners registered for typ.
func (t *EventTarget) ListenerCount(typ EventType) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.listeners[typ])
}

// dispatchEvent calls the listeners outside the lock so they may add or
// remove listeners themselves.
func (t *EventTarget) dispatchEvent(e Event) {
	t.mu.Lock()
	entries := append([]listenerEntry(nil), t.listeners[e.Type]...)
	t.mu.Unlock()

	for _, entry := range entries {
		entry.fn(e)
	}
}
