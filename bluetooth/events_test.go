package bluetooth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/srg/webble/bluetooth"
)

func TestEventTargetListeners(t *testing.T) {
	var target bluetooth.EventTarget
	var calls []string

	removeA := target.AddEventListener(bluetooth.EventScanStart, func(bluetooth.Event) { calls = append(calls, "a") })
	target.AddEventListener(bluetooth.EventScanStart, func(bluetooth.Event) { calls = append(calls, "b") })
	target.AddEventListener(bluetooth.EventScanStop, func(bluetooth.Event) { calls = append(calls, "stop") })
	assert.Equal(t, 2, target.ListenerCount(bluetooth.EventScanStart))

	removeA()
	removeA()
	assert.Equal(t, 1, target.ListenerCount(bluetooth.EventScanStart), "removing twice MUST only remove once")
	assert.Equal(t, 1, target.ListenerCount(bluetooth.EventScanStop))
	assert.Zero(t, target.ListenerCount(bluetooth.EventAdvertisementReceived))
	assert.Empty(t, calls)
}
