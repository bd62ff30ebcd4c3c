package bluetooth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/srg/webble/internal/bleuuid"
	"github.com/srg/webble/internal/groutine"
	"github.com/srg/webble/internal/simpleble"
	"github.com/srg/webble/internal/tracer"
)

// Server is the GATT server of a Device.
type Server struct {
	device    *Device
	connected atomic.Bool
	connectMu sync.Mutex
}

func newServer(d *Device) *Server {
	return &Server{device: d}
}

func (s *Server) Device() *Device {
	return s.device
}

func (s *Server) Connected() bool {
	return s.connected.Load()
}

// Connect connects to the device. Connecting an already connected server
// succeeds immediately. When ctx ends first Connect returns ctx.Err() and a
// connection that completes later is torn down again. Closing the device
// meanwhile is safe: the peripheral handle is released only once the
// native connect has returned.
func (s *Server) Connect(ctx context.Context) (err error) {
	s.connectMu.Lock()
	defer s.connectMu.Unlock()

	if s.connected.Load() {
		return nil
	}

	d := s.device
	ctx, span := tracer.StartSpan(ctx, "gatt.connect", deviceAttr(d))
	defer func() { tracer.End(span, err) }()

	if timeout := d.bt.connectTimeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	logger := d.logger.WithField("device", d.ID())
	logger.Debug("Connecting")

	err = groutine.Run(ctx, "gatt-connect", d.peripheral.Connect, func(err error) {
		if err != nil {
			return
		}
		if err := d.peripheral.Disconnect(); err != nil && !errors.Is(err, simpleble.ErrReleased) {
			logger.WithError(err).Warn("Failed to drop abandoned connection")
		}
	})
	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		return err
	}
	if err != nil {
		logger.WithError(err).Debug("Connect failed")
		return &ConnectionError{State: ConnectionRefused, Msg: err.Error()}
	}

	if err := d.peripheral.OnDisconnected(func() { s.setConnected(false) }); err != nil {
		logger.WithError(err).Warn("Failed to register disconnect callback")
	}
	s.setConnected(true)
	logger.Info("Connected")
	return nil
}

// Disconnect disconnects the device. The server is considered disconnected
// afterwards even when the native call fails.
func (s *Server) Disconnect() error {
	s.connectMu.Lock()
	defer s.connectMu.Unlock()

	if !s.connected.Load() {
		return nil
	}
	err := s.device.peripheral.Disconnect()
	s.setConnected(false)
	return classify("disconnect", err, ErrBadResource)
}

// setConnected is the only writer of the connected flag. A transition to
// false dispatches gattserverdisconnected exactly once, whether it came
// from Disconnect or from the native callback.
func (s *Server) setConnected(v bool) {
	if s.connected.Swap(v) == v || v {
		return
	}
	d := s.device
	d.logger.WithField("device", d.ID()).Info("Disconnected")
	d.dispatchEvent(Event{Type: EventGATTServerDisconnected, Device: d})
}

func (s *Server) ensureConnected() error {
	if !s.connected.Load() {
		return ErrNotConnected
	}
	return nil
}

// PrimaryServices returns the device's services, or only those matching
// uuid when it is not empty.
func (s *Server) PrimaryServices(uuid string) ([]*Service, error) {
	if err := s.ensureConnected(); err != nil {
		return nil, err
	}
	want, err := canonicalFilter(uuid)
	if err != nil {
		return nil, err
	}

	records, err := s.device.peripheral.Services()
	if err != nil {
		return nil, classify("services", err, ErrBadResource)
	}

	var services []*Service
	for _, rec := range records {
		if want != "" && !bleuuid.Equal(rec.UUID, want) {
			continue
		}
		services = append(services, newService(s.device, rec))
	}
	return services, nil
}

// PrimaryService returns the service with the given UUID.
func (s *Server) PrimaryService(uuid string) (*Service, error) {
	if err := s.ensureConnected(); err != nil {
		return nil, err
	}
	if uuid == "" {
		return nil, fmt.Errorf("%w: service uuid is required", ErrInvalidArgument)
	}
	services, err := s.PrimaryServices(uuid)
	if err != nil {
		return nil, err
	}
	if len(services) == 0 {
		return nil, &NotFoundError{Resource: "service", UUIDs: []string{uuid}}
	}
	return services[0], nil
}

// canonicalFilter normalizes an optional UUID filter.
func canonicalFilter(uuid string) (string, error) {
	if uuid == "" {
		return "", nil
	}
	c, err := bleuuid.Canonical(uuid)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	return c, nil
}
