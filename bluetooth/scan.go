package bluetooth

import (
	"context"
	"errors"
	"iter"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/srg/webble/internal/simpleble"
	"github.com/srg/webble/internal/tracer"
)

// RequestDevice scans for opts.Timeout and returns the first device that
// matches. It fails with ErrNotFound when nothing matched.
func (b *Bluetooth) RequestDevice(ctx context.Context, opts RequestDeviceOptions) (*Device, error) {
	devices, err := b.request(ctx, opts, true)
	if err != nil {
		return nil, err
	}
	return devices[0], nil
}

// RequestDevices scans for opts.Timeout and returns every device that
// matched, in discovery order. It fails with ErrNotFound when nothing
// matched.
func (b *Bluetooth) RequestDevices(ctx context.Context, opts RequestDeviceOptions) ([]*Device, error) {
	return b.request(ctx, opts, false)
}

func (b *Bluetooth) request(ctx context.Context, opts RequestDeviceOptions, single bool) (devices []*Device, err error) {
	match, err := compileMatcher(opts.Filters, opts.Filter, opts.AcceptAllDevices)
	if err != nil {
		return nil, err
	}
	done, err := b.beginScan()
	if err != nil {
		return nil, err
	}
	defer done()

	a, err := b.activeAdapter()
	if err != nil {
		return nil, err
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = b.requestTimeout
	}

	ctx, span := tracer.StartSpan(ctx, "bluetooth.request_device")
	defer func() { tracer.End(span, err) }()

	s := newScanSession(b, a, match)
	s.logger.WithField("timeout", timeout).Info("Requesting device")
	err = s.cycle(ctx, timeout, func(d *Device) bool {
		devices = append(devices, d)
		return !single
	})
	if err != nil {
		return nil, err
	}
	if len(devices) == 0 {
		return nil, &NotFoundError{Resource: "device"}
	}
	s.logger.WithField("matched", len(devices)).Info("Request complete")
	return devices, nil
}

// Scan runs scan cycles of opts.Interval until ctx ends or the consumer
// stops, yielding each matching device once. Cancellation ends the sequence
// without an error. The seen set grows for the lifetime of the scan.
func (b *Bluetooth) Scan(ctx context.Context, opts ScanOptions) iter.Seq2[*Device, error] {
	return func(yield func(*Device, error) bool) {
		match, err := compileMatcher(opts.Filters, opts.Filter, opts.AcceptAllDevices)
		if err != nil {
			yield(nil, err)
			return
		}
		done, err := b.beginScan()
		if err != nil {
			yield(nil, err)
			return
		}
		defer done()

		a, err := b.activeAdapter()
		if err != nil {
			yield(nil, err)
			return
		}

		interval := opts.Interval
		if interval <= 0 {
			interval = b.scanInterval
		}

		s := newScanSession(b, a, match)
		s.logger.WithField("interval", interval).Info("Continuous scan started")
		defer s.logger.WithField("seen", len(s.seen)).Info("Continuous scan finished")

		for {
			stopped := false
			err := s.cycle(ctx, interval, func(d *Device) bool {
				if !yield(d, nil) {
					stopped = true
				}
				return !stopped
			})
			if stopped || ctx.Err() != nil {
				return
			}
			if err != nil {
				yield(nil, err)
				return
			}
		}
	}
}

// scanSession is one discovery session. seen holds the identifiers already
// emitted; two peripherals sharing an identifier are treated as one.
type scanSession struct {
	bt      *Bluetooth
	adapter *simpleble.Adapter
	match   Predicate
	seen    map[string]struct{}
	logger  *logrus.Entry
}

func newScanSession(b *Bluetooth, a *simpleble.Adapter, match Predicate) *scanSession {
	return &scanSession{
		bt:      b,
		adapter: a,
		match:   match,
		seen:    make(map[string]struct{}),
		logger:  b.logger.WithField("adapter", b.Adapter().Identifier),
	}
}

// cycle starts the scan, waits for d or ctx, stops the scan and hands every
// match to emit until emit returns false. The scan is stopped before a
// cancellation is reported.
func (s *scanSession) cycle(ctx context.Context, d time.Duration, emit func(*Device) bool) (err error) {
	ctx, span := tracer.StartSpan(ctx, "bluetooth.scan_cycle")
	defer func() { tracer.End(span, err) }()

	if err := s.adapter.ScanStart(); err != nil {
		return classify("scan start", err, ErrBadResource)
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	var waitErr error
	select {
	case <-timer.C:
	case <-ctx.Done():
		waitErr = ctx.Err()
	case <-s.bt.closing:
		waitErr = ErrClosed
	}

	if err := s.adapter.ScanStop(); err != nil {
		s.logger.WithError(err).Warn("Failed to stop scan")
	}
	if waitErr != nil {
		return waitErr
	}

	n, err := s.adapter.ScanResultsCount()
	if err != nil {
		return classify("scan results", err, ErrBadResource)
	}
	span.SetAttributes(tracer.IntAttr("scan.results", n))

	for i := 0; i < n; i++ {
		if s.bt.closed.Load() {
			return ErrClosed
		}
		p, err := s.adapter.ScanResult(i)
		if err != nil {
			s.logger.WithError(err).WithField("index", i).Warn("Failed to acquire scan result")
			continue
		}
		if d := s.process(p); d != nil && !emit(d) {
			return nil
		}
	}
	if s.bt.closed.Load() {
		return ErrClosed
	}
	return nil
}

// process owns p: it either wraps it into a Device or releases it, on every
// path including a panicking predicate.
func (s *scanSession) process(p *simpleble.Peripheral) *Device {
	keep := false
	defer func() {
		if !keep {
			p.Release()
		}
	}()

	name, err := p.Identifier()
	if err != nil {
		s.logger.WithError(err).Debug("Skipping peripheral without identifier")
		return nil
	}
	if _, dup := s.seen[name]; dup {
		return nil
	}

	info, err := describeNamed(p, name, s.logger)
	if err != nil {
		s.logger.WithError(err).WithField("name", name).Debug("Skipping undecodable peripheral")
		return nil
	}

	fields := logrus.Fields{"name": info.Name, "address": info.Address}
	if !s.match(info.clone()) {
		s.logger.WithFields(fields).Debug("Peripheral did not match")
		return nil
	}

	s.seen[name] = struct{}{}
	keep = true
	d, err := s.bt.track(newDevice(s.bt, p, info))
	if err != nil {
		s.logger.WithFields(fields).Debug("Dropping match, Bluetooth closed")
		return nil
	}
	s.logger.WithFields(fields).Info("Device matched")
	return d
}

func describePeripheral(p *simpleble.Peripheral, log logrus.FieldLogger) (DeviceInfo, error) {
	name, err := p.Identifier()
	if err != nil {
		return DeviceInfo{}, classify("identifier", err, ErrBadResource)
	}
	return describeNamed(p, name, log)
}

// describeNamed fails only when the peripheral itself cannot be described.
// Manufacturer data entries that do not decode are dropped one by one.
func describeNamed(p *simpleble.Peripheral, name string, log logrus.FieldLogger) (DeviceInfo, error) {
	addr, err := p.Address()
	if err != nil {
		return DeviceInfo{}, classify("address", err, ErrBadResource)
	}
	rssi, err := p.RSSI()
	if err != nil {
		return DeviceInfo{}, classify("rssi", err, ErrBadResource)
	}
	entries, err := p.ManufacturerData()
	if errors.Is(err, simpleble.ErrReleased) {
		return DeviceInfo{}, classify("manufacturer data", err, ErrInvalidData)
	}
	if err != nil {
		log.WithError(err).WithField("name", name).Debug("Dropped manufacturer data")
	}

	md := make(map[uint16][]byte, len(entries))
	for _, e := range entries {
		md[e.CompanyID] = e.Data
	}
	return DeviceInfo{Name: name, Address: addr, RSSI: rssi, ManufacturerData: md}, nil
}
