package bluetooth

import (
	"fmt"
	"strings"
)

// compileMatcher validates the selection options and returns the predicate
// the scan engine evaluates.
func compileMatcher(filters []ScanFilter, filter Predicate, acceptAll bool) (Predicate, error) {
	given := 0
	if filters != nil {
		given++
	}
	if filter != nil {
		given++
	}
	if acceptAll {
		given++
	}
	switch {
	case given == 0:
		return nil, fmt.Errorf("%w: filter or filters must be given", ErrInvalidArgument)
	case given > 1:
		return nil, fmt.Errorf("%w: filters, filter and acceptAllDevices are mutually exclusive", ErrInvalidArgument)
	case acceptAll:
		return func(DeviceInfo) bool { return true }, nil
	case filter != nil:
		return filter, nil
	}

	if len(filters) == 0 {
		return nil, fmt.Errorf("%w: filters must not be empty", ErrInvalidArgument)
	}
	for i, f := range filters {
		if err := f.validate(); err != nil {
			return nil, fmt.Errorf("filters[%d]: %w", i, err)
		}
	}
	clauses := append([]ScanFilter(nil), filters...)
	return func(info DeviceInfo) bool {
		return MatchFilters(clauses, info)
	}, nil
}

// MatchFilters evaluates the clauses in order and reports whether any of
// them matches info.
func MatchFilters(filters []ScanFilter, info DeviceInfo) bool {
	for _, f := range filters {
		if f.Matches(info) {
			return true
		}
	}
	return false
}

func (f ScanFilter) validate() error {
	if len(f.Services) > 0 {
		return fmt.Errorf("%w: filtering by services", ErrUnsupported)
	}
	if f.Name == "" && f.NamePrefix == "" && len(f.ManufacturerData) == 0 {
		return fmt.Errorf("%w: empty filter clause", ErrInvalidArgument)
	}
	for _, m := range f.ManufacturerData {
		if m.Mask != nil && len(m.Mask) != len(m.DataPrefix) {
			return fmt.Errorf("%w: manufacturer data mask for company 0x%04x must match the prefix length", ErrInvalidArgument, m.CompanyIdentifier)
		}
	}
	return nil
}

// Matches reports whether every predicate set on the clause holds. The
// manufacturer data predicate holds when any of its entries matches.
func (f ScanFilter) Matches(info DeviceInfo) bool {
	if f.Name != "" && f.Name != info.Name {
		return false
	}
	if f.NamePrefix != "" && !strings.HasPrefix(info.Name, f.NamePrefix) {
		return false
	}
	if len(f.ManufacturerData) > 0 && !matchManufacturerData(f.ManufacturerData, info.ManufacturerData) {
		return false
	}
	return true
}

func matchManufacturerData(filters []ManufacturerDataFilter, data map[uint16][]byte) bool {
	for _, m := range filters {
		if m.Matches(data) {
			return true
		}
	}
	return false
}

// Matches reports whether data carries the company and, when a prefix is
// set, starts with it. A prefix longer than the stored data never matches.
func (m ManufacturerDataFilter) Matches(data map[uint16][]byte) bool {
	payload, ok := data[m.CompanyIdentifier]
	if !ok {
		return false
	}
	if len(m.DataPrefix) > len(payload) {
		return false
	}
	for i, want := range m.DataPrefix {
		got := payload[i]
		if m.Mask != nil {
			want &= m.Mask[i]
			got &= m.Mask[i]
		}
		if got != want {
			return false
		}
	}
	return true
}
