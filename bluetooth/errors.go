package bluetooth

import (
	"errors"
	"fmt"

	"github.com/srg/webble/internal/simpleble"
)

// NotFoundError represents an error when a BLE resource is not found
type NotFoundError struct {
	Resource string   // "adapter", "device", "service", "characteristic", "descriptor"
	UUIDs    []string // lookup path, outermost first
}

func (e *NotFoundError) Error() string {
	if len(e.UUIDs) == 0 {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	if len(e.UUIDs) == 1 {
		return fmt.Sprintf("%s %q not found", e.Resource, e.UUIDs[0])
	}
	parentResource := "service"
	if e.Resource == "descriptor" {
		parentResource = "characteristic"
	}
	return fmt.Sprintf("%s %q not found in %s %q", e.Resource, e.UUIDs[len(e.UUIDs)-1], parentResource, e.UUIDs[len(e.UUIDs)-2])
}

// Is makes every NotFoundError match ErrNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// ConnectionState represents the specific kind of connection state failure
type ConnectionState string

const (
	NotConnected      ConnectionState = "not_connected"
	ConnectionRefused ConnectionState = "connection_refused"
)

// ConnectionError represents any connection-related problem
type ConnectionError struct {
	State ConnectionState
	Msg   string
}

func (e *ConnectionError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Msg == "" {
		return string(e.State)
	}
	return fmt.Sprintf("%s: %s", e.State, e.Msg)
}

// Is allows errors.Is to compare ConnectionError values by State
func (e *ConnectionError) Is(target error) bool {
	if e == nil {
		return false
	}
	t, ok := target.(*ConnectionError)
	if !ok {
		return false
	}
	return e.State == t.State
}

var (
	ErrNotConnected      = &ConnectionError{State: NotConnected}
	ErrConnectionRefused = &ConnectionError{State: ConnectionRefused}
)

var (
	ErrNotFound        = errors.New("not found")
	ErrBadResource     = errors.New("bad resource")
	ErrInvalidData     = errors.New("invalid data")
	ErrUnsupported     = errors.New("unsupported")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrScanInProgress  = errors.New("scan already in progress")
	ErrClosed          = errors.New("bluetooth closed")
	ErrWriteFailed     = fmt.Errorf("write failed: %w", ErrBadResource)
	ErrNoAdapters      = &NotFoundError{Resource: "adapter"}
)

// classify converts a binding-layer failure into the public taxonomy so that
// native status codes never leak out of the package. kind is the error the
// caller wants for a failed native call.
func classify(op string, err error, kind error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, simpleble.ErrReleased), errors.Is(err, simpleble.ErrInvalidHandle):
		return fmt.Errorf("%s: %w", op, ErrBadResource)
	case errors.Is(err, simpleble.ErrLayout):
		return fmt.Errorf("%s: %w: %v", op, ErrInvalidData, err)
	default:
		return fmt.Errorf("%s: %w", op, kind)
	}
}
