// Package luafilter turns a Lua script into a scan predicate.
//
// The script must define a global function match(device) returning a
// boolean. device is a table with the fields name, address, rssi and
// manufacturer_data, the latter keyed by company identifier:
//
//	function match(device)
//	  local apple = device.manufacturer_data[0x004c]
//	  return device.rssi > -70 and apple ~= nil and apple:byte(1) == 0x02
//	end
package luafilter

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/aarzilli/golua/lua"
	"github.com/sirupsen/logrus"

	"github.com/srg/webble/bluetooth"
)

const matchFunction = "match"

// ScriptError describes a failure to load or run the script.
type ScriptError struct {
	Type    string // "syntax", "runtime", "api"
	Message string
	Line    int
	Source  string
}

func (e *ScriptError) Error() string {
	var parts []string
	if e.Source != "" {
		parts = append(parts, "in "+e.Source)
	}
	if e.Line > 0 {
		parts = append(parts, fmt.Sprintf("line %d", e.Line))
	}
	if len(parts) == 0 {
		return fmt.Sprintf("lua %s error: %s", e.Type, e.Message)
	}
	return fmt.Sprintf("lua %s error (%s): %s", e.Type, strings.Join(parts, ", "), e.Message)
}

// Is matches another ScriptError of the same Type.
func (e *ScriptError) Is(target error) bool {
	t, ok := target.(*ScriptError)
	return ok && t.Type == e.Type
}

var (
	ErrSyntax  = &ScriptError{Type: "syntax"}
	ErrRuntime = &ScriptError{Type: "runtime"}
	ErrAPI     = &ScriptError{Type: "api"}
)

// Filter owns a Lua state. Match may be called from any goroutine; calls
// are serialized.
type Filter struct {
	mu      sync.Mutex
	state   *lua.State
	source  string
	logger  *logrus.Logger
	lastErr error
}

// Load reads the script from path.
func Load(path string, logger *logrus.Logger) (*Filter, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script %s: %w", path, err)
	}
	return New(string(content), path, logger)
}

// New runs script and checks that it defines match.
func New(script, source string, logger *logrus.Logger) (*Filter, error) {
	if logger == nil {
		logger = logrus.New()
	}
	if strings.TrimSpace(script) == "" {
		return nil, &ScriptError{Type: "api", Message: "empty script", Source: source}
	}

	L := lua.NewState()
	L.OpenLibs()

	if err := L.DoString(script); err != nil {
		L.Close()
		return nil, parseError("syntax", source, err)
	}

	L.GetGlobal(matchFunction)
	isFunc := L.IsFunction(-1)
	L.Pop(1)
	if !isFunc {
		L.Close()
		return nil, &ScriptError{Type: "api", Message: "script must define function match(device)", Source: source}
	}

	logger.WithField("source", source).Debug("Lua scan filter loaded")
	return &Filter{state: L, source: source, logger: logger}, nil
}

// Predicate returns Match as a bluetooth.Predicate.
func (f *Filter) Predicate() bluetooth.Predicate {
	return f.Match
}

// Match calls match(device). A runtime error counts as no match; the error
// is logged and kept for Err.
func (f *Filter) Match(info bluetooth.DeviceInfo) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	L := f.state
	if L == nil {
		return false
	}

	L.GetGlobal(matchFunction)
	pushDevice(L, info)
	if err := L.Call(1, 1); err != nil {
		f.lastErr = parseError("runtime", f.source, err)
		f.logger.WithError(f.lastErr).WithField("name", info.Name).Warn("Lua scan filter failed")
		return false
	}
	matched := L.ToBoolean(-1)
	L.Pop(1)
	return matched
}

// Err returns the last runtime error, if any.
func (f *Filter) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastErr
}

// Close releases the Lua state. Match returns false afterwards.
func (f *Filter) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != nil {
		f.state.Close()
		f.state = nil
	}
}

func pushDevice(L *lua.State, info bluetooth.DeviceInfo) {
	L.NewTable()

	L.PushString(info.Name)
	L.SetField(-2, "name")
	L.PushString(info.Address)
	L.SetField(-2, "address")
	L.PushInteger(int64(info.RSSI))
	L.SetField(-2, "rssi")

	L.NewTable()
	for company, data := range info.ManufacturerData {
		L.PushInteger(int64(company))
		L.PushString(string(data))
		L.SetTable(-3)
	}
	L.SetField(-2, "manufacturer_data")
}

// parseError extracts the line number from messages of the form
// `[string "..."]:3: message`.
func parseError(errType, source string, err error) *ScriptError {
	msg := err.Error()
	line := 0
	if parts := strings.SplitN(msg, ":", 3); len(parts) == 3 {
		if n, scanErr := fmt.Sscanf(strings.TrimSpace(parts[1]), "%d", &line); scanErr == nil && n == 1 {
			msg = strings.TrimSpace(parts[2])
		}
	}
	return &ScriptError{Type: errType, Message: msg, Line: line, Source: source}
}
