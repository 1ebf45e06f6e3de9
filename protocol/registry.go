package protocol

import (
	"fmt"
	"strings"
)

// ModuleID identifies a firmware subsystem. The numeric values are shared
// with the firmware's log_module_t enumeration.
type ModuleID uint8

const (
	ModuleLog ModuleID = iota
	ModuleCmd
	ModuleStdlib

	moduleCount
)

// FunctionID identifies a callable entry point within one module
type FunctionID uint8

// StatusCode is a module-scoped status value partitioned into bands
type StatusCode uint8

// Band partitions the status code space
type Band uint8

const (
	BandInfo Band = iota
	BandWarn
	BandErr
	BandEnd
)

// Band boundaries, matching the firmware's err.h
const (
	StatusInfo StatusCode = 0
	StatusWarn StatusCode = 20
	StatusErr  StatusCode = 40
	StatusEnd  StatusCode = 60
)

func (b Band) String() string {
	switch b {
	case BandInfo:
		return "INFO"
	case BandWarn:
		return "WARN"
	case BandErr:
		return "ERR"
	default:
		return "END"
	}
}

// Band returns the band the code falls in
func (c StatusCode) Band() Band {
	switch {
	case c < StatusWarn:
		return BandInfo
	case c < StatusErr:
		return BandWarn
	case c < StatusEnd:
		return BandErr
	default:
		return BandEnd
	}
}

// fallback returns the code reserved as the band's "unknown" label.
// Codes at or past the sentinel share the ERR band fallback.
func (b Band) fallback() StatusCode {
	switch b {
	case BandInfo:
		return StatusWarn - 1
	case BandWarn:
		return StatusErr - 1
	default:
		return StatusEnd - 1
	}
}

// Module describes one firmware module and its lookup tables
type Module struct {
	ID        ModuleID
	Name      string
	functions []string
	statuses  map[StatusCode]string
}

// modules is indexed by ModuleID
var modules = [moduleCount]Module{
	ModuleLog: {
		ID:        ModuleLog,
		Name:      "LOG",
		functions: []string{"init"},
		statuses: withFallbacks("LOG", map[StatusCode]string{
			0:  "LOG_INFO_OK",
			40: "LOG_ERR_DATASIZE",
			41: "LOG_ERR_MSGSIZE",
		}),
	},
	ModuleCmd: {
		ID:        ModuleCmd,
		Name:      "CMD",
		functions: []string{"init", "queue_status"},
		statuses: withFallbacks("CMD", map[StatusCode]string{
			0:  "CMD_INFO_OK",
			1:  "CMD_INFO_QUEUEEMPTY",
			2:  "CMD_INFO_QUEUEFULL",
			3:  "CMD_INFO_QUEUEPARTIAL",
			20: "CMD_WARN_FREE",
			40: "CMD_ERR_MALLOC",
			41: "CMD_ERR_NULLPTR",
			42: "CMD_ERR_QUEUEFULL",
			43: "CMD_ERR_QUEUEEMPTY",
			44: "CMD_ERR_QUEUEINVALID",
		}),
	},
	ModuleStdlib: {
		ID:        ModuleStdlib,
		Name:      "STDLIB",
		functions: []string{"init"},
		statuses: withFallbacks("STDLIB", map[StatusCode]string{
			0: "STDLIB_INFO_OK",
		}),
	},
}

func withFallbacks(name string, labels map[StatusCode]string) map[StatusCode]string {
	for _, b := range []Band{BandInfo, BandWarn, BandErr} {
		labels[b.fallback()] = name + "_" + b.String() + "_UNKNOWN"
	}
	return labels
}

// Modules returns every registered module in id order
func Modules() []Module {
	out := make([]Module, len(modules))
	copy(out, modules[:])
	return out
}

// LookupModule returns the module registered under id
func LookupModule(id ModuleID) (Module, error) {
	if id >= moduleCount {
		return Module{}, fmt.Errorf("%w: %d", ErrUnknownModule, id)
	}
	return modules[id], nil
}

// LookupModuleName resolves a module by name, case-insensitively
func LookupModuleName(name string) (Module, error) {
	for _, m := range modules {
		if strings.EqualFold(m.Name, name) {
			return m, nil
		}
	}
	return Module{}, fmt.Errorf("%w: %q", ErrUnknownModule, name)
}

// Function resolves a function name within the module
func (m Module) Function(name string) (FunctionID, error) {
	for i, fn := range m.functions {
		if strings.EqualFold(fn, name) {
			return FunctionID(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %s has no function %q", ErrUnknownFunction, m.Name, name)
}

// FunctionName returns the name registered for id
func (m Module) FunctionName(id FunctionID) (string, bool) {
	if int(id) >= len(m.functions) {
		return "", false
	}
	return m.functions[id], true
}

// Functions returns the function names in id order
func (m Module) Functions() []string {
	out := make([]string, len(m.functions))
	copy(out, m.functions)
	return out
}

// StatusLabel returns the explicit label for code, or its band's fallback label
func (m Module) StatusLabel(code StatusCode) string {
	if label, ok := m.statuses[code]; ok {
		return label
	}
	return m.statuses[code.Band().fallback()]
}

// StatusLabel resolves a status code for the given module id
func StatusLabel(id ModuleID, code StatusCode) (string, error) {
	m, err := LookupModule(id)
	if err != nil {
		return "", err
	}
	return m.StatusLabel(code), nil
}
