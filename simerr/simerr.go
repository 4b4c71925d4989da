// Package simerr defines the error kinds surfaced by every module in the
// SSD simulator.
package simerr

import "fmt"

// Kind classifies the failure so callers can decide whether it is fatal.
type Kind int

// The six error kinds this simulator distinguishes.
const (
	// InvalidAttribute classifies a request for a packet attribute name
	// that is not recognized. The packet package logs such reads and
	// returns 0.0; it does not report an Error of this kind.
	InvalidAttribute Kind = iota
	// AddressOutOfBounds is raised when a decoded address does not fit
	// the declared geometry of the addressed component.
	AddressOutOfBounds
	// InvalidPacketType is raised when a component receives a packet
	// variant it cannot service.
	InvalidPacketType
	// ConfigurationError is raised by config validation. It is always
	// fatal and prevents the simulation from starting.
	ConfigurationError
	// ResourceExhausted is raised when a bookkeeping structure (the
	// index allocator) is asked to hand out more resources than it has,
	// which should never happen in a well-formed run.
	ResourceExhausted
	// DeviceError is raised by the flash array and the PCIe link for
	// operational failures: bad blocks, program-before-erase violations,
	// and CRC retries exhausted.
	DeviceError
)

func (k Kind) String() string {
	switch k {
	case InvalidAttribute:
		return "InvalidAttribute"
	case AddressOutOfBounds:
		return "AddressOutOfBounds"
	case InvalidPacketType:
		return "InvalidPacketType"
	case ConfigurationError:
		return "ConfigurationError"
	case ResourceExhausted:
		return "ResourceExhausted"
	case DeviceError:
		return "DeviceError"
	default:
		return "Unknown"
	}
}

// Fatal reports whether errors of this kind should stop the run. Only
// ConfigurationError is fatal; every other kind is operational and the
// offending packet is dropped while the run continues.
func (k Kind) Fatal() bool {
	return k == ConfigurationError
}

// Error is the concrete error type every module returns or reports.
type Error struct {
	Module  string
	Kind    Kind
	Code    string
	Message string
}

// New creates an Error.
func New(module string, kind Kind, code, message string) *Error {
	return &Error{Module: module, Kind: kind, Code: code, Message: message}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s[%s/%s]: %s", e.Module, e.Kind, e.Code, e.Message)
}

// Fatal reports whether this error should stop the run.
func (e *Error) Fatal() bool {
	return e.Kind.Fatal()
}

// A Reporter receives non-fatal errors as they occur, mirroring the
// "local report channel" of the error propagation design: components push
// operational errors here instead of failing the packet's caller.
type Reporter interface {
	Report(err *Error)
}

// ReporterFunc adapts a function to a Reporter.
type ReporterFunc func(err *Error)

// Report calls f.
func (f ReporterFunc) Report(err *Error) { f(err) }

// DiscardReporter drops every error it receives. It is the default for
// components constructed without an explicit reporter.
var DiscardReporter Reporter = ReporterFunc(func(*Error) {})
