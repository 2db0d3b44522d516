package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorSeverity defines the severity level of an error
type ErrorSeverity int

const (
	SeverityInfo ErrorSeverity = iota
	SeverityWarning
	SeverityError
	SeverityCritical
)

// String returns the string representation of the severity
func (s ErrorSeverity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityWarning:
		return "WARNING"
	case SeverityError:
		return "ERROR"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// Diagnostic codes published alongside faults
const (
	CodeConfig          = 1
	CodeConnection      = 2
	CodeTimeout         = 3
	CodeParse           = 4
	CodeBusy            = 5
	CodeCommandRejected = 6
)

// BridgeError is the base error type for all bridge errors
type BridgeError struct {
	Op       string        // Operation that failed
	Err      error         // Underlying error
	Severity ErrorSeverity // Error severity
	Code     int           // Diagnostic code
}

// Error implements the error interface
func (e *BridgeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Severity, e.Op, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Severity, e.Op)
}

// Unwrap returns the underlying error
func (e *BridgeError) Unwrap() error {
	return e.Err
}

// Diagnostic returns the diagnostic code; promoted to every subtype
func (e *BridgeError) Diagnostic() int {
	return e.Code
}

// ConnectionError represents a failed dial or a broken session to the bridge.
// Always recovered locally through the connection manager's backoff, never fatal.
type ConnectionError struct {
	BridgeError
	Host string
	Port int
}

// NewConnectionError creates a new connection error
func NewConnectionError(op string, err error, host string, port int) *ConnectionError {
	return &ConnectionError{
		BridgeError: BridgeError{
			Op:       op,
			Err:      err,
			Severity: SeverityError,
			Code:     CodeConnection,
		},
		Host: host,
		Port: port,
	}
}

// Error implements the error interface
func (e *ConnectionError) Error() string {
	if e.Host != "" {
		return fmt.Sprintf("[%s] bridge %s:%d: %s: %v", e.Severity, e.Host, e.Port, e.Op, e.Err)
	}
	return fmt.Sprintf("[%s] bridge: %s: %v", e.Severity, e.Op, e.Err)
}

// TimeoutError represents a read/write/dial that exceeded its bound.
// Treated as a connection failure by callers.
type TimeoutError struct {
	BridgeError
	Phase string        // "dial", "read" or "write"
	Limit time.Duration // The bound that was exceeded
}

// NewTimeoutError creates a new timeout error
func NewTimeoutError(op string, err error, phase string, limit time.Duration) *TimeoutError {
	return &TimeoutError{
		BridgeError: BridgeError{
			Op:       op,
			Err:      err,
			Severity: SeverityWarning,
			Code:     CodeTimeout,
		},
		Phase: phase,
		Limit: limit,
	}
}

// Error implements the error interface
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("[%s] %s timeout after %v: %s: %v", e.Severity, e.Phase, e.Limit, e.Op, e.Err)
}

// Timeout marks this error as a timeout for net.Error-style checks
func (e *TimeoutError) Timeout() bool {
	return true
}

// ParseError represents a status payload that could not be recognized.
// Recorded in the published state; does not affect connection health.
type ParseError struct {
	BridgeError
	Payload string
}

// NewParseError creates a new parse error
func NewParseError(op string, payload string) *ParseError {
	return &ParseError{
		BridgeError: BridgeError{
			Op:       op,
			Err:      fmt.Errorf("unrecognized status payload"),
			Severity: SeverityWarning,
			Code:     CodeParse,
		},
		Payload: payload,
	}
}

// Error implements the error interface
func (e *ParseError) Error() string {
	return fmt.Sprintf("[%s] %s: unrecognized payload (%d bytes)", e.Severity, e.Op, len(e.Payload))
}

// BusyError represents a command that could not acquire the shared transport
// within its timeout. Surfaced to the caller; retrying is a caller decision.
type BusyError struct {
	BridgeError
	Waited time.Duration
}

// NewBusyError creates a new busy error
func NewBusyError(op string, waited time.Duration) *BusyError {
	return &BusyError{
		BridgeError: BridgeError{
			Op:       op,
			Err:      fmt.Errorf("transport busy"),
			Severity: SeverityWarning,
			Code:     CodeBusy,
		},
		Waited: waited,
	}
}

// Error implements the error interface
func (e *BusyError) Error() string {
	return fmt.Sprintf("[%s] %s: transport busy after waiting %v", e.Severity, e.Op, e.Waited)
}

// CommandRejectedError represents a command whose transport round-trip
// succeeded but whose response indicates failure. The raw response is kept
// verbatim for caller-side interpretation.
type CommandRejectedError struct {
	BridgeError
	Command  string
	Response string
}

// NewCommandRejectedError creates a new command rejected error
func NewCommandRejectedError(command, response string) *CommandRejectedError {
	return &CommandRejectedError{
		BridgeError: BridgeError{
			Op:       "dispatch",
			Err:      fmt.Errorf("device rejected command"),
			Severity: SeverityError,
			Code:     CodeCommandRejected,
		},
		Command:  command,
		Response: response,
	}
}

// Error implements the error interface
func (e *CommandRejectedError) Error() string {
	return fmt.Sprintf("[%s] command %s rejected: %q", e.Severity, e.Command, e.Response)
}

// IsTimeout reports whether err is (or wraps) a TimeoutError
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

// IsBusy reports whether err is (or wraps) a BusyError
func IsBusy(err error) bool {
	var be *BusyError
	return errors.As(err, &be)
}

// IsConnection reports whether err is (or wraps) a ConnectionError or TimeoutError,
// i.e. anything that should drive the backoff transition
func IsConnection(err error) bool {
	var ce *ConnectionError
	return errors.As(err, &ce) || IsTimeout(err)
}

type diagnoser interface {
	Diagnostic() int
}

// DiagnosticCode extracts the diagnostic code from a bridge error, 0 otherwise
func DiagnosticCode(err error) int {
	var d diagnoser
	if errors.As(err, &d) {
		return d.Diagnostic()
	}
	return 0
}
