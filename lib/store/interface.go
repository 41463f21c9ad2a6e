package store

import (
	"fmt"
	"time"

	"github.com/ValentinKolb/sysprop/lib/util"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// Property is a snapshot of a single property as returned by List.
type Property struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Serial uint32 `json:"serial"`
}

// AreaInfo describes one mapped property area.
// It is not guaranteed that all fields are filled in or that the information is up-to-date!
type AreaInfo struct {
	Context    string           `json:"context"`
	File       string           `json:"file"`
	BytesUsed  uint32           `json:"bytes_used"`
	Capacity   uint32           `json:"capacity"`
	Properties int              `json:"properties"`
	Serial     uint32           `json:"serial"`
	ValueSizes util.SizeSummary `json:"value_sizes"`
}

// IStore is the name based interface for interacting with a property store.
// It is implemented by the local shared memory store (lstore) and by the rpc
// client talking to a property service.
type IStore interface {
	// Get returns the value of a property. The boolean return value indicates whether the property exists.
	Get(name string) (value string, found bool, err error)
	// Set adds the property or replaces its value.
	Set(name, value string) (err error)
	// Delete removes a property. The boolean return value indicates whether the property existed.
	Delete(name string) (found bool, err error)
	// List returns a snapshot of all readable properties.
	List() (props []Property, err error)
	// Wait blocks until the property exists and its serial differs from oldSerial.
	// A timeout <= 0 waits forever. ok is false if the timeout expired first.
	Wait(name string, oldSerial uint32, timeout time.Duration) (newSerial uint32, ok bool, err error)
	// Serial returns the global serial, which changes whenever any property changes.
	Serial() (serial uint32, err error)
	// GetAreaInfo returns metadata about the areas underlying the store.
	GetAreaInfo() (info []AreaInfo, err error)
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is a custom error type that wraps a return code (of type RetCode)
// and an error message.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message.
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("PropertyStoreError (code %s): %s", e.Code, e.Msg)
}

// Is reports whether target is a *Error with the same return code.
// This allows errors.Is(err, store.ErrAreaFull) for any error carrying that code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// NewError creates a new PropertyStoreError with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// Errorf creates a new PropertyStoreError with a formatted message.
func Errorf(code RetCode, format string, args ...interface{}) *Error {
	return NewError(code, fmt.Sprintf(format, args...))
}

// Sentinel errors, one per return code. Compare with errors.Is.
var (
	ErrInternal          = NewError(RetCInternalError, "internal error")
	ErrUnsupported       = NewError(RetCUnsupportedOperation, "operation not supported")
	ErrInvalidOperation  = NewError(RetCInvalidOperation, "invalid operation")
	ErrNotFound          = NewError(RetCNotFound, "property not found")
	ErrAreaUnavailable   = NewError(RetCAreaUnavailable, "property area unavailable")
	ErrAreaFull          = NewError(RetCAreaFull, "property area is full")
	ErrInvalidName       = NewError(RetCInvalidName, "invalid property name")
	ErrInvalidValue      = NewError(RetCInvalidValue, "invalid property value")
	ErrValueTooLong      = NewError(RetCValueTooLong, "property value too long")
	ErrAccessDenied      = NewError(RetCAccessDenied, "access denied")
	ErrExists            = NewError(RetCExists, "property already exists")
	ErrNotInitialized    = NewError(RetCNotInitialized, "property store not initialized")
	ErrTimeout           = NewError(RetCTimeout, "timed out")
	ErrReadOnly          = NewError(RetCReadOnly, "property area is mapped read-only")
	ErrLabelFailed       = NewError(RetCLabelFailed, "failed to set security label")
	ErrLockNotAcquirable = NewError(RetCLockFailed, "writer lock could not be acquired")
)

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess              RetCode = iota // 0: Command executed successfully.
	RetCInternalError                       // 1: Command failed due to an internal error.
	RetCUnsupportedOperation                // 2: Operation is not supported.
	RetCInvalidOperation                    // 3: Invalid operation.
	RetCNotFound                            // 4: Property does not exist.
	RetCAreaUnavailable                     // 5: Area could not be opened, mapped or validated.
	RetCAreaFull                            // 6: Arena exhausted.
	RetCInvalidName                         // 7: Name empty, malformed or too long.
	RetCInvalidValue                        // 8: Value contains a NUL byte.
	RetCValueTooLong                        // 9: Value does not fit and may not be stored as a long value.
	RetCAccessDenied                        // 10: No area serves this name.
	RetCExists                              // 11: Add on a name that already has a value.
	RetCNotInitialized                      // 12: Store used before Init/AreaInit.
	RetCTimeout                             // 13: A wait timed out.
	RetCReadOnly                            // 14: Mutation on a read-only mapping.
	RetCLabelFailed                         // 15: fsetxattr on an area file failed.
	RetCLockFailed                          // 16: Writer lock timed out.
)

func (c RetCode) String() string {
	switch c {
	case RetCSuccess:
		return "Success"
	case RetCInternalError:
		return "InternalError"
	case RetCUnsupportedOperation:
		return "UnsupportedOperation"
	case RetCInvalidOperation:
		return "InvalidOperation"
	case RetCNotFound:
		return "NotFound"
	case RetCAreaUnavailable:
		return "AreaUnavailable"
	case RetCAreaFull:
		return "AreaFull"
	case RetCInvalidName:
		return "InvalidName"
	case RetCInvalidValue:
		return "InvalidValue"
	case RetCValueTooLong:
		return "ValueTooLong"
	case RetCAccessDenied:
		return "AccessDenied"
	case RetCExists:
		return "Exists"
	case RetCNotInitialized:
		return "NotInitialized"
	case RetCTimeout:
		return "Timeout"
	case RetCReadOnly:
		return "ReadOnly"
	case RetCLabelFailed:
		return "LabelFailed"
	case RetCLockFailed:
		return "LockFailed"
	default:
		return "Unknown"
	}
}
