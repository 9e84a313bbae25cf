package result

import (
	"fmt"
)

// CallError is the host-native form of a range-A code: the whole operation
// failed with a message carried back through the caller's error buffer.
type CallError struct {
	Code    Code
	Message string
}

// Error implements the error interface.
func (e *CallError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("call failed: %s", e.Code)
	}
	return fmt.Sprintf("call failed: %s: %s", e.Code, e.Message)
}

// Is allows errors.Is matching against another CallError by kind.
func (e *CallError) Is(target error) bool {
	t, ok := target.(*CallError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// BatchError is the host-native form of a range-B code: a single item of a
// multi-item call failed. Index identifies the item within its batch.
type BatchError struct {
	Code    Code
	Index   int
	Message string
}

// Error implements the error interface.
func (e *BatchError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("item %d failed: %s", e.Index, e.Code)
	}
	return fmt.Sprintf("item %d failed: %s: %s", e.Index, e.Code, e.Message)
}

// Is allows errors.Is matching against another BatchError by kind.
func (e *BatchError) Is(target error) bool {
	t, ok := target.(*BatchError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Decode converts a boundary code plus message into the host-native error
// representation. OK decodes to nil. The index is only meaningful for batch
// codes; callers of call-level operations pass a negative index.
func Decode(code Code, message string, index int) error {
	code = code.Normalize()
	switch {
	case code == OK:
		return nil
	case code.IsBatchError():
		return &BatchError{Code: code, Index: index, Message: message}
	default:
		return &CallError{Code: code, Message: message}
	}
}

// Encode flattens a host-native error back into a boundary code and message.
// A nil error encodes to OK. Errors that are neither CallError nor BatchError
// encode as ErrUnknown with their message, so an arbitrary failure still
// crosses the seam intact.
func Encode(err error) (Code, string) {
	if err == nil {
		return OK, ""
	}
	switch e := err.(type) {
	case *CallError:
		return e.Code.Normalize(), e.Message
	case *BatchError:
		return e.Code.Normalize(), e.Message
	default:
		return ErrUnknown, err.Error()
	}
}
