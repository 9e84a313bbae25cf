// Package result defines the discriminated numeric result codes carried across
// the host/plugin boundary, and the host-side error types they decode into.
//
// A single small integer is the only failure channel the boundary offers. Two
// disjoint ranges share it: call-level failures (the whole operation failed,
// where a native implementation would have thrown) and per-item batch failures
// (one element of a multi-item call failed while its siblings may still
// succeed). Because the ranges never overlap, no extra tag is needed to tell
// the two kinds apart.
package result

// Code is the discriminator returned by every dispatch-table entry.
type Code int32

const (
	// OK reports success. It is the only success value.
	OK Code = 0

	// Call-level failure kinds (range A, 1..127). The operation could not be
	// performed at all.
	ErrUnknown        Code = 1
	ErrException      Code = 2
	ErrBadHandle      Code = 3
	ErrBufferTooSmall Code = 4
	ErrNotImplemented Code = 5

	// Per-item batch failure kinds (range B, 128..). One item of a batch
	// failed; the call as a whole proceeds.
	BatchUnknown            Code = 128
	BatchInvalidReference   Code = 129
	BatchMalformedReference Code = 130
	BatchAccessError        Code = 131
	BatchResolutionError    Code = 132
	BatchInvalidPreflight   Code = 133
	BatchInvalidTraitSet    Code = 134
	BatchAuthError          Code = 135
)

// batchRangeStart is the first per-item code. Everything in 1..batchRangeStart-1
// is call-level.
const batchRangeStart Code = 128

// IsOK reports success.
func (c Code) IsOK() bool {
	return c == OK
}

// IsCallError reports whether the code lies in the call-level range.
func (c Code) IsCallError() bool {
	return c > OK && c < batchRangeStart
}

// IsBatchError reports whether the code lies in the per-item range.
func (c Code) IsBatchError() bool {
	return c >= batchRangeStart
}

// Normalize maps a code onto a kind the host understands. Unrecognized values
// inside a range collapse to that range's unknown kind; they are never treated
// as success. Negative values have no assigned meaning and normalize to
// ErrUnknown.
func (c Code) Normalize() Code {
	switch {
	case c == OK:
		return OK
	case c.IsBatchError():
		if c >= BatchUnknown && c <= BatchAuthError {
			return c
		}
		return BatchUnknown
	case c.IsCallError():
		if c >= ErrUnknown && c <= ErrNotImplemented {
			return c
		}
		return ErrUnknown
	default:
		return ErrUnknown
	}
}

// String returns the code's name for logs and error text.
func (c Code) String() string {
	switch c {
	case OK:
		return "ok"
	case ErrUnknown:
		return "unknown"
	case ErrException:
		return "exception"
	case ErrBadHandle:
		return "bad_handle"
	case ErrBufferTooSmall:
		return "buffer_too_small"
	case ErrNotImplemented:
		return "not_implemented"
	case BatchUnknown:
		return "batch_unknown"
	case BatchInvalidReference:
		return "invalid_reference"
	case BatchMalformedReference:
		return "malformed_reference"
	case BatchAccessError:
		return "access_error"
	case BatchResolutionError:
		return "resolution_error"
	case BatchInvalidPreflight:
		return "invalid_preflight_hint"
	case BatchInvalidTraitSet:
		return "invalid_trait_set"
	case BatchAuthError:
		return "auth_error"
	default:
		if c.IsBatchError() {
			return "batch_unknown"
		}
		return "unknown"
	}
}
