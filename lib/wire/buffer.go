// Package wire provides the data types that cross the host/plugin boundary:
// caller-allocated string buffers and opaque instance handles.
//
// Nothing in this package allocates on behalf of the far side. A StringBuffer
// always refers to storage owned by whoever constructed it, and a Handle never
// owns the instance it refers to. This keeps the boundary free of any shared
// allocator or object model.
package wire

// StringBuffer is a view over a caller-owned, fixed-capacity byte buffer.
// The invariant size <= capacity holds at all times.
//
// The callee borrows the buffer for the duration of one call: it may write up
// to Capacity() bytes into the backing storage and record how many are valid
// via SetSize, but it must not retain the buffer afterward. When the content
// does not fit, the callee reports buffer-too-small through the call's result
// code, records the required length via Needed, and leaves both the data and
// the size untouched.
type StringBuffer struct {
	data   []byte
	size   int
	needed int
}

// NewStringBuffer allocates a buffer with the given capacity.
func NewStringBuffer(capacity int) *StringBuffer {
	return &StringBuffer{data: make([]byte, capacity)}
}

// WrapStringBuffer creates a view over existing storage. The caller retains
// ownership of the slice.
func WrapStringBuffer(storage []byte) *StringBuffer {
	return &StringBuffer{data: storage}
}

// Capacity returns the immutable capacity of the backing storage.
func (b *StringBuffer) Capacity() int {
	return len(b.data)
}

// Size returns the number of currently valid bytes, never more than
// Capacity().
func (b *StringBuffer) Size() int {
	return b.size
}

// Needed returns the length the last rejected write required, or zero when
// the last write fit. The caller retries with at least this much storage.
func (b *StringBuffer) Needed() int {
	return b.needed
}

// SetSize records the number of valid bytes without touching the data.
// Values beyond capacity are clamped; a callee that cannot fit its output
// reports the required length through the Write contract instead.
func (b *StringBuffer) SetSize(n int) {
	if n > len(b.data) {
		n = len(b.data)
	}
	b.size = n
}

// Write copies s into the buffer if it fits and updates the size.
// It reports false when s exceeds capacity, recording the required length
// for Needed; the backing data and the size are left unmodified in that
// case.
func (b *StringBuffer) Write(s string) bool {
	if len(s) > len(b.data) {
		b.needed = len(s)
		return false
	}
	copy(b.data, s)
	b.size = len(s)
	b.needed = 0
	return true
}

// WriteBytes copies p into the buffer under the same contract as Write.
func (b *StringBuffer) WriteBytes(p []byte) bool {
	if len(p) > len(b.data) {
		b.needed = len(p)
		return false
	}
	copy(b.data, p)
	b.size = len(p)
	b.needed = 0
	return true
}

// WriteTruncated copies as much of s as fits. It exists for error-text
// buffers, where a truncated message is more useful than no message; regular
// payloads use Write and the buffer-too-small protocol instead.
func (b *StringBuffer) WriteTruncated(s string) {
	b.size = copy(b.data, s)
	b.needed = 0
}

// String returns the valid portion of the buffer as a string.
func (b *StringBuffer) String() string {
	return string(b.data[:b.size])
}

// Bytes returns the valid portion of the buffer. The returned slice aliases
// the backing storage and is only valid while the buffer is.
func (b *StringBuffer) Bytes() []byte {
	return b.data[:b.size]
}

// Reset marks the buffer empty without releasing storage.
func (b *StringBuffer) Reset() {
	b.size = 0
	b.needed = 0
}
