package wire

// Handle is an address-sized opaque token referring to an instance whose
// concrete type is unknown on the far side of the boundary. A Handle is a
// non-owning reference plus a lookup key: exactly one side (the allocator)
// owns the referent, and only that side's destroy entry may release it.
//
// The zero Handle is never a valid reference.
type Handle uintptr

// ConstHandle is a Handle that only grants read access to the referent.
// The representation is identical; the distinction is a contract, not a
// runtime mechanism.
type ConstHandle uintptr

// InvalidHandle is the reserved "no instance" token.
const InvalidHandle Handle = 0

// IsValid reports whether the handle could refer to an instance.
func (h Handle) IsValid() bool {
	return h != InvalidHandle
}

// Const converts a mutable handle into its read-only form.
func (h Handle) Const() ConstHandle {
	return ConstHandle(h)
}

// IsValid reports whether the handle could refer to an instance.
func (h ConstHandle) IsValid() bool {
	return h != ConstHandle(InvalidHandle)
}
