package geos

import "unsafe"

// Borrowed is a non-owning, read-only view of a native GEOS handle.
//
// It is only valid while the wrapper it was obtained from is alive; it must
// never be retained past a call to that wrapper's Release(). Outside of this
// package the pointer can only be compared, never dereferenced or passed to
// a function that mutates it.
type Borrowed[T any] struct {
	ptr *T
}

func borrow[T any](ptr *T) Borrowed[T] {
	return Borrowed[T]{ptr: ptr}
}

// IsNil returns true if the view does not point at a native handle.
func (b Borrowed[T]) IsNil() bool {
	return b.ptr == nil
}

// Addr returns the address of the native handle, for identity comparisons.
func (b Borrowed[T]) Addr() uintptr {
	return uintptr(unsafe.Pointer(b.ptr))
}

// AsRaw makes a Borrowed usable anywhere a RawAccessor is accepted.
func (b Borrowed[T]) AsRaw() Borrowed[T] {
	return b
}

// raw returns the pointer for GEOS functions that take a const argument.
func (b Borrowed[T]) raw() *T {
	return b.ptr
}

// RawAccessor is implemented by wrappers that can expose a read-only view of
// their native handle.
type RawAccessor[T any] interface {
	AsRaw() Borrowed[T]
}

// RawMutAccessor is implemented by wrappers that can expose a mutable pointer
// to their native handle.
//
// AsRawMutOverride is the unsafe escape hatch: some GEOS functions take a
// non-const pointer even though they do not modify the object (for instance
// GEOSWKTWriter_getOutputDimension_r). Implementations return the pointer
// as-is; callers that use it for such read-only calls must document which
// upstream function requires it and must not mutate through it.
type RawMutAccessor[T any] interface {
	AsRawMutOverride() *T
}

// AsRawMut returns a mutable pointer to the native handle of w. It only
// delegates to w.AsRawMutOverride and never mutates anything itself.
func AsRawMut[T any](w RawMutAccessor[T]) *T {
	return w.AsRawMutOverride()
}
