// Package geos is a thin cgo binding to the GEOS C API (libgeos_c).
//
// Every native object is owned by exactly one wrapper type, and every wrapper
// holds a reference to the ContextHandle used for its native calls. Raw
// pointers are only reachable through the RawAccessor and RawMutAccessor
// interfaces; errors and notices emitted by GEOS are recorded on the
// ContextHandle and can be queried with LastError and LastNotification.
//
// Wrappers must be freed manually using Release(). Requires GEOS >= 3.11.
package geos

// #cgo LDFLAGS: -lgeos_c -lm
// #include "geos.h"
import "C"
import (
	"runtime/cgo"
)

// GEOSError holds an error message reported by GEOS.
type GEOSError string

// Note: can't use components because GEOS_VERSION_PATCH may be int or string-like
const GEOSVersion string = C.GEOS_VERSION

func (e GEOSError) Error() string {
	return string(e)
}

// Version returns the version of the GEOS library loaded at runtime, which
// may differ from the headers used at compile time (GEOSVersion).
func Version() string {
	return C.GoString(C.GEOSversion())
}

func contextFromHandle(handle C.uintptr_t) *ContextHandle {
	return cgo.Handle(uintptr(handle)).Value().(*ContextHandle)
}

// Export callbacks to be able to call from C.

//export goErrorHandler
func goErrorHandler(message *C.char, handle C.uintptr_t) {
	contextFromHandle(handle).recordError(C.GoString(message))
}

//export goNoticeHandler
func goNoticeHandler(message *C.char, handle C.uintptr_t) {
	contextFromHandle(handle).recordNotification(C.GoString(message))
}
