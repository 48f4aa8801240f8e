package geos

// #include "geos.h"
import "C"
import "unsafe"

func cBool(v bool) C.char {
	if v {
		return 1
	}
	return 0
}

// WKTReader owns a GEOS Well-Known Text reader.
// WKTReader must be manually freed using Release().
type WKTReader struct {
	contextHolder
	ptr *C.GEOSWKTReader
}

var (
	_ RawAccessor[C.GEOSWKTReader]    = (*WKTReader)(nil)
	_ RawMutAccessor[C.GEOSWKTReader] = (*WKTReader)(nil)
	_ ContextHandling                 = (*WKTReader)(nil)
	_ ContextInteractions             = (*WKTReader)(nil)
)

func NewWKTReader(ctx *ContextHandle) (*WKTReader, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	ptr := C.GEOSWKTReader_create_r(ctx.raw())
	if ptr == nil {
		return nil, ctx.newError("geos: could not create WKTReader")
	}
	return &WKTReader{
		contextHolder: holdContext(ctx),
		ptr:           ptr,
	}, nil
}

func (r *WKTReader) Release() {
	if r == nil || r.ptr == nil {
		return
	}
	C.GEOSWKTReader_destroy_r(r.rawContext(), r.ptr)
	r.ptr = nil
	r.releaseContext()
}

func (r *WKTReader) AsRaw() Borrowed[C.GEOSWKTReader] {
	if r == nil {
		return Borrowed[C.GEOSWKTReader]{}
	}
	return borrow(r.ptr)
}

func (r *WKTReader) AsRawMutOverride() *C.GEOSWKTReader {
	if r == nil {
		return nil
	}
	return r.ptr
}

// Read parses Well-Known Text into a new Geometry that shares the reader's
// context.
func (r *WKTReader) Read(wkt string) (*Geometry, error) {
	if r == nil || r.ptr == nil {
		return nil, ErrReleased
	}

	cWKT := C.CString(wkt)
	defer C.free(unsafe.Pointer(cWKT))

	ptr := C.GEOSWKTReader_read_r(r.rawContext(), AsRawMut[C.GEOSWKTReader](r), cWKT)
	return geometryResult(r.ctx, ptr, "parse WKT")
}

// WKTWriter owns a GEOS Well-Known Text writer.
// WKTWriter must be manually freed using Release().
type WKTWriter struct {
	contextHolder
	ptr *C.GEOSWKTWriter
}

var (
	_ RawAccessor[C.GEOSWKTWriter]    = (*WKTWriter)(nil)
	_ RawMutAccessor[C.GEOSWKTWriter] = (*WKTWriter)(nil)
	_ ContextHandling                 = (*WKTWriter)(nil)
	_ ContextInteractions             = (*WKTWriter)(nil)
)

func NewWKTWriter(ctx *ContextHandle) (*WKTWriter, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	ptr := C.GEOSWKTWriter_create_r(ctx.raw())
	if ptr == nil {
		return nil, ctx.newError("geos: could not create WKTWriter")
	}
	return &WKTWriter{
		contextHolder: holdContext(ctx),
		ptr:           ptr,
	}, nil
}

func (w *WKTWriter) Release() {
	if w == nil || w.ptr == nil {
		return
	}
	C.GEOSWKTWriter_destroy_r(w.rawContext(), w.ptr)
	w.ptr = nil
	w.releaseContext()
}

func (w *WKTWriter) check() error {
	if w == nil || w.ptr == nil {
		return ErrReleased
	}
	return nil
}

func (w *WKTWriter) AsRaw() Borrowed[C.GEOSWKTWriter] {
	if w == nil {
		return Borrowed[C.GEOSWKTWriter]{}
	}
	return borrow(w.ptr)
}

func (w *WKTWriter) AsRawMutOverride() *C.GEOSWKTWriter {
	if w == nil {
		return nil
	}
	return w.ptr
}

// SetTrim trims trailing zeros from coordinates when enabled.
func (w *WKTWriter) SetTrim(trim bool) error {
	if err := w.check(); err != nil {
		return err
	}
	C.GEOSWKTWriter_setTrim_r(w.rawContext(), AsRawMut[C.GEOSWKTWriter](w), cBool(trim))
	return nil
}

// SetRoundingPrecision sets the number of decimals written; -1 writes full
// precision.
func (w *WKTWriter) SetRoundingPrecision(precision int) error {
	if err := w.check(); err != nil {
		return err
	}
	C.GEOSWKTWriter_setRoundingPrecision_r(w.rawContext(), AsRawMut[C.GEOSWKTWriter](w), C.int(precision))
	return nil
}

// SetOutputDimension sets the maximum number of dimensions written (2 or 3).
func (w *WKTWriter) SetOutputDimension(dim int) error {
	if err := w.check(); err != nil {
		return err
	}
	C.GEOSWKTWriter_setOutputDimension_r(w.rawContext(), AsRawMut[C.GEOSWKTWriter](w), C.int(dim))
	return nil
}

func (w *WKTWriter) OutputDimension() (int, error) {
	if err := w.check(); err != nil {
		return 0, err
	}
	// GEOSWKTWriter_getOutputDimension_r only reads the writer but is
	// declared with a non-const writer argument upstream.
	return int(C.GEOSWKTWriter_getOutputDimension_r(w.rawContext(), w.AsRawMutOverride())), nil
}

// Write writes g as Well-Known Text.
func (w *WKTWriter) Write(g RawAccessor[C.GEOSGeometry]) (string, error) {
	if err := w.check(); err != nil {
		return "", err
	}
	raw, err := checkRaw(g)
	if err != nil {
		return "", err
	}

	wkt := C.GEOSWKTWriter_write_r(w.rawContext(), AsRawMut[C.GEOSWKTWriter](w), raw.raw())
	if wkt == nil {
		return "", w.ctx.newError("geos: could not write WKT")
	}
	defer C.GEOSFree_r(w.rawContext(), unsafe.Pointer(wkt))

	return C.GoString(wkt), nil
}
