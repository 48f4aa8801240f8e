package geos

// #include "geos.h"
import "C"
import (
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkb"
)

// ByteOrder of Well-Known Binary output.
type ByteOrder int

const (
	BigEndian    ByteOrder = C.GEOS_WKB_XDR
	LittleEndian ByteOrder = C.GEOS_WKB_NDR
)

// WKBReader owns a GEOS Well-Known Binary reader.
// WKBReader must be manually freed using Release().
type WKBReader struct {
	contextHolder
	ptr *C.GEOSWKBReader
}

var (
	_ RawAccessor[C.GEOSWKBReader]    = (*WKBReader)(nil)
	_ RawMutAccessor[C.GEOSWKBReader] = (*WKBReader)(nil)
	_ ContextHandling                 = (*WKBReader)(nil)
	_ ContextInteractions             = (*WKBReader)(nil)
)

func NewWKBReader(ctx *ContextHandle) (*WKBReader, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	ptr := C.GEOSWKBReader_create_r(ctx.raw())
	if ptr == nil {
		return nil, ctx.newError("geos: could not create WKBReader")
	}
	return &WKBReader{
		contextHolder: holdContext(ctx),
		ptr:           ptr,
	}, nil
}

func (r *WKBReader) Release() {
	if r == nil || r.ptr == nil {
		return
	}
	C.GEOSWKBReader_destroy_r(r.rawContext(), r.ptr)
	r.ptr = nil
	r.releaseContext()
}

func (r *WKBReader) AsRaw() Borrowed[C.GEOSWKBReader] {
	if r == nil {
		return Borrowed[C.GEOSWKBReader]{}
	}
	return borrow(r.ptr)
}

func (r *WKBReader) AsRawMutOverride() *C.GEOSWKBReader {
	if r == nil {
		return nil
	}
	return r.ptr
}

// Read parses Well-Known Binary into a new Geometry that shares the reader's
// context.
func (r *WKBReader) Read(buf []byte) (*Geometry, error) {
	if r == nil || r.ptr == nil {
		return nil, ErrReleased
	}
	if len(buf) == 0 {
		return nil, errors.New("geos: cannot parse empty WKB")
	}

	ptr := C.GEOSWKBReader_read_r(r.rawContext(), AsRawMut[C.GEOSWKBReader](r), (*C.uchar)(unsafe.Pointer(&buf[0])), C.size_t(len(buf)))
	return geometryResult(r.ctx, ptr, "parse WKB")
}

// ReadHEX parses hex encoded Well-Known Binary.
func (r *WKBReader) ReadHEX(hex string) (*Geometry, error) {
	if r == nil || r.ptr == nil {
		return nil, ErrReleased
	}
	if len(hex) == 0 {
		return nil, errors.New("geos: cannot parse empty WKB")
	}

	buf := []byte(hex)
	ptr := C.GEOSWKBReader_readHEX_r(r.rawContext(), AsRawMut[C.GEOSWKBReader](r), (*C.uchar)(unsafe.Pointer(&buf[0])), C.size_t(len(buf)))
	return geometryResult(r.ctx, ptr, "parse hex WKB")
}

// WKBWriter owns a GEOS Well-Known Binary writer.
// WKBWriter must be manually freed using Release().
type WKBWriter struct {
	contextHolder
	ptr *C.GEOSWKBWriter
}

var (
	_ RawAccessor[C.GEOSWKBWriter]    = (*WKBWriter)(nil)
	_ RawMutAccessor[C.GEOSWKBWriter] = (*WKBWriter)(nil)
	_ ContextHandling                 = (*WKBWriter)(nil)
	_ ContextInteractions             = (*WKBWriter)(nil)
)

// NewWKBWriter creates a writer that writes little endian, 2D WKB.
func NewWKBWriter(ctx *ContextHandle) (*WKBWriter, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	ptr := C.GEOSWKBWriter_create_r(ctx.raw())
	if ptr == nil {
		return nil, ctx.newError("geos: could not create WKBWriter")
	}
	C.GEOSWKBWriter_setByteOrder_r(ctx.raw(), ptr, C.GEOS_WKB_NDR)
	return &WKBWriter{
		contextHolder: holdContext(ctx),
		ptr:           ptr,
	}, nil
}

func (w *WKBWriter) Release() {
	if w == nil || w.ptr == nil {
		return
	}
	C.GEOSWKBWriter_destroy_r(w.rawContext(), w.ptr)
	w.ptr = nil
	w.releaseContext()
}

func (w *WKBWriter) check() error {
	if w == nil || w.ptr == nil {
		return ErrReleased
	}
	return nil
}

func (w *WKBWriter) AsRaw() Borrowed[C.GEOSWKBWriter] {
	if w == nil {
		return Borrowed[C.GEOSWKBWriter]{}
	}
	return borrow(w.ptr)
}

func (w *WKBWriter) AsRawMutOverride() *C.GEOSWKBWriter {
	if w == nil {
		return nil
	}
	return w.ptr
}

func (w *WKBWriter) SetOutputDimension(dim int) error {
	if err := w.check(); err != nil {
		return err
	}
	C.GEOSWKBWriter_setOutputDimension_r(w.rawContext(), AsRawMut[C.GEOSWKBWriter](w), C.int(dim))
	return nil
}

func (w *WKBWriter) OutputDimension() (int, error) {
	if err := w.check(); err != nil {
		return 0, err
	}
	return int(C.GEOSWKBWriter_getOutputDimension_r(w.rawContext(), w.AsRaw().raw())), nil
}

func (w *WKBWriter) SetByteOrder(order ByteOrder) error {
	if err := w.check(); err != nil {
		return err
	}
	C.GEOSWKBWriter_setByteOrder_r(w.rawContext(), AsRawMut[C.GEOSWKBWriter](w), C.int(order))
	return nil
}

func (w *WKBWriter) ByteOrder() (ByteOrder, error) {
	if err := w.check(); err != nil {
		return 0, err
	}
	return ByteOrder(C.GEOSWKBWriter_getByteOrder_r(w.rawContext(), w.AsRaw().raw())), nil
}

// SetIncludeSRID writes extended WKB including the geometry SRID when enabled.
func (w *WKBWriter) SetIncludeSRID(include bool) error {
	if err := w.check(); err != nil {
		return err
	}
	C.GEOSWKBWriter_setIncludeSRID_r(w.rawContext(), AsRawMut[C.GEOSWKBWriter](w), cBool(include))
	return nil
}

func (w *WKBWriter) IncludeSRID() (bool, error) {
	if err := w.check(); err != nil {
		return false, err
	}
	return C.GEOSWKBWriter_getIncludeSRID_r(w.rawContext(), w.AsRaw().raw()) == 1, nil
}

// Write writes g as Well-Known Binary.
func (w *WKBWriter) Write(g RawAccessor[C.GEOSGeometry]) ([]byte, error) {
	return w.write(g, false)
}

// WriteHEX writes g as hex encoded Well-Known Binary.
func (w *WKBWriter) WriteHEX(g RawAccessor[C.GEOSGeometry]) (string, error) {
	buf, err := w.write(g, true)
	return string(buf), err
}

func (w *WKBWriter) write(g RawAccessor[C.GEOSGeometry], hex bool) ([]byte, error) {
	if err := w.check(); err != nil {
		return nil, err
	}
	raw, err := checkRaw(g)
	if err != nil {
		return nil, err
	}

	var size C.size_t
	var buf *C.uchar
	if hex {
		buf = C.GEOSWKBWriter_writeHEX_r(w.rawContext(), AsRawMut[C.GEOSWKBWriter](w), raw.raw(), &size)
	} else {
		buf = C.GEOSWKBWriter_write_r(w.rawContext(), AsRawMut[C.GEOSWKBWriter](w), raw.raw(), &size)
	}
	if buf == nil {
		return nil, w.ctx.newError("geos: could not write WKB")
	}
	defer C.GEOSFree_r(w.rawContext(), unsafe.Pointer(buf))

	return C.GoBytes(unsafe.Pointer(buf), C.int(size)), nil
}

// WriteGeom converts g to a go-geom geometry by way of WKB.
func (w *WKBWriter) WriteGeom(g RawAccessor[C.GEOSGeometry]) (geom.T, error) {
	buf, err := w.Write(g)
	if err != nil {
		return nil, err
	}
	out, err := wkb.Unmarshal(buf)
	if err != nil {
		return nil, errors.Wrap(err, "geos: could not decode WKB")
	}
	return out, nil
}
