package geos

// #include "geos.h"
import "C"
import "github.com/cockroachdb/errors"

// CoordSeq owns a GEOS coordinate sequence (GEOSCoordSequence).
// CoordSeq must be manually freed using Release(), unless ownership has been
// transferred to a geometry.
type CoordSeq struct {
	contextHolder
	ptr *C.GEOSCoordSequence
}

var (
	_ RawAccessor[C.GEOSCoordSequence]    = (*CoordSeq)(nil)
	_ RawMutAccessor[C.GEOSCoordSequence] = (*CoordSeq)(nil)
	_ ContextHandling                     = (*CoordSeq)(nil)
	_ ContextInteractions                 = (*CoordSeq)(nil)
)

// NewCoordSeq creates a coordinate sequence of size coordinates with dims
// dimensions (2 or 3).
func NewCoordSeq(ctx *ContextHandle, size, dims uint32) (*CoordSeq, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	ptr := C.GEOSCoordSeq_create_r(ctx.raw(), C.uint(size), C.uint(dims))
	if ptr == nil {
		return nil, ctx.newError("geos: could not create CoordSeq")
	}
	return &CoordSeq{
		contextHolder: holdContext(ctx),
		ptr:           ptr,
	}, nil
}

// NewCoordSeqFromXY creates a 2D coordinate sequence from x, y pairs.
func NewCoordSeqFromXY(ctx *ContextHandle, coords [][2]float64) (*CoordSeq, error) {
	seq, err := NewCoordSeq(ctx, uint32(len(coords)), 2)
	if err != nil {
		return nil, err
	}
	for i, c := range coords {
		if err := seq.SetXY(uint32(i), c[0], c[1]); err != nil {
			seq.Release()
			return nil, err
		}
	}
	return seq, nil
}

func (s *CoordSeq) Release() {
	if s == nil || s.ctx == nil {
		return
	}
	if s.ptr != nil {
		C.GEOSCoordSeq_destroy_r(s.rawContext(), s.ptr)
		s.ptr = nil
	}
	s.releaseContext()
}

// take hands the native sequence over to a GEOS constructor that takes
// ownership of it. Release() is still needed to drop the context reference.
func (s *CoordSeq) take() *C.GEOSCoordSequence {
	ptr := s.ptr
	s.ptr = nil
	return ptr
}

func (s *CoordSeq) check() error {
	if s == nil || s.ptr == nil {
		return ErrReleased
	}
	return nil
}

func (s *CoordSeq) AsRaw() Borrowed[C.GEOSCoordSequence] {
	if s == nil {
		return Borrowed[C.GEOSCoordSequence]{}
	}
	return borrow(s.ptr)
}

func (s *CoordSeq) AsRawMutOverride() *C.GEOSCoordSequence {
	if s == nil {
		return nil
	}
	return s.ptr
}

func (s *CoordSeq) Size() (uint32, error) {
	if err := s.check(); err != nil {
		return 0, err
	}
	var size C.uint
	if C.GEOSCoordSeq_getSize_r(s.rawContext(), s.AsRaw().raw(), &size) == 0 {
		return 0, s.ctx.newError("geos: could not get CoordSeq size")
	}
	return uint32(size), nil
}

// GEOS does not check coordinate indexes.
func (s *CoordSeq) checkIndex(i uint32) error {
	size, err := s.Size()
	if err != nil {
		return err
	}
	if i >= size {
		return errors.Newf("geos: coordinate index %d out of range for CoordSeq of size %d", i, size)
	}
	return nil
}

func (s *CoordSeq) SetXY(i uint32, x, y float64) error {
	if err := s.checkIndex(i); err != nil {
		return err
	}
	if C.GEOSCoordSeq_setXY_r(s.rawContext(), AsRawMut[C.GEOSCoordSequence](s), C.uint(i), C.double(x), C.double(y)) == 0 {
		return s.ctx.newError("geos: could not set coordinate %d", i)
	}
	return nil
}

func (s *CoordSeq) XY(i uint32) (float64, float64, error) {
	if err := s.checkIndex(i); err != nil {
		return 0, 0, err
	}
	var x, y C.double
	if C.GEOSCoordSeq_getXY_r(s.rawContext(), s.AsRaw().raw(), C.uint(i), &x, &y) == 0 {
		return 0, 0, s.ctx.newError("geos: could not get coordinate %d", i)
	}
	return float64(x), float64(y), nil
}
