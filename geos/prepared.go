package geos

// #include "geos.h"
import "C"

// PreparedGeometry owns a GEOS prepared geometry, which speeds up repeated
// predicates against the same geometry. GEOS only hands out const prepared
// geometries, so there is no mutable accessor.
// PreparedGeometry must be manually freed using Release(), and must be
// released before the Geometry it was prepared from.
type PreparedGeometry struct {
	contextHolder
	ptr    *C.GEOSPreparedGeometry
	parent *Geometry
}

var (
	_ RawAccessor[C.GEOSPreparedGeometry] = (*PreparedGeometry)(nil)
	_ ContextHandling                     = (*PreparedGeometry)(nil)
	_ ContextInteractions                 = (*PreparedGeometry)(nil)
)

// Prepare creates a PreparedGeometry that shares g's context.
func (g *Geometry) Prepare() (*PreparedGeometry, error) {
	if err := g.check(); err != nil {
		return nil, err
	}
	ptr := C.GEOSPrepare_r(g.rawContext(), g.AsRaw().raw())
	if ptr == nil {
		return nil, g.ctx.newError("geos: prepare failed")
	}
	return &PreparedGeometry{
		contextHolder: holdContext(g.ctx),
		ptr:           ptr,
		parent:        g,
	}, nil
}

func (p *PreparedGeometry) Release() {
	if p == nil || p.ptr == nil {
		return
	}
	C.GEOSPreparedGeom_destroy_r(p.rawContext(), p.ptr)
	p.ptr = nil
	p.parent = nil
	p.releaseContext()
}

func (p *PreparedGeometry) check() error {
	if p == nil || p.ptr == nil || p.parent.check() != nil {
		return ErrReleased
	}
	return nil
}

func (p *PreparedGeometry) AsRaw() Borrowed[C.GEOSPreparedGeometry] {
	if p == nil {
		return Borrowed[C.GEOSPreparedGeometry]{}
	}
	return borrow(p.ptr)
}

func (p *PreparedGeometry) Intersects(other RawAccessor[C.GEOSGeometry]) (bool, error) {
	raw, err := p.checkOther(other)
	if err != nil {
		return false, err
	}
	return charResult(p.ctx, byte(C.GEOSPreparedIntersects_r(p.rawContext(), p.AsRaw().raw(), raw.raw())), "prepared intersects")
}

func (p *PreparedGeometry) Contains(other RawAccessor[C.GEOSGeometry]) (bool, error) {
	raw, err := p.checkOther(other)
	if err != nil {
		return false, err
	}
	return charResult(p.ctx, byte(C.GEOSPreparedContains_r(p.rawContext(), p.AsRaw().raw(), raw.raw())), "prepared contains")
}

// ContainsProperly returns true if other is within the interior of the
// prepared geometry, without touching its boundary.
func (p *PreparedGeometry) ContainsProperly(other RawAccessor[C.GEOSGeometry]) (bool, error) {
	raw, err := p.checkOther(other)
	if err != nil {
		return false, err
	}
	return charResult(p.ctx, byte(C.GEOSPreparedContainsProperly_r(p.rawContext(), p.AsRaw().raw(), raw.raw())), "prepared containsProperly")
}

func (p *PreparedGeometry) checkOther(other RawAccessor[C.GEOSGeometry]) (Borrowed[C.GEOSGeometry], error) {
	if err := p.check(); err != nil {
		return Borrowed[C.GEOSGeometry]{}, err
	}
	return checkRaw(other)
}
