package geos

// #include "geos.h"
import "C"
import (
	"sort"
	"sync"
	"unsafe"

	"github.com/cockroachdb/errors"
)

// STRtree owns a GEOS STRtree spatial index of integer indexes.
//
// GEOS keeps pointers to the envelopes of inserted geometries, so every
// inserted geometry must outlive the tree. The tree is built on the first
// query and cannot be modified afterwards. Queries are serialized, so a
// tree may be shared between goroutines.
// STRtree must be manually freed using Release().
type STRtree struct {
	contextHolder
	mu    sync.Mutex
	ptr   *C.GEOSSTRtree
	built bool
}

var (
	_ RawAccessor[C.GEOSSTRtree]    = (*STRtree)(nil)
	_ RawMutAccessor[C.GEOSSTRtree] = (*STRtree)(nil)
	_ ContextHandling               = (*STRtree)(nil)
	_ ContextInteractions           = (*STRtree)(nil)
)

// NewSTRtree creates an empty tree; nodeCapacity is the maximum number of
// children per node (10 is the GEOS default).
func NewSTRtree(ctx *ContextHandle, nodeCapacity int) (*STRtree, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	ptr := C.GEOSSTRtree_create_r(ctx.raw(), C.size_t(nodeCapacity))
	if ptr == nil {
		return nil, ctx.newError("geos: could not create STRtree")
	}
	return &STRtree{
		contextHolder: holdContext(ctx),
		ptr:           ptr,
	}, nil
}

func (t *STRtree) Release() {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ptr == nil {
		return
	}
	C.GEOSSTRtree_destroy_r(t.rawContext(), t.ptr)
	t.ptr = nil
	t.releaseContext()
}

func (t *STRtree) AsRaw() Borrowed[C.GEOSSTRtree] {
	if t == nil {
		return Borrowed[C.GEOSSTRtree]{}
	}
	return borrow(t.ptr)
}

func (t *STRtree) AsRawMutOverride() *C.GEOSSTRtree {
	if t == nil {
		return nil
	}
	return t.ptr
}

// Insert adds the envelope of g to the tree under index.
// Returns ErrTreeBuilt once the tree has been queried.
func (t *STRtree) Insert(g RawAccessor[C.GEOSGeometry], index int) error {
	raw, err := checkRaw(g)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ptr == nil {
		return ErrReleased
	}
	if t.built {
		return ErrTreeBuilt
	}

	// GEOSSTRtree_insert_r has no return value; drop any stale message so
	// that a recorded error belongs to this insert.
	t.ctx.LastError()
	C.strtree_insert_index(t.rawContext(), AsRawMut[C.GEOSSTRtree](t), raw.raw(), C.size_t(index))
	if message, ok := t.ctx.LastError(); ok {
		return errors.Wrapf(GEOSError(message), "geos: could not insert index %d into STRtree", index)
	}
	return nil
}

// Query returns the indexes of all entries whose envelope intersects the
// box xmin, ymin, xmax, ymax, in ascending order.
// Will return nil if there are no results.
func (t *STRtree) Query(xmin, ymin, xmax, ymax float64) ([]int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ptr == nil {
		return nil, ErrReleased
	}

	box, err := NewRectangle(t.ctx, xmin, ymin, xmax, ymax)
	if err != nil {
		return nil, err
	}
	defer box.Release()

	var cArr *C.size_t
	var cSize C.size_t
	// GEOSSTRtree_query_r builds the tree on first use, so it needs the
	// mutable pointer.
	if C.strtree_query_indexes(t.rawContext(), AsRawMut[C.GEOSSTRtree](t), box.AsRaw().raw(), &cArr, &cSize) != 1 {
		return nil, t.ctx.newError("geos: failed during query of tree")
	}
	t.built = true
	if cSize == 0 {
		return nil, nil
	}
	defer C.free(unsafe.Pointer(cArr))

	values := unsafe.Slice(cArr, int(cSize))
	indexes := make([]int, len(values))
	for i, v := range values {
		indexes[i] = int(v)
	}

	// results are in tree-traversal order; put them into incremental order
	sort.Ints(indexes)

	return indexes, nil
}
