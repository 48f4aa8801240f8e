package geos

import "github.com/cockroachdb/errors"

// ErrReleased is returned when a wrapper is used after Release().
var ErrReleased = errors.New("geos: object has already been released")

// ErrTreeBuilt is returned when inserting into an STRtree that has already
// been queried.
var ErrTreeBuilt = errors.New("geos: STRtree cannot be modified after it has been queried")

// charResult converts the result of a GEOS predicate (0: false, 1: true,
// 2: exception) to a bool.
func charResult(ctx *ContextHandle, result byte, op string) (bool, error) {
	switch result {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, ctx.newError("geos: %s failed", op)
	}
}
