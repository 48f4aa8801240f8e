package geos

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

func newTestContext(t *testing.T, opts ...ContextOption) *ContextHandle {
	t.Helper()
	ctx, err := NewContextHandle(opts...)
	require.NoError(t, err)
	t.Cleanup(ctx.Release)
	return ctx
}

func Test_ContextHandle_NoMessages(t *testing.T) {
	ctx := newTestContext(t)

	msg, ok := ctx.LastError()
	require.False(t, ok)
	require.Empty(t, msg)

	msg, ok = ctx.LastNotification()
	require.False(t, ok)
	require.Empty(t, msg)
}

func Test_ContextHandle_LastMessageIsConsumed(t *testing.T) {
	ctx := newTestContext(t)

	ctx.recordError("first")
	ctx.recordError("second")
	ctx.recordNotification("notice")

	msg, ok := ctx.LastError()
	require.True(t, ok)
	require.Equal(t, "second", msg)

	_, ok = ctx.LastError()
	require.False(t, ok)

	msg, ok = ctx.LastNotification()
	require.True(t, ok)
	require.Equal(t, "notice", msg)

	_, ok = ctx.LastNotification()
	require.False(t, ok)
}

func Test_ContextHandle_Handlers(t *testing.T) {
	var errs, notices []string
	ctx := newTestContext(t,
		WithErrorHandler(func(message string) { errs = append(errs, message) }),
		WithNoticeHandler(func(message string) { notices = append(notices, message) }),
	)

	ctx.recordError("bad")
	ctx.recordNotification("note")
	require.Equal(t, []string{"bad"}, errs)
	require.Equal(t, []string{"note"}, notices)

	ctx.SetErrorMessageHandler(nil)
	ctx.recordError("ignored")
	require.Equal(t, []string{"bad"}, errs)

	// the message is still recorded without a handler
	msg, ok := ctx.LastError()
	require.True(t, ok)
	require.Equal(t, "ignored", msg)
}

func Test_ContextHandle_CloneIsIndependent(t *testing.T) {
	ctx := newTestContext(t)
	ctx.recordError("before clone")

	clone, err := ctx.Clone()
	require.NoError(t, err)
	defer clone.Release()

	require.NotEqual(t, ctx.raw(), clone.raw())

	// messages are not carried over
	_, ok := clone.LastError()
	require.False(t, ok)

	clone.recordError("on clone")
	clone.recordNotification("notice on clone")

	msg, ok := ctx.LastError()
	require.True(t, ok)
	require.Equal(t, "before clone", msg)
	_, ok = ctx.LastNotification()
	require.False(t, ok)

	msg, ok = clone.LastError()
	require.True(t, ok)
	require.Equal(t, "on clone", msg)
}

func Test_ContextHandle_NativeErrorIsRecorded(t *testing.T) {
	ctx := newTestContext(t)

	_, err := NewGeometryFromWKT(ctx, "POLYGON((0 0, 1 1")
	require.Error(t, err)

	var geosErr GEOSError
	require.True(t, errors.As(err, &geosErr))
	require.Contains(t, string(geosErr), "ParseException")

	// the message was consumed as the cause of err
	_, ok := ctx.LastError()
	require.False(t, ok)
}

func Test_ContextHandle_ReferenceCounting(t *testing.T) {
	ctx, err := NewContextHandle()
	require.NoError(t, err)

	g, err := NewPoint(ctx, 1, 2)
	require.NoError(t, err)
	require.EqualValues(t, 2, ctx.refs.Load())

	// the geometry keeps the native context alive
	ctx.Release()
	require.NotNil(t, ctx.raw())
	wkt, err := g.ToWKT()
	require.NoError(t, err)
	require.Equal(t, "POINT (1 2)", wkt)

	g.Release()
	require.Nil(t, ctx.raw())
	require.EqualValues(t, 0, ctx.refs.Load())
}

func Test_ContextInteractions(t *testing.T) {
	ctx := newTestContext(t)
	other := newTestContext(t)

	g, err := NewPoint(ctx, 0, 0)
	require.NoError(t, err)
	defer g.Release()

	var interactions ContextInteractions = g
	require.Same(t, ctx, interactions.ContextHandle())

	ctx.recordNotification("from ctx")
	msg, ok := interactions.LastNotification()
	require.True(t, ok)
	require.Equal(t, "from ctx", msg)

	interactions.SetContextHandle(other)
	require.Same(t, other, interactions.ContextHandle())
	require.EqualValues(t, 1, ctx.refs.Load())
	require.EqualValues(t, 2, other.refs.Load())

	// nil leaves the held context in place
	interactions.SetContextHandle(nil)
	require.Same(t, other, interactions.ContextHandle())
	require.EqualValues(t, 2, other.refs.Load())

	other.recordError("from other")
	msg, ok = interactions.LastError()
	require.True(t, ok)
	require.Equal(t, "from other", msg)
}

func Test_ContextHandling_CloneContext(t *testing.T) {
	ctx := newTestContext(t)

	g, err := NewPoint(ctx, 0, 0)
	require.NoError(t, err)
	defer g.Release()

	var handling ContextHandling = g
	require.Equal(t, ctx.raw(), handling.rawContext())

	clone, err := handling.CloneContext()
	require.NoError(t, err)
	defer clone.Release()
	require.NotEqual(t, handling.rawContext(), clone.raw())

	clone.recordError("clone only")
	_, ok := g.LastError()
	require.False(t, ok)
}
