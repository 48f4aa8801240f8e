package geos

// #include "geos.h"
import "C"
import (
	"runtime/cgo"
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// MessageHandler receives a message emitted by GEOS.
type MessageHandler func(message string)

// ContextOption configures a ContextHandle.
type ContextOption func(*ContextHandle)

// WithLogger sets the logger used to log GEOS errors and notices.
func WithLogger(logger zerolog.Logger) ContextOption {
	return func(c *ContextHandle) {
		c.logger = logger
	}
}

// WithErrorHandler sets a callback that is called for every GEOS error.
func WithErrorHandler(handler MessageHandler) ContextOption {
	return func(c *ContextHandle) {
		c.errorHandler = handler
	}
}

// WithNoticeHandler sets a callback that is called for every GEOS notice.
func WithNoticeHandler(handler MessageHandler) ContextOption {
	return func(c *ContextHandle) {
		c.noticeHandler = handler
	}
}

// ContextHandle wraps a GEOS context (GEOSContextHandle_t) and records the
// last error and notice emitted by native calls made with it.
//
// A ContextHandle must only be used by one sequence of native calls at a
// time. Use Clone to get an independent context for another goroutine.
//
// ContextHandle is reference counted: the caller of NewContextHandle (or
// Clone) holds one reference and every wrapper created with it holds
// another. The native context is destroyed once all of them are released.
type ContextHandle struct {
	ptr    C.GEOSContextHandle_t
	handle cgo.Handle
	refs   atomic.Int32
	logger zerolog.Logger

	mu               sync.Mutex
	lastError        *string
	lastNotification *string
	errorHandler     MessageHandler
	noticeHandler    MessageHandler
}

// NewContextHandle creates a new GEOS context.
// The ContextHandle must be freed manually using Release().
func NewContextHandle(opts ...ContextOption) (*ContextHandle, error) {
	c := &ContextHandle{
		logger: log.Logger,
	}
	for _, opt := range opts {
		opt(c)
	}

	if err := c.init(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *ContextHandle) init() error {
	ptr := C.GEOS_init_r()
	if ptr == nil {
		return errors.New("geos: could not initialize GEOS context")
	}

	c.ptr = ptr
	c.handle = cgo.NewHandle(c)
	c.refs.Store(1)
	C.set_message_handlers(ptr, C.uintptr_t(c.handle))
	return nil
}

// Clone creates a new, independent GEOS context with the same logger and
// message handlers. Messages recorded on c are not carried over, and
// messages recorded on either context afterwards are never visible on the
// other.
// The returned ContextHandle must be freed manually using Release().
func (c *ContextHandle) Clone() (*ContextHandle, error) {
	if c == nil || c.ptr == nil {
		return nil, ErrReleased
	}

	c.mu.Lock()
	clone := &ContextHandle{
		logger:        c.logger,
		errorHandler:  c.errorHandler,
		noticeHandler: c.noticeHandler,
	}
	c.mu.Unlock()

	if err := clone.init(); err != nil {
		return nil, err
	}
	return clone, nil
}

func (c *ContextHandle) retain() *ContextHandle {
	if c.refs.Add(1) <= 1 {
		panic(errors.AssertionFailedf("geos: retained a released ContextHandle"))
	}
	return c
}

// Release drops a reference to the context. The native context is destroyed
// when the last reference is released.
func (c *ContextHandle) Release() {
	if c == nil {
		return
	}

	refs := c.refs.Add(-1)
	if refs > 0 {
		return
	}
	if refs < 0 {
		panic(errors.AssertionFailedf("geos: ContextHandle released more times than it was retained"))
	}

	C.clear_message_handlers(c.ptr)
	C.GEOS_finish_r(c.ptr)
	c.handle.Delete()
	c.ptr = nil
}

func (c *ContextHandle) raw() C.GEOSContextHandle_t {
	return c.ptr
}

// Logger returns the logger used by this context.
func (c *ContextHandle) Logger() *zerolog.Logger {
	return &c.logger
}

// SetErrorMessageHandler sets a callback that is called for every GEOS error
// emitted on this context, after the error is recorded. Pass nil to remove it.
func (c *ContextHandle) SetErrorMessageHandler(handler MessageHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errorHandler = handler
}

// SetNoticeMessageHandler sets a callback that is called for every GEOS
// notice emitted on this context, after the notice is recorded. Pass nil to
// remove it.
func (c *ContextHandle) SetNoticeMessageHandler(handler MessageHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.noticeHandler = handler
}

// LastError returns the last error recorded on this context and clears it.
// Returns false if no error was recorded since the last call.
func (c *ContextHandle) LastError() (string, bool) {
	if c == nil {
		return "", false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return take(&c.lastError)
}

// LastNotification returns the last notice recorded on this context and
// clears it. Returns false if no notice was recorded since the last call.
func (c *ContextHandle) LastNotification() (string, bool) {
	if c == nil {
		return "", false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return take(&c.lastNotification)
}

func take(message **string) (string, bool) {
	if *message == nil {
		return "", false
	}
	value := **message
	*message = nil
	return value, true
}

func (c *ContextHandle) recordError(message string) {
	c.mu.Lock()
	c.lastError = &message
	handler := c.errorHandler
	c.mu.Unlock()

	c.logger.Debug().Str("geos", "error").Msg(message)
	if handler != nil {
		handler(message)
	}
}

func (c *ContextHandle) recordNotification(message string) {
	c.mu.Lock()
	c.lastNotification = &message
	handler := c.noticeHandler
	c.mu.Unlock()

	c.logger.Debug().Str("geos", "notice").Msg(message)
	if handler != nil {
		handler(message)
	}
}

// newError builds the error for a failed native call. The last error
// recorded on the context, if any, is consumed and becomes the cause.
func (c *ContextHandle) newError(format string, args ...interface{}) error {
	if message, ok := c.LastError(); ok {
		return errors.Wrapf(GEOSError(message), format, args...)
	}
	return errors.Newf(format, args...)
}

// ContextHandling is implemented by every wrapper that makes native calls.
type ContextHandling interface {
	// rawContext returns the native context passed to GEOS *_r functions.
	rawContext() C.GEOSContextHandle_t
	// CloneContext returns an independent copy of the wrapper's context, for
	// derived objects that must not share state with the wrapper.
	CloneContext() (*ContextHandle, error)
}

// ContextInteractions gives access to the ContextHandle held by a wrapper.
type ContextInteractions interface {
	SetContextHandle(ctx *ContextHandle)
	ContextHandle() *ContextHandle
	// LastError is a shortcut for ContextHandle().LastError().
	LastError() (string, bool)
	// LastNotification is a shortcut for ContextHandle().LastNotification().
	LastNotification() (string, bool)
}

// contextHolder implements ContextHandling and ContextInteractions for the
// wrappers that embed it.
type contextHolder struct {
	ctx *ContextHandle
}

func holdContext(ctx *ContextHandle) contextHolder {
	return contextHolder{ctx: ctx.retain()}
}

func (h *contextHolder) rawContext() C.GEOSContextHandle_t {
	return h.ctx.raw()
}

func (h *contextHolder) CloneContext() (*ContextHandle, error) {
	return h.ctx.Clone()
}

// SetContextHandle replaces the held context. A nil ctx is ignored.
func (h *contextHolder) SetContextHandle(ctx *ContextHandle) {
	if ctx == nil {
		return
	}
	ctx.retain()
	h.ctx.Release()
	h.ctx = ctx
}

func (h *contextHolder) ContextHandle() *ContextHandle {
	return h.ctx
}

func (h *contextHolder) LastError() (string, bool) {
	return h.ctx.LastError()
}

func (h *contextHolder) LastNotification() (string, bool) {
	return h.ctx.LastNotification()
}

func (h *contextHolder) releaseContext() {
	h.ctx.Release()
	h.ctx = nil
}
