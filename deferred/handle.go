package deferred

import (
	"github.com/joeycumines/go-deferred/value"
	"github.com/joeycumines/go-deferred/workerpool"
)

// Fulfill settles the Deferred backing a Handle with a Value.
type Fulfill func(v value.Value)

// Reject settles the Deferred backing a Handle with a Reason.
type Reject func(r Reason)

// Producer is invoked synchronously, exactly once, by New, and is handed the
// two settling closures bound to the new Deferred.
type Producer func(fulfill Fulfill, reject Reject)

type options struct {
	pool *workerpool.Pool
}

// Option configures a Handle constructed by New, Fulfilled, or Rejected.
type Option func(*options)

// WithPool attaches an explicit Pool rather than the process-wide default,
// primarily so tests can use a fresh Pool per test instead of the shared
// singleton (see workerpool.Pool's shutdown semantics).
func WithPool(p *workerpool.Pool) Option {
	return func(o *options) { o.pool = p }
}

func resolveOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Handle is a shared-ownership, value-type reference to a Deferred. Copying
// a Handle only copies the pointer: all copies observe the same underlying
// state, and settling through one is visible through every other.
type Handle struct {
	d *Deferred
}

// New constructs a pending Deferred and synchronously invokes producer with
// closures that settle it. producer must not be nil.
func New(producer Producer, opts ...Option) (Handle, error) {
	if producer == nil {
		return Handle{}, &InvalidArgument{Arg: "producer"}
	}

	o := resolveOptions(opts)
	d := newDeferred(o.pool)

	producer(
		// fulfill routes through the resolution procedure, exactly like a
		// continuation callback's return value: a producer that fulfills
		// with a Handle to another Deferred (including itself) triggers
		// adoption, not a literal Value wrapping that Handle.
		func(v value.Value) { resolve(d, v) },
		func(r Reason) { d.reject(r) },
	)

	return Handle{d: d}, nil
}

// Fulfilled constructs a Handle resolved with v: an ordinary value settles
// it immediately, while a Handle wrapped in v is adopted, per the
// resolution procedure.
func Fulfilled(v value.Value, opts ...Option) Handle {
	o := resolveOptions(opts)
	d := newDeferred(o.pool)
	resolve(d, v)
	return Handle{d: d}
}

// Rejected constructs a Handle already settled with r.
func Rejected(r Reason, opts ...Option) Handle {
	o := resolveOptions(opts)
	d := newDeferred(o.pool)
	d.state = Rejected
	d.reason = r
	return Handle{d: d}
}

// Then registers onFulfill/onReject (either may be nil) and returns a Handle
// to the new downstream Deferred. Then never runs user code on the caller's
// goroutine: every callback executes on the Pool backing h.
func (h Handle) Then(onFulfill OnFulfilled, onReject OnRejected) Handle {
	return Handle{d: h.d.then(onFulfill, onReject)}
}

// Catch is Then(nil, onReject): a convenience for attaching only a recovery
// handler.
func (h Handle) Catch(onReject OnRejected) Handle {
	return h.Then(nil, onReject)
}

// Finally runs fn, taking no argument, regardless of whether h fulfills or
// rejects, then re-propagates the original outcome unchanged (fn cannot
// recover a rejection or alter a fulfillment value).
func (h Handle) Finally(fn func()) Handle {
	return h.Then(
		func(v value.Value) (value.Value, error) {
			fn()
			return v, nil
		},
		func(r Reason) (value.Value, error) {
			fn()
			return value.Value{}, r
		},
	)
}

// Equal reports whether h and other share the same underlying Deferred.
func (h Handle) Equal(other Handle) bool {
	return h.d == other.d
}

// State returns h's current state without blocking.
func (h Handle) State() State {
	s, _, _ := h.d.snapshot()
	return s
}

// Value returns h's fulfillment value and true if h is Fulfilled, otherwise
// the zero Value and false. It never blocks.
func (h Handle) Value() (value.Value, bool) {
	s, v, _ := h.d.snapshot()
	return v, s == Fulfilled
}

// Reason returns h's rejection reason and true if h is Rejected, otherwise
// the zero Reason and false. It never blocks.
func (h Handle) Reason() (Reason, bool) {
	s, _, r := h.d.snapshot()
	return r, s == Rejected
}
