// Package deferred implements a Promises/A+-style eventual-value
// abstraction: a Deferred carries an outcome (a fulfillment Value or a
// rejection Reason) that becomes known later, and can be chained with
// continuations that run on a shared [github.com/joeycumines/go-deferred/workerpool.Pool]
// once the outcome settles.
//
// The state machine, its lock discipline, and the resolution procedure that
// lets one Deferred adopt the state of another are this package's core; see
// spec §3 and §4 for the invariants it upholds.
package deferred

import (
	"sync"

	"github.com/joeycumines/go-deferred/value"
	"github.com/joeycumines/go-deferred/workerpool"
)

// State is a Deferred's position in its lifecycle.
type State int

const (
	// Pending is the initial state; a Deferred leaves it at most once.
	Pending State = iota
	// Fulfilled is a terminal state carrying a Value.
	Fulfilled
	// Rejected is a terminal state carrying a Reason.
	Rejected
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Fulfilled:
		return "fulfilled"
	case Rejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// OnFulfilled is a continuation callback run when its Deferred fulfills. It
// returns the value to route through the resolution procedure, or a non-nil
// error to reject the downstream Deferred. A nil OnFulfilled propagates the
// value unchanged (see fireFulfill).
type OnFulfilled func(v value.Value) (value.Value, error)

// OnRejected is a continuation callback run when its Deferred rejects. A nil
// OnRejected propagates the Reason unchanged (see fireReject).
type OnRejected func(r Reason) (value.Value, error)

// continuation is the record attached to a pending Deferred: the pair of
// optional callbacks, and the downstream Deferred that receives whichever
// callback's outcome.
type continuation struct {
	onFulfill  OnFulfilled
	onReject   OnRejected
	downstream *Deferred
}

// Deferred is the state machine: current state, its terminal payload, and
// the append-only list of continuations awaiting settlement, all guarded by
// one mutex. Deferred is not constructed directly by users; see [Handle].
type Deferred struct {
	mu     sync.Mutex
	state  State
	val    value.Value
	reason Reason
	conts  []continuation
	pool   *workerpool.Pool
}

func newDeferred(pool *workerpool.Pool) *Deferred {
	if pool == nil {
		pool = workerpool.Default()
	}
	return &Deferred{pool: pool, state: Pending}
}

// snapshot returns the current state and terminal payload without blocking;
// val/reason are only meaningful for the corresponding terminal state.
func (d *Deferred) snapshot() (State, value.Value, Reason) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state, d.val, d.reason
}

// fulfill is the fulfillment settling entry point. A call on an already
// terminal Deferred is a no-op (invariant 1). Otherwise it writes the
// payload, transitions state, and submits one work item per queued
// continuation to the pool, all while still holding the mutex, so the FIFO
// continuation list is scheduled in registration order (invariant 3).
func (d *Deferred) fulfill(v value.Value) {
	d.mu.Lock()
	if d.state != Pending {
		d.mu.Unlock()
		return
	}
	d.state = Fulfilled
	d.val = v
	conts := d.conts
	d.conts = nil

	log().Debug().Int(`continuations`, len(conts)).Log(`deferred: fulfilled, scheduling continuations`)
	for _, c := range conts {
		c := c
		d.pool.Submit(func() { fireFulfill(c.onFulfill, c.downstream, v) })
	}
	d.mu.Unlock()
}

// reject is the rejection settling entry point, symmetric to fulfill.
func (d *Deferred) reject(r Reason) {
	d.mu.Lock()
	if d.state != Pending {
		d.mu.Unlock()
		return
	}
	d.state = Rejected
	d.reason = r
	conts := d.conts
	d.conts = nil

	log().Debug().Int(`continuations`, len(conts)).Str(`reason`, r.Error()).Log(`deferred: rejected, scheduling continuations`)
	for _, c := range conts {
		c := c
		d.pool.Submit(func() { fireReject(c.onReject, c.downstream, r) })
	}
	d.mu.Unlock()
}

// then registers a continuation, returning its new downstream Deferred. If
// this Deferred is pending, the continuation is appended to the list and
// runs when settlement drains it (invariant 3). If already settled, the
// matching fire function is submitted to the pool immediately, without
// touching the continuation list (invariant 4) — this is the fast path that
// makes at-most-once firing mutually exclusive with the scheduling loop
// above: both examine state under the same mutex.
func (d *Deferred) then(onFulfill OnFulfilled, onReject OnRejected) *Deferred {
	down := newDeferred(d.pool)

	d.mu.Lock()
	switch d.state {
	case Pending:
		d.conts = append(d.conts, continuation{onFulfill: onFulfill, onReject: onReject, downstream: down})
		d.mu.Unlock()
	case Fulfilled:
		v := d.val
		d.mu.Unlock()
		d.pool.Submit(func() { fireFulfill(onFulfill, down, v) })
	case Rejected:
		r := d.reason
		d.mu.Unlock()
		d.pool.Submit(func() { fireReject(onReject, down, r) })
	}
	return down
}

// fireFulfill runs a fulfillment continuation on a worker goroutine. An
// absent callback settles down with v unchanged. Otherwise cb's outcome is
// classified: a normal return routes through the resolution procedure
// (which may adopt down into another Deferred); a returned or panicking
// error/Reason rejects down.
func fireFulfill(cb OnFulfilled, down *Deferred, v value.Value) {
	if cb == nil {
		down.fulfill(v)
		return
	}

	x, failure := invokeFulfill(cb, v)
	if failure != nil {
		reason := classifyCallbackFailure(failure)
		log().Warning().Str(`reason`, reason.Error()).Log(`deferred: fulfillment callback failed`)
		down.reject(reason)
		return
	}
	resolve(down, x)
}

// fireReject runs a rejection continuation, symmetric to fireFulfill. An
// absent callback propagates r verbatim.
func fireReject(cb OnRejected, down *Deferred, r Reason) {
	if cb == nil {
		down.reject(r)
		return
	}

	x, failure := invokeReject(cb, r)
	if failure != nil {
		reason := classifyCallbackFailure(failure)
		log().Warning().Str(`reason`, reason.Error()).Log(`deferred: rejection callback failed`)
		down.reject(reason)
		return
	}
	resolve(down, x)
}

// invokeFulfill calls cb, recovering any panic so a misbehaving callback
// cannot crash the worker pool; the panic value is returned as failure for
// classifyCallbackFailure, the same way a returned error is.
func invokeFulfill(cb OnFulfilled, v value.Value) (x value.Value, failure any) {
	defer func() {
		if r := recover(); r != nil {
			failure = r
		}
	}()
	var err error
	x, err = cb(v)
	if err != nil {
		failure = err
	}
	return x, failure
}

func invokeReject(cb OnRejected, r Reason) (x value.Value, failure any) {
	defer func() {
		if p := recover(); p != nil {
			failure = p
		}
	}()
	var err error
	x, err = cb(r)
	if err != nil {
		failure = err
	}
	return x, failure
}
