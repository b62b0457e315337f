package deferred

import (
	"reflect"

	"github.com/joeycumines/go-deferred/value"
)

// handleType is the runtime type tag routing the "is x a handle to a
// Deferred of this library?" check in resolve, without inheritance or
// dynamic interface discovery — foreign thenables are out of scope (§1).
var handleType = reflect.TypeOf(Handle{})

// resolve is the Resolution Procedure: given a downstream Deferred p and a
// value x produced by a settled continuation's callback, it decides whether
// p fulfills with x directly, or adopts the state of the Deferred x wraps.
func resolve(p *Deferred, x value.Value) {
	if !x.HasSameType(handleType) {
		p.fulfill(x)
		return
	}

	h, err := value.ExtractAs[Handle](x)
	if err != nil {
		// HasSameType already matched the tag, so this cannot happen in
		// practice; fulfilling with x preserves forward progress either way.
		p.fulfill(x)
		return
	}

	q := h.d
	if q == p {
		log().Warning().Log(`deferred: rejecting self-adoption`)
		p.reject(selfAdoptionReason)
		return
	}

	q.adoptedBy(p)
}

// adoptedBy makes p mirror q's eventual outcome. If q is already settled,
// p is settled immediately with the same payload. If q is pending, a
// forwarding continuation (no callbacks, downstream p) is appended to q's
// list: when q later settles, the absent-callback rules in fireFulfill and
// fireReject propagate the value or reason to p directly.
func (q *Deferred) adoptedBy(p *Deferred) {
	q.mu.Lock()
	switch q.state {
	case Fulfilled:
		v := q.val
		q.mu.Unlock()
		p.fulfill(v)
	case Rejected:
		r := q.reason
		q.mu.Unlock()
		p.reject(r)
	default: // Pending
		q.conts = append(q.conts, continuation{downstream: p})
		q.mu.Unlock()
	}
}
