package deferred

import (
	"sync"

	"github.com/joeycumines/go-deferred/value"
)

// All returns a Handle that fulfills with a []value.Value of every input
// Handle's value, in input order, once all of them fulfill, or rejects with
// the Reason of whichever input rejects first.
//
// All is built entirely from New/Then/Fulfilled/Rejected; it does not change
// the core's settlement or resolution semantics.
func All(handles []Handle, opts ...Option) Handle {
	if len(handles) == 0 {
		return Fulfilled(value.Of([]value.Value{}), opts...)
	}

	h, err := New(func(fulfill Fulfill, reject Reject) {
		var (
			mu        sync.Mutex
			results   = make([]value.Value, len(handles))
			remaining = len(handles)
			done      bool
		)
		for i, in := range handles {
			i := i
			in.Then(
				func(v value.Value) (value.Value, error) {
					mu.Lock()
					defer mu.Unlock()
					if done {
						return value.Value{}, nil
					}
					results[i] = v
					remaining--
					if remaining == 0 {
						done = true
						fulfill(value.Of(results))
					}
					return value.Value{}, nil
				},
				func(r Reason) (value.Value, error) {
					mu.Lock()
					defer mu.Unlock()
					if !done {
						done = true
						reject(r)
					}
					return value.Value{}, nil
				},
			)
		}
	}, opts...)
	if err != nil {
		// producer is never nil above.
		panic(err)
	}
	return h
}

// Race returns a Handle that settles identically to whichever input Handle
// settles first, fulfilled or rejected.
func Race(handles []Handle, opts ...Option) Handle {
	h, err := New(func(fulfill Fulfill, reject Reject) {
		var (
			mu   sync.Mutex
			done bool
		)
		for _, in := range handles {
			in.Then(
				func(v value.Value) (value.Value, error) {
					mu.Lock()
					defer mu.Unlock()
					if !done {
						done = true
						fulfill(v)
					}
					return value.Value{}, nil
				},
				func(r Reason) (value.Value, error) {
					mu.Lock()
					defer mu.Unlock()
					if !done {
						done = true
						reject(r)
					}
					return value.Value{}, nil
				},
			)
		}
	}, opts...)
	if err != nil {
		panic(err)
	}
	return h
}

// Settlement mirrors Outcome, recording how one of the Handles given to
// AllSettled came to rest.
type Settlement struct {
	State  State
	Value  value.Value
	Reason Reason
}

// AllSettled returns a Handle that always fulfills, once every input Handle
// has settled, with a []Settlement in input order describing how each one
// settled.
func AllSettled(handles []Handle, opts ...Option) Handle {
	if len(handles) == 0 {
		return Fulfilled(value.Of([]Settlement{}), opts...)
	}

	h, err := New(func(fulfill Fulfill, _ Reject) {
		var (
			mu        sync.Mutex
			results   = make([]Settlement, len(handles))
			remaining = len(handles)
		)
		for i, in := range handles {
			i := i
			in.Then(
				func(v value.Value) (value.Value, error) {
					mu.Lock()
					defer mu.Unlock()
					results[i] = Settlement{State: Fulfilled, Value: v}
					remaining--
					if remaining == 0 {
						fulfill(value.Of(results))
					}
					return value.Value{}, nil
				},
				func(r Reason) (value.Value, error) {
					mu.Lock()
					defer mu.Unlock()
					results[i] = Settlement{State: Rejected, Reason: r}
					remaining--
					if remaining == 0 {
						fulfill(value.Of(results))
					}
					return value.Value{}, nil
				},
			)
		}
	}, opts...)
	if err != nil {
		panic(err)
	}
	return h
}
