package deferred

import "github.com/joeycumines/go-deferred/value"

// Outcome is the settled payload delivered by ToChannel.
type Outcome struct {
	State  State
	Value  value.Value
	Reason Reason
}

// ToChannel returns a channel that receives h's Outcome once it settles,
// then is closed. The channel is buffered (capacity 1), so the worker
// goroutine delivering the outcome never blocks on a slow receiver.
//
// This is a convenience built entirely on Then; it is not a synchronous
// "wait for result" accessor on the core (the core offers none, per §1) —
// callers still choose when, or whether, to receive from the channel.
func (h Handle) ToChannel() <-chan Outcome {
	ch := make(chan Outcome, 1)
	h.Then(
		func(v value.Value) (value.Value, error) {
			ch <- Outcome{State: Fulfilled, Value: v}
			close(ch)
			return v, nil
		},
		func(r Reason) (value.Value, error) {
			ch <- Outcome{State: Rejected, Reason: r}
			close(ch)
			return value.Value{}, r
		},
	)
	return ch
}
