package deferred

import "fmt"

// Reason is the rejection channel's payload: a textual explanation of why a
// Deferred failed, distinct from a fulfillment Value. Reason implements
// error so it composes with errors.Is/errors.As via Unwrap.
type Reason struct {
	text  string
	cause error
}

// NewReason constructs a Reason carrying text, with no wrapped cause.
func NewReason(text string) Reason {
	return Reason{text: text}
}

// ReasonFromError wraps err as a Reason, preserving it as the Unwrap cause.
// A nil err produces the zero Reason.
func ReasonFromError(err error) Reason {
	if err == nil {
		return Reason{}
	}
	return Reason{text: err.Error(), cause: err}
}

// Error implements the error interface.
func (r Reason) Error() string {
	return r.text
}

// Unwrap returns the wrapped cause, if any, for errors.Is/errors.As.
func (r Reason) Unwrap() error {
	return r.cause
}

// unknownReason is used when a callback's failure cannot be classified as
// either a Reason or a diagnosable error.
var unknownReason = NewReason("unknown reason")

// selfAdoptionReason is the Reason a Deferred rejects itself with when a
// callback attempts to resolve it with its own Handle.
var selfAdoptionReason = NewReason("cannot adopt own state")

// classifyCallbackFailure maps whatever a continuation callback failed
// with (a returned error, or a recovered panic value) to a Reason, for
// fireFulfill and fireReject, using a three-way classification: a Reason passes
// through verbatim, any other error is captured by its message, anything
// else becomes unknownReason.
func classifyCallbackFailure(v any) Reason {
	switch e := v.(type) {
	case nil:
		return unknownReason
	case Reason:
		return e
	case error:
		return ReasonFromError(e)
	default:
		return unknownReason
	}
}

// InvalidArgument is raised synchronously for API misuse, such as
// constructing a Deferred with an absent producer.
type InvalidArgument struct {
	Arg string
}

func (e *InvalidArgument) Error() string {
	return fmt.Sprintf("deferred: invalid argument: %s must not be nil", e.Arg)
}
