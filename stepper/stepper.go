// Package stepper is a cooperative step-runner helper: it lets a single
// goroutine drive a sequential chain of Handles without ever blocking a
// worker-pool goroutine. It is an external collaborator of the deferred
// core, built entirely on Handle's public surface (Then/ToChannel); it adds
// no new settlement or resolution semantics.
package stepper

import (
	"context"
	"fmt"

	"github.com/joeycumines/go-deferred/deferred"
	"github.com/joeycumines/go-deferred/value"
	"golang.org/x/sync/errgroup"
)

// Step is handed to the function passed to Run, and exposes the Await
// operations a step-by-step async pipeline needs.
type Step struct {
	ctx context.Context
}

// Context returns the context Run was given.
func (s *Step) Context() context.Context {
	return s.ctx
}

// Run invokes fn on the calling goroutine, passing it a Step bound to ctx.
// fn is free to call Step.Await/AwaitAll any number of times, in sequence,
// describing a synchronous-looking pipeline over asynchronous Handles.
func Run(ctx context.Context, fn func(s *Step) error) error {
	return fn(&Step{ctx: ctx})
}

// Await blocks the calling goroutine until h settles, or until the Step's
// context is cancelled. The blocking happens on the goroutine that calls
// Await, never on a worker-pool goroutine.
func (s *Step) Await(h deferred.Handle) (value.Value, error) {
	select {
	case <-s.ctx.Done():
		return value.Value{}, s.ctx.Err()
	case o := <-h.ToChannel():
		if o.State == deferred.Rejected {
			return value.Value{}, o.Reason
		}
		return o.Value, nil
	}
}

// AwaitAll awaits every Handle in hs concurrently (via golang.org/x/sync's
// errgroup), returning their values in input order. On the first rejection
// it returns an error that names the handle's index and wraps its Reason,
// cancelling the wait for the others.
func (s *Step) AwaitAll(hs []deferred.Handle) ([]value.Value, error) {
	results := make([]value.Value, len(hs))

	g, ctx := errgroup.WithContext(s.ctx)
	sub := &Step{ctx: ctx}
	for i, h := range hs {
		i, h := i, h
		g.Go(func() error {
			v, err := sub.Await(h)
			if err != nil {
				return fmt.Errorf("stepper: awaiting handle %d: %w", i, err)
			}
			results[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
