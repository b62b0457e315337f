// Package workerpool implements a fixed-size pool of goroutines that
// execute submitted work items concurrently.
//
// Submission is non-blocking: items are appended to an unbounded internal
// queue and dequeued FIFO by whichever worker goes looking for work next.
// There is no ordering guarantee across submissions made by different
// goroutines, only within a single submitter's sequence of Submit calls
// relative to each other (they are appended, and therefore dequeued, in the
// order Submit was called).
package workerpool

import "sync"

// defaultSize is the default number of worker goroutines, matching the
// Worker Pool's documented default capacity.
const defaultSize = 32

// Option configures a Pool constructed by New.
type Option func(*config)

type config struct {
	size int
}

// WithSize overrides the number of worker goroutines. Non-positive values
// are ignored and the default is kept.
func WithSize(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.size = n
		}
	}
}

// Pool is a fixed-size set of worker goroutines draining an unbounded FIFO
// queue of work items.
type Pool struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []func()
	closed bool
	wg     sync.WaitGroup
}

// New starts a Pool with defaultSize workers, or as configured by opts.
func New(opts ...Option) *Pool {
	c := config{size: defaultSize}
	for _, opt := range opts {
		opt(&c)
	}

	p := &Pool{}
	p.cond = sync.NewCond(&p.mu)

	p.wg.Add(c.size)
	for i := 0; i < c.size; i++ {
		go p.worker()
	}
	return p
}

// Submit appends work to the queue. It never blocks. work must take no
// arguments and return nothing; it is run on whichever worker goroutine
// dequeues it.
//
// Submit on a pool that has already been shut down silently drops work, the
// same as work still queued at the moment Shutdown is called.
func (p *Pool) Submit(work func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.queue = append(p.queue, work)
	p.cond.Signal()
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		p.mu.Lock()
		for len(p.queue) == 0 && !p.closed {
			p.cond.Wait()
		}
		if len(p.queue) == 0 {
			// closed, queue drained: drop out.
			p.mu.Unlock()
			return
		}
		work := p.queue[0]
		p.queue[0] = nil
		p.queue = p.queue[1:]
		p.mu.Unlock()

		work()
	}
}

// Shutdown wakes every worker. Workers finish whatever item they are
// currently running and then exit; items still sitting in the queue are
// dropped without running. Shutdown blocks until every worker has exited.
//
// Callers must not submit work they expect to run after calling Shutdown,
// and must keep a Pool alive for as long as any in-flight Deferred chain may
// still need to schedule continuations on it.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	p.closed = true
	p.queue = nil
	p.cond.Broadcast()
	p.mu.Unlock()

	p.wg.Wait()
}

var (
	defaultOnce sync.Once
	defaultPool *Pool
)

// Default returns the process-wide Pool, lazily initialized on first use
// with defaultSize workers. Every Deferred in the process shares this one
// Pool unless constructed against an explicit alternative (see
// [github.com/joeycumines/go-deferred/deferred.WithPool]).
func Default() *Pool {
	defaultOnce.Do(func() {
		defaultPool = New()
	})
	return defaultPool
}
