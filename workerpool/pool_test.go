package workerpool

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitRunsWork(t *testing.T) {
	p := New(WithSize(4))
	defer p.Shutdown()

	var n atomic.Int64
	var wg sync.WaitGroup
	wg.Add(10)
	for i := 0; i < 10; i++ {
		p.Submit(func() {
			n.Add(1)
			wg.Done()
		})
	}
	wg.Wait()
	assert.EqualValues(t, 10, n.Load())
}

func TestFIFOPerSubmitter(t *testing.T) {
	p := New(WithSize(1)) // single worker: submissions from one goroutine must run in order
	defer p.Shutdown()

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup
	wg.Add(5)
	for i := 0; i < 5; i++ {
		i := i
		p.Submit(func() {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			wg.Done()
		})
	}
	wg.Wait()

	require.Len(t, order, 5)
	for i, v := range order {
		assert.Equal(t, i, v)
	}
}

func TestShutdownDropsQueuedWork(t *testing.T) {
	p := New(WithSize(1))

	blocking := make(chan struct{})
	var ran atomic.Bool

	// occupy the single worker so subsequent submissions stay queued
	p.Submit(func() {
		<-blocking
	})
	p.Submit(func() {
		ran.Store(true)
	})

	done := make(chan struct{})
	go func() {
		p.Shutdown()
		close(done)
	}()

	// give Shutdown a moment to mark the pool closed before releasing the
	// in-flight item, so the queued item is dropped rather than raced.
	time.Sleep(10 * time.Millisecond)
	close(blocking)
	<-done

	assert.False(t, ran.Load(), "queued work must be dropped on shutdown")
}

func TestDefaultIsSingleton(t *testing.T) {
	assert.Same(t, Default(), Default())
}
