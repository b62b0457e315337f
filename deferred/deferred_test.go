package deferred

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/joeycumines/go-deferred/value"
	"github.com/joeycumines/go-deferred/workerpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func freshPool(t *testing.T) *workerpool.Pool {
	p := workerpool.New(workerpool.WithSize(8))
	t.Cleanup(p.Shutdown)
	return p
}

func await(t *testing.T, h Handle) Outcome {
	t.Helper()
	select {
	case o := <-h.ToChannel():
		return o
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for handle to settle")
		panic("unreachable")
	}
}

func TestSingleSettleFulfillThenReject(t *testing.T) {
	pool := freshPool(t)
	h, err := New(func(fulfill Fulfill, reject Reject) {
		fulfill(value.Of(1))
		reject(NewReason("ignored"))
	}, WithPool(pool))
	require.NoError(t, err)

	o := await(t, h)
	assert.Equal(t, Fulfilled, o.State)
	v, _ := value.ExtractAs[int](o.Value)
	assert.Equal(t, 1, v)
}

func TestSingleSettleConcurrent(t *testing.T) {
	pool := freshPool(t)
	for i := 0; i < 200; i++ {
		d := newDeferred(pool)
		var wg sync.WaitGroup
		wg.Add(2)
		go func() { defer wg.Done(); d.fulfill(value.Of(1)) }()
		go func() { defer wg.Done(); d.reject(NewReason("x")) }()
		wg.Wait()

		state, _, _ := d.snapshot()
		assert.Contains(t, []State{Fulfilled, Rejected}, state)
	}
}

func TestAtMostOnceContinuation(t *testing.T) {
	pool := freshPool(t)
	h := Fulfilled(value.Of(1), WithPool(pool))

	var calls atomic.Int64
	down := h.Then(func(v value.Value) (value.Value, error) {
		calls.Add(1)
		return v, nil
	}, nil)

	await(t, down)
	time.Sleep(20 * time.Millisecond)
	assert.EqualValues(t, 1, calls.Load())
}

func TestOrderOfScheduling(t *testing.T) {
	pool := workerpool.New(workerpool.WithSize(1)) // single worker forces FIFO execution order too
	t.Cleanup(pool.Shutdown)

	d := newDeferred(pool)
	const k = 100
	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup
	wg.Add(k)
	for i := 0; i < k; i++ {
		i := i
		d.then(func(v value.Value) (value.Value, error) {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			wg.Done()
			return v, nil
		}, nil)
	}
	d.fulfill(value.Of(0))
	wg.Wait()

	require.Len(t, order, k)
	for i, v := range order {
		assert.Equal(t, i, v)
	}
}

func TestIdentity(t *testing.T) {
	pool := freshPool(t)
	a := Fulfilled(value.Of(1), WithPool(pool))
	b := a
	assert.True(t, a.Equal(a))
	assert.True(t, a.Equal(b))

	c := Fulfilled(value.Of(1), WithPool(pool))
	assert.False(t, a.Equal(c))
}

func TestRoundTrip(t *testing.T) {
	pool := freshPool(t)
	in := value.Of(5)
	h := Fulfilled(in, WithPool(pool))
	down := h.Then(func(v value.Value) (value.Value, error) { return v, nil }, nil)

	o := await(t, down)
	require.Equal(t, Fulfilled, o.State)
	assert.True(t, in.Equal(o.Value))
}

func TestRejectionPropagation(t *testing.T) {
	pool := freshPool(t)
	h := Rejected(NewReason("boom"), WithPool(pool))
	down := h.Then(func(v value.Value) (value.Value, error) { return v, nil }, nil)

	o := await(t, down)
	require.Equal(t, Rejected, o.State)
	assert.Equal(t, "boom", o.Reason.Error())
}

func TestRecovery(t *testing.T) {
	pool := freshPool(t)
	h := Rejected(NewReason("boom"), WithPool(pool))
	down := h.Catch(func(r Reason) (value.Value, error) {
		return value.Of("recovered:" + r.Error()), nil
	})

	o := await(t, down)
	require.Equal(t, Fulfilled, o.State)
	v, _ := value.ExtractAs[string](o.Value)
	assert.Equal(t, "recovered:boom", v)
}

func TestAbsentCallback(t *testing.T) {
	pool := freshPool(t)

	f := Fulfilled(value.Of(1), WithPool(pool))
	df := f.Then(nil, nil)
	of := await(t, df)
	assert.Equal(t, Fulfilled, of.State)

	r := Rejected(NewReason("x"), WithPool(pool))
	dr := r.Then(nil, nil)
	or := await(t, dr)
	assert.Equal(t, Rejected, or.State)
	assert.Equal(t, "x", or.Reason.Error())
}

func TestSelfAdoption(t *testing.T) {
	pool := freshPool(t)

	// The producer closure needs a Handle to the very Deferred it is
	// constructing, so it is built directly rather than via New.
	var d *Deferred
	producer := func(fulfill Fulfill, reject Reject) {
		self := Handle{d: d}
		fulfill(value.Of(self))
	}
	d = newDeferred(pool)
	producer(func(v value.Value) { resolve(d, v) }, func(r Reason) { d.reject(r) })
	p := Handle{d: d}

	o := await(t, p)
	require.Equal(t, Rejected, o.State)
	assert.Equal(t, "cannot adopt own state", o.Reason.Error())
}

func TestPendingAdoption(t *testing.T) {
	pool := freshPool(t)
	inner, innerFulfill, _ := newPendingHandle(pool)

	outer := Fulfilled(value.Of(0), WithPool(pool)).Then(func(value.Value) (value.Value, error) {
		return value.Of(inner), nil
	}, nil)

	time.Sleep(10 * time.Millisecond) // outer is now waiting on inner, still pending
	innerFulfill(value.Of(7))

	o := await(t, outer)
	require.Equal(t, Fulfilled, o.State)
	v, _ := value.ExtractAs[int](o.Value)
	assert.Equal(t, 7, v)
}

func newPendingHandle(pool *workerpool.Pool) (Handle, Fulfill, Reject) {
	d := newDeferred(pool)
	return Handle{d: d}, func(v value.Value) { d.fulfill(v) }, func(r Reason) { d.reject(r) }
}

func TestAdoptionOfFulfilledInner(t *testing.T) {
	pool := freshPool(t)
	down := Fulfilled(value.Of(1), WithPool(pool)).Then(func(value.Value) (value.Value, error) {
		return value.Of(Fulfilled(value.Of(2), WithPool(pool))), nil
	}, nil)

	o := await(t, down)
	require.Equal(t, Fulfilled, o.State)
	v, _ := value.ExtractAs[int](o.Value)
	assert.Equal(t, 2, v)
}

func TestInvalidArgumentOnNilProducer(t *testing.T) {
	_, err := New(nil)
	var ia *InvalidArgument
	require.ErrorAs(t, err, &ia)
}

func TestCallbackPanicBecomesRejection(t *testing.T) {
	pool := freshPool(t)
	down := Fulfilled(value.Of(1), WithPool(pool)).Then(func(value.Value) (value.Value, error) {
		panic("kaboom")
	}, nil)

	o := await(t, down)
	require.Equal(t, Rejected, o.State)
	assert.Equal(t, "unknown reason", o.Reason.Error())
}

func TestCallbackPanicWithErrorBecomesReason(t *testing.T) {
	pool := freshPool(t)
	boom := testError("boom")
	down := Fulfilled(value.Of(1), WithPool(pool)).Then(func(value.Value) (value.Value, error) {
		panic(boom)
	}, nil)

	o := await(t, down)
	require.Equal(t, Rejected, o.State)
	assert.Equal(t, "boom", o.Reason.Error())
}

type testError string

func (e testError) Error() string { return string(e) }

func TestFanOut100Continuations(t *testing.T) {
	pool := freshPool(t)
	d := newDeferred(pool)

	const n = 100
	var wg sync.WaitGroup
	wg.Add(n)
	var mu sync.Mutex
	var order []int
	for i := 0; i < n; i++ {
		i := i
		d.then(func(v value.Value) (value.Value, error) {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			wg.Done()
			return v, nil
		}, nil)
	}
	d.fulfill(value.Of(0))
	wg.Wait()
	assert.Len(t, order, n)
}
