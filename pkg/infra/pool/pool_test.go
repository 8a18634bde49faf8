package pool

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPool(t *testing.T) {
	p, err := NewPool("test", nil)
	require.NoError(t, err)
	defer p.Release()

	assert.Equal(t, "test", p.Name())
	assert.Equal(t, DefaultConfig().Capacity, p.Cap())
}

func TestPoolSubmit(t *testing.T) {
	p, err := NewPool("test", &Config{Capacity: 4, ExpiryDuration: time.Second})
	require.NoError(t, err)
	defer p.Release()

	var counter atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		err := p.Submit(func() {
			defer wg.Done()
			counter.Add(1)
		})
		if !assert.NoError(t, err) {
			wg.Done()
		}
	}

	wg.Wait()

	assert.Equal(t, int32(50), counter.Load())
	assert.Eventually(t, func() bool {
		return p.Stats().CompletedTasks == 50
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, int64(50), p.Stats().SubmittedTasks)
}

func TestPoolSubmitWithContext(t *testing.T) {
	p, err := NewPool("test", nil)
	require.NoError(t, err)
	defer p.Release()

	done := make(chan struct{})
	require.NoError(t, p.SubmitWithContext(context.Background(), func() {
		close(done)
	}, nil))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("task did not run")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = p.SubmitWithContext(ctx, func() {
		t.Error("task ran with a cancelled context")
	}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

// cancelAfterFirstCheck reports no error on the first Err call and
// context.Canceled on every later one, as if cancelled while queued.
type cancelAfterFirstCheck struct {
	context.Context
	checks atomic.Int32
}

func (c *cancelAfterFirstCheck) Err() error {
	if c.checks.Add(1) == 1 {
		return nil
	}
	return context.Canceled
}

func TestPoolSubmitWithContext_SkipsQueuedTask(t *testing.T) {
	p, err := NewPool("test", &Config{Capacity: 1, ExpiryDuration: time.Second})
	require.NoError(t, err)
	defer p.Release()

	ctx := &cancelAfterFirstCheck{Context: context.Background()}
	skipped := make(chan error, 1)
	require.NoError(t, p.SubmitWithContext(ctx, func() {
		t.Error("queued task ran after cancellation")
	}, func(err error) { skipped <- err }))

	select {
	case err := <-skipped:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("skip was not called")
	}
	assert.Eventually(t, func() bool {
		st := p.Stats()
		return st.SkippedTasks == 1 && st.CompletedTasks == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, p.Running())
}

func TestPoolPanicRecovery(t *testing.T) {
	caught := make(chan any, 1)

	p, err := NewPool("test", &Config{
		Capacity:       2,
		ExpiryDuration: time.Second,
		PanicHandler: func(r any) {
			caught <- r
		},
	})
	require.NoError(t, err)
	defer p.Release()

	require.NoError(t, p.Submit(func() {
		panic("boom")
	}))

	select {
	case r := <-caught:
		assert.Equal(t, "boom", r)
	case <-time.After(time.Second):
		t.Fatal("panic was not recovered")
	}
	assert.Equal(t, int64(1), p.Stats().PanicRecovered)
}

func TestPoolClosed(t *testing.T) {
	p, err := NewPool("test", nil)
	require.NoError(t, err)

	p.Release()
	p.Release()

	assert.ErrorIs(t, p.Submit(func() {}), ErrPoolClosed)
}

func TestPoolNonblocking(t *testing.T) {
	p, err := NewPool("test", &Config{
		Capacity:       1,
		ExpiryDuration: time.Second,
		Nonblocking:    true,
	})
	require.NoError(t, err)
	defer p.Release()

	block := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, p.Submit(func() {
		close(started)
		<-block
	}))
	<-started

	err = p.Submit(func() {})
	close(block)

	assert.ErrorIs(t, err, ErrPoolOverload)
	assert.Equal(t, int64(1), p.Stats().RejectedTasks)
}
