package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kart-io/logger"
	"github.com/panjf2000/ants/v2"
)

// Config defines the configuration for the worker pool.
type Config struct {
	// Capacity is the maximum number of concurrently running tasks.
	Capacity int
	// ExpiryDuration is how long an idle worker is kept.
	ExpiryDuration time.Duration
	// Nonblocking makes Submit fail with ErrPoolOverload instead of waiting.
	Nonblocking bool
	// PanicHandler receives values recovered from panicking tasks.
	PanicHandler func(any)
}

// DefaultConfig returns the configuration used for request fan-out.
func DefaultConfig() *Config {
	return &Config{
		Capacity:       8,
		ExpiryDuration: 10 * time.Second,
	}
}

// Pool is a named worker pool with task counters.
type Pool struct {
	name     string
	pool     *ants.Pool
	stats    statsCounter
	closed   atomic.Bool
	closedMu sync.Mutex
}

type statsCounter struct {
	submitted atomic.Int64
	completed atomic.Int64
	rejected  atomic.Int64
	skipped   atomic.Int64
	panics    atomic.Int64
}

// Stats is a point-in-time snapshot of the pool counters.
type Stats struct {
	SubmittedTasks int64
	CompletedTasks int64
	RejectedTasks  int64
	SkippedTasks   int64
	PanicRecovered int64
}

// NewPool creates a worker pool. A nil config selects DefaultConfig.
func NewPool(name string, config *Config) (*Pool, error) {
	if config == nil {
		config = DefaultConfig()
	}

	p := &Pool{name: name}

	pool, err := ants.NewPool(config.Capacity, buildAntsOptions(p, config)...)
	if err != nil {
		return nil, fmt.Errorf("create ants pool %q: %w", name, err)
	}
	p.pool = pool

	logger.Debugw("Worker pool created",
		"name", name,
		"capacity", config.Capacity,
	)

	return p, nil
}

func buildAntsOptions(p *Pool, config *Config) []ants.Option {
	handler := config.PanicHandler
	if handler == nil {
		handler = func(r any) {
			logger.Errorw("Worker panic recovered",
				"pool", p.name,
				"panic", r,
			)
		}
	}

	return []ants.Option{
		ants.WithExpiryDuration(config.ExpiryDuration),
		ants.WithNonblocking(config.Nonblocking),
		ants.WithPanicHandler(func(r any) {
			p.stats.panics.Add(1)
			handler(r)
		}),
	}
}

// Name returns the pool name.
func (p *Pool) Name() string {
	return p.name
}

// Cap returns the pool capacity.
func (p *Pool) Cap() int {
	return p.pool.Cap()
}

// Running returns the number of busy workers.
func (p *Pool) Running() int {
	return p.pool.Running()
}

// Submit queues task for execution.
func (p *Pool) Submit(task func()) error {
	if p.closed.Load() {
		return ErrPoolClosed
	}

	p.stats.submitted.Add(1)
	err := p.pool.Submit(func() {
		task()
		p.stats.completed.Add(1)
	})
	if err != nil {
		p.stats.submitted.Add(-1)
		if errors.Is(err, ants.ErrPoolOverload) {
			p.stats.rejected.Add(1)
			return ErrPoolOverload
		}
		if errors.Is(err, ants.ErrPoolClosed) {
			return ErrPoolClosed
		}
		return err
	}

	return nil
}

// SubmitWithContext queues task unless ctx is already done. A task still
// waiting when ctx is cancelled does not run; skip, when set, receives
// ctx.Err() in its place.
func (p *Pool) SubmitWithContext(ctx context.Context, task func(), skip func(error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return p.Submit(func() {
		if err := ctx.Err(); err != nil {
			p.stats.skipped.Add(1)
			if skip != nil {
				skip(err)
			}
			return
		}
		task()
	})
}

// Release closes the pool. It is safe to call more than once.
func (p *Pool) Release() {
	p.closedMu.Lock()
	defer p.closedMu.Unlock()

	if p.closed.Load() {
		return
	}

	p.closed.Store(true)
	p.pool.Release()
	logger.Debugw("Worker pool released", "name", p.name)
}

// Stats returns a snapshot of the pool counters.
func (p *Pool) Stats() Stats {
	return Stats{
		SubmittedTasks: p.stats.submitted.Load(),
		CompletedTasks: p.stats.completed.Load(),
		RejectedTasks:  p.stats.rejected.Load(),
		SkippedTasks:   p.stats.skipped.Load(),
		PanicRecovered: p.stats.panics.Load(),
	}
}
