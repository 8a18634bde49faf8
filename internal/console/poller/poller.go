// Package poller runs a fetch immediately and then on a fixed interval until stopped.
package poller

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/pm-copilot/internal/console/view"
	"github.com/kart-io/pm-copilot/pkg/client/copilot"
)

// ErrRunning is returned by Start when the poller is already running.
var ErrRunning = errors.New("poller is already running")

// Poller is a cancellable ticker task. A tick is skipped while the fetch
// started by the previous tick is still running.
type Poller struct {
	name     string
	interval time.Duration
	fetch    func(ctx context.Context)

	guard   view.ActionGuard
	ticks   atomic.Int64
	skipped atomic.Int64

	mu       sync.Mutex
	cancel   context.CancelFunc
	done     chan struct{}
	inflight sync.WaitGroup
}

// New creates a stopped Poller.
func New(name string, interval time.Duration, fetch func(ctx context.Context)) *Poller {
	return &Poller{
		name:     name,
		interval: interval,
		fetch:    fetch,
	}
}

// Watch creates a Poller that delivers the outcome of call as a Result.
func Watch[T any](name string, interval time.Duration, call func(context.Context) (T, error), deliver func(copilot.Result[T])) *Poller {
	return New(name, interval, func(ctx context.Context) {
		r := copilot.Do(ctx, call)
		if ctx.Err() != nil {
			// stopped while the call was in flight
			return
		}
		deliver(r)
	})
}

// Start runs the first fetch right away and then once per interval until
// ctx is done or Stop is called.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		return ErrRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})

	go p.loop(ctx, p.done)

	logger.Debugw("Poller started", "name", p.name, "interval", p.interval)
	return nil
}

// Stop cancels the poller and waits for the loop and any in-flight fetch to
// return. It is safe to call more than once, and on a poller never started.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}

	cancel()
	<-done
	p.inflight.Wait()

	logger.Debugw("Poller stopped", "name", p.name, "ticks", p.Ticks(), "skipped", p.Skipped())
}

// Ticks returns how many fetches were started.
func (p *Poller) Ticks() int64 {
	return p.ticks.Load()
}

// Skipped returns how many ticks were dropped because a fetch was still running.
func (p *Poller) Skipped() int64 {
	return p.skipped.Load()
}

func (p *Poller) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	if !p.guard.TryBegin() {
		p.skipped.Add(1)
		logger.Debugw("Poller tick skipped", "name", p.name)
		return
	}

	p.ticks.Add(1)
	p.inflight.Add(1)
	go func() {
		defer p.inflight.Done()
		defer p.guard.End()
		p.fetch(ctx)
	}()
}
