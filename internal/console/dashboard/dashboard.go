// Package dashboard composes the health, analytics and history panes into one screen.
package dashboard

import (
	"context"
	"sync"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/pm-copilot/internal/console/poller"
	"github.com/kart-io/pm-copilot/internal/console/view"
	v1 "github.com/kart-io/pm-copilot/pkg/api/copilot/v1"
	"github.com/kart-io/pm-copilot/pkg/client/copilot"
	"github.com/kart-io/pm-copilot/pkg/infra/pool"
)

// Backend is the part of the copilot client the dashboard reads from.
type Backend interface {
	CheckHealth(ctx context.Context, opts ...copilot.RequestOption) (*v1.HealthResponse, error)
	GetStats(ctx context.Context, opts ...copilot.RequestOption) (*v1.StatsResponse, error)
	GetHistory(ctx context.Context, opts ...copilot.RequestOption) (*v1.HistoryResponse, error)
}

// Snapshot holds one outcome per pane. A failed pane never hides the others.
type Snapshot struct {
	Health  copilot.Result[*v1.HealthResponse]
	Stats   copilot.Result[*v1.StatsResponse]
	History copilot.Result[*v1.HistoryResponse]
	TakenAt time.Time
}

// Dashboard fetches panes concurrently on a worker pool.
type Dashboard struct {
	backend Backend
	pool    *pool.Pool
	now     func() time.Time
}

// New creates a Dashboard. The pool is owned by the caller.
func New(backend Backend, p *pool.Pool) *Dashboard {
	return &Dashboard{
		backend: backend,
		pool:    p,
		now:     time.Now,
	}
}

// Snapshot fetches every pane at once and waits for all of them.
func (d *Dashboard) Snapshot(ctx context.Context) Snapshot {
	var (
		snap Snapshot
		wg   sync.WaitGroup
	)

	d.submit(ctx, &wg, func() {
		snap.Health = copilot.Do(ctx, func(ctx context.Context) (*v1.HealthResponse, error) {
			return d.backend.CheckHealth(ctx)
		})
	}, func(err error) { snap.Health = copilot.Fail[*v1.HealthResponse](err) })

	d.submit(ctx, &wg, func() {
		snap.Stats = d.fetchStats(ctx)
	}, func(err error) { snap.Stats = copilot.Fail[*v1.StatsResponse](err) })

	d.submit(ctx, &wg, func() {
		snap.History = d.fetchHistory(ctx)
	}, func(err error) { snap.History = copilot.Fail[*v1.HistoryResponse](err) })

	wg.Wait()
	snap.TakenAt = d.now()
	return snap
}

// submit runs task on the pool. When the pool refuses it, or ctx ends
// before it starts, fail records why.
func (d *Dashboard) submit(ctx context.Context, wg *sync.WaitGroup, task func(), fail func(error)) {
	wg.Add(1)
	err := d.pool.SubmitWithContext(ctx,
		func() {
			defer wg.Done()
			task()
		},
		func(err error) {
			defer wg.Done()
			fail(err)
		},
	)
	if err != nil {
		logger.Warnw("Dashboard pane not scheduled", "error", err.Error(), "running", d.pool.Running())
		fail(err)
		wg.Done()
	}
}

func (d *Dashboard) fetchStats(ctx context.Context) copilot.Result[*v1.StatsResponse] {
	return copilot.Do(ctx, func(ctx context.Context) (*v1.StatsResponse, error) {
		return d.backend.GetStats(ctx)
	})
}

func (d *Dashboard) fetchHistory(ctx context.Context) copilot.Result[*v1.HistoryResponse] {
	return copilot.Do(ctx, func(ctx context.Context) (*v1.HistoryResponse, error) {
		return d.backend.GetHistory(ctx)
	})
}

// Watch keeps a live State until ctx is done. Health is refreshed by one
// poller, stats and history by another, both every interval. render is called
// after every refresh with the latest view. Watch returns once both pollers
// have stopped. render is never called concurrently.
func (d *Dashboard) Watch(ctx context.Context, interval time.Duration, render func(View)) error {
	state := NewState()

	var renderMu sync.Mutex
	draw := func() {
		renderMu.Lock()
		defer renderMu.Unlock()
		render(state.View())
	}

	healthPoller := poller.Watch("health", interval,
		func(ctx context.Context) (*v1.HealthResponse, error) { return d.backend.CheckHealth(ctx) },
		func(r copilot.Result[*v1.HealthResponse]) {
			state.SetHealth(r, d.now())
			draw()
		},
	)

	panesPoller := poller.New("stats", interval, func(ctx context.Context) {
		var wg sync.WaitGroup
		var stats copilot.Result[*v1.StatsResponse]
		var history copilot.Result[*v1.HistoryResponse]

		d.submit(ctx, &wg, func() { stats = d.fetchStats(ctx) },
			func(err error) { stats = copilot.Fail[*v1.StatsResponse](err) })
		d.submit(ctx, &wg, func() { history = d.fetchHistory(ctx) },
			func(err error) { history = copilot.Fail[*v1.HistoryResponse](err) })
		wg.Wait()

		if ctx.Err() != nil {
			return
		}
		state.SetStats(stats)
		state.SetHistory(history)
		draw()
	})

	if err := healthPoller.Start(ctx); err != nil {
		return err
	}
	if err := panesPoller.Start(ctx); err != nil {
		healthPoller.Stop()
		return err
	}

	<-ctx.Done()
	healthPoller.Stop()
	panesPoller.Stop()

	st := d.pool.Stats()
	logger.Debugw("Dashboard watch stopped",
		"health_polls", healthPoller.Ticks(),
		"pane_polls", panesPoller.Ticks(),
		"polls_skipped", healthPoller.Skipped()+panesPoller.Skipped(),
		"tasks_completed", st.CompletedTasks,
		"tasks_skipped", st.SkippedTasks,
	)
	return nil
}

// State is the latest outcome per pane, shared between pollers.
type State struct {
	mu      sync.RWMutex
	health  view.HealthView
	stats   *copilot.Result[*v1.StatsResponse]
	history *copilot.Result[*v1.HistoryResponse]
}

// NewState returns a State whose health is still being checked.
func NewState() *State {
	return &State{health: view.PendingHealth()}
}

// SetHealth replaces the health indicator.
func (s *State) SetHealth(r copilot.Result[*v1.HealthResponse], at time.Time) {
	hv := view.NewHealthView(r, at)
	s.mu.Lock()
	s.health = hv
	s.mu.Unlock()
}

// SetStats replaces the analytics pane.
func (s *State) SetStats(r copilot.Result[*v1.StatsResponse]) {
	s.mu.Lock()
	s.stats = &r
	s.mu.Unlock()
}

// SetHistory replaces the history pane.
func (s *State) SetHistory(r copilot.Result[*v1.HistoryResponse]) {
	s.mu.Lock()
	s.history = &r
	s.mu.Unlock()
}

// View renders the current state.
func (s *State) View() View {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v := View{Health: s.health}
	if s.stats != nil {
		v.Stats = statsPane(*s.stats)
	}
	if s.history != nil {
		v.History = historyPane(*s.history)
	}
	return v
}
