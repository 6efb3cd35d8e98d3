// Package clock delivers TimerTick commands to a running match. The engine
// never schedules itself; a Runner is the periodic caller that does it for
// one match while that match's clock is running.
package clock

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultInterval is one game second.
const DefaultInterval = time.Second

// Runner drives one match clock. tick is called once per interval while
// the runner is active; it is expected to dispatch a TimerTick and then
// call Sync with the match's new running state.
type Runner struct {
	base     context.Context
	interval time.Duration
	tick     func(ctx context.Context)
	logger   *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRunner creates an idle runner. Loops it starts stop when base is
// cancelled.
func NewRunner(base context.Context, interval time.Duration, tick func(ctx context.Context), logger *slog.Logger) *Runner {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		base:     base,
		interval: interval,
		tick:     tick,
		logger:   logger,
	}
}

// Sync starts the tick loop when running is true and it is idle, and stops
// it when running is false. It never blocks, so tick may call it.
func (r *Runner) Sync(running bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch {
	case running && r.cancel == nil:
		ctx, cancel := context.WithCancel(r.base)
		r.cancel = cancel
		r.wg.Add(1)
		go r.loop(ctx)
		r.logger.Debug("Clock started", "interval", r.interval)
	case !running && r.cancel != nil:
		r.cancel()
		r.cancel = nil
		r.logger.Debug("Clock stopped")
	}
}

// Active reports whether the tick loop is running.
func (r *Runner) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancel != nil
}

// Stop halts the loop and waits for it to exit. Must not be called from
// tick.
func (r *Runner) Stop() {
	r.Sync(false)
	r.wg.Wait()
}

func (r *Runner) loop(ctx context.Context) {
	defer r.wg.Done()
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			// A stop and a tick can be ready together; the stop wins.
			if ctx.Err() != nil {
				return
			}
			r.tick(ctx)
		case <-ctx.Done():
			return
		}
	}
}
