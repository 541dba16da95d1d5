package booking

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"carbooking/internal/pkg/metrics"
)

// Refresher runs a tick function on a fixed interval until stopped.
type Refresher struct {
	interval time.Duration
	tick     func(ctx context.Context) error
	log      *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewRefresher(interval time.Duration, tick func(ctx context.Context) error, log *zap.Logger) *Refresher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Refresher{interval: interval, tick: tick, log: log}
}

// Start launches the loop. It returns false if the loop is already running.
func (r *Refresher) Start(parent context.Context) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancel != nil {
		return false
	}
	ctx, cancel := context.WithCancel(parent)
	r.cancel = cancel
	r.done = make(chan struct{})
	go r.run(ctx, r.done)
	return true
}

// Stop cancels the loop and waits for an in-flight tick to return.
func (r *Refresher) Stop() {
	if done := r.Cancel(); done != nil {
		<-done
	}
}

// Cancel stops the loop without waiting. The returned channel closes once
// the loop has exited; it is nil when nothing was running.
func (r *Refresher) Cancel() <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancel == nil {
		return nil
	}
	r.cancel()
	r.cancel = nil
	return r.done
}

func (r *Refresher) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancel != nil
}

func (r *Refresher) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.tick(ctx); err != nil {
				if ctx.Err() != nil {
					return
				}
				metrics.ProfileRefreshes.WithLabelValues("error").Inc()
				r.log.Warn("refresh failed", zap.Error(err))
				continue
			}
			metrics.ProfileRefreshes.WithLabelValues("ok").Inc()
		}
	}
}
