package token

import (
	"context"
	"time"

	"github.com/hoaxify/hoaxify-server/internal/logging"
)

// Reaper periodically purges tokens whose last use has aged past the
// expiration window. Verification rejects stale rows on its own, so the
// reaper only reclaims storage; it shares no state with request handling.
type Reaper struct {
	repo     Repository
	logger   *logging.Logger
	interval time.Duration
	window   time.Duration

	now func() time.Time

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewReaper creates a reaper. If interval is 0 or negative, defaults to
// 1 hour; if window is 0 or negative, defaults to the token window.
func NewReaper(repo Repository, logger *logging.Logger, interval, window time.Duration) *Reaper {
	if interval <= 0 {
		interval = time.Hour
	}
	if window <= 0 {
		window = DefaultWindow
	}

	return &Reaper{
		repo:     repo,
		logger:   logger,
		interval: interval,
		window:   window,
		now:      time.Now,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background loop. Non-blocking; call Stop to shut down.
func (r *Reaper) Start() {
	go r.run()
	r.logger.Info("token reaper started", "interval", r.interval, "window", r.window)
}

// Stop shuts down the background loop, blocking until any in-progress
// sweep has finished.
func (r *Reaper) Stop() {
	close(r.stopCh)
	<-r.doneCh
	r.logger.Info("token reaper stopped")
}

// run executes sweeps serially, so a slow sweep delays the next tick
// instead of overlapping it.
func (r *Reaper) run() {
	defer close(r.doneCh)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.sweep()

	for {
		select {
		case <-ticker.C:
			r.sweep()
		case <-r.stopCh:
			return
		}
	}
}

// sweep deletes every token unused for longer than the window at this
// instant. A sweep racing a concurrent verify can only remove tokens that
// were already past the threshold.
func (r *Reaper) sweep() {
	cutoff := r.now().Add(-r.window)

	deleted, err := r.repo.DeleteStale(context.Background(), cutoff)
	if err != nil {
		r.logger.Error("failed to reap stale tokens", "error", err)
		return
	}

	if deleted > 0 {
		r.logger.Info("reaped stale tokens", "deleted", deleted)
	}
}
