package hoax

import (
	"context"
	"time"

	"github.com/hoaxify/hoaxify-server/internal/logging"
)

// Cleaner periodically removes attachments that were uploaded but never
// bound to a hoax. Uploads get a grace period so that an in-flight hoax
// submission can still claim its file.
type Cleaner struct {
	service  *Service
	logger   *logging.Logger
	interval time.Duration
	grace    time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewCleaner creates a cleaner. If interval is 0 or negative, defaults to
// 1 hour; if grace is 0 or negative, defaults to 1 hour.
func NewCleaner(service *Service, logger *logging.Logger, interval, grace time.Duration) *Cleaner {
	if interval <= 0 {
		interval = time.Hour
	}
	if grace <= 0 {
		grace = time.Hour
	}

	return &Cleaner{
		service:  service,
		logger:   logger,
		interval: interval,
		grace:    grace,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background loop. Non-blocking; call Stop to shut down.
func (c *Cleaner) Start() {
	go c.run()
	c.logger.Info("attachment cleaner started", "interval", c.interval, "grace", c.grace)
}

// Stop shuts down the background loop, blocking until any in-progress
// cleanup has finished.
func (c *Cleaner) Stop() {
	close(c.stopCh)
	<-c.doneCh
	c.logger.Info("attachment cleaner stopped")
}

func (c *Cleaner) run() {
	defer close(c.doneCh)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.cleanup()

	for {
		select {
		case <-ticker.C:
			c.cleanup()
		case <-c.stopCh:
			return
		}
	}
}

func (c *Cleaner) cleanup() {
	removed, err := c.service.CleanupOrphanAttachments(context.Background(), c.grace)
	if err != nil {
		c.logger.Error("failed to clean up orphan attachments", "error", err)
		return
	}

	if removed > 0 {
		c.logger.Info("cleaned up orphan attachments", "removed", removed)
	}
}
