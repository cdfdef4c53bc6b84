package cleanup

import (
	"context"
	"log/slog"
	"time"
)

// Purger removes expired visitor sessions
type Purger interface {
	PurgeExpired(ctx context.Context) (int, error)
}

// Cleaner periodically purges expired sessions
type Cleaner struct {
	purger   Purger
	interval time.Duration
	done     chan struct{}
}

// NewCleaner creates a new cleanup worker
func NewCleaner(purger Purger, interval time.Duration) *Cleaner {
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	return &Cleaner{
		purger:   purger,
		interval: interval,
		done:     make(chan struct{}),
	}
}

// Start begins the cleanup worker in a goroutine
func (c *Cleaner) Start(ctx context.Context) {
	go c.run(ctx)
}

// Done is closed once the worker has stopped
func (c *Cleaner) Done() <-chan struct{} {
	return c.done
}

func (c *Cleaner) run(ctx context.Context) {
	defer close(c.done)
	slog.Info("cleanup worker started", "interval", c.interval)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	// Run immediately on start
	c.cleanup(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("cleanup worker stopped")
			return
		case <-ticker.C:
			c.cleanup(ctx)
		}
	}
}

func (c *Cleaner) cleanup(ctx context.Context) {
	slog.Debug("running cleanup cycle")

	purged, err := c.purger.PurgeExpired(ctx)
	if err != nil {
		slog.Error("failed to purge expired sessions", "error", err)
		return
	}

	if purged > 0 {
		slog.Info("expired sessions purged", "count", purged)
	}
}
