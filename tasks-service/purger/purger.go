// Package purger permanently removes tasks that have outlived the trash
// retention window. The read path already hides them; this reclaims storage.
package purger

import (
	"context"
	"log/slog"
	"time"
)

type Store interface {
	PurgeDeletedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type Purger struct {
	store     Store
	interval  time.Duration
	retention time.Duration
	now       func() time.Time
	logger    *slog.Logger
}

func New(store Store, interval, retention time.Duration, logger *slog.Logger) *Purger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Purger{
		store:     store,
		interval:  interval,
		retention: retention,
		now:       time.Now,
		logger:    logger.With("component", "trash-purger"),
	}
}

// Run purges once immediately and then every interval until ctx is done.
func (p *Purger) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Info("started", "interval", p.interval, "retention", p.retention)
	for {
		if _, err := p.RunOnce(ctx); err != nil && ctx.Err() == nil {
			p.logger.Error("purge failed", "error", err)
		}
		select {
		case <-ctx.Done():
			p.logger.Info("stopped")
			return
		case <-ticker.C:
		}
	}
}

func (p *Purger) RunOnce(ctx context.Context) (int64, error) {
	cutoff := p.now().UTC().Add(-p.retention)
	n, err := p.store.PurgeDeletedBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		p.logger.Info("purged expired tasks", "count", n, "cutoff", cutoff)
	}
	return n, nil
}
