// Package worker runs the aggregation pipeline on a fixed interval.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"tubedigest/internal/feed"
	"tubedigest/internal/snapshot"
)

// Refresher is a periodic background job that re-runs the pipeline and
// overwrites the snapshot.
type Refresher struct {
	pipeline *feed.Pipeline
	snap     *snapshot.Store
	interval time.Duration
	log      zerolog.Logger
	stopCh   chan struct{}
	stopOnce sync.Once
}

// New creates a refresher that ticks every interval.
func New(pipeline *feed.Pipeline, snap *snapshot.Store, interval time.Duration, log zerolog.Logger) *Refresher {
	return &Refresher{
		pipeline: pipeline,
		snap:     snap,
		interval: interval,
		log:      log.With().Str("component", "refresher").Logger(),
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic refresh loop. It runs one tick immediately,
// then every interval, until the context is cancelled or Stop is called.
func (r *Refresher) Start(ctx context.Context) {
	r.log.Info().Dur("interval", r.interval).Msg("starting")

	r.tick(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.tick(ctx)
		case <-ctx.Done():
			r.log.Info().Msg("stopping (context cancelled)")
			return
		case <-r.stopCh:
			r.log.Info().Msg("stopping (stop signal)")
			return
		}
	}
}

// Stop signals the refresher to stop. Safe to call more than once.
func (r *Refresher) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
}

func (r *Refresher) tick(ctx context.Context) {
	result, stats := r.pipeline.Run(ctx)
	if err := r.snap.Write(ctx, result, stats); err != nil {
		r.log.Error().Err(err).Str("run_id", stats.ID).Msg("snapshot write failed, prior snapshot kept")
		return
	}
	r.log.Info().
		Str("run_id", stats.ID).
		Int("videos", stats.Videos).
		Msg("snapshot refreshed")
}
