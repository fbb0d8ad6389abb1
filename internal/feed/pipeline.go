package feed

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"tubedigest/internal/metrics"
	"tubedigest/internal/prefs"
)

// Terminal states of the per-channel aggregation sequence. The three
// accepted-with-videos states share a result type but stay distinguishable
// in logs and metrics.
const (
	StateSkipped                   = "skipped"
	StateAcceptedStrict            = "accepted_strict"
	StateAcceptedFallbackWindow    = "accepted_fallback_window"
	StateAcceptedFallbackUnbounded = "accepted_fallback_unbounded"
	StateAcceptedEmpty             = "accepted_empty"
)

// Options configures pipeline behavior.
type Options struct {
	// StrictDateFilter disables the fallback tiers: channels with no
	// videos inside the window contribute nothing.
	StrictDateFilter bool
	// FallbackDays, when positive, is the wider second window tried before
	// giving up. Zero selects the unbounded fallback (latest video
	// regardless of age).
	FallbackDays int
	// MaxResults caps videos per channel in the strict window.
	MaxResults int64
	// Concurrency bounds the worker pool across a category's channels.
	Concurrency int
}

// RunStats summarizes one pipeline run.
type RunStats struct {
	ID         string        `json:"id"`
	FinishedAt time.Time     `json:"finished_at"`
	Categories int           `json:"categories"`
	Videos     int           `json:"videos"`
	Duration   time.Duration `json:"-"`
}

// Pipeline orchestrates the preference store, resolver and fetcher across
// all categories and channels, producing the category → videos snapshot.
type Pipeline struct {
	prefs    *prefs.Store
	resolver *Resolver
	fetcher  *Fetcher
	opts     Options
	log      zerolog.Logger
	now      func() time.Time
}

// NewPipeline wires an aggregation pipeline.
func NewPipeline(p *prefs.Store, resolver *Resolver, fetcher *Fetcher, opts Options, log zerolog.Logger) *Pipeline {
	if opts.MaxResults <= 0 {
		opts.MaxResults = 5
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	return &Pipeline{
		prefs:    p,
		resolver: resolver,
		fetcher:  fetcher,
		opts:     opts,
		log:      log.With().Str("component", "pipeline").Logger(),
		now:      time.Now,
	}
}

// Run aggregates every category in the preference store and returns the
// fresh result. A channel that fails to resolve is skipped; a category
// whose channels all fail yields an empty list, never an abort.
func (p *Pipeline) Run(ctx context.Context) (Result, RunStats) {
	start := p.now()
	runID := uuid.NewString()
	log := p.log.With().Str("run_id", runID).Logger()

	window := p.prefs.Duration().Window()
	publishedAfter := start.UTC().Add(-window)

	channels := p.prefs.Channels()
	result := make(Result, len(channels))
	total := 0

	for _, category := range p.prefs.Categories() {
		videos := p.runCategory(ctx, log, category, channels[category], publishedAfter)
		result[category] = videos
		total += len(videos)
	}

	stats := RunStats{
		ID:         runID,
		FinishedAt: p.now().UTC(),
		Categories: len(result),
		Videos:     total,
		Duration:   p.now().Sub(start),
	}
	metrics.ObserveRefresh(stats.Duration)
	log.Info().
		Int("categories", stats.Categories).
		Int("videos", stats.Videos).
		Dur("duration", stats.Duration).
		Msg("aggregation complete")
	return result, stats
}

// runCategory processes one category's channels on a bounded worker pool
// and returns the merged, sorted records. Per-channel results are collected
// by index so the concatenation order matches the configured channel order
// regardless of scheduling.
func (p *Pipeline) runCategory(ctx context.Context, log zerolog.Logger, category string, names []string, publishedAfter time.Time) []VideoRecord {
	collected := make([][]VideoRecord, len(names))

	var wg sync.WaitGroup
	sem := make(chan struct{}, p.opts.Concurrency)
	for i, name := range names {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			videos, state := p.runChannel(ctx, name, publishedAfter)
			collected[i] = videos
			metrics.IncOutcome(state)
			log.Debug().
				Str("category", category).
				Str("channel", name).
				Str("state", state).
				Int("videos", len(videos)).
				Msg("channel processed")
		}(i, name)
	}
	wg.Wait()

	merged := []VideoRecord{}
	for _, videos := range collected {
		merged = append(merged, videos...)
	}
	// Ties keep their pre-sort relative order.
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].PublishedAt > merged[j].PublishedAt
	})
	return merged
}

// runChannel runs the per-channel sequence: resolve, fetch within the
// strict window, then the fallback tier when the strict window is empty
// and strict filtering is off.
func (p *Pipeline) runChannel(ctx context.Context, name string, publishedAfter time.Time) ([]VideoRecord, string) {
	id, ok := p.resolver.Resolve(ctx, name)
	if !ok {
		return nil, StateSkipped
	}

	videos := p.fetcher.Fetch(ctx, id, publishedAfter, p.opts.MaxResults)
	if len(videos) > 0 {
		return videos, StateAcceptedStrict
	}
	if p.opts.StrictDateFilter {
		return nil, StateAcceptedEmpty
	}

	if p.opts.FallbackDays > 0 {
		wider := p.now().UTC().Add(-time.Duration(p.opts.FallbackDays) * 24 * time.Hour)
		return p.fetcher.Fetch(ctx, id, wider, 1), StateAcceptedFallbackWindow
	}
	return p.fetcher.Fetch(ctx, id, time.Time{}, 1), StateAcceptedFallbackUnbounded
}
