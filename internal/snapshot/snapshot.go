// Package snapshot persists and serves the aggregation result.
package snapshot

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"

	"tubedigest/internal/feed"
	"tubedigest/internal/kv"
)

// Record-store keys for the published snapshot and its run metadata.
const (
	VideosKey      = "videos"
	LastRefreshKey = "last_refresh"
)

// Store holds the durable snapshot the read endpoints serve from. Each
// pipeline run overwrites the previous snapshot; nothing is merged.
type Store struct {
	kv  kv.Store
	log zerolog.Logger
}

// New creates a snapshot store over the given record store.
func New(store kv.Store, log zerolog.Logger) *Store {
	return &Store{
		kv:  store,
		log: log.With().Str("component", "snapshot").Logger(),
	}
}

// Write replaces the snapshot with result and records the run metadata.
// A write failure leaves the prior snapshot intact.
func (s *Store) Write(ctx context.Context, result feed.Result, stats feed.RunStats) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return err
	}
	if err := s.kv.Set(ctx, VideosKey, raw); err != nil {
		return err
	}

	if meta, err := json.Marshal(stats); err == nil {
		if err := s.kv.Set(ctx, LastRefreshKey, meta); err != nil {
			s.log.Error().Err(err).Msg("persist refresh metadata")
		}
	}
	return nil
}

// Read returns the current snapshot. A missing or unparsable record yields
// an empty result, never an error.
func (s *Store) Read(ctx context.Context) feed.Result {
	raw, err := s.kv.Get(ctx, VideosKey)
	if err != nil {
		return feed.Result{}
	}

	var result feed.Result
	if err := json.Unmarshal(raw, &result); err != nil {
		s.log.Error().Err(err).Msg("snapshot record unparsable")
		return feed.Result{}
	}
	return result
}

// LastRefresh returns metadata of the most recent pipeline run, if any.
func (s *Store) LastRefresh(ctx context.Context) (feed.RunStats, bool) {
	raw, err := s.kv.Get(ctx, LastRefreshKey)
	if err != nil {
		return feed.RunStats{}, false
	}
	var stats feed.RunStats
	if err := json.Unmarshal(raw, &stats); err != nil {
		return feed.RunStats{}, false
	}
	return stats, true
}
