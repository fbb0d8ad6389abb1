package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"tubedigest/internal/kv"
	"tubedigest/internal/metrics"
)

// Fetcher retrieves a channel's recent videos through the upstream search,
// layering a freshness-bounded result cache keyed on the exact query
// parameters. A stale cached result is only ever served when a refetch
// fails, and that substitution is logged.
type Fetcher struct {
	upstream VideoSearcher
	cache    kv.Store
	maxAge   time.Duration
	log      zerolog.Logger
	now      func() time.Time
}

// fetchEntry is the cached shape of one query's result.
type fetchEntry struct {
	FetchedAt time.Time     `json:"fetched_at"`
	Videos    []VideoRecord `json:"videos"`
}

// NewFetcher creates a fetcher. maxAge bounds how old a cached result may
// be before it is refetched.
func NewFetcher(upstream VideoSearcher, cache kv.Store, maxAge time.Duration, log zerolog.Logger) *Fetcher {
	return &Fetcher{
		upstream: upstream,
		cache:    cache,
		maxAge:   maxAge,
		log:      log.With().Str("component", "fetcher").Logger(),
		now:      time.Now,
	}
}

// Fetch returns up to maxResults videos for channelID published at or after
// publishedAfter (zero time = no bound), newest first. Failures are logged
// and yield an empty slice; the pipeline never sees an error from here.
func (f *Fetcher) Fetch(ctx context.Context, channelID string, publishedAfter time.Time, maxResults int64) []VideoRecord {
	key := fetchKey(channelID, publishedAfter, maxResults)

	var stale *fetchEntry
	if raw, err := f.cache.Get(ctx, key); err == nil {
		var entry fetchEntry
		if err := json.Unmarshal(raw, &entry); err == nil {
			if f.now().Sub(entry.FetchedAt) <= f.maxAge {
				metrics.IncCache("fetcher", true)
				return entry.Videos
			}
			stale = &entry
		}
	}
	metrics.IncCache("fetcher", false)

	videos, err := f.upstream.SearchVideos(ctx, channelID, publishedAfter, maxResults)
	if err != nil {
		if stale != nil {
			f.log.Warn().Err(err).Str("channel_id", channelID).
				Time("fetched_at", stale.FetchedAt).
				Msg("refetch failed, serving stale cached result")
			return stale.Videos
		}
		f.log.Error().Err(err).Str("channel_id", channelID).Msg("video fetch failed")
		return []VideoRecord{}
	}

	entry := fetchEntry{FetchedAt: f.now(), Videos: videos}
	if raw, err := json.Marshal(entry); err == nil {
		if err := f.cache.Set(ctx, key, raw); err != nil {
			f.log.Error().Err(err).Str("channel_id", channelID).Msg("cache fetch result")
		}
	}
	return videos
}

func fetchKey(channelID string, publishedAfter time.Time, maxResults int64) string {
	after := "-"
	if !publishedAfter.IsZero() {
		after = publishedAfter.UTC().Format(time.RFC3339)
	}
	return fmt.Sprintf("videos:%s:%s:%d", channelID, after, maxResults)
}
