// Package feed implements the video-aggregation pipeline: channel-name
// resolution with caching, time-windowed video retrieval with a tiered
// fallback policy, and per-category merge/sort.
package feed

import (
	"context"
	"errors"
	"time"
)

// ErrChannelNotFound indicates the upstream search returned no channel for
// the queried name.
var ErrChannelNotFound = errors.New("feed: channel not found")

// VideoRecord is one aggregated video as served in the snapshot. Immutable
// once constructed. PublishedAt is an RFC 3339 UTC timestamp string, which
// sorts correctly as a plain string.
type VideoRecord struct {
	Channel     string `json:"channel"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	PublishedAt string `json:"publishedAt"`
}

// Result maps every configured category to its videos, sorted by
// publication date descending.
type Result map[string][]VideoRecord

// ChannelSearcher finds the channel identifier for a display name.
// Implementations return ErrChannelNotFound when the upstream search has no
// match; any other error means the lookup itself failed.
type ChannelSearcher interface {
	SearchChannel(ctx context.Context, name string) (string, error)
}

// VideoSearcher retrieves a channel's most recent videos, newest first.
// A zero publishedAfter means no lower time bound.
type VideoSearcher interface {
	SearchVideos(ctx context.Context, channelID string, publishedAfter time.Time, maxResults int64) ([]VideoRecord, error)
}
