// Package youtube wraps the YouTube Data API v3 search capability used by
// the aggregation pipeline.
package youtube

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"tubedigest/internal/feed"
	"tubedigest/internal/metrics"
)

// Client issues channel and video searches against the YouTube Data API.
// Every call waits on a token-bucket limiter and is bounded by a timeout;
// calls are never retried automatically.
type Client struct {
	service *youtube.Service
	limiter *rate.Limiter
	timeout time.Duration
}

// NewClient creates a Data API client authenticated with the given API key.
func NewClient(ctx context.Context, apiKey string, rps float64, timeout time.Duration) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("api key required")
	}

	service, err := youtube.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create youtube service: %w", err)
	}

	return &Client{
		service: service,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		timeout: timeout,
	}, nil
}

// SearchChannel returns the channel ID of the single best match for name.
// Returns feed.ErrChannelNotFound when the search has no results.
func (c *Client) SearchChannel(ctx context.Context, name string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.service.Search.List([]string{"snippet"}).
		Q(name).
		Type("channel").
		MaxResults(1).
		Context(ctx).
		Do()
	if err != nil {
		metrics.IncUpstream("channel", "error")
		return "", fmt.Errorf("search channel %q: %w", name, err)
	}
	metrics.IncUpstream("channel", "ok")

	if len(resp.Items) == 0 {
		return "", feed.ErrChannelNotFound
	}

	item := resp.Items[0]
	if item.Id == nil || item.Id.ChannelId == "" {
		return "", fmt.Errorf("search channel %q: response item has no channel id", name)
	}
	return item.Id.ChannelId, nil
}

// SearchVideos returns up to maxResults of the channel's most recent
// videos, newest first. A zero publishedAfter means no lower time bound.
// The channel title on each record comes from the item's own snippet.
func (c *Client) SearchVideos(ctx context.Context, channelID string, publishedAfter time.Time, maxResults int64) ([]feed.VideoRecord, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	call := c.service.Search.List([]string{"snippet"}).
		ChannelId(channelID).
		Order("date").
		Type("video").
		MaxResults(maxResults).
		Context(ctx)
	if !publishedAfter.IsZero() {
		call = call.PublishedAfter(publishedAfter.UTC().Format(time.RFC3339))
	}

	resp, err := call.Do()
	if err != nil {
		metrics.IncUpstream("video", "error")
		return nil, fmt.Errorf("search videos for %q: %w", channelID, err)
	}
	metrics.IncUpstream("video", "ok")

	videos := make([]feed.VideoRecord, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.Id == nil || item.Id.VideoId == "" || item.Snippet == nil {
			continue
		}
		videos = append(videos, feed.VideoRecord{
			Channel:     item.Snippet.ChannelTitle,
			Title:       item.Snippet.Title,
			URL:         "https://www.youtube.com/watch?v=" + item.Id.VideoId,
			PublishedAt: item.Snippet.PublishedAt,
		})
	}
	return videos, nil
}
