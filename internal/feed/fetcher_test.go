package feed

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

var testVideos = []VideoRecord{
	{Channel: "ChannelA", Title: "First", URL: "https://www.youtube.com/watch?v=a1", PublishedAt: "2026-08-30T10:00:00Z"},
	{Channel: "ChannelA", Title: "Second", URL: "https://www.youtube.com/watch?v=a2", PublishedAt: "2026-08-29T10:00:00Z"},
}

func staticVideos(videos []VideoRecord) func(string, time.Time, int64) ([]VideoRecord, error) {
	return func(string, time.Time, int64) ([]VideoRecord, error) {
		return videos, nil
	}
}

func TestFetcherCachesResult(t *testing.T) {
	ctx := context.Background()
	upstream := &fakeVideoSearcher{fn: staticVideos(testVideos)}
	f := NewFetcher(upstream, newMemStore(), time.Hour, zerolog.Nop())

	after := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
	got := f.Fetch(ctx, "UC123", after, 5)
	if !reflect.DeepEqual(got, testVideos) {
		t.Fatalf("Fetch() = %v, want %v", got, testVideos)
	}

	// Same query within the freshness bound is served from cache.
	got = f.Fetch(ctx, "UC123", after, 5)
	if !reflect.DeepEqual(got, testVideos) {
		t.Fatalf("cached Fetch() = %v, want %v", got, testVideos)
	}
	if calls := upstream.callCount(); calls != 1 {
		t.Errorf("upstream calls = %d, want 1", calls)
	}
}

func TestFetcherCacheKeyedOnQuery(t *testing.T) {
	ctx := context.Background()
	upstream := &fakeVideoSearcher{fn: staticVideos(testVideos)}
	f := NewFetcher(upstream, newMemStore(), time.Hour, zerolog.Nop())

	after := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
	f.Fetch(ctx, "UC123", after, 5)
	f.Fetch(ctx, "UC123", after, 1)                  // different maxResults
	f.Fetch(ctx, "UC123", after.Add(time.Minute), 5) // different window
	f.Fetch(ctx, "UC999", after, 5)                  // different channel

	if calls := upstream.callCount(); calls != 4 {
		t.Errorf("upstream calls = %d, want 4 (no cross-query cache hits)", calls)
	}
}

func TestFetcherExpiredEntryRefetched(t *testing.T) {
	ctx := context.Background()
	upstream := &fakeVideoSearcher{fn: staticVideos(testVideos)}
	f := NewFetcher(upstream, newMemStore(), time.Hour, zerolog.Nop())

	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	f.now = func() time.Time { return now }

	f.Fetch(ctx, "UC123", time.Time{}, 5)

	// Advance past the freshness bound.
	f.now = func() time.Time { return now.Add(2 * time.Hour) }
	f.Fetch(ctx, "UC123", time.Time{}, 5)

	if calls := upstream.callCount(); calls != 2 {
		t.Errorf("upstream calls = %d, want 2 after expiry", calls)
	}
}

func TestFetcherServesStaleOnFailure(t *testing.T) {
	ctx := context.Background()
	upstream := &fakeVideoSearcher{fn: staticVideos(testVideos)}
	f := NewFetcher(upstream, newMemStore(), time.Hour, zerolog.Nop())

	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	f.now = func() time.Time { return now }
	f.Fetch(ctx, "UC123", time.Time{}, 5)

	// Entry expires and the refetch fails: the stale entry is served.
	f.now = func() time.Time { return now.Add(2 * time.Hour) }
	upstream.fn = func(string, time.Time, int64) ([]VideoRecord, error) {
		return nil, errors.New("upstream down")
	}

	got := f.Fetch(ctx, "UC123", time.Time{}, 5)
	if !reflect.DeepEqual(got, testVideos) {
		t.Errorf("Fetch() on failure = %v, want stale %v", got, testVideos)
	}
}

func TestFetcherFailureWithoutCacheYieldsEmpty(t *testing.T) {
	upstream := &fakeVideoSearcher{fn: func(string, time.Time, int64) ([]VideoRecord, error) {
		return nil, errors.New("upstream down")
	}}
	f := NewFetcher(upstream, newMemStore(), time.Hour, zerolog.Nop())

	got := f.Fetch(context.Background(), "UC123", time.Time{}, 5)
	if got == nil || len(got) != 0 {
		t.Errorf("Fetch() on failure = %v, want empty non-nil slice", got)
	}
}
