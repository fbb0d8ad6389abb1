package feed

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

func TestResolverResolvesAndCaches(t *testing.T) {
	ctx := context.Background()
	upstream := &fakeChannelSearcher{ids: map[string]string{"ChannelA": "UC123"}}
	r := NewResolver(upstream, newMemStore(), zerolog.Nop())

	id, ok := r.Resolve(ctx, "ChannelA")
	if !ok || id != "UC123" {
		t.Fatalf("Resolve() = (%q, %v), want (UC123, true)", id, ok)
	}

	// Second resolve is served from cache.
	id, ok = r.Resolve(ctx, "ChannelA")
	if !ok || id != "UC123" {
		t.Fatalf("cached Resolve() = (%q, %v), want (UC123, true)", id, ok)
	}
	if got := upstream.callCount(); got != 1 {
		t.Errorf("upstream calls = %d, want 1", got)
	}
}

func TestResolverNotFoundNotCached(t *testing.T) {
	ctx := context.Background()
	upstream := &fakeChannelSearcher{ids: map[string]string{}}
	r := NewResolver(upstream, newMemStore(), zerolog.Nop())

	if _, ok := r.Resolve(ctx, "Nobody"); ok {
		t.Fatal("Resolve(Nobody) ok = true, want false")
	}
	if _, ok := r.Resolve(ctx, "Nobody"); ok {
		t.Fatal("second Resolve(Nobody) ok = true, want false")
	}
	// Each attempt reaches upstream: failed resolutions are never cached.
	if got := upstream.callCount(); got != 2 {
		t.Errorf("upstream calls = %d, want 2", got)
	}
}

func TestResolverUpstreamFailure(t *testing.T) {
	upstream := &fakeChannelSearcher{err: errors.New("quota exceeded")}
	r := NewResolver(upstream, newMemStore(), zerolog.Nop())

	if _, ok := r.Resolve(context.Background(), "ChannelA"); ok {
		t.Error("Resolve() ok = true on upstream failure, want false")
	}
}

func TestResolverCacheWriteFailureStillResolves(t *testing.T) {
	store := newMemStore()
	store.failSet = true
	upstream := &fakeChannelSearcher{ids: map[string]string{"ChannelA": "UC123"}}
	r := NewResolver(upstream, store, zerolog.Nop())

	id, ok := r.Resolve(context.Background(), "ChannelA")
	if !ok || id != "UC123" {
		t.Errorf("Resolve() = (%q, %v), want (UC123, true) despite cache failure", id, ok)
	}
}

func TestResolverEvict(t *testing.T) {
	ctx := context.Background()
	upstream := &fakeChannelSearcher{ids: map[string]string{"ChannelA": "UC123"}}
	r := NewResolver(upstream, newMemStore(), zerolog.Nop())

	r.Resolve(ctx, "ChannelA")

	if !r.Evict(ctx, "ChannelA") {
		t.Error("Evict() = false, want true for cached mapping")
	}
	if r.Evict(ctx, "ChannelA") {
		t.Error("second Evict() = true, want false")
	}

	// The next resolve goes back to upstream.
	r.Resolve(ctx, "ChannelA")
	if got := upstream.callCount(); got != 2 {
		t.Errorf("upstream calls = %d, want 2 after evict", got)
	}
}
