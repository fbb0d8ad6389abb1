package snapshot

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"tubedigest/internal/feed"
	"tubedigest/internal/kv"
)

func newTestKV(t *testing.T) kv.Store {
	t.Helper()
	s, err := kv.NewFileStore(filepath.Join(t.TempDir(), "records.json"))
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestWriteReadRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := New(newTestKV(t), zerolog.Nop())

	result := feed.Result{
		"Math": {
			{Channel: "ChannelA", Title: "T1", URL: "https://www.youtube.com/watch?v=a1", PublishedAt: "2026-08-30T10:00:00Z"},
		},
		"Music": {},
	}
	stats := feed.RunStats{
		ID:         "run-1",
		FinishedAt: time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC),
		Categories: 2,
		Videos:     1,
	}

	if err := s.Write(ctx, result, stats); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got := s.Read(ctx)
	if !reflect.DeepEqual(got, result) {
		t.Errorf("Read() = %v, want %v", got, result)
	}
}

func TestReadMissingSnapshot(t *testing.T) {
	s := New(newTestKV(t), zerolog.Nop())

	got := s.Read(context.Background())
	if got == nil || len(got) != 0 {
		t.Errorf("Read() = %v, want empty result", got)
	}
}

func TestReadCorruptSnapshot(t *testing.T) {
	ctx := context.Background()
	store := newTestKV(t)
	if err := store.Set(ctx, VideosKey, []byte(`[1,2,3]`)); err != nil {
		t.Fatal(err)
	}

	s := New(store, zerolog.Nop())
	if got := s.Read(ctx); len(got) != 0 {
		t.Errorf("Read() = %v, want empty result for corrupt record", got)
	}
}

func TestWriteOverwritesPrevious(t *testing.T) {
	ctx := context.Background()
	s := New(newTestKV(t), zerolog.Nop())

	first := feed.Result{"Math": {{Channel: "ChannelA", Title: "Old", PublishedAt: "2026-08-01T00:00:00Z"}}}
	second := feed.Result{"Music": {{Channel: "ChannelB", Title: "New", PublishedAt: "2026-08-30T00:00:00Z"}}}

	if err := s.Write(ctx, first, feed.RunStats{ID: "run-1"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Write(ctx, second, feed.RunStats{ID: "run-2"}); err != nil {
		t.Fatal(err)
	}

	got := s.Read(ctx)
	if !reflect.DeepEqual(got, second) {
		t.Errorf("Read() = %v, want %v (no merge with previous)", got, second)
	}
}

func TestLastRefresh(t *testing.T) {
	ctx := context.Background()
	s := New(newTestKV(t), zerolog.Nop())

	if _, ok := s.LastRefresh(ctx); ok {
		t.Error("LastRefresh() ok = true before any write")
	}

	stats := feed.RunStats{
		ID:         "run-1",
		FinishedAt: time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC),
		Categories: 1,
		Videos:     3,
	}
	if err := s.Write(ctx, feed.Result{}, stats); err != nil {
		t.Fatal(err)
	}

	got, ok := s.LastRefresh(ctx)
	if !ok {
		t.Fatal("LastRefresh() ok = false after write")
	}
	if !reflect.DeepEqual(got, stats) {
		t.Errorf("LastRefresh() = %+v, want %+v", got, stats)
	}
}
