package feed

import (
	"context"
	"errors"
	"sync"
	"time"
)

// memStore is an in-memory record store for tests, with switchable
// failure injection.
type memStore struct {
	mu      sync.Mutex
	data    map[string][]byte
	failGet bool
	failSet bool
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string][]byte)}
}

func (m *memStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failGet {
		return nil, errors.New("injected get failure")
	}
	v, ok := m.data[key]
	if !ok {
		return nil, errors.New("not found")
	}
	return append([]byte(nil), v...), nil
}

func (m *memStore) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSet {
		return errors.New("injected set failure")
	}
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *memStore) Delete(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[key]; !ok {
		return false, nil
	}
	delete(m.data, key)
	return true, nil
}

func (m *memStore) Keys(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	return keys, nil
}

func (m *memStore) Backup(context.Context, string) error { return nil }
func (m *memStore) Close() error                         { return nil }

// fakeChannelSearcher resolves names from a fixed map and counts calls.
type fakeChannelSearcher struct {
	mu    sync.Mutex
	ids   map[string]string
	err   error
	calls int
}

func (f *fakeChannelSearcher) SearchChannel(_ context.Context, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	id, ok := f.ids[name]
	if !ok {
		return "", ErrChannelNotFound
	}
	return id, nil
}

func (f *fakeChannelSearcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeVideoSearcher delegates to fn and counts calls.
type fakeVideoSearcher struct {
	mu    sync.Mutex
	fn    func(channelID string, publishedAfter time.Time, maxResults int64) ([]VideoRecord, error)
	calls int
}

func (f *fakeVideoSearcher) SearchVideos(_ context.Context, channelID string, publishedAfter time.Time, maxResults int64) ([]VideoRecord, error) {
	f.mu.Lock()
	f.calls++
	fn := f.fn
	f.mu.Unlock()
	return fn(channelID, publishedAfter, maxResults)
}

func (f *fakeVideoSearcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
