package kv

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"sort"
	"sync"
	"time"
)

const lockTimeout = 5 * time.Second

// FileStore implements Store using a single JSON file of key → raw value.
// Writes go through an AtomicWriter so a crash mid-write leaves the
// previously valid file intact.
type FileStore struct {
	path string
	lock *FileLock
	mu   sync.RWMutex
	data map[string]json.RawMessage
}

// NewFileStore opens the store at path. If the file exists it is loaded;
// otherwise an empty store is created and persisted immediately.
func NewFileStore(path string) (*FileStore, error) {
	s := &FileStore{
		path: path,
		lock: NewFileLock(path),
	}

	if err := s.lock.Lock(lockTimeout); err != nil {
		return nil, err
	}

	if err := s.load(); err != nil {
		s.lock.Unlock()
		return nil, err
	}

	return s, nil
}

func (s *FileStore) load() error {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.data = make(map[string]json.RawMessage)
			// Save immediately to catch permission errors early
			return s.save()
		}
		return &StoreError{Op: "read", Err: err}
	}

	s.data = make(map[string]json.RawMessage)
	if err := json.Unmarshal(raw, &s.data); err != nil {
		return &StoreError{Op: "read", Err: ErrCorrupt}
	}
	return nil
}

// save persists the data to disk atomically. Caller must hold the mutex.
func (s *FileStore) save() error {
	writer, err := NewAtomicWriter(s.path)
	if err != nil {
		return &StoreError{Op: "write", Err: err}
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(s.data); err != nil {
		writer.Abort()
		return &StoreError{Op: "write", Err: err}
	}

	if err := writer.Commit(); err != nil {
		return &StoreError{Op: "write", Err: err}
	}
	return nil
}

func (s *FileStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.data[key]
	if !ok {
		return nil, &StoreError{Op: "get", Key: key, Err: ErrNotFound}
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

func (s *FileStore) Set(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make(json.RawMessage, len(value))
	copy(stored, value)
	s.data[key] = stored
	return s.save()
}

func (s *FileStore) Delete(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[key]; !ok {
		return false, nil
	}
	delete(s.data, key)
	return true, s.save()
}

func (s *FileStore) Keys(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// Backup writes all records to a JSON file at path, in the same shape the
// store itself uses.
func (s *FileStore) Backup(ctx context.Context, path string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	writer, err := NewAtomicWriter(path)
	if err != nil {
		return &StoreError{Op: "backup", Err: err}
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(s.data); err != nil {
		writer.Abort()
		return &StoreError{Op: "backup", Err: err}
	}
	if err := writer.Commit(); err != nil {
		return &StoreError{Op: "backup", Err: err}
	}
	return nil
}

// Close releases the store's file lock.
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lock.Unlock()
}
