// Package prefs owns the persisted user preferences: the category →
// channels mapping and the lookback duration setting.
package prefs

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"tubedigest/internal/kv"
)

// RecordKey is the record-store key the preferences live under.
const RecordKey = "preferences"

// Default lookback window: 7 days, 0 months.
const (
	DefaultDays   = 7
	DefaultMonths = 0
)

// Duration is the lookback window setting. The effective window is a flat
// approximation: days + months*30 calendar days.
type Duration struct {
	Days   int `json:"days"`
	Months int `json:"months"`
}

// Window returns the effective lookback duration.
func (d Duration) Window() time.Duration {
	return time.Duration(d.Days+d.Months*30) * 24 * time.Hour
}

// record is the versioned on-disk shape. The loader also accepts the legacy
// flat {category: [channel...]} shape and wraps it with default settings.
type record struct {
	Categories map[string][]string `json:"categories"`
	Settings   struct {
		Duration Duration `json:"duration"`
	} `json:"settings"`
}

// Store is the preference store. Safe for concurrent use.
type Store struct {
	kv  kv.Store
	log zerolog.Logger

	mu         sync.RWMutex
	categories map[string][]string
	duration   Duration
}

// Open loads preferences from the record store. A missing record is
// initialized with an empty category map and the default duration and
// persisted immediately, so the record always exists after first run.
// Read and parse errors are logged and treated as a missing record, never
// propagated.
func Open(ctx context.Context, store kv.Store, log zerolog.Logger) *Store {
	s := &Store{
		kv:         store,
		log:        log.With().Str("component", "prefs").Logger(),
		categories: make(map[string][]string),
		duration:   Duration{Days: DefaultDays, Months: DefaultMonths},
	}

	raw, err := store.Get(ctx, RecordKey)
	if err != nil {
		s.log.Info().Err(err).Msg("no preference record, initializing defaults")
		s.persist(ctx)
		return s
	}

	var rec record
	if err := json.Unmarshal(raw, &rec); err == nil && rec.Categories != nil {
		s.categories = rec.Categories
		s.duration = rec.Settings.Duration
		if s.duration.Days < 0 || s.duration.Months < 0 {
			s.duration = Duration{Days: DefaultDays, Months: DefaultMonths}
		}
		return s
	}

	// Legacy flat shape: the whole record is the category map. Migrated in
	// memory only; persisted on the next explicit save.
	var flat map[string][]string
	if err := json.Unmarshal(raw, &flat); err == nil {
		s.log.Info().Msg("migrated legacy flat preference record")
		s.categories = flat
		return s
	}

	s.log.Error().Msg("preference record unparsable, falling back to defaults")
	s.persist(ctx)
	return s
}

// AddCategory inserts an empty channel list under name. It reports whether
// the category was newly created. Empty names are rejected. Does not
// persist; the caller decides when to save.
func (s *Store) AddCategory(name string) bool {
	if name == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.categories[name]; ok {
		return false
	}
	s.categories[name] = []string{}
	return true
}

// RemoveCategory deletes a category and its channel list. It reports
// whether the category existed.
func (s *Store) RemoveCategory(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.categories[name]; !ok {
		return false
	}
	delete(s.categories, name)
	return true
}

// AddChannel appends a channel to a category, creating the category first
// when needed. It reports whether the channel was newly added. A channel
// name already present in any category is refused, so each channel is
// aggregated exactly once.
func (s *Store) AddChannel(name, category string) bool {
	if name == "" || category == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, channels := range s.categories {
		for _, ch := range channels {
			if ch == name {
				return false
			}
		}
	}
	s.categories[category] = append(s.categories[category], name)
	return true
}

// RemoveChannel removes the first occurrence of a channel. When category is
// non-empty only that category is searched. It reports whether a removal
// happened.
func (s *Store) RemoveChannel(name, category string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for cat, channels := range s.categories {
		if category != "" && cat != category {
			continue
		}
		for i, ch := range channels {
			if ch == name {
				s.categories[cat] = append(channels[:i], channels[i+1:]...)
				return true
			}
		}
	}
	return false
}

// Channels returns a deep copy of the category map so callers cannot mutate
// the store's state.
func (s *Store) Channels() map[string][]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string][]string, len(s.categories))
	for cat, channels := range s.categories {
		out[cat] = append([]string(nil), channels...)
	}
	return out
}

// Categories returns the category names in sorted order, for deterministic
// iteration and listings.
func (s *Store) Categories() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.categories))
	for cat := range s.categories {
		names = append(names, cat)
	}
	sort.Strings(names)
	return names
}

// Duration returns the current lookback window setting.
func (s *Store) Duration() Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.duration
}

// SetDuration updates the lookback window and persists immediately.
// Negative values are rejected.
func (s *Store) SetDuration(ctx context.Context, days, months int) bool {
	if days < 0 || months < 0 {
		return false
	}
	s.mu.Lock()
	s.duration = Duration{Days: days, Months: months}
	s.mu.Unlock()

	s.Save(ctx)
	return true
}

// Save serializes the preferences to the record store in the versioned
// shape. Failures are logged, not raised; the previously persisted record
// stays intact on write errors.
func (s *Store) Save(ctx context.Context) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	s.persist(ctx)
}

// persist writes the current state. Caller must hold at least a read lock
// (or be inside Open, before the store is shared).
func (s *Store) persist(ctx context.Context) {
	rec := record{Categories: s.categories}
	rec.Settings.Duration = s.duration

	raw, err := json.Marshal(rec)
	if err != nil {
		s.log.Error().Err(err).Msg("encode preference record")
		return
	}
	if err := s.kv.Set(ctx, RecordKey, raw); err != nil {
		s.log.Error().Err(err).Msg("persist preference record")
	}
}
