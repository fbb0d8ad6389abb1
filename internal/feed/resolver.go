package feed

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog"

	"tubedigest/internal/kv"
	"tubedigest/internal/metrics"
)

// resolveKeyPrefix namespaces resolved channel IDs in the record store.
const resolveKeyPrefix = "channel_id:"

// Resolver maps a channel display name to its stable channel ID, consulting
// and populating the record-store cache. Resolved IDs are cached without a
// TTL: a channel rename upstream leaves a stale mapping until it is
// explicitly evicted.
type Resolver struct {
	upstream ChannelSearcher
	cache    kv.Store
	log      zerolog.Logger
}

// NewResolver creates a resolver backed by the given upstream search and
// record store.
func NewResolver(upstream ChannelSearcher, cache kv.Store, log zerolog.Logger) *Resolver {
	return &Resolver{
		upstream: upstream,
		cache:    cache,
		log:      log.With().Str("component", "resolver").Logger(),
	}
}

// Resolve returns the channel ID for a display name. A cache hit performs
// no upstream call. Zero upstream matches and upstream failures both yield
// ok=false; callers treat the two identically and skip the channel for the
// run. Failed resolutions are not cached, so every run retries them.
func (r *Resolver) Resolve(ctx context.Context, name string) (string, bool) {
	if raw, err := r.cache.Get(ctx, resolveKeyPrefix+name); err == nil {
		var id string
		if err := json.Unmarshal(raw, &id); err == nil && id != "" {
			metrics.IncCache("resolver", true)
			return id, true
		}
	}
	metrics.IncCache("resolver", false)

	id, err := r.upstream.SearchChannel(ctx, name)
	if err != nil {
		if errors.Is(err, ErrChannelNotFound) {
			r.log.Warn().Str("channel", name).Msg("no channel found")
		} else {
			r.log.Error().Err(err).Str("channel", name).Msg("channel lookup failed")
		}
		return "", false
	}

	raw, _ := json.Marshal(id)
	if err := r.cache.Set(ctx, resolveKeyPrefix+name, raw); err != nil {
		r.log.Error().Err(err).Str("channel", name).Msg("cache resolved channel id")
	}
	return id, true
}

// Evict removes a cached name → ID mapping. It reports whether a mapping
// existed.
func (r *Resolver) Evict(ctx context.Context, name string) bool {
	deleted, err := r.cache.Delete(ctx, resolveKeyPrefix+name)
	if err != nil {
		r.log.Error().Err(err).Str("channel", name).Msg("evict resolved channel id")
		return false
	}
	return deleted
}
