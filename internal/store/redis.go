package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/atmx/launchpad-engine/internal/model"
)

// CachedStore wraps a primary Store (PostgreSQL) with a Redis read-through
// cache for markets and listings, serving the registry's read views such as
// GET market and GET listing. Reads inside Atomic always go to the primary;
// keys written by a committed unit are invalidated afterwards.
type CachedStore struct {
	Store
	rdb *redis.Client
	ttl time.Duration
}

// NewCachedStore creates a cached wrapper around a primary store.
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{
		Store: primary,
		rdb:   rdb,
		ttl:   ttl,
	}
}

// --- Write-through (write to primary, invalidate cache) ---

func (s *CachedStore) Atomic(ctx context.Context, fn func(tx Tx) error) error {
	var touched []string
	err := s.Store.Atomic(ctx, func(tx Tx) error {
		touched = touched[:0]
		return fn(&trackingTx{Tx: tx, touched: &touched})
	})
	if err != nil {
		return err
	}
	if len(touched) > 0 {
		// The unit has committed; invalidate even if the caller has gone away.
		if err := s.rdb.Del(context.WithoutCancel(ctx), touched...).Err(); err != nil {
			slog.Warn("cache invalidation failed", "keys", touched, "err", err)
		}
	}
	return nil
}

// trackingTx records the cache keys of entities written through it.
type trackingTx struct {
	Tx
	touched *[]string
}

func (t *trackingTx) UpsertListing(ctx context.Context, l *model.Listing) error {
	*t.touched = append(*t.touched, listingKey(l.ID))
	return t.Tx.UpsertListing(ctx, l)
}

func (t *trackingTx) InsertMarket(ctx context.Context, m *model.Market) error {
	*t.touched = append(*t.touched, marketKey(m.ID))
	return t.Tx.InsertMarket(ctx, m)
}

func (t *trackingTx) UpdateMarket(ctx context.Context, m *model.Market) error {
	*t.touched = append(*t.touched, marketKey(m.ID))
	return t.Tx.UpdateMarket(ctx, m)
}

// --- Read-through (check cache first) ---

func (s *CachedStore) GetMarket(ctx context.Context, id string) (*model.Market, error) {
	data, err := s.rdb.Get(ctx, marketKey(id)).Bytes()
	if err == nil {
		var m model.Market
		if json.Unmarshal(data, &m) == nil {
			return &m, nil
		}
	}

	// Cache miss: read from primary.
	m, err := s.Store.GetMarket(ctx, id)
	if err != nil {
		return nil, err
	}

	s.cache(ctx, marketKey(id), m)
	return m, nil
}

func (s *CachedStore) GetListing(ctx context.Context, id string) (*model.Listing, error) {
	data, err := s.rdb.Get(ctx, listingKey(id)).Bytes()
	if err == nil {
		var l model.Listing
		if json.Unmarshal(data, &l) == nil {
			return &l, nil
		}
	}

	l, err := s.Store.GetListing(ctx, id)
	if err != nil {
		return nil, err
	}

	s.cache(ctx, listingKey(id), l)
	return l, nil
}

// --- Cache helpers ---

func (s *CachedStore) cache(ctx context.Context, key string, v any) {
	if data, err := json.Marshal(v); err == nil {
		s.rdb.Set(ctx, key, data, s.ttl)
	}
}

func marketKey(id string) string  { return fmt.Sprintf("market:%s", id) }
func listingKey(id string) string { return fmt.Sprintf("listing:%s", id) }
