// Package cache provides the bounded, TTL-expiring lookup cache for
// place records. One logical record is indexed under up to three alias
// keys (lookup key, numeric id, canonical code) so a later scan by any
// of them hits. The whole cache is persisted as a single blob; a storage
// fault never propagates to the caller since the cache is purely an
// optimization over the network lookup.
package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/mxscan/scankit/logger"
	"github.com/mxscan/scankit/place"
	"github.com/mxscan/scankit/store"
)

const (
	// DefaultCapacity bounds the number of distinct keys (not records).
	DefaultCapacity = 500
	// DefaultTTL is how long a cached record is served before it is
	// treated as stale. Warehouse topology changes slowly; an hour is an
	// acceptable staleness bound.
	DefaultTTL = time.Hour
	// StorageKey is the blob key the serialized cache lives under.
	StorageKey = "scankit.place_cache"
)

type entry struct {
	Data place.Record `json:"data"`
	TS   time.Time    `json:"ts"`
}

// snapshot is the persisted layout: the key map plus the insertion-order
// sequence used for eviction.
type snapshot struct {
	Items map[string]entry `json:"items"`
	Order []string         `json:"order"`
}

// PlaceCache maps normalized place identifiers to their last-known
// record. Eviction is FIFO by insertion order — reads do not refresh
// recency. Expiry is lazy: an expired entry is reported absent on Get
// but only physically removed by capacity eviction.
type PlaceCache struct {
	mutex    sync.Mutex
	store    store.Store
	log      logger.Logger
	capacity int
	ttl      time.Duration
	now      func() time.Time

	items map[string]entry
	order []string
}

// Option configures a PlaceCache.
type Option func(*PlaceCache)

// WithCapacity overrides the key bound. Values below 1 are ignored.
func WithCapacity(n int) Option {
	return func(c *PlaceCache) {
		if n > 0 {
			c.capacity = n
		}
	}
}

// WithTTL overrides the entry time-to-live.
func WithTTL(d time.Duration) Option {
	return func(c *PlaceCache) {
		if d > 0 {
			c.ttl = d
		}
	}
}

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(c *PlaceCache) { c.now = now }
}

// New returns a PlaceCache backed by s. Previously persisted state is
// loaded immediately; a load failure is logged and the cache starts
// empty rather than failing construction.
func New(ctx context.Context, s store.Store, log logger.Logger, opts ...Option) *PlaceCache {
	c := &PlaceCache{
		store:    s,
		log:      log.WithPrefix("[cache]"),
		capacity: DefaultCapacity,
		ttl:      DefaultTTL,
		now:      time.Now,
		items:    make(map[string]entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.load(ctx)
	return c
}

func (c *PlaceCache) load(ctx context.Context) {
	blob, found, err := c.store.Load(ctx, StorageKey)
	if err != nil {
		c.log.Warn("failed to load persisted cache, starting empty: %s", err)
		return
	}
	if !found {
		return
	}
	var snap snapshot
	if err := json.Unmarshal(blob, &snap); err != nil {
		c.log.Warn("persisted cache is corrupt, starting empty: %s", err)
		return
	}
	if snap.Items == nil {
		return
	}
	// Rebuild the order sequence dropping any key the map lost (or vice
	// versa) so the |order| == |items| invariant holds after load.
	c.items = make(map[string]entry, len(snap.Items))
	c.order = make([]string, 0, len(snap.Items))
	for _, key := range snap.Order {
		if e, ok := snap.Items[key]; ok {
			if _, dup := c.items[key]; !dup {
				c.items[key] = e
				c.order = append(c.order, key)
			}
		}
	}
	for key, e := range snap.Items {
		if _, ok := c.items[key]; !ok {
			c.items[key] = e
			c.order = append(c.order, key)
		}
	}
}

// Get returns the cached record for key, if present and fresh. The key
// is normalized before lookup. Expired entries are treated as absent but
// left in place; removal happens on the next eviction.
func (c *PlaceCache) Get(_ context.Context, key string) (place.Record, bool) {
	k := place.NormalizeKey(key)
	c.mutex.Lock()
	defer c.mutex.Unlock()
	e, ok := c.items[k]
	if !ok {
		return place.Record{}, false
	}
	if c.now().Sub(e.TS) > c.ttl {
		return place.Record{}, false
	}
	return e.Data, true
}

// Set stores rec under the normalized key and under the record's own
// numeric id and code when they differ — at most three writes. Each
// write that pushes the key count past capacity evicts the single
// oldest-inserted key first. Persistence failures are swallowed and
// logged; Set never fails.
//
// The lock is held across the store write so concurrent Sets persist
// their snapshots in mutation order and the durable blob is never older
// than the in-memory state a completed Set produced.
func (c *PlaceCache) Set(ctx context.Context, key string, rec place.Record) {
	now := c.now()
	c.mutex.Lock()
	defer c.mutex.Unlock()
	for _, alias := range place.Aliases(key, rec) {
		if _, exists := c.items[alias]; !exists {
			c.order = append(c.order, alias)
		}
		c.items[alias] = entry{Data: rec, TS: now}
		for len(c.order) > c.capacity {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.items, oldest)
		}
	}
	blob, err := json.Marshal(snapshot{Items: c.items, Order: c.order})
	if err != nil {
		c.log.Warn("failed to serialize cache: %s", err)
		return
	}
	if err := c.store.Save(ctx, StorageKey, blob); err != nil {
		c.log.Warn("failed to persist cache: %s", err)
	}
}

// Len returns the number of distinct keys currently held, counting
// expired-but-unevicted entries.
func (c *PlaceCache) Len() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return len(c.items)
}
