// Package history keeps a local journal of completed scan submissions so
// an operator can review their shift without the server. It is a bounded
// ring persisted as one msgpack blob; the oldest entries fall off when
// the bound is exceeded.
package history

import (
	"context"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/mxscan/scankit/logger"
	"github.com/mxscan/scankit/place"
	"github.com/mxscan/scankit/store"
)

const (
	// StorageKey is the blob key the serialized journal lives under.
	StorageKey = "scankit.history"
	// DefaultLimit bounds the journal length.
	DefaultLimit = 200
)

// Entry is one journaled submission outcome.
type Entry struct {
	ClientID  string           `msgpack:"client_id"`
	PlaceCod  int64            `msgpack:"place_cod"`
	PlaceName string           `msgpack:"place_name"`
	Status    place.ScanStatus `msgpack:"status"`
	FactQty   int              `msgpack:"fact_qty"`
	Photos    int              `msgpack:"photos"`
	Queued    bool             `msgpack:"queued"`
	At        time.Time        `msgpack:"at"`
}

// Journal is the persisted submission history.
type Journal struct {
	mutex sync.Mutex
	store store.Store
	log   logger.Logger
	limit int
}

// Option configures a Journal.
type Option func(*Journal)

// WithLimit overrides the journal bound.
func WithLimit(n int) Option {
	return func(j *Journal) {
		if n > 0 {
			j.limit = n
		}
	}
}

// New returns a Journal backed by s.
func New(s store.Store, log logger.Logger, opts ...Option) *Journal {
	j := &Journal{
		store: s,
		log:   log.WithPrefix("[history]"),
		limit: DefaultLimit,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

func (j *Journal) loadLocked(ctx context.Context) []Entry {
	blob, found, err := j.store.Load(ctx, StorageKey)
	if err != nil {
		j.log.Warn("failed to load journal: %s", err)
		return nil
	}
	if !found {
		return nil
	}
	var entries []Entry
	if err := msgpack.Unmarshal(blob, &entries); err != nil {
		j.log.Warn("journal blob is corrupt, starting empty: %s", err)
		return nil
	}
	return entries
}

// Append records one completed (or queued) submission. Persistence
// failures are swallowed and logged; the journal is informational.
func (j *Journal) Append(ctx context.Context, e Entry) {
	j.mutex.Lock()
	defer j.mutex.Unlock()
	entries := append(j.loadLocked(ctx), e)
	if len(entries) > j.limit {
		entries = entries[len(entries)-j.limit:]
	}
	blob, err := msgpack.Marshal(entries)
	if err != nil {
		j.log.Warn("failed to serialize journal: %s", err)
		return
	}
	if err := j.store.Save(ctx, StorageKey, blob); err != nil {
		j.log.Warn("failed to persist journal: %s", err)
	}
}

// Recent returns up to n most recent entries, newest first.
func (j *Journal) Recent(ctx context.Context, n int) []Entry {
	j.mutex.Lock()
	defer j.mutex.Unlock()
	entries := j.loadLocked(ctx)
	if n <= 0 || n > len(entries) {
		n = len(entries)
	}
	out := make([]Entry, 0, n)
	for i := len(entries) - 1; i >= len(entries)-n; i-- {
		out = append(out, entries[i])
	}
	return out
}
