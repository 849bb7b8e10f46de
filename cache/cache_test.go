package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mxscan/scankit/logger"
	"github.com/mxscan/scankit/place"
	"github.com/mxscan/scankit/store"
)

func record(id int64, code string) place.Record {
	return place.Record{PlaceCod: id, PlaceName: code, MXType: place.MXTypeBox}
}

func TestSetGet(t *testing.T) {
	ctx := context.Background()
	c := New(ctx, store.NewMemory(), logger.NewTestLogger())

	_, ok := c.Get(ctx, "Э6.01.01.01")
	assert.False(t, ok)

	rec := record(100101, "Э6.01.01.01")
	c.Set(ctx, "Э6.01.01.01", rec)
	got, ok := c.Get(ctx, "Э6.01.01.01")
	assert.True(t, ok)
	assert.Equal(t, rec, got)
}

func TestGetNormalizesKey(t *testing.T) {
	ctx := context.Background()
	c := New(ctx, store.NewMemory(), logger.NewTestLogger())
	c.Set(ctx, "э6.01.01.01", record(1, "Э6.01.01.01"))
	_, ok := c.Get(ctx, "  э6.01.01.01 ")
	assert.True(t, ok)
}

func TestAliasHits(t *testing.T) {
	ctx := context.Background()
	c := New(ctx, store.NewMemory(), logger.NewTestLogger())
	c.Set(ctx, "Э6.01.01.01", record(100101, "Э6.01.01.01"))

	// Cached under both the code and the numeric id.
	_, ok := c.Get(ctx, "100101")
	assert.True(t, ok)
	_, ok = c.Get(ctx, "э6.01.01.01")
	assert.True(t, ok)
	assert.Equal(t, 2, c.Len())
}

func TestTTLExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	clock := func() time.Time { return now }
	c := New(ctx, store.NewMemory(), logger.NewTestLogger(), WithTTL(time.Hour), WithClock(clock))

	rec := record(1, "A.1")
	c.Set(ctx, "A.1", rec)

	// Just inside the TTL: identical data.
	now = now.Add(time.Hour)
	got, ok := c.Get(ctx, "A.1")
	assert.True(t, ok)
	assert.Equal(t, rec, got)

	// Just past it: absent, but not purged.
	now = now.Add(time.Second)
	_, ok = c.Get(ctx, "A.1")
	assert.False(t, ok)
	assert.Equal(t, 1, c.Len())
}

func TestCapacityEviction(t *testing.T) {
	ctx := context.Background()
	const capacity = 10
	const extra = 3
	c := New(ctx, store.NewMemory(), logger.NewTestLogger(), WithCapacity(capacity))

	// Records with PlaceCod 0 and PlaceName equal to the key produce
	// exactly one alias each.
	for i := 0; i < capacity+extra; i++ {
		key := fmt.Sprintf("K.%02d", i)
		c.Set(ctx, key, place.Record{PlaceName: key})
	}

	assert.Equal(t, capacity, c.Len())
	// The oldest-inserted keys are the absent ones.
	for i := 0; i < extra; i++ {
		_, ok := c.Get(ctx, fmt.Sprintf("K.%02d", i))
		assert.False(t, ok, "key %d should have been evicted", i)
	}
	for i := extra; i < capacity+extra; i++ {
		_, ok := c.Get(ctx, fmt.Sprintf("K.%02d", i))
		assert.True(t, ok, "key %d should still be present", i)
	}
}

func TestEvictionIsFIFONotLRU(t *testing.T) {
	ctx := context.Background()
	c := New(ctx, store.NewMemory(), logger.NewTestLogger(), WithCapacity(2))

	c.Set(ctx, "A", place.Record{PlaceName: "A"})
	c.Set(ctx, "B", place.Record{PlaceName: "B"})

	// Reading A does not refresh its recency.
	_, ok := c.Get(ctx, "A")
	require.True(t, ok)

	c.Set(ctx, "C", place.Record{PlaceName: "C"})
	_, ok = c.Get(ctx, "A")
	assert.False(t, ok)
	_, ok = c.Get(ctx, "B")
	assert.True(t, ok)
	_, ok = c.Get(ctx, "C")
	assert.True(t, ok)
}

func TestAliasesEvictIndependently(t *testing.T) {
	ctx := context.Background()
	c := New(ctx, store.NewMemory(), logger.NewTestLogger(), WithCapacity(3))

	// One record, three aliases: LABEL, 7, X.1 — inserted in that order.
	c.Set(ctx, "LABEL", place.Record{PlaceCod: 7, PlaceName: "X.1"})
	assert.Equal(t, 3, c.Len())

	// One insertion evicts only the oldest alias; the record stays
	// reachable under the other two.
	c.Set(ctx, "Y.1", place.Record{PlaceName: "Y.1"})
	_, ok := c.Get(ctx, "LABEL")
	assert.False(t, ok)
	_, ok = c.Get(ctx, "7")
	assert.True(t, ok)
	_, ok = c.Get(ctx, "X.1")
	assert.True(t, ok)
}

func TestOverwriteKeepsInsertionOrder(t *testing.T) {
	ctx := context.Background()
	c := New(ctx, store.NewMemory(), logger.NewTestLogger(), WithCapacity(2))

	c.Set(ctx, "A", place.Record{PlaceName: "A"})
	c.Set(ctx, "B", place.Record{PlaceName: "B"})
	// Overwriting A does not move it to the back of the eviction queue.
	c.Set(ctx, "A", place.Record{PlaceName: "A", QtySHK: 5})
	c.Set(ctx, "C", place.Record{PlaceName: "C"})

	_, ok := c.Get(ctx, "A")
	assert.False(t, ok)
	_, ok = c.Get(ctx, "B")
	assert.True(t, ok)
}

func TestStorageFaultIsSwallowed(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	log := logger.NewTestLogger()
	c := New(ctx, mem, log)

	mem.FailWrites(true)
	c.Set(ctx, "A.1", record(1, "A.1"))

	// The in-memory view still serves the record; the fault only cost
	// durability, and it was logged.
	_, ok := c.Get(ctx, "A.1")
	assert.True(t, ok)
	assert.Contains(t, log.Severities(), "WARNING")
}

func TestPersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()

	first := New(ctx, mem, logger.NewTestLogger())
	rec := record(100101, "Э6.01.01.01")
	first.Set(ctx, "Э6.01.01.01", rec)

	// A fresh cache over the same store sees the entry, order included.
	second := New(ctx, mem, logger.NewTestLogger())
	got, ok := second.Get(ctx, "100101")
	assert.True(t, ok)
	assert.Equal(t, rec, got)
	assert.Equal(t, first.Len(), second.Len())
}

func TestConcurrentSetsPersistFinalState(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	c := New(ctx, mem, logger.NewTestLogger())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			code := fmt.Sprintf("Э6.01.01.%02d", n)
			c.Set(ctx, code, record(int64(100100+n), code))
		}(i)
	}
	wg.Wait()

	// Snapshots are written in mutation order, so whatever write landed
	// last carries every completed Set. A reload must see all of them.
	reloaded := New(ctx, mem, logger.NewTestLogger())
	assert.Equal(t, c.Len(), reloaded.Len())
	for i := 0; i < 10; i++ {
		_, ok := reloaded.Get(ctx, fmt.Sprintf("Э6.01.01.%02d", i))
		assert.True(t, ok, "key %d", i)
	}
}

func TestCorruptBlobStartsEmpty(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	require.NoError(t, mem.Save(ctx, StorageKey, []byte("not json")))

	log := logger.NewTestLogger()
	c := New(ctx, mem, log)
	assert.Equal(t, 0, c.Len())
	assert.Contains(t, log.Severities(), "WARNING")
}
