package store

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
)

type memoryStore struct {
	mutex  sync.Mutex
	blobs  map[string][]byte
	failed bool
}

var _ Store = (*memoryStore)(nil)

// NewMemory returns an in-memory Store. It is the backing used in tests
// and for throwaway sessions where durability is not wanted.
func NewMemory() *Memory {
	return &Memory{memoryStore{blobs: make(map[string][]byte)}}
}

// Memory is the in-memory Store implementation. Tests can flip failure
// injection on to exercise storage-fault paths.
type Memory struct {
	memoryStore
}

// FailWrites makes every subsequent Save return an error, simulating an
// unavailable or full storage backend.
func (m *Memory) FailWrites(fail bool) {
	m.mutex.Lock()
	m.failed = fail
	m.mutex.Unlock()
}

// Len returns the number of stored keys.
func (m *Memory) Len() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return len(m.blobs)
}

func (c *memoryStore) Load(_ context.Context, key string) ([]byte, bool, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	blob, ok := c.blobs[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(blob))
	copy(out, blob)
	return out, true, nil
}

func (c *memoryStore) Save(_ context.Context, key string, blob []byte) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.failed {
		return errors.New("storage unavailable")
	}
	cp := make([]byte, len(blob))
	copy(cp, blob)
	c.blobs[key] = cp
	return nil
}

func (c *memoryStore) Delete(_ context.Context, key string) (bool, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	_, ok := c.blobs[key]
	if ok {
		delete(c.blobs, key)
	}
	return ok, nil
}

func (c *memoryStore) Close() error {
	return nil
}
