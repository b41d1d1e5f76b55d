package store

import (
	"context"
	"slices"
	"sync"
)

// MemoryStore keeps each key as a sorted de-duplicated slice. Writers take the
// write lock for the whole mutation so readers never see a cleared key that
// hasn't been repopulated.
type MemoryStore struct {
	sync.RWMutex
	sets map[string][]string
}

// NewMemoryStore returns an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sets: make(map[string][]string),
	}
}

func (ms *MemoryStore) Clear(_ context.Context, key string) error {
	ms.Lock()
	defer ms.Unlock()
	delete(ms.sets, key)
	return nil
}

func (ms *MemoryStore) InsertAll(_ context.Context, key string, members []string) error {
	ms.Lock()
	defer ms.Unlock()
	ms.sets[key] = sortedSet(append(slices.Clone(ms.sets[key]), members...))
	return nil
}

func (ms *MemoryStore) Replace(_ context.Context, key string, members []string) error {
	set := sortedSet(slices.Clone(members))
	ms.Lock()
	defer ms.Unlock()
	if len(set) == 0 {
		delete(ms.sets, key)
	} else {
		ms.sets[key] = set
	}
	return nil
}

func (ms *MemoryStore) Cardinality(_ context.Context, key string) (int64, error) {
	ms.RLock()
	defer ms.RUnlock()
	return int64(len(ms.sets[key])), nil
}

func (ms *MemoryStore) SortedRange(_ context.Context, key string, offset, limit int64) ([]string, error) {
	ms.RLock()
	defer ms.RUnlock()
	set := ms.sets[key]
	if offset < 0 || limit <= 0 || offset >= int64(len(set)) {
		return []string{}, nil
	}
	end := offset + min(limit, int64(len(set))-offset)
	return slices.Clone(set[offset:end]), nil
}

func (ms *MemoryStore) Ping(_ context.Context) error {
	return nil
}

func (ms *MemoryStore) Close() error {
	return nil
}

// sortedSet sorts and compacts the passed slice in place and returns it
func sortedSet(members []string) []string {
	slices.Sort(members)
	return slices.Compact(members)
}
