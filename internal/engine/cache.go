// Package engine holds the client-side synchronization core: the entity
// cache, the optimistic mutation controller, the poll scheduler, and the
// append-only chat log. It renders nothing and owns no transport; it sits
// between UI intents and the gateway.
package engine

import "sync"

// Cache is the authoritative local snapshot of one entity kind, keyed by
// id. A poll refresh replaces the whole id-set; an optimistic mutation
// transforms one record in place. Per-id locks arbitrate between the two:
// both paths acquire the lock before reading or writing a record, so a
// refresh can never clobber a mutation that is still in flight.
type Cache[T any] struct {
	mu     sync.Mutex
	id     func(T) string
	items  map[string]T
	locked map[string]struct{}
}

func NewCache[T any](id func(T) string) *Cache[T] {
	return &Cache[T]{
		id:     id,
		items:  make(map[string]T),
		locked: make(map[string]struct{}),
	}
}

func (c *Cache[T]) Get(id string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	item, ok := c.items[id]
	return item, ok
}

// Snapshot returns a copy of every cached record.
func (c *Cache[T]) Snapshot() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]T, 0, len(c.items))
	for _, item := range c.items {
		out = append(out, item)
	}
	return out
}

// ReplaceAll swaps in a fresh authoritative set of records, except for ids
// with an in-flight mutation: those keep their current optimistic value and
// pick up the next refresh after the mutation settles.
func (c *Cache[T]) ReplaceAll(records []T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	next := make(map[string]T, len(records))
	for _, rec := range records {
		next[c.id(rec)] = rec
	}
	for id := range c.locked {
		if current, ok := c.items[id]; ok {
			next[id] = current
		} else {
			delete(next, id)
		}
	}
	c.items = next
}

// Put stores one record, overwriting any existing record with the same id.
func (c *Cache[T]) Put(rec T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[c.id(rec)] = rec
}

// Apply transforms the record for id in place. Returns false when the id is
// absent.
func (c *Cache[T]) Apply(id string, mutate func(T) T) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	item, ok := c.items[id]
	if !ok {
		return false
	}
	c.items[id] = mutate(item)
	return true
}

// TryLock marks id as having an in-flight mutation. Returns false when a
// mutation on the same id has not settled yet.
func (c *Cache[T]) TryLock(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, held := c.locked[id]; held {
		return false
	}
	c.locked[id] = struct{}{}
	return true
}

func (c *Cache[T]) Unlock(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.locked, id)
}

// Locked reports whether id has an in-flight mutation.
func (c *Cache[T]) Locked(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, held := c.locked[id]
	return held
}

func (c *Cache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
