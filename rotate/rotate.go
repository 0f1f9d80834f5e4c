// Package rotate provides cyclic resource pools with failure quarantine.
//
// Scraping burns through proxies and session accounts; a Pool hands them out
// round-robin (or at random), lets callers quarantine entries that stopped
// working, and guarantees forward progress by clearing the quarantine when
// every entry has been marked failed. Pool state is process-local: each
// worker owns its own rotation cursor, no cross-process coordination.
package rotate

import (
	"math/rand"
	"sync"
)

// Pool is a rotating pool of resources with failure quarantine.
// Safe for concurrent use.
type Pool[T comparable] struct {
	mu     sync.Mutex
	items  []T
	cursor int
	failed map[T]struct{}
}

// NewPool creates a Pool over the given items. The slice is copied.
func NewPool[T comparable](items []T) *Pool[T] {
	return &Pool[T]{
		items:  append([]T(nil), items...),
		failed: make(map[T]struct{}),
	}
}

// Len returns the total number of items, quarantined or not.
func (p *Pool[T]) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.items)
}

// Next returns the next non-quarantined item, advancing the cyclic cursor.
// If every item is quarantined, the quarantine is cleared and the item under
// the cursor is returned, so a pool of all-failing entries still rotates.
// ok is false only for an empty pool.
func (p *Pool[T]) Next() (item T, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.items) == 0 {
		return item, false
	}

	for range p.items {
		it := p.items[p.cursor]
		p.cursor = (p.cursor + 1) % len(p.items)
		if _, bad := p.failed[it]; !bad {
			return it, true
		}
	}

	// Everything is quarantined: reset and hand out the current item.
	clear(p.failed)
	it := p.items[p.cursor]
	p.cursor = (p.cursor + 1) % len(p.items)
	return it, true
}

// Random returns a uniformly chosen non-quarantined item. Same exhaustion
// fallback as Next: an all-quarantined pool is reset first.
func (p *Pool[T]) Random() (item T, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.items) == 0 {
		return item, false
	}

	available := make([]T, 0, len(p.items))
	for _, it := range p.items {
		if _, bad := p.failed[it]; !bad {
			available = append(available, it)
		}
	}
	if len(available) == 0 {
		clear(p.failed)
		available = p.items
	}
	return available[rand.Intn(len(available))], true
}

// MarkFailed quarantines an item. Idempotent; unknown items are ignored.
func (p *Pool[T]) MarkFailed(item T) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, it := range p.items {
		if it == item {
			p.failed[item] = struct{}{}
			return
		}
	}
}

// FailedCount returns the number of quarantined items.
func (p *Pool[T]) FailedCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.failed)
}
