// Package cache remembers recently processed keys so redelivered messages
// can be recognised. It never holds ledger data.
package cache

import (
	"container/list"
	"sync"
	"time"
)

// Recent is a bounded set of keys with TTL and LRU eviction.
type Recent struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	items   map[string]*list.Element
	lru     *list.List
	now     func() time.Time
}

type entry struct {
	key       string
	expiresAt time.Time
}

// NewRecent creates a set holding at most maxSize keys for ttl each.
func NewRecent(maxSize int, ttl time.Duration) *Recent {
	if maxSize < 1 {
		maxSize = 1
	}
	return &Recent{
		maxSize: maxSize,
		ttl:     ttl,
		items:   make(map[string]*list.Element),
		lru:     list.New(),
		now:     time.Now,
	}
}

// Contains reports whether key was added and has not expired.
func (r *Recent) Contains(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	elem, ok := r.items[key]
	if !ok {
		return false
	}
	if r.now().After(elem.Value.(*entry).expiresAt) {
		r.removeElement(elem)
		return false
	}
	r.lru.MoveToFront(elem)
	return true
}

// Add records key, evicting the least recently used key when full.
func (r *Recent) Add(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	expiresAt := r.now().Add(r.ttl)
	if elem, ok := r.items[key]; ok {
		elem.Value.(*entry).expiresAt = expiresAt
		r.lru.MoveToFront(elem)
		return
	}

	r.items[key] = r.lru.PushFront(&entry{key: key, expiresAt: expiresAt})
	if r.lru.Len() > r.maxSize {
		if oldest := r.lru.Back(); oldest != nil {
			r.removeElement(oldest)
		}
	}
}

// Remove forgets key.
func (r *Recent) Remove(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if elem, ok := r.items[key]; ok {
		r.removeElement(elem)
	}
}

func (r *Recent) removeElement(elem *list.Element) {
	delete(r.items, elem.Value.(*entry).key)
	r.lru.Remove(elem)
}

// Len returns the number of keys held, expired ones included.
func (r *Recent) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lru.Len()
}
