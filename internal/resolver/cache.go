package resolver

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// TTLCache is a thread-safe LRU of resolutions whose entries expire after a
// fixed TTL. Absent resolutions are cached too, so a location without a
// bundle is not re-probed on every request.
type TTLCache struct {
	ttl        time.Duration
	maxEntries int
	clock      clockwork.Clock

	mu      sync.Mutex
	entries map[string]*entry
	head    *entry // most recently used
	tail    *entry // least recently used
}

type entry struct {
	key     string
	value   Resolution
	expires time.Time
	prev    *entry
	next    *entry
}

// NewTTLCache creates a cache holding at most maxEntries resolutions for ttl.
// A nil clock uses the real clock.
func NewTTLCache(ttl time.Duration, maxEntries int, clock clockwork.Clock) *TTLCache {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &TTLCache{
		ttl:        ttl,
		maxEntries: maxEntries,
		clock:      clock,
		entries:    make(map[string]*entry),
	}
}

// Get returns the cached resolution for location if it has not expired.
func (c *TTLCache) Get(location string) (Resolution, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[location]
	if !ok {
		return Resolution{}, false
	}
	if !c.clock.Now().Before(e.expires) {
		c.unlink(e)
		return Resolution{}, false
	}
	c.moveToFront(e)
	return e.value, true
}

// Put stores res for location, evicting the least recently used entry when full.
func (c *TTLCache) Put(location string, res Resolution) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expires := c.clock.Now().Add(c.ttl)
	if e, ok := c.entries[location]; ok {
		e.value = res
		e.expires = expires
		c.moveToFront(e)
		return
	}

	e := &entry{key: location, value: res, expires: expires}
	c.entries[location] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.unlink(c.tail)
	}
}

// Invalidate drops location from the cache.
func (c *TTLCache) Invalidate(location string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[location]; ok {
		c.unlink(e)
	}
}

// Len returns the number of entries, expired or not.
func (c *TTLCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *TTLCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *TTLCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *TTLCache) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *TTLCache) unlink(e *entry) {
	if e == nil {
		return
	}
	delete(c.entries, e.key)
	c.remove(e)
}
