package runner

import (
	"container/list"
	"io"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// connectionCache caches open AMQP connection/channel pairs by DSN, evicting
// the oldest entry on insert once capacity is reached. Grounded on
// original_source/src/processor/amqp.rs's Client: insertion order, not
// access order, determines eviction (§2 "LRU connection cache" — the
// original evicts on insertion order, which this preserves).
type connectionCache struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]*list.Element
	order    *list.List // front = oldest
}

// cacheEntry's conn is held as io.Closer, not a concrete *amqp.Connection,
// so tests can exercise eviction order without dialing a real broker.
type cacheEntry struct {
	dsn  string
	conn io.Closer
	ch   *amqp.Channel
}

func newConnectionCache(capacity int) *connectionCache {
	return &connectionCache{
		capacity: capacity,
		entries:  make(map[string]*list.Element),
		order:    list.New(),
	}
}

// get returns a cached channel for dsn, or ok=false if none is cached.
func (c *connectionCache) get(dsn string) (*amqp.Channel, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[dsn]
	if !ok {
		return nil, false
	}

	return el.Value.(*cacheEntry).ch, true
}

// put inserts a newly opened connection/channel pair, evicting the oldest
// entry first if the cache is at capacity.
func (c *connectionCache) put(dsn string, conn io.Closer, ch *amqp.Channel) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[dsn]; ok {
		return
	}

	if len(c.entries) >= c.capacity {
		oldest := c.order.Front()
		if oldest != nil {
			c.evictElement(oldest)
		}
	}

	el := c.order.PushBack(&cacheEntry{dsn: dsn, conn: conn, ch: ch})
	c.entries[dsn] = el
}

// evict drops the cached entry for dsn, closing its connection. Called on a
// publish error so the next attempt opens a fresh connection (§4.3).
func (c *connectionCache) evict(dsn string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[dsn]
	if !ok {
		return
	}
	c.evictElement(el)
}

func (c *connectionCache) evictElement(el *list.Element) {
	entry := el.Value.(*cacheEntry)
	delete(c.entries, entry.dsn)
	c.order.Remove(el)
	entry.conn.Close()
}

func (c *connectionCache) closeAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for el := c.order.Front(); el != nil; el = el.Next() {
		el.Value.(*cacheEntry).conn.Close()
	}
	c.order.Init()
	c.entries = make(map[string]*list.Element)
}

func (c *connectionCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}
