package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// defaultMemoryTTL applies when Set is called without an expiration.
const defaultMemoryTTL = 7 * 24 * time.Hour

type memEntry struct {
	key      string
	value    []byte
	expireAt time.Time
}

func (e *memEntry) expired(now time.Time) bool {
	return now.After(e.expireAt)
}

// MemoryCache implements Service in process. Entries are evicted least
// recently used first once MaxEntries is reached; a sweeper drops expired ones.
type MemoryCache struct {
	mu      sync.Mutex
	index   map[string]*list.Element
	order   *list.List // front = most recently used
	max     int
	sweeper *time.Ticker
	done    chan struct{}
	once    sync.Once
}

// NewMemoryCache creates an in-memory cache.
func NewMemoryCache(opts ...MemoryOption) *MemoryCache {
	cfg := defaultMemoryConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return newMemoryCache(*cfg)
}

func newMemoryCache(cfg MemoryConfig) *MemoryCache {
	mc := &MemoryCache{
		index:   make(map[string]*list.Element),
		order:   list.New(),
		max:     cfg.MaxEntries,
		sweeper: time.NewTicker(cfg.Sweep),
		done:    make(chan struct{}),
	}
	go mc.sweep()
	return mc
}

func (mc *MemoryCache) Set(_ context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := encode(value)
	if err != nil {
		return err
	}
	if expiration <= 0 {
		expiration = defaultMemoryTTL
	}
	exp := time.Now().Add(expiration)

	mc.mu.Lock()
	defer mc.mu.Unlock()
	if el, ok := mc.index[key]; ok {
		e := el.Value.(*memEntry)
		e.value, e.expireAt = data, exp
		mc.order.MoveToFront(el)
		return nil
	}
	for mc.order.Len() >= mc.max {
		mc.removeElement(mc.order.Back())
	}
	mc.index[key] = mc.order.PushFront(&memEntry{key: key, value: data, expireAt: exp})
	return nil
}

func (mc *MemoryCache) Get(_ context.Context, key string, dest interface{}) error {
	mc.mu.Lock()
	el, ok := mc.index[key]
	if !ok {
		mc.mu.Unlock()
		return ErrCacheMiss
	}
	e := el.Value.(*memEntry)
	if e.expired(time.Now()) {
		mc.removeElement(el)
		mc.mu.Unlock()
		return ErrCacheMiss
	}
	mc.order.MoveToFront(el)
	data := e.value
	mc.mu.Unlock()
	return decode(data, dest)
}

func (mc *MemoryCache) Delete(_ context.Context, keys ...string) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	for _, key := range keys {
		if el, ok := mc.index[key]; ok {
			mc.removeElement(el)
		}
	}
	return nil
}

func (mc *MemoryCache) Exists(_ context.Context, keys ...string) (bool, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	now := time.Now()
	for _, key := range keys {
		if el, ok := mc.index[key]; ok && !el.Value.(*memEntry).expired(now) {
			return true, nil
		}
	}
	return false, nil
}

// Len returns the number of stored entries, expired ones included.
func (mc *MemoryCache) Len() int {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	return mc.order.Len()
}

func (mc *MemoryCache) removeElement(el *list.Element) {
	if el == nil {
		return
	}
	mc.order.Remove(el)
	delete(mc.index, el.Value.(*memEntry).key)
}

func (mc *MemoryCache) sweep() {
	for {
		select {
		case <-mc.done:
			return
		case <-mc.sweeper.C:
		}
		now := time.Now()
		mc.mu.Lock()
		for el := mc.order.Back(); el != nil; {
			prev := el.Prev()
			if el.Value.(*memEntry).expired(now) {
				mc.removeElement(el)
			}
			el = prev
		}
		mc.mu.Unlock()
	}
}

// Close stops the sweeper.
func (mc *MemoryCache) Close() error {
	mc.once.Do(func() {
		mc.sweeper.Stop()
		close(mc.done)
	})
	return nil
}
