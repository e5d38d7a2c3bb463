package webcache

import (
	"net/http"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

// CachedResponse is one captured network response. CapturedAt drives the
// freshness check; entries past the window stay usable as a last-resort
// fallback until their store is purged.
type CachedResponse struct {
	Status     int
	Header     http.Header
	Body       []byte
	CapturedAt time.Time
}

// CacheSet holds the named cache stores of every generation seen by this
// process. Stores are created lazily; entries never expire on their own,
// eviction happens wholesale when a generation is purged.
type CacheSet struct {
	mu     sync.Mutex
	stores map[string]*cache.Cache
}

func NewCacheSet() *CacheSet {
	return &CacheSet{stores: make(map[string]*cache.Cache)}
}

// Open returns the store with the given name, creating it if needed.
func (cs *CacheSet) Open(name string) *cache.Cache {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	store, ok := cs.stores[name]
	if !ok {
		store = cache.New(cache.NoExpiration, 0)
		cs.stores[name] = store
	}
	return store
}

// Drop flushes and removes a single named store.
func (cs *CacheSet) Drop(name string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if store, ok := cs.stores[name]; ok {
		store.Flush()
		delete(cs.stores, name)
	}
}

// DeleteExcept removes every store whose name is not in keep.
func (cs *CacheSet) DeleteExcept(keep ...string) {
	keepSet := make(map[string]struct{}, len(keep))
	for _, name := range keep {
		keepSet[name] = struct{}{}
	}

	cs.mu.Lock()
	defer cs.mu.Unlock()
	for name, store := range cs.stores {
		if _, ok := keepSet[name]; ok {
			continue
		}
		store.Flush()
		delete(cs.stores, name)
	}
}

// Names lists the currently open stores.
func (cs *CacheSet) Names() []string {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	out := make([]string, 0, len(cs.stores))
	for name := range cs.stores {
		out = append(out, name)
	}
	return out
}
