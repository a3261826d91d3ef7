package recommend

import (
	"fmt"
	"sync"
	"time"

	"github.com/tierlab/splitbuy/internal/types"
)

// Cache memoizes recommendation records per (ticker, date) for the lifetime of
// one batch run. Concurrent requests for the same key compute at most once:
// followers block until the leader's computation finishes. Failed computations
// are not cached, so a later call retries.
type Cache struct {
	mu       sync.Mutex
	entries  map[string]types.RecommendationRecord
	inflight map[string]*inflightCall
}

type inflightCall struct {
	done   chan struct{}
	record types.RecommendationRecord
	err    error
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{
		entries:  make(map[string]types.RecommendationRecord),
		inflight: make(map[string]*inflightCall),
	}
}

func cacheKey(ticker string, date time.Time) string {
	return fmt.Sprintf("%s:%s", ticker, date.Format(types.DateLayout))
}

// GetOrCompute returns the cached record for (ticker, date), computing it via
// compute on a miss. For a given key, compute runs at most once concurrently.
func (c *Cache) GetOrCompute(ticker string, date time.Time, compute func() (types.RecommendationRecord, error)) (types.RecommendationRecord, error) {
	key := cacheKey(ticker, date)

	c.mu.Lock()

	if record, ok := c.entries[key]; ok {
		c.mu.Unlock()

		return record, nil
	}

	if call, ok := c.inflight[key]; ok {
		c.mu.Unlock()
		<-call.done

		return call.record, call.err
	}

	call := &inflightCall{done: make(chan struct{})}
	c.inflight[key] = call
	c.mu.Unlock()

	call.record, call.err = compute()

	c.mu.Lock()
	delete(c.inflight, key)
	if call.err == nil {
		c.entries[key] = call.record
	}
	c.mu.Unlock()

	close(call.done)

	return call.record, call.err
}

// Get returns the cached record for (ticker, date), if present.
func (c *Cache) Get(ticker string, date time.Time) (types.RecommendationRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	record, ok := c.entries[cacheKey(ticker, date)]

	return record, ok
}

// Put stores a record, overwriting any existing entry for its key.
func (c *Cache) Put(record types.RecommendationRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[cacheKey(record.Ticker, record.Date)] = record
}

// Len returns the number of cached records.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

// Clear drops every cached record. Call it between batch runs.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]types.RecommendationRecord)
}
