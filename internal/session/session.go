// Package session keeps a small in-memory cache of recent search results
// so repeated identical queries within a session skip the embedding call.
package session

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/semdex/semdex/internal/search"
)

// DefaultMaxResults bounds the cache when no limit is configured.
const DefaultMaxResults = 50

// entry is one cached result set.
type entry struct {
	results  []search.Result
	storedAt time.Time
}

// Cache is an LRU of recent query result sets. Safe for concurrent use.
type Cache struct {
	lru *lru.Cache[string, entry]
	ttl time.Duration
}

// New creates a cache bounded to maxResults entries. A non-positive ttl
// disables expiry.
func New(maxResults int, ttl time.Duration) (*Cache, error) {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	l, err := lru.New[string, entry](maxResults)
	if err != nil {
		return nil, err
	}
	return &Cache{lru: l, ttl: ttl}, nil
}

// Get returns the cached results for a query and scope, if present and
// fresh.
func (c *Cache) Get(query string, scope search.Scope) ([]search.Result, bool) {
	e, ok := c.lru.Get(Key(query, scope))
	if !ok {
		return nil, false
	}
	if c.ttl > 0 && time.Since(e.storedAt) > c.ttl {
		c.lru.Remove(Key(query, scope))
		return nil, false
	}
	return e.results, true
}

// Put stores the results for a query and scope.
func (c *Cache) Put(query string, scope search.Scope, results []search.Result) {
	c.lru.Add(Key(query, scope), entry{results: results, storedAt: time.Now()})
}

// Invalidate drops everything. Called after an index update so stale
// results are not served.
func (c *Cache) Invalidate() {
	c.lru.Purge()
}

// Len returns the number of cached result sets.
func (c *Cache) Len() int {
	return c.lru.Len()
}

// Key derives the cache key from the query and scope. Scope lists are
// order-insensitive.
func Key(query string, scope search.Scope) string {
	files := append([]string(nil), scope.Files...)
	folders := append([]string(nil), scope.Folders...)
	sort.Strings(files)
	sort.Strings(folders)

	h := sha256.New()
	h.Write([]byte(strings.TrimSpace(query)))
	h.Write([]byte{0})
	h.Write([]byte(strings.Join(files, "\x1f")))
	h.Write([]byte{0})
	h.Write([]byte(strings.Join(folders, "\x1f")))
	return hex.EncodeToString(h.Sum(nil)[:16])
}
