package db

import (
	lru "github.com/hashicorp/golang-lru"

	"github.com/jmoiron/sqlx"
)

const rebindCacheSize = 1024

// rebindCache memoizes placeholder rewrites. Template queries re-render
// the same statements heavily, so the rewrite is worth caching; the cache
// is per adapter so the query text alone is the key.
type rebindCache struct {
	bindType int
	c        *lru.Cache
}

func newRebindCache(bindType int) *rebindCache {
	c, err := lru.New(rebindCacheSize)
	if err != nil {
		// lru.New only fails on a non-positive size
		panic(err)
	}
	return &rebindCache{bindType: bindType, c: c}
}

func (r *rebindCache) rebind(query string) string {
	if v, ok := r.c.Get(query); ok {
		return v.(string)
	}
	q := sqlx.Rebind(r.bindType, query)
	r.c.Add(query, q)
	return q
}
