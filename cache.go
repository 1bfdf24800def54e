// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package sqlnamed

import (
	"context"
	"database/sql"
	"sync"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultStatementCacheSize is the number of prepared statements a DB keeps
// unless told otherwise.
const DefaultStatementCacheSize = 128

// cachedStmt is a prepared statement held by the cache.
//
// refs counts the queries currently running on the statement and evicted is
// set once the statement has left the cache. The statement is closed when
// both are true. Both fields are guarded by the cache mutex.
type cachedStmt struct {
	query   string
	stmt    *sql.Stmt
	refs    int
	evicted bool
}

// statementCache keeps the driver prepared statements of a DB, indexed by
// the hash of their SQL. The least recently used statement is closed when
// the cache is full.
//
// The mutex must be locked when accessing the lru or the fields of a
// cachedStmt.
type statementCache struct {
	mutex sync.Mutex
	lru   *lru.Cache[uint64, *cachedStmt]
}

func newStatementCache(size int) (*statementCache, error) {
	sc := &statementCache{}
	cache, err := lru.NewWithEvict[uint64, *cachedStmt](size, sc.onEvict)
	if err != nil {
		return nil, err
	}
	sc.lru = cache
	return sc, nil
}

// onEvict is called by the lru, with the mutex held, when a statement leaves
// the cache.
func (sc *statementCache) onEvict(_ uint64, cs *cachedStmt) {
	cs.evicted = true
	if cs.refs == 0 {
		cs.stmt.Close()
	}
}

// prepareSubstrate is an object that queries can be prepared on, e.g. a sql.DB
// or sql.Conn.
type prepareSubstrate interface {
	PrepareContext(context.Context, string) (*sql.Stmt, error)
}

// lookup returns the cached statement for query, if there is one. A
// statement returned by lookup must be handed back with release.
func (sc *statementCache) lookup(query string) (*cachedStmt, bool) {
	sc.mutex.Lock()
	defer sc.mutex.Unlock()
	cs, ok := sc.lru.Get(xxhash.Sum64String(query))
	if !ok || cs.query != query {
		return nil, false
	}
	cs.refs++
	return cs, true
}

// acquire returns the cached statement for query, preparing it on ps if it
// is not in the cache. The statement must be handed back with release.
func (sc *statementCache) acquire(ctx context.Context, ps prepareSubstrate, query string) (*cachedStmt, error) {
	if cs, ok := sc.lookup(query); ok {
		return cs, nil
	}

	stmt, err := ps.PrepareContext(ctx, query)
	if err != nil {
		return nil, err
	}

	key := xxhash.Sum64String(query)
	sc.mutex.Lock()
	defer sc.mutex.Unlock()
	if cs, ok := sc.lru.Peek(key); ok {
		if cs.query == query {
			// Someone else prepared the statement since we last checked.
			stmt.Close()
			sc.lru.Get(key)
			cs.refs++
			return cs, nil
		}
		// Two queries share a hash. Add would replace the entry without
		// evicting it, so remove it first to get it closed.
		sc.lru.Remove(key)
	}
	cs := &cachedStmt{query: query, stmt: stmt, refs: 1}
	sc.lru.Add(key, cs)
	return cs, nil
}

// release hands back a statement obtained from lookup or acquire.
func (sc *statementCache) release(cs *cachedStmt) {
	sc.mutex.Lock()
	defer sc.mutex.Unlock()
	cs.refs--
	if cs.evicted && cs.refs == 0 {
		cs.stmt.Close()
	}
}

// purge evicts every statement from the cache.
func (sc *statementCache) purge() {
	sc.mutex.Lock()
	defer sc.mutex.Unlock()
	sc.lru.Purge()
}

// len returns the number of statements in the cache.
func (sc *statementCache) len() int {
	sc.mutex.Lock()
	defer sc.mutex.Unlock()
	return sc.lru.Len()
}
