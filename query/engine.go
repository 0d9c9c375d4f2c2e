// Copyright 2017 Pilosa Corp.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions
// are met:
//
// 1. Redistributions of source code must retain the above copyright
// notice, this list of conditions and the following disclaimer.
//
// 2. Redistributions in binary form must reproduce the above copyright
// notice, this list of conditions and the following disclaimer in the
// documentation and/or other materials provided with the distribution.
//
// 3. Neither the name of the copyright holder nor the names of its
// contributors may be used to endorse or promote products derived
// from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND
// CONTRIBUTORS "AS IS" AND ANY EXPRESS OR IMPLIED WARRANTIES,
// INCLUDING, BUT NOT LIMITED TO, THE IMPLIED WARRANTIES OF
// MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE ARE
// DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR
// CONTRIBUTORS BE LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL,
// SPECIAL, EXEMPLARY, OR CONSEQUENTIAL DAMAGES (INCLUDING,
// BUT NOT LIMITED TO, PROCUREMENT OF SUBSTITUTE GOODS OR
// SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY,
// WHETHER IN CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING
// NEGLIGENCE OR OTHERWISE) ARISING IN ANY WAY OUT OF THE USE
// OF THIS SOFTWARE, EVEN IF ADVISED OF THE POSSIBILITY OF SUCH
// DAMAGE.

// Package query answers "who has exactly n films in this role" over a
// filmography.Snapshot, and summarizes the population of a role.
package query

import (
	"sort"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/pilosa/filmography"
	"github.com/pkg/errors"
)

// Defaults for the query memo.
const (
	DefaultCacheTTL  = 7 * 24 * time.Hour
	DefaultCacheSize = 256
)

// SnapshotLoader provides the current snapshot. *boltdb.Store implements it.
type SnapshotLoader interface {
	Load() (*filmography.Snapshot, error)
}

// NameLookup resolves a person id to a display name. *leveldb.NameIndex
// implements it.
type NameLookup interface {
	Name(id string) (name string, ok bool, err error)
}

// PersonResult is one person matching a query, with biographical fields left
// absent when the people table has no record for them.
type PersonResult struct {
	filmography.PersonStats
	Name        filmography.NullString
	BirthYear   filmography.NullInt
	DeathYear   filmography.NullInt
	Professions []string
}

// Result is the answer to Query: the matching people ranked by popularity and
// all of their credits.
type Result struct {
	Role    filmography.Role
	N       int
	People  []PersonResult
	Credits []filmography.CreditEdge
}

type cacheKey struct {
	role filmography.Role
	n    int
}

// Engine runs queries against the snapshot provided by a SnapshotLoader.
type Engine struct {
	mu sync.Mutex

	store SnapshotLoader
	names NameLookup
	log   filmography.Logger
	stats filmography.Statter

	cacheTTL  time.Duration
	cacheSize int
	cache     *expirable.LRU[cacheKey, *Result]
	summaries map[filmography.Role]*Summary
	// CreatedAt of the snapshot the memos were computed from.
	generation time.Time
}

// Option is a functional option for NewEngine.
type Option func(e *Engine)

// OptNameLookup sets the fallback used to name leaderboard entries which the
// snapshot's people tables do not cover.
func OptNameLookup(n NameLookup) Option {
	return func(e *Engine) {
		e.names = n
	}
}

// OptCacheTTL sets how long query results are memoized. Zero or negative
// disables expiry by age; results are still dropped on rebuild.
func OptCacheTTL(ttl time.Duration) Option {
	return func(e *Engine) {
		e.cacheTTL = ttl
	}
}

// OptCacheSize sets the maximum number of memoized results.
func OptCacheSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.cacheSize = n
		}
	}
}

// OptLogger sets the logger.
func OptLogger(l filmography.Logger) Option {
	return func(e *Engine) {
		e.log = l
	}
}

// OptStatter sets the statter.
func OptStatter(s filmography.Statter) Option {
	return func(e *Engine) {
		e.stats = s
	}
}

// NewEngine gets an Engine reading snapshots from store.
func NewEngine(store SnapshotLoader, opts ...Option) *Engine {
	e := &Engine{
		store:     store,
		log:       filmography.NopLogger{},
		stats:     filmography.NopStatter{},
		cacheTTL:  DefaultCacheTTL,
		cacheSize: DefaultCacheSize,
		summaries: make(map[filmography.Role]*Summary),
	}
	for _, opt := range opts {
		opt(e)
	}
	ttl := e.cacheTTL
	if ttl < 0 {
		ttl = 0
	}
	e.cache = expirable.NewLRU[cacheKey, *Result](e.cacheSize, nil, ttl)
	return e
}

// snapshot loads the current snapshot and drops every memo computed from an
// older one. e.mu must be held.
func (e *Engine) snapshot() (*filmography.Snapshot, error) {
	snap, err := e.store.Load()
	if err != nil {
		return nil, errors.Wrap(err, "loading snapshot")
	}
	if !snap.CreatedAt.Equal(e.generation) {
		if !e.generation.IsZero() {
			e.log.Printf("snapshot rebuilt at %v, dropping %d memoized results", snap.CreatedAt, e.cache.Len())
		}
		e.cache.Purge()
		e.summaries = make(map[filmography.Role]*Summary)
		e.generation = snap.CreatedAt
	}
	return snap, nil
}

// Query returns the people credited on exactly n films in role, most popular
// first, along with their credits. No match is an empty Result, not an error.
func (e *Engine) Query(role filmography.Role, n int) (*Result, error) {
	if !role.Valid() {
		return nil, errors.Errorf("invalid role %d", role)
	}
	if n < 1 {
		return nil, errors.Errorf("movie count must be at least 1, got %d", n)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	snap, err := e.snapshot()
	if err != nil {
		return nil, err
	}
	key := cacheKey{role: role, n: n}
	if res, ok := e.cache.Get(key); ok {
		e.stats.Count("query.memo.hit", 1, 1)
		return res, nil
	}
	e.stats.Count("query.memo.miss", 1, 1)
	start := time.Now()
	res := run(snap.Role(role), role, n)
	e.stats.Timing("query.run", time.Since(start), 1)
	e.log.Debugf("%s query n=%d: %d people, %d credits", role, n, len(res.People), len(res.Credits))
	e.cache.Add(key, res)
	return res, nil
}

func run(rs *filmography.RoleSnapshot, role filmography.Role, n int) *Result {
	people := make(map[string]*filmography.Person, len(rs.People))
	for i := range rs.People {
		people[rs.People[i].ID] = &rs.People[i]
	}

	res := &Result{Role: role, N: n, People: []PersonResult{}, Credits: []filmography.CreditEdge{}}
	for _, st := range rs.Stats {
		if st.MovieCount != n {
			continue
		}
		pr := PersonResult{PersonStats: st}
		if p, ok := people[st.PersonID]; ok {
			pr.Name = p.Name
			pr.BirthYear = p.BirthYear
			pr.DeathYear = p.DeathYear
			pr.Professions = p.Professions
		}
		res.People = append(res.People, pr)
	}
	sort.Slice(res.People, func(i, j int) bool {
		a, b := res.People[i], res.People[j]
		if a.Popularity != b.Popularity {
			return a.Popularity > b.Popularity
		}
		return a.PersonID < b.PersonID
	})

	rank := make(map[string]int, len(res.People))
	for i, p := range res.People {
		rank[p.PersonID] = i
	}
	for _, c := range rs.Credits {
		if _, ok := rank[c.PersonID]; ok {
			res.Credits = append(res.Credits, c)
		}
	}
	sort.Slice(res.Credits, func(i, j int) bool {
		a, b := res.Credits[i], res.Credits[j]
		if ra, rb := rank[a.PersonID], rank[b.PersonID]; ra != rb {
			return ra < rb
		}
		if a.Year.Int != b.Year.Int {
			return a.Year.Int < b.Year.Int
		}
		if a.Title != b.Title {
			return a.Title < b.Title
		}
		return a.TitleID < b.TitleID
	})
	return res
}
