// Package lookup resolves a hash-sorted batch of queries against a reference
// searcher, skipping the search for a query that repeats the previous hash.
package lookup

import (
	"iter"

	"github.com/gamma-omg/pwnaudit/sortedfile"
)

type Searcher interface {
	Search(hash string) (sortedfile.Result, error)
}

type Pipeline struct {
	searcher Searcher

	primed   bool
	lastHash string
	lastRes  sortedfile.Result
	hits     int
	err      error
}

func New(s Searcher) *Pipeline {
	return &Pipeline{searcher: s}
}

// Lookup returns the result for hash, answering from the previous result when
// hash repeats the last one. After a failure every call returns that failure.
func (p *Pipeline) Lookup(hash string) (sortedfile.Result, error) {
	if p.err != nil {
		return sortedfile.NotFound, p.err
	}

	if p.primed && hash == p.lastHash {
		p.hits++
		return p.lastRes, nil
	}

	res, err := p.searcher.Search(hash)
	if err != nil {
		p.err = err
		return sortedfile.NotFound, err
	}

	p.primed = true
	p.lastHash = hash
	p.lastRes = res

	return res, nil
}

func (p *Pipeline) CacheHits() int {
	return p.hits
}

type Match[Q any] struct {
	Query  Q
	Result sortedfile.Result
}

// Stream yields one Match per query, in query order, including misses.
// Iteration ends after the first error, which is yielded with the query that
// caused it.
func Stream[Q any](p *Pipeline, queries iter.Seq[Q], hashOf func(Q) string) iter.Seq2[Match[Q], error] {
	return func(yield func(Match[Q], error) bool) {
		for q := range queries {
			res, err := p.Lookup(hashOf(q))
			if err != nil {
				yield(Match[Q]{Query: q}, err)
				return
			}

			if !yield(Match[Q]{Query: q, Result: res}, nil) {
				return
			}
		}
	}
}
