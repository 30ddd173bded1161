package sortedfile

import (
	"bytes"
	"fmt"
	"io"
	"math"
)

// Result is the outcome of one lookup. Count is the number of breaches the
// hash was seen in and is only meaningful when Found is set.
type Result struct {
	Found bool
	Count uint64
}

func Found(count uint64) Result {
	return Result{Found: true, Count: count}
}

var NotFound = Result{}

func (r Result) String() string {
	if !r.Found {
		return "not found"
	}
	return fmt.Sprintf("found(%d)", r.Count)
}

// Searcher looks up a rising sequence of hashes in a sorted HASH:COUNT stream.
// Each search starts where the previous one left off, so a sorted batch walks
// the file forward once instead of restarting from the beginning.
//
// A Searcher is not safe for concurrent use.
type Searcher struct {
	cur  *LineCursor
	step int64

	// pos is a line boundary; every entry before it sorts below last.
	pos      int64
	last     []byte
	target   []byte
	searched bool
	searches int
}

func NewSearcher(rs io.ReadSeeker) (*Searcher, error) {
	cur, err := NewLineCursor(rs)
	if err != nil {
		return nil, err
	}

	return &Searcher{
		cur:  cur,
		step: jumpStep(cur.Size()),
	}, nil
}

func jumpStep(size int64) int64 {
	return max(1, int64(math.Sqrt(float64(size))))
}

func (s *Searcher) Searches() int {
	return s.searches
}

func (s *Searcher) Stats() Stats {
	return s.cur.Stats()
}

// Search finds hash at or after the current position. Hashes must be passed in
// non-decreasing order; a smaller hash fails with ErrOrderingViolation.
func (s *Searcher) Search(hash string) (Result, error) {
	s.target = append(s.target[:0], hash...)
	if s.searched && bytes.Compare(s.target, s.last) < 0 {
		return NotFound, fmt.Errorf("%w: %s after %s", ErrOrderingViolation, hash, s.last)
	}

	s.last = append(s.last[:0], s.target...)
	s.searched = true
	s.searches++

	segStart := s.pos
	at := s.pos
	for {
		line, end, err := s.cur.ReadLineAt(at)
		if err != nil {
			return NotFound, err
		}
		if end == at {
			break
		}

		ord, count, err := Probe(line, s.target)
		if err != nil {
			return NotFound, fmt.Errorf("offset %d: %w", at, err)
		}

		if ord == Equal {
			s.pos = at
			return Found(count), nil
		}
		if ord == Greater {
			break
		}

		segStart = end
		at, err = s.cur.Align(end + s.step)
		if err != nil {
			return NotFound, err
		}
	}

	return s.scan(segStart, at)
}

// scan walks the lines in [from, to) that the jump phase skipped over.
func (s *Searcher) scan(from, to int64) (Result, error) {
	res, stop, err := scanRange(s.cur, s.target, from, to)
	if err != nil {
		return NotFound, err
	}

	s.pos = stop
	return res, nil
}
