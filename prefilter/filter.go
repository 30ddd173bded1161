// Package prefilter answers "definitely not in the reference file" from memory.
//
// A Set holds one BinaryFuse8 filter per hash prefix, built in a single
// streaming pass over the sorted reference file so that only one prefix worth
// of keys is buffered at a time. The filter is never written to disk.
package prefilter

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/FastFilter/xorfilter"
	"github.com/dgryski/go-metro"
	"github.com/gamma-omg/pwnaudit/sortedfile"
)

const (
	DefaultSeed      = 1337
	DefaultPrefixLen = 3

	// Partitions smaller than this keep their exact key hashes.
	minFilterKeys = 32
)

var ErrUnsorted = errors.New("reference file is not strictly sorted")

type partition struct {
	filter *xorfilter.BinaryFuse8
	exact  []uint64
}

func (p *partition) contains(key uint64) bool {
	if p.filter != nil {
		return p.filter.Contains(key)
	}
	_, ok := slices.BinarySearch(p.exact, key)
	return ok
}

type Set struct {
	prefixLen  int
	seed       uint64
	partitions map[string]*partition
	keys       int
}

func Build(r io.Reader, prefixLen int, seed uint64) (*Set, error) {
	if prefixLen <= 0 {
		prefixLen = DefaultPrefixLen
	}

	s := &Set{
		prefixLen:  prefixLen,
		seed:       seed,
		partitions: make(map[string]*partition),
	}

	var (
		last    []byte
		prefix  string
		pending []uint64
	)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		key, _, err := sortedfile.ParseLine(scanner.Bytes())
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}

		if last != nil && bytes.Compare(key, last) <= 0 {
			return nil, fmt.Errorf("%w: line %d", ErrUnsorted, lineNum)
		}
		last = append(last[:0], key...)

		p := string(key[:min(len(key), prefixLen)])
		if p != prefix {
			if err := s.add(prefix, pending); err != nil {
				return nil, err
			}
			prefix = p
			pending = pending[:0]
		}

		pending = append(pending, metro.Hash64(key, seed))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read reference file: %w", err)
	}

	if err := s.add(prefix, pending); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Set) add(prefix string, keys []uint64) error {
	if len(keys) == 0 {
		return nil
	}

	slices.Sort(keys)
	keys = slices.Compact(keys)
	s.keys += len(keys)

	if len(keys) < minFilterKeys {
		s.partitions[prefix] = &partition{exact: slices.Clone(keys)}
		return nil
	}

	filter, err := xorfilter.PopulateBinaryFuse8(keys)
	if err != nil {
		return fmt.Errorf("failed to build filter for prefix %s: %w", prefix, err)
	}
	s.partitions[prefix] = &partition{filter: filter}

	return nil
}

// MayContain reports false only when hash is certainly absent.
func (s *Set) MayContain(hash string) bool {
	p, ok := s.partitions[hash[:min(len(hash), s.prefixLen)]]
	if !ok {
		return false
	}

	return p.contains(metro.Hash64([]byte(hash), s.seed))
}

func (s *Set) Keys() int {
	return s.keys
}

func (s *Set) Partitions() int {
	return len(s.partitions)
}
