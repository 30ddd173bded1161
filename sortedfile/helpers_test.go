package sortedfile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"slices"
	"strings"
)

var (
	errSeek = errors.New("seek failed")
	errRead = errors.New("read failed")
)

type failingReader struct {
	*bytes.Reader
	limit int64
}

// Read fails once the stream position reaches limit.
func (f *failingReader) Read(p []byte) (int, error) {
	pos, _ := f.Reader.Seek(0, io.SeekCurrent)
	if pos >= f.limit {
		return 0, errRead
	}
	if rem := f.limit - pos; int64(len(p)) > rem {
		p = p[:rem]
	}
	return f.Reader.Read(p)
}

type failingSeeker struct {
	*bytes.Reader
	seeks int
}

// Seek lets NewLineCursor size the stream, then fails.
func (f *failingSeeker) Seek(off int64, whence int) (int64, error) {
	f.seeks++
	if f.seeks > 2 {
		return 0, errSeek
	}
	return f.Reader.Seek(off, whence)
}

type entry struct {
	hash  string
	count uint64
}

func reference(entries ...entry) string {
	var sb strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&sb, "%s:%d\n", e.hash, e.count)
	}
	return sb.String()
}

func randomHash(rnd *rand.Rand, n int) string {
	const hex = "0123456789ABCDEF"
	b := make([]byte, n)
	for i := range b {
		b[i] = hex[rnd.Intn(len(hex))]
	}
	return string(b)
}

// randomReference returns sorted unique entries with hashes of a fixed length.
func randomReference(rnd *rand.Rand, n, hashLen int) []entry {
	seen := make(map[string]struct{}, n)
	entries := make([]entry, 0, n)
	for len(entries) < n {
		h := randomHash(rnd, hashLen)
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		entries = append(entries, entry{hash: h, count: uint64(rnd.Intn(100000) + 1)})
	}

	slices.SortFunc(entries, func(a, b entry) int {
		return strings.Compare(a.hash, b.hash)
	})
	return entries
}

// randomQueries mixes present and absent hashes, sorted with repeats.
func randomQueries(rnd *rand.Rand, entries []entry, n, hashLen int) []string {
	queries := make([]string, 0, n)
	for len(queries) < n {
		if len(entries) > 0 && rnd.Intn(2) == 0 {
			queries = append(queries, entries[rnd.Intn(len(entries))].hash)
		} else {
			queries = append(queries, randomHash(rnd, hashLen))
		}
	}
	slices.Sort(queries)
	return queries
}

func expected(entries []entry, hash string) Result {
	i, ok := slices.BinarySearchFunc(entries, hash, func(e entry, h string) int {
		return strings.Compare(e.hash, h)
	})
	if !ok {
		return NotFound
	}
	return Found(entries[i].count)
}
