package lookup

import (
	"errors"
	"iter"
	"slices"
	"strings"
	"testing"

	"github.com/gamma-omg/pwnaudit/sortedfile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSearcher struct {
	mock.Mock
}

func (m *mockSearcher) Search(hash string) (sortedfile.Result, error) {
	args := m.Called(hash)
	return args.Get(0).(sortedfile.Result), args.Error(1)
}

func identity(s string) string { return s }

func collect[Q any](seq iter.Seq2[Match[Q], error]) ([]Match[Q], error) {
	var out []Match[Q]
	for m, err := range seq {
		if err != nil {
			return out, err
		}
		out = append(out, m)
	}
	return out, nil
}

func Test_Stream_DedupsRepeats(t *testing.T) {
	s := new(mockSearcher)
	s.On("Search", "AAAA").Return(sortedfile.Found(5), nil).Once()
	s.On("Search", "BBBB").Return(sortedfile.Found(2), nil).Once()
	s.On("Search", "DDDD").Return(sortedfile.NotFound, nil).Once()

	p := New(s)
	out, err := collect(Stream(p, slices.Values([]string{"AAAA", "BBBB", "BBBB", "DDDD"}), identity))
	require.NoError(t, err)

	assert.Equal(t, []Match[string]{
		{Query: "AAAA", Result: sortedfile.Found(5)},
		{Query: "BBBB", Result: sortedfile.Found(2)},
		{Query: "BBBB", Result: sortedfile.Found(2)},
		{Query: "DDDD", Result: sortedfile.NotFound},
	}, out)
	assert.Equal(t, 1, p.CacheHits())
	s.AssertNumberOfCalls(t, "Search", 3)
	s.AssertExpectations(t)
}

func Test_Stream_CachesMisses(t *testing.T) {
	s := new(mockSearcher)
	s.On("Search", "CCCC").Return(sortedfile.NotFound, nil).Once()

	p := New(s)
	out, err := collect(Stream(p, slices.Values([]string{"CCCC", "CCCC", "CCCC"}), identity))
	require.NoError(t, err)

	require.Len(t, out, 3)
	for _, m := range out {
		assert.Equal(t, sortedfile.NotFound, m.Result)
	}
	assert.Equal(t, 2, p.CacheHits())
	s.AssertExpectations(t)
}

func Test_Stream_StopsOnError(t *testing.T) {
	failure := errors.New("disk on fire")

	s := new(mockSearcher)
	s.On("Search", "AAAA").Return(sortedfile.Found(1), nil).Once()
	s.On("Search", "BBBB").Return(sortedfile.NotFound, failure).Once()

	p := New(s)
	out, err := collect(Stream(p, slices.Values([]string{"AAAA", "BBBB", "CCCC"}), identity))
	assert.ErrorIs(t, err, failure)
	assert.Len(t, out, 1)

	_, err = p.Lookup("DDDD")
	assert.ErrorIs(t, err, failure)
	s.AssertExpectations(t)
}

func Test_Stream_EarlyBreak(t *testing.T) {
	s := new(mockSearcher)
	s.On("Search", "AAAA").Return(sortedfile.Found(1), nil).Once()

	p := New(s)
	for m, err := range Stream(p, slices.Values([]string{"AAAA", "BBBB"}), identity) {
		require.NoError(t, err)
		assert.Equal(t, "AAAA", m.Query)
		break
	}
	s.AssertExpectations(t)
}

type account struct {
	name string
	hash string
}

func Test_Stream_ReferenceFile(t *testing.T) {
	searcher, err := sortedfile.NewSearcher(strings.NewReader("AAAA:5\nBBBB:2\nCCCC:9\n"))
	require.NoError(t, err)

	accounts := []account{
		{name: "alice", hash: "AAAA"},
		{name: "bob", hash: "BBBB"},
		{name: "carol", hash: "BBBB"},
		{name: "dave", hash: "DDDD"},
	}

	p := New(searcher)
	out, err := collect(Stream(p, slices.Values(accounts), func(a account) string { return a.hash }))
	require.NoError(t, err)

	var results []sortedfile.Result
	for _, m := range out {
		results = append(results, m.Result)
	}
	assert.Equal(t, []sortedfile.Result{
		sortedfile.Found(5),
		sortedfile.Found(2),
		sortedfile.Found(2),
		sortedfile.NotFound,
	}, results)
	assert.Equal(t, 3, searcher.Searches())
}

func Test_Lookup_RepeatDoesNoIO(t *testing.T) {
	searcher, err := sortedfile.NewSearcher(strings.NewReader("AAAA:5\nBBBB:2\nCCCC:9\n"))
	require.NoError(t, err)

	p := New(searcher)
	_, err = p.Lookup("BBBB")
	require.NoError(t, err)
	before := searcher.Stats()

	res, err := p.Lookup("BBBB")
	require.NoError(t, err)
	assert.Equal(t, sortedfile.Found(2), res)
	assert.Equal(t, before, searcher.Stats())
}

func Test_Lookup_OrderingViolation(t *testing.T) {
	searcher, err := sortedfile.NewSearcher(strings.NewReader("AAAA:5\nBBBB:2\nCCCC:9\n"))
	require.NoError(t, err)

	p := New(searcher)
	_, err = p.Lookup("CCCC")
	require.NoError(t, err)

	_, err = p.Lookup("AAAA")
	assert.ErrorIs(t, err, sortedfile.ErrOrderingViolation)
}
