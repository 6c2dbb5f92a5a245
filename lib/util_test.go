package lib

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestJoinLenPrefix(t *testing.T) {
	key := JoinLenPrefix([]byte{1}, nil, []byte("alice"), FormatUint64(7))
	segments := DecodeLengthPrefixed(key)
	require.Len(t, segments, 3)
	require.Equal(t, []byte{1}, segments[0])
	require.Equal(t, "alice", string(segments[1]))
	require.Equal(t, uint64(7), ParseUint64(segments[2]))
	// a corrupt key panics
	require.Panics(t, func() { DecodeLengthPrefixed([]byte{5, 1}) })
}

func TestFormatUint64Sorts(t *testing.T) {
	// big endian keeps the byte order equal to the numeric order
	require.Equal(t, -1, bytes.Compare(FormatUint64(255), FormatUint64(256)))
	require.Equal(t, uint64(0), ParseUint64([]byte{1}))
}

func TestAppend(t *testing.T) {
	a := make([]byte, 1, 10)
	a[0] = 1
	got := Append(a, []byte{2})
	got[0] = 9
	// the source slice is not aliased
	require.Equal(t, byte(1), a[0])
	require.Equal(t, []byte{9, 2}, got)
}

func TestUnmarshalNil(t *testing.T) {
	v := struct{ A uint64 }{A: 3}
	require.NoError(t, Unmarshal(nil, &v))
	require.Equal(t, uint64(3), v.A)
	require.Error(t, Unmarshal([]byte("{"), &v))
}

// testPage is a pageable used to exercise pagination
type testPage []string

func (t *testPage) New() Pageable { return &testPage{} }

// memStore is a sorted in-memory RStoreI over a fixed key set
type memStore struct{ keys []string }

func (m memStore) Get([]byte) ([]byte, ErrorI) { return nil, nil }
func (m memStore) Iterator([]byte) (IteratorI, ErrorI) {
	return &memIterator{keys: m.keys}, nil
}
func (m memStore) RevIterator([]byte) (IteratorI, ErrorI) {
	rev := make([]string, len(m.keys))
	for i, k := range m.keys {
		rev[len(m.keys)-1-i] = k
	}
	return &memIterator{keys: rev}, nil
}

type memIterator struct {
	keys []string
	i    int
}

func (m *memIterator) Valid() bool   { return m.i < len(m.keys) }
func (m *memIterator) Next()         { m.i++ }
func (m *memIterator) Key() []byte   { return []byte(m.keys[m.i]) }
func (m *memIterator) Value() []byte { return []byte(m.keys[m.i]) }
func (m *memIterator) Close()        {}

func TestPageLoad(t *testing.T) {
	db := memStore{keys: []string{"a", "b", "c", "d", "e"}}
	tests := []struct {
		name       string
		detail     string
		params     PageParams
		reverse    bool
		expected   testPage
		totalPages int
	}{
		{
			name:       "first page",
			detail:     "the first page holds the first perPage items",
			params:     PageParams{PageNumber: 1, PerPage: 2},
			expected:   testPage{"a", "b"},
			totalPages: 3,
		},
		{
			name:       "last page",
			detail:     "the last page may be partial",
			params:     PageParams{PageNumber: 3, PerPage: 2},
			expected:   testPage{"e"},
			totalPages: 3,
		},
		{
			name:       "reverse",
			detail:     "reverse pages start at the last key",
			params:     PageParams{PageNumber: 1, PerPage: 2},
			reverse:    true,
			expected:   testPage{"e", "d"},
			totalPages: 3,
		},
		{
			name:       "defaults",
			detail:     "zero params fall back to page 1 of 10",
			expected:   testPage{"a", "b", "c", "d", "e"},
			totalPages: 1,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			page, results := NewPage(test.params, "test"), new(testPage)
			require.NoError(t, page.Load(nil, test.reverse, results, db, func(_, v []byte) ErrorI {
				*results = append(*results, string(v))
				return nil
			}))
			require.Equal(t, test.expected, *results)
			require.Equal(t, 5, page.TotalCount)
			require.Equal(t, len(test.expected), page.Count)
			require.Equal(t, test.totalPages, page.TotalPages)
		})
	}
}

func TestPageUnmarshalJSON(t *testing.T) {
	RegisteredPageables["test"] = new(testPage)
	defer delete(RegisteredPageables, "test")
	page := NewPage(PageParams{PageNumber: 1, PerPage: 2}, "test")
	page.Results = &testPage{"a"}
	bz, err := json.Marshal(page)
	require.NoError(t, err)
	got := new(Page)
	require.NoError(t, json.Unmarshal(bz, got))
	require.Equal(t, &testPage{"a"}, got.Results)
	// unknown types are rejected
	require.Error(t, json.Unmarshal([]byte(`{"type":"nope","results":[]}`), got))
}
