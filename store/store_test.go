package store

import (
	"testing"

	"github.com/canopy-network/stakebatch/lib"
	"github.com/stretchr/testify/require"
)

func TestTxnCommitAndDiscard(t *testing.T) {
	s := newTestStore(t)
	// write in a transaction that is discarded
	txn := s.NewTxn()
	require.NoError(t, txn.Set([]byte("a"), []byte("1")))
	// the transaction sees its own write
	got, err := txn.Get([]byte("a"))
	require.NoError(t, err)
	require.Equal(t, []byte("1"), got)
	txn.Discard()
	// the committed state does not
	got, err = s.Get([]byte("a"))
	require.NoError(t, err)
	require.Nil(t, got)
	// write in a transaction that is committed
	txn = s.NewTxn()
	require.NoError(t, txn.Set([]byte("a"), []byte("2")))
	require.NoError(t, txn.Commit())
	got, err = s.Get([]byte("a"))
	require.NoError(t, err)
	require.Equal(t, []byte("2"), got)
	// delete
	txn = s.NewTxn()
	require.NoError(t, txn.Delete([]byte("a")))
	require.NoError(t, txn.Commit())
	got, err = s.Get([]byte("a"))
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestIterators(t *testing.T) {
	s := newTestStore(t)
	txn := s.NewTxn()
	// populate two prefixes
	for _, k := range []string{"p/1", "p/3", "p/2", "q/1"} {
		require.NoError(t, txn.Set([]byte(k), []byte(k)))
	}
	require.NoError(t, txn.Commit())
	tests := []struct {
		name     string
		detail   string
		reverse  bool
		expected []string
	}{
		{
			name:     "forward",
			detail:   "keys are visited in ascending order and only under the prefix",
			expected: []string{"p/1", "p/2", "p/3"},
		},
		{
			name:     "reverse",
			detail:   "keys are visited in descending order and only under the prefix",
			reverse:  true,
			expected: []string{"p/3", "p/2", "p/1"},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var (
				it  lib.IteratorI
				err lib.ErrorI
				got []string
			)
			if test.reverse {
				it, err = s.RevIterator([]byte("p/"))
			} else {
				it, err = s.Iterator([]byte("p/"))
			}
			require.NoError(t, err)
			defer it.Close()
			for ; it.Valid(); it.Next() {
				require.Equal(t, it.Key(), it.Value())
				got = append(got, string(it.Key()))
			}
			require.Equal(t, test.expected, got)
		})
	}
}

func TestTxnIteratorSeesPendingWrites(t *testing.T) {
	s := newTestStore(t)
	txn := s.NewTxn()
	defer txn.Discard()
	require.NoError(t, txn.Set([]byte("k/1"), []byte("v")))
	it, err := txn.RevIterator([]byte("k/"))
	require.NoError(t, err)
	defer it.Close()
	require.True(t, it.Valid())
	require.Equal(t, []byte("k/1"), it.Key())
}

func newTestStore(t *testing.T) *Store {
	s, err := NewStoreInMemory(lib.NewNullLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}
