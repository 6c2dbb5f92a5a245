package store

import (
	"path/filepath"

	"github.com/alecthomas/units"
	"github.com/canopy-network/stakebatch/lib"
	"github.com/dgraph-io/badger/v4"
)

/*
The Store is a thin layer over a single BadgerDB instance.

All engine writes go through a TxnWrapper obtained with NewTxn(): a single serializable badger
transaction whose writes become visible atomically on Commit() or vanish on Discard(). The engine
opens one transaction per operation (or per saga continuation), which is what makes each
invocation all-or-nothing.

Reads made directly against the Store see the latest committed state only.
*/

var _ lib.StoreI = &Store{} // enforce the Store interface

// Store is the badger backed implementation of lib.StoreI
type Store struct {
	db  *badger.DB  // underlying database
	log lib.LoggerI // logger
}

// New() creates a new instance of a StoreI either in memory or an actual disk DB
func New(config lib.StoreConfig, l lib.LoggerI) (lib.StoreI, lib.ErrorI) {
	if config.InMemory {
		return NewStoreInMemory(l)
	}
	return NewStore(filepath.Join(config.DataDirPath, config.DBName), l)
}

// NewStore() opens (or creates) a disk DB at path
func NewStore(path string, l lib.LoggerI) (*Store, lib.ErrorI) {
	db, err := badger.Open(badger.DefaultOptions(path).
		WithMemTableSize(int64(64 * units.MB)).
		WithValueLogFileSize(int64(256 * units.MB)).
		WithNumVersionsToKeep(1).
		WithLogger(badgerLogger{l}))
	if err != nil {
		return nil, ErrOpenDB(err)
	}
	return &Store{db: db, log: l}, nil
}

// NewStoreInMemory() creates a new instance of a mem DB
func NewStoreInMemory(l lib.LoggerI) (*Store, lib.ErrorI) {
	db, err := badger.Open(badger.DefaultOptions("").
		WithInMemory(true).
		WithLoggingLevel(badger.ERROR).
		WithLogger(badgerLogger{l}))
	if err != nil {
		return nil, ErrOpenDB(err)
	}
	return &Store{db: db, log: l}, nil
}

// NewTxn() opens a read/write transaction over the latest committed state
func (s *Store) NewTxn() lib.TxnI {
	return NewTxnWrapper(s.db.NewTransaction(true), s.log)
}

// Get() reads a committed value; a missing key returns nil, nil
func (s *Store) Get(key []byte) ([]byte, lib.ErrorI) {
	txn := NewTxnWrapper(s.db.NewTransaction(false), s.log)
	defer txn.Discard()
	return txn.Get(key)
}

// Iterator() iterates committed keys under prefix in ascending order
func (s *Store) Iterator(prefix []byte) (lib.IteratorI, lib.ErrorI) {
	return s.readIterator(prefix, false)
}

// RevIterator() iterates committed keys under prefix in descending order
func (s *Store) RevIterator(prefix []byte) (lib.IteratorI, lib.ErrorI) {
	return s.readIterator(prefix, true)
}

// readIterator() ties the lifetime of a read-only transaction to the iterator
func (s *Store) readIterator(prefix []byte, reverse bool) (lib.IteratorI, lib.ErrorI) {
	txn := s.db.NewTransaction(false)
	it := newIterator(txn, prefix, reverse, s.log)
	it.onClose = txn.Discard
	return it, nil
}

// Size() returns the lsm and value log sizes in bytes
func (s *Store) Size() (lsm, vlog int64) { return s.db.Size() }

// Close() gracefully stops the database
func (s *Store) Close() lib.ErrorI {
	if err := s.db.Close(); err != nil {
		return ErrCloseDB(err)
	}
	return nil
}

// badgerLogger adapts lib.LoggerI to badger's logger interface
type badgerLogger struct{ lib.LoggerI }

func (b badgerLogger) Warningf(format string, args ...interface{}) { b.Warnf(format, args...) }
