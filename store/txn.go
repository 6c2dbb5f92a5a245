package store

import (
	"bytes"
	"errors"

	"github.com/canopy-network/stakebatch/lib"
	"github.com/dgraph-io/badger/v4"
)

// maxKeyBytes bounds the keys the engine writes; reverse iteration seeks past the prefix using it
const maxKeyBytes = 256

// RWStoreI interface enforcement
var _ lib.TxnI = &TxnWrapper{}

// TxnWrapper is a wrapper over the badgerDB Txn object that conforms to the TxnI interface
type TxnWrapper struct {
	logger lib.LoggerI
	db     *badger.Txn
}

// NewTxnWrapper() creates a new TxnWrapper with the provided params
func NewTxnWrapper(db *badger.Txn, logger lib.LoggerI) *TxnWrapper {
	return &TxnWrapper{
		logger: logger,
		db:     db,
	}
}

// Get() retrieves the value associated with the key from the BadgerDB transaction
func (t *TxnWrapper) Get(k []byte) ([]byte, lib.ErrorI) {
	item, err := t.db.Get(k)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, ErrStoreGet(err)
	}
	val, err := item.ValueCopy(nil)
	if err != nil {
		return nil, ErrStoreGet(err)
	}
	return val, nil
}

// Set() stores the key-value pair in the BadgerDB transaction
func (t *TxnWrapper) Set(k, v []byte) lib.ErrorI {
	if err := t.db.Set(k, v); err != nil {
		return ErrStoreSet(err)
	}
	return nil
}

// Delete() removes the key-value pair from the BadgerDB transaction
func (t *TxnWrapper) Delete(k []byte) lib.ErrorI {
	if err := t.db.Delete(k); err != nil {
		return ErrStoreDelete(err)
	}
	return nil
}

// Commit() atomically persists every write of the transaction
func (t *TxnWrapper) Commit() lib.ErrorI {
	if err := t.db.Commit(); err != nil {
		return ErrCommitDB(err)
	}
	return nil
}

// Discard() drops the transaction; safe to call after Commit()
func (t *TxnWrapper) Discard() { t.db.Discard() }

// Iterator() creates a new iterator for the given prefix in the BadgerDB transaction
func (t *TxnWrapper) Iterator(prefix []byte) (lib.IteratorI, lib.ErrorI) {
	return newIterator(t.db, prefix, false, t.logger), nil
}

// RevIterator() creates a new reverse iterator for the given prefix in the BadgerDB transaction
func (t *TxnWrapper) RevIterator(prefix []byte) (lib.IteratorI, lib.ErrorI) {
	return newIterator(t.db, prefix, true, t.logger), nil
}

// IteratorI interface enforcement
var _ lib.IteratorI = &Iterator{}

// Iterator implements a wrapper around BadgerDB's iterator but satisfies the IteratorI interface
type Iterator struct {
	logger  lib.LoggerI
	parent  *badger.Iterator
	prefix  []byte
	onClose func()
}

// newIterator() positions a badger iterator at the first key of prefix in the requested order
func newIterator(txn *badger.Txn, prefix []byte, reverse bool, logger lib.LoggerI) *Iterator {
	parent := txn.NewIterator(badger.IteratorOptions{
		PrefetchValues: true,
		PrefetchSize:   100,
		Reverse:        reverse,
		Prefix:         prefix,
	})
	if reverse {
		// every key under prefix sorts before prefix + 0xFF...
		parent.Seek(append(lib.Append(prefix, nil), bytes.Repeat([]byte{0xFF}, maxKeyBytes)...))
	} else {
		parent.Rewind()
	}
	return &Iterator{logger: logger, parent: parent, prefix: prefix}
}

func (i *Iterator) Valid() bool { return i.parent.ValidForPrefix(i.prefix) }
func (i *Iterator) Next() { i.parent.Next() }
func (i *Iterator) Key() []byte { return i.parent.Item().KeyCopy(nil) }

// Value() copies the current value; read failures are logged and yield nil
func (i *Iterator) Value() []byte {
	v, err := i.parent.Item().ValueCopy(nil)
	if err != nil {
		i.logger.Error(ErrStoreGet(err).Error())
		return nil
	}
	return v
}

// Close() releases the iterator and any transaction it owns
func (i *Iterator) Close() {
	i.parent.Close()
	if i.onClose != nil {
		i.onClose()
	}
}
