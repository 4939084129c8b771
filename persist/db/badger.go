package db

import (
	"bytes"
	"os"

	"github.com/copernet/chainstate/errcode"
	"github.com/dgraph-io/badger/v4"
	"github.com/pkg/errors"
)

type badgerDriver struct {
	db *badger.DB
}

func openBadger(do *DBOption) (Driver, error) {
	if do.Wipe {
		if err := os.RemoveAll(do.FilePath); err != nil {
			return nil, err
		}
	}
	opts := badger.DefaultOptions(do.FilePath)
	opts.Logger = nil
	if do.CacheSize > 0 {
		opts.BlockCacheSize = int64(do.CacheSize)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &badgerDriver{db: db}, nil
}

func (bd *badgerDriver) Get(key []byte) ([]byte, error) {
	var val []byte
	err := bd.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if err == badger.ErrKeyNotFound {
		return nil, ErrNotFound
	}
	return val, err
}

func (bd *badgerDriver) Has(key []byte) (bool, error) {
	_, err := bd.Get(key)
	if err == ErrNotFound {
		return false, nil
	}
	return err == nil, err
}

// Write applies ops in one transaction. A batch beyond BatchLimit is
// rejected as a whole; nothing of it is committed.
func (bd *badgerDriver) Write(ops []Op, sync bool) error {
	txn := bd.db.NewTransaction(true)
	defer txn.Discard()

	for i, op := range ops {
		var err error
		if op.Delete {
			err = txn.Delete(op.Key)
		} else {
			err = txn.Set(op.Key, op.Value)
		}
		if err == badger.ErrTxnTooBig {
			return errors.WithMessagef(errcode.Wrap(errcode.ErrorBatchTooLarge, err),
				"%d ops, rejected at op %d", len(ops), i)
		}
		if err != nil {
			return err
		}
	}
	if err := txn.Commit(); err != nil {
		return err
	}
	if sync {
		return bd.db.Sync()
	}
	return nil
}

// BatchLimit mirrors badger's transaction limits: a transaction fails once
// its entry count or estimated size reaches the maximum.
func (bd *badgerDriver) BatchLimit() (int, int64) {
	return int(bd.db.MaxBatchCount()) - 1, bd.db.MaxBatchSize() - 1
}

func (bd *badgerDriver) NewIterator() Iterator {
	txn := bd.db.NewTransaction(false)
	return &badgerIterator{
		txn:  txn,
		iter: txn.NewIterator(badger.DefaultIteratorOptions),
	}
}

func (bd *badgerDriver) SizeOf(start, limit []byte) (uint64, error) {
	size := uint64(0)
	err := bd.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(start); it.Valid(); it.Next() {
			item := it.Item()
			if limit != nil && bytes.Compare(item.Key(), limit) >= 0 {
				break
			}
			size += uint64(item.EstimatedSize())
		}
		return nil
	})
	return size, err
}

// Compact is a no-op; badger compacts its LSM tree in the background.
func (bd *badgerDriver) Compact(start, limit []byte) error {
	return nil
}

func (bd *badgerDriver) Close() error {
	return bd.db.Close()
}

type badgerIterator struct {
	txn  *badger.Txn
	iter *badger.Iterator
	val  []byte
	err  error
}

func (bi *badgerIterator) load() bool {
	bi.val = nil
	if !bi.iter.Valid() {
		return false
	}
	bi.val, bi.err = bi.iter.Item().ValueCopy(bi.val)
	return bi.err == nil
}

func (bi *badgerIterator) Seek(key []byte) bool {
	bi.iter.Seek(key)
	return bi.load()
}

func (bi *badgerIterator) Next() bool {
	if !bi.iter.Valid() {
		return false
	}
	bi.iter.Next()
	return bi.load()
}

func (bi *badgerIterator) Valid() bool {
	return bi.err == nil && bi.iter.Valid()
}

func (bi *badgerIterator) Key() []byte {
	if !bi.Valid() {
		return nil
	}
	return bi.iter.Item().Key()
}

func (bi *badgerIterator) Value() []byte {
	if !bi.Valid() {
		return nil
	}
	return bi.val
}

func (bi *badgerIterator) Release() {
	bi.iter.Close()
	bi.txn.Discard()
}

func (bi *badgerIterator) Error() error {
	return bi.err
}
