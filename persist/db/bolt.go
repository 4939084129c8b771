package db

import (
	"bytes"
	"os"
	"path/filepath"
	"time"

	"github.com/boltdb/bolt"
)

const boltFileName = "chainstate.bolt"

var boltBucket = []byte("chainstate")

type boltDriver struct {
	db *bolt.DB
}

func openBolt(do *DBOption) (Driver, error) {
	file := filepath.Join(do.FilePath, boltFileName)
	if do.Wipe {
		if err := os.Remove(file); err != nil && !os.IsNotExist(err) {
			return nil, err
		}
	}
	db, err := bolt.Open(file, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(boltBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &boltDriver{db: db}, nil
}

func (bd *boltDriver) Get(key []byte) ([]byte, error) {
	var val []byte
	err := bd.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(boltBucket).Get(key)
		if v == nil {
			return ErrNotFound
		}
		val = append([]byte{}, v...)
		return nil
	})
	return val, err
}

func (bd *boltDriver) Has(key []byte) (bool, error) {
	found := false
	err := bd.db.View(func(tx *bolt.Tx) error {
		found = tx.Bucket(boltBucket).Get(key) != nil
		return nil
	})
	return found, err
}

// Write commits ops in a single bolt transaction, which is always synced.
func (bd *boltDriver) Write(ops []Op, sync bool) error {
	return bd.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(boltBucket)
		for _, op := range ops {
			var err error
			if op.Delete {
				err = b.Delete(op.Key)
			} else {
				err = b.Put(op.Key, op.Value)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// NewIterator holds a read transaction open until Release. Writing from
// the same goroutine while it is open can block on a remap, so callers
// release iterators before writing.
func (bd *boltDriver) NewIterator() Iterator {
	tx, err := bd.db.Begin(false)
	if err != nil {
		return &boltIterator{err: err}
	}
	return &boltIterator{tx: tx, cursor: tx.Bucket(boltBucket).Cursor()}
}

func (bd *boltDriver) SizeOf(start, limit []byte) (uint64, error) {
	size := uint64(0)
	err := bd.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(boltBucket).Cursor()
		for k, v := c.Seek(start); k != nil; k, v = c.Next() {
			if limit != nil && bytes.Compare(k, limit) >= 0 {
				break
			}
			size += uint64(len(k) + len(v))
		}
		return nil
	})
	return size, err
}

// Compact is a no-op; bolt reuses freed pages in place.
func (bd *boltDriver) BatchLimit() (int, int64) {
	return 0, 0
}

func (bd *boltDriver) Compact(start, limit []byte) error {
	return nil
}

func (bd *boltDriver) Close() error {
	return bd.db.Close()
}

type boltIterator struct {
	tx     *bolt.Tx
	cursor *bolt.Cursor
	key    []byte
	val    []byte
	err    error
}

func (bi *boltIterator) Seek(key []byte) bool {
	if bi.cursor == nil {
		return false
	}
	if len(key) == 0 {
		bi.key, bi.val = bi.cursor.First()
	} else {
		bi.key, bi.val = bi.cursor.Seek(key)
	}
	return bi.key != nil
}

func (bi *boltIterator) Next() bool {
	if bi.cursor == nil || bi.key == nil {
		return false
	}
	bi.key, bi.val = bi.cursor.Next()
	return bi.key != nil
}

func (bi *boltIterator) Valid() bool {
	return bi.key != nil
}

func (bi *boltIterator) Key() []byte {
	return bi.key
}

func (bi *boltIterator) Value() []byte {
	return bi.val
}

func (bi *boltIterator) Release() {
	if bi.tx != nil {
		bi.tx.Rollback()
		bi.tx = nil
		bi.cursor = nil
		bi.key, bi.val = nil, nil
	}
}

func (bi *boltIterator) Error() error {
	return bi.err
}
