package db

import (
	"errors"
)

// ErrNotFound is returned by Driver.Get and DBWrapper.Read for absent keys.
var ErrNotFound = errors.New("db: key not found")

const (
	TypeLevelDB = "leveldb"
	TypeBadger  = "badger"
	TypeBolt    = "bolt"
	TypeMemDB   = "memdb"
)

// Op is one put or delete of a batch.
type Op struct {
	Key    []byte
	Value  []byte
	Delete bool
}

// Driver is the ordered key-value engine underneath a DBWrapper. Write
// applies ops in order and atomically: either all of them become visible
// or none do.
type Driver interface {
	Get(key []byte) ([]byte, error)
	Has(key []byte) (bool, error)
	Write(ops []Op, sync bool) error
	// BatchLimit reports the most ops, and the most bytes as counted by
	// OpSize, that one Write can commit. Zero means no limit.
	BatchLimit() (ops int, size int64)
	NewIterator() Iterator
	// SizeOf approximates the bytes stored for keys in [start, limit).
	SizeOf(start, limit []byte) (uint64, error)
	Compact(start, limit []byte) error
	Close() error
}

// opOverhead is the per-op bookkeeping an engine may add to key and value.
const opOverhead = 32

// OpSize is the size of op as counted against a driver's BatchLimit.
func OpSize(op Op) int64 {
	return int64(len(op.Key) + len(op.Value) + opOverhead)
}

// Iterator walks keys in ascending byte order. Key and Value are only
// valid until the next move.
type Iterator interface {
	Seek(key []byte) bool
	Next() bool
	Valid() bool
	Key() []byte
	Value() []byte
	Release()
	Error() error
}
