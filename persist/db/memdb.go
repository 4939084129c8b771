package db

import (
	"bytes"
	"sync"

	"github.com/google/btree"
)

// memItem is one key-value pair of the in-memory engine.
type memItem struct {
	key   []byte
	value []byte
}

func (mi *memItem) Less(than btree.Item) bool {
	return bytes.Compare(mi.key, than.(*memItem).key) < 0
}

// memDriver keeps everything in an ordered btree. Nothing survives Close.
type memDriver struct {
	mtx  sync.RWMutex
	tree *btree.BTree
}

func openMemDB(do *DBOption) (Driver, error) {
	return &memDriver{tree: btree.New(32)}, nil
}

func (md *memDriver) Get(key []byte) ([]byte, error) {
	md.mtx.RLock()
	defer md.mtx.RUnlock()
	item := md.tree.Get(&memItem{key: key})
	if item == nil {
		return nil, ErrNotFound
	}
	return append([]byte{}, item.(*memItem).value...), nil
}

func (md *memDriver) Has(key []byte) (bool, error) {
	md.mtx.RLock()
	defer md.mtx.RUnlock()
	return md.tree.Has(&memItem{key: key}), nil
}

func (md *memDriver) Write(ops []Op, sync bool) error {
	md.mtx.Lock()
	defer md.mtx.Unlock()
	for _, op := range ops {
		if op.Delete {
			md.tree.Delete(&memItem{key: op.Key})
			continue
		}
		md.tree.ReplaceOrInsert(&memItem{
			key:   append([]byte{}, op.Key...),
			value: append([]byte{}, op.Value...),
		})
	}
	return nil
}

// NewIterator iterates over a copy-on-write snapshot taken at creation.
func (md *memDriver) NewIterator() Iterator {
	md.mtx.Lock()
	snapshot := md.tree.Clone()
	md.mtx.Unlock()
	return &memIterator{tree: snapshot}
}

func (md *memDriver) SizeOf(start, limit []byte) (uint64, error) {
	md.mtx.RLock()
	defer md.mtx.RUnlock()
	size := uint64(0)
	md.tree.AscendGreaterOrEqual(&memItem{key: start}, func(i btree.Item) bool {
		mi := i.(*memItem)
		if limit != nil && bytes.Compare(mi.key, limit) >= 0 {
			return false
		}
		size += uint64(len(mi.key) + len(mi.value))
		return true
	})
	return size, nil
}

func (md *memDriver) BatchLimit() (int, int64) {
	return 0, 0
}

func (md *memDriver) Compact(start, limit []byte) error {
	return nil
}

func (md *memDriver) Close() error {
	md.mtx.Lock()
	md.tree.Clear(false)
	md.mtx.Unlock()
	return nil
}

// memIterator walks a snapshot lazily; every move is one descent of the
// tree from the current key.
type memIterator struct {
	tree *btree.BTree
	cur  *memItem
}

// seekFrom positions on the first item at or after key, or strictly after
// it when skipEqual is set.
func (mi *memIterator) seekFrom(key []byte, skipEqual bool) bool {
	mi.cur = nil
	if mi.tree == nil {
		return false
	}
	mi.tree.AscendGreaterOrEqual(&memItem{key: key}, func(i btree.Item) bool {
		item := i.(*memItem)
		if skipEqual && bytes.Equal(item.key, key) {
			return true
		}
		mi.cur = item
		return false
	})
	return mi.cur != nil
}

func (mi *memIterator) Seek(key []byte) bool {
	return mi.seekFrom(key, false)
}

func (mi *memIterator) Next() bool {
	if mi.cur == nil {
		return false
	}
	return mi.seekFrom(mi.cur.key, true)
}

func (mi *memIterator) Valid() bool {
	return mi.cur != nil
}

func (mi *memIterator) Key() []byte {
	if mi.cur == nil {
		return nil
	}
	return mi.cur.key
}

func (mi *memIterator) Value() []byte {
	if mi.cur == nil {
		return nil
	}
	return mi.cur.value
}

func (mi *memIterator) Release() {
	mi.tree = nil
	mi.cur = nil
}

func (mi *memIterator) Error() error {
	return nil
}
