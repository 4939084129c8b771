package db

import (
	"os"
	"path/filepath"

	lvldb "github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
)

type levelDriver struct {
	db          *lvldb.DB
	readOption  opt.ReadOptions
	iterOption  opt.ReadOptions
	writeOption opt.WriteOptions
	syncOption  opt.WriteOptions
}

func getOptions(cacheSize int) opt.Options {
	var opts opt.Options
	opts.BlockCacher = opt.LRUCacher
	opts.BlockCacheCapacity = cacheSize / 2
	opts.WriteBuffer = cacheSize / 4
	opts.Filter = filter.NewBloomFilter(10)
	opts.Compression = opt.NoCompression
	opts.OpenFilesCacheCapacity = 64

	return opts
}

func destroyLevelDB(path string) error {
	st, err := storage.OpenFile(path, false)
	if err != nil {
		return err
	}
	defer st.Close()
	fds, err := st.List(storage.TypeAll)
	if err != nil {
		return err
	}
	for _, fd := range fds {
		if err := st.Remove(fd); err != nil {
			return err
		}
	}
	for _, other := range []string{"CURRENT", "LOCK", "LOG", "LOG.old"} {
		if err := os.Remove(filepath.Join(path, other)); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

func openLevelDB(do *DBOption) (Driver, error) {
	if do.Wipe {
		if err := destroyLevelDB(do.FilePath); err != nil {
			return nil, err
		}
	}
	opts := getOptions(do.CacheSize)
	db, err := lvldb.OpenFile(do.FilePath, &opts)
	if err != nil {
		return nil, err
	}
	return &levelDriver{
		db: db,
		readOption: opt.ReadOptions{
			Strict: opt.StrictJournalChecksum | opt.StrictBlockChecksum,
		},
		iterOption: opt.ReadOptions{
			DontFillCache: true,
			Strict:        opt.StrictJournalChecksum | opt.StrictBlockChecksum,
		},
		syncOption: opt.WriteOptions{Sync: true},
	}, nil
}

func (ld *levelDriver) Get(key []byte) ([]byte, error) {
	value, err := ld.db.Get(key, &ld.readOption)
	if err == lvldb.ErrNotFound {
		return nil, ErrNotFound
	}
	return value, err
}

func (ld *levelDriver) Has(key []byte) (bool, error) {
	return ld.db.Has(key, &ld.readOption)
}

func (ld *levelDriver) Write(ops []Op, sync bool) error {
	var bat lvldb.Batch
	for _, op := range ops {
		if op.Delete {
			bat.Delete(op.Key)
		} else {
			bat.Put(op.Key, op.Value)
		}
	}
	wo := &ld.writeOption
	if sync {
		wo = &ld.syncOption
	}
	return ld.db.Write(&bat, wo)
}

func (ld *levelDriver) NewIterator() Iterator {
	return ld.db.NewIterator(nil, &ld.iterOption)
}

func (ld *levelDriver) SizeOf(start, limit []byte) (uint64, error) {
	sizes, err := ld.db.SizeOf([]util.Range{{Start: start, Limit: limit}})
	if err != nil {
		return 0, err
	}
	return uint64(sizes.Sum()), nil
}

func (ld *levelDriver) BatchLimit() (int, int64) {
	return 0, 0
}

func (ld *levelDriver) Compact(start, limit []byte) error {
	return ld.db.CompactRange(util.Range{Start: start, Limit: limit})
}

func (ld *levelDriver) Close() error {
	return ld.db.Close()
}
