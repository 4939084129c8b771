package db

import (
	"bytes"
	"crypto/rand"
	"os"
	"path/filepath"

	"github.com/copernet/chainstate/errcode"
	"github.com/copernet/chainstate/log"
	"github.com/pkg/errors"
)

// batchHeadroom is room kept below an engine's batch limit for the next op.
// Stored records are far smaller.
const batchHeadroom = 64 << 10

const (
	// obfuscateKeyKey is the compact-size framed string "\000obfuscate_key".
	obfuscateKeyKey = "\x0e\x00obfuscate_key"
	obfuscateKeyLen = 8
)

const (
	DbCoin       byte = 'C'
	DbCoins      byte = 'c'
	DbBestBlock  byte = 'B'
	DbHeadBlocks byte = 'H'
)

type DBOption struct {
	FilePath       string
	DbType         string
	CacheSize      int
	Wipe           bool
	DontObfuscate  bool
	ForceCompactdb bool
}

// DBWrapper adds value obfuscation and batch accounting on top of a Driver.
type DBWrapper struct {
	driver       Driver
	name         string
	obfuscateKey []byte
	maxBatchOps  int
	maxBatchSize int64
}

func genObfuscateKey() []byte {
	buf := make([]byte, obfuscateKeyLen)
	_, err := rand.Read(buf)
	if err != nil {
		panic("failed read random bytes")
	}
	return buf
}

func openDriver(do *DBOption) (Driver, error) {
	switch do.DbType {
	case TypeLevelDB, "":
		return openLevelDB(do)
	case TypeBadger:
		return openBadger(do)
	case TypeBolt:
		return openBolt(do)
	case TypeMemDB:
		return openMemDB(do)
	}
	return nil, errors.WithMessage(errcode.New(errcode.ErrorUnknownDbType), do.DbType)
}

func NewDBWrapper(do *DBOption) (*DBWrapper, error) {
	if do == nil {
		return nil, errors.New("DBWrapper: nil DBOption")
	}
	if do.DbType != TypeMemDB {
		err := os.MkdirAll(do.FilePath, 0740)
		if err != nil && !os.IsExist(err) {
			return nil, err
		}
	}
	driver, err := openDriver(do)
	if err != nil {
		if errcode.IsErrorCode(err, errcode.ErrorUnknownDbType) {
			return nil, err
		}
		return nil, errcode.Wrap(errcode.ErrorOpenDatabase, err)
	}
	dbw := &DBWrapper{
		driver: driver,
		name:   filepath.Base(do.FilePath),
	}
	dbw.maxBatchOps, dbw.maxBatchSize = driver.BatchLimit()
	if do.ForceCompactdb {
		log.Print("db", "info", "starting database compaction of %s", dbw.name)
		if err := driver.Compact(nil, nil); err != nil {
			driver.Close()
			return nil, err
		}
		log.Print("db", "info", "finished database compaction of %s", dbw.name)
	}

	if err := dbw.loadObfuscateKey(!do.DontObfuscate); err != nil {
		driver.Close()
		return nil, err
	}
	log.Print("db", "info", "opened %s database %s, obfuscate key %x", do.DbType, dbw.name, dbw.obfuscateKey)
	return dbw, nil
}

// loadObfuscateKey reads the stored key, creating one only for a brand new
// database so that existing plain-text data stays readable.
func (dbw *DBWrapper) loadObfuscateKey(create bool) error {
	raw, err := dbw.driver.Get([]byte(obfuscateKeyKey))
	if err == nil {
		if len(raw) != obfuscateKeyLen+1 || raw[0] != obfuscateKeyLen {
			return errors.WithMessagef(errcode.New(errcode.ErrorObfuscateKey), "bad obfuscate key record %x", raw)
		}
		dbw.obfuscateKey = raw[1:]
		return nil
	}
	if err != ErrNotFound {
		return err
	}
	if !create || !dbw.IsEmpty() {
		return nil
	}
	newKey := genObfuscateKey()
	record := append([]byte{obfuscateKeyLen}, newKey...)
	if err := dbw.Write([]byte(obfuscateKeyKey), record, true); err != nil {
		return err
	}
	dbw.obfuscateKey = newKey
	return nil
}

func xor(val, key []byte) {
	if len(key) == 0 {
		return
	}
	for i, j := 0, 0; i < len(val); i++ {
		val[i] ^= key[j]
		j++
		if j == len(key) {
			j = 0
		}
	}
}

// Read returns ErrNotFound for absent keys.
func (dbw *DBWrapper) Read(key []byte) ([]byte, error) {
	value, err := dbw.driver.Get(key)
	if err != nil {
		return nil, err
	}
	xor(value, dbw.obfuscateKey)
	return value, nil
}

func (dbw *DBWrapper) Write(key, val []byte, sync bool) error {
	bw := NewBatchWrapper(dbw)
	bw.Write(key, val)
	return dbw.WriteBatch(bw, sync)
}

func (dbw *DBWrapper) WriteBatch(bw *BatchWrapper, sync bool) error {
	return dbw.driver.Write(bw.ops, sync)
}

func (dbw *DBWrapper) Exists(key []byte) bool {
	ok, err := dbw.driver.Has(key)
	if err != nil {
		log.Emergency("DBWrapper %s: %v", dbw.name, err)
		panic("DBWrapper :" + err.Error())
	}
	return ok
}

func (dbw *DBWrapper) Erase(key []byte, sync bool) error {
	bw := NewBatchWrapper(dbw)
	bw.Erase(key)
	return dbw.WriteBatch(bw, sync)
}

func (dbw *DBWrapper) Sync() error {
	return dbw.WriteBatch(NewBatchWrapper(dbw), true)
}

func (dbw *DBWrapper) Iterator() *IterWrapper {
	return NewIterWrapper(dbw, dbw.driver.NewIterator())
}

func (dbw *DBWrapper) IsEmpty() bool {
	it := dbw.Iterator()
	defer it.Close()
	it.SeekToFirst()
	return !it.Valid()
}

func (dbw *DBWrapper) EstimateSize(begin, end []byte) uint64 {
	size, err := dbw.driver.SizeOf(begin, end)
	if err != nil {
		return 0
	}
	return size
}

func (dbw *DBWrapper) CompactRange(begin, end []byte) error {
	return dbw.driver.Compact(begin, end)
}

func (dbw *DBWrapper) GetObfuscateKey() []byte {
	return dbw.obfuscateKey
}

func (dbw *DBWrapper) Close() error {
	if dbw.driver == nil {
		return nil
	}
	err := dbw.driver.Close()
	dbw.driver = nil
	return err
}

type BatchWrapper struct {
	ops        []Op
	parent     *DBWrapper
	sizeEst    int
	engineSize int64
}

func NewBatchWrapper(parent *DBWrapper) *BatchWrapper {
	return &BatchWrapper{
		parent: parent,
	}
}

func (bw *BatchWrapper) Clear() {
	bw.ops = bw.ops[:0]
	bw.sizeEst = 0
	bw.engineSize = 0
}

func (bw *BatchWrapper) Write(key, val []byte) {
	bkey := append([]byte{}, key...)
	bval := append([]byte{}, val...)
	xor(bval, bw.parent.GetObfuscateKey())
	bw.ops = append(bw.ops, Op{Key: bkey, Value: bval})
	bw.engineSize += OpSize(bw.ops[len(bw.ops)-1])
	// LevelDB serializes writes as:
	// - byte: header
	// - varint: key length (1 byte up to 127B, 2 bytes up to 16383B, ...)
	// - byte[]: key
	// - varint: value length
	// - byte[]: value
	// The formula below assumes the key and value are both less than 16k.
	k := 0
	v := 0
	if len(bkey) > 127 {
		k = 1
	}
	if len(bval) > 127 {
		v = 1
	}
	bw.sizeEst += 3 + k + len(bkey) + v + len(bval)
}

func (bw *BatchWrapper) Erase(key []byte) {
	bkey := append([]byte{}, key...)
	bw.ops = append(bw.ops, Op{Key: bkey, Delete: true})
	bw.engineSize += OpSize(bw.ops[len(bw.ops)-1])
	k := 0
	if len(bkey) > 127 {
		k = 1
	}
	bw.sizeEst += 2 + k + len(bkey)
}

func (bw *BatchWrapper) SizeEstimate() int {
	return bw.sizeEst
}

func (bw *BatchWrapper) Len() int {
	return len(bw.ops)
}

// Full reports whether the batch must be written before more ops are
// added: its size estimate passed limit, or the next op might not fit in
// one atomic write of the engine.
func (bw *BatchWrapper) Full(limit int) bool {
	if bw.sizeEst > limit {
		return true
	}
	p := bw.parent
	if p.maxBatchOps > 0 && len(bw.ops)+1 >= p.maxBatchOps {
		return true
	}
	return p.maxBatchSize > 0 && bw.engineSize+batchHeadroom >= p.maxBatchSize
}

type IterWrapper struct {
	parent *DBWrapper
	iter   Iterator
}

func NewIterWrapper(parent *DBWrapper, iter Iterator) *IterWrapper {
	return &IterWrapper{
		parent: parent,
		iter:   iter,
	}
}

func (iw *IterWrapper) Valid() bool {
	if iw.iter == nil {
		return false
	}
	return iw.iter.Valid()
}

func (iw *IterWrapper) SeekToFirst() {
	iw.Seek(nil)
}

func (iw *IterWrapper) Seek(key []byte) {
	if iw.iter != nil {
		iw.iter.Seek(key)
	}
}

func (iw *IterWrapper) Next() {
	if iw.iter != nil {
		iw.iter.Next()
	}
}

// HasPrefix reports whether the iterator is positioned on a key starting
// with prefix.
func (iw *IterWrapper) HasPrefix(prefix []byte) bool {
	return iw.Valid() && bytes.HasPrefix(iw.iter.Key(), prefix)
}

func (iw *IterWrapper) GetKey() []byte {
	if !iw.Valid() {
		return nil
	}
	return append([]byte{}, iw.iter.Key()...)
}

func (iw *IterWrapper) GetKeySize() int {
	if !iw.Valid() {
		return 0
	}
	return len(iw.iter.Key())
}

func (iw *IterWrapper) GetVal() []byte {
	if !iw.Valid() {
		return nil
	}
	val := append([]byte{}, iw.iter.Value()...)
	xor(val, iw.parent.GetObfuscateKey())
	return val
}

func (iw *IterWrapper) GetValSize() int {
	if !iw.Valid() {
		return 0
	}
	return len(iw.iter.Value())
}

func (iw *IterWrapper) Error() error {
	if iw.iter == nil {
		return nil
	}
	return iw.iter.Error()
}

func (iw *IterWrapper) Close() {
	if iw.iter != nil {
		iw.iter.Release()
		iw.iter = nil
	}
}
