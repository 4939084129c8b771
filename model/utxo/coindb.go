package utxo

import (
	"bytes"
	"fmt"

	"github.com/copernet/chainstate/errcode"
	"github.com/copernet/chainstate/log"
	"github.com/copernet/chainstate/model/outpoint"
	"github.com/copernet/chainstate/persist/db"
	"github.com/copernet/chainstate/util"
	"github.com/pkg/errors"
)

// DefaultBatchSize bounds the bytes of one coin sub-batch written by
// BatchWrite.
const DefaultBatchSize = 16 << 20

const headBlocksVectorTag = 0x02

// CoinsDB is the bottom CoinsView, backed by an ordered key-value store.
//
// A flush is split into several engine writes. While one is in progress
// the best block record is replaced by a head blocks record holding the new
// and the old tip, so a store interrupted mid-flush can be recognized and
// replayed on restart.
type CoinsDB struct {
	dbw       *db.DBWrapper
	batchSize int

	// crashAfter is consulted after each committed sub-batch of BatchWrite;
	// returning true stops the write there, as if the process had died.
	crashAfter func(subBatch int) bool
}

func NewCoinsDB(do *db.DBOption, batchSize int) (*CoinsDB, error) {
	if do == nil {
		return nil, errors.New("CoinsDB: nil DBOption")
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	dbw, err := db.NewDBWrapper(do)
	if err != nil {
		return nil, err
	}
	return &CoinsDB{
		dbw:       dbw,
		batchSize: batchSize,
	}, nil
}

// corrupted reports an unreadable store. Reads have no error path, so the
// caller cannot continue.
func corrupted(code fmt.Stringer, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	log.Emergency("coin database: %s", msg)
	panic(errors.WithMessage(errcode.New(code), msg))
}

func (coinsViewDB *CoinsDB) GetCoin(outpoint *outpoint.OutPoint) *Coin {
	coinBuff, err := coinsViewDB.dbw.Read(NewCoinKey(outpoint).GetSerKey())
	if err == db.ErrNotFound {
		return nil
	}
	if err != nil {
		corrupted(errcode.ErrorFailedToReadCoinDatabase, "read %s: %v", outpoint.String(), err)
	}
	coin := NewEmptyCoin()
	if err := coin.Unserialize(bytes.NewReader(coinBuff)); err != nil {
		corrupted(errcode.ErrorCoinCorrupted, "decode %s: %v", outpoint.String(), err)
	}
	return coin
}

func (coinsViewDB *CoinsDB) HaveCoin(outpoint *outpoint.OutPoint) bool {
	return coinsViewDB.dbw.Exists(NewCoinKey(outpoint).GetSerKey())
}

// GetBestBlock returns the zero hash when no best block is recorded, which
// is also the case while a flush is in progress.
func (coinsViewDB *CoinsDB) GetBestBlock() util.Hash {
	v, err := coinsViewDB.dbw.Read([]byte{db.DbBestBlock})
	if err == db.ErrNotFound {
		return util.HashZero
	}
	if err != nil {
		corrupted(errcode.ErrorFailedToReadCoinDatabase, "read best block: %v", err)
	}
	var hash util.Hash
	if err := hash.SetBytes(v); err != nil {
		corrupted(errcode.ErrorCoinCorrupted, "best block record %x", v)
	}
	return hash
}

// GetHeadBlocks returns [new tip, old tip] of an interrupted flush, or nil.
// Records written with a leading vector length are accepted as well.
func (coinsViewDB *CoinsDB) GetHeadBlocks() []util.Hash {
	v, err := coinsViewDB.dbw.Read([]byte{db.DbHeadBlocks})
	if err == db.ErrNotFound {
		return nil
	}
	if err != nil {
		corrupted(errcode.ErrorFailedToReadCoinDatabase, "read head blocks: %v", err)
	}
	if len(v) == 2*util.Hash256Size+1 && v[0] == headBlocksVectorTag {
		v = v[1:]
	}
	if len(v) != 2*util.Hash256Size {
		corrupted(errcode.ErrorCoinCorrupted, "head blocks record %x", v)
	}
	heads := make([]util.Hash, 2)
	copy(heads[0][:], v[:util.Hash256Size])
	copy(heads[1][:], v[util.Hash256Size:])
	return heads
}

func encodeHeadBlocks(newTip, oldTip *util.Hash) []byte {
	buf := make([]byte, 0, 2*util.Hash256Size)
	buf = append(buf, newTip[:]...)
	return append(buf, oldTip[:]...)
}

// BatchWrite persists the dirty entries of coins and moves the best block
// to bestBlock. It runs in sub-batches:
//
//	1. erase the best block, record head blocks [bestBlock, old tip]
//	2. coin writes and erases, split once a batch exceeds the batch size
//	   or the engine's atomic batch limit
//	3. erase the head blocks, record the best block (synced)
//
// An error leaves the head blocks record in place; writing the same
// changes again completes the flush.
func (coinsViewDB *CoinsDB) BatchWrite(coins CoinsMap, bestBlock *util.Hash) error {
	dirty := 0
	for _, entry := range coins {
		if entry.flags.IsDirty() {
			dirty++
		}
	}
	if bestBlock.IsNull() {
		if dirty == 0 {
			return nil
		}
		panic("BatchWrite: dirty coins without a best block")
	}

	oldTip := coinsViewDB.GetBestBlock()
	if oldTip.IsNull() {
		// A previous flush was interrupted; it must be finished towards
		// the same tip.
		if heads := coinsViewDB.GetHeadBlocks(); len(heads) == 2 {
			if heads[0] != *bestBlock {
				panic(fmt.Sprintf("BatchWrite: interrupted flush to %s resumed towards %s",
					heads[0].String(), bestBlock.String()))
			}
			oldTip = heads[1]
		}
	}

	batch := db.NewBatchWrapper(coinsViewDB.dbw)
	subBatch := 0
	commit := func(sync bool) error {
		if err := coinsViewDB.dbw.WriteBatch(batch, sync); err != nil {
			return errcode.Wrap(errcode.ErrorFailedToWriteToCoinDatabase, err)
		}
		batch.Clear()
		subBatch++
		if coinsViewDB.crashAfter != nil && coinsViewDB.crashAfter(subBatch) {
			log.Print("coindb", "warn", "simulating a crash after sub-batch %d", subBatch)
			return errcode.New(errcode.ErrorSimulatedCrash)
		}
		return nil
	}

	batch.Erase([]byte{db.DbBestBlock})
	batch.Write([]byte{db.DbHeadBlocks}, encodeHeadBlocks(bestBlock, &oldTip))
	if err := commit(false); err != nil {
		return err
	}

	changed := 0
	var buf bytes.Buffer
	for point, entry := range coins {
		if !entry.flags.IsDirty() {
			continue
		}
		key := NewCoinKey(&point).GetSerKey()
		if entry.coin.IsSpent() {
			batch.Erase(key)
		} else {
			buf.Reset()
			if err := entry.coin.Serialize(&buf); err != nil {
				return errors.WithMessagef(err, "serialize %s", point.String())
			}
			batch.Write(key, buf.Bytes())
		}
		changed++
		if batch.Full(coinsViewDB.batchSize) {
			log.Print("coindb", "debug", "writing partial batch of %.2f MiB",
				float64(batch.SizeEstimate())/(1<<20))
			if err := commit(false); err != nil {
				return err
			}
		}
	}
	if batch.Len() > 0 {
		if err := commit(false); err != nil {
			return err
		}
	}

	batch.Erase([]byte{db.DbHeadBlocks})
	batch.Write([]byte{db.DbBestBlock}, bestBlock[:])
	if err := commit(true); err != nil {
		return err
	}
	log.Print("coindb", "debug", "committed %d changed transaction outputs (out of %d) to coin database",
		changed, len(coins))
	return nil
}

// EstimateSize is the approximate on-disk size of the coin records.
func (coinsViewDB *CoinsDB) EstimateSize() uint64 {
	return coinsViewDB.dbw.EstimateSize([]byte{db.DbCoin}, []byte{db.DbCoin + 1})
}

// Cursor iterates all coins in key order. The caller must Close it; on
// bolt no write can complete while a cursor is open.
func (coinsViewDB *CoinsDB) Cursor() (CoinsCursor, error) {
	bestBlock := coinsViewDB.GetBestBlock()
	it := coinsViewDB.dbw.Iterator()
	it.Seek([]byte{db.DbCoin})
	if err := it.Error(); err != nil {
		it.Close()
		return nil, errcode.Wrap(errcode.ErrorFailedToReadCoinDatabase, err)
	}
	return &coinsDBCursor{iter: it, hashBlock: bestBlock}, nil
}

func (coinsViewDB *CoinsDB) GetDBW() *db.DBWrapper {
	return coinsViewDB.dbw
}

func (coinsViewDB *CoinsDB) Close() error {
	return coinsViewDB.dbw.Close()
}

type coinsDBCursor struct {
	iter      *db.IterWrapper
	hashBlock util.Hash
}

func (c *coinsDBCursor) Valid() bool {
	return c.iter.HasPrefix([]byte{db.DbCoin})
}

func (c *coinsDBCursor) Next() {
	c.iter.Next()
}

func (c *coinsDBCursor) GetKey() (*outpoint.OutPoint, error) {
	if !c.Valid() {
		return nil, errors.New("coins cursor: not positioned on a coin")
	}
	op, err := ParseCoinKey(c.iter.GetKey())
	if err != nil {
		return nil, errcode.Wrap(errcode.ErrorCoinCorrupted, err)
	}
	return op, nil
}

func (c *coinsDBCursor) GetVal() (*Coin, error) {
	if !c.Valid() {
		return nil, errors.New("coins cursor: not positioned on a coin")
	}
	coin := NewEmptyCoin()
	if err := coin.Unserialize(bytes.NewReader(c.iter.GetVal())); err != nil {
		return nil, errcode.Wrap(errcode.ErrorCoinCorrupted, err)
	}
	return coin, nil
}

func (c *coinsDBCursor) GetValSize() int {
	return c.iter.GetValSize()
}

func (c *coinsDBCursor) GetBestBlock() util.Hash {
	return c.hashBlock
}

func (c *coinsDBCursor) Close() {
	c.iter.Close()
}
