package utxo

import (
	"bytes"
	"context"
	"io"

	"github.com/copernet/chainstate/errcode"
	"github.com/copernet/chainstate/log"
	"github.com/copernet/chainstate/model/outpoint"
	"github.com/copernet/chainstate/model/txout"
	"github.com/copernet/chainstate/persist/db"
	"github.com/copernet/chainstate/util"
	"github.com/pkg/errors"
)

// legacyCoins is a per-transaction record of the old database layout:
//
//	VARINT(version)
//	VARINT(code): bit 0 coinbase, bit 1 output 0 unspent, bit 2 output 1
//	    unspent, code/8 the number of non-zero mask bytes, minus one when
//	    neither output 0 nor output 1 is unspent
//	unspentness bitmask of outputs 2 and up, least significant byte first
//	the unspent outputs, compressed
//	VARINT(height)
type legacyCoins struct {
	isCoinBase bool
	height     uint32
	outs       []*txout.TxOut
}

func (lc *legacyCoins) Unserialize(r io.Reader) error {
	if _, err := util.ReadVarLenInt(r); err != nil {
		return err
	}
	code, err := util.ReadVarLenInt(r)
	if err != nil {
		return err
	}
	lc.isCoinBase = code&1 != 0
	avail := []bool{code&2 != 0, code&4 != 0}
	maskCode := code / 8
	if code&6 == 0 {
		maskCode++
	}
	var chAvail [1]byte
	for maskCode > 0 {
		if _, err := io.ReadFull(r, chAvail[:]); err != nil {
			return err
		}
		for p := uint(0); p < 8; p++ {
			avail = append(avail, chAvail[0]&(1<<p) != 0)
		}
		if chAvail[0] != 0 {
			maskCode--
		}
	}

	lc.outs = make([]*txout.TxOut, len(avail))
	for i, ok := range avail {
		if !ok {
			continue
		}
		out := new(txout.TxOut)
		if err := txout.NewTxoutCompressor(out).Unserialize(r); err != nil {
			return err
		}
		lc.outs[i] = out
	}
	height, err := util.ReadVarLenInt(r)
	if err != nil {
		return err
	}
	if height > 0x7fffffff {
		return errors.Errorf("height %d out of range", height)
	}
	lc.height = uint32(height)
	return nil
}

// Upgrade rewrites records of the per-transaction layout into per-output
// coins. Conversion proceeds in chunks bounded by the batch size. A record
// is erased in the same chunk as its last outputs, so an interrupted
// upgrade resumes where it stopped. Cancelling ctx stops after
// the current chunk.
func (coinsViewDB *CoinsDB) Upgrade(ctx context.Context) error {
	prefix := []byte{db.DbCoins}
	it := coinsViewDB.dbw.Iterator()
	it.Seek(prefix)
	if !it.HasPrefix(prefix) {
		err := it.Error()
		it.Close()
		if err != nil {
			return errcode.Wrap(errcode.ErrorFailedToReadCoinDatabase, err)
		}
		return nil
	}
	log.Print("upgrade", "info", "upgrading utxo-set database")

	batch := db.NewBatchWrapper(coinsViewDB.dbw)
	compactFrom := prefix
	var key []byte
	records, coins := 0, 0
	var buf bytes.Buffer

	flush := func() error {
		// The iterator must be released before writing; bolt does not
		// allow a write while a read transaction is open.
		it.Close()
		if batch.Len() > 0 {
			if err := coinsViewDB.dbw.WriteBatch(batch, false); err != nil {
				return errcode.Wrap(errcode.ErrorFailedToWriteToCoinDatabase, err)
			}
			batch.Clear()
		}
		if key == nil {
			return nil
		}
		compactTo := append(append([]byte{}, key...), 0)
		if err := coinsViewDB.dbw.CompactRange(compactFrom, compactTo); err != nil {
			log.Print("upgrade", "warn", "compact converted range: %v", err)
		}
		compactFrom = key
		return nil
	}

	for it.HasPrefix(prefix) {
		if err := ctx.Err(); err != nil {
			if ferr := flush(); ferr != nil {
				return ferr
			}
			log.Print("upgrade", "warn", "upgrade interrupted after %d records", records)
			return errors.WithMessage(errcode.New(errcode.ErrorUpgradeInterrupted), err.Error())
		}

		key = it.GetKey()
		if len(key) != 1+util.Hash256Size {
			it.Close()
			return errors.WithMessagef(errcode.New(errcode.ErrorLegacyCoinsCorrupted), "bad key %x", key)
		}
		var old legacyCoins
		if err := old.Unserialize(bytes.NewReader(it.GetVal())); err != nil {
			it.Close()
			return errors.WithMessagef(errcode.New(errcode.ErrorLegacyCoinsCorrupted), "record %x: %v", key, err)
		}
		var txid util.Hash
		copy(txid[:], key[1:])
		for i, out := range old.outs {
			if out == nil || out.IsNull() || out.GetScriptPubKey().IsUnspendable() {
				continue
			}
			coin := NewCoin(out, int32(old.height), old.isCoinBase)
			buf.Reset()
			if err := coin.Serialize(&buf); err != nil {
				it.Close()
				return err
			}
			batch.Write(NewCoinKey(outpoint.NewOutPoint(txid, uint32(i))).GetSerKey(), buf.Bytes())
			coins++
			if batch.Full(coinsViewDB.batchSize) {
				// The record spans batches and is erased with its last
				// outputs; rewriting the earlier ones on resume is harmless.
				it.Close()
				if err := coinsViewDB.dbw.WriteBatch(batch, false); err != nil {
					return errcode.Wrap(errcode.ErrorFailedToWriteToCoinDatabase, err)
				}
				batch.Clear()
				it = coinsViewDB.dbw.Iterator()
				it.Seek(key)
			}
		}
		batch.Erase(key)
		records++
		if records%10000 == 0 {
			log.Print("upgrade", "info", "upgraded %d records, %d coins", records, coins)
		}

		if batch.Full(coinsViewDB.batchSize) {
			if err := flush(); err != nil {
				return err
			}
			// key is erased now; seeking it lands on the next record.
			it = coinsViewDB.dbw.Iterator()
			it.Seek(key)
			continue
		}
		it.Next()
	}
	if err := it.Error(); err != nil {
		it.Close()
		return errcode.Wrap(errcode.ErrorFailedToReadCoinDatabase, err)
	}
	if err := flush(); err != nil {
		return err
	}
	log.Print("upgrade", "info", "upgraded %d records into %d coins", records, coins)
	return nil
}
