package utxo

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"hash"
	"sort"

	"github.com/copernet/chainstate/model/outpoint"
	"github.com/copernet/chainstate/util"
	"github.com/copernet/chainstate/util/amount"
	"github.com/kaspanet/go-muhash"
	"github.com/pkg/errors"
)

// UTXOStats summarizes the coins visible through a cursor.
type UTXOStats struct {
	BestBlock          util.Hash
	Transactions       uint64
	TransactionOutputs uint64
	// BogoSize is a storage-layout independent size measure of the set.
	BogoSize    uint64
	TotalAmount amount.Amount
	DiskSize    uint64
	// HashSerialized is the double-SHA256 of the per-transaction
	// serialization of the set, in key order.
	HashSerialized util.Hash
	// MuHash is an order independent commitment to the set of outputs.
	MuHash string
}

type txOutputs struct {
	indexes []uint32
	coins   map[uint32]*Coin
}

// GetUTXOStats walks every coin of view. Pending changes of cache layers
// are not seen; flush them first.
func GetUTXOStats(view CoinsView) (*UTXOStats, error) {
	cursor, err := view.Cursor()
	if err != nil {
		return nil, err
	}
	defer cursor.Close()

	stats := &UTXOStats{BestBlock: cursor.GetBestBlock()}
	hasher := sha256.New()
	hasher.Write(stats.BestBlock[:])
	mu := muhash.NewMuHash()

	var prevTxid util.Hash
	outputs := txOutputs{coins: make(map[uint32]*Coin)}
	var buf bytes.Buffer
	for cursor.Valid() {
		point, err := cursor.GetKey()
		if err != nil {
			return nil, errors.WithMessage(err, "unable to read key")
		}
		coin, err := cursor.GetVal()
		if err != nil {
			return nil, errors.WithMessagef(err, "unable to read value of %s", point.String())
		}
		if len(outputs.indexes) != 0 && point.Hash != prevTxid {
			stats.applyTx(hasher, &prevTxid, &outputs)
		}
		prevTxid = point.Hash
		outputs.indexes = append(outputs.indexes, point.Index)
		outputs.coins[point.Index] = coin

		buf.Reset()
		if err := serializeMuHashElement(&buf, point, coin); err != nil {
			return nil, err
		}
		mu.Add(buf.Bytes())
		cursor.Next()
	}
	if len(outputs.indexes) != 0 {
		stats.applyTx(hasher, &prevTxid, &outputs)
	}

	stats.HashSerialized = util.Hash(sha256.Sum256(hasher.Sum(nil)))
	finalized := mu.Finalize()
	stats.MuHash = finalized.String()
	stats.DiskSize = view.EstimateSize()
	return stats, nil
}

// applyTx folds the unspent outputs of one transaction into the stats.
func (stats *UTXOStats) applyTx(hasher hash.Hash, txid *util.Hash, outputs *txOutputs) {
	sort.Slice(outputs.indexes, func(i, j int) bool { return outputs.indexes[i] < outputs.indexes[j] })
	first := outputs.coins[outputs.indexes[0]]
	code := uint64(first.GetHeight()) * 2
	if first.IsCoinBase() {
		code++
	}
	hasher.Write(txid[:])
	util.WriteVarLenInt(hasher, code)
	stats.Transactions++
	for _, index := range outputs.indexes {
		coin := outputs.coins[index]
		script := coin.GetScriptPubKey().GetData()
		util.WriteVarLenInt(hasher, uint64(index)+1)
		util.WriteVarInt(hasher, uint64(len(script)))
		hasher.Write(script)
		util.WriteVarLenInt(hasher, uint64(coin.GetAmount()))

		stats.TransactionOutputs++
		stats.TotalAmount += coin.GetAmount()
		stats.BogoSize += 32 + 4 + 4 + 8 + 2 + uint64(len(script))
		delete(outputs.coins, index)
	}
	util.WriteVarLenInt(hasher, 0)
	outputs.indexes = outputs.indexes[:0]
}

// serializeMuHashElement writes outpoint, height*2+coinbase and the output,
// the element each coin contributes to the MuHash.
func serializeMuHashElement(buf *bytes.Buffer, point *outpoint.OutPoint, coin *Coin) error {
	if err := point.Serialize(buf); err != nil {
		return err
	}
	code := uint32(coin.GetHeight()) * 2
	if coin.IsCoinBase() {
		code++
	}
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], code)
	buf.Write(b[:])
	out := coin.GetTxOut()
	return out.Serialize(buf)
}
