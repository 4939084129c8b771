package utxo

import (
	"github.com/copernet/chainstate/model/outpoint"
	"github.com/copernet/chainstate/model/txout"
	"github.com/copernet/chainstate/util"
)

// MaxOutputsPerTx bounds the output index of any transaction: a 1MB
// transaction of minimal 9-byte outputs.
const MaxOutputsPerTx = 1000000 / 9

// AddCoins adds every output of the transaction txid to the cache. With
// check set, the cache is consulted to decide whether an overwrite may
// happen; otherwise only coinbase outputs may overwrite, as duplicate
// coinbase transactions exist in the chain history.
func AddCoins(cache *CoinsCache, txid util.Hash, outs []*txout.TxOut, height int32, isCoinBase bool, check bool) {
	for i, out := range outs {
		point := outpoint.NewOutPoint(txid, uint32(i))
		overwrite := isCoinBase
		if check {
			overwrite = cache.HaveCoin(point)
		}
		cache.AddCoin(point, NewCoin(out, height, isCoinBase), overwrite)
	}
}

// AccessByTxid returns the lowest-indexed unspent output of txid, or a
// spent coin. Lookups that miss are not left behind in the cache.
func AccessByTxid(cache *CoinsCache, txid *util.Hash) *Coin {
	point := outpoint.NewOutPoint(*txid, 0)
	for point.Index < MaxOutputsPerTx {
		_, cached := cache.cacheCoins[*point]
		coin := cache.AccessCoin(point)
		if !coin.IsSpent() {
			return coin
		}
		if !cached {
			cache.Uncache(point)
		}
		point.Index++
	}
	return NewEmptyCoin()
}
