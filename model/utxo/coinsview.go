package utxo

import (
	"github.com/copernet/chainstate/model/outpoint"
	"github.com/copernet/chainstate/util"
)

// CoinsView is a readable, batch-writable UTXO set. Implementations are
// the persistent CoinsDB and the in-memory CoinsCache, which stack on top
// of one another.
type CoinsView interface {
	// GetCoin returns the unspent coin for outpoint, or nil when the
	// output is spent or unknown.
	GetCoin(outpoint *outpoint.OutPoint) *Coin
	HaveCoin(outpoint *outpoint.OutPoint) bool
	// GetBestBlock returns the block whose state the view represents, or
	// the zero hash when unknown.
	GetBestBlock() util.Hash
	// GetHeadBlocks returns [new tip, old tip] while a flush to disk is
	// incomplete, and nil otherwise.
	GetHeadBlocks() []util.Hash
	// BatchWrite merges the dirty entries of coins into the view and
	// labels the result with bestBlock. The map is not modified.
	BatchWrite(coins CoinsMap, bestBlock *util.Hash) error
	EstimateSize() uint64
	Cursor() (CoinsCursor, error)
}

// CoinsCursor iterates the persisted coins in key order.
type CoinsCursor interface {
	Valid() bool
	Next()
	GetKey() (*outpoint.OutPoint, error)
	GetVal() (*Coin, error)
	GetValSize() int
	GetBestBlock() util.Hash
	Close()
}
