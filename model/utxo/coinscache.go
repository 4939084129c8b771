package utxo

import (
	"github.com/copernet/chainstate/errcode"
	"github.com/copernet/chainstate/model/outpoint"
	"github.com/copernet/chainstate/util"
	"github.com/pkg/errors"
)

const (
	// mapOverhead approximates the per-entry bytes of Go map internals.
	mapOverhead = 57

	outpointSize  = util.Hash256Size + 4
	pointerSize   = 8
	baseEntrySize = 40
)

// CoinsCache is an in-memory overlay on top of another CoinsView. Reads
// fall through to the base and are cached; writes stay in the overlay until
// Flush or Sync pushes them down with BatchWrite. A CoinsCache is not safe
// for concurrent use.
type CoinsCache struct {
	base             CoinsView
	hashBlock        util.Hash
	cacheCoins       CoinsMap
	cachedCoinsUsage int64
}

func NewCoinsCache(base CoinsView) *CoinsCache {
	return &CoinsCache{
		base:       base,
		cacheCoins: make(CoinsMap),
	}
}

// fetchCoin returns the cached entry for outpoint, pulling it from the base
// view on a miss. A miss below is cached as a spent FreshClean entry, so
// repeated lookups stay local and a later AddCoin knows the coin is new.
func (coinsCache *CoinsCache) fetchCoin(outpoint *outpoint.OutPoint) *CacheEntry {
	if entry, ok := coinsCache.cacheCoins[*outpoint]; ok {
		return entry
	}
	var entry *CacheEntry
	if coin := coinsCache.base.GetCoin(outpoint); coin != nil {
		entry = NewCacheEntry(coin, Clean)
		coinsCache.cachedCoinsUsage += coin.DynamicMemoryUsage()
	} else {
		entry = NewCacheEntry(NewEmptyCoin(), FreshClean)
	}
	coinsCache.cacheCoins[*outpoint] = entry
	return entry
}

// GetCoin returns a copy of the unspent coin, or nil.
func (coinsCache *CoinsCache) GetCoin(outpoint *outpoint.OutPoint) *Coin {
	entry := coinsCache.fetchCoin(outpoint)
	if entry.coin.IsSpent() {
		return nil
	}
	coin := entry.coin
	return &coin
}

// AccessCoin returns the cached coin, or a spent coin when there is none.
// The result points into the cache and is only valid until the next
// modification of the cache; it must not be altered by the caller.
func (coinsCache *CoinsCache) AccessCoin(outpoint *outpoint.OutPoint) *Coin {
	entry := coinsCache.fetchCoin(outpoint)
	if entry.coin.IsSpent() {
		return NewEmptyCoin()
	}
	return &entry.coin
}

func (coinsCache *CoinsCache) HaveCoin(outpoint *outpoint.OutPoint) bool {
	return !coinsCache.fetchCoin(outpoint).coin.IsSpent()
}

// HaveCoinInCache reports an unspent coin in this layer without consulting
// the base view.
func (coinsCache *CoinsCache) HaveCoinInCache(outpoint *outpoint.OutPoint) bool {
	entry, ok := coinsCache.cacheCoins[*outpoint]
	return ok && !entry.coin.IsSpent()
}

// AddCoin inserts an unspent coin. Coins with provably unspendable scripts
// are dropped. Unless possibleOverwrite is set, replacing an unspent coin
// is a logic error and panics; without it the new entry is also marked
// fresh when the layer holds no pending change for the outpoint.
func (coinsCache *CoinsCache) AddCoin(point *outpoint.OutPoint, coin *Coin, possibleOverwrite bool) {
	if coin.IsSpent() {
		panic("param coin should not be spent")
	}
	if coin.GetScriptPubKey().IsUnspendable() {
		return
	}
	entry, ok := coinsCache.cacheCoins[*point]
	fresh := false
	if !possibleOverwrite {
		if ok && !entry.coin.IsSpent() {
			panic("Adding new coin that replaces non-pruned entry")
		}
		// A pending spend must still reach the base, which may hold an
		// older coin for the same outpoint.
		fresh = !ok || !entry.flags.IsDirty()
	}
	if !ok {
		entry = NewCacheEntry(NewEmptyCoin(), Clean)
		coinsCache.cacheCoins[*point] = entry
	}

	coinsCache.cachedCoinsUsage -= entry.coin.DynamicMemoryUsage()
	entry.coin = *coin
	entry.flags = entry.flags.withDirty()
	if fresh {
		entry.flags = entry.flags.withFresh()
	}
	coinsCache.cachedCoinsUsage += entry.coin.DynamicMemoryUsage()
}

// SpendCoin marks the coin spent and returns it, or returns nil when there
// is no unspent coin. A fresh entry is dropped outright since the base has
// never seen it.
func (coinsCache *CoinsCache) SpendCoin(outpoint *outpoint.OutPoint) *Coin {
	entry := coinsCache.fetchCoin(outpoint)
	var spent *Coin
	if !entry.coin.IsSpent() {
		coin := entry.coin
		spent = &coin
	}
	coinsCache.cachedCoinsUsage -= entry.coin.DynamicMemoryUsage()
	if entry.flags.IsFresh() {
		delete(coinsCache.cacheCoins, *outpoint)
	} else {
		entry.flags = entry.flags.withDirty()
		entry.coin.Clear()
	}
	return spent
}

// Uncache drops an unmodified entry to free memory.
func (coinsCache *CoinsCache) Uncache(outpoint *outpoint.OutPoint) {
	entry, ok := coinsCache.cacheCoins[*outpoint]
	if ok && !entry.flags.IsDirty() {
		coinsCache.cachedCoinsUsage -= entry.coin.DynamicMemoryUsage()
		delete(coinsCache.cacheCoins, *outpoint)
	}
}

func (coinsCache *CoinsCache) GetBestBlock() util.Hash {
	if coinsCache.hashBlock.IsNull() {
		coinsCache.hashBlock = coinsCache.base.GetBestBlock()
	}
	return coinsCache.hashBlock
}

func (coinsCache *CoinsCache) SetBestBlock(hash util.Hash) {
	coinsCache.hashBlock = hash
}

func (coinsCache *CoinsCache) GetHeadBlocks() []util.Hash {
	return coinsCache.base.GetHeadBlocks()
}

func (coinsCache *CoinsCache) EstimateSize() uint64 {
	return coinsCache.base.EstimateSize()
}

// Cursor iterates the base view; pending changes of this layer are not
// visible through it.
func (coinsCache *CoinsCache) Cursor() (CoinsCursor, error) {
	return coinsCache.base.Cursor()
}

// BatchWrite merges the dirty entries of a child layer into this one.
func (coinsCache *CoinsCache) BatchWrite(coins CoinsMap, bestBlock *util.Hash) error {
	for point, item := range coins {
		if !item.flags.IsDirty() {
			continue
		}
		entry, ok := coinsCache.cacheCoins[point]
		if !ok {
			// A fresh spent coin never existed as far as this layer and
			// everything below it is concerned.
			if item.flags.IsFresh() && item.coin.IsSpent() {
				continue
			}
			flags := Dirty
			if item.flags.IsFresh() {
				flags = FreshDirty
			}
			coinsCache.cacheCoins[point] = NewCacheEntry(&item.coin, flags)
			coinsCache.cachedCoinsUsage += item.coin.DynamicMemoryUsage()
			continue
		}

		if item.flags.IsFresh() && !entry.coin.IsSpent() {
			panic("FRESH flag misapplied to coin that exists in parent cache")
		}
		if entry.flags.IsFresh() && item.coin.IsSpent() {
			coinsCache.cachedCoinsUsage -= entry.coin.DynamicMemoryUsage()
			delete(coinsCache.cacheCoins, point)
			continue
		}
		coinsCache.cachedCoinsUsage -= entry.coin.DynamicMemoryUsage()
		entry.coin = item.coin
		coinsCache.cachedCoinsUsage += entry.coin.DynamicMemoryUsage()
		entry.flags = entry.flags.withDirty()
	}
	coinsCache.hashBlock = *bestBlock
	return nil
}

// Flush writes all pending changes to the base view and empties the cache.
// On error the cache is left untouched.
func (coinsCache *CoinsCache) Flush() error {
	if err := coinsCache.base.BatchWrite(coinsCache.cacheCoins, &coinsCache.hashBlock); err != nil {
		return err
	}
	coinsCache.cacheCoins = make(CoinsMap)
	coinsCache.cachedCoinsUsage = 0
	return nil
}

// Sync writes all pending changes to the base view but keeps unspent
// coins cached, now clean.
func (coinsCache *CoinsCache) Sync() error {
	if err := coinsCache.base.BatchWrite(coinsCache.cacheCoins, &coinsCache.hashBlock); err != nil {
		return err
	}
	for point, entry := range coinsCache.cacheCoins {
		if entry.coin.IsSpent() {
			coinsCache.cachedCoinsUsage -= entry.coin.DynamicMemoryUsage()
			delete(coinsCache.cacheCoins, point)
		} else {
			entry.flags = Clean
		}
	}
	return nil
}

// ReallocateCache replaces the entry map with a new one to release the
// memory held by the old one. The cache must be empty.
func (coinsCache *CoinsCache) ReallocateCache() {
	if len(coinsCache.cacheCoins) != 0 {
		panic("ReallocateCache called on a non-empty cache")
	}
	coinsCache.cacheCoins = make(CoinsMap)
}

// SanityCheck verifies every entry holds a legal coin/flag combination and
// that the memory accounting matches the entries.
func (coinsCache *CoinsCache) SanityCheck() error {
	usage := int64(0)
	for point, entry := range coinsCache.cacheCoins {
		if !entry.valid() {
			return errors.WithMessagef(errcode.New(errcode.ErrorCacheInconsistent),
				"%s: %s with flags %s", point.String(), entry.coin.String(), entry.flags)
		}
		usage += entry.coin.DynamicMemoryUsage()
	}
	if usage != coinsCache.cachedCoinsUsage {
		return errors.WithMessagef(errcode.New(errcode.ErrorCacheInconsistent),
			"cached coins usage %d, recomputed %d", coinsCache.cachedCoinsUsage, usage)
	}
	return nil
}

func (coinsCache *CoinsCache) GetCacheSize() int {
	return len(coinsCache.cacheCoins)
}

// DynamicMemoryUsage approximates the heap bytes held by the cache.
func (coinsCache *CoinsCache) DynamicMemoryUsage() int64 {
	numEntries := int64(len(coinsCache.cacheCoins))
	return (mapOverhead+outpointSize+pointerSize+baseEntrySize)*numEntries + coinsCache.cachedCoinsUsage
}
