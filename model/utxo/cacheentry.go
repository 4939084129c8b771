package utxo

import (
	"fmt"

	"github.com/copernet/chainstate/model/outpoint"
)

// CacheFlags records how a cached coin relates to the view below it.
//
// Dirty: the entry differs from the backing view and must be written on
// flush. Fresh: the backing view is known not to hold an unspent coin for
// the outpoint, so a spent fresh entry can be dropped instead of written.
type CacheFlags uint8

const (
	Clean CacheFlags = iota
	Dirty
	FreshClean
	FreshDirty
)

func (f CacheFlags) IsDirty() bool {
	return f == Dirty || f == FreshDirty
}

func (f CacheFlags) IsFresh() bool {
	return f == FreshClean || f == FreshDirty
}

func (f CacheFlags) withDirty() CacheFlags {
	if f.IsFresh() {
		return FreshDirty
	}
	return Dirty
}

func (f CacheFlags) withFresh() CacheFlags {
	if f.IsDirty() {
		return FreshDirty
	}
	return FreshClean
}

func (f CacheFlags) String() string {
	switch f {
	case Clean:
		return "Clean"
	case Dirty:
		return "Dirty"
	case FreshClean:
		return "FreshClean"
	case FreshDirty:
		return "FreshDirty"
	}
	return fmt.Sprintf("CacheFlags(%d)", uint8(f))
}

type CacheEntry struct {
	coin  Coin
	flags CacheFlags
}

func NewCacheEntry(coin *Coin, flags CacheFlags) *CacheEntry {
	return &CacheEntry{coin: *coin, flags: flags}
}

func (entry *CacheEntry) GetCoin() *Coin {
	return &entry.coin
}

func (entry *CacheEntry) GetFlags() CacheFlags {
	return entry.flags
}

// valid reports whether the coin/flag combination can legally persist in
// a cache layer.
func (entry *CacheEntry) valid() bool {
	if entry.coin.IsSpent() {
		return entry.flags == Dirty || entry.flags == FreshClean
	}
	return entry.flags != FreshClean
}

// CoinsMap is the working set of one cache layer, and the unit handed down
// by BatchWrite.
type CoinsMap map[outpoint.OutPoint]*CacheEntry
