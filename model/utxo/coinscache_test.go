package utxo

import (
	"sort"
	"testing"

	"github.com/copernet/chainstate/errcode"
	"github.com/copernet/chainstate/model/opcodes"
	"github.com/copernet/chainstate/model/outpoint"
	"github.com/copernet/chainstate/model/script"
	"github.com/copernet/chainstate/model/txout"
	"github.com/copernet/chainstate/util"
	"github.com/copernet/chainstate/util/amount"
	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// coinsViewTest is a map backed CoinsView used as the bottom of cache
// stacks in tests.
type coinsViewTest struct {
	bestBlock util.Hash
	coins     map[outpoint.OutPoint]Coin
	gets      int
}

func newCoinsViewTest() *coinsViewTest {
	return &coinsViewTest{coins: make(map[outpoint.OutPoint]Coin)}
}

func (v *coinsViewTest) GetCoin(point *outpoint.OutPoint) *Coin {
	v.gets++
	coin, ok := v.coins[*point]
	if !ok || coin.IsSpent() {
		return nil
	}
	return &coin
}

func (v *coinsViewTest) HaveCoin(point *outpoint.OutPoint) bool {
	return v.GetCoin(point) != nil
}

func (v *coinsViewTest) GetBestBlock() util.Hash {
	return v.bestBlock
}

func (v *coinsViewTest) GetHeadBlocks() []util.Hash {
	return nil
}

func (v *coinsViewTest) BatchWrite(coins CoinsMap, bestBlock *util.Hash) error {
	for point, entry := range coins {
		if !entry.flags.IsDirty() {
			continue
		}
		if entry.coin.IsSpent() {
			delete(v.coins, point)
		} else {
			v.coins[point] = entry.coin
		}
	}
	if !bestBlock.IsNull() {
		v.bestBlock = *bestBlock
	}
	return nil
}

func (v *coinsViewTest) EstimateSize() uint64 {
	return 0
}

func (v *coinsViewTest) Cursor() (CoinsCursor, error) {
	points := make([]outpoint.OutPoint, 0, len(v.coins))
	for point := range v.coins {
		points = append(points, point)
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Less(&points[j]) })
	coins := make([]Coin, len(points))
	for i := range points {
		coins[i] = v.coins[points[i]]
	}
	return &sliceCursor{points: points, coins: coins, bestBlock: v.bestBlock}, nil
}

type sliceCursor struct {
	points    []outpoint.OutPoint
	coins     []Coin
	pos       int
	bestBlock util.Hash
}

func (c *sliceCursor) Valid() bool { return c.pos < len(c.points) }
func (c *sliceCursor) Next()       { c.pos++ }

func (c *sliceCursor) GetKey() (*outpoint.OutPoint, error) {
	point := c.points[c.pos]
	return &point, nil
}

func (c *sliceCursor) GetVal() (*Coin, error) {
	coin := c.coins[c.pos]
	return &coin, nil
}

func (c *sliceCursor) GetValSize() int          { return 0 }
func (c *sliceCursor) GetBestBlock() util.Hash { return c.bestBlock }
func (c *sliceCursor) Close()                  {}

const (
	fail   = amount.Amount(-3)
	absent = amount.Amount(-2)
	pruned = amount.Amount(-1)
	value1 = amount.Amount(100)
	value2 = amount.Amount(200)
	value3 = amount.Amount(300)

	noEntry = CacheFlags(0xff)
)

var testOutpoint = outpoint.OutPoint{Index: 0}

var allFlags = []CacheFlags{Clean, FreshClean, Dirty, FreshDirty}

func setCoinValue(value amount.Amount, coin *Coin) {
	if value == pruned {
		*coin = *NewEmptyCoin()
		return
	}
	*coin = *NewCoin(txout.NewTxOut(value, script.NewEmptyScript()), 1, false)
}

func insertCoinMapEntry(coins CoinsMap, value amount.Amount, flags CacheFlags) int64 {
	if value == absent {
		return 0
	}
	entry := &CacheEntry{flags: flags}
	setCoinValue(value, &entry.coin)
	coins[testOutpoint] = entry
	return entry.coin.DynamicMemoryUsage()
}

func getCoinMapEntry(coins CoinsMap) (amount.Amount, CacheFlags) {
	entry, ok := coins[testOutpoint]
	if !ok {
		return absent, noEntry
	}
	if entry.coin.IsSpent() {
		return pruned, entry.flags
	}
	return entry.coin.GetAmount(), entry.flags
}

func writeCoinViewEntry(view CoinsView, value amount.Amount, flags CacheFlags) {
	coins := make(CoinsMap)
	insertCoinMapEntry(coins, value, flags)
	view.BatchWrite(coins, &util.Hash{})
}

type singleEntryCacheTest struct {
	root  *coinsViewTest
	base  *CoinsCache
	cache *CoinsCache
}

func newSingleEntryCacheTest(baseValue, cacheValue amount.Amount, cacheFlags CacheFlags) *singleEntryCacheTest {
	test := &singleEntryCacheTest{root: newCoinsViewTest()}
	test.base = NewCoinsCache(test.root)
	if baseValue != absent {
		writeCoinViewEntry(test.base, baseValue, Dirty)
	}
	test.cache = NewCoinsCache(test.base)
	test.cache.cachedCoinsUsage += insertCoinMapEntry(test.cache.cacheCoins, cacheValue, cacheFlags)
	return test
}

func TestCoinsCacheAccessCoin(t *testing.T) {
	tests := []struct {
		base, cache, result     amount.Amount
		cacheFlags, resultFlags CacheFlags
	}{
		{absent, absent, pruned, noEntry, FreshClean},
		{pruned, absent, pruned, noEntry, FreshClean},
		{value1, absent, value1, noEntry, Clean},
	}
	for _, base := range []amount.Amount{absent, pruned, value1} {
		for _, cache := range []amount.Amount{pruned, value2} {
			for _, flags := range allFlags {
				tests = append(tests, struct {
					base, cache, result     amount.Amount
					cacheFlags, resultFlags CacheFlags
				}{base, cache, cache, flags, flags})
			}
		}
	}

	for _, test := range tests {
		st := newSingleEntryCacheTest(test.base, test.cache, test.cacheFlags)
		coin := st.cache.AccessCoin(&testOutpoint)
		value, flags := getCoinMapEntry(st.cache.cacheCoins)
		assert.Equal(t, test.result, value, "%+v", test)
		assert.Equal(t, test.resultFlags, flags, "%+v", test)
		assert.Equal(t, test.result == pruned, coin.IsSpent(), "%+v", test)
	}
}

func TestCoinsCacheSpendCoin(t *testing.T) {
	tests := []struct {
		base, cache, result     amount.Amount
		cacheFlags, resultFlags CacheFlags
	}{
		{absent, absent, absent, noEntry, noEntry},
		{pruned, absent, absent, noEntry, noEntry},
		{value1, absent, pruned, noEntry, Dirty},
	}
	for _, base := range []amount.Amount{absent, pruned, value1} {
		for _, cache := range []amount.Amount{pruned, value2} {
			tests = append(tests,
				struct {
					base, cache, result     amount.Amount
					cacheFlags, resultFlags CacheFlags
				}{base, cache, pruned, Clean, Dirty},
				struct {
					base, cache, result     amount.Amount
					cacheFlags, resultFlags CacheFlags
				}{base, cache, absent, FreshClean, noEntry},
				struct {
					base, cache, result     amount.Amount
					cacheFlags, resultFlags CacheFlags
				}{base, cache, pruned, Dirty, Dirty},
				struct {
					base, cache, result     amount.Amount
					cacheFlags, resultFlags CacheFlags
				}{base, cache, absent, FreshDirty, noEntry},
			)
		}
	}

	for _, test := range tests {
		st := newSingleEntryCacheTest(test.base, test.cache, test.cacheFlags)
		before, _ := getCoinMapEntry(st.cache.cacheCoins)
		if before == absent {
			before = test.base
		}
		spent := st.cache.SpendCoin(&testOutpoint)
		if before == value1 || before == value2 {
			require.NotNil(t, spent, "%+v", test)
			assert.Equal(t, before, spent.GetAmount(), "%+v", test)
		} else {
			assert.Nil(t, spent, "%+v", test)
		}

		value, flags := getCoinMapEntry(st.cache.cacheCoins)
		assert.Equal(t, test.result, value, "%+v", test)
		assert.Equal(t, test.resultFlags, flags, "%+v", test)
	}
}

func TestCoinsCacheAddCoin(t *testing.T) {
	tests := []struct {
		cache, result           amount.Amount
		cacheFlags, resultFlags CacheFlags
		possibleOverwrite       bool
	}{
		{absent, value3, noEntry, FreshDirty, false},
		{absent, value3, noEntry, Dirty, true},
		{pruned, value3, Clean, FreshDirty, false},
		{pruned, value3, Clean, Dirty, true},
		{pruned, value3, FreshClean, FreshDirty, false},
		{pruned, value3, FreshClean, FreshDirty, true},
		{pruned, value3, Dirty, Dirty, false},
		{pruned, value3, Dirty, Dirty, true},
		{pruned, value3, FreshDirty, FreshDirty, false},
		{pruned, value3, FreshDirty, FreshDirty, true},
		{value2, fail, Clean, noEntry, false},
		{value2, value3, Clean, Dirty, true},
		{value2, fail, FreshClean, noEntry, false},
		{value2, value3, FreshClean, FreshDirty, true},
		{value2, fail, Dirty, noEntry, false},
		{value2, value3, Dirty, Dirty, true},
		{value2, fail, FreshDirty, noEntry, false},
		{value2, value3, FreshDirty, FreshDirty, true},
	}

	// The base value never influences AddCoin.
	for _, base := range []amount.Amount{absent, pruned, value1} {
		for _, test := range tests {
			st := newSingleEntryCacheTest(base, test.cache, test.cacheFlags)
			coin := NewEmptyCoin()
			setCoinValue(value3, coin)
			add := func() { st.cache.AddCoin(&testOutpoint, coin, test.possibleOverwrite) }
			if test.result == fail {
				assert.PanicsWithValue(t, "Adding new coin that replaces non-pruned entry", add, "%+v", test)
				continue
			}
			assert.NotPanics(t, add, "%+v", test)
			value, flags := getCoinMapEntry(st.cache.cacheCoins)
			assert.Equal(t, test.result, value, "%+v", test)
			assert.Equal(t, test.resultFlags, flags, "%+v", test)
			assert.NoError(t, st.cache.SanityCheck(), "%+v", test)
		}
	}
}

func TestCoinsCacheWriteCoins(t *testing.T) {
	tests := []struct {
		parent, child, result                amount.Amount
		parentFlags, childFlags, resultFlags CacheFlags
	}{
		{absent, absent, absent, noEntry, noEntry, noEntry},
		{absent, pruned, pruned, noEntry, Dirty, Dirty},
		{absent, pruned, absent, noEntry, FreshDirty, noEntry},
		{absent, value2, value2, noEntry, Dirty, Dirty},
		{absent, value2, value2, noEntry, FreshDirty, FreshDirty},
		{absent, value2, absent, noEntry, Clean, noEntry},
		{absent, value2, absent, noEntry, FreshClean, noEntry},

		{pruned, absent, pruned, Clean, noEntry, Clean},
		{pruned, absent, pruned, FreshClean, noEntry, FreshClean},
		{pruned, absent, pruned, Dirty, noEntry, Dirty},
		{pruned, absent, pruned, FreshDirty, noEntry, FreshDirty},
		{pruned, pruned, pruned, Clean, Dirty, Dirty},
		{pruned, pruned, pruned, Clean, FreshDirty, Dirty},
		{pruned, pruned, absent, FreshClean, Dirty, noEntry},
		{pruned, pruned, absent, FreshClean, FreshDirty, noEntry},
		{pruned, pruned, pruned, Dirty, Dirty, Dirty},
		{pruned, pruned, pruned, Dirty, FreshDirty, Dirty},
		{pruned, pruned, absent, FreshDirty, Dirty, noEntry},
		{pruned, pruned, absent, FreshDirty, FreshDirty, noEntry},
		{pruned, value2, value2, Clean, Dirty, Dirty},
		{pruned, value2, value2, Clean, FreshDirty, Dirty},
		{pruned, value2, value2, FreshClean, Dirty, FreshDirty},
		{pruned, value2, value2, FreshClean, FreshDirty, FreshDirty},
		{pruned, value2, value2, Dirty, Dirty, Dirty},
		{pruned, value2, value2, Dirty, FreshDirty, Dirty},
		{pruned, value2, value2, FreshDirty, Dirty, FreshDirty},
		{pruned, value2, value2, FreshDirty, FreshDirty, FreshDirty},
		{pruned, value2, pruned, Dirty, Clean, Dirty},

		{value1, absent, value1, Clean, noEntry, Clean},
		{value1, absent, value1, FreshDirty, noEntry, FreshDirty},
		{value1, pruned, pruned, Clean, Dirty, Dirty},
		{value1, pruned, fail, Clean, FreshDirty, noEntry},
		{value1, pruned, absent, FreshClean, Dirty, noEntry},
		{value1, pruned, fail, FreshClean, FreshDirty, noEntry},
		{value1, pruned, pruned, Dirty, Dirty, Dirty},
		{value1, pruned, fail, Dirty, FreshDirty, noEntry},
		{value1, pruned, absent, FreshDirty, Dirty, noEntry},
		{value1, pruned, fail, FreshDirty, FreshDirty, noEntry},
		{value1, value2, value2, Clean, Dirty, Dirty},
		{value1, value2, fail, Clean, FreshDirty, noEntry},
		{value1, value2, value2, FreshClean, Dirty, FreshDirty},
		{value1, value2, fail, FreshClean, FreshDirty, noEntry},
		{value1, value2, value2, Dirty, Dirty, Dirty},
		{value1, value2, fail, Dirty, FreshDirty, noEntry},
		{value1, value2, value2, FreshDirty, Dirty, FreshDirty},
		{value1, value2, fail, FreshDirty, FreshDirty, noEntry},
		{value1, value2, value1, Dirty, FreshClean, Dirty},
	}

	for _, test := range tests {
		st := newSingleEntryCacheTest(absent, test.parent, test.parentFlags)
		child := make(CoinsMap)
		insertCoinMapEntry(child, test.child, test.childFlags)
		write := func() { st.cache.BatchWrite(child, &util.Hash{}) }
		if test.result == fail {
			assert.PanicsWithValue(t, "FRESH flag misapplied to coin that exists in parent cache", write, "%+v", test)
			continue
		}
		assert.NotPanics(t, write, "%+v", test)
		value, flags := getCoinMapEntry(st.cache.cacheCoins)
		assert.Equal(t, test.result, value, "%+v", test)
		assert.Equal(t, test.resultFlags, flags, "%+v", test)
	}
}

func newTestCoin(value amount.Amount, scriptData []byte, height int32, coinBase bool) *Coin {
	return NewCoin(txout.NewTxOut(value, script.NewScriptRaw(scriptData)), height, coinBase)
}

func TestCoinsCacheScenario(t *testing.T) {
	var txid util.Hash
	txid[0] = 1
	point := outpoint.NewOutPoint(txid, 0)
	coin := newTestCoin(50*amount.COIN, []byte{opcodes.OP_TRUE}, 0, true)

	root := newCoinsViewTest()
	cache := NewCoinsCache(root)
	cache.AddCoin(point, coin, false)
	assert.True(t, cache.AccessCoin(point).IsEqual(coin))
	assert.Equal(t, FreshDirty, cache.cacheCoins[*point].flags)

	spent := cache.SpendCoin(point)
	require.NotNil(t, spent)
	assert.True(t, spent.IsEqual(coin), spew.Sdump(spent))
	assert.True(t, cache.AccessCoin(point).IsSpent())

	require.NoError(t, cache.Flush())
	assert.Empty(t, root.coins)
	assert.Nil(t, root.GetCoin(point))
}

func TestCoinsCacheNegativeCache(t *testing.T) {
	root := newCoinsViewTest()
	cache := NewCoinsCache(root)
	point := outpoint.NewOutPoint(util.Hash{0xaa}, 3)

	assert.False(t, cache.HaveCoin(point))
	assert.Nil(t, cache.GetCoin(point))
	assert.True(t, cache.AccessCoin(point).IsSpent())
	assert.Equal(t, 1, root.gets)
	assert.Equal(t, 1, cache.GetCacheSize())
	assert.Equal(t, FreshClean, cache.cacheCoins[*point].flags)
	assert.False(t, cache.HaveCoinInCache(point))

	// The marker never reaches the base.
	require.NoError(t, cache.Flush())
	assert.Empty(t, root.coins)

	// The marker hides a coin appearing below until it is dropped.
	assert.False(t, cache.HaveCoin(point))
	root.coins[*point] = *newTestCoin(value1, []byte{opcodes.OP_TRUE}, 5, false)
	assert.False(t, cache.HaveCoin(point))
	cache.Uncache(point)
	assert.True(t, cache.HaveCoin(point))
	assert.True(t, cache.HaveCoinInCache(point))
	assert.Equal(t, 3, root.gets)
}

func TestCoinsCacheRejectDoubleAdd(t *testing.T) {
	cache := NewCoinsCache(newCoinsViewTest())
	point := outpoint.NewOutPoint(util.Hash{1}, 0)
	coin := newTestCoin(value1, []byte{opcodes.OP_TRUE}, 1, false)

	cache.AddCoin(point, coin, false)
	assert.PanicsWithValue(t, "Adding new coin that replaces non-pruned entry", func() {
		cache.AddCoin(point, coin, false)
	})
	other := newTestCoin(value2, []byte{opcodes.OP_TRUE}, 2, true)
	assert.NotPanics(t, func() { cache.AddCoin(point, other, true) })
	assert.True(t, cache.AccessCoin(point).IsEqual(other))
	assert.Equal(t, FreshDirty, cache.cacheCoins[*point].flags)

	assert.PanicsWithValue(t, "param coin should not be spent", func() {
		cache.AddCoin(point, NewEmptyCoin(), true)
	})
	assert.NoError(t, cache.SanityCheck())
}

func TestCoinsCacheUnspendable(t *testing.T) {
	cache := NewCoinsCache(newCoinsViewTest())
	point := outpoint.NewOutPoint(util.Hash{2}, 0)
	cache.AddCoin(point, newTestCoin(value1, []byte{opcodes.OP_RETURN, 0x01}, 1, false), false)
	assert.Equal(t, 0, cache.GetCacheSize())
	assert.False(t, cache.HaveCoin(point))
}

func TestCoinsCacheTombstone(t *testing.T) {
	root := newCoinsViewTest()
	point := outpoint.NewOutPoint(util.Hash{3}, 1)
	root.coins[*point] = *newTestCoin(value1, []byte{opcodes.OP_TRUE}, 9, false)

	mid := NewCoinsCache(root)
	top := NewCoinsCache(mid)
	spent := top.SpendCoin(point)
	require.NotNil(t, spent)
	assert.Equal(t, value1, spent.GetAmount())
	assert.Equal(t, Dirty, top.cacheCoins[*point].flags)

	// The middle layer only holds a clean copy, so the spend must travel
	// through it as a dirty spent entry.
	require.NoError(t, top.Flush())
	entry := mid.cacheCoins[*point]
	require.NotNil(t, entry)
	assert.True(t, entry.coin.IsSpent())
	assert.Equal(t, Dirty, entry.flags)
	assert.Contains(t, root.coins, *point)

	require.NoError(t, mid.Flush())
	assert.NotContains(t, root.coins, *point)
	assert.Equal(t, 0, mid.GetCacheSize())
}

func TestCoinsCacheSync(t *testing.T) {
	root := newCoinsViewTest()
	cache := NewCoinsCache(root)
	live := outpoint.NewOutPoint(util.Hash{4}, 0)
	gone := outpoint.NewOutPoint(util.Hash{4}, 1)
	old := outpoint.NewOutPoint(util.Hash{5}, 0)
	root.coins[*old] = *newTestCoin(value2, []byte{opcodes.OP_TRUE}, 1, false)

	cache.AddCoin(live, newTestCoin(value1, []byte{opcodes.OP_TRUE}, 2, false), false)
	cache.AddCoin(gone, newTestCoin(value1, []byte{opcodes.OP_TRUE}, 2, false), false)
	cache.SpendCoin(gone)
	cache.SpendCoin(old)
	cache.SetBestBlock(util.Hash{9})

	require.NoError(t, cache.Sync())
	assert.Equal(t, util.Hash{9}, root.bestBlock)
	assert.Contains(t, root.coins, *live)
	assert.NotContains(t, root.coins, *old)
	assert.NotContains(t, root.coins, *gone)

	assert.Equal(t, 1, cache.GetCacheSize())
	assert.Equal(t, Clean, cache.cacheCoins[*live].flags)
	assert.NoError(t, cache.SanityCheck())

	// Nothing is dirty any more.
	root.coins = make(map[outpoint.OutPoint]Coin)
	require.NoError(t, cache.Sync())
	assert.Empty(t, root.coins)
}

func TestCoinsCacheUncache(t *testing.T) {
	root := newCoinsViewTest()
	clean := outpoint.NewOutPoint(util.Hash{6}, 0)
	dirty := outpoint.NewOutPoint(util.Hash{6}, 1)
	root.coins[*clean] = *newTestCoin(value1, []byte{opcodes.OP_TRUE}, 1, false)

	cache := NewCoinsCache(root)
	assert.True(t, cache.HaveCoin(clean))
	cache.AddCoin(dirty, newTestCoin(value2, []byte{opcodes.OP_TRUE}, 1, false), false)
	usage := cache.DynamicMemoryUsage()

	cache.Uncache(clean)
	cache.Uncache(dirty)
	assert.False(t, cache.HaveCoinInCache(clean))
	assert.True(t, cache.HaveCoinInCache(dirty))
	assert.Less(t, cache.DynamicMemoryUsage(), usage)
	assert.NoError(t, cache.SanityCheck())
}

func TestCoinsCacheReallocate(t *testing.T) {
	cache := NewCoinsCache(newCoinsViewTest())
	point := outpoint.NewOutPoint(util.Hash{7}, 0)
	cache.AddCoin(point, newTestCoin(value1, []byte{opcodes.OP_TRUE}, 1, false), false)
	assert.Panics(t, cache.ReallocateCache)

	cache.SetBestBlock(util.Hash{1})
	require.NoError(t, cache.Flush())
	assert.NotPanics(t, cache.ReallocateCache)
	assert.True(t, cache.HaveCoin(point))
}

func TestCoinsCacheMemoryUsage(t *testing.T) {
	cache := NewCoinsCache(newCoinsViewTest())
	assert.Equal(t, int64(0), cache.DynamicMemoryUsage())

	entrySize := int64(mapOverhead + outpointSize + pointerSize + baseEntrySize)
	p1 := outpoint.NewOutPoint(util.Hash{8}, 0)
	p2 := outpoint.NewOutPoint(util.Hash{8}, 1)
	cache.AddCoin(p1, newTestCoin(value1, make([]byte, 25), 1, false), false)
	cache.AddCoin(p2, newTestCoin(value1, make([]byte, 10), 1, false), false)
	assert.Equal(t, 2*entrySize+35, cache.DynamicMemoryUsage())

	cache.AddCoin(p2, newTestCoin(value1, make([]byte, 3), 1, false), true)
	assert.Equal(t, 2*entrySize+28, cache.DynamicMemoryUsage())

	cache.SpendCoin(p1)
	assert.Equal(t, entrySize+3, cache.DynamicMemoryUsage())
	assert.NoError(t, cache.SanityCheck())
}

func TestCoinsCacheSanityCheck(t *testing.T) {
	cache := NewCoinsCache(newCoinsViewTest())
	point := outpoint.NewOutPoint(util.Hash{10}, 0)
	cache.AddCoin(point, newTestCoin(value1, []byte{opcodes.OP_TRUE}, 1, false), false)
	require.NoError(t, cache.SanityCheck())

	cache.cachedCoinsUsage++
	err := cache.SanityCheck()
	assert.True(t, errcode.IsErrorCode(err, errcode.ErrorCacheInconsistent))
	cache.cachedCoinsUsage--

	for _, bad := range []struct {
		spent bool
		flags CacheFlags
	}{{false, FreshClean}, {true, Clean}, {true, FreshDirty}} {
		entry := cache.cacheCoins[*point]
		entry.flags = bad.flags
		if bad.spent {
			cache.cachedCoinsUsage -= entry.coin.DynamicMemoryUsage()
			entry.coin.Clear()
		}
		err := cache.SanityCheck()
		assert.True(t, errcode.IsErrorCode(err, errcode.ErrorCacheInconsistent), "%+v", bad)

		cache = NewCoinsCache(newCoinsViewTest())
		cache.AddCoin(point, newTestCoin(value1, []byte{opcodes.OP_TRUE}, 1, false), false)
	}
}

func TestCoinsCacheBestBlock(t *testing.T) {
	root := newCoinsViewTest()
	root.bestBlock = util.Hash{1}
	cache := NewCoinsCache(root)
	assert.Equal(t, util.Hash{1}, cache.GetBestBlock())

	cache.SetBestBlock(util.Hash{2})
	assert.Equal(t, util.Hash{1}, root.GetBestBlock())
	require.NoError(t, cache.Flush())
	assert.Equal(t, util.Hash{2}, root.GetBestBlock())
	assert.Nil(t, cache.GetHeadBlocks())
	assert.Equal(t, uint64(0), cache.EstimateSize())
}

func TestAddCoins(t *testing.T) {
	cache := NewCoinsCache(newCoinsViewTest())
	txid := util.Hash{11}
	outs := []*txout.TxOut{
		txout.NewTxOut(value1, script.NewScriptRaw([]byte{opcodes.OP_TRUE})),
		txout.NewTxOut(0, script.NewScriptRaw([]byte{opcodes.OP_RETURN})),
		txout.NewTxOut(value2, script.NewScriptRaw([]byte{opcodes.OP_TRUE})),
	}
	AddCoins(cache, txid, outs, 100, true, false)
	assert.True(t, cache.HaveCoin(outpoint.NewOutPoint(txid, 0)))
	assert.False(t, cache.HaveCoin(outpoint.NewOutPoint(txid, 1)))
	coin := cache.AccessCoin(outpoint.NewOutPoint(txid, 2))
	assert.Equal(t, value2, coin.GetAmount())
	assert.Equal(t, int32(100), coin.GetHeight())
	assert.True(t, coin.IsCoinBase())

	// Coinbase outputs may be added again.
	assert.NotPanics(t, func() { AddCoins(cache, txid, outs, 101, true, false) })
	assert.Panics(t, func() { AddCoins(cache, txid, outs, 102, false, false) })
	assert.NotPanics(t, func() { AddCoins(cache, txid, outs, 103, false, true) })
	assert.Equal(t, int32(103), cache.AccessCoin(outpoint.NewOutPoint(txid, 0)).GetHeight())
}

func TestAccessByTxid(t *testing.T) {
	root := newCoinsViewTest()
	txid := util.Hash{12}
	root.coins[*outpoint.NewOutPoint(txid, 4)] = *newTestCoin(value3, []byte{opcodes.OP_TRUE}, 1, false)

	cache := NewCoinsCache(root)
	coin := AccessByTxid(cache, &txid)
	assert.Equal(t, value3, coin.GetAmount())
	assert.Equal(t, 1, cache.GetCacheSize())

	cache.SpendCoin(outpoint.NewOutPoint(txid, 4))
	root.coins = map[outpoint.OutPoint]Coin{
		*outpoint.NewOutPoint(txid, 7): *newTestCoin(value1, []byte{opcodes.OP_TRUE}, 1, false),
	}
	assert.Equal(t, value1, AccessByTxid(cache, &txid).GetAmount())
}
