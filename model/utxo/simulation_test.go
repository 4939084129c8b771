package utxo

import (
	"math/rand"
	"testing"

	"github.com/copernet/chainstate/model/opcodes"
	"github.com/copernet/chainstate/model/outpoint"
	"github.com/copernet/chainstate/model/script"
	"github.com/copernet/chainstate/model/txout"
	"github.com/copernet/chainstate/persist/db"
	"github.com/copernet/chainstate/util"
	"github.com/copernet/chainstate/util/amount"
	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	numSimulationIterations = 20000
	numSimulationTxids      = 300
	maxCacheStack           = 4
)

type cacheSimulation struct {
	t      *testing.T
	rng    *rand.Rand
	bottom *CoinsDB
	stack  []*CoinsCache
	result map[outpoint.OutPoint]Coin
	points []outpoint.OutPoint
	blocks int
}

func (sim *cacheSimulation) top() *CoinsCache {
	return sim.stack[len(sim.stack)-1]
}

func (sim *cacheSimulation) nextBlock() util.Hash {
	sim.blocks++
	var hash util.Hash
	sim.rng.Read(hash[:])
	return hash
}

func (sim *cacheSimulation) expected(point *outpoint.OutPoint) *Coin {
	coin, ok := sim.result[*point]
	if !ok {
		return NewEmptyCoin()
	}
	return &coin
}

// flush writes layer i down into the layer below it.
func (sim *cacheSimulation) flush(i int, sync bool) {
	layer := sim.stack[i]
	layer.SetBestBlock(sim.nextBlock())
	if sync {
		require.NoError(sim.t, layer.Sync())
	} else {
		require.NoError(sim.t, layer.Flush())
	}
}

func (sim *cacheSimulation) step() {
	point := &sim.points[sim.rng.Intn(len(sim.points))]
	want := sim.expected(point)

	top := sim.top()
	if point.Index == 0 && !want.IsSpent() && sim.rng.Intn(500) == 0 {
		got := AccessByTxid(top, &point.Hash)
		assert.True(sim.t, got.IsEqual(want), spew.Sdump(got, want))
	} else {
		got := top.AccessCoin(point)
		assert.True(sim.t, got.IsEqual(want), spew.Sdump(got, want))
	}

	if sim.rng.Intn(5) == 0 || want.IsSpent() {
		if want.IsSpent() && sim.rng.Intn(16) == 0 {
			data := make([]byte, 1+sim.rng.Intn(64))
			for i := range data {
				data[i] = opcodes.OP_RETURN
			}
			coin := NewCoin(txout.NewTxOut(amount.Amount(sim.rng.Int63n(int64(amount.MaxMoney))), script.NewScriptRaw(data)), 1, false)
			top.AddCoin(point, coin, sim.rng.Intn(2) == 0)
			return
		}
		coin := NewCoin(
			txout.NewTxOut(amount.Amount(sim.rng.Int63n(int64(amount.MaxMoney))), script.NewScriptRaw(make([]byte, sim.rng.Intn(64)))),
			int32(sim.rng.Intn(1000000)), sim.rng.Intn(2) == 0)
		top.AddCoin(point, coin, !want.IsSpent() || sim.rng.Intn(2) == 0)
		sim.result[*point] = *coin
		return
	}
	spent := top.SpendCoin(point)
	require.NotNil(sim.t, spent)
	assert.True(sim.t, spent.IsEqual(want))
	delete(sim.result, *point)
}

func (sim *cacheSimulation) verify() {
	top := sim.top()
	for i := range sim.points {
		point := &sim.points[i]
		want := sim.expected(point)
		assert.Equal(sim.t, !want.IsSpent(), top.HaveCoin(point))
		assert.True(sim.t, top.AccessCoin(point).IsEqual(want))
	}
	for _, layer := range sim.stack {
		require.NoError(sim.t, layer.SanityCheck())
	}
}

func TestCoinsCacheSimulation(t *testing.T) {
	coinsDB, _ := newTestCoinsDB(t, db.TypeMemDB, 1<<10)
	sim := &cacheSimulation{
		t:      t,
		rng:    rand.New(rand.NewSource(20170506)),
		bottom: coinsDB,
		result: make(map[outpoint.OutPoint]Coin),
	}
	for i := 0; i < numSimulationTxids; i++ {
		var txid util.Hash
		sim.rng.Read(txid[:])
		sim.points = append(sim.points, outpoint.OutPoint{Hash: txid, Index: 0}, outpoint.OutPoint{Hash: txid, Index: 1})
	}
	sim.stack = append(sim.stack, NewCoinsCache(coinsDB))

	uncached := false
	for i := 0; i < numSimulationIterations; i++ {
		sim.step()

		if sim.rng.Intn(10) == 0 {
			point := &sim.points[sim.rng.Intn(len(sim.points))]
			layer := sim.stack[sim.rng.Intn(len(sim.stack))]
			layer.Uncache(point)
			uncached = uncached || !layer.HaveCoinInCache(point)
		}

		if sim.rng.Intn(1000) == 1 || i == numSimulationIterations-1 {
			sim.verify()
		}

		// Flush or sync an intermediate layer.
		if sim.rng.Intn(100) == 0 && len(sim.stack) > 1 && sim.rng.Intn(2) == 0 {
			sim.flush(sim.rng.Intn(len(sim.stack)-1), sim.rng.Intn(2) == 0)
		}

		// Change the shape of the stack.
		if sim.rng.Intn(100) == 0 {
			if len(sim.stack) > 0 && sim.rng.Intn(2) == 0 {
				sim.flush(len(sim.stack)-1, false)
				sim.stack = sim.stack[:len(sim.stack)-1]
			}
			if len(sim.stack) == 0 || (len(sim.stack) < maxCacheStack && sim.rng.Intn(2) == 0) {
				var base CoinsView = sim.bottom
				if len(sim.stack) > 0 {
					base = sim.top()
				}
				sim.stack = append(sim.stack, NewCoinsCache(base))
			}
		}
	}
	assert.True(t, uncached)

	// Everything written down must match the reference set.
	for len(sim.stack) > 0 {
		sim.flush(len(sim.stack)-1, false)
		sim.stack = sim.stack[:len(sim.stack)-1]
	}
	assert.Nil(t, coinsDB.GetHeadBlocks())
	assert.False(t, coinsDB.GetBestBlock().IsNull())

	cursor, err := coinsDB.Cursor()
	require.NoError(t, err)
	defer cursor.Close()
	seen := 0
	for ; cursor.Valid(); cursor.Next() {
		point, err := cursor.GetKey()
		require.NoError(t, err)
		coin, err := cursor.GetVal()
		require.NoError(t, err)
		want, ok := sim.result[*point]
		require.True(t, ok, point.String())
		assert.True(t, coin.IsEqual(&want))
		seen++
	}
	assert.Equal(t, len(sim.result), seen)
}
