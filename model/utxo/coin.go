package utxo

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/copernet/chainstate/model/script"
	"github.com/copernet/chainstate/model/txout"
	"github.com/copernet/chainstate/util"
	"github.com/copernet/chainstate/util/amount"
)

var errSerializeSpent = errors.New("cannot serialize a spent coin")

// Coin is one unspent output together with the height and coinbase flag of
// the transaction that created it. A coin whose output is null is spent.
type Coin struct {
	txOut      txout.TxOut
	height     int32
	isCoinBase bool
}

func NewCoin(out *txout.TxOut, height int32, isCoinBase bool) *Coin {
	return &Coin{
		txOut:      *out,
		height:     height,
		isCoinBase: isCoinBase,
	}
}

// NewEmptyCoin returns a spent coin.
func NewEmptyCoin() *Coin {
	coin := &Coin{}
	coin.txOut.SetNull()
	return coin
}

func (coin *Coin) GetHeight() int32 {
	return coin.height
}

func (coin *Coin) IsCoinBase() bool {
	return coin.isCoinBase
}

func (coin *Coin) IsSpent() bool {
	return coin.txOut.IsNull()
}

func (coin *Coin) Clear() {
	coin.txOut.SetNull()
	coin.height = 0
	coin.isCoinBase = false
}

func (coin *Coin) GetTxOut() txout.TxOut {
	return coin.txOut
}

func (coin *Coin) GetScriptPubKey() *script.Script {
	return coin.txOut.GetScriptPubKey()
}

func (coin *Coin) GetAmount() amount.Amount {
	return coin.txOut.GetValue()
}

// DynamicMemoryUsage counts the heap bytes owned by the coin beyond its
// fixed-size struct, which is the script payload.
func (coin *Coin) DynamicMemoryUsage() int64 {
	return int64(coin.txOut.GetScriptPubKey().Size())
}

func (coin *Coin) IsEqual(other *Coin) bool {
	if coin.IsSpent() || other.IsSpent() {
		return coin.IsSpent() == other.IsSpent()
	}
	return coin.height == other.height && coin.isCoinBase == other.isCoinBase &&
		coin.txOut.IsEqual(&other.txOut)
}

// Serialize writes VARINT(height*2 + coinbase) followed by the compressed
// output.
func (coin *Coin) Serialize(w io.Writer) error {
	if coin.IsSpent() {
		return errSerializeSpent
	}
	code := uint64(uint32(coin.height)) << 1
	if coin.isCoinBase {
		code |= 1
	}
	if err := util.WriteVarLenInt(w, code); err != nil {
		return err
	}
	return txout.NewTxoutCompressor(&coin.txOut).Serialize(w)
}

func (coin *Coin) Unserialize(r io.Reader) error {
	code, err := util.ReadVarLenInt(r)
	if err != nil {
		return err
	}
	if code > math.MaxUint32 {
		return fmt.Errorf("coin height code %d out of range", code)
	}
	var out txout.TxOut
	if err := txout.NewTxoutCompressor(&out).Unserialize(r); err != nil {
		return err
	}
	coin.height = int32(code >> 1)
	coin.isCoinBase = code&1 == 1
	coin.txOut = out
	return nil
}

func (coin *Coin) String() string {
	if coin.IsSpent() {
		return "Coin(spent)"
	}
	return fmt.Sprintf("Coin(height:%d coinbase:%v %s)", coin.height, coin.isCoinBase, coin.txOut.String())
}
