package txout

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/copernet/chainstate/model/script"
	"github.com/copernet/chainstate/util"
	"github.com/copernet/chainstate/util/amount"
)

type TxOut struct {
	value        amount.Amount
	scriptPubKey *script.Script
}

func NewTxOut(value amount.Amount, scriptPubKey *script.Script) *TxOut {
	return &TxOut{
		value:        value,
		scriptPubKey: scriptPubKey,
	}
}

func (txOut *TxOut) GetValue() amount.Amount {
	return txOut.value
}

func (txOut *TxOut) GetScriptPubKey() *script.Script {
	return txOut.scriptPubKey
}

// IsNull reports whether the output is the spent placeholder.
func (txOut *TxOut) IsNull() bool {
	return txOut.value == -1
}

func (txOut *TxOut) SetNull() {
	txOut.value = -1
	txOut.scriptPubKey = nil
}

// Serialize writes the network encoding: an 8-byte little-endian value
// followed by the length-prefixed script.
func (txOut *TxOut) Serialize(w io.Writer) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(txOut.value))
	if _, err := w.Write(buf[:]); err != nil {
		return err
	}
	data := txOut.scriptPubKey.GetData()
	if err := util.WriteVarInt(w, uint64(len(data))); err != nil {
		return err
	}
	_, err := w.Write(data)
	return err
}

func (txOut *TxOut) SerializeSize() int {
	size := txOut.scriptPubKey.Size()
	return 8 + util.VarIntSerializeSize(uint64(size)) + size
}

func (txOut *TxOut) IsEqual(other *TxOut) bool {
	if txOut == nil || other == nil {
		return txOut == other
	}
	return txOut.value == other.value && txOut.scriptPubKey.IsEqual(other.scriptPubKey)
}

func (txOut *TxOut) String() string {
	return fmt.Sprintf("Value :%d Script:%s", txOut.value, txOut.scriptPubKey.String())
}
