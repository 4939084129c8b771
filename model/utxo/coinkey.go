package utxo

import (
	"bytes"
	"errors"

	"github.com/copernet/chainstate/model/outpoint"
	"github.com/copernet/chainstate/persist/db"
	"github.com/copernet/chainstate/util"
)

var errBadCoinKey = errors.New("malformed coin key")

// CoinKey is the database key of a coin: 'C', the 32 txid bytes, then the
// output index as VARINT.
type CoinKey struct {
	outpoint *outpoint.OutPoint
}

func NewCoinKey(outPoint *outpoint.OutPoint) *CoinKey {
	return &CoinKey{outpoint: outPoint}
}

func (coinKey *CoinKey) GetSerKey() []byte {
	buf := bytes.NewBuffer(make([]byte, 0, 1+util.Hash256Size+5))
	buf.WriteByte(db.DbCoin)
	buf.Write(coinKey.outpoint.Hash[:])
	util.WriteVarLenInt(buf, uint64(coinKey.outpoint.Index))
	return buf.Bytes()
}

// ParseCoinKey decodes a key written by GetSerKey.
func ParseCoinKey(key []byte) (*outpoint.OutPoint, error) {
	if len(key) < 2+util.Hash256Size || key[0] != db.DbCoin {
		return nil, errBadCoinKey
	}
	op := new(outpoint.OutPoint)
	copy(op.Hash[:], key[1:1+util.Hash256Size])
	r := bytes.NewReader(key[1+util.Hash256Size:])
	index, err := util.ReadVarLenInt(r)
	if err != nil || r.Len() != 0 || index > 0xffffffff {
		return nil, errBadCoinKey
	}
	op.Index = uint32(index)
	return op, nil
}
