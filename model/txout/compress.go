package txout

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/copernet/chainstate/model/opcodes"
	"github.com/copernet/chainstate/model/script"
	"github.com/copernet/chainstate/util"
	"github.com/copernet/chainstate/util/amount"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

const (
	numSpecialScripts = 6
)

var ErrCompress = errors.New("nil TxoutCompressor receiver")

// CompressAmount maps an amount to a smaller integer by stripping trailing
// decimal zeros, so round values serialize in few VARINT bytes.
func CompressAmount(amt amount.Amount) uint64 {
	n := uint64(amt)
	if n == 0 {
		return 0
	}
	e := uint64(0)
	for n%10 == 0 && e < 9 {
		n /= 10
		e++
	}
	if e < 9 {
		d := n % 10
		if d < 1 || d > 9 {
			panic("CompressAmount: d should in range [1,9]")
		}
		n /= 10
		return 1 + (n*9+d-1)*10 + e
	}
	return 1 + (n-1)*10 + 9
}

func DecompressAmount(x uint64) amount.Amount {
	if x == 0 {
		return 0
	}
	x--
	e := x % 10
	x /= 10
	n := uint64(0)
	if e < 9 {
		d := (x % 9) + 1
		x /= 9
		n = x*10 + d
	} else {
		n = x + 1
	}
	for e != 0 {
		n *= 10
		e--
	}
	return amount.Amount(n)
}

func isToKeyID(bs []byte) []byte {
	if len(bs) == 25 && bs[0] == opcodes.OP_DUP && bs[1] == opcodes.OP_HASH160 &&
		bs[2] == 20 && bs[23] == opcodes.OP_EQUALVERIFY && bs[24] == opcodes.OP_CHECKSIG {
		return bs[3:23]
	}
	return nil
}

func isToScriptID(bs []byte) []byte {
	if len(bs) == 23 && bs[0] == opcodes.OP_HASH160 &&
		bs[1] == 20 && bs[22] == opcodes.OP_EQUAL {
		return bs[2:22]
	}
	return nil
}

func isToPubKey(bs []byte) []byte {
	if len(bs) == 35 && bs[0] == 33 && bs[34] == opcodes.OP_CHECKSIG &&
		(bs[1] == 0x02 || bs[1] == 0x03) {
		return bs[1:34]
	}
	if len(bs) == 67 && bs[0] == 65 && bs[66] == opcodes.OP_CHECKSIG &&
		bs[1] == 0x04 {
		if _, err := secp256k1.ParsePubKey(bs[1:66]); err != nil {
			return nil
		}
		return bs[1:66]
	}
	return nil
}

// CompressScript returns the special encoding of the six recognised
// templates, or nil when the script has to be stored verbatim.
//   0x00 + 20 bytes: pay to public key hash
//   0x01 + 20 bytes: pay to script hash
//   0x02/0x03 + 32 bytes: pay to compressed public key
//   0x04/0x05 + 32 bytes: pay to uncompressed public key, y parity in the tag
func CompressScript(s *script.Script) []byte {
	bs := s.GetData()
	if keyID := isToKeyID(bs); keyID != nil {
		out := make([]byte, 21)
		out[0] = 0x00
		copy(out[1:], keyID)
		return out
	}
	if scriptID := isToScriptID(bs); scriptID != nil {
		out := make([]byte, 21)
		out[0] = 0x01
		copy(out[1:], scriptID)
		return out
	}
	if pubKey := isToPubKey(bs); pubKey != nil {
		out := make([]byte, 33)
		copy(out[1:], pubKey[1:33])
		if pubKey[0] == 0x02 || pubKey[0] == 0x03 {
			out[0] = pubKey[0]
			return out
		}
		out[0] = 0x04 | (pubKey[64] & 0x01)
		return out
	}
	return nil
}

func getSpecialSize(nSize uint64) int {
	if nSize == 0 || nSize == 1 {
		return 20
	}
	if nSize >= 2 && nSize <= 5 {
		return 32
	}
	return 0
}

func DecompressScript(nSize uint64, in []byte) (*script.Script, error) {
	if len(in) < getSpecialSize(nSize) {
		return nil, fmt.Errorf("special script %d needs %d bytes, got %d", nSize, getSpecialSize(nSize), len(in))
	}
	var bs []byte
	switch nSize {
	case 0x00:
		bs = make([]byte, 25)
		bs[0] = opcodes.OP_DUP
		bs[1] = opcodes.OP_HASH160
		bs[2] = 20
		copy(bs[3:], in[:20])
		bs[23] = opcodes.OP_EQUALVERIFY
		bs[24] = opcodes.OP_CHECKSIG
	case 0x01:
		bs = make([]byte, 23)
		bs[0] = opcodes.OP_HASH160
		bs[1] = 20
		copy(bs[2:], in[:20])
		bs[22] = opcodes.OP_EQUAL
	case 0x02, 0x03:
		bs = make([]byte, 35)
		bs[0] = 33
		bs[1] = byte(nSize)
		copy(bs[2:], in[:32])
		bs[34] = opcodes.OP_CHECKSIG
	case 0x04, 0x05:
		compressed := make([]byte, 33)
		compressed[0] = byte(nSize - 2)
		copy(compressed[1:], in[:32])
		pubKey, err := secp256k1.ParsePubKey(compressed)
		if err != nil {
			return nil, err
		}
		bs = make([]byte, 67)
		bs[0] = 65
		copy(bs[1:], pubKey.SerializeUncompressed())
		bs[66] = opcodes.OP_CHECKSIG
	default:
		return nil, fmt.Errorf("unknown special script %d", nSize)
	}
	return script.NewScriptRaw(bs), nil
}

func serializeScript(w io.Writer, s *script.Script) error {
	if bs := CompressScript(s); bs != nil {
		_, err := w.Write(bs)
		return err
	}
	if err := util.WriteVarLenInt(w, uint64(s.Size()+numSpecialScripts)); err != nil {
		return err
	}
	_, err := w.Write(s.GetData())
	return err
}

func unserializeScript(r io.Reader) (*script.Script, error) {
	nSize, err := util.ReadVarLenInt(r)
	if err != nil {
		return nil, err
	}
	if nSize < numSpecialScripts {
		vch := make([]byte, getSpecialSize(nSize))
		if _, err := io.ReadFull(r, vch); err != nil {
			return nil, err
		}
		return DecompressScript(nSize, vch)
	}
	nSize -= numSpecialScripts
	if nSize > script.MaxScriptSize {
		// Oversized scripts are unspendable; keep a one-byte stand-in and
		// skip the payload without buffering it.
		if nSize > math.MaxInt64 {
			return nil, fmt.Errorf("script size %d out of range", nSize)
		}
		if _, err := io.CopyN(io.Discard, r, int64(nSize)); err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return nil, err
		}
		return script.NewScriptRaw([]byte{opcodes.OP_RETURN}), nil
	}
	tmp := make([]byte, nSize)
	if _, err := io.ReadFull(r, tmp); err != nil {
		return nil, err
	}
	return script.NewScriptRaw(tmp), nil
}

// TxoutCompressor reads and writes an output as VARINT(CompressAmount(value))
// followed by the compressed script.
type TxoutCompressor struct {
	txout *TxOut
}

func NewTxoutCompressor(txout *TxOut) *TxoutCompressor {
	if txout == nil {
		return nil
	}
	return &TxoutCompressor{txout: txout}
}

func (tc *TxoutCompressor) Serialize(w io.Writer) error {
	if tc == nil {
		return ErrCompress
	}
	if err := util.WriteVarLenInt(w, CompressAmount(tc.txout.value)); err != nil {
		return err
	}
	return serializeScript(w, tc.txout.scriptPubKey)
}

func (tc *TxoutCompressor) Unserialize(r io.Reader) error {
	if tc == nil {
		return ErrCompress
	}
	amt, err := util.ReadVarLenInt(r)
	if err != nil {
		return err
	}
	s, err := unserializeScript(r)
	if err != nil {
		return err
	}
	tc.txout.value = DecompressAmount(amt)
	tc.txout.scriptPubKey = s
	return nil
}
