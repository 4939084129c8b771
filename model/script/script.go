package script

import (
	"encoding/hex"

	"github.com/copernet/chainstate/model/opcodes"
)

const (
	MaxScriptSize = 10000
)

// Script is an immutable output script. Coins share Script values freely,
// so the backing bytes must never be modified after construction.
type Script struct {
	data []byte
}

func NewEmptyScript() *Script {
	return &Script{}
}

func NewScriptRaw(bytes []byte) *Script {
	newBytes := make([]byte, len(bytes))
	copy(newBytes, bytes)
	return &Script{data: newBytes}
}

func (s *Script) GetData() []byte {
	if s == nil {
		return nil
	}
	return s.data
}

func (s *Script) Size() int {
	if s == nil {
		return 0
	}
	return len(s.data)
}

// IsUnspendable reports whether the script can provably never be spent, in
// which case outputs paying to it are not tracked in the UTXO set.
func (s *Script) IsUnspendable() bool {
	return (s.Size() > 0 && s.data[0] == opcodes.OP_RETURN) || s.Size() > MaxScriptSize
}

func (s *Script) IsEqual(other *Script) bool {
	return string(s.GetData()) == string(other.GetData())
}

func (s *Script) String() string {
	return hex.EncodeToString(s.GetData())
}
