package outpoint

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/copernet/chainstate/util"
)

// OutPoint names one output of one transaction. It is a plain value and is
// used directly as a map key.
type OutPoint struct {
	Hash  util.Hash
	Index uint32
}

func NewOutPoint(hash util.Hash, index uint32) *OutPoint {
	return &OutPoint{
		Hash:  hash,
		Index: index,
	}
}

// Serialize writes the 36-byte network encoding.
func (outPoint *OutPoint) Serialize(w io.Writer) error {
	if _, err := w.Write(outPoint.Hash[:]); err != nil {
		return err
	}
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], outPoint.Index)
	_, err := w.Write(buf[:])
	return err
}

func (outPoint *OutPoint) Unserialize(r io.Reader) error {
	if _, err := io.ReadFull(r, outPoint.Hash[:]); err != nil {
		return err
	}
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return err
	}
	outPoint.Index = binary.LittleEndian.Uint32(buf[:])
	return nil
}

func (outPoint *OutPoint) SerializeSize() int {
	return util.Hash256Size + 4
}

// Less orders by transaction hash bytes, then by output index.
func (outPoint *OutPoint) Less(other *OutPoint) bool {
	if c := outPoint.Hash.Cmp(&other.Hash); c != 0 {
		return c < 0
	}
	return outPoint.Index < other.Index
}

func (outPoint *OutPoint) String() string {
	return fmt.Sprintf("OutPoint ( hash:%s index: %d)", outPoint.Hash.String(), outPoint.Index)
}

func (outPoint *OutPoint) IsNull() bool {
	if outPoint == nil {
		return true
	}
	return outPoint.Index == math.MaxUint32 && outPoint.Hash.IsNull()
}
