package util

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
)

const (
	Hash256Size       = 32
	MaxHashStringSize = Hash256Size * 2
)

// Hash is a 256-bit digest stored in internal (little-endian) byte order.
type Hash [Hash256Size]byte

var HashZero = Hash{}

// String returns the hash as the reversed hex string used by block explorers.
func (hash Hash) String() string {
	bytes := hash.GetCloneBytes()
	for i := 0; i < Hash256Size/2; i++ {
		bytes[i], bytes[Hash256Size-1-i] = bytes[Hash256Size-1-i], bytes[i]
	}
	return hex.EncodeToString(bytes)
}

func (hash *Hash) Serialize(w io.Writer) (int, error) {
	return w.Write(hash[:])
}

func (hash *Hash) Unserialize(r io.Reader) (int, error) {
	return io.ReadFull(r, hash[:])
}

func (hash *Hash) GetCloneBytes() []byte {
	bytes := make([]byte, Hash256Size)
	copy(bytes, hash[:])
	return bytes
}

func (hash *Hash) SetBytes(bs []byte) error {
	if len(bs) != Hash256Size {
		return fmt.Errorf("invalid hash length of %v, want %v", len(bs), Hash256Size)
	}
	copy(hash[:], bs)
	return nil
}

// Cmp orders hashes by their raw bytes, matching the on-disk key order.
func (hash *Hash) Cmp(other *Hash) int {
	return bytes.Compare(hash[:], other[:])
}

func (hash *Hash) IsEqual(target *Hash) bool {
	if hash == nil && target == nil {
		return true
	}
	if hash == nil || target == nil {
		return false
	}
	return *hash == *target
}

func (hash Hash) IsNull() bool {
	return hash == HashZero
}

// HashFromString parses a reversed hex string as produced by String. Short
// input is zero-padded on the most significant side.
func HashFromString(hashStr string) (*Hash, error) {
	if len(hashStr) > MaxHashStringSize {
		return nil, fmt.Errorf("max hash string length is %v bytes", MaxHashStringSize)
	}
	if len(hashStr)%2 != 0 {
		hashStr = "0" + hashStr
	}
	decoded, err := hex.DecodeString(hashStr)
	if err != nil {
		return nil, err
	}
	hash := new(Hash)
	for i, b := range decoded {
		hash[len(decoded)-1-i] = b
	}
	return hash, nil
}
