package util

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

var errVarLenIntTooLarge = errors.New("ReadVarLenInt: size too large")

// WriteVarLenInt writes n in the MSB base-128 encoding used by the
// chainstate database. Every continuation byte carries an implicit +1, so
// each value has exactly one encoding.
func WriteVarLenInt(w io.Writer, n uint64) error {
	var tmp [10]byte
	l := 0
	for {
		mask := byte(0)
		if l > 0 {
			mask = 0x80
		}
		tmp[l] = byte(n&0x7f) | mask
		if n <= 0x7f {
			break
		}
		n = (n >> 7) - 1
		l++
	}
	buf := make([]byte, 0, l+1)
	for i := l; i >= 0; i-- {
		buf = append(buf, tmp[i])
	}
	_, err := w.Write(buf)
	return err
}

func ReadVarLenInt(r io.Reader) (uint64, error) {
	n := uint64(0)
	var buf [1]byte
	for {
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return 0, err
		}
		if n > math.MaxUint64>>7 {
			return 0, errVarLenIntTooLarge
		}
		n = (n << 7) | uint64(buf[0]&0x7f)
		if buf[0]&0x80 == 0 {
			return n, nil
		}
		if n == math.MaxUint64 {
			return 0, errVarLenIntTooLarge
		}
		n++
	}
}

func VarLenIntSize(n uint64) int {
	size := 0
	for {
		size++
		if n <= 0x7f {
			break
		}
		n = (n >> 7) - 1
	}
	return size
}

// WriteVarInt writes val as a compact size: one byte below 0xfd, otherwise
// a marker byte followed by a little-endian integer.
func WriteVarInt(w io.Writer, val uint64) error {
	var buf []byte
	switch {
	case val < 0xfd:
		buf = []byte{byte(val)}
	case val <= math.MaxUint16:
		buf = make([]byte, 3)
		buf[0] = 0xfd
		binary.LittleEndian.PutUint16(buf[1:], uint16(val))
	case val <= math.MaxUint32:
		buf = make([]byte, 5)
		buf[0] = 0xfe
		binary.LittleEndian.PutUint32(buf[1:], uint32(val))
	default:
		buf = make([]byte, 9)
		buf[0] = 0xff
		binary.LittleEndian.PutUint64(buf[1:], val)
	}
	_, err := w.Write(buf)
	return err
}

func ReadVarInt(r io.Reader) (uint64, error) {
	var buf [9]byte
	if _, err := io.ReadFull(r, buf[:1]); err != nil {
		return 0, err
	}
	var val, min uint64
	switch buf[0] {
	case 0xff:
		if _, err := io.ReadFull(r, buf[1:9]); err != nil {
			return 0, err
		}
		val, min = binary.LittleEndian.Uint64(buf[1:9]), 0x100000000
	case 0xfe:
		if _, err := io.ReadFull(r, buf[1:5]); err != nil {
			return 0, err
		}
		val, min = uint64(binary.LittleEndian.Uint32(buf[1:5])), 0x10000
	case 0xfd:
		if _, err := io.ReadFull(r, buf[1:3]); err != nil {
			return 0, err
		}
		val, min = uint64(binary.LittleEndian.Uint16(buf[1:3])), 0xfd
	default:
		return uint64(buf[0]), nil
	}
	if val < min {
		return 0, fmt.Errorf("non-canonical compact size %x, must encode a value >= %x", val, min)
	}
	return val, nil
}

func VarIntSerializeSize(val uint64) int {
	switch {
	case val < 0xfd:
		return 1
	case val <= math.MaxUint16:
		return 3
	case val <= math.MaxUint32:
		return 5
	}
	return 9
}
