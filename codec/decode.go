// Copyright 2024 The SuperGenius Authors
// This file is part of the sgnode-go library.
//
// Licensed under the GNU Lesser General Public License, Version 3.

package codec

import (
	"encoding/binary"

	"github.com/GeniusVentures/sgnode-go/errkind"
)

// Decode is the inverse of Encode. Branch children always come back as
// *Dummy carrying their stored Merkle value, so a caller can lazily
// materialize them through a TrieSerializer child-loader.
func Decode(data []byte) (Node, error) {
	if len(data) == 0 {
		return nil, errkind.New(errkind.Corruption, errkind.ErrInputTooSmall)
	}
	typeBits := data[0] >> 6
	lenField := data[0] & partialLenMask
	off := 1
	keyLen := int(lenField)
	if lenField == partialLenOverflow {
		keyLen = partialLenOverflow
		for {
			if off >= len(data) {
				return nil, errkind.New(errkind.Corruption, errkind.ErrInputTooSmall)
			}
			b := data[off]
			off++
			keyLen += int(b)
			if b != partialLenContinue {
				break
			}
		}
	}
	keyBytes := (keyLen + 1) / 2
	if off+keyBytes > len(data) {
		return nil, errkind.New(errkind.Corruption, errkind.ErrInputTooSmall)
	}
	nibbles := unpackNibbles(data[off:off+keyBytes], keyLen)
	off += keyBytes

	switch typeBits {
	case typeLeaf:
		val, consumed, err := DecodeCompactBytes(data[off:])
		if err != nil {
			return nil, err
		}
		off += consumed
		if len(val) == 0 {
			return nil, errkind.New(errkind.Corruption, errkind.ErrNoNodeValue)
		}
		v := make([]byte, len(val))
		copy(v, val)
		return &Leaf{Key: nibbles, Value: v}, nil

	case typeBranchNoValue, typeBranchWithValue:
		if off+2 > len(data) {
			return nil, errkind.New(errkind.Corruption, errkind.ErrInputTooSmall)
		}
		bitmap := binary.LittleEndian.Uint16(data[off : off+2])
		off += 2
		var value []byte
		if typeBits == typeBranchWithValue {
			val, consumed, err := DecodeCompactBytes(data[off:])
			if err != nil {
				return nil, err
			}
			off += consumed
			value = append([]byte(nil), val...)
		}
		var children [16]Node
		for i := 0; i < 16; i++ {
			if bitmap&(1<<uint(i)) == 0 {
				continue
			}
			mv, consumed, err := DecodeCompactBytes(data[off:])
			if err != nil {
				return nil, err
			}
			off += consumed
			dbkey := make([]byte, len(mv))
			copy(dbkey, mv)
			children[i] = &Dummy{DBKey: dbkey}
		}
		if typeBits == typeBranchWithValue {
			return &BranchWithValue{Key: nibbles, Value: value, Children: children}, nil
		}
		return &BranchEmptyValue{Key: nibbles, Children: children}, nil

	default:
		return nil, errkind.New(errkind.Corruption, errkind.ErrUnknownNodeType)
	}
}

// unpackNibbles is the exact inverse of common.NibblesToKey: for an odd
// count the first nibble sits alone in the low half of packed[0], and every
// following pair of nibbles occupies one byte, high nibble first.
func unpackNibbles(packed []byte, count int) []byte {
	out := make([]byte, count)
	idx, pi := 0, 0
	if count%2 == 1 {
		out[0] = packed[0] & 0x0F
		idx, pi = 1, 1
	}
	for idx < count {
		b := packed[pi]
		out[idx] = b >> 4
		idx++
		if idx < count {
			out[idx] = b & 0x0F
			idx++
		}
		pi++
	}
	return out
}
