// Copyright 2024 The SuperGenius Authors
// This file is part of the sgnode-go library.
//
// Licensed under the GNU Lesser General Public License, Version 3.

package codec

import (
	"bytes"
	"encoding/binary"

	"github.com/GeniusVentures/sgnode-go/common"
	"github.com/GeniusVentures/sgnode-go/errkind"
)

// header type bits occupy the top two bits of the first byte; the low six
// bits hold the partial-key length (or 63, signalling an extension).
const (
	typeLeaf             = 0b01
	typeBranchNoValue    = 0b10
	typeBranchWithValue  = 0b11
	partialLenMask       = 0b0011_1111
	partialLenOverflow   = 63
	partialLenContinue   = 0xFF
)

// maxNibbles is the §4.1 TooManyNibbles boundary: key length must fit a u16.
const maxNibbles = 1 << 16

// Encode serializes a node per spec.md §4.1. Dummy nodes encode as their
// stored Merkle value so branches round-trip lazily-loaded children.
func Encode(n Node) ([]byte, error) {
	if len(n.KeyNibbles()) >= maxNibbles {
		return nil, errkind.New(errkind.Corruption, errkind.ErrTooManyNibbles)
	}
	var buf bytes.Buffer
	switch v := n.(type) {
	case *Leaf:
		if len(v.Value) == 0 {
			return nil, errkind.New(errkind.Corruption, errkind.ErrNoNodeValue)
		}
		writeHeader(&buf, typeLeaf, v.Key)
		writePartialKey(&buf, v.Key)
		buf.Write(EncodeCompactBytes(v.Value))
	case *BranchEmptyValue:
		writeHeader(&buf, typeBranchNoValue, v.Key)
		writePartialKey(&buf, v.Key)
		writeBitmap(&buf, &v.Children)
		if err := writeChildren(&buf, &v.Children); err != nil {
			return nil, err
		}
	case *BranchWithValue:
		writeHeader(&buf, typeBranchWithValue, v.Key)
		writePartialKey(&buf, v.Key)
		writeBitmap(&buf, &v.Children)
		buf.Write(EncodeCompactBytes(v.Value))
		if err := writeChildren(&buf, &v.Children); err != nil {
			return nil, err
		}
	default:
		return nil, errkind.New(errkind.Corruption, errkind.ErrUnknownNodeType)
	}
	return buf.Bytes(), nil
}

func writeHeader(buf *bytes.Buffer, typeBits byte, key []byte) {
	l := len(key)
	if l < partialLenOverflow {
		buf.WriteByte(typeBits<<6 | byte(l))
		return
	}
	buf.WriteByte(typeBits<<6 | partialLenOverflow)
	rem := l - partialLenOverflow
	for rem >= 0xFF {
		buf.WriteByte(partialLenContinue)
		rem -= 0xFF
	}
	buf.WriteByte(byte(rem))
}

func writePartialKey(buf *bytes.Buffer, key []byte) {
	packed, _ := common.NibblesToKey(key)
	buf.Write(packed)
}

func writeBitmap(buf *bytes.Buffer, children *[16]Node) {
	var bitmap uint16
	for i, c := range children {
		if c != nil {
			bitmap |= 1 << uint(i)
		}
	}
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], bitmap)
	buf.Write(b[:])
}

func writeChildren(buf *bytes.Buffer, children *[16]Node) error {
	for _, c := range children {
		if c == nil {
			continue
		}
		mv, err := childMerkleValue(c)
		if err != nil {
			return err
		}
		buf.Write(EncodeCompactBytes(mv))
	}
	return nil
}

// childMerkleValue returns the Merkle value a child should be referenced by:
// a Dummy already carries it; a materialized node is re-encoded and hashed.
func childMerkleValue(c Node) ([]byte, error) {
	if d, ok := c.(*Dummy); ok {
		return d.DBKey, nil
	}
	enc, err := Encode(c)
	if err != nil {
		return nil, err
	}
	return MerkleValue(enc), nil
}
