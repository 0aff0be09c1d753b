// Copyright 2024 The SuperGenius Authors
// This file is part of the sgnode-go library.
//
// Licensed under the GNU Lesser General Public License, Version 3.

package codec

import (
	"bytes"
	"encoding/binary"

	"github.com/GeniusVentures/sgnode-go/errkind"
)

// EncodeCompactBytes scale-encodes a length-prefixed byte buffer: a SCALE
// compact length (the length shifted left two bits with a 2-bit mode tag, in
// 1, 2 or 4 little-endian bytes, or a 0b11 tag byte followed by 8
// little-endian bytes for the largest lengths) followed by the raw bytes. This repo only ever needs the byte-buffer flavor of compact
// encoding (values, extrinsic-index lists), not arbitrary integers.
func EncodeCompactBytes(b []byte) []byte {
	var buf bytes.Buffer
	writeCompactLen(&buf, uint64(len(b)))
	buf.Write(b)
	return buf.Bytes()
}

// DecodeCompactBytes is the inverse of EncodeCompactBytes; it returns the
// decoded bytes and the number of input bytes consumed.
func DecodeCompactBytes(in []byte) ([]byte, int, error) {
	n, hdr, err := readCompactLen(in)
	if err != nil {
		return nil, 0, err
	}
	if len(in) < hdr+int(n) {
		return nil, 0, errkind.New(errkind.Corruption, errkind.ErrInputTooSmall)
	}
	return in[hdr : hdr+int(n)], hdr + int(n), nil
}

func writeCompactLen(buf *bytes.Buffer, n uint64) {
	switch {
	case n < 1<<6:
		buf.WriteByte(byte(n << 2))
	case n < 1<<14:
		var b [2]byte
		binary.LittleEndian.PutUint16(b[:], uint16(n<<2)|0b01)
		buf.Write(b[:])
	case n < 1<<30:
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], uint32(n<<2)|0b10)
		buf.Write(b[:])
	default:
		buf.WriteByte(0b11)
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], n)
		// only emit as many bytes as needed, scale big-ints are variable
		// width; we always use 8 for simplicity since task/extrinsic counts
		// never approach u64 range in practice.
		buf.Write(b[:])
	}
}

func readCompactLen(in []byte) (n uint64, hdrLen int, err error) {
	if len(in) == 0 {
		return 0, 0, errkind.New(errkind.Corruption, errkind.ErrInputTooSmall)
	}
	mode := in[0] & 0b11
	switch mode {
	case 0b00:
		return uint64(in[0] >> 2), 1, nil
	case 0b01:
		if len(in) < 2 {
			return 0, 0, errkind.New(errkind.Corruption, errkind.ErrInputTooSmall)
		}
		v := binary.LittleEndian.Uint16(in[:2])
		return uint64(v >> 2), 2, nil
	case 0b10:
		if len(in) < 4 {
			return 0, 0, errkind.New(errkind.Corruption, errkind.ErrInputTooSmall)
		}
		v := binary.LittleEndian.Uint32(in[:4])
		return uint64(v >> 2), 4, nil
	default:
		if len(in) < 9 {
			return 0, 0, errkind.New(errkind.Corruption, errkind.ErrInputTooSmall)
		}
		v := binary.LittleEndian.Uint64(in[1:9])
		return v, 9, nil
	}
}

// EncodeUvarint writes n as a little-endian variable-length integer, the
// encoding spec.md §3 mandates for BlockHeader.number.
func EncodeUvarint(n uint64) []byte {
	buf := make([]byte, binary.MaxVarintLen64)
	l := binary.PutUvarint(buf, n)
	return buf[:l]
}

// DecodeUvarint reads a little-endian varint and the bytes consumed.
func DecodeUvarint(in []byte) (uint64, int, error) {
	n, l := binary.Uvarint(in)
	if l <= 0 {
		return 0, 0, errkind.New(errkind.Corruption, errkind.ErrInputTooSmall)
	}
	return n, l, nil
}
