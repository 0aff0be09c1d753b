// Copyright 2024 The SuperGenius Authors
// This file is part of the sgnode-go library.
//
// Licensed under the GNU Lesser General Public License, Version 3.

// Package types holds the wire data model of spec.md §3: block headers,
// bodies, justifications, digests and authority lists.
package types

import (
	"bytes"

	"github.com/GeniusVentures/sgnode-go/codec"
	"github.com/GeniusVentures/sgnode-go/common"
	"github.com/GeniusVentures/sgnode-go/errkind"
)

// DigestKind distinguishes the digest-item sum type recovered from
// original_source/ (the distilled spec.md treats Digest as opaque; the
// scheduler and changes-tracker both need to tell kinds apart).
type DigestKind uint8

const (
	DigestOther DigestKind = iota
	DigestStorageChange
	DigestVerification
)

// DigestItem is one entry of a header's digest list.
type DigestItem struct {
	Kind DigestKind
	Data []byte
}

// Header is spec.md §3's BlockHeader.
type Header struct {
	ParentHash     common.Hash256
	Number         uint64
	StateRoot      common.Hash256
	ExtrinsicsRoot common.Hash256
	Digest         []DigestItem
}

// Encode scale-encodes the header: number uses a little-endian variable
// length integer, everything else is fixed-width or length-prefixed.
func (h *Header) Encode() []byte {
	var buf bytes.Buffer
	buf.Write(h.ParentHash.Bytes())
	buf.Write(codec.EncodeUvarint(h.Number))
	buf.Write(h.StateRoot.Bytes())
	buf.Write(h.ExtrinsicsRoot.Bytes())
	buf.Write(codec.EncodeUvarint(uint64(len(h.Digest))))
	for _, d := range h.Digest {
		buf.WriteByte(byte(d.Kind))
		buf.Write(codec.EncodeCompactBytes(d.Data))
	}
	return buf.Bytes()
}

// Decode is the inverse of Encode.
func DecodeHeader(data []byte) (*Header, error) {
	h := &Header{}
	off := 0
	if len(data) < off+common.HashLength {
		return nil, errkind.New(errkind.Corruption, errkind.ErrInputTooSmall)
	}
	copy(h.ParentHash[:], data[off:off+common.HashLength])
	off += common.HashLength
	n, l, err := codec.DecodeUvarint(data[off:])
	if err != nil {
		return nil, err
	}
	h.Number = n
	off += l
	if len(data) < off+2*common.HashLength {
		return nil, errkind.New(errkind.Corruption, errkind.ErrInputTooSmall)
	}
	copy(h.StateRoot[:], data[off:off+common.HashLength])
	off += common.HashLength
	copy(h.ExtrinsicsRoot[:], data[off:off+common.HashLength])
	off += common.HashLength
	count, l, err := codec.DecodeUvarint(data[off:])
	if err != nil {
		return nil, err
	}
	off += l
	for i := uint64(0); i < count; i++ {
		if off >= len(data) {
			return nil, errkind.New(errkind.Corruption, errkind.ErrInputTooSmall)
		}
		kind := DigestKind(data[off])
		off++
		payload, consumed, err := codec.DecodeCompactBytes(data[off:])
		if err != nil {
			return nil, err
		}
		off += consumed
		h.Digest = append(h.Digest, DigestItem{Kind: kind, Data: append([]byte(nil), payload...)})
	}
	return h, nil
}

// Hash computes the block hash: Blake2b-256 over the full header encoding.
func (h *Header) Hash() common.Hash256 {
	return codec.Hash256(h.Encode())
}
