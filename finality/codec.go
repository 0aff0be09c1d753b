// Copyright 2024 The SuperGenius Authors
// This file is part of the sgnode-go library.
//
// Licensed under the GNU Lesser General Public License, Version 3.

package finality

import (
	"bytes"

	"github.com/GeniusVentures/sgnode-go/codec"
	"github.com/GeniusVentures/sgnode-go/common"
	"github.com/GeniusVentures/sgnode-go/errkind"
)

func encodeBlockInfo(buf *bytes.Buffer, b BlockInfo) {
	buf.Write(b.Hash.Bytes())
	buf.Write(codec.EncodeUvarint(b.Number))
}

func decodeBlockInfo(data []byte) (BlockInfo, int, error) {
	var b BlockInfo
	if len(data) < common.HashLength {
		return b, 0, errkind.New(errkind.Corruption, errkind.ErrInputTooSmall)
	}
	copy(b.Hash[:], data[:common.HashLength])
	off := common.HashLength
	n, l, err := codec.DecodeUvarint(data[off:])
	if err != nil {
		return b, 0, err
	}
	b.Number = n
	return b, off + l, nil
}

func encodeVote(v VoteMessage) []byte {
	var buf bytes.Buffer
	buf.WriteByte(0) // frame tag: vote
	buf.Write(codec.EncodeUvarint(v.Round))
	buf.Write(v.AuthorityID[:])
	buf.WriteByte(byte(v.Step))
	encodeBlockInfo(&buf, v.Block)
	buf.Write(codec.EncodeCompactBytes(v.Signature))
	return buf.Bytes()
}

func decodeVote(data []byte) (VoteMessage, error) {
	var v VoteMessage
	if len(data) < 1 {
		return v, errkind.New(errkind.Corruption, errkind.ErrInputTooSmall)
	}
	off := 1 // frame tag already consumed by caller
	round, l, err := codec.DecodeUvarint(data[off:])
	if err != nil {
		return v, err
	}
	v.Round = round
	off += l
	if len(data) < off+32+1 {
		return v, errkind.New(errkind.Corruption, errkind.ErrInputTooSmall)
	}
	copy(v.AuthorityID[:], data[off:off+32])
	off += 32
	v.Step = Step(data[off])
	off++
	block, consumed, err := decodeBlockInfo(data[off:])
	if err != nil {
		return v, err
	}
	v.Block = block
	off += consumed
	sig, _, err := codec.DecodeCompactBytes(data[off:])
	if err != nil {
		return v, err
	}
	v.Signature = append([]byte(nil), sig...)
	return v, nil
}

// DecodeFrame decodes a gossip frame into either a VoteMessage or a Fin,
// dispatching on the leading tag byte encodeVote/encodeFin write.
func DecodeFrame(data []byte) (vote *VoteMessage, fin *Fin, err error) {
	if len(data) < 1 {
		return nil, nil, errkind.New(errkind.Corruption, errkind.ErrInputTooSmall)
	}
	switch data[0] {
	case 0:
		v, err := decodeVote(data)
		if err != nil {
			return nil, nil, err
		}
		return &v, nil, nil
	case 1:
		f, err := decodeFin(data)
		if err != nil {
			return nil, nil, err
		}
		return nil, &f, nil
	default:
		return nil, nil, errkind.New(errkind.Corruption, errkind.ErrUnknownFrameType)
	}
}

func decodeFin(data []byte) (Fin, error) {
	var f Fin
	off := 1
	round, l, err := codec.DecodeUvarint(data[off:])
	if err != nil {
		return f, err
	}
	f.Round = round
	off += l
	block, consumed, err := decodeBlockInfo(data[off:])
	if err != nil {
		return f, err
	}
	f.Block = block
	off += consumed
	count, l, err := codec.DecodeUvarint(data[off:])
	if err != nil {
		return f, err
	}
	off += l
	for i := uint64(0); i < count; i++ {
		buf, consumed, err := codec.DecodeCompactBytes(data[off:])
		if err != nil {
			return f, err
		}
		off += consumed
		v, err := decodeVote(buf)
		if err != nil {
			return f, err
		}
		f.Justification = append(f.Justification, v)
	}
	return f, nil
}

func encodeFin(f Fin) []byte {
	var buf bytes.Buffer
	buf.WriteByte(1) // frame tag: fin
	buf.Write(codec.EncodeUvarint(f.Round))
	encodeBlockInfo(&buf, f.Block)
	buf.Write(codec.EncodeUvarint(uint64(len(f.Justification))))
	for _, v := range f.Justification {
		buf.Write(codec.EncodeCompactBytes(encodeVote(v)))
	}
	return buf.Bytes()
}
