// Copyright 2024 The SuperGenius Authors
// This file is part of the sgnode-go library.
//
// Licensed under the GNU Lesser General Public License, Version 3.

// Package gossip implements spec.md §6's general wire protocol frame:
// {type: u8, data: bytes}, separate from finality's vote-specific gossip
// (package finality already owns GRANDPA's Gossiper).
package gossip

import (
	"github.com/GeniusVentures/sgnode-go/codec"
	"github.com/GeniusVentures/sgnode-go/errkind"
)

// Type is one of §6's frame kinds.
type Type uint8

const (
	TypeStatus        Type = 0
	TypeBlockRequest  Type = 1
	TypeBlockAnnounce Type = 2
	TypeTransactions  Type = 3
	TypeVerification  Type = 4
	TypeUnknown       Type = 99
)

// Frame is one gossip message: a type tag plus an opaque, type-specific
// payload decoded by the relevant consumer (block sync, txpool, ...).
type Frame struct {
	Type Type
	Data []byte
}

// Encode writes Frame as {type: u8, data: compact-bytes}.
func (f Frame) Encode() []byte {
	out := make([]byte, 0, 1+len(f.Data)+9)
	out = append(out, byte(f.Type))
	out = append(out, codec.EncodeCompactBytes(f.Data)...)
	return out
}

// DecodeFrame parses a Frame from data, mapping any tag it does not
// recognize to TypeUnknown rather than erroring, so forward-compatible
// peers degrade gracefully instead of disconnecting.
func DecodeFrame(data []byte) (Frame, error) {
	if len(data) < 1 {
		return Frame{}, errkind.New(errkind.Corruption, errkind.ErrInputTooSmall)
	}
	raw, _, err := codec.DecodeCompactBytes(data[1:])
	if err != nil {
		return Frame{}, err
	}
	t := Type(data[0])
	switch t {
	case TypeStatus, TypeBlockRequest, TypeBlockAnnounce, TypeTransactions, TypeVerification:
	default:
		t = TypeUnknown
	}
	return Frame{Type: t, Data: raw}, nil
}
