// Copyright 2024 The SuperGenius Authors
// This file is part of the sgnode-go library.
//
// Licensed under the GNU Lesser General Public License, Version 3.

package types

import "github.com/GeniusVentures/sgnode-go/common"

// Extrinsic is an opaque transaction buffer within a Body.
type Extrinsic []byte

// Body is spec.md §3's BlockBody: an ordered list of extrinsics.
type Body struct {
	Extrinsics []Extrinsic
}

// Justification is an opaque finality-proof buffer.
type Justification []byte

// BlockData is the composite sync-response structure of spec.md §3.
type BlockData struct {
	Hash          common.Hash256
	Header        *Header
	Body          *Body
	Receipt       []byte
	MessageQueue  []byte
	Justification Justification
}

// Authority is one voter in an AuthorityList.
type Authority struct {
	ID     [32]byte
	Weight uint64
}

// AuthorityList is an ordered, encoding-stable list of voters.
type AuthorityList []Authority

// Clone returns a deep copy, used whenever a scheduler node needs to mutate
// an inherited list (e.g. on-disabled) without perturbing ancestors.
func (l AuthorityList) Clone() AuthorityList {
	out := make(AuthorityList, len(l))
	copy(out, l)
	return out
}
