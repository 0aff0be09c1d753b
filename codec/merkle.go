// Copyright 2024 The SuperGenius Authors
// This file is part of the sgnode-go library.
//
// Licensed under the GNU Lesser General Public License, Version 3.

package codec

import (
	"github.com/GeniusVentures/sgnode-go/common"
	"github.com/GeniusVentures/sgnode-go/crypto"
)

// Hash256 is C2's hash256(bytes) -> H256: always the full Blake2b-256.
func Hash256(data []byte) common.Hash256 { return hash256Impl(data) }

func hash256Impl(data []byte) common.Hash256 { return crypto.Blake2b256(data) }

// MerkleValue returns data itself if it is shorter than 32 bytes, otherwise
// its Blake2b-256 digest, per spec.md §3/§4.1.
func MerkleValue(data []byte) []byte {
	if len(data) < common.HashLength {
		out := make([]byte, len(data))
		copy(out, data)
		return out
	}
	h := hash256Impl(data)
	return h.Bytes()
}
