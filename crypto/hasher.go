// Copyright 2024 The SuperGenius Authors
// This file is part of the sgnode-go library.
//
// Licensed under the GNU Lesser General Public License, Version 3.

// Package crypto implements C1 Hasher: the deterministic digest primitives
// used throughout the trie and block-tree layers. Hashing and signature
// *primitives* are nominally external collaborators per spec.md §1, but a
// concrete implementation is still needed to make the rest of the tree
// testable; it is built entirely on the teacher corpus's own crypto
// dependency, golang.org/x/crypto, plus cespare/xxhash/v2 for the
// Twox family (the corpus does not vendor a literal Twox implementation,
// so xxhash - a fast non-cryptographic hash already required indirectly by
// the teacher's go.mod - stands in for it).
package crypto

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"

	"github.com/GeniusVentures/sgnode-go/common"
)

// Blake2b256 is the canonical block/trie digest used throughout this repo
// (block header hashing, empty-trie root, Merkle values ≥32 bytes).
func Blake2b256(data []byte) common.Hash256 {
	h := blake2b.Sum256(data)
	return common.Hash256(h)
}

// Blake2b128 returns the low-cost 128-bit Blake2b digest.
func Blake2b128(data []byte) common.Hash128 {
	h, err := blake2b.New(16, nil)
	if err != nil {
		panic("crypto: blake2b-128 init: " + err.Error())
	}
	h.Write(data)
	var out common.Hash128
	copy(out[:], h.Sum(nil))
	return out
}

// Blake2b64 returns a 64-bit Blake2b digest.
func Blake2b64(data []byte) common.Hash64 {
	h, err := blake2b.New(8, nil)
	if err != nil {
		panic("crypto: blake2b-64 init: " + err.Error())
	}
	h.Write(data)
	var out common.Hash64
	copy(out[:], h.Sum(nil))
	return out
}

// Keccak256 is used where the scheduler/digest wire format calls for it.
func Keccak256(data []byte) common.Hash256 {
	h := sha3.NewLegacyKeccak256()
	h.Write(data)
	var out common.Hash256
	copy(out[:], h.Sum(nil))
	return out
}

// Sha256 is the plain single-round SHA2-256 digest.
func Sha256(data []byte) common.Hash256 {
	return common.Hash256(sha256.Sum256(data))
}

// Sha256d is Bitcoin's double-SHA-256 convention: sha256(sha256(data)).
// txmanager uses it for transaction ids (the UTXO TxidHash), matching the
// secp256k1/btcec ecosystem the account package's keys come from.
func Sha256d(data []byte) common.Hash256 {
	first := sha256.Sum256(data)
	second := sha256.Sum256(first[:])
	return common.Hash256(second)
}

// Twox64/128/256 apply xxhash repeatedly to fill the requested width, the
// same "concatenate independent rounds" trick Substrate's twox_128 uses over
// xxhash64.
func Twox64(data []byte) common.Hash64 {
	var out common.Hash64
	binary.LittleEndian.PutUint64(out[:], xxhash.Sum64(data))
	return out
}

func Twox128(data []byte) common.Hash128 {
	var out common.Hash128
	h := xxhash.New()
	for i := 0; i < 2; i++ {
		h.Reset()
		binary.Write(h, binary.LittleEndian, uint64(i))
		h.Write(data)
		binary.LittleEndian.PutUint64(out[i*8:], h.Sum64())
	}
	return out
}

func Twox256(data []byte) common.Hash256 {
	var out common.Hash256
	h := xxhash.New()
	for i := 0; i < 4; i++ {
		h.Reset()
		binary.Write(h, binary.LittleEndian, uint64(i))
		h.Write(data)
		binary.LittleEndian.PutUint64(out[i*8:], h.Sum64())
	}
	return out
}
