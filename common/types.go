// Copyright 2024 The SuperGenius Authors
// This file is part of the sgnode-go library.
//
// Licensed under the GNU Lesser General Public License, Version 3.

// Package common holds the small value types shared across every package in
// the tree: hashes, hex helpers and nibble conversion. It deliberately knows
// nothing about tries, blocks or accounts.
package common

import (
	"encoding/hex"
	"fmt"
)

// HashLength is the size in bytes of the digests produced by crypto.Hasher.
const HashLength = 32

// Hash256 is a 32-byte Blake2b/Keccak-style digest.
type Hash256 [HashLength]byte

// BytesToHash left-pads b with zeros into a Hash256; if b is longer than
// HashLength only its last HashLength bytes are kept.
func BytesToHash(b []byte) Hash256 {
	var h Hash256
	if len(b) > HashLength {
		b = b[len(b)-HashLength:]
	}
	copy(h[HashLength-len(b):], b)
	return h
}

func (h Hash256) Bytes() []byte { return h[:] }

func (h Hash256) String() string { return "0x" + hex.EncodeToString(h[:]) }

func (h Hash256) IsZero() bool { return h == Hash256{} }

// Hash128 is a 16-byte digest, used by Blake2b-128/Twox-128.
type Hash128 [16]byte

func (h Hash128) Bytes() []byte   { return h[:] }
func (h Hash128) String() string { return "0x" + hex.EncodeToString(h[:]) }

// Hash64 is an 8-byte digest, used by Blake2b-64/Twox-64.
type Hash64 [8]byte

func (h Hash64) Bytes() []byte   { return h[:] }
func (h Hash64) String() string { return "0x" + hex.EncodeToString(h[:]) }

// HexToBytes decodes a 0x-prefixed or bare hex string.
func HexToBytes(s string) ([]byte, error) {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("common: invalid hex %q: %w", s, err)
	}
	return b, nil
}

// BytesToNibbles expands a byte slice into its big-endian nibble sequence,
// two nibbles (high half first) per input byte.
func BytesToNibbles(key []byte) []byte {
	nibbles := make([]byte, len(key)*2)
	for i, b := range key {
		nibbles[i*2] = b >> 4
		nibbles[i*2+1] = b & 0x0F
	}
	return nibbles
}

// NibblesToKey packs a nibble sequence back into bytes. If the sequence has
// odd length the first nibble occupies the low half of the first byte and
// oddFlag reports that fact, matching the packing rule of spec.md §3.
func NibblesToKey(nibbles []byte) (key []byte, oddFlag bool) {
	n := len(nibbles)
	oddFlag = n%2 == 1
	if !oddFlag {
		key = make([]byte, n/2)
		for i := 0; i < n/2; i++ {
			key[i] = nibbles[i*2]<<4 | nibbles[i*2+1]
		}
		return key, false
	}
	key = make([]byte, n/2+1)
	key[0] = nibbles[0]
	for i := 1; i <= n/2; i++ {
		hi := nibbles[2*i-1]
		var lo byte
		if 2*i < n {
			lo = nibbles[2*i]
		}
		key[i] = hi<<4 | lo
	}
	return key, true
}

// CommonPrefixLen returns the length of the longest shared prefix of a and b.
func CommonPrefixLen(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}
