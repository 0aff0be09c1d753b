// Copyright 2024 The SuperGenius Authors
// This file is part of the sgnode-go library.
//
// Licensed under the GNU Lesser General Public License, Version 3.

package crypto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashFunctionsAreDeterministic(t *testing.T) {
	data := []byte("supergenius")
	require.Equal(t, Blake2b256(data), Blake2b256(data))
	require.Equal(t, Blake2b128(data), Blake2b128(data))
	require.Equal(t, Blake2b64(data), Blake2b64(data))
	require.Equal(t, Keccak256(data), Keccak256(data))
	require.Equal(t, Sha256(data), Sha256(data))
	require.Equal(t, Twox64(data), Twox64(data))
	require.Equal(t, Twox128(data), Twox128(data))
	require.Equal(t, Twox256(data), Twox256(data))
}

func TestDistinctAlgorithmsDisagree(t *testing.T) {
	data := []byte("supergenius")
	require.NotEqual(t, Blake2b256(data), Keccak256(data))
	require.NotEqual(t, Blake2b256(data), Sha256(data))
	require.NotEqual(t, Sha256(data), Sha256d(data))
}

func TestSha256dIsDoubleSha256(t *testing.T) {
	data := []byte("supergenius")
	first := Sha256(data)
	want := Sha256(first.Bytes())
	require.Equal(t, want, Sha256d(data))
}

func TestEmptyTrieRootSeed(t *testing.T) {
	// spec.md §3: the root of an empty trie has Merkle value hash256({0x00}).
	require.Equal(t, "0x03170a2e7597b7b7e3d84c05391d139a62b157e78786d8c082f29dcf4c111314", Blake2b256([]byte{0x00}).String())
}
