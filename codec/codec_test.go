// Copyright 2024 The SuperGenius Authors
// This file is part of the sgnode-go library.
//
// Licensed under the GNU Lesser General Public License, Version 3.

package codec

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/GeniusVentures/sgnode-go/common"
)

func TestEncodeDecodeLeafRoundTrips(t *testing.T) {
	leaf := &Leaf{Key: []byte{1, 2, 3}, Value: []byte("hello")}
	enc, err := Encode(leaf)
	require.NoError(t, err)

	decoded, err := Decode(enc)
	require.NoError(t, err)
	got, ok := decoded.(*Leaf)
	require.True(t, ok)
	require.Equal(t, leaf.Key, got.Key)
	require.Equal(t, leaf.Value, got.Value)
}

func TestEncodeLeafWithoutValueErrors(t *testing.T) {
	_, err := Encode(&Leaf{Key: []byte{1}})
	require.Error(t, err)
}

func TestEncodeDecodeBranchWithValueRoundTrips(t *testing.T) {
	var children [16]Node
	children[2] = &Dummy{DBKey: []byte("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")}
	children[9] = &Dummy{DBKey: []byte("short")}
	branch := &BranchWithValue{Key: []byte{5, 6}, Value: []byte("v"), Children: children}

	enc, err := Encode(branch)
	require.NoError(t, err)

	decoded, err := Decode(enc)
	require.NoError(t, err)
	got, ok := decoded.(*BranchWithValue)
	require.True(t, ok)
	require.Equal(t, branch.Key, got.Key)
	require.Equal(t, branch.Value, got.Value)

	d2, ok := got.Children[2].(*Dummy)
	require.True(t, ok)
	require.Equal(t, children[2].(*Dummy).DBKey, d2.DBKey)

	d9, ok := got.Children[9].(*Dummy)
	require.True(t, ok)
	require.Equal(t, children[9].(*Dummy).DBKey, d9.DBKey)

	for i, c := range got.Children {
		if i != 2 && i != 9 {
			require.Nil(t, c)
		}
	}
}

func TestMerkleValueInlinesShortEncodings(t *testing.T) {
	short := []byte("tiny")
	require.Equal(t, short, MerkleValue(short))
}

func TestMerkleValueHashesLongEncodings(t *testing.T) {
	long := make([]byte, 40)
	mv := MerkleValue(long)
	require.Len(t, mv, common.HashLength)
}

func TestDecodeInputTooSmallErrors(t *testing.T) {
	_, err := Decode(nil)
	require.Error(t, err)
}

func TestEmptyTrieRootIsHashOfZeroByte(t *testing.T) {
	require.Equal(t, Hash256([]byte{0x00}), EmptyTrieRoot)
}
