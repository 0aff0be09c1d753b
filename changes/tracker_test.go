// Copyright 2024 The SuperGenius Authors
// This file is part of the sgnode-go library.
//
// Licensed under the GNU Lesser General Public License, Version 3.

package changes

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/GeniusVentures/sgnode-go/codec"
	"github.com/GeniusVentures/sgnode-go/common"
)

type fixedIndex uint32

func (f fixedIndex) ExtrinsicIndex() uint32 { return uint32(f) }

func TestConstructChangesTrieIsDeterministic(t *testing.T) {
	parent := common.Hash256{0xaa}
	build := func() common.Hash256 {
		tr := New(parent, 42, fixedIndex(1))
		tr.OnPut([]byte("abc"), []byte("123"))
		tr.OnPut([]byte("cde"), []byte("345"))
		root, err := tr.ConstructChangesTrie(parent, DefaultConfig)
		require.NoError(t, err)
		return root
	}
	require.Equal(t, build(), build())
}

func TestConstructChangesTrieNoChangesIsEmptyRoot(t *testing.T) {
	tr := New(common.Hash256{0xbb}, 7, fixedIndex(Sentinel))
	root, err := tr.ConstructChangesTrie(common.Hash256{0xbb}, DefaultConfig)
	require.NoError(t, err)

	empty := New(common.Hash256{0xcc}, 7, fixedIndex(Sentinel))
	emptyRoot, err := empty.ConstructChangesTrie(common.Hash256{0xcc}, DefaultConfig)
	require.NoError(t, err)
	require.Equal(t, emptyRoot, root)
	require.Equal(t, codec.EmptyTrieRoot, root)
}

func TestRecordAccumulatesMultipleExtrinsicIndices(t *testing.T) {
	tr := New(common.Hash256{}, 1, nil)
	tr.OnPut([]byte("k"), []byte("v1"))
	tr.OnPut([]byte("k"), []byte("v2"))
	require.Equal(t, []uint32{Sentinel, Sentinel}, tr.changes["k"])
}
