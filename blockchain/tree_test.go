// Copyright 2024 The SuperGenius Authors
// This file is part of the sgnode-go library.
//
// Licensed under the GNU Lesser General Public License, Version 3.

package blockchain

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/GeniusVentures/sgnode-go/common"
	"github.com/GeniusVentures/sgnode-go/core/types"
	"github.com/GeniusVentures/sgnode-go/crdtkv"
)

func newTestStorage(t *testing.T) (*Storage, common.Hash256) {
	t.Helper()
	db, err := crdtkv.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	storage, genesis, err := NewStorageWithGenesis(db, common.Hash256{0xAA}, nil)
	require.NoError(t, err)
	return storage, genesis
}

func header(parent common.Hash256, number uint64, salt byte) *types.Header {
	return &types.Header{ParentHash: parent, Number: number, StateRoot: common.Hash256{salt}}
}

func TestStorageGenesisOnce(t *testing.T) {
	storage, genesis := newTestStorage(t)
	last, err := storage.GetLastFinalized()
	require.NoError(t, err)
	require.Equal(t, genesis, last)

	_, _, err = NewStorageWithGenesis(storage.db, common.Hash256{}, nil)
	require.Error(t, err)
}

func TestStoragePutBlockRejectsDuplicate(t *testing.T) {
	storage, genesis := newTestStorage(t)
	h := header(genesis, 1, 1)
	_, err := storage.PutBlock(h, &types.Body{})
	require.NoError(t, err)

	_, err = storage.PutBlock(h, &types.Body{})
	require.Error(t, err)
}

func TestTreeAddBlockRejectsMissingParent(t *testing.T) {
	storage, _ := newTestStorage(t)
	tree, err := NewTree(storage)
	require.NoError(t, err)

	orphan := header(common.Hash256{0xFF}, 1, 7)
	err = tree.AddBlockHeader(orphan)
	require.Error(t, err)
}

func TestTreeFinalizePrunesSiblings(t *testing.T) {
	storage, genesis := newTestStorage(t)
	tree, err := NewTree(storage)
	require.NoError(t, err)

	a := header(genesis, 1, 1)
	b := header(genesis, 1, 2)
	require.NoError(t, tree.AddBlock(a, &types.Body{}))
	require.NoError(t, tree.AddBlock(b, &types.Body{}))

	aHash := a.Hash()
	bHash := b.Hash()
	require.True(t, tree.HasDirectChain(genesis, aHash))
	require.True(t, tree.HasDirectChain(genesis, bHash))

	require.NoError(t, tree.Finalize(aHash, nil))

	num, hash := tree.GetLastFinalized()
	require.Equal(t, uint64(1), num)
	require.Equal(t, aHash, hash)

	_, err = tree.GetChainByBlock(bHash)
	require.Error(t, err, "pruned sibling must no longer be reachable")
}

func TestTreeLongestPathDeterministicTieBreak(t *testing.T) {
	storage, genesis := newTestStorage(t)
	tree, err := NewTree(storage)
	require.NoError(t, err)

	a := header(genesis, 1, 1)
	b := header(genesis, 1, 2)
	require.NoError(t, tree.AddBlock(a, &types.Body{}))
	require.NoError(t, tree.AddBlock(b, &types.Body{}))

	leaf := tree.DeepestLeaf()
	aHash, bHash := a.Hash(), b.Hash()
	var expected common.Hash256
	if string(aHash.Bytes()) < string(bHash.Bytes()) {
		expected = aHash
	} else {
		expected = bHash
	}
	require.Equal(t, expected, leaf)
}

func TestHeaderRepositoryRoundTrip(t *testing.T) {
	db, err := crdtkv.OpenMemory()
	require.NoError(t, err)
	defer db.Close()

	repo := NewHeaderRepository(db)
	h := header(common.Hash256{}, 5, 9)
	hash, err := repo.PutBlockHeader(h)
	require.NoError(t, err)

	got, err := repo.GetBlockHeader(ByHash(hash))
	require.NoError(t, err)
	require.Equal(t, h.Number, got.Number)

	byNum, err := repo.GetHashByNumber(5)
	require.NoError(t, err)
	require.Equal(t, hash, byNum)

	status, err := repo.GetBlockStatus(ByHash(hash))
	require.NoError(t, err)
	require.Equal(t, StatusInChain, status)

	require.NoError(t, repo.RemoveBlockHeader(ByHash(hash)))
	status, err = repo.GetBlockStatus(ByHash(hash))
	require.NoError(t, err)
	require.Equal(t, StatusUnknown, status)
}
