// Copyright 2024 The SuperGenius Authors
// This file is part of the sgnode-go library.
//
// Licensed under the GNU Lesser General Public License, Version 3.

package authority

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/GeniusVentures/sgnode-go/common"
	"github.com/GeniusVentures/sgnode-go/core/types"
	"github.com/GeniusVentures/sgnode-go/crdtkv"
)

// chainModel is a tiny in-test stand-in for blockchain.Tree's ancestry,
// enough to exercise getAppropriateAncestor/Authorities without pulling in
// the full block tree.
type chainModel struct {
	parent map[common.Hash256]common.Hash256
}

func (c *chainModel) hasDirectChain(a, d common.Hash256) bool {
	for cur := d; cur != (common.Hash256{}); {
		p, ok := c.parent[cur]
		if !ok {
			return false
		}
		if p == a {
			return true
		}
		cur = p
	}
	return false
}

func TestAuthoritiesAppliesScheduledChange(t *testing.T) {
	genesis := common.Hash256{1}
	blockA := common.Hash256{2}
	blockB := common.Hash256{3}
	chain := &chainModel{parent: map[common.Hash256]common.Hash256{blockA: genesis, blockB: blockA}}

	initial := types.AuthorityList{{ID: [32]byte{1}, Weight: 1}}
	m := NewManager(genesis, initial, chain.hasDirectChain, nil)

	newSet := types.AuthorityList{{ID: [32]byte{2}, Weight: 1}, {ID: [32]byte{3}, Weight: 1}}
	m.OnScheduledChange(1, blockA, newSet, 1) // activates at block 2

	before := m.Authorities(1, blockA)
	require.Len(t, before, 1, "change not yet active at its own block")

	after := m.Authorities(2, blockB)
	require.Len(t, after, 2, "change must be active once number >= activate_at")
}

func TestOnDisabledZeroesWeight(t *testing.T) {
	genesis := common.Hash256{1}
	blockA := common.Hash256{2}
	chain := &chainModel{parent: map[common.Hash256]common.Hash256{blockA: genesis}}

	initial := types.AuthorityList{{ID: [32]byte{1}, Weight: 5}, {ID: [32]byte{2}, Weight: 5}}
	m := NewManager(genesis, initial, chain.hasDirectChain, nil)
	m.OnDisabledChange(1, blockA, 0)

	got := m.Authorities(1, blockA)
	require.Equal(t, uint64(0), got[0].Weight)
	require.Equal(t, uint64(5), got[1].Weight)
}

func TestPauseResumeRoundTrip(t *testing.T) {
	genesis := common.Hash256{1}
	blockA := common.Hash256{2}
	blockB := common.Hash256{3}
	chain := &chainModel{parent: map[common.Hash256]common.Hash256{blockA: genesis, blockB: blockA}}

	initial := types.AuthorityList{{ID: [32]byte{1}, Weight: 5}}
	m := NewManager(genesis, initial, chain.hasDirectChain, nil)
	m.OnPause(1, blockA, 1)
	m.OnResume(2, blockB, 2)

	paused := m.Authorities(1, blockA)
	require.Equal(t, uint64(0), paused[0].Weight)

	resumed := m.Authorities(2, blockB)
	require.Equal(t, uint64(5), resumed[0].Weight)
}

func TestOnFinalizePersistsSubtree(t *testing.T) {
	genesis := common.Hash256{1}
	blockA := common.Hash256{2}
	chain := &chainModel{parent: map[common.Hash256]common.Hash256{blockA: genesis}}

	db, err := crdtkv.OpenMemory()
	require.NoError(t, err)
	defer db.Close()

	initial := types.AuthorityList{{ID: [32]byte{1}, Weight: 5}}
	m := NewManager(genesis, initial, chain.hasDirectChain, db)
	m.OnScheduledChange(1, blockA, types.AuthorityList{{ID: [32]byte{9}, Weight: 7}}, 0)

	require.NoError(t, m.OnFinalize(1, blockA))
	require.Equal(t, blockA, m.Root().BlockHash)

	restored, err := LoadPersisted(db, chain.hasDirectChain)
	require.NoError(t, err)
	require.NotNil(t, restored)
	require.Equal(t, blockA, restored.Root().BlockHash)
	require.Equal(t, uint64(7), restored.Root().Authorities[0].Weight)
}
