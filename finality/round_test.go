// Copyright 2024 The SuperGenius Authors
// This file is part of the sgnode-go library.
//
// Licensed under the GNU Lesser General Public License, Version 3.

package finality

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/GeniusVentures/sgnode-go/core/types"
)

// linearAncestry treats every block as belonging to one chain ordered by
// Number, which is all Round needs to exercise the quorum/GHOST logic.
type linearAncestry struct{}

func (linearAncestry) IsDescendant(ancestor, descendant BlockInfo) bool {
	return descendant.Number >= ancestor.Number
}

func authSet(weights ...uint64) types.AuthorityList {
	var out types.AuthorityList
	for i, w := range weights {
		var id [32]byte
		id[0] = byte(i + 1)
		out = append(out, types.Authority{ID: id, Weight: w})
	}
	return out
}

func blockAt(n uint64) BlockInfo {
	var b BlockInfo
	b.Number = n
	b.Hash[0] = byte(n)
	return b
}

func TestRoundRequiresSupermajorityForGhost(t *testing.T) {
	auths := authSet(1, 1, 1, 1) // total weight 4, quorum needs weight*3>=8 i.e weight>=3 (ceil(8/3))
	r := NewRound(1, auths, linearAncestry{})

	r.ImportPrevote(VoteMessage{Round: 1, AuthorityID: auths[0].ID, Step: StepPrevote, Block: blockAt(5)})
	r.ImportPrevote(VoteMessage{Round: 1, AuthorityID: auths[1].ID, Step: StepPrevote, Block: blockAt(5)})
	require.False(t, r.HasPrevoteSupermajority())

	r.ImportPrevote(VoteMessage{Round: 1, AuthorityID: auths[2].ID, Step: StepPrevote, Block: blockAt(5)})
	require.True(t, r.HasPrevoteSupermajority())

	ghost, ok := r.PrevoteGhost()
	require.True(t, ok)
	require.Equal(t, uint64(5), ghost.Number)
}

func TestRoundGhostPicksDeepestQualifyingBlock(t *testing.T) {
	auths := authSet(1, 1, 1, 1)
	r := NewRound(2, auths, linearAncestry{})

	// All four vote, but for different depths along the same chain; every
	// vote for block N also counts toward every ancestor <= N.
	r.ImportPrevote(VoteMessage{Round: 2, AuthorityID: auths[0].ID, Step: StepPrevote, Block: blockAt(10)})
	r.ImportPrevote(VoteMessage{Round: 2, AuthorityID: auths[1].ID, Step: StepPrevote, Block: blockAt(10)})
	r.ImportPrevote(VoteMessage{Round: 2, AuthorityID: auths[2].ID, Step: StepPrevote, Block: blockAt(7)})
	r.ImportPrevote(VoteMessage{Round: 2, AuthorityID: auths[3].ID, Step: StepPrevote, Block: blockAt(3)})

	ghost, ok := r.PrevoteGhost()
	require.True(t, ok)
	// block 7 has weight from auths[0,1,2] = 3 >= quorum(3); block 10 only
	// has weight 2, so 7 is the deepest qualifying candidate.
	require.Equal(t, uint64(7), ghost.Number)
}

func TestRoundImportRejectsUnknownAuthority(t *testing.T) {
	auths := authSet(1, 1)
	r := NewRound(1, auths, linearAncestry{})
	var unknown [32]byte
	unknown[0] = 99
	err := r.ImportPrevote(VoteMessage{Round: 1, AuthorityID: unknown, Step: StepPrevote, Block: blockAt(1)})
	require.Error(t, err)
}
