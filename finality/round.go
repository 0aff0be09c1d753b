// Copyright 2024 The SuperGenius Authors
// This file is part of the sgnode-go library.
//
// Licensed under the GNU Lesser General Public License, Version 3.

package finality

import (
	"sync"

	"github.com/holiman/uint256"

	"github.com/GeniusVentures/sgnode-go/core/types"
	"github.com/GeniusVentures/sgnode-go/errkind"
)

// Ancestry answers the block-tree ancestry questions a round needs to
// compute prevote/precommit-GHOST without importing blockchain.Tree
// directly (the tree and the voting round are wired together by the
// caller, mirroring authority.HasDirectChainFunc's decoupling).
type Ancestry interface {
	// IsDescendant reports whether descendant is d such that ancestor is an
	// ancestor of (or equal to) d.
	IsDescendant(ancestor, descendant BlockInfo) bool
}

// Round is one GRANDPA-style voting round over a fixed authority set.
type Round struct {
	mu sync.Mutex

	Number      uint64
	authorities types.AuthorityList
	weightByID  map[[32]byte]uint64
	totalWeight *uint256.Int

	prevotes   map[[32]byte]VoteMessage
	precommits map[[32]byte]VoteMessage

	ancestry Ancestry
}

// NewRound starts round number over authorities, resolving ancestry queries
// via a.
func NewRound(number uint64, authorities types.AuthorityList, a Ancestry) *Round {
	weightByID := make(map[[32]byte]uint64, len(authorities))
	total := new(uint256.Int)
	for _, auth := range authorities {
		weightByID[auth.ID] = auth.Weight
		total.AddUint64(total, auth.Weight)
	}
	return &Round{
		Number:      number,
		authorities: authorities,
		weightByID:  weightByID,
		totalWeight: total,
		prevotes:    make(map[[32]byte]VoteMessage),
		precommits:  make(map[[32]byte]VoteMessage),
		ancestry:    a,
	}
}

// hasSupermajority reports whether weight*3 >= total*2, spec.md §4.13's
// "total weight >= 2*|A_r|/3" rephrased to avoid fractional division.
func hasSupermajority(weight uint64, total *uint256.Int) bool {
	lhs := new(uint256.Int).Mul(uint256.NewInt(weight), uint256.NewInt(3))
	rhs := new(uint256.Int).Mul(total, uint256.NewInt(2))
	return lhs.Cmp(rhs) >= 0
}

// ImportPrevote records a prevote from an authority in the current set.
// Re-imports of the same authority's vote overwrite the prior one, letting
// equivocation handling live entirely in the caller (this round just keeps
// the latest vote it was handed).
func (r *Round) ImportPrevote(v VoteMessage) error {
	return r.importVote(&r.prevotes, v)
}

// ImportPrecommit records a precommit the same way ImportPrevote does.
func (r *Round) ImportPrecommit(v VoteMessage) error {
	return r.importVote(&r.precommits, v)
}

func (r *Round) importVote(into *map[[32]byte]VoteMessage, v VoteMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, known := r.weightByID[v.AuthorityID]; !known {
		return errkind.New(errkind.PermissionDenied, errkind.ErrBadSignature)
	}
	(*into)[v.AuthorityID] = v
	return nil
}

// votesForOrDescending sums the weight of authorities who cast a vote
// naming block (or a descendant of it).
func (r *Round) votesForOrDescending(votes map[[32]byte]VoteMessage, block BlockInfo) uint64 {
	var sum uint64
	for id, v := range votes {
		if v.Block == block || r.ancestry.IsDescendant(block, v.Block) {
			sum += r.weightByID[id]
		}
	}
	return sum
}

// HasPrevoteSupermajority reports whether total prevote weight reaches
// quorum, spec.md §4.13 step 2's trigger to compute prevote-GHOST.
func (r *Round) HasPrevoteSupermajority() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	var sum uint64
	for id := range r.prevotes {
		sum += r.weightByID[id]
	}
	return hasSupermajority(sum, r.totalWeight)
}

// HasPrecommitSupermajority is the precommit analogue.
func (r *Round) HasPrecommitSupermajority() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	var sum uint64
	for id := range r.precommits {
		sum += r.weightByID[id]
	}
	return hasSupermajority(sum, r.totalWeight)
}

// ghost finds, among the given vote set's distinct targets, the highest
// block for which the voting weight naming it (or a descendant) reaches
// quorum. It returns false if no candidate (including the trivial
// zero-block) qualifies.
func (r *Round) ghost(votes map[[32]byte]VoteMessage) (BlockInfo, bool) {
	candidates := make(map[BlockInfo]bool)
	for _, v := range votes {
		candidates[v.Block] = true
	}
	var best BlockInfo
	found := false
	for cand := range candidates {
		weight := r.votesForOrDescending(votes, cand)
		if !hasSupermajority(weight, r.totalWeight) {
			continue
		}
		if !found || cand.Number > best.Number {
			best = cand
			found = true
		}
	}
	return best, found
}

// PrevoteGhost computes the prevote-GHOST per spec.md §4.13 step 2.
func (r *Round) PrevoteGhost() (BlockInfo, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ghost(r.prevotes)
}

// PrecommitGhost is the precommit analogue, the candidate finalized block
// of step 3.
func (r *Round) PrecommitGhost() (BlockInfo, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ghost(r.precommits)
}

// Justification returns every recorded precommit naming block or a
// descendant of it, the proof set spec.md §4.13 step 3 attaches to Fin.
func (r *Round) Justification(block BlockInfo) []VoteMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []VoteMessage
	for _, v := range r.precommits {
		if v.Block == block || r.ancestry.IsDescendant(block, v.Block) {
			out = append(out, v)
		}
	}
	return out
}
