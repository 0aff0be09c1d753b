// Copyright 2024 The SuperGenius Authors
// This file is part of the sgnode-go library.
//
// Licensed under the GNU Lesser General Public License, Version 3.

// Package finality implements C16, Finality+Environment: GRANDPA-style
// voting rounds over the block tree, justification production/verification
// and vote gossip, per spec.md §4.13. The per-round quorum arithmetic uses
// github.com/holiman/uint256 so a pathological authority set's total vote
// weight can never silently overflow a uint64 multiply.
package finality

import "github.com/GeniusVentures/sgnode-go/common"

// Step distinguishes a vote's phase within a round.
type Step uint8

const (
	StepPrevote Step = iota
	StepPrecommit
)

// BlockInfo names a block by both hash and number, since prevote-GHOST and
// ancestry comparisons need the number to order candidates without walking
// the whole tree.
type BlockInfo struct {
	Hash   common.Hash256
	Number uint64
}

// VoteMessage is one signed Prevote or Precommit, spec.md §4.13 step 1/2.
type VoteMessage struct {
	Round       uint64
	AuthorityID [32]byte
	Step        Step
	Block       BlockInfo
	Signature   []byte
}

// key identifies a vote for the Gossiper's dedup set: (round, authority,
// step), per spec.md §4.13's Gossiper description.
func (v VoteMessage) key() voteKey {
	return voteKey{round: v.Round, authority: v.AuthorityID, step: v.Step}
}

type voteKey struct {
	round     uint64
	authority [32]byte
	step      Step
}

// Fin is a finality announcement: the finalized block plus the precommit
// justification that proves it.
type Fin struct {
	Round         uint64
	Block         BlockInfo
	Justification []VoteMessage
}
