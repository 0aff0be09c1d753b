// Copyright 2024 The SuperGenius Authors
// This file is part of the sgnode-go library.
//
// Licensed under the GNU Lesser General Public License, Version 3.

package finality

import (
	"context"
	"time"

	"github.com/GeniusVentures/sgnode-go/core/types"
	"github.com/GeniusVentures/sgnode-go/log"
)

// Environment is the set of block-tree/authority-set operations a voting
// round needs from the rest of the node, per spec.md §4.13.
type Environment interface {
	Ancestry
	// BestDescendant returns the best (deepest, tie-broken deterministically)
	// descendant of base that is itself ancestry-consistent with the votes
	// observed so far, spec.md §4.13 step 1.
	BestDescendant(base BlockInfo) (BlockInfo, error)
	// Authorities returns the voter set effective for round.
	Authorities(round uint64) types.AuthorityList
	// Sign produces this node's signature over v (minus Signature itself).
	Sign(v VoteMessage) VoteMessage
	// SelfID is this node's own authority id, or the zero id if this node
	// does not hold a voting key.
	SelfID() [32]byte
}

// FinalizationHandler is notified when a round finalizes a block.
type FinalizationHandler interface {
	OnFinalized(Fin)
}

// RoundRunner drives successive rounds to completion, gossiping votes and
// invoking handler on every Fin, per spec.md §4.13.
type RoundRunner struct {
	env       Environment
	gossiper  *Gossiper
	handler   FinalizationHandler
	roundTime time.Duration // Δ_round: cancellation timeout
	logger    log.Logger

	lastFinalized BlockInfo
	inbound       chan VoteMessage
}

// NewRoundRunner wires a RoundRunner starting from genesis/lastFinalized.
func NewRoundRunner(env Environment, g *Gossiper, handler FinalizationHandler, roundTime time.Duration, lastFinalized BlockInfo) *RoundRunner {
	return &RoundRunner{
		env:           env,
		gossiper:      g,
		handler:       handler,
		roundTime:     roundTime,
		logger:        log.New("component", "finality"),
		lastFinalized: lastFinalized,
		inbound:       make(chan VoteMessage, 256),
	}
}

// ImportVote feeds a vote received from a peer (via the Gossiper's
// subscription) into whichever round is currently active; votes for a
// round other than the one in flight are silently dropped, mirroring the
// round-scoped nature of the GRANDPA protocol.
func (rr *RoundRunner) ImportVote(v VoteMessage) {
	select {
	case rr.inbound <- v:
	default:
		rr.logger.Warn("dropping vote, inbound queue full", "round", v.Round)
	}
}

// Run drives rounds numbered starting at startRound until ctx is cancelled.
func (rr *RoundRunner) Run(ctx context.Context, startRound uint64) {
	round := startRound
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		fin, ok := rr.runOneRound(ctx, round)
		if ok {
			rr.lastFinalized = fin.Block
			if rr.handler != nil {
				rr.handler.OnFinalized(fin)
			}
		}
		round++
	}
}

// runOneRound executes spec.md §4.13 steps 1-4 for a single round, or
// returns ok=false if the round was cancelled (Δ_round elapsed without
// finalizing), in which case the caller simply moves on to the next round.
func (rr *RoundRunner) runOneRound(ctx context.Context, number uint64) (Fin, bool) {
	roundCtx, cancel := context.WithTimeout(ctx, rr.roundTime)
	defer cancel()

	authorities := rr.env.Authorities(number)
	r := NewRound(number, authorities, rr.env)

	go rr.drainInbound(roundCtx, r, number)

	// Step 1: cast our own prevote for the best descendant of the last
	// finalized block.
	if self := rr.env.SelfID(); self != ([32]byte{}) {
		target, err := rr.env.BestDescendant(rr.lastFinalized)
		if err == nil {
			vote := rr.env.Sign(VoteMessage{Round: number, AuthorityID: self, Step: StepPrevote, Block: target})
			r.ImportPrevote(vote)
			rr.gossiper.Broadcast(vote)
		}
	}

	ghost, ok := rr.waitForPrevoteGhost(roundCtx, r)
	if !ok {
		return Fin{}, false
	}

	if self := rr.env.SelfID(); self != ([32]byte{}) {
		vote := rr.env.Sign(VoteMessage{Round: number, AuthorityID: self, Step: StepPrecommit, Block: ghost})
		r.ImportPrecommit(vote)
		rr.gossiper.Broadcast(vote)
	}

	finalBlock, ok := rr.waitForPrecommitGhost(roundCtx, r)
	if !ok {
		return Fin{}, false
	}
	fin := Fin{Round: number, Block: finalBlock, Justification: r.Justification(finalBlock)}
	rr.gossiper.BroadcastFin(fin)
	return fin, true
}

// waitForPrevoteGhost polls until prevotes reach a supermajority and a
// GHOST candidate exists, or the round context is cancelled.
func (rr *RoundRunner) waitForPrevoteGhost(ctx context.Context, r *Round) (BlockInfo, bool) {
	return pollUntil(ctx, func() (BlockInfo, bool) {
		if !r.HasPrevoteSupermajority() {
			return BlockInfo{}, false
		}
		return r.PrevoteGhost()
	})
}

func (rr *RoundRunner) waitForPrecommitGhost(ctx context.Context, r *Round) (BlockInfo, bool) {
	return pollUntil(ctx, func() (BlockInfo, bool) {
		if !r.HasPrecommitSupermajority() {
			return BlockInfo{}, false
		}
		return r.PrecommitGhost()
	})
}

// drainInbound imports every vote addressed to round number into r until
// the round's context is cancelled. Votes for any other round are dropped;
// a round only tracks its own votes.
func (rr *RoundRunner) drainInbound(ctx context.Context, r *Round, number uint64) {
	for {
		select {
		case <-ctx.Done():
			return
		case v := <-rr.inbound:
			if v.Round != number {
				continue
			}
			switch v.Step {
			case StepPrevote:
				r.ImportPrevote(v)
			case StepPrecommit:
				r.ImportPrecommit(v)
			}
		}
	}
}

func pollUntil(ctx context.Context, check func() (BlockInfo, bool)) (BlockInfo, bool) {
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for {
		if b, ok := check(); ok {
			return b, true
		}
		select {
		case <-ctx.Done():
			return BlockInfo{}, false
		case <-ticker.C:
		}
	}
}
