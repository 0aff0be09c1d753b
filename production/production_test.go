// Copyright 2024 The SuperGenius Authors
// This file is part of the sgnode-go library.
//
// Licensed under the GNU Lesser General Public License, Version 3.

package production

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/GeniusVentures/sgnode-go/core/types"
)

func epochWith(weights ...uint64) Epoch {
	var auths types.AuthorityList
	for i, w := range weights {
		var id [32]byte
		id[0] = byte(i + 1)
		auths = append(auths, types.Authority{ID: id, Weight: w})
	}
	return Epoch{Number: 0, Authorities: auths, FirstSlot: 0, SlotCount: 100}
}

func TestClaimSlotDeterministicOnInputs(t *testing.T) {
	epoch := epochWith(1, 1, 1)
	var self [32]byte
	self[0] = 1

	first := ClaimSlot(epoch, 42, self)
	second := ClaimSlot(epoch, 42, self)
	require.Equal(t, first, second, "claiming the same slot twice must agree")
}

func TestClaimSlotRejectsUnknownOrZeroWeightAuthority(t *testing.T) {
	epoch := epochWith(1, 1, 0)
	var unknown [32]byte
	unknown[0] = 99
	require.False(t, ClaimSlot(epoch, 1, unknown))

	var zeroWeight [32]byte
	zeroWeight[0] = 3
	require.False(t, ClaimSlot(epoch, 1, zeroWeight))
}

func TestClaimSlotDistributionRoughlyMatchesWeightShare(t *testing.T) {
	// A single authority holding all weight must win every slot it is
	// eligible for; this pins the threshold direction (weight proportional
	// to win probability, not inversely).
	epoch := epochWith(1)
	var self [32]byte
	self[0] = 1
	wins := 0
	for slot := uint64(0); slot < 200; slot++ {
		if ClaimSlot(epoch, slot, self) {
			wins++
		}
	}
	require.Equal(t, 200, wins)
}

type fakeProposer struct {
	calls int
}

func (p *fakeProposer) ProposeBlock(ctx context.Context, slot Slot) (*types.Header, *types.Body, error) {
	p.calls++
	return &types.Header{Number: slot.Number}, &types.Body{}, nil
}

type fakeAnnouncer struct {
	announced int
}

func (a *fakeAnnouncer) Announce(header *types.Header, body *types.Body) error {
	a.announced++
	return nil
}

func TestMachineTickProposesOnlyWhenSlotClaimed(t *testing.T) {
	epoch := epochWith(1)
	var self [32]byte
	self[0] = 1
	proposer := &fakeProposer{}
	announcer := &fakeAnnouncer{}

	m := New(self, epoch, 0, proposer, announcer, nil)
	m.tick(context.Background(), 0)

	require.Equal(t, 1, proposer.calls)
	require.Equal(t, 1, announcer.announced)
	require.Equal(t, StateIdle, m.State())
}

func TestMachineTickSkipsWhenSlotNotClaimed(t *testing.T) {
	epoch := epochWith(1, 1, 1)
	var outsider [32]byte
	outsider[0] = 99 // not in the authority set: never claims
	proposer := &fakeProposer{}
	announcer := &fakeAnnouncer{}

	m := New(outsider, epoch, 0, proposer, announcer, nil)
	m.tick(context.Background(), 0)

	require.Equal(t, 0, proposer.calls)
	require.Equal(t, 0, announcer.announced)
}

func TestMachineRollsOverEpochWhenSlotExceedsRange(t *testing.T) {
	epoch := epochWith(1)
	epoch.SlotCount = 1 // only slot 0 belongs to epoch 0
	var self [32]byte
	self[0] = 1

	rolled := false
	nextEpoch := func(after uint64) (Epoch, error) {
		rolled = true
		e := epochWith(1)
		e.Number = after + 1
		e.FirstSlot = 1
		e.SlotCount = 100
		return e, nil
	}

	m := New(self, epoch, 0, &fakeProposer{}, &fakeAnnouncer{}, nextEpoch)
	m.tick(context.Background(), 1) // slot 1 is outside epoch 0's [0,1) range

	require.True(t, rolled)
	require.Equal(t, uint64(1), m.epoch.Number)
}
